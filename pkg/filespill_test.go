package pkg

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type record struct {
	Subject string
	Files   int
}

func TestFileSpillAppendAndRange(t *testing.T) {
	spill, err := NewFileSpill[record]()
	require.NoError(t, err)
	defer spill.Close()

	require.NoError(t, spill.Append(record{Subject: "sub-01", Files: 2}))
	require.NoError(t, spill.Append(record{Subject: "sub-02", Files: 0}))

	require.Equal(t, uint64(2), spill.Len())

	var seen []record

	err = spill.Range(func(_ uint64, item record) error {
		seen = append(seen, item)
		return nil
	})
	require.NoError(t, err)

	require.Equal(t, []record{{Subject: "sub-01", Files: 2}, {Subject: "sub-02", Files: 0}}, seen)
}

func TestFileSpillRangeStopsOnCallbackError(t *testing.T) {
	spill, err := NewFileSpill[record]()
	require.NoError(t, err)
	defer spill.Close()

	require.NoError(t, spill.Append(record{Subject: "sub-01"}))
	require.NoError(t, spill.Append(record{Subject: "sub-02"}))

	boom := errors.New("boom")
	calls := 0

	err = spill.Range(func(_ uint64, _ record) error {
		calls++
		return boom
	})

	require.ErrorIs(t, err, boom)
	require.Equal(t, 1, calls)
}

func TestFileSpillEmptyRange(t *testing.T) {
	spill, err := NewFileSpill[record]()
	require.NoError(t, err)
	defer spill.Close()

	err = spill.Range(func(_ uint64, _ record) error {
		t.Fatal("callback should not run for an empty spill")
		return nil
	})
	require.NoError(t, err)
}

func TestFileSpillCloseIsIdempotent(t *testing.T) {
	spill, err := NewFileSpill[record]()
	require.NoError(t, err)

	require.NoError(t, spill.Close())
	require.NoError(t, spill.Close())
}
