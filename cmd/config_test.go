package cmd

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	m "subsample.dev/pkg/subsample/internal/model"
)

func TestParseSlogLevel(t *testing.T) {
	tests := []struct {
		value string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"ERROR", slog.LevelError},
		{" info ", slog.LevelInfo},
		{"-4", slog.LevelDebug},
		{"8", slog.LevelError},
		{"", slog.LevelWarn},
		{"bogus", slog.LevelWarn},
	}

	for _, test := range tests {
		require.Equal(t, test.want, parseSlogLevel(test.value, slog.LevelWarn), "value %q", test.value)
	}
}

func TestConfigDefaults(t *testing.T) {
	require.Equal(t, "https://github.com/OpenNeuro", viper.GetString(remoteBaseKey))
	require.Equal(t, 75, viper.GetInt(countConfigKey))
	require.Equal(t, 4, viper.GetInt(parallelConfigKey))
	require.Equal(t, int64(1024), viper.GetInt64(pointerThresholdKey))
	require.Equal(t, int64(100000), viper.GetInt64(successThresholdKey))
	require.Contains(t, viper.GetStringSlice(extensionsKey), ".set")
	require.Contains(t, viper.GetStringSlice(extensionsKey), ".fif")
}

func TestFanoutHandlerForwardsToAllHandlers(t *testing.T) {
	first := m.NewRunLog()
	second := m.NewRunLog()

	logger := slog.New(fanoutHandler{first, second})
	logger.Info("sample drawn", "subjects", 3)

	for _, log := range []*m.RunLog{first, second} {
		events := log.Snapshot()
		require.Len(t, events, 1)
		require.Equal(t, "sample drawn", events[0].Message)
		require.Equal(t, "3", events[0].Attrs["subjects"])
	}
}

func TestFanoutHandlerWithAttrsPropagates(t *testing.T) {
	log := m.NewRunLog()

	logger := slog.New(fanoutHandler{log}).With("dataset", "ds000001")
	logger.Warn("refresh failed")

	events := log.Snapshot()
	require.Len(t, events, 1)
	require.Equal(t, "ds000001", events[0].Attrs["dataset"])
}

func TestFanoutHandlerEnabledWhenAnyHandlerIs(t *testing.T) {
	ctx := context.Background()

	quiet := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError})
	chatty := m.NewRunLog()

	require.False(t, fanoutHandler{quiet}.Enabled(ctx, slog.LevelInfo))
	require.True(t, fanoutHandler{quiet, chatty}.Enabled(ctx, slog.LevelInfo))
}

func TestRunLogRecordsThroughFanout(t *testing.T) {
	log := m.NewRunLog()

	logger := slog.New(fanoutHandler{log})
	logger.Info("bound", "path", "/work/ds000001")

	events := log.Snapshot()
	require.Len(t, events, 1)
	require.WithinDuration(t, time.Now(), events[0].Time, time.Minute)
}
