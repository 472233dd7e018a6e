package domain

import (
	"log/slog"
	"math/rand/v2"

	m "subsample.dev/pkg/subsample/internal/model"
)

// Sampler draws a uniform random subset of subjects without replacement.
type Sampler interface {
	Select(subjects []m.SubjectEntry, count int) (m.SampleSet, error)
}

type sampler struct {
	rng    *rand.Rand
	logger *slog.Logger
}

// NewSampler constructs a Sampler with a random stream. Identical inputs may
// yield different samples across runs.
func NewSampler(logger *slog.Logger) Sampler {
	return &sampler{
		rng:    rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		logger: logger,
	}
}

// NewSeededSampler constructs a Sampler with a fixed seed for reproducible
// runs.
func NewSeededSampler(seed uint64, logger *slog.Logger) Sampler {
	return &sampler{
		rng:    rand.New(rand.NewPCG(seed, seed)),
		logger: logger,
	}
}

// Select picks min(count, len(subjects)) distinct subjects uniformly at
// random. The output order is unspecified. An empty pool is an error; a zero
// count against a non-empty pool is not.
func (s *sampler) Select(subjects []m.SubjectEntry, count int) (m.SampleSet, error) {
	if len(subjects) == 0 {
		return m.SampleSet{}, &EmptyPoolError{}
	}

	if count < 0 {
		count = 0
	}

	n := min(count, len(subjects))

	selected := make([]m.SubjectEntry, 0, n)
	for _, i := range s.rng.Perm(len(subjects))[:n] {
		selected = append(selected, subjects[i])
	}

	s.logger.Info("sample drawn", "requested", count, "pool", len(subjects), "selected", n)

	return m.SampleSet{RequestedCount: count, Selected: selected}, nil
}
