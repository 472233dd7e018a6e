// Package domain implements the selective sampling and sparse-fetch pipeline.
package domain

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"subsample.dev/pkg/subsample/internal/adapter"
	m "subsample.dev/pkg/subsample/internal/model"
)

// DatasetLocator resolves a dataset identifier to a remote reference and
// checks that the remote exists.
type DatasetLocator interface {
	Resolve(ctx context.Context, datasetID string) (m.DatasetReference, error)
}

// datasetIDPattern accepts OpenNeuro-style accession numbers and anything
// else a remote path segment tolerates.
var datasetIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

type datasetLocator struct {
	git        adapter.GitAdapter
	remoteBase string
	logger     *slog.Logger
}

// NewDatasetLocator constructs a DatasetLocator probing remotes under
// remoteBase (e.g. https://github.com/OpenNeuro).
func NewDatasetLocator(git adapter.GitAdapter, remoteBase string, logger *slog.Logger) DatasetLocator {
	return &datasetLocator{
		git:        git,
		remoteBase: strings.TrimRight(remoteBase, "/"),
		logger:     logger,
	}
}

// Resolve builds the canonical remote locator and probes it. An unreachable
// dataset is not an error here; the reference carries Reachable=false and the
// caller decides. Only a malformed or empty id fails.
func (l *datasetLocator) Resolve(ctx context.Context, datasetID string) (m.DatasetReference, error) {
	datasetID = strings.TrimSpace(datasetID)
	if datasetID == "" {
		return m.DatasetReference{}, fmt.Errorf("dataset id is empty")
	}

	if !datasetIDPattern.MatchString(datasetID) {
		return m.DatasetReference{}, fmt.Errorf("malformed dataset id %q", datasetID)
	}

	ref := m.DatasetReference{
		ID:        datasetID,
		RemoteURL: l.remoteBase + "/" + datasetID,
	}

	if err := l.git.LsRemote(ctx, ref.RemoteURL); err != nil {
		l.logger.Warn("dataset remote not reachable", "dataset", datasetID, "url", ref.RemoteURL, "error", err)
		return ref, nil
	}

	ref.Reachable = true
	l.logger.Debug("dataset remote reachable", "dataset", datasetID, "url", ref.RemoteURL)

	return ref, nil
}
