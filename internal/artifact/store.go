// Package artifact stores exported analysis outputs (digest snapshots and
// the project map) under a run identifier, either on local disk or in an
// S3-compatible bucket.
package artifact

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("artifact not found")

type Store interface {
	Put(ctx context.Context, runID, name string, content []byte) error
	Get(ctx context.Context, runID, name string) ([]byte, error)
	List(ctx context.Context, runID string) ([]string, error)
}
