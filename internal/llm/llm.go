package llm

import (
	"context"
	"errors"

	"digin/internal/digest"
	"digin/internal/scan"
)

// ErrInvalidJSON reports a model response that could not be parsed into a
// digest even after extraction.
var ErrInvalidJSON = errors.New("llm: invalid JSON from model")

// Provider turns a leaf directory's direct-file listing into a digest.
// Implementations own their timeout and retry policy; a returned error is
// recorded per directory by the caller and never aborts the run.
type Provider interface {
	Name() string
	AnalyzeLeaf(ctx context.Context, dir scan.DirInfo) (digest.Digest, error)
	Close() error
}
