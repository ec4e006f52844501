package driven

import "context"

// ModelStore manages the local generative model artifact. Artifacts
// are installed from local files only; no network fetch of model
// weights happens here or anywhere in the core.
type ModelStore interface {
	// Ready reports whether a model artifact is installed.
	Ready() bool

	// Path returns the installed artifact path, or domain.ErrNotFound
	// when no artifact is installed.
	Path() (string, error)

	// Install copies a model artifact from a local source path into
	// the managed models directory, reporting progress as
	// (bytesCopied, totalBytes). Re-installing the same file is
	// idempotent and leaves the ready state unchanged.
	Install(ctx context.Context, sourcePath string, onProgress func(done, total int64)) error

	// Close stops any directory watching and releases resources.
	Close() error
}
