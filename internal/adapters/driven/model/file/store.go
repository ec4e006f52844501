// Package file manages the local generative model artifact. Artifacts
// are installed by copying a file the user already has on disk into
// the managed models directory; nothing is ever fetched over the
// network.
package file

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/docvault-labs/docvault-core/internal/core/domain"
	"github.com/docvault-labs/docvault-core/internal/core/ports/driven"
	"github.com/docvault-labs/docvault-core/internal/logger"
)

// Ensure ModelStore implements the interface.
var _ driven.ModelStore = (*ModelStore)(nil)

// copyChunkSize is the install copy granularity; progress is reported
// once per chunk.
const copyChunkSize = 4 << 20

// artifactExtensions are the file types recognised as model artifacts.
var artifactExtensions = map[string]bool{
	".gguf": true,
	".bin":  true,
	".onnx": true,
}

// ModelStore watches a models directory and reports whether a model
// artifact is installed. The fsnotify watcher keeps readiness current
// without polling the filesystem on every query.
type ModelStore struct {
	dir     string
	watcher *fsnotify.Watcher

	mu    sync.RWMutex
	ready bool
	path  string

	done chan struct{}
}

// NewModelStore creates a model store over modelsDir. If modelsDir is
// empty, defaults to ~/.docvault/models.
func NewModelStore(modelsDir string) (*ModelStore, error) {
	if modelsDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		modelsDir = filepath.Join(home, ".docvault", "models")
	}

	if err := os.MkdirAll(modelsDir, 0700); err != nil {
		return nil, fmt.Errorf("creating models directory: %w", err)
	}

	s := &ModelStore{
		dir:  modelsDir,
		done: make(chan struct{}),
	}
	s.rescan()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := watcher.Add(modelsDir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watching models directory: %w", err)
	}
	s.watcher = watcher
	go s.watch()

	return s, nil
}

// Ready reports whether a model artifact is installed.
func (s *ModelStore) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// Path returns the installed artifact path.
func (s *ModelStore) Path() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.ready {
		return "", domain.ErrNotFound
	}
	return s.path, nil
}

// Install copies a model artifact into the models directory, reporting
// progress as (bytesCopied, totalBytes). Re-installing an identical
// file is a no-op: the digests are compared before any byte is copied.
func (s *ModelStore) Install(ctx context.Context, sourcePath string, onProgress func(done, total int64)) error {
	info, err := os.Stat(sourcePath)
	if err != nil {
		return fmt.Errorf("reading model artifact: %w", err)
	}
	if !artifactExtensions[strings.ToLower(filepath.Ext(sourcePath))] {
		return fmt.Errorf("%w: unsupported model artifact %q", domain.ErrInvalidInput, filepath.Base(sourcePath))
	}

	destPath := filepath.Join(s.dir, filepath.Base(sourcePath))

	// Idempotence: an identical installed artifact stays untouched.
	if same, err := sameDigest(sourcePath, destPath); err == nil && same {
		logger.Debug("Model %s already installed", filepath.Base(sourcePath))
		if onProgress != nil {
			onProgress(info.Size(), info.Size())
		}
		return nil
	}

	src, err := os.Open(sourcePath)
	if err != nil {
		return fmt.Errorf("opening model artifact: %w", err)
	}
	defer src.Close()

	// Copy to a temp file and rename so a crashed install never
	// leaves a half-written artifact looking ready.
	tmp, err := os.CreateTemp(s.dir, ".install-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	var copied int64
	buf := make([]byte, copyChunkSize)
	for {
		if err := ctx.Err(); err != nil {
			tmp.Close()
			return err
		}

		n, readErr := src.Read(buf)
		if n > 0 {
			if _, err := tmp.Write(buf[:n]); err != nil {
				tmp.Close()
				return fmt.Errorf("writing model artifact: %w", err)
			}
			copied += int64(n)
			if onProgress != nil {
				onProgress(copied, info.Size())
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			tmp.Close()
			return fmt.Errorf("reading model artifact: %w", readErr)
		}
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), destPath); err != nil {
		return fmt.Errorf("installing model artifact: %w", err)
	}

	s.rescan()
	logger.Info("Installed model artifact %s (%d bytes)", filepath.Base(destPath), copied)
	return nil
}

// Close stops the directory watcher.
func (s *ModelStore) Close() error {
	close(s.done)
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}

// watch refreshes readiness when the models directory changes.
func (s *ModelStore) watch() {
	for {
		select {
		case <-s.done:
			return
		case _, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			s.rescan()
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("Model directory watcher: %v", err)
		}
	}
}

// rescan looks for an installed artifact and caches the result.
// With several artifacts present the lexicographically first wins,
// which keeps the choice stable across restarts.
func (s *ModelStore) rescan() {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		logger.Warn("Scanning models directory: %v", err)
		return
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if artifactExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(names) == 0 {
		s.ready = false
		s.path = ""
		return
	}
	s.ready = true
	s.path = filepath.Join(s.dir, names[0])
}

// sameDigest reports whether two files have identical SHA-256 digests.
// A missing file is simply not identical.
func sameDigest(a, b string) (bool, error) {
	da, err := fileDigest(a)
	if err != nil {
		return false, err
	}
	db, err := fileDigest(b)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return da == db, nil
}

// fileDigest computes the SHA-256 hex digest of a file.
func fileDigest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
