package upload

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// PreviewHandle is a revocable display reference to a selected file.
// Release must be called exactly once; the batch enforces that.
type PreviewHandle interface {
	Location() string
	Release() error
}

// Allocator creates preview handles for selected files.
type Allocator interface {
	Allocate(filename string, data []byte) (PreviewHandle, error)
}

// FileAllocator materializes previews as md5-named files under a
// working directory so external viewers can render them before upload.
type FileAllocator struct {
	dir string
}

func NewFileAllocator(dir string) *FileAllocator {
	return &FileAllocator{dir: dir}
}

func (a *FileAllocator) Allocate(filename string, data []byte) (PreviewHandle, error) {
	if err := os.MkdirAll(a.dir, 0755); err != nil {
		return nil, fmt.Errorf("creating previews directory: %w", err)
	}

	sum := md5.Sum(data)
	path := filepath.Join(a.dir, hex.EncodeToString(sum[:])+filepath.Ext(filename))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return nil, fmt.Errorf("writing preview: %w", err)
	}
	return &filePreview{path: path}, nil
}

type filePreview struct {
	mu       sync.Mutex
	path     string
	released bool
}

func (p *filePreview) Location() string { return p.path }

func (p *filePreview) Release() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.released {
		return fmt.Errorf("preview %s already released", p.path)
	}
	p.released = true
	if err := os.Remove(p.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
