package richtext

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/verustcode/ctreport/pkg/errors"
	"github.com/verustcode/ctreport/pkg/logger"
)

// ImageSink persists extracted images
type ImageSink interface {
	WriteImage(name string, png []byte) error
}

// DirSink writes images as files below Dir
type DirSink struct {
	Dir string
}

// NewDirSink creates a sink writing into dir
func NewDirSink(dir string) *DirSink {
	return &DirSink{Dir: dir}
}

// WriteImage implements ImageSink
func (s *DirSink) WriteImage(name string, png []byte) error {
	path := filepath.Join(s.Dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(errors.ErrCodeWrite, "failed to create image directory", err)
	}
	if err := os.WriteFile(path, png, 0644); err != nil {
		return errors.Wrap(errors.ErrCodeWrite, "failed to write image", err).
			WithDetails(map[string]string{"path": path})
	}
	logger.Debug("Wrote image", zap.String(logger.FieldPath, path), zap.Int("bytes", len(png)))
	return nil
}

// MemorySink keeps images in memory
type MemorySink struct {
	mu     sync.Mutex
	images map[string][]byte
	// replaced lists names written again with different content
	replaced []string
}

// NewMemorySink creates an empty in-memory sink
func NewMemorySink() *MemorySink {
	return &MemorySink{images: make(map[string][]byte)}
}

// WriteImage implements ImageSink
func (s *MemorySink) WriteImage(name string, png []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.images[name]; ok && !bytes.Equal(prev, png) {
		// nodes sharing a name share image file names; the last one wins
		logger.Warn("Image replaced by another node with the same name",
			zap.String("image", name),
		)
		s.replaced = append(s.replaced, name)
	}
	cp := make([]byte, len(png))
	copy(cp, png)
	s.images[name] = cp
	return nil
}

// Replaced returns the names whose content was overwritten, in write order
func (s *MemorySink) Replaced() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.replaced...)
}

// Get returns a stored image
func (s *MemorySink) Get(name string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.images[name]
	return data, ok
}

// Names returns the stored image names sorted
func (s *MemorySink) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.images))
	for name := range s.images {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
