package sink

import (
	"context"
	"sync"

	"github.com/matzehuels/bpdoc/pkg/entity"
	"github.com/matzehuels/bpdoc/pkg/errors"
)

// Memory keeps written documents and images in memory.
type Memory struct {
	// Key names the destination for resume bookkeeping. Memory sinks
	// sharing a key count as the same destination.
	Key string

	// FailAfter makes every write after the first FailAfter successful
	// document writes fail with SINK_UNAVAILABLE. Zero disables it.
	FailAfter int

	mu     sync.Mutex
	docs   map[entity.ID]*entity.Document
	order  []entity.ID
	images map[entity.ID]*entity.Image
}

// NewMemory returns an empty Memory sink.
func NewMemory() *Memory {
	return &Memory{
		docs:   make(map[entity.ID]*entity.Document),
		images: make(map[entity.ID]*entity.Image),
	}
}

func (m *Memory) WriteDocument(_ context.Context, id entity.ID, doc *entity.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[id]; ok {
		return ErrAlreadyWritten
	}
	if m.FailAfter > 0 && len(m.order) >= m.FailAfter {
		return errors.New(errors.ErrCodeSinkUnavailable, "memory sink full")
	}
	m.docs[id] = doc
	m.order = append(m.order, id)
	return nil
}

func (m *Memory) WriteImage(_ context.Context, id entity.ID, img *entity.Image) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.images[id] = img
	return ImagePath(id, img.Format), nil
}

// Destination implements [Destination].
func (m *Memory) Destination() string {
	if m.Key == "" {
		return "memory"
	}
	return "memory:" + m.Key
}

// Document returns the document written for id.
func (m *Memory) Document(id entity.ID) (*entity.Document, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	return d, ok
}

// IDs returns document IDs in write order.
func (m *Memory) IDs() []entity.ID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]entity.ID(nil), m.order...)
}

// Image returns the image written for id.
func (m *Memory) Image(id entity.ID) (*entity.Image, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	img, ok := m.images[id]
	return img, ok
}

var (
	_ Sink        = (*Memory)(nil)
	_ ImageWriter = (*Memory)(nil)
	_ Destination = (*Memory)(nil)
)
