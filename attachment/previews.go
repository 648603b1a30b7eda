package attachment

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

var ErrReleased = errors.New("preview handle released")

// Handle references a locally renderable copy of an attachment. It is only
// meaningful inside the process that issued it.
type Handle string

type preview struct {
	data      []byte
	mediaType string
}

// Previews keeps the bytes behind live handles.
type Previews struct {
	mu    sync.Mutex
	items map[Handle]preview
}

func NewPreviews() *Previews {
	return &Previews{items: make(map[Handle]preview)}
}

func (p *Previews) Register(data []byte, mediaType string) Handle {
	h := Handle("preview:" + uuid.NewString())
	p.mu.Lock()
	p.items[h] = preview{data: data, mediaType: mediaType}
	p.mu.Unlock()
	return h
}

func (p *Previews) Lookup(h Handle) ([]byte, string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	it, ok := p.items[h]
	if !ok {
		return nil, "", ErrReleased
	}
	return it.data, it.mediaType, nil
}

// Release frees h. Releasing twice is a no-op.
func (p *Previews) Release(h Handle) {
	p.mu.Lock()
	delete(p.items, h)
	p.mu.Unlock()
}

func (p *Previews) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.items)
}
