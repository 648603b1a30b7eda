package attachment

import "sync"

// Pending collects attachments picked for the next turn. Every mutation goes
// through the mutex, so concurrent encodes never lose each other's results.
type Pending struct {
	mu       sync.Mutex
	items    []Attachment
	previews *Previews
}

func NewPending(previews *Previews) *Pending {
	return &Pending{previews: previews}
}

func (p *Pending) Add(atts ...Attachment) {
	if len(atts) == 0 {
		return
	}
	p.mu.Lock()
	p.items = append(p.items, atts...)
	p.mu.Unlock()
}

// Remove drops the attachment at index i and releases its preview.
func (p *Pending) Remove(i int) (Attachment, bool) {
	p.mu.Lock()
	if i < 0 || i >= len(p.items) {
		p.mu.Unlock()
		return Attachment{}, false
	}
	att := p.items[i]
	p.items = append(p.items[:i:i], p.items[i+1:]...)
	p.mu.Unlock()

	if p.previews != nil {
		p.previews.Release(att.Preview)
	}
	return att, true
}

func (p *Pending) List() []Attachment {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Attachment, len(p.items))
	copy(out, p.items)
	return out
}

// Take empties the list and hands its contents over. Previews stay alive:
// the attachments now belong to whoever took them.
func (p *Pending) Take() []Attachment {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := p.items
	p.items = nil
	return out
}

// Clear empties the list and releases every preview.
func (p *Pending) Clear() {
	for _, att := range p.Take() {
		if p.previews != nil {
			p.previews.Release(att.Preview)
		}
	}
}

func (p *Pending) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.items)
}
