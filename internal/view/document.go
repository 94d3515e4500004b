package view

import (
	"html/template"
	"sync"
)

// Target receives rendered fragments. Each fragment replaces the whole
// content of the region with the given id.
type Target interface {
	Patch(id string, fragment template.HTML)
}

// Patch is a single region update.
type Patch struct {
	ID   string        `json:"id"`
	HTML template.HTML `json:"html"`
}

// Document is an in-memory Target holding the current content of every
// region. Subscribers receive each patch as it is applied. Concurrent
// patches to the same region are last-write-wins.
type Document struct {
	regions map[string]template.HTML
	subs    map[chan Patch]struct{}
	mutex   sync.RWMutex
}

func NewDocument() *Document {
	return &Document{
		regions: make(map[string]template.HTML),
		subs:    make(map[chan Patch]struct{}),
	}
}

func (d *Document) Patch(id string, fragment template.HTML) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.regions[id] = fragment
	p := Patch{ID: id, HTML: fragment}
	for ch := range d.subs {
		select {
		case ch <- p:
		default:
			// Slow subscriber, it will catch up from the next snapshot.
		}
	}
}

// Region returns the current content of id, empty if never rendered.
func (d *Document) Region(id string) template.HTML {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	return d.regions[id]
}

// Snapshot copies all regions.
func (d *Document) Snapshot() map[string]template.HTML {
	d.mutex.RLock()
	defer d.mutex.RUnlock()

	result := make(map[string]template.HTML, len(d.regions))
	for k, v := range d.regions {
		result[k] = v
	}
	return result
}

// Patches returns the snapshot as a patch list, suitable for a client that
// just connected.
func (d *Document) Patches() []Patch {
	d.mutex.RLock()
	defer d.mutex.RUnlock()

	patches := make([]Patch, 0, len(d.regions))
	for id, html := range d.regions {
		patches = append(patches, Patch{ID: id, HTML: html})
	}
	return patches
}

// Subscribe registers for patches. The returned function unsubscribes and
// closes the channel.
func (d *Document) Subscribe(buffer int) (<-chan Patch, func()) {
	ch := make(chan Patch, buffer)

	d.mutex.Lock()
	d.subs[ch] = struct{}{}
	d.mutex.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			d.mutex.Lock()
			delete(d.subs, ch)
			d.mutex.Unlock()
			close(ch)
		})
	}
}
