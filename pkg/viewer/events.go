package viewer

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmytro-yemelianov/twin-sub001/pkg/camera"
)

// EventType names a viewer event.
type EventType string

const (
	EventPick             EventType = "pick"
	EventCameraViewChange EventType = "camera_view_changed"
	EventSceneLoaded      EventType = "scene_loaded"
	EventSelectionChanged EventType = "selection_changed"
)

// Event is delivered to subscribers after the state change it describes
// has been applied.
type Event struct {
	ID         string      `json:"id"`
	Type       EventType   `json:"type"`
	Time       time.Time   `json:"time"`
	EntityID   string      `json:"entityId,omitempty"`
	EntityType string      `json:"entityType,omitempty"`
	View       camera.View `json:"view,omitempty"`
	Generation uint64      `json:"generation,omitempty"`
	Devices    int         `json:"devices,omitempty"`
}

func newEvent(t EventType) Event {
	return Event{ID: uuid.NewString(), Type: t, Time: time.Now().UTC()}
}

// bus fans events out to subscribers. Handlers run on the publishing
// goroutine, outside the viewer lock, in subscription order.
type bus struct {
	mu     sync.Mutex
	next   uint64
	subs   map[uint64]func(Event)
	order  []uint64
	onSize func(delta int)
}

func (b *bus) subscribe(fn func(Event)) func() {
	b.mu.Lock()
	if b.subs == nil {
		b.subs = make(map[uint64]func(Event))
	}
	b.next++
	id := b.next
	b.subs[id] = fn
	b.order = append(b.order, id)
	b.mu.Unlock()
	if b.onSize != nil {
		b.onSize(1)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			for i, o := range b.order {
				if o == id {
					b.order = append(b.order[:i:i], b.order[i+1:]...)
					break
				}
			}
			b.mu.Unlock()
			if b.onSize != nil {
				b.onSize(-1)
			}
		})
	}
}

func (b *bus) publish(events []Event) {
	if len(events) == 0 {
		return
	}
	b.mu.Lock()
	handlers := make([]func(Event), 0, len(b.order))
	for _, id := range b.order {
		handlers = append(handlers, b.subs[id])
	}
	b.mu.Unlock()
	for _, e := range events {
		for _, h := range handlers {
			h(e)
		}
	}
}

func (b *bus) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
