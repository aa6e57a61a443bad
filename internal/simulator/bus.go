package simulator

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/your-username/appsync-flow-simulator/internal/models"
)

// bus fans simulator events out to rendering layers. Channel subscribers
// drop events rather than stall the pipeline; observers are called inline
// and see every event.
type bus struct {
	mu        sync.RWMutex
	nextID    int
	subs      map[int]chan models.Event
	observers []observer
}

type observer struct {
	id int
	fn func(models.Event)
}

func newBus() *bus {
	return &bus{subs: make(map[int]chan models.Event)}
}

func (b *bus) observe(fn func(models.Event)) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.observers = append(b.observers, observer{id: id, fn: fn})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, o := range b.observers {
			if o.id == id {
				b.observers = append(b.observers[:i:i], b.observers[i+1:]...)
				return
			}
		}
	}
}

func (b *bus) subscribe(buffer int) (<-chan models.Event, func()) {
	if buffer <= 0 {
		buffer = 256
	}
	ch := make(chan models.Event, buffer)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

func (b *bus) publish(e models.Event) {
	b.mu.RLock()
	observers := b.observers
	for id, ch := range b.subs {
		select {
		case ch <- e:
		default:
			log.Warn().Int("subscriber", id).Str("event", string(e.Type)).Msg("Event subscriber buffer full")
		}
	}
	b.mu.RUnlock()

	for _, o := range observers {
		o.fn(e)
	}
}
