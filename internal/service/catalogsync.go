package service

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/msomdec/travelupa/internal/domain"
)

// CatalogSync keeps subscribers current with the full set of destination records.
type CatalogSync struct {
	store domain.CatalogStore
}

// NewCatalogSync creates a new CatalogSync.
func NewCatalogSync(store domain.CatalogStore) *CatalogSync {
	return &CatalogSync{store: store}
}

// Subscribe registers onSnapshot for every change of the catalog, starting with
// its current contents. Deliveries to one subscription never overlap and arrive
// in the order the store produced them. Cancel must be called to release the listener.
func (c *CatalogSync) Subscribe(onSnapshot func([]domain.DestinationRecord)) (*Subscription, error) {
	if onSnapshot == nil {
		return nil, fmt.Errorf("%w: snapshot callback is required", domain.ErrInvalidInput)
	}

	sub := &Subscription{
		onSnapshot: onSnapshot,
		wake:       make(chan struct{}, 1),
		done:       make(chan struct{}),
		stopped:    make(chan struct{}),
	}
	go sub.run()

	reg, err := c.store.Listen(sub.receive)
	if err != nil {
		sub.Cancel()
		return nil, fmt.Errorf("listen catalog: %w", err)
	}

	sub.mu.Lock()
	sub.reg = reg
	closed := sub.closed
	sub.mu.Unlock()
	if closed {
		reg.Remove()
	}
	return sub, nil
}

// Subscription is a live catalog subscription.
type Subscription struct {
	onSnapshot func([]domain.DestinationRecord)

	mu     sync.Mutex
	reg    domain.ListenerRegistration
	queue  [][]domain.DestinationRecord
	closed bool

	once    sync.Once
	wake    chan struct{}
	done    chan struct{}
	stopped chan struct{}
}

// Cancel stops further deliveries and releases the store listener. A delivery
// already in progress runs to completion. Calling Cancel again does nothing.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.queue = nil
		reg := s.reg
		s.mu.Unlock()

		if reg != nil {
			reg.Remove()
		}
		close(s.done)
	})
}

// Done is closed once the delivery goroutine has exited after Cancel.
func (s *Subscription) Done() <-chan struct{} {
	return s.stopped
}

// receive runs on the store's notifying goroutine and only enqueues.
func (s *Subscription) receive(docs []domain.CatalogDocument, err error) {
	if err != nil {
		slog.Warn("catalog listen error, snapshot skipped", "error", err)
		return
	}

	records := make([]domain.DestinationRecord, 0, len(docs))
	for _, doc := range docs {
		rec, err := domain.DecodeDestination(doc)
		if err != nil {
			slog.Warn("skipping undecodable catalog document", "id", doc.ID, "error", err)
			continue
		}
		records = append(records, rec)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, records)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Subscription) run() {
	defer close(s.stopped)
	for {
		select {
		case <-s.done:
			return
		case <-s.wake:
		}
		for {
			next, ok := s.next()
			if !ok {
				break
			}
			s.onSnapshot(next)
		}
	}
}

func (s *Subscription) next() ([]domain.DestinationRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || len(s.queue) == 0 {
		return nil, false
	}
	next := s.queue[0]
	s.queue[0] = nil
	s.queue = s.queue[1:]
	return next, true
}
