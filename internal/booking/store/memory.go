package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/amanraj3103/whatsapp-lead-assistant-bot/internal/booking/domain"
)

// MemoryStore keeps links and history in process memory. It is the default
// store and the one used throughout the test suite. All reads return copies
// so callers can mutate results without racing the store.
type MemoryStore struct {
	mu      sync.RWMutex
	links   map[string]*domain.Link
	history map[string][]domain.HistoryEntry
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		links:   make(map[string]*domain.Link),
		history: make(map[string][]domain.HistoryEntry),
	}
}

var _ LinkStore = (*MemoryStore)(nil)

func (s *MemoryStore) Put(_ context.Context, link *domain.Link) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *link
	s.links[link.BookingID] = &cp
	return nil
}

func (s *MemoryStore) Get(_ context.Context, bookingID string) (*domain.Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	link, ok := s.links[bookingID]
	if !ok {
		return nil, ErrLinkNotFound
	}
	cp := *link
	return &cp, nil
}

func (s *MemoryStore) Delete(_ context.Context, bookingID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.links, bookingID)
	return nil
}

func (s *MemoryStore) ActiveByContact(_ context.Context, contactKey string) (*domain.Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, link := range s.links {
		if link.ContactKey == contactKey && link.State == domain.StateActive {
			cp := *link
			return &cp, nil
		}
	}
	return nil, ErrLinkNotFound
}

func (s *MemoryStore) ByContact(_ context.Context, contactKey string) ([]*domain.Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.Link
	for _, link := range s.links {
		if link.ContactKey == contactKey {
			cp := *link
			out = append(out, &cp)
		}
	}
	sortLinksNewestFirst(out)
	return out, nil
}

func (s *MemoryStore) All(_ context.Context) ([]*domain.Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.Link, 0, len(s.links))
	for _, link := range s.links {
		cp := *link
		out = append(out, &cp)
	}
	sortLinksNewestFirst(out)
	return out, nil
}

func (s *MemoryStore) AppendHistory(_ context.Context, entry domain.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history[entry.ContactKey] = append(s.history[entry.ContactKey], entry)
	return nil
}

func (s *MemoryStore) HistoryByContact(_ context.Context, contactKey string) ([]domain.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := s.history[contactKey]
	out := make([]domain.HistoryEntry, len(entries))
	copy(out, entries)
	sort.Slice(out, func(i, j int) bool { return out[i].BookedAt.After(out[j].BookedAt) })
	return out, nil
}

func (s *MemoryStore) HasBooked(_ context.Context, contactKey string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.history[contactKey]) > 0, nil
}

func (s *MemoryStore) PruneHistory(_ context.Context, cutoff time.Time) (int, error) {
	if cutoff.IsZero() {
		return 0, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	pruned := 0
	for contactKey, entries := range s.history {
		kept := entries[:0]
		for _, entry := range entries {
			if entry.BookedAt.Before(cutoff) {
				pruned++
				continue
			}
			kept = append(kept, entry)
		}
		if len(kept) == 0 {
			delete(s.history, contactKey)
			continue
		}
		s.history[contactKey] = kept
	}
	return pruned, nil
}

func sortLinksNewestFirst(links []*domain.Link) {
	sort.Slice(links, func(i, j int) bool {
		return links[i].CreatedAt.After(links[j].CreatedAt)
	})
}
