package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/amanraj3103/whatsapp-lead-assistant-bot/internal/leads/domain"
)

// Memory is the in-process lead repository. Reads return deep copies so
// callers never share conversation slices or field maps with the store.
type Memory struct {
	mu    sync.RWMutex
	leads map[string]*domain.Lead
}

// NewMemory creates an empty in-memory repository.
func NewMemory() *Memory {
	return &Memory{leads: make(map[string]*domain.Lead)}
}

var _ Repository = (*Memory)(nil)

func (m *Memory) GetByContact(_ context.Context, contactKey string) (*domain.Lead, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	lead, ok := m.leads[contactKey]
	if !ok {
		return nil, ErrNotFound
	}
	return copyLead(lead), nil
}

func (m *Memory) Save(_ context.Context, lead *domain.Lead) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leads[lead.ContactKey] = copyLead(lead)
	return nil
}

func (m *Memory) List(_ context.Context) ([]*domain.Lead, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.Lead, 0, len(m.leads))
	for _, lead := range m.leads {
		out = append(out, copyLead(lead))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (m *Memory) CreatedSince(_ context.Context, cutoff time.Time) ([]*domain.Lead, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Lead
	for _, lead := range m.leads {
		if !lead.CreatedAt.Before(cutoff) {
			out = append(out, copyLead(lead))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func copyLead(lead *domain.Lead) *domain.Lead {
	cp := *lead
	cp.Fields = make(map[string]string, len(lead.Fields))
	for k, v := range lead.Fields {
		cp.Fields[k] = v
	}
	cp.Conversation = make([]domain.Message, len(lead.Conversation))
	copy(cp.Conversation, lead.Conversation)
	if lead.BookedAt != nil {
		t := *lead.BookedAt
		cp.BookedAt = &t
	}
	return &cp
}
