package lobby

import (
    "context"
    "sort"
    "sync"
    "time"
)

// Store persists waiting hosts. Implementations expire entries after their TTL
// and enforce one entry per address.
type Store interface {
    Add(ctx context.Context, h *Host) error
    List(ctx context.Context) ([]*Host, error)
    Remove(ctx context.Context, id string) error
    Close() error
}

type memEntry struct {
    host    Host
    expires time.Time
}

// MemoryStore keeps hosts in process memory.
type MemoryStore struct {
    mu     sync.Mutex
    ttl    time.Duration
    now    func() time.Time
    byID   map[string]*memEntry
    byAddr map[string]string
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
    return &MemoryStore{
        ttl:    ttl,
        now:    time.Now,
        byID:   make(map[string]*memEntry),
        byAddr: make(map[string]string),
    }
}

func (s *MemoryStore) Add(_ context.Context, h *Host) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    s.pruneLocked()
    if _, ok := s.byAddr[h.Addr]; ok { return ErrAddrTaken }
    s.byID[h.ID] = &memEntry{host: *h, expires: s.now().Add(s.ttl)}
    s.byAddr[h.Addr] = h.ID
    return nil
}

func (s *MemoryStore) List(_ context.Context) ([]*Host, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    s.pruneLocked()
    out := make([]*Host, 0, len(s.byID))
    for _, e := range s.byID {
        h := e.host
        out = append(out, &h)
    }
    sortHosts(out)
    return out, nil
}

func (s *MemoryStore) Remove(_ context.Context, id string) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    s.pruneLocked()
    e, ok := s.byID[id]
    if !ok { return ErrHostGone }
    delete(s.byID, id)
    delete(s.byAddr, e.host.Addr)
    return nil
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) pruneLocked() {
    now := s.now()
    for id, e := range s.byID {
        if now.After(e.expires) {
            delete(s.byID, id)
            delete(s.byAddr, e.host.Addr)
        }
    }
}

// oldest first, so a lobby listing is stable between polls
func sortHosts(hs []*Host) {
    sort.Slice(hs, func(i, j int) bool {
        if hs[i].CreatedAt.Equal(hs[j].CreatedAt) { return hs[i].ID < hs[j].ID }
        return hs[i].CreatedAt.Before(hs[j].CreatedAt)
    })
}
