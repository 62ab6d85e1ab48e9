package lobby

import (
    "context"
    "strings"
    "time"

    "github.com/google/uuid"
    "github.com/park285/Cheese-Battleship/internal/obslog"
    "go.uber.org/zap"
)

// Manager is the lobby's host directory on top of a Store.
type Manager struct {
    store Store
    now   func() time.Time
}

func NewManager(store Store) *Manager {
    return &Manager{store: store, now: time.Now}
}

// Register advertises a waiting host. Name and addr are required and an addr may
// be advertised only once at a time.
func (m *Manager) Register(ctx context.Context, name, addr string) (*Host, error) {
    name, addr = strings.TrimSpace(name), strings.TrimSpace(addr)
    if name == "" || addr == "" { return nil, ErrInvalidArgs }
    h := &Host{ID: uuid.NewString(), Name: name, Addr: addr, CreatedAt: m.now().UTC()}
    if err := m.store.Add(ctx, h); err != nil {
        obslog.L().Warn("lobby_register_error", zap.String("name", name), zap.String("addr", addr), zap.Error(err))
        return nil, err
    }
    obslog.L().Info("lobby_register", zap.String("host_id", h.ID), zap.String("name", name), zap.String("addr", addr))
    return h, nil
}

func (m *Manager) List(ctx context.Context) ([]*Host, error) { return m.store.List(ctx) }

func (m *Manager) Unregister(ctx context.Context, id string) error {
    id = strings.TrimSpace(id)
    if id == "" { return ErrInvalidArgs }
    if err := m.store.Remove(ctx, id); err != nil { return err }
    obslog.L().Info("lobby_unregister", zap.String("host_id", id))
    return nil
}
