package lobby

import (
    "context"
    "database/sql"
    "errors"
    "fmt"
    "strings"
    "time"

    "github.com/lib/pq"
)

const lobbySchema = `CREATE TABLE IF NOT EXISTS lobby_hosts (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL,
    addr       TEXT NOT NULL UNIQUE,
    created_at TIMESTAMPTZ NOT NULL,
    expires_at TIMESTAMPTZ NOT NULL
)`

type PostgresStore struct {
    db  *sql.DB
    ttl time.Duration
}

func NewPostgresStore(databaseURL string, ttl time.Duration) (*PostgresStore, error) {
    if strings.TrimSpace(databaseURL) == "" {
        return nil, fmt.Errorf("DATABASE_URL is required")
    }
    db, err := sql.Open("postgres", databaseURL)
    if err != nil {
        return nil, err
    }
    db.SetMaxOpenConns(8)
    db.SetMaxIdleConns(4)
    db.SetConnMaxLifetime(30 * time.Minute)
    ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
    defer cancel()
    if err := db.PingContext(ctx); err != nil {
        _ = db.Close()
        return nil, err
    }
    return &PostgresStore{db: db, ttl: ttl}, nil
}

// EnsureSchema creates the lobby_hosts table when missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
    _, err := s.db.ExecContext(ctx, lobbySchema)
    return err
}

func (s *PostgresStore) Add(ctx context.Context, h *Host) error {
    if _, err := s.db.ExecContext(ctx, `DELETE FROM lobby_hosts WHERE expires_at <= now()`); err != nil {
        return err
    }
    res, err := s.db.ExecContext(ctx,
        `INSERT INTO lobby_hosts (id, name, addr, created_at, expires_at)
         VALUES ($1,$2,$3,$4,$5) ON CONFLICT (addr) DO NOTHING`,
        h.ID, h.Name, h.Addr, h.CreatedAt, h.CreatedAt.Add(s.ttl),
    )
    if err != nil {
        var pqErr *pq.Error
        if errors.As(err, &pqErr) && pqErr.Code == "23505" {
            return ErrAddrTaken
        }
        return err
    }
    n, err := res.RowsAffected()
    if err != nil { return err }
    if n == 0 { return ErrAddrTaken }
    return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*Host, error) {
    rows, err := s.db.QueryContext(ctx,
        `SELECT id, name, addr, created_at FROM lobby_hosts
         WHERE expires_at > now() ORDER BY created_at, id`)
    if err != nil { return nil, err }
    defer rows.Close()
    var out []*Host
    for rows.Next() {
        var h Host
        if err := rows.Scan(&h.ID, &h.Name, &h.Addr, &h.CreatedAt); err != nil { return nil, err }
        out = append(out, &h)
    }
    return out, rows.Err()
}

func (s *PostgresStore) Remove(ctx context.Context, id string) error {
    res, err := s.db.ExecContext(ctx, `DELETE FROM lobby_hosts WHERE id = $1 AND expires_at > now()`, id)
    if err != nil { return err }
    n, err := res.RowsAffected()
    if err != nil { return err }
    if n == 0 { return ErrHostGone }
    return nil
}

func (s *PostgresStore) Close() error {
    if s == nil || s.db == nil { return nil }
    return s.db.Close()
}
