package lobby

import (
    "context"
    "encoding/json"
    "errors"
    "strings"
    "time"

    "github.com/redis/go-redis/v9"
)

type RedisStore struct {
    rdb *redis.Client
    ttl time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
    return &RedisStore{rdb: rdb, ttl: ttl}
}

// NewRedisStoreFromURL parses a redis:// URL and checks the server answers.
func NewRedisStoreFromURL(ctx context.Context, url string, ttl time.Duration) (*RedisStore, error) {
    opt, err := redis.ParseURL(strings.TrimSpace(url))
    if err != nil { return nil, err }
    rdb := redis.NewClient(opt)
    if err := rdb.Ping(ctx).Err(); err != nil {
        _ = rdb.Close()
        return nil, err
    }
    return NewRedisStore(rdb, ttl), nil
}

func (s *RedisStore) keyHost(id string) string     { return "lobby:host:" + strings.TrimSpace(id) }
func (s *RedisStore) keyAddr(addr string) string   { return "lobby:addr:" + strings.TrimSpace(addr) }
func (s *RedisStore) keyIndex() string             { return "lobby:hosts" }

func (s *RedisStore) Add(ctx context.Context, h *Host) error {
    raw, err := json.Marshal(h)
    if err != nil { return err }
    // the addr key is the uniqueness claim; it expires together with the host
    ok, err := s.rdb.SetNX(ctx, s.keyAddr(h.Addr), h.ID, s.ttl).Result()
    if err != nil { return err }
    if !ok { return ErrAddrTaken }
    pipe := s.rdb.TxPipeline()
    pipe.Set(ctx, s.keyHost(h.ID), raw, s.ttl)
    pipe.SAdd(ctx, s.keyIndex(), h.ID)
    pipe.Expire(ctx, s.keyIndex(), s.ttl)
    _, err = pipe.Exec(ctx)
    return err
}

func (s *RedisStore) load(ctx context.Context, id string) (*Host, error) {
    raw, err := s.rdb.Get(ctx, s.keyHost(id)).Bytes()
    if err == redis.Nil { return nil, nil }
    if err != nil { return nil, err }
    var h Host
    if err := json.Unmarshal(raw, &h); err != nil { return nil, err }
    return &h, nil
}

func (s *RedisStore) List(ctx context.Context) ([]*Host, error) {
    ids, err := s.rdb.SMembers(ctx, s.keyIndex()).Result()
    if err != nil { return nil, err }
    out := make([]*Host, 0, len(ids))
    for _, id := range ids {
        h, err := s.load(ctx, id)
        if err != nil { return nil, err }
        if h == nil {
            // meta expired; drop the stale index entry
            _ = s.rdb.SRem(ctx, s.keyIndex(), id).Err()
            continue
        }
        out = append(out, h)
    }
    sortHosts(out)
    return out, nil
}

func (s *RedisStore) Remove(ctx context.Context, id string) error {
    hostKey := s.keyHost(id)
    err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
        raw, err := tx.Get(ctx, hostKey).Bytes()
        if err == redis.Nil { return ErrHostGone }
        if err != nil { return err }
        var h Host
        if err := json.Unmarshal(raw, &h); err != nil { return err }
        pipe := tx.TxPipeline()
        pipe.Del(ctx, hostKey)
        pipe.Del(ctx, s.keyAddr(h.Addr))
        pipe.SRem(ctx, s.keyIndex(), id)
        _, pErr := pipe.Exec(ctx)
        return pErr
    }, hostKey)
    if errors.Is(err, ErrHostGone) {
        _ = s.rdb.SRem(ctx, s.keyIndex(), id).Err()
    }
    return err
}

func (s *RedisStore) Close() error { return s.rdb.Close() }
