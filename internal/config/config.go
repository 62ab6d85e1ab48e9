package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

type AppConfig struct {
	PlayerName string

	LobbyAddr         string
	PeerListenAddr    string
	PeerAdvertiseAddr string

	PeerPingInterval  time.Duration
	LobbyPollInterval time.Duration

	MessagesDir string

	LobbyListenAddr string
	LobbyStore      string
	LobbyHostTTL    time.Duration

	RedisURL    string
	DatabaseURL string
}

const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

// Load reads every BATTLESHIP setting from the environment. Both binaries share
// it; lobby-only requirements are checked by ValidateLobby.
func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		LobbyAddr:         "127.0.0.1:7000",
		PeerListenAddr:    ":7001",
		PeerPingInterval:  15 * time.Second,
		LobbyPollInterval: 2 * time.Second,
		LobbyListenAddr:   ":7000",
		LobbyStore:        StoreMemory,
		LobbyHostTTL:      10 * time.Minute,
	}

	cfg.PlayerName = strings.TrimSpace(os.Getenv("PLAYER_NAME"))
	if v := strings.TrimSpace(os.Getenv("LOBBY_ADDR")); v != "" {
		cfg.LobbyAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("PEER_LISTEN_ADDR")); v != "" {
		cfg.PeerListenAddr = v
	}
	cfg.PeerAdvertiseAddr = strings.TrimSpace(os.Getenv("PEER_ADVERTISE_ADDR"))
	if n, ok := positiveInt("PEER_PING_INTERVAL_SEC"); ok {
		cfg.PeerPingInterval = time.Duration(n) * time.Second
	}
	if n, ok := positiveInt("LOBBY_POLL_INTERVAL_SEC"); ok {
		cfg.LobbyPollInterval = time.Duration(n) * time.Second
	}
	cfg.MessagesDir = strings.TrimSpace(os.Getenv("MESSAGES_DIR"))

	// Lobby server
	if v := strings.TrimSpace(os.Getenv("LOBBY_LISTEN_ADDR")); v != "" {
		cfg.LobbyListenAddr = v
	}
	if v := strings.ToLower(strings.TrimSpace(os.Getenv("LOBBY_STORE"))); v != "" {
		cfg.LobbyStore = v
	}
	if n, ok := positiveInt("LOBBY_HOST_TTL_SEC"); ok {
		cfg.LobbyHostTTL = time.Duration(n) * time.Second
	}
	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))

	return cfg, nil
}

// ValidateLobby checks the settings the lobby server cannot start without.
func (c *AppConfig) ValidateLobby() error {
	switch c.LobbyStore {
	case StoreMemory:
	case StoreRedis:
		if c.RedisURL == "" {
			return errors.New("REDIS_URL is required when LOBBY_STORE=redis")
		}
	case StorePostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required when LOBBY_STORE=postgres")
		}
	default:
		return errors.New("LOBBY_STORE must be one of memory, redis, postgres")
	}
	if c.LobbyListenAddr == "" {
		return errors.New("LOBBY_LISTEN_ADDR is required")
	}
	return nil
}

func positiveInt(key string) (int, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
