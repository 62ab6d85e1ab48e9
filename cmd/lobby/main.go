package main

import (
    "context"
    "errors"
    "fmt"
    "os"
    "os/signal"
    "syscall"
    "time"

    appcfg "github.com/park285/Cheese-Battleship/internal/config"
    "github.com/park285/Cheese-Battleship/internal/lobby"
    "github.com/park285/Cheese-Battleship/internal/obslog"
    "go.uber.org/zap"
)

func main() {
    cfg, err := appcfg.Load()
    if err != nil {
        fmt.Fprintf(os.Stderr, "config error: %v\n", err)
        os.Exit(2)
    }
    if err := cfg.ValidateLobby(); err != nil {
        fmt.Fprintf(os.Stderr, "config error: %v\n", err)
        os.Exit(2)
    }
    if err := obslog.InitFromEnv(obslog.Defaults{App: "lobby", Console: true, File: "logs/lobby.log"}); err != nil {
        fmt.Fprintf(os.Stderr, "logger init error: %v\n", err)
        os.Exit(1)
    }
    defer obslog.Sync()

    store, err := openStore(cfg)
    if err != nil {
        obslog.L().Error("lobby_store_init_error", zap.String("store", cfg.LobbyStore), zap.Error(err))
        os.Exit(1)
    }
    defer store.Close()

    srv := lobby.NewServer(lobby.NewManager(store))
    errCh := make(chan error, 1)
    go func() { errCh <- srv.ListenAndServe(cfg.LobbyListenAddr) }()
    obslog.L().Info("lobby_listening", zap.String("addr", cfg.LobbyListenAddr), zap.String("store", cfg.LobbyStore), zap.Duration("host_ttl", cfg.LobbyHostTTL))

    sigCh := make(chan os.Signal, 1)
    signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
    select {
    case sig := <-sigCh:
        obslog.L().Info("lobby_shutdown", zap.String("signal", sig.String()))
    case err := <-errCh:
        obslog.L().Error("lobby_serve_error", zap.Error(err))
    }

    ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
    defer cancel()
    if err := srv.Shutdown(ctx); err != nil {
        obslog.L().Warn("lobby_shutdown_error", zap.Error(err))
    }
}

func openStore(cfg *appcfg.AppConfig) (lobby.Store, error) {
    ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
    defer cancel()
    switch cfg.LobbyStore {
    case appcfg.StoreMemory:
        return lobby.NewMemoryStore(cfg.LobbyHostTTL), nil
    case appcfg.StoreRedis:
        return lobby.NewRedisStoreFromURL(ctx, cfg.RedisURL, cfg.LobbyHostTTL)
    case appcfg.StorePostgres:
        s, err := lobby.NewPostgresStore(cfg.DatabaseURL, cfg.LobbyHostTTL)
        if err != nil { return nil, err }
        if err := s.EnsureSchema(ctx); err != nil {
            _ = s.Close()
            return nil, err
        }
        return s, nil
    }
    return nil, errors.New("unknown LOBBY_STORE " + cfg.LobbyStore)
}
