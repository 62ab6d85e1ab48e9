package main

import (
    "context"
    "flag"
    "fmt"
    "os"
    "os/signal"
    "strings"
    "syscall"

    appcfg "github.com/park285/Cheese-Battleship/internal/config"
    "github.com/park285/Cheese-Battleship/internal/console"
    "github.com/park285/Cheese-Battleship/internal/msgcat"
    "github.com/park285/Cheese-Battleship/internal/obslog"
    "github.com/park285/Cheese-Battleship/internal/session"
    "github.com/park285/Cheese-Battleship/internal/transport"
    "go.uber.org/zap"
)

func main() {
    os.Exit(run())
}

func run() int {
    name := flag.String("name", "", "player name (overrides PLAYER_NAME)")
    host := flag.Bool("host", false, "wait for an opponent directly, without the lobby")
    join := flag.String("join", "", "connect directly to a waiting host at addr")
    flag.Parse()

    cfg, err := appcfg.Load()
    if err != nil {
        fmt.Fprintf(os.Stderr, "config error: %v\n", err)
        return 2
    }
    if v := strings.TrimSpace(*name); v != "" {
        cfg.PlayerName = v
    }
    if *host && strings.TrimSpace(*join) != "" {
        fmt.Fprintln(os.Stderr, "-host and -join are mutually exclusive")
        return 2
    }

    if err := obslog.InitFromEnv(obslog.Defaults{App: "battleship", File: "logs/battleship.log"}); err != nil {
        fmt.Fprintf(os.Stderr, "logger init error: %v\n", err)
        return 1
    }
    defer obslog.Sync()

    texts, err := msgcat.New(cfg.MessagesDir)
    if err != nil {
        fmt.Fprintf(os.Stderr, "messages error: %v\n", err)
        return 1
    }

    opts := session.Options{}
    if *host || strings.TrimSpace(*join) != "" {
        if cfg.PlayerName == "" {
            fmt.Fprintln(os.Stderr, "direct play needs -name or PLAYER_NAME")
            return 2
        }
        opts.Direct = &session.DirectP2P{
            PlayerName: cfg.PlayerName,
            AsHost:     *host,
            HostAddr:   strings.TrimSpace(*join),
        }
    }

    conn := transport.New(transport.Options{
        ListenAddr:        cfg.PeerListenAddr,
        AdvertiseAddr:     cfg.PeerAdvertiseAddr,
        PingInterval:      cfg.PeerPingInterval,
        LobbyPollInterval: cfg.LobbyPollInterval,
    })
    ui := console.New(console.Options{
        In:           os.Stdin,
        Out:          os.Stdout,
        Texts:        texts,
        PlayerName:   cfg.PlayerName,
        DefaultLobby: cfg.LobbyAddr,
    })

    ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
    defer stop()

    s := session.New(conn, ui, texts, opts)
    outcome, err := s.Run(ctx)
    if err != nil {
        obslog.L().Error("session_failed", zap.String("session_id", s.ID()), zap.Error(err))
        return 1
    }
    obslog.L().Info("exit", zap.String("session_id", s.ID()), zap.String("outcome", outcome.String()))
    return 0
}
