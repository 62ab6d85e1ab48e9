package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/park285/Cheese-Battleship/internal/fleet"
	"github.com/park285/Cheese-Battleship/internal/lobby"
	"github.com/park285/Cheese-Battleship/internal/obslog"
	"github.com/park285/Cheese-Battleship/internal/peerlink"
	"github.com/park285/Cheese-Battleship/internal/session"
	"go.uber.org/zap"
)

const unregisterTimeout = 2 * time.Second

// ErrProtocol marks a frame that does not fit the current exchange.
var ErrProtocol = errors.New("unexpected peer message")

var errNotConnected = errors.New("no peer connection")

type Options struct {
	ListenAddr        string
	AdvertiseAddr     string
	PingInterval      time.Duration
	LobbyPollInterval time.Duration
	LobbyOptions      []lobby.Option
}

// Connection implements session.Transport over a lobby client and one
// websocket peer link.
type Connection struct {
	opts Options

	lobby    *lobby.Client
	listener *peerlink.Listener
	hostID   string

	mu   sync.Mutex
	link *peerlink.Link

	closeOnce sync.Once
}

var _ session.Transport = (*Connection)(nil)

func New(opts Options) *Connection {
	if opts.LobbyPollInterval <= 0 {
		opts.LobbyPollInterval = 2 * time.Second
	}
	return &Connection{opts: opts}
}

func (c *Connection) ConnectToServer(ctx context.Context, addr string) bool {
	client := lobby.NewClient(addr, c.opts.LobbyOptions...)
	if err := client.Health(ctx); err != nil {
		obslog.L().Warn("lobby_health_error", zap.String("addr", addr), zap.Error(err))
		return false
	}
	c.lobby = client
	return true
}

func (c *Connection) AvailableHosts(ctx context.Context) ([]session.HostInfo, error) {
	if c.lobby == nil {
		return nil, fmt.Errorf("%w: not connected to a lobby", session.ErrRemoteShutdown)
	}
	hosts, err := c.lobby.ListHosts(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", session.ErrRemoteShutdown, err)
	}
	out := make([]session.HostInfo, 0, len(hosts))
	for _, h := range hosts {
		out = append(out, session.HostInfo{ID: h.ID, Name: h.Name, Addr: h.Addr})
	}
	return out, nil
}

// RegisterAsHost opens the peer listener and advertises it in the lobby.
func (c *Connection) RegisterAsHost(ctx context.Context, name string) bool {
	if c.lobby == nil {
		return false
	}
	if err := c.listen(); err != nil {
		return false
	}
	addr := c.advertiseAddr()
	h, err := c.lobby.Register(ctx, name, addr)
	if err != nil {
		obslog.L().Warn("host_register_error", zap.String("addr", addr), zap.Error(err))
		c.stopListening()
		return false
	}
	c.hostID = h.ID
	obslog.L().Info("host_registered", zap.String("host_id", h.ID), zap.String("addr", addr))
	return true
}

type acceptResult struct {
	link *peerlink.Link
	err  error
}

// WaitForConnection blocks until a peer joins. In lobby mode the lobby is
// polled meanwhile and a failed poll ends the wait with ErrRemoteShutdown.
func (c *Connection) WaitForConnection(ctx context.Context) (bool, error) {
	if c.listener == nil {
		if err := c.listen(); err != nil {
			return false, nil
		}
	}
	acceptCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	ln := c.listener
	results := make(chan acceptResult, 1)
	go func() {
		link, err := ln.Accept(acceptCtx)
		results <- acceptResult{link: link, err: err}
	}()

	var poll <-chan time.Time
	if c.lobby != nil {
		t := time.NewTicker(c.opts.LobbyPollInterval)
		defer t.Stop()
		poll = t.C
	}

	for {
		select {
		case r := <-results:
			if r.err != nil {
				return false, r.err
			}
			c.setLink(r.link)
			c.unregister()
			c.stopListening()
			obslog.L().Info("peer_connected", zap.String("role", "host"))
			return true, nil
		case <-poll:
			if err := c.lobby.Health(ctx); err != nil {
				if ctx.Err() != nil {
					continue
				}
				obslog.L().Warn("lobby_lost", zap.Error(err))
				cancel()
				if r := <-results; r.link != nil {
					_ = r.link.Close()
				}
				return false, fmt.Errorf("%w: %v", session.ErrRemoteShutdown, err)
			}
		}
	}
}

func (c *Connection) ConnectToHost(ctx context.Context, addr string) bool {
	link, err := peerlink.Dial(ctx, addr, c.opts.PingInterval, stateLogger("guest"))
	if err != nil {
		obslog.L().Warn("peer_dial_error", zap.String("addr", addr), zap.Error(err))
		return false
	}
	c.setLink(link)
	obslog.L().Info("peer_connected", zap.String("role", "guest"), zap.String("addr", addr))
	return true
}

func (c *Connection) ExchangeNames(ctx context.Context, name string) (string, error) {
	if err := c.send(ctx, peerlink.Envelope{Kind: peerlink.KindName, Name: name}); err != nil {
		return "", err
	}
	env, err := c.expect(ctx, peerlink.KindName)
	if err != nil {
		return "", err
	}
	return env.Name, nil
}

func (c *Connection) SendAcknowledgement(ctx context.Context) error {
	return c.send(ctx, peerlink.Envelope{Kind: peerlink.KindAck})
}

func (c *Connection) HasMessage() bool {
	link := c.current()
	return link != nil && link.Pending()
}

func (c *Connection) WaitForAcknowledgement(ctx context.Context) error {
	_, err := c.expect(ctx, peerlink.KindAck)
	return err
}

func (c *Connection) DeliverShot(ctx context.Context, target fleet.Coord) (fleet.ShotResult, error) {
	if err := c.send(ctx, peerlink.Envelope{Kind: peerlink.KindShot, Shot: &target}); err != nil {
		return fleet.ShotResult{}, err
	}
	env, err := c.expect(ctx, peerlink.KindShotResult)
	if err != nil {
		return fleet.ShotResult{}, err
	}
	if env.Result == nil {
		return fleet.ShotResult{}, fmt.Errorf("%w: shot_result without result", ErrProtocol)
	}
	return *env.Result, nil
}

func (c *Connection) ReceiveShot(ctx context.Context) (fleet.Coord, error) {
	env, err := c.expect(ctx, peerlink.KindShot)
	if err != nil {
		return fleet.Coord{}, err
	}
	if env.Shot == nil || !env.Shot.InBounds() {
		return fleet.Coord{}, fmt.Errorf("%w: bad shot %+v", ErrProtocol, env.Shot)
	}
	return *env.Shot, nil
}

func (c *Connection) InformShotResult(ctx context.Context, res fleet.ShotResult) error {
	return c.send(ctx, peerlink.Envelope{Kind: peerlink.KindShotResult, Result: &res})
}

func (c *Connection) SendIntactShips(ctx context.Context, f *fleet.Fleet) error {
	return c.send(ctx, peerlink.Envelope{Kind: peerlink.KindIntactShips, Ships: f.IntactShips()})
}

func (c *Connection) EnemyIntactShips(ctx context.Context) ([][]fleet.Coord, error) {
	env, err := c.expect(ctx, peerlink.KindIntactShips)
	if err != nil {
		return nil, err
	}
	return env.Ships, nil
}

func (c *Connection) Established() bool { return c.current() != nil }

func (c *Connection) InformExit(ctx context.Context) error {
	if c.current() == nil {
		return nil
	}
	return c.send(ctx, peerlink.Envelope{Kind: peerlink.KindExit})
}

// Close withdraws any lobby advertisement and drops the peer link.
func (c *Connection) Close() error {
	c.closeOnce.Do(func() {
		c.unregister()
		c.stopListening()
		if link := c.current(); link != nil {
			_ = link.Close()
		}
	})
	return nil
}

func (c *Connection) listen() error {
	if c.listener != nil {
		return nil
	}
	ln, err := peerlink.Listen(c.opts.ListenAddr, c.opts.PingInterval, stateLogger("host"))
	if err != nil {
		obslog.L().Warn("peer_listen_error", zap.String("addr", c.opts.ListenAddr), zap.Error(err))
		return err
	}
	c.listener = ln
	obslog.L().Info("peer_listening", zap.String("addr", ln.Addr()))
	return nil
}

func (c *Connection) stopListening() {
	if c.listener == nil {
		return
	}
	_ = c.listener.Close()
	c.listener = nil
}

func (c *Connection) unregister() {
	if c.lobby == nil || c.hostID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), unregisterTimeout)
	defer cancel()
	if err := c.lobby.Unregister(ctx, c.hostID); err != nil && !errors.Is(err, lobby.ErrHostGone) {
		obslog.L().Warn("host_unregister_error", zap.String("host_id", c.hostID), zap.Error(err))
	}
	c.hostID = ""
}

func (c *Connection) advertiseAddr() string {
	if a := strings.TrimSpace(c.opts.AdvertiseAddr); a != "" {
		return a
	}
	bound := c.listener.Addr()
	host, port, err := net.SplitHostPort(bound)
	if err != nil {
		return bound
	}
	if ip := net.ParseIP(host); ip != nil && !ip.IsUnspecified() {
		return bound
	}
	return net.JoinHostPort(outboundIP(), port)
}

func (c *Connection) setLink(l *peerlink.Link) {
	c.mu.Lock()
	c.link = l
	c.mu.Unlock()
}

func (c *Connection) current() *peerlink.Link {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.link
}

func (c *Connection) send(ctx context.Context, env peerlink.Envelope) error {
	link := c.current()
	if link == nil {
		return errNotConnected
	}
	return peerError(link.Send(ctx, env))
}

// expect reads the next frame and requires it to be of kind k. An exit frame
// or a lost link means the opponent left.
func (c *Connection) expect(ctx context.Context, k peerlink.Kind) (peerlink.Envelope, error) {
	link := c.current()
	if link == nil {
		return peerlink.Envelope{}, errNotConnected
	}
	env, err := link.Receive(ctx)
	if err != nil {
		return peerlink.Envelope{}, peerError(err)
	}
	switch env.Kind {
	case k:
		return env, nil
	case peerlink.KindExit:
		obslog.L().Info("peer_exit_received")
		return peerlink.Envelope{}, session.ErrOpponentLeft
	default:
		return peerlink.Envelope{}, fmt.Errorf("%w: got %q, want %q", ErrProtocol, env.Kind, k)
	}
}

func peerError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, peerlink.ErrPeerGone) || errors.Is(err, peerlink.ErrClosed) {
		return fmt.Errorf("%w: %v", session.ErrOpponentLeft, err)
	}
	return err
}

func stateLogger(role string) peerlink.StateCallback {
	return func(s peerlink.State) {
		obslog.L().Info("peer_link_state", zap.String("role", role), zap.String("state", string(s)))
	}
}

// outboundIP is the local address used for outgoing traffic; no packet is sent.
func outboundIP() string {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "127.0.0.1"
	}
	defer conn.Close()
	if a, ok := conn.LocalAddr().(*net.UDPAddr); ok {
		return a.IP.String()
	}
	return "127.0.0.1"
}
