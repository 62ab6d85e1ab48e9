package transport

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/park285/Cheese-Battleship/internal/fleet"
	"github.com/park285/Cheese-Battleship/internal/lobby"
	"github.com/park285/Cheese-Battleship/internal/session"
	"github.com/valyala/fasthttp/fasthttputil"
)

type testLobby struct {
	srv  *lobby.Server
	ln   *fasthttputil.InmemoryListener
	mgr  *lobby.Manager
	opts []lobby.Option
}

func newTestLobby(t *testing.T) *testLobby {
	t.Helper()
	mgr := lobby.NewManager(lobby.NewMemoryStore(time.Minute))
	tl := &testLobby{srv: lobby.NewServer(mgr), ln: fasthttputil.NewInmemoryListener(), mgr: mgr}
	go func() { _ = tl.srv.Serve(tl.ln) }()
	tl.opts = []lobby.Option{
		lobby.WithDialer(func(string) (net.Conn, error) { return tl.ln.Dial() }),
		lobby.WithRetry(1),
		lobby.WithTimeout(time.Second),
	}
	t.Cleanup(tl.stop)
	return tl
}

func (tl *testLobby) stop() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = tl.srv.Shutdown(ctx)
	_ = tl.ln.Close()
}

func newConn(t *testing.T, lobbyOpts []lobby.Option) *Connection {
	t.Helper()
	c := New(Options{
		ListenAddr:        "127.0.0.1:0",
		LobbyPollInterval: 20 * time.Millisecond,
		LobbyOptions:      lobbyOpts,
	})
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// directPair connects a waiting host and a joining guest without a lobby.
func directPair(t *testing.T) (host, guest *Connection) {
	t.Helper()
	host, guest = newConn(t, nil), newConn(t, nil)
	if err := host.listen(); err != nil { t.Fatalf("listen: %v", err) }
	addr := host.listener.Addr()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	waited := make(chan error, 1)
	go func() {
		ok, err := host.WaitForConnection(ctx)
		if err == nil && !ok {
			err = errors.New("wait reported failure")
		}
		waited <- err
	}()
	if !guest.ConnectToHost(ctx, addr) { t.Fatalf("ConnectToHost failed") }
	if err := <-waited; err != nil { t.Fatalf("WaitForConnection: %v", err) }
	if !host.Established() || !guest.Established() { t.Fatalf("both sides should be established") }
	return host, guest
}

func TestDirectBattleExchange(t *testing.T) {
	host, guest := directPair(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	names := make(chan string, 1)
	go func() {
		n, _ := host.ExchangeNames(ctx, "Hana")
		names <- n
	}()
	got, err := guest.ExchangeNames(ctx, "Gil")
	if err != nil { t.Fatalf("ExchangeNames: %v", err) }
	if got != "Hana" || <-names != "Gil" { t.Fatalf("names not exchanged") }

	if err := host.SendAcknowledgement(ctx); err != nil { t.Fatalf("ack: %v", err) }
	if err := guest.WaitForAcknowledgement(ctx); err != nil { t.Fatalf("WaitForAcknowledgement: %v", err) }

	target := fleet.Coord{Row: 0, Col: 0}
	own := fleet.New([][]fleet.Coord{{{Row: 0, Col: 0}}})
	go func() {
		c, err := host.ReceiveShot(ctx)
		if err != nil { return }
		_ = host.InformShotResult(ctx, own.Resolve(c))
	}()
	res, err := guest.DeliverShot(ctx, target)
	if err != nil { t.Fatalf("DeliverShot: %v", err) }
	if !res.Hit || !res.GameOver || len(res.DestroyedShip) != 1 {
		t.Fatalf("unexpected result %+v", res)
	}

	winner := fleet.New([][]fleet.Coord{{{Row: 5, Col: 5}, {Row: 5, Col: 6}}})
	if err := guest.SendIntactShips(ctx, winner); err != nil { t.Fatalf("SendIntactShips: %v", err) }
	ships, err := host.EnemyIntactShips(ctx)
	if err != nil { t.Fatalf("EnemyIntactShips: %v", err) }
	if len(ships) != 1 || len(ships[0]) != 2 { t.Fatalf("ships = %+v", ships) }
}

func TestExitNoticeMeansOpponentLeft(t *testing.T) {
	host, guest := directPair(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := guest.InformExit(ctx); err != nil { t.Fatalf("InformExit: %v", err) }
	if _, err := host.ReceiveShot(ctx); !errors.Is(err, session.ErrOpponentLeft) {
		t.Fatalf("expected ErrOpponentLeft, got %v", err)
	}
}

func TestDroppedLinkMeansOpponentLeft(t *testing.T) {
	host, guest := directPair(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_ = guest.Close()
	_ = guest.Close()
	if err := host.WaitForAcknowledgement(ctx); !errors.Is(err, session.ErrOpponentLeft) {
		t.Fatalf("expected ErrOpponentLeft, got %v", err)
	}
}

func TestUnexpectedKindIsProtocolError(t *testing.T) {
	host, guest := directPair(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := guest.SendAcknowledgement(ctx); err != nil { t.Fatalf("ack: %v", err) }
	if _, err := host.ReceiveShot(ctx); !errors.Is(err, ErrProtocol) {
		t.Fatalf("expected ErrProtocol, got %v", err)
	}
}

func TestLobbyHostJoinedAndWithdrawn(t *testing.T) {
	tl := newTestLobby(t)
	host, guest := newConn(t, tl.opts), newConn(t, tl.opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if !host.ConnectToServer(ctx, "lobby.test") { t.Fatalf("host ConnectToServer failed") }
	if !host.RegisterAsHost(ctx, "Hana") { t.Fatalf("RegisterAsHost failed") }
	waited := make(chan error, 1)
	go func() {
		_, err := host.WaitForConnection(ctx)
		waited <- err
	}()

	if !guest.ConnectToServer(ctx, "lobby.test") { t.Fatalf("guest ConnectToServer failed") }
	hosts, err := guest.AvailableHosts(ctx)
	if err != nil { t.Fatalf("AvailableHosts: %v", err) }
	if len(hosts) != 1 || hosts[0].Name != "Hana" { t.Fatalf("hosts = %+v", hosts) }
	if !guest.ConnectToHost(ctx, hosts[0].Addr) { t.Fatalf("ConnectToHost failed") }
	if err := <-waited; err != nil { t.Fatalf("WaitForConnection: %v", err) }

	left, err := tl.mgr.List(ctx)
	if err != nil { t.Fatalf("List: %v", err) }
	if len(left) != 0 { t.Fatalf("host should be withdrawn after a peer joined, got %+v", left) }
}

func TestLobbyShutdownWhileWaiting(t *testing.T) {
	tl := newTestLobby(t)
	host := newConn(t, tl.opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if !host.ConnectToServer(ctx, "lobby.test") { t.Fatalf("ConnectToServer failed") }
	if !host.RegisterAsHost(ctx, "Hana") { t.Fatalf("RegisterAsHost failed") }
	tl.stop()

	ok, err := host.WaitForConnection(ctx)
	if ok || !errors.Is(err, session.ErrRemoteShutdown) {
		t.Fatalf("expected ErrRemoteShutdown, got ok=%v err=%v", ok, err)
	}
	if _, err := host.AvailableHosts(ctx); !errors.Is(err, session.ErrRemoteShutdown) {
		t.Fatalf("AvailableHosts: expected ErrRemoteShutdown, got %v", err)
	}
}

func TestConnectFailuresAreBooleans(t *testing.T) {
	tl := newTestLobby(t)
	tl.stop()
	c := newConn(t, tl.opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if c.ConnectToServer(ctx, "lobby.test") { t.Fatalf("ConnectToServer should fail") }
	if c.RegisterAsHost(ctx, "Hana") { t.Fatalf("RegisterAsHost without lobby should fail") }

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil { t.Fatalf("listen: %v", err) }
	addr := ln.Addr().String()
	_ = ln.Close()
	if c.ConnectToHost(ctx, addr) { t.Fatalf("ConnectToHost to a closed port should fail") }
	if c.Established() { t.Fatalf("nothing should be established") }
	if err := c.InformExit(ctx); err != nil { t.Fatalf("InformExit without peer: %v", err) }
}

func TestWaitForConnectionHonorsCancel(t *testing.T) {
	c := newConn(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	ok, err := c.WaitForConnection(ctx)
	if ok || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline, got ok=%v err=%v", ok, err)
	}
}
