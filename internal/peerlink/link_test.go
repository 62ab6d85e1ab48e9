package peerlink

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/park285/Cheese-Battleship/internal/fleet"
)

func newPair(t *testing.T) (host, guest *Link) {
	t.Helper()
	ln, err := Listen("127.0.0.1:0", 0, nil)
	if err != nil { t.Fatalf("Listen: %v", err) }
	t.Cleanup(func() { _ = ln.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	guest, err = Dial(ctx, ln.Addr(), 0, nil)
	if err != nil { t.Fatalf("Dial: %v", err) }
	host, err = ln.Accept(ctx)
	if err != nil { t.Fatalf("Accept: %v", err) }
	t.Cleanup(func() {
		_ = guest.Close()
		_ = host.Close()
	})
	return host, guest
}

func TestSendReceive(t *testing.T) {
	host, guest := newPair(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	shot := fleet.Coord{Row: 3, Col: 7}
	if err := guest.Send(ctx, Envelope{Kind: KindShot, Shot: &shot}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	env, err := host.Receive(ctx)
	if err != nil { t.Fatalf("Receive: %v", err) }
	if env.Kind != KindShot || env.Shot == nil || *env.Shot != shot {
		t.Fatalf("unexpected frame %+v", env)
	}

	res := fleet.ShotResult{Hit: true, DestroyedShip: []fleet.Coord{shot}, GameOver: true}
	if err := host.Send(ctx, Envelope{Kind: KindShotResult, Result: &res}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	env, err = guest.Receive(ctx)
	if err != nil { t.Fatalf("Receive: %v", err) }
	if env.Result == nil || !env.Result.GameOver || len(env.Result.DestroyedShip) != 1 {
		t.Fatalf("unexpected result frame %+v", env)
	}
}

func TestPendingAfterDelivery(t *testing.T) {
	host, guest := newPair(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if host.Pending() {
		t.Fatalf("nothing sent yet")
	}
	if err := guest.Send(ctx, Envelope{Kind: KindAck}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	deadline := time.Now().Add(3 * time.Second)
	for !host.Pending() {
		if time.Now().After(deadline) {
			t.Fatalf("ack never queued")
		}
		time.Sleep(10 * time.Millisecond)
	}
	if env, err := host.Receive(ctx); err != nil || env.Kind != KindAck {
		t.Fatalf("Receive: %+v %v", env, err)
	}
}

func TestPeerCloseSurfacesAsGone(t *testing.T) {
	host, guest := newPair(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := guest.Send(ctx, Envelope{Kind: KindExit}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	_ = guest.Close()

	env, err := host.Receive(ctx)
	if err != nil || env.Kind != KindExit {
		t.Fatalf("queued frame lost: %+v %v", env, err)
	}
	if _, err := host.Receive(ctx); !errors.Is(err, ErrPeerGone) {
		t.Fatalf("expected ErrPeerGone, got %v", err)
	}
	if err := guest.Send(ctx, Envelope{Kind: KindAck}); !errors.Is(err, ErrClosed) {
		t.Fatalf("send after close: %v", err)
	}
}

func TestSecondPeerRejected(t *testing.T) {
	ln, err := Listen("127.0.0.1:0", 0, nil)
	if err != nil { t.Fatalf("Listen: %v", err) }
	defer ln.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	first, err := Dial(ctx, ln.Addr(), 0, nil)
	if err != nil { t.Fatalf("first Dial: %v", err) }
	defer first.Close()
	if _, err := Dial(ctx, ln.Addr(), 0, nil); err == nil {
		t.Fatalf("second peer should be rejected")
	}
}

func TestReceiveHonorsContext(t *testing.T) {
	host, _ := newPair(t)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := host.Receive(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
}

func TestStateCallback(t *testing.T) {
	ln, err := Listen("127.0.0.1:0", 0, nil)
	if err != nil { t.Fatalf("Listen: %v", err) }
	defer ln.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	states := make(chan State, 4)
	guest, err := Dial(ctx, ln.Addr(), 0, func(s State) { states <- s })
	if err != nil { t.Fatalf("Dial: %v", err) }
	_ = guest.Close()
	if s := <-states; s != StateConnected {
		t.Fatalf("first state = %s", s)
	}
	select {
	case s := <-states:
		if s != StateClosed {
			t.Fatalf("state after Close = %s", s)
		}
	case <-ctx.Done():
		t.Fatalf("no state after Close")
	}
}
