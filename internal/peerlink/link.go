package peerlink

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const (
	Path        = "/battle"
	inboxSize   = 64
	dialTimeout = 10 * time.Second
)

var (
	ErrClosed   = errors.New("peer link closed")
	ErrPeerGone = errors.New("peer connection lost")
)

// Link is one websocket connection to the other player. A background reader
// queues inbound frames so callers can check for pending input without
// blocking; writes are serialized.
type Link struct {
	conn *websocket.Conn

	inbox chan Envelope
	done  chan struct{} // closed when the reader stops

	errM    sync.Mutex
	readErr error

	writeM sync.Mutex

	stateCb StateCallback

	pingInterval time.Duration

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	rootCtx    context.Context
	rootCancel context.CancelFunc
}

func newLink(conn *websocket.Conn, pingInterval time.Duration, cb StateCallback) *Link {
	l := &Link{
		conn:         conn,
		inbox:        make(chan Envelope, inboxSize),
		done:         make(chan struct{}),
		stateCb:      cb,
		pingInterval: pingInterval,
		stopCh:       make(chan struct{}),
	}
	l.rootCtx, l.rootCancel = context.WithCancel(context.Background())
	l.notify(StateConnected)

	l.wg.Add(1)
	go l.listen()
	if pingInterval > 0 {
		l.wg.Add(1)
		go l.pingLoop()
	}
	return l
}

// Dial connects to a hosting peer at addr (host:port or ws:// URL).
func Dial(ctx context.Context, addr string, pingInterval time.Duration, cb StateCallback) (*Link, error) {
	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	conn, _, err := websocket.Dial(dialCtx, peerURL(addr), &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		return nil, fmt.Errorf("dial peer %s: %w", addr, err)
	}
	return newLink(conn, pingInterval, cb), nil
}

func peerURL(addr string) string {
	addr = strings.TrimSpace(addr)
	if strings.HasPrefix(addr, "ws://") || strings.HasPrefix(addr, "wss://") {
		return addr
	}
	return "ws://" + addr + Path
}

func (l *Link) listen() {
	defer l.wg.Done()
	defer close(l.done)
	for {
		var env Envelope
		if err := wsjson.Read(l.rootCtx, l.conn, &env); err != nil {
			if l.isStopping() {
				l.setErr(ErrClosed)
				l.notify(StateClosed)
				return
			}
			l.setErr(fmt.Errorf("%w: %v", ErrPeerGone, err))
			l.notify(StateLost)
			return
		}
		select {
		case l.inbox <- env:
		case <-l.stopCh:
			l.setErr(ErrClosed)
			return
		}
	}
}

func (l *Link) pingLoop() {
	defer l.wg.Done()
	t := time.NewTicker(l.pingInterval)
	defer t.Stop()
	failures := 0
	for {
		select {
		case <-l.stopCh:
			return
		case <-l.done:
			return
		case <-t.C:
			ctx, cancel := context.WithTimeout(l.rootCtx, 3*time.Second)
			err := l.conn.Ping(ctx)
			cancel()
			if err == nil {
				failures = 0
				continue
			}
			failures++
			if failures >= 2 {
				// the reader observes the close and reports the peer as gone
				_ = l.conn.Close(websocket.StatusGoingAway, "ping failure")
				return
			}
		}
	}
}

// Send writes one frame.
func (l *Link) Send(ctx context.Context, env Envelope) error {
	if l.isStopping() {
		return ErrClosed
	}
	l.writeM.Lock()
	defer l.writeM.Unlock()
	if err := wsjson.Write(ctx, l.conn, env); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", ErrPeerGone, err)
	}
	return nil
}

// Receive blocks for the next frame. Frames queued before the connection
// dropped are still delivered before the error.
func (l *Link) Receive(ctx context.Context) (Envelope, error) {
	select {
	case env := <-l.inbox:
		return env, nil
	default:
	}
	select {
	case env := <-l.inbox:
		return env, nil
	case <-l.done:
		select {
		case env := <-l.inbox:
			return env, nil
		default:
			return Envelope{}, l.err()
		}
	case <-ctx.Done():
		return Envelope{}, ctx.Err()
	}
}

// Pending reports whether a frame is queued.
func (l *Link) Pending() bool { return len(l.inbox) > 0 }

// Done is closed once the reader has stopped.
func (l *Link) Done() <-chan struct{} { return l.done }

// Close ends the connection and waits for the background goroutines.
func (l *Link) Close() error {
	l.stopOnce.Do(func() {
		close(l.stopCh)
		// a peer that already hung up makes this fail; nothing left to release then
		_ = l.conn.Close(websocket.StatusNormalClosure, "bye")
		l.rootCancel()
		l.wg.Wait()
	})
	return nil
}

func (l *Link) isStopping() bool {
	select {
	case <-l.stopCh:
		return true
	default:
		return false
	}
}

func (l *Link) setErr(err error) {
	l.errM.Lock()
	if l.readErr == nil {
		l.readErr = err
	}
	l.errM.Unlock()
}

func (l *Link) err() error {
	l.errM.Lock()
	defer l.errM.Unlock()
	if l.readErr == nil {
		return ErrClosed
	}
	return l.readErr
}

func (l *Link) notify(s State) {
	if l.stateCb != nil {
		l.stateCb(s)
	}
}
