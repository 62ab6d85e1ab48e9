package peerlink

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/park285/Cheese-Battleship/internal/obslog"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

// Listener accepts exactly one peer on Path. Later attempts get 409 Conflict.
type Listener struct {
	ln  net.Listener
	srv *http.Server

	accepted chan *Link
	taken    atomic.Bool

	pingInterval time.Duration
	stateCb      StateCallback

	closeOnce sync.Once
}

func Listen(addr string, pingInterval time.Duration, cb StateCallback) (*Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	l := &Listener{
		ln:           ln,
		accepted:     make(chan *Link, 1),
		pingInterval: pingInterval,
		stateCb:      cb,
	}
	mux := http.NewServeMux()
	mux.HandleFunc(Path, l.handle)
	l.srv = &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := l.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			obslog.L().Warn("peer_listener_stopped", zap.String("addr", ln.Addr().String()), zap.Error(err))
		}
	}()
	return l, nil
}

// Addr is the bound address, useful when listening on port 0.
func (l *Listener) Addr() string { return l.ln.Addr().String() }

func (l *Listener) handle(w http.ResponseWriter, r *http.Request) {
	if !l.taken.CompareAndSwap(false, true) {
		http.Error(w, "game already has two players", http.StatusConflict)
		return
	}
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		l.taken.Store(false)
		obslog.L().Warn("peer_accept_error", zap.String("remote", r.RemoteAddr), zap.Error(err))
		return
	}
	obslog.L().Info("peer_accepted", zap.String("remote", r.RemoteAddr))
	link := newLink(conn, l.pingInterval, l.stateCb)
	l.accepted <- link
	// keep the handler alive for the lifetime of the hijacked connection
	<-link.Done()
}

// Accept blocks until the peer connects or ctx ends.
func (l *Listener) Accept(ctx context.Context) (*Link, error) {
	select {
	case link := <-l.accepted:
		return link, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close stops listening. An accepted link is unaffected; one nobody picked up
// is closed.
func (l *Listener) Close() error {
	var err error
	l.closeOnce.Do(func() {
		err = l.srv.Close()
		select {
		case link := <-l.accepted:
			_ = link.Close()
		default:
		}
	})
	return err
}
