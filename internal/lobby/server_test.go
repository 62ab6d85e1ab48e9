package lobby

import (
    "context"
    "errors"
    "net"
    "testing"
    "time"

    "github.com/valyala/fasthttp"
    "github.com/valyala/fasthttp/fasthttputil"
)

func newTestServer(t *testing.T) (*Client, *Manager) {
    t.Helper()
    mgr := NewManager(NewMemoryStore(time.Minute))
    srv := NewServer(mgr)
    ln := fasthttputil.NewInmemoryListener()
    go func() { _ = srv.Serve(ln) }()
    t.Cleanup(func() {
        ctx, cancel := context.WithTimeout(context.Background(), time.Second)
        defer cancel()
        _ = srv.Shutdown(ctx)
        _ = ln.Close()
    })
    c := NewClient("lobby.test", WithDialer(func(string) (net.Conn, error) { return ln.Dial() }), WithRetry(1))
    return c, mgr
}

func TestClientServerRoundTrip(t *testing.T) {
    c, _ := newTestServer(t)
    ctx := context.Background()

    if err := c.Health(ctx); err != nil { t.Fatalf("Health: %v", err) }
    hs, err := c.ListHosts(ctx)
    if err != nil { t.Fatalf("ListHosts: %v", err) }
    if len(hs) != 0 { t.Fatalf("expected empty lobby, got %+v", hs) }

    h, err := c.Register(ctx, "Alice", "10.0.0.1:7001")
    if err != nil { t.Fatalf("Register: %v", err) }
    if h.ID == "" || h.Name != "Alice" { t.Fatalf("Register returned %+v", h) }

    hs, err = c.ListHosts(ctx)
    if err != nil { t.Fatalf("ListHosts: %v", err) }
    if len(hs) != 1 || hs[0].ID != h.ID || hs[0].Addr != "10.0.0.1:7001" {
        t.Fatalf("ListHosts = %+v", hs)
    }

    if err := c.Unregister(ctx, h.ID); err != nil { t.Fatalf("Unregister: %v", err) }
    if err := c.Unregister(ctx, h.ID); !errors.Is(err, ErrHostGone) {
        t.Fatalf("expected ErrHostGone, got %v", err)
    }
}

func TestClientMapsStatusToSentinels(t *testing.T) {
    c, _ := newTestServer(t)
    ctx := context.Background()

    if _, err := c.Register(ctx, "", "a:1"); !errors.Is(err, ErrInvalidArgs) {
        t.Fatalf("expected ErrInvalidArgs, got %v", err)
    }
    if _, err := c.Register(ctx, "Alice", "a:1"); err != nil { t.Fatalf("Register: %v", err) }
    if _, err := c.Register(ctx, "Bob", "a:1"); !errors.Is(err, ErrAddrTaken) {
        t.Fatalf("expected ErrAddrTaken, got %v", err)
    }
}

func TestHandleRoutes(t *testing.T) {
    s := NewServer(NewManager(NewMemoryStore(time.Minute)))
    cases := []struct {
        method, path string
        body         string
        want         int
    }{
        {fasthttp.MethodGet, "/health", "", fasthttp.StatusOK},
        {fasthttp.MethodGet, "/hosts", "", fasthttp.StatusOK},
        {fasthttp.MethodPost, "/hosts", "{", fasthttp.StatusBadRequest},
        {fasthttp.MethodPost, "/hosts", `{"name":"A","addr":"a:1"}`, fasthttp.StatusCreated},
        {fasthttp.MethodDelete, "/hosts/nope", "", fasthttp.StatusNotFound},
        {fasthttp.MethodPut, "/hosts", "", fasthttp.StatusMethodNotAllowed},
        {fasthttp.MethodGet, "/elsewhere", "", fasthttp.StatusNotFound},
    }
    for _, tc := range cases {
        var rc fasthttp.RequestCtx
        rc.Request.Header.SetMethod(tc.method)
        rc.Request.SetRequestURI(tc.path)
        rc.Request.SetBodyString(tc.body)
        s.Handle(&rc)
        if got := rc.Response.StatusCode(); got != tc.want {
            t.Fatalf("%s %s: status %d, want %d (%s)", tc.method, tc.path, got, tc.want, rc.Response.Body())
        }
    }
}

func TestHealthFailsWhenLobbyDown(t *testing.T) {
    ln := fasthttputil.NewInmemoryListener()
    _ = ln.Close()
    c := NewClient("lobby.test", WithDialer(func(string) (net.Conn, error) { return ln.Dial() }), WithTimeout(200*time.Millisecond))
    if err := c.Health(context.Background()); err == nil {
        t.Fatalf("expected error from closed lobby")
    }
}
