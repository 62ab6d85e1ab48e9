package lobby

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "net"
    "net/url"
    "strings"
    "time"

    "github.com/valyala/fasthttp"
)

// Client talks to a lobby Server.
type Client struct {
    baseURL string
    http    *fasthttp.Client

    defaultTimeout time.Duration
    retryMax       int
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
    return func(c *Client) { c.defaultTimeout = d }
}

func WithRetry(max int) Option {
    return func(c *Client) { c.retryMax = max }
}

// WithDialer replaces the TCP dialer, e.g. with an in-memory listener in tests.
func WithDialer(dial func(addr string) (net.Conn, error)) Option {
    return func(c *Client) { c.http.Dial = dial }
}

// NewClient accepts either host:port or a full http:// base URL.
func NewClient(addr string, opts ...Option) *Client {
    base := strings.TrimRight(strings.TrimSpace(addr), "/")
    if !strings.Contains(base, "://") {
        base = "http://" + base
    }
    c := &Client{
        baseURL:        base,
        http:           &fasthttp.Client{ReadTimeout: 5 * time.Second, WriteTimeout: 5 * time.Second, MaxConnsPerHost: 8},
        defaultTimeout: 5 * time.Second,
        retryMax:       3,
    }
    for _, opt := range opts {
        opt(c)
    }
    return c
}

func (c *Client) BaseURL() string { return c.baseURL }

// Health succeeds when the lobby answers GET /health with status ok.
func (c *Client) Health(ctx context.Context) error {
    var resp HealthResponse
    if err := c.doJSON(ctx, fasthttp.MethodGet, "/health", nil, &resp, false); err != nil {
        return err
    }
    if resp.Status != "ok" {
        return fmt.Errorf("lobby unhealthy: status=%q", resp.Status)
    }
    return nil
}

func (c *Client) ListHosts(ctx context.Context) ([]Host, error) {
    var hosts []Host
    if err := c.doJSON(ctx, fasthttp.MethodGet, hostsPath, nil, &hosts, true); err != nil {
        return nil, err
    }
    return hosts, nil
}

func (c *Client) Register(ctx context.Context, name, addr string) (*Host, error) {
    var h Host
    if err := c.doJSON(ctx, fasthttp.MethodPost, hostsPath, RegisterRequest{Name: name, Addr: addr}, &h, false); err != nil {
        return nil, err
    }
    return &h, nil
}

func (c *Client) Unregister(ctx context.Context, id string) error {
    return c.doJSON(ctx, fasthttp.MethodDelete, hostsPath+"/"+url.PathEscape(id), nil, nil, true)
}

func (c *Client) doJSON(ctx context.Context, method, path string, in any, out any, retry bool) error {
    req := fasthttp.AcquireRequest()
    resp := fasthttp.AcquireResponse()
    defer func() {
        fasthttp.ReleaseRequest(req)
        fasthttp.ReleaseResponse(resp)
    }()

    req.Header.SetMethod(method)
    req.SetRequestURI(c.baseURL + path)
    req.Header.SetContentType("application/json")

    if in != nil {
        payload, err := json.Marshal(in)
        if err != nil {
            return fmt.Errorf("marshal request: %w", err)
        }
        req.SetBody(payload)
    }

    attempts := 1
    if retry {
        attempts = c.retryMax
        if attempts <= 0 {
            attempts = 1
        }
    }

    var lastErr error
    for attempt := 1; attempt <= attempts; attempt++ {
        if err := ctx.Err(); err != nil {
            return err
        }
        err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx))
        if err != nil {
            if attempt == attempts || !retry {
                return fmt.Errorf("lobby request failed: %w", err)
            }
            lastErr = err
            if sleepErr := c.sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
                return lastErr
            }
            continue
        }

        status := resp.StatusCode()
        if status < 200 || status >= 300 {
            err := statusError(status, resp.Body())
            if attempt == attempts || !retry || !shouldRetryStatus(status) {
                return err
            }
            lastErr = err
            if sleepErr := c.sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
                return lastErr
            }
            continue
        }

        if out != nil && len(resp.Body()) > 0 {
            if err := json.Unmarshal(resp.Body(), out); err != nil {
                return fmt.Errorf("decode response: %w", err)
            }
        }
        return nil
    }

    if lastErr == nil {
        lastErr = errors.New("unknown error")
    }
    return lastErr
}

// statusError maps the server's status codes back onto the package sentinels.
func statusError(status int, body []byte) error {
    var er errorResponse
    msg := truncate(string(body), 512)
    if json.Unmarshal(body, &er) == nil && er.Error != "" {
        msg = er.Error
    }
    switch status {
    case fasthttp.StatusBadRequest:
        return fmt.Errorf("%w: %s", ErrInvalidArgs, msg)
    case fasthttp.StatusNotFound:
        return fmt.Errorf("%w: %s", ErrHostGone, msg)
    case fasthttp.StatusConflict:
        return fmt.Errorf("%w: %s", ErrAddrTaken, msg)
    }
    return fmt.Errorf("lobby api error: status=%d body=%s", status, msg)
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
    if dl, ok := ctx.Deadline(); ok {
        clientDL := time.Now().Add(c.defaultTimeout)
        if dl.Before(clientDL) {
            return dl
        }
        return clientDL
    }
    return time.Now().Add(c.defaultTimeout)
}

func (c *Client) sleepWithContext(ctx context.Context, d time.Duration) error {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return ctx.Err()
    case <-t.C:
        return nil
    }
}

func backoffDuration(attempt int) time.Duration {
    if attempt < 1 {
        attempt = 1
    }
    if attempt > 6 {
        attempt = 6
    }
    base := 100 * time.Millisecond
    return time.Duration(1<<uint(attempt-1)) * base
}

func shouldRetryStatus(code int) bool {
    switch code {
    case 500, 502, 503, 504:
        return true
    default:
        return false
    }
}

func truncate(s string, n int) string {
    if len(s) <= n {
        return s
    }
    return s[:n]
}
