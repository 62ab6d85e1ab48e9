package lobby

import "time"

// Host is one player waiting for an opponent, stored as JSON under lobby:host:<id>.
type Host struct {
    ID        string    `json:"id"`
    Name      string    `json:"name"`
    Addr      string    `json:"addr"`
    CreatedAt time.Time `json:"created_at"`
}

// RegisterRequest is the body of POST /hosts.
type RegisterRequest struct {
    Name string `json:"name"`
    Addr string `json:"addr"`
}

type HealthResponse struct {
    Status string `json:"status"`
}

type errorResponse struct {
    Error string `json:"error"`
}

// Errors
var (
    ErrInvalidArgs = errf("invalid arguments")
    ErrHostGone    = errf("host not found or expired")
    ErrAddrTaken   = errf("address already registered")
)

type staticErr string
func (e staticErr) Error() string { return string(e) }
func errf(s string) error { return staticErr(s) }
