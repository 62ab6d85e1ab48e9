package lobby

import (
    "context"
    "encoding/json"
    "errors"
    "net"
    "strings"
    "time"

    "github.com/park285/Cheese-Battleship/internal/obslog"
    "github.com/valyala/fasthttp"
    "go.uber.org/zap"
)

const hostsPath = "/hosts"

// Server exposes a Manager over HTTP:
//   GET /health, GET /hosts, POST /hosts, DELETE /hosts/{id}
type Server struct {
    mgr *Manager
    srv *fasthttp.Server
}

func NewServer(mgr *Manager) *Server {
    s := &Server{mgr: mgr}
    s.srv = &fasthttp.Server{
        Handler:      s.Handle,
        Name:         "battleship-lobby",
        ReadTimeout:  10 * time.Second,
        WriteTimeout: 10 * time.Second,
    }
    return s
}

func (s *Server) ListenAndServe(addr string) error { return s.srv.ListenAndServe(addr) }

func (s *Server) Serve(ln net.Listener) error { return s.srv.Serve(ln) }

func (s *Server) Shutdown(ctx context.Context) error { return s.srv.ShutdownWithContext(ctx) }

func (s *Server) Handle(rc *fasthttp.RequestCtx) {
    path := string(rc.Path())
    method := string(rc.Method())
    switch {
    case path == "/health" && method == fasthttp.MethodGet:
        writeJSON(rc, fasthttp.StatusOK, HealthResponse{Status: "ok"})
    case path == hostsPath && method == fasthttp.MethodGet:
        s.listHosts(rc)
    case path == hostsPath && method == fasthttp.MethodPost:
        s.registerHost(rc)
    case strings.HasPrefix(path, hostsPath+"/") && method == fasthttp.MethodDelete:
        s.unregisterHost(rc, strings.TrimPrefix(path, hostsPath+"/"))
    case path == "/health" || path == hostsPath || strings.HasPrefix(path, hostsPath+"/"):
        writeError(rc, fasthttp.StatusMethodNotAllowed, "method not allowed")
    default:
        writeError(rc, fasthttp.StatusNotFound, "not found")
    }
}

func (s *Server) listHosts(rc *fasthttp.RequestCtx) {
    hosts, err := s.mgr.List(rc)
    if err != nil {
        s.fail(rc, "lobby_list_error", err)
        return
    }
    if hosts == nil { hosts = []*Host{} }
    writeJSON(rc, fasthttp.StatusOK, hosts)
}

func (s *Server) registerHost(rc *fasthttp.RequestCtx) {
    var req RegisterRequest
    if err := json.Unmarshal(rc.PostBody(), &req); err != nil {
        writeError(rc, fasthttp.StatusBadRequest, "invalid json body")
        return
    }
    h, err := s.mgr.Register(rc, req.Name, req.Addr)
    if err != nil {
        s.fail(rc, "lobby_register_rejected", err)
        return
    }
    writeJSON(rc, fasthttp.StatusCreated, h)
}

func (s *Server) unregisterHost(rc *fasthttp.RequestCtx, id string) {
    if err := s.mgr.Unregister(rc, id); err != nil {
        s.fail(rc, "lobby_unregister_rejected", err)
        return
    }
    rc.SetStatusCode(fasthttp.StatusNoContent)
}

func (s *Server) fail(rc *fasthttp.RequestCtx, event string, err error) {
    status := statusFor(err)
    if status >= 500 {
        obslog.L().Error(event, zap.Error(err))
    } else {
        obslog.L().Info(event, zap.Int("status", status), zap.Error(err))
    }
    writeError(rc, status, err.Error())
}

func statusFor(err error) int {
    switch {
    case errors.Is(err, ErrInvalidArgs):
        return fasthttp.StatusBadRequest
    case errors.Is(err, ErrHostGone):
        return fasthttp.StatusNotFound
    case errors.Is(err, ErrAddrTaken):
        return fasthttp.StatusConflict
    default:
        return fasthttp.StatusInternalServerError
    }
}

func writeJSON(rc *fasthttp.RequestCtx, status int, v any) {
    body, err := json.Marshal(v)
    if err != nil {
        rc.SetStatusCode(fasthttp.StatusInternalServerError)
        return
    }
    rc.SetStatusCode(status)
    rc.SetContentType("application/json")
    rc.SetBody(body)
}

func writeError(rc *fasthttp.RequestCtx, status int, msg string) {
    writeJSON(rc, status, errorResponse{Error: msg})
}
