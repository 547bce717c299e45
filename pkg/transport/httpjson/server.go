package httpjson

import (
    "context"
    "crypto/tls"
    "encoding/json"
    "log"
    "net"
    "net/http"
    "sync"
    "time"

    "github.com/prometheus/client_golang/prometheus/promhttp"

    "github.com/amirimatin/zkseeds/pkg/internal/logutil"
    "github.com/amirimatin/zkseeds/pkg/observability/tracing"
    "github.com/amirimatin/zkseeds/pkg/transport"
)

// Server is a minimal HTTP server exposing management endpoints: seeds,
// members, metrics and healthz.
type Server struct {
    bind   string
    logger *log.Logger
    tls    *tls.Config

    mu   sync.Mutex
    srv  *http.Server
    addr string
}

// NewServer binds to the given TCP address (e.g., ":17946").
func NewServer(bind string, logger *log.Logger) *Server {
    return &Server{bind: bind, logger: logutil.OrDefault(logger)}
}

// UseTLS serves the endpoints over TLS; nil keeps plain HTTP. Call before Start.
func (s *Server) UseTLS(cfg *tls.Config) *Server {
    s.tls = cfg
    return s
}

// Handler returns the management mux; exposed for httptest.
func (s *Server) Handler(h transport.Handlers) http.Handler {
    mux := http.NewServeMux()
    mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
        if r.Method != http.MethodGet { http.Error(w, "method not allowed", http.StatusMethodNotAllowed); return }
        w.WriteHeader(http.StatusOK)
        _, _ = w.Write([]byte("ok"))
    })
    mux.Handle("/metrics", promhttp.Handler())
    mux.HandleFunc("/seeds", func(w http.ResponseWriter, r *http.Request) {
        if r.Method != http.MethodGet { http.Error(w, "method not allowed", http.StatusMethodNotAllowed); return }
        if h.Seeds == nil { http.Error(w, "seeds not supported", http.StatusNotImplemented); return }
        ctx, end := tracing.StartSpan(r.Context(), "http.seeds")
        defer end()
        seeds := h.Seeds(ctx)
        if seeds == nil { seeds = []string{} }
        writeJSON(w, transport.SeedsResponse{Backend: h.Backend, Seeds: seeds})
    })
    mux.HandleFunc("/members", func(w http.ResponseWriter, r *http.Request) {
        if r.Method != http.MethodGet { http.Error(w, "method not allowed", http.StatusMethodNotAllowed); return }
        if h.Members == nil { http.Error(w, "members not supported", http.StatusNotImplemented); return }
        writeJSON(w, h.Members())
    })
    return mux
}

func writeJSON(w http.ResponseWriter, v any) {
    w.Header().Set("Content-Type", "application/json")
    _ = json.NewEncoder(w).Encode(v)
}

// Start listens and serves in the background until ctx is done or Stop.
func (s *Server) Start(ctx context.Context, h transport.Handlers) error {
    ln, err := net.Listen("tcp", s.bind)
    if err != nil { return err }
    if s.tls != nil { ln = tls.NewListener(ln, s.tls) }
    srv := &http.Server{Handler: s.Handler(h), ReadHeaderTimeout: 5 * time.Second}

    s.mu.Lock()
    s.srv = srv
    s.addr = ln.Addr().String()
    s.mu.Unlock()

    go func() {
        <-ctx.Done()
        _ = s.Stop(context.Background())
    }()
    go func() {
        if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
            logutil.Errorf(s.logger, "httpjson: server error: %v", err)
        }
    }()
    return nil
}

// Addr returns the listening address once started, else the bind address.
func (s *Server) Addr() string {
    s.mu.Lock()
    defer s.mu.Unlock()
    if s.addr != "" { return s.addr }
    return s.bind
}

// Stop attempts a graceful shutdown with a short timeout.
func (s *Server) Stop(ctx context.Context) error {
    s.mu.Lock()
    srv := s.srv
    s.srv = nil
    s.mu.Unlock()
    if srv == nil { return nil }
    c, cancel := context.WithTimeout(ctx, 2*time.Second)
    defer cancel()
    return srv.Shutdown(c)
}

var _ transport.RPCServer = (*Server)(nil)
