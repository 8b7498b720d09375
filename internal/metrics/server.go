package metrics

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server serves the default Prometheus registry at /metrics. Nothing runs
// until Start; the caller owns the lifetime via Stop.
type Server struct {
	srv *http.Server
	ln  net.Listener
}

// Start binds addr and begins serving in a background goroutine. Binding
// happens here, not in the goroutine, so an unusable address surfaces as an
// error instead of a silent dead endpoint.
func Start(addr string) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	s := &Server{srv: &http.Server{Handler: mux}, ln: ln}
	go func() { _ = s.srv.Serve(ln) }()
	return s, nil
}

// Addr returns the bound address, useful when Start was given ":0".
func (s *Server) Addr() string {
	if s == nil || s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// Stop shuts the server down, allowing in-flight scrapes a short grace
// period. Safe on a nil receiver.
func (s *Server) Stop() error {
	if s == nil || s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
