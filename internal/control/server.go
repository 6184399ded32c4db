package control

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/yapyap/node/internal/events"
	"github.com/yapyap/node/internal/router"
	"github.com/yapyap/node/internal/store"
)

// Server wraps the gin engine and its listener, with port
// auto-increment folded into Listen.
type Server struct {
	httpServer *http.Server
	listener   net.Listener
	log        *logrus.Entry
}

// NewServer builds the gin engine, mounts every route, and wires the
// event hub to the router's best-effort event sink.
func NewServer(r *router.Router, st *store.Store, eventsCh <-chan events.Event, log *logrus.Logger) *Server {
	entry := log.WithField("component", "control")
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	engine.Use(requestLogger(entry), recovery(entry))

	hub := newEventHub(eventsCh, entry)
	NewHandler(r, st, hub).Register(engine)

	return &Server{
		httpServer: &http.Server{
			Handler:      engine,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		log: entry,
	}
}

// Listen binds the control plane to port, retrying up to maxTries-1
// additional times on successive ports if the port is in use.
func (s *Server) Listen(host string, port, maxTries int) (int, error) {
	var lastErr error
	for i := 0; i < maxTries; i++ {
		candidate := port + i
		ln, err := net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(candidate)))
		if err != nil {
			lastErr = err
			s.log.WithField("port", candidate).WithError(err).Warn("control plane port unavailable, trying next")
			continue
		}
		s.listener = ln
		return candidate, nil
	}
	return 0, fmt.Errorf("control: no available port in range [%d, %d]: %w", port, port+maxTries-1, lastErr)
}

// Serve blocks accepting connections on the listener bound by Listen.
func (s *Server) Serve() error {
	err := s.httpServer.Serve(s.listener)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
