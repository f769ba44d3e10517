package ember

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// Server is the process-local HTTP server that drives a Pipeline. It
// never terminates TLS itself: this core is meant to sit behind a reverse
// proxy or load balancer that does.
type Server struct {
	Address      string
	Handler      http.Handler
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	H2C          bool
	Logger       Logger

	server *http.Server

	shutdownJobMutex sync.Mutex
	shutdownJobs     []func()
}

// NewServer returns a Server that will listen on cfg.Address and dispatch
// to handler.
func NewServer(cfg *Config, handler http.Handler, logger Logger) *Server {
	if logger == nil {
		logger = NopLogger
	}
	return &Server{
		Address:      cfg.Address,
		Handler:      handler,
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
		H2C:          cfg.H2C,
		Logger:       logger,
	}
}

// AddShutdownJob registers f to run concurrently with every other
// registered shutdown job when Shutdown is called, returning an id usable
// with RemoveShutdownJob.
func (s *Server) AddShutdownJob(f func()) int {
	s.shutdownJobMutex.Lock()
	defer s.shutdownJobMutex.Unlock()
	s.shutdownJobs = append(s.shutdownJobs, f)
	return len(s.shutdownJobs) - 1
}

// RemoveShutdownJob unregisters the shutdown job with the given id.
func (s *Server) RemoveShutdownJob(id int) {
	s.shutdownJobMutex.Lock()
	defer s.shutdownJobMutex.Unlock()
	if id >= 0 && id < len(s.shutdownJobs) {
		s.shutdownJobs[id] = nil
	}
}

// Serve starts the server and blocks until it stops, either from Close,
// Shutdown, or a fatal accept error.
func (s *Server) Serve() error {
	handler := s.Handler
	if s.H2C {
		h2s := &http2.Server{}
		handler = h2c.NewHandler(handler, h2s)
	}

	s.server = &http.Server{
		Addr:         s.Address,
		Handler:      handler,
		ReadTimeout:  s.ReadTimeout,
		WriteTimeout: s.WriteTimeout,
	}

	var shutdownOnce sync.Once
	s.server.RegisterOnShutdown(func() {
		shutdownOnce.Do(func() {
			s.shutdownJobMutex.Lock()
			jobs := append([]func(){}, s.shutdownJobs...)
			s.shutdownJobMutex.Unlock()

			var wg sync.WaitGroup
			for _, job := range jobs {
				if job == nil {
					continue
				}
				wg.Add(1)
				go func(job func()) {
					defer wg.Done()
					job()
				}(job)
			}
			wg.Wait()
		})
	})

	ln, err := newKeepAliveListener(s.server.Addr)
	if err != nil {
		return fmt.Errorf("ember: failed to listen on %q: %w", s.server.Addr, err)
	}
	defer ln.Close()

	s.Logger.Infof("server listening", "address", ln.Addr().String())

	err = s.server.Serve(net.Listener(ln))
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Close closes the server immediately, without waiting for active
// connections to finish.
func (s *Server) Close() error {
	return s.server.Close()
}

// Shutdown gracefully shuts down the server: it stops accepting new
// connections, runs every registered shutdown job concurrently, and waits
// for in-flight requests to complete or ctx to expire.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
