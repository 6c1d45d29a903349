// Package server implements the Smart Script application server: a TCP
// listener feeding a fixed-size worker pool, a request dispatcher, a
// session registry with background eviction and a parsed-script cache.
package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"nickandperla.net/smartserv/internal/store"
	"nickandperla.net/smartserv/internal/web"
)

const (
	acceptTimeout = 5 * time.Second
	sweepPeriod   = 5 * time.Minute
)

// Server is a running or startable Smart Script server.
type Server struct {
	address        string
	port           int
	workerThreads  int
	sessionTimeout time.Duration
	documentRoot   string
	mimeTypes      map[string]string
	workersMap     map[string]web.Worker
	sessionStore   store.Store
	log            *slog.Logger

	sessions *sessionRegistry
	cache    *scriptCache

	ln       *net.TCPListener
	jobs     chan net.Conn
	done     chan struct{}
	poolWG   sync.WaitGroup
	bgWG     sync.WaitGroup
	stopOnce sync.Once
}

// Option configures a Server.
type Option func(*Server)

// WithAddress sets the listen address.
func WithAddress(address string) Option {
	return func(s *Server) { s.address = address }
}

// WithPort sets the listen port. Port 0 picks a free port.
func WithPort(port int) Option {
	return func(s *Server) { s.port = port }
}

// WithWorkerThreads sets the size of the request worker pool.
func WithWorkerThreads(n int) Option {
	return func(s *Server) { s.workerThreads = n }
}

// WithSessionTimeout sets the session validity window.
func WithSessionTimeout(d time.Duration) Option {
	return func(s *Server) { s.sessionTimeout = d }
}

// WithMimeTypes sets the extension to MIME type map.
func WithMimeTypes(types map[string]string) Option {
	return func(s *Server) { s.mimeTypes = types }
}

// WithWorker registers a worker under a URL path.
func WithWorker(path string, w web.Worker) Option {
	return func(s *Server) { s.workersMap[path] = w }
}

// WithSessionStore configures durable session persistence. The caller
// keeps ownership of the store and closes it after Stop.
func WithSessionStore(st store.Store) Option {
	return func(s *Server) { s.sessionStore = st }
}

// WithLogger sets the server logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Server) { s.log = log }
}

// DefaultMimeTypes returns the MIME map used when no mime configuration
// file is given.
func DefaultMimeTypes() map[string]string {
	return map[string]string{
		"html": "text/html",
		"htm":  "text/html",
		"css":  "text/css",
		"js":   "text/javascript",
		"txt":  "text/plain",
		"png":  "image/png",
		"jpg":  "image/jpeg",
		"gif":  "image/gif",
	}
}

// New creates a Server rooted at documentRoot. Previously persisted
// sessions are restored when a session store is configured.
func New(documentRoot string, opts ...Option) (*Server, error) {
	root, err := filepath.Abs(documentRoot)
	if err != nil {
		return nil, fmt.Errorf("resolving document root: %w", err)
	}

	s := &Server{
		address:        "127.0.0.1",
		port:           5721,
		workerThreads:  8,
		sessionTimeout: 10 * time.Minute,
		documentRoot:   filepath.Clean(root),
		mimeTypes:      DefaultMimeTypes(),
		workersMap:     make(map[string]web.Worker),
		log:            slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.sessions = newSessionRegistry(s.sessionTimeout, s.sessionStore, s.log)
	if err := s.sessions.restore(); err != nil {
		return nil, fmt.Errorf("restoring sessions: %w", err)
	}
	s.cache = newScriptCache(s.log)

	return s, nil
}

// Start binds the listener and launches the worker pool, the accept loop
// and the session sweep.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", net.JoinHostPort(s.address, strconv.Itoa(s.port)))
	if err != nil {
		return err
	}
	s.ln = ln.(*net.TCPListener)
	s.jobs = make(chan net.Conn)
	s.done = make(chan struct{})

	for i := 0; i < s.workerThreads; i++ {
		s.poolWG.Add(1)
		go s.worker()
	}

	s.bgWG.Add(2)
	go s.acceptLoop()
	go s.sweepLoop()

	s.log.Info("server started", "addr", ln.Addr().String(), "root", s.documentRoot)
	return nil
}

// Addr returns the bound listener address.
func (s *Server) Addr() net.Addr {
	return s.ln.Addr()
}

// Stop signals the listener to stop accepting and waits for in-flight
// requests to complete. Workers are never cancelled mid-request.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
		s.ln.SetDeadline(time.Now())
		s.bgWG.Wait()
		close(s.jobs)
		s.poolWG.Wait()
		s.ln.Close()
		s.cache.close()
		s.log.Info("server stopped")
	})
}

func (s *Server) worker() {
	defer s.poolWG.Done()
	for conn := range s.jobs {
		s.handleConn(conn)
	}
}

// acceptLoop accepts with a short deadline so the shutdown flag can be
// polled between accepts.
func (s *Server) acceptLoop() {
	defer s.bgWG.Done()
	for {
		select {
		case <-s.done:
			return
		default:
		}

		s.ln.SetDeadline(time.Now().Add(acceptTimeout))
		conn, err := s.ln.Accept()
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			select {
			case <-s.done:
				return
			default:
			}
			s.log.Error("accept", "err", err)
			continue
		}

		s.log.Debug("accepted", "remote", conn.RemoteAddr().String())

		select {
		case s.jobs <- conn:
		case <-s.done:
			conn.Close()
			return
		}
	}
}

// sweepLoop evicts expired sessions at a fixed period. Failures are
// logged; the sweep retries on the next tick.
func (s *Server) sweepLoop() {
	defer s.bgWG.Done()
	ticker := time.NewTicker(sweepPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			if n := s.sessions.sweep(); n > 0 {
				s.log.Info("removed expired sessions", "count", n)
			}
		}
	}
}
