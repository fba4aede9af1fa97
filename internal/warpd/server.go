// Package warpd serves one shared database to many short-lived clients over
// a local socket. Messages are JSON objects terminated by a 0x00 byte.
package warpd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"warpdir/internal/config"
)

var ErrServerRunning = errors.New("server already running")

type Options struct {
	// Network is "unix" (default) or "tcp".
	Network string
	Listen  string
	Logger  *slog.Logger
	// ConfigPath, when set, is watched and reloaded into the service.
	ConfigPath string
	// OnConfig runs after a reloaded config has been applied.
	OnConfig func(*config.Config)
}

type Server struct {
	opts   Options
	svc    *Service
	logger *slog.Logger

	mu        sync.Mutex
	listener  net.Listener
	conns     map[net.Conn]struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
	closed    chan struct{}
}

func NewServer(svc *Service, opts Options) *Server {
	if opts.Network == "" {
		opts.Network = "unix"
	}
	if opts.Listen == "" {
		opts.Listen = config.DefaultSocket()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		opts:   opts,
		svc:    svc,
		logger: logger,
		conns:  map[net.Conn]struct{}{},
		closed: make(chan struct{}),
	}
}

func (s *Server) Addr() string {
	if s == nil {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) Network() string { return s.opts.Network }

// Run accepts connections until Close or a Stop request, then waits for open
// connections and writes any pending changes.
func (s *Server) Run() error {
	if s == nil || s.svc == nil {
		return fmt.Errorf("server is nil")
	}

	ln, err := s.listen()
	if err != nil {
		return err
	}
	s.mu.Lock()
	if s.isClosed() {
		s.mu.Unlock()
		_ = ln.Close()
		return s.svc.Close()
	}
	s.listener = ln
	s.mu.Unlock()
	s.logger.Info("listening", "network", s.opts.Network, "addr", ln.Addr().String())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer cancel()
		return s.acceptLoop(ln)
	})
	if s.opts.ConfigPath != "" {
		w, err := config.Watch(s.opts.ConfigPath, s.logger, s.applyConfig)
		if err != nil {
			s.logger.Warn("config watch disabled", "path", s.opts.ConfigPath, "error", err)
		} else {
			g.Go(func() error {
				defer w.Close()
				return w.Run(gctx)
			})
		}
	}

	runErr := g.Wait()
	s.wg.Wait()
	if err := s.svc.Close(); err != nil {
		s.logger.Error("final save", "error", err)
		if runErr == nil {
			runErr = err
		}
	}
	s.logger.Info("stopped")
	return runErr
}

func (s *Server) listen() (net.Listener, error) {
	if s.opts.Network == "unix" {
		if _, err := os.Stat(s.opts.Listen); err == nil {
			if Alive(s.opts.Network, s.opts.Listen) {
				return nil, fmt.Errorf("%w at %s", ErrServerRunning, s.opts.Listen)
			}
			// Left behind by a server that did not shut down cleanly.
			if err := os.Remove(s.opts.Listen); err != nil {
				return nil, err
			}
		}
	}
	return net.Listen(s.opts.Network, s.opts.Listen)
}

func (s *Server) acceptLoop(ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.isClosed() {
				return nil
			}
			return err
		}
		if !s.track(conn) {
			_ = conn.Close()
			return nil
		}
		go s.handleConn(conn)
	}
}

// Close stops accepting and drops open connections. Run returns once
// in-flight operations finish.
func (s *Server) Close() error {
	if s == nil {
		return nil
	}

	s.closeOnce.Do(func() { close(s.closed) })

	s.mu.Lock()
	ln := s.listener
	s.listener = nil
	conns := make([]net.Conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		_ = c.Close()
	}
	if ln == nil {
		return nil
	}
	return ln.Close()
}

func (s *Server) isClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isClosed() {
		return false
	}
	s.conns[conn] = struct{}{}
	s.wg.Add(1)
	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
	s.wg.Done()
}

func (s *Server) handleConn(conn net.Conn) {
	log := s.logger.With("conn", uuid.NewString())
	log.Debug("connection opened")

	stop := false
	defer func() {
		if stop {
			log.Info("stop requested")
			_ = s.Close()
		}
		_ = conn.Close()
		s.untrack(conn)
		log.Debug("connection closed")
	}()

	r := bufio.NewReader(conn)
	w := bufio.NewWriter(conn)

	for {
		frame, err := ReadFrame(r)
		if err != nil {
			if !errors.Is(err, io.EOF) && !s.isClosed() {
				log.Debug("read failed", "error", err)
			}
			return
		}

		req, err := DecodeRequest(frame)
		if err != nil {
			log.Warn("dropping connection", "error", err)
			return
		}

		log.Debug("request", "type", req.Type, "arg", req.Arg)
		resp, stopAfter := s.dispatch(req)
		stop = stop || stopAfter
		if resp == nil || !req.Type.replies() {
			continue
		}
		if err := WriteFrame(w, resp); err != nil {
			log.Debug("write failed", "error", err)
			return
		}
		if err := w.Flush(); err != nil {
			log.Debug("write failed", "error", err)
			return
		}
	}
}

// dispatch runs one request. The response is nil for fire-and-forget ops.
func (s *Server) dispatch(req Request) (*Response, bool) {
	switch req.Type {
	case OpInsert:
		s.svc.Insert(req.Arg)
		return nil, false
	case OpDelete:
		s.svc.Delete(req.Arg)
		return nil, false
	case OpQuery:
		return &Response{Entries: s.svc.Query(req.Arg)}, false
	case OpList:
		return &Response{Entries: s.svc.List()}, false
	case OpStatus:
		st := s.svc.Status(s.Addr())
		return &Response{Status: &st}, false
	case OpStop:
		resp := &Response{}
		if err := s.svc.Flush(); err != nil {
			resp.Error = err.Error()
		}
		return resp, true
	case OpRestart:
		resp := &Response{}
		if err := s.svc.Restart(); err != nil {
			s.logger.Error("restart", "error", err)
			resp.Error = err.Error()
		}
		return resp, false
	}
	return &Response{Error: fmt.Sprintf("unsupported request type %q", req.Type)}, false
}

func (s *Server) applyConfig(cfg *config.Config) {
	s.svc.ApplyConfig(cfg)
	if s.opts.OnConfig != nil {
		s.opts.OnConfig(cfg)
	}
}
