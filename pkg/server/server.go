// Package server binds the configured listeners, accepts connections,
// and spawns one Connection FSM per accepted socket.
package server

import (
	"crypto/tls"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/shoresys/httpd/pkg/config"
	"github.com/shoresys/httpd/pkg/connfsm"
	"github.com/shoresys/httpd/pkg/dispatch"
	"github.com/shoresys/httpd/pkg/rules"
	"github.com/shoresys/httpd/pkg/tlsconfig"
	"github.com/shoresys/httpd/pkg/transport"
)

// Logger is the subset of logrus.FieldLogger the server loop needs.
type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// Server binds listeners and drives accepted connections.
type Server struct {
	cfg      config.Config
	ruleSet  *rules.Set
	fallback dispatch.Fallback
	log      Logger

	shuttingDown atomic.Bool
	wg           sync.WaitGroup

	mu        sync.Mutex
	listeners []net.Listener
}

// New constructs a Server. ruleSet and fallback may be nil (no rules
// applied / no fallback handler registered, respectively).
func New(cfg config.Config, ruleSet *rules.Set, fallback dispatch.Fallback, log Logger) *Server {
	if ruleSet == nil {
		ruleSet = rules.NewSet(&rules.File{})
	}
	return &Server{cfg: cfg, ruleSet: ruleSet, fallback: fallback, log: log}
}

// Run binds the plaintext listener, and the TLS listener when HTTPS is
// enabled, spawning one acceptor goroutine per listener. It blocks until
// Shutdown is called and every acceptor has reported done, or a listener
// fails to bind.
func (s *Server) Run() error {
	plainAddr := fmt.Sprintf(":%d", s.cfg.Port)
	plainLn, err := net.Listen("tcp", plainAddr)
	if err != nil {
		return fmt.Errorf("binding plaintext listener on %s: %w", plainAddr, err)
	}
	s.addListener(plainLn)
	s.log.Infof("listening on %s (plaintext)", plainAddr)

	rendezvous := make(chan struct{}, 2)
	s.wg.Add(1)
	go s.accept(plainLn, nil, rendezvous)

	if s.cfg.HTTPS {
		tlsAddr := fmt.Sprintf(":%d", s.cfg.TLSPort())
		cert, err := tls.LoadX509KeyPair(s.cfg.CertPath, s.cfg.KeyPath)
		if err != nil {
			return fmt.Errorf("loading TLS certificate: %w", err)
		}
		profile, ok := tlsconfig.ProfileByName(s.cfg.TLSProfile)
		if !ok {
			profile = tlsconfig.ProfileSecure
		}
		tlsCfg := &tls.Config{Certificates: []tls.Certificate{cert}}
		tlsconfig.ApplyVersionProfile(tlsCfg, profile)
		tlsconfig.ApplyCipherSuites(tlsCfg, profile.Min)

		tlsLn, err := net.Listen("tcp", tlsAddr)
		if err != nil {
			return fmt.Errorf("binding TLS listener on %s: %w", tlsAddr, err)
		}
		s.addListener(tlsLn)
		s.log.Infof("listening on %s (TLS)", tlsAddr)

		s.wg.Add(1)
		go s.accept(tlsLn, tlsCfg, rendezvous)
	}

	// The main loop returns once any acceptor reports done; that first
	// report also means shutdown was requested, so Shutdown closes every
	// listener, unblocking the other acceptor too.
	<-rendezvous
	s.Shutdown()
	s.wg.Wait()
	return nil
}

func (s *Server) addListener(ln net.Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, ln)
}

// Shutdown signals every acceptor to stop accepting new connections and
// closes their listeners, unblocking any goroutine currently parked in
// Accept. It does not interrupt connections already in flight. Safe to
// call from outside Run, and safe to call more than once.
func (s *Server) Shutdown() {
	s.shuttingDown.Store(true)

	s.mu.Lock()
	listeners := s.listeners
	s.mu.Unlock()

	for _, ln := range listeners {
		_ = ln.Close()
	}
}

func (s *Server) accept(ln net.Listener, tlsCfg *tls.Config, rendezvous chan<- struct{}) {
	defer s.wg.Done()
	defer func() { rendezvous <- struct{}{} }()

	for {
		if s.shuttingDown.Load() {
			_ = ln.Close()
			return
		}

		conn, err := ln.Accept()
		if err != nil {
			if s.shuttingDown.Load() {
				return
			}
			s.log.Errorf("accept error: %v", err)
			continue
		}

		s.wg.Add(1)
		go s.serve(conn, tlsCfg)
	}
}

func (s *Server) serve(conn net.Conn, tlsCfg *tls.Config) {
	defer s.wg.Done()

	stream, err := transport.New(conn, tlsCfg, s.cfg.KeepAlive.Mode == config.KeepAliveOn)
	if err != nil {
		s.log.Warnf("transport setup failed for %s: %v", conn.RemoteAddr(), err)
		_ = conn.Close()
		return
	}

	fsm := connfsm.New(stream, s.cfg, s.ruleSet, s.fallback, s.log)
	fsm.Run()
}
