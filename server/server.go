// Package server implements the listening side of a CoreRemoting channel
// (spec §4.1/§4.6/§4.7): it accepts transports, runs the hello/auth
// handshake on each, and hands every resulting session's call traffic to
// a dispatch.Dispatcher. Modeled on the teacher's
// internal/protocol/portmap.Server Serve/serveTCP/Stop shape -- accept
// loop plus per-connection goroutine, a shutdown channel closed exactly
// once -- generalized from one fixed RPC program to an arbitrary
// registry.Registry of services.
package server

import (
	"context"
	"crypto/rsa"
	"sync"
	"time"

	"github.com/coreremoting/coreremoting/authprovider"
	"github.com/coreremoting/coreremoting/dispatch"
	"github.com/coreremoting/coreremoting/internal/logger"
	"github.com/coreremoting/coreremoting/pkg/metrics"
	"github.com/coreremoting/coreremoting/protocol"
	"github.com/coreremoting/coreremoting/registry"
	"github.com/coreremoting/coreremoting/session"
	"github.com/coreremoting/coreremoting/transport"
)

// Config holds what a Server needs beyond a Listener and a
// registry.Registry: the ambient crypto/auth/timeout knobs of spec §6's
// configuration keys.
type Config struct {
	// ServerKey is the server's own RSA key pair, used to unwrap a
	// client's hello key exchange and to sign outbound encrypted
	// envelopes. Required when RequireEncryption is true.
	ServerKey *rsa.PrivateKey

	// RequireEncryption rejects any hello that does not request
	// encryption; false accepts both plaintext and encrypted sessions.
	RequireEncryption bool

	AuthProvider authprovider.Provider
	Serializer   protocol.Serializer

	// Workers sizes the dispatcher's bounded worker pool; 0 defaults to
	// runtime.NumCPU() (spec §5).
	Workers int

	// AuthTimeout bounds how long the server waits for a client's auth
	// envelope after the hello exchange completes. 0 means no deadline.
	AuthTimeout time.Duration

	// SweepInterval/MaxInactiveAge configure the idle-session sweeper
	// (spec §4.6). Zero SweepInterval disables sweeping.
	SweepInterval  time.Duration
	MaxInactiveAge time.Duration

	// CallMetrics/SessionMetrics/DelegateMetrics record outcome counters
	// and latency histograms for dispatch, session lifecycle, and
	// delegate invocation (spec §4.6/§4.8/§4.9). Any of them may be nil,
	// in which case that surface records nothing.
	CallMetrics     *metrics.CallMetrics
	SessionMetrics  *metrics.SessionMetrics
	DelegateMetrics *metrics.DelegateMetrics
}

// Server accepts connections on a transport.Listener, running each
// through the CoreRemoting handshake and dispatch pipeline.
type Server struct {
	cfg      Config
	listener transport.Listener

	Sessions   *session.Registry
	dispatcher *dispatch.Dispatcher
	sweeper    *session.Sweeper

	shutdown     chan struct{}
	shutdownOnce sync.Once
	wg           sync.WaitGroup
}

// New constructs a Server. reg is the service registry consulted by every
// inbound call (spec §4.5).
func New(listener transport.Listener, reg *registry.Registry, cfg Config) *Server {
	s := &Server{
		cfg:      cfg,
		listener: listener,
		Sessions: session.NewRegistry(),
		shutdown: make(chan struct{}),
	}
	s.dispatcher = dispatch.New(reg, cfg.Serializer, cfg.Workers, cfg.CallMetrics)

	s.Sessions.OnCreated(func(sess *session.Session) {
		sess.Metrics = cfg.DelegateMetrics
		cfg.SessionMetrics.RecordOpened()
	})

	if cfg.SweepInterval > 0 {
		s.sweeper = session.NewSweeper(s.Sessions, cfg.SweepInterval, cfg.MaxInactiveAge)
		s.sweeper.OnExpired(func(sess *session.Session) {
			logger.Info("server: sweeping idle session", "session", sess.ID)
			s.disposeSession(sess, "idle_timeout")
		})
	}
	return s
}

// disposeSession disposes sess and records its close reason (one of
// "client_disconnect", "idle_timeout", "handshake_failed",
// "server_shutdown") on cfg.SessionMetrics.
func (s *Server) disposeSession(sess *session.Session, reason string) {
	_ = sess.Dispose()
	s.cfg.SessionMetrics.RecordClosed(reason)
}

// Serve accepts connections until ctx is cancelled or Stop is called. It
// blocks until every in-flight connection goroutine has returned.
func (s *Server) Serve(ctx context.Context) error {
	if s.sweeper != nil {
		s.sweeper.Start(ctx)
		defer s.sweeper.Stop()
	}

	go func() {
		select {
		case <-ctx.Done():
			s.Stop()
		case <-s.shutdown:
		}
	}()

	logger.Info("server: listening", "address", s.listener.Addr())

	for {
		t, err := s.listener.Accept(ctx)
		if err != nil {
			select {
			case <-s.shutdown:
				s.wg.Wait()
				return nil
			default:
				logger.Debug("server: accept error", "error", err)
				s.wg.Wait()
				return err
			}
		}

		s.wg.Add(1)
		go func(t transport.Transport) {
			defer s.wg.Done()
			s.handleConnection(ctx, t)
		}(t)
	}
}

// Stop closes the listener and disposes every connected session,
// unblocking Serve and every connection goroutine's pending Receive.
func (s *Server) Stop() {
	s.shutdownOnce.Do(func() {
		close(s.shutdown)
		_ = s.listener.Close()
		for _, sess := range s.Sessions.Iterate() {
			s.disposeSession(sess, "server_shutdown")
		}
		s.dispatcher.Stop()
	})
}
