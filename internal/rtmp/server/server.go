package server

// RTMP server listener: a TCP accept loop that layers command/media handling
// on top of the handshake + control-burst + connection lifecycle implemented
// in the conn package. Responsibilities:
//   * Listen on configured address (default :1935)
//   * Accept loop spawning handling per connection (via conn.Accept)
//   * Track active connections in a concurrent-safe map
//   * Graceful shutdown: stop accepting, close all connections, wait
//   * Resource-aware capacity logging and optional event hooks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/DishankChauhan/streamX/internal/config"
	"github.com/DishankChauhan/streamX/internal/logger"
	"github.com/DishankChauhan/streamX/internal/resource"
	iconn "github.com/DishankChauhan/streamX/internal/rtmp/conn"
	"github.com/DishankChauhan/streamX/internal/rtmp/server/hooks"
)

// Config holds server configuration knobs. Domain carries the ingest/storage
// settings shared with other entry points (internal/config.Config); ListenAddr
// and the hook fields are specific to this process's wiring.
type Config struct {
	ListenAddr string
	Domain     config.Config

	HookWebhooks    []string // event_type=webhook_url pairs
	HookStdioFormat string   // "json", "env", or "" (disabled)
	HookTimeout     string
	HookConcurrency int
}

// applyDefaults fills zero values with sensible defaults.
func (c *Config) applyDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = fmt.Sprintf(":%d", config.Defaults().RTMPPort)
	}
	if c.Domain.MaxStreams == 0 && c.Domain.StreamsDir == "" {
		c.Domain = config.Defaults()
	}
	if c.HookTimeout == "" {
		c.HookTimeout = "30s"
	}
	if c.HookConcurrency == 0 {
		c.HookConcurrency = 10
	}
}

// Server encapsulates listener + active connection tracking.
type Server struct {
	cfg         Config
	l           net.Listener
	log         *logger.Logger
	reg         *Registry
	monitor     *resource.Monitor
	hookManager *hooks.HookManager

	mu          sync.RWMutex
	conns       map[string]*iconn.Connection
	acceptingWg sync.WaitGroup
	closing     bool
}

// New creates a new, unstarted Server instance.
func New(cfg Config) *Server {
	cfg.applyDefaults()

	mon := resource.NewMonitor(logger.Logger(), 15*time.Second)
	mon.Start()

	hookMgr := initializeHookManager(cfg, slog.New(slog.NewTextHandler(os.Stdout, nil)))

	return &Server{
		cfg:         cfg,
		reg:         NewRegistry(),
		conns:       make(map[string]*iconn.Connection),
		log:         logger.Logger().With("component", "rtmp_server"),
		monitor:     mon,
		hookManager: hookMgr,
	}
}

// Start begins listening and launches the accept loop. Safe to call once;
// repeated calls return an error.
func (s *Server) Start() error {
	if s == nil {
		return errors.New("nil server")
	}
	s.mu.Lock()
	if s.l != nil {
		s.mu.Unlock()
		return errors.New("server already started")
	}
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("listen %s: %w", s.cfg.ListenAddr, err)
	}
	s.l = ln
	s.mu.Unlock()

	s.log.Info("RTMP server listening", "addr", ln.Addr().String())
	s.acceptingWg.Add(1)
	go s.acceptLoop()
	return nil
}

// acceptLoop runs until the listener is closed. Each successful accept
// performs the RTMP handshake via conn.Accept, which internally sends the
// control burst before the caller ever sees the connection.
func (s *Server) acceptLoop() {
	defer s.acceptingWg.Done()
	for {
		s.mu.RLock()
		l := s.l
		s.mu.RUnlock()
		if l == nil {
			return
		}
		raw, err := l.Accept()
		if err != nil {
			s.mu.RLock()
			closing := s.closing
			s.mu.RUnlock()
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			if closing || errors.Is(err, net.ErrClosed) {
				return
			}
			s.log.Warn("accept error", "error", err)
			return
		}

		single := &singleConnListener{conn: raw}
		c, err := iconn.Accept(single)
		if err != nil { // handshake failure already logged; keep accepting.
			continue
		}
		s.mu.Lock()
		s.conns[c.ID()] = c
		s.mu.Unlock()
		s.log.Info("connection registered", "conn_id", c.ID(), "remote", raw.RemoteAddr().String())

		if tcpAddr, ok := raw.RemoteAddr().(*net.TCPAddr); ok {
			s.triggerHookEvent(hooks.EventConnectionAccept, c.ID(), "", map[string]interface{}{
				"client_ip":   tcpAddr.IP.String(),
				"client_port": tcpAddr.Port,
			})
		}

		attachCommandHandling(c, s.reg, &s.cfg, s.monitor, s.hookManager, s.log)
		// Start readLoop after the message handler is attached to avoid races.
		c.Start()

		go s.watchConnection(c)
	}
}

// watchConnection removes a connection from the tracked set once it tears
// down, whether from an explicit Stop(), client disconnect, or protocol error.
func (s *Server) watchConnection(c *iconn.Connection) {
	<-c.Done()
	s.mu.Lock()
	delete(s.conns, c.ID())
	s.mu.Unlock()
	s.triggerHookEvent(hooks.EventConnectionClose, c.ID(), "", nil)
}

// Stop gracefully shuts down the server: stops accepting new connections,
// closes all active ones, and waits for the accept loop to exit.
func (s *Server) Stop() error {
	if s == nil {
		return errors.New("nil server")
	}
	s.mu.Lock()
	if s.l == nil {
		s.mu.Unlock()
		return nil
	}
	s.closing = true
	l := s.l
	s.l = nil
	s.mu.Unlock()
	_ = l.Close()

	s.mu.RLock()
	conns := make([]*iconn.Connection, 0, len(s.conns))
	for _, c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.RUnlock()
	for _, c := range conns {
		_ = c.Close()
	}

	if s.monitor != nil {
		s.monitor.Stop()
	}
	if s.hookManager != nil {
		if err := s.hookManager.Close(); err != nil {
			s.log.Error("hook manager close failed", "error", err)
		}
	}

	s.acceptingWg.Wait()
	s.log.Info("RTMP server stopped")
	return nil
}

// Addr returns the bound listener address (nil if not started).
func (s *Server) Addr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.l == nil {
		return nil
	}
	return s.l.Addr()
}

// ConnectionCount returns the current number of tracked active connections.
func (s *Server) ConnectionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conns)
}

// singleConnListener adapts a single pre-accepted net.Conn to net.Listener so
// conn.Accept (written against net.Listener) can run the handshake on a
// connection this server already pulled off the real listener.
type singleConnListener struct{ conn net.Conn }

func (s *singleConnListener) Accept() (net.Conn, error) {
	if s.conn == nil {
		return nil, errors.New("no conn")
	}
	c := s.conn
	s.conn = nil
	return c, nil
}
func (s *singleConnListener) Close() error {
	if s.conn != nil {
		_ = s.conn.Close()
	}
	return nil
}
func (s *singleConnListener) Addr() net.Addr {
	if s.conn != nil {
		return s.conn.LocalAddr()
	}
	return &net.TCPAddr{}
}

// initializeHookManager builds the hook manager from server config and wires
// any configured webhook sinks plus optional stdio output.
func initializeHookManager(cfg Config, slogger *slog.Logger) *hooks.HookManager {
	hookConfig := hooks.HookConfig{
		Timeout:     cfg.HookTimeout,
		Concurrency: cfg.HookConcurrency,
		StdioFormat: cfg.HookStdioFormat,
	}
	hookManager := hooks.NewHookManager(hookConfig, slogger)

	if err := registerWebhookHooks(hookManager, cfg.HookWebhooks, slogger); err != nil {
		slogger.Error("failed to register webhook hooks", "error", err)
	}
	if cfg.HookStdioFormat != "" {
		if err := hookManager.EnableStdioOutput(cfg.HookStdioFormat); err != nil {
			slogger.Error("failed to enable stdio hook output", "error", err)
		}
	}

	return hookManager
}

// triggerHookEvent safely fires a hook event; a no-op when hooks are disabled.
func (s *Server) triggerHookEvent(eventType hooks.EventType, connID, streamKey string, data map[string]interface{}) {
	if s == nil || s.hookManager == nil {
		return
	}
	event := hooks.NewEvent(eventType).WithConnID(connID).WithStreamKey(streamKey)
	for key, value := range data {
		event.WithData(key, value)
	}
	s.hookManager.TriggerEvent(context.Background(), *event)
}

// registerWebhookHooks parses "event_type=webhook_url" pairs and registers a
// WebhookHook for each.
func registerWebhookHooks(hookManager *hooks.HookManager, webhooks []string, slogger *slog.Logger) error {
	for i, webhook := range webhooks {
		parts := strings.SplitN(webhook, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid webhook hook format: %s", webhook)
		}
		eventType := hooks.EventType(parts[0])
		webhookURL := parts[1]

		webhookHook := hooks.NewWebhookHook(fmt.Sprintf("webhook_%d", i), webhookURL, 30*time.Second)
		if err := hookManager.RegisterHook(eventType, webhookHook); err != nil {
			return fmt.Errorf("register webhook hook %s: %w", webhook, err)
		}
		slogger.Info("registered webhook hook", "event_type", eventType, "webhook_url", webhookURL)
	}
	return nil
}
