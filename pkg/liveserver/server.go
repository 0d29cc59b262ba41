package liveserver

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"dex_trader/internal/core"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

var (
	liveActiveConnections = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "dex_trader_live_active_connections",
		Help: "Current number of active live WebSocket connections",
	}, []string{"endpoint"})

	liveRejectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dex_trader_live_rejected_total",
		Help: "Total number of rejected live WebSocket connections",
	}, []string{"reason"})
)

func init() {
	prometheus.MustRegister(liveActiveConnections)
	prometheus.MustRegister(liveRejectedTotal)
}

// Server accepts live WebSocket clients and attaches them to a Hub
type Server struct {
	hub            *Hub
	srv            *http.Server
	logger         core.ILogger
	upgrader       websocket.Upgrader
	allowedOrigins []string
	mu             sync.Mutex

	maxConnections int
	connSemaphore  chan struct{}

	rateLimitEnabled bool
	ipLimiters       sync.Map // map[string]*rate.Limiter
	rateLimit        rate.Limit
	rateBurst        int

	// production rejects the "*" origin
	production bool
}

func NewServer(hub *Hub, logger core.ILogger, allowedOrigins []string) *Server {
	s := &Server{
		hub:              hub,
		logger:           logger.WithField("component", "live_server"),
		allowedOrigins:   allowedOrigins,
		maxConnections:   1000,
		connSemaphore:    make(chan struct{}, 1000),
		rateLimitEnabled: true,
		rateLimit:        10.0,
		rateBurst:        20,
	}

	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}

	return s
}

// checkOrigin validates the connection origin against the whitelist
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		s.logger.Warn("Rejected live connection with missing Origin header", "remote_addr", r.RemoteAddr)
		liveRejectedTotal.WithLabelValues("invalid_origin").Inc()
		return false
	}

	parsedOrigin, err := url.Parse(origin)
	if err != nil {
		s.logger.Warn("Rejected live connection with invalid Origin", "origin", origin, "error", err)
		liveRejectedTotal.WithLabelValues("invalid_origin").Inc()
		return false
	}
	originStr := parsedOrigin.Scheme + "://" + parsedOrigin.Host

	s.mu.Lock()
	production := s.production
	s.mu.Unlock()

	for _, allowed := range s.allowedOrigins {
		if allowed == "*" {
			if production {
				s.logger.Warn("Rejected wildcard origin in production mode", "origin", origin, "remote_addr", r.RemoteAddr)
				liveRejectedTotal.WithLabelValues("invalid_origin").Inc()
				return false
			}
			return true
		}
		if originStr == allowed {
			return true
		}
	}

	s.logger.Warn("Rejected live connection from unauthorized origin",
		"origin", origin,
		"remote_addr", r.RemoteAddr)
	liveRejectedTotal.WithLabelValues("invalid_origin").Inc()
	return false
}

// Handler returns the live endpoints: /ws, /health and /metrics
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// Start serves until ctx is done or the listener fails
func (s *Server) Start(ctx context.Context, addr string) error {
	s.mu.Lock()
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv := s.srv
	s.mu.Unlock()

	s.logger.Info("Starting live server", "addr", addr)

	errChan := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		return s.Stop(context.Background())
	}
}

func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.srv == nil {
		return nil
	}

	s.logger.Info("Stopping live server")
	err := s.srv.Shutdown(ctx)
	s.srv = nil
	return err
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Limits apply before the upgrade allocates anything
	if s.rateLimitEnabled {
		ip := s.getRemoteIP(r)
		if !s.getIPLimiter(ip).Allow() {
			s.logger.Warn("IP rate limit exceeded", "ip", ip)
			liveRejectedTotal.WithLabelValues("rate_limit").Inc()
			http.Error(w, "Too many requests", http.StatusTooManyRequests)
			return
		}
	}

	s.mu.Lock()
	sem := s.connSemaphore
	s.mu.Unlock()

	select {
	case sem <- struct{}{}:
		liveActiveConnections.WithLabelValues(r.URL.Path).Inc()
		defer func() {
			<-sem
			liveActiveConnections.WithLabelValues(r.URL.Path).Dec()
		}()
	default:
		s.logger.Warn("Max connections reached")
		liveRejectedTotal.WithLabelValues("connection_limit").Inc()
		http.Error(w, "Server busy", http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("WebSocket upgrade failed", "error", err)
		return
	}

	client := NewClient(uuid.NewString())
	// A market can be picked at connect time with ?marketId=
	client.Watch(r.URL.Query().Get("marketId"))
	s.hub.Register(client)
	s.logger.Info("Client connected", "client_id", client.id, "remote_addr", r.RemoteAddr)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.writePump(conn, client)
	}()
	go func() {
		defer wg.Done()
		s.readPump(conn, client)
	}()
	wg.Wait()

	conn.Close()
	s.logger.Info("Client disconnected", "client_id", client.id)
}

func (s *Server) writePump(conn *websocket.Conn, client *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-client.GetSendChan():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(msg); err != nil {
				s.logger.Warn("Write error", "client_id", client.id, "error", err)
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump handles pongs and market subscription commands
func (s *Server) readPump(conn *websocket.Conn, client *Client) {
	defer s.hub.Unregister(client)

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.logger.Warn("Read error", "client_id", client.id, "error", err)
			}
			return
		}
		s.handleCommand(client, data)
	}
}

func (s *Server) handleCommand(client *Client, data []byte) {
	var cmd Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		client.Send(NewMessage(TypeError, "invalid command"))
		return
	}

	switch cmd.Op {
	case OpSubscribe:
		client.Watch(cmd.MarketID)
		s.logger.Debug("Client watching market", "client_id", client.id, "market_id", cmd.MarketID)
	case OpUnsubscribe:
		client.Watch("")
	default:
		client.Send(NewMessage(TypeError, "unknown op: "+cmd.Op))
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"clients": s.hub.ClientCount(),
		"time":    time.Now().Unix(),
	})
}

// Broadcast sends data to every client
func (s *Server) Broadcast(msgType string, data interface{}) {
	s.hub.Broadcast(NewMessage(msgType, data))
}

// BroadcastMarket sends data to the clients watching marketID
func (s *Server) BroadcastMarket(msgType, marketID string, data interface{}) {
	s.hub.Broadcast(NewMarketMessage(msgType, marketID, data))
}

func (s *Server) ClientCount() int {
	return s.hub.ClientCount()
}

func (s *Server) Hub() *Hub {
	return s.hub
}

func (s *Server) SetProduction(prod bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.production = prod
}

// SetMaxConnections resizes the connection semaphore
func (s *Server) SetMaxConnections(max int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maxConnections = max
	s.connSemaphore = make(chan struct{}, max)
}

// SetRateLimit updates the per-IP connect rate; existing limiters are discarded
func (s *Server) SetRateLimit(limit float64, burst int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rateLimit = rate.Limit(limit)
	s.rateBurst = burst
	s.ipLimiters.Range(func(key, _ interface{}) bool {
		s.ipLimiters.Delete(key)
		return true
	})
}

func (s *Server) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.srv != nil
}

func (s *Server) getRemoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (s *Server) getIPLimiter(ip string) *rate.Limiter {
	if val, ok := s.ipLimiters.Load(ip); ok {
		return val.(*rate.Limiter)
	}

	s.mu.Lock()
	limit, burst := s.rateLimit, s.rateBurst
	s.mu.Unlock()

	actual, _ := s.ipLimiters.LoadOrStore(ip, rate.NewLimiter(limit, burst))
	return actual.(*rate.Limiter)
}
