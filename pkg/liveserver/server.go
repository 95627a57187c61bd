package liveserver

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/url"
	"sync"
	"ticket_desk/internal/core"
	"ticket_desk/internal/submit"
	"ticket_desk/internal/ticket"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

var (
	websocketActiveConnections = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "websocket_active_connections",
		Help: "Current number of active WebSocket connections",
	}, []string{"endpoint"})

	websocketRejectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "websocket_rejected_total",
		Help: "Total number of rejected WebSocket connections",
	}, []string{"reason"})

	apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ticket_api_requests_total",
		Help: "Total ticket API requests",
	}, []string{"endpoint", "status"})
)

func init() {
	prometheus.MustRegister(websocketActiveConnections)
	prometheus.MustRegister(websocketRejectedTotal)
	prometheus.MustRegister(apiRequestsTotal)
}

// Config holds the server's tunables
type Config struct {
	AllowedOrigins []string
	MaxConnections int
	RateLimit      float64
	RateBurst      int
	Production     bool
}

// Server manages the HTTP server for the ticket API and WebSocket price stream
type Server struct {
	hub       *Hub
	srv       *http.Server
	logger    core.ILogger
	svc       *submit.Service
	precision core.IPrecisionSource
	feed      interface{ CheckHealth() error }

	staticHandler  http.Handler
	upgrader       websocket.Upgrader
	allowedOrigins []string
	mu             sync.Mutex

	// Connection limits
	maxConnections int
	connSemaphore  chan struct{}

	// Per-IP rate limiting
	ipLimiters sync.Map // map[string]*rate.Limiter
	rateLimit  rate.Limit
	rateBurst  int

	production bool
}

// NewServer creates a new Server
func NewServer(hub *Hub, svc *submit.Service, precision core.IPrecisionSource, cfg Config, logger core.ILogger) *Server {
	if cfg.MaxConnections <= 0 {
		cfg.MaxConnections = 1000
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 10.0
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 20
	}

	s := &Server{
		hub:            hub,
		logger:         logger.WithField("component", "live_server"),
		svc:            svc,
		precision:      precision,
		staticHandler:  http.FileServer(http.Dir("web")),
		allowedOrigins: cfg.AllowedOrigins,
		maxConnections: cfg.MaxConnections,
		connSemaphore:  make(chan struct{}, cfg.MaxConnections),
		rateLimit:      rate.Limit(cfg.RateLimit),
		rateBurst:      cfg.RateBurst,
		production:     cfg.Production,
	}

	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}

	return s
}

// SetFeedHealth registers the feed health check surfaced by /health
func (s *Server) SetFeedHealth(feed interface{ CheckHealth() error }) {
	s.feed = feed
}

// checkOrigin validates the WebSocket connection origin against the whitelist
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")

	if origin == "" {
		s.logger.Warn("Rejected WebSocket connection with missing Origin header",
			"remote_addr", r.RemoteAddr)
		return false
	}

	parsedOrigin, err := url.Parse(origin)
	if err != nil {
		s.logger.Warn("Rejected WebSocket connection with invalid Origin",
			"origin", origin, "error", err)
		return false
	}

	originStr := parsedOrigin.Scheme + "://" + parsedOrigin.Host

	for _, allowed := range s.allowedOrigins {
		if allowed == "*" {
			if s.production {
				s.logger.Warn("Rejected wildcard origin in production mode",
					"origin", origin, "remote_addr", r.RemoteAddr)
				websocketRejectedTotal.WithLabelValues("invalid_origin").Inc()
				return false
			}
			s.logger.Warn("WebSocket connection allowed via wildcard origin (insecure for production)",
				"origin", origin, "remote_addr", r.RemoteAddr)
			return true
		}
		if originStr == allowed {
			return true
		}
	}

	s.logger.Warn("Rejected WebSocket connection from unauthorized origin",
		"origin", origin,
		"remote_addr", r.RemoteAddr,
		"allowed_origins", s.allowedOrigins)
	websocketRejectedTotal.WithLabelValues("invalid_origin").Inc()
	return false
}

// Start starts the HTTP server and blocks until ctx is cancelled
func (s *Server) Start(ctx context.Context, addr string) error {
	s.mu.Lock()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/ticket/submit", s.handleSubmit)
	mux.HandleFunc("/api/ticket/validate", s.handleValidate)
	mux.HandleFunc("/api/ticket/estimate", s.handleEstimate)
	mux.HandleFunc("/api/precision", s.handlePrecision)
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", s.staticHandler)

	s.srv = &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	s.mu.Unlock()

	s.logger.Info("Starting live server", "addr", addr)

	errChan := make(chan error, 1)
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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

// Stop gracefully stops the server
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.srv == nil {
		return nil
	}

	s.logger.Info("Stopping live server")
	return s.srv.Shutdown(ctx)
}

// ticketRequest is the request body shared by the ticket endpoints
type ticketRequest struct {
	Symbol string       `json:"symbol"`
	Draft  ticket.Draft `json:"draft"`
}

func (s *Server) decodeTicketRequest(w http.ResponseWriter, r *http.Request, endpoint string) (*ticketRequest, bool) {
	if r.Method != http.MethodPost {
		apiRequestsTotal.WithLabelValues(endpoint, "405").Inc()
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return nil, false
	}

	var req ticketRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		apiRequestsTotal.WithLabelValues(endpoint, "400").Inc()
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return nil, false
	}
	if req.Symbol == "" {
		apiRequestsTotal.WithLabelValues(endpoint, "400").Inc()
		http.Error(w, "Symbol is required", http.StatusBadRequest)
		return nil, false
	}
	return &req, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// handleSubmit validates a draft and journals it when accepted
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeTicketRequest(w, r, "submit")
	if !ok {
		return
	}

	outcome, err := s.svc.Submit(r.Context(), req.Symbol, req.Draft)
	if err != nil {
		s.logger.Error("Submit failed", "symbol", req.Symbol, "error", err)
		apiRequestsTotal.WithLabelValues("submit", "500").Inc()
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if outcome.Receipt != nil {
		s.hub.Broadcast(NewReceiptMessage(outcome.Receipt))
	}

	apiRequestsTotal.WithLabelValues("submit", "200").Inc()
	writeJSON(w, http.StatusOK, outcome)
}

// handleValidate runs a dry-run validation for the form's live mode
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeTicketRequest(w, r, "validate")
	if !ok {
		return
	}

	outcome := s.svc.Validate(r.Context(), req.Symbol, req.Draft)
	apiRequestsTotal.WithLabelValues("validate", "200").Inc()
	writeJSON(w, http.StatusOK, outcome)
}

// handleEstimate returns the display total for the current draft
func (s *Server) handleEstimate(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeTicketRequest(w, r, "estimate")
	if !ok {
		return
	}

	total := s.svc.Estimate(r.Context(), req.Symbol, req.Draft)
	apiRequestsTotal.WithLabelValues("estimate", "200").Inc()
	writeJSON(w, http.StatusOK, map[string]string{"total": total})
}

// handlePrecision returns display decimals for an asset
func (s *Server) handlePrecision(w http.ResponseWriter, r *http.Request) {
	asset := r.URL.Query().Get("asset")
	if asset == "" {
		http.Error(w, "Asset is required", http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{
		"amount_decimals": s.precision.AmountDecimals(asset),
		"price_decimals":  s.precision.PriceDecimals(asset),
	})
}

// handleHealth handles the health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	httpStatus := http.StatusOK
	var feedStatus string

	if s.feed != nil {
		if err := s.feed.CheckHealth(); err != nil {
			status = "degraded"
			feedStatus = err.Error()
			httpStatus = http.StatusServiceUnavailable
		} else {
			feedStatus = "ok"
		}
	}

	writeJSON(w, httpStatus, map[string]interface{}{
		"status":  status,
		"feed":    feedStatus,
		"clients": s.hub.ClientCount(),
		"time":    time.Now().Unix(),
	})
}

// handleWebSocket handles WebSocket upgrade and client lifecycle
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Rate limits apply before the upgrade consumes resources
	ip := s.getRemoteIP(r)
	limiter := s.getIPLimiter(ip)
	if !limiter.Allow() {
		s.logger.Warn("IP rate limit exceeded", "ip", ip)
		websocketRejectedTotal.WithLabelValues("rate_limit").Inc()
		http.Error(w, "Too many requests", http.StatusTooManyRequests)
		return
	}

	select {
	case s.connSemaphore <- struct{}{}:
		websocketActiveConnections.WithLabelValues(r.URL.Path).Inc()
		defer func() {
			<-s.connSemaphore
			websocketActiveConnections.WithLabelValues(r.URL.Path).Dec()
		}()
	default:
		s.logger.Warn("Max connections reached")
		websocketRejectedTotal.WithLabelValues("connection_limit").Inc()
		http.Error(w, "Server busy", http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("WebSocket upgrade failed", "error", err)
		return
	}

	clientID := uuid.New().String()
	client := NewClient(clientID)
	s.hub.Register(client)

	s.logger.Info("Client connected", "client_id", clientID, "remote_addr", r.RemoteAddr)

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

	s.hub.Unregister(client)
	conn.Close()

	s.logger.Info("Client disconnected", "client_id", clientID)
}

// writePump sends hub messages to the WebSocket connection
func (s *Server) writePump(conn *websocket.Conn, client *Client) {
	ticker := time.NewTicker(54 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-client.GetSendChan():
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))

			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := conn.WriteJSON(msg); err != nil {
				s.logger.Warn("Write error", "client_id", client.id, "error", err)
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump drains the connection; the server only pushes data
func (s *Server) readPump(conn *websocket.Conn, client *Client) {
	defer func() {
		s.hub.Unregister(client)
	}()

	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.logger.Warn("Read error", "client_id", client.id, "error", err)
			}
			break
		}
	}
}

// getRemoteIP extracts the client IP address
func (s *Server) getRemoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// getIPLimiter returns or creates a rate limiter for the given IP
func (s *Server) getIPLimiter(ip string) *rate.Limiter {
	if val, ok := s.ipLimiters.Load(ip); ok {
		return val.(*rate.Limiter)
	}

	newLimiter := rate.NewLimiter(s.rateLimit, s.rateBurst)
	actual, _ := s.ipLimiters.LoadOrStore(ip, newLimiter)
	return actual.(*rate.Limiter)
}

// ClientCount returns the number of connected clients
func (s *Server) ClientCount() int {
	return s.hub.ClientCount()
}

// SetStaticDir changes the static file directory
func (s *Server) SetStaticDir(dir string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.staticHandler = http.FileServer(http.Dir(dir))
	s.logger.Info("Static directory updated", "dir", dir)
}
