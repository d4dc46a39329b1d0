package channel

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/bhonepyisone/cliick-assistant/internal/domain"
	"github.com/bhonepyisone/cliick-assistant/internal/metrics"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// WebConfig configures the website chat widget channel.
type WebConfig struct {
	Host          string
	Port          int
	DefaultShopID string
	Logger        *slog.Logger
}

// Web serves the chat widget: each websocket connection is one visitor
// conversation. Conversation IDs are minted server-side so a visitor
// keeps one transcript for the lifetime of the socket.
type Web struct {
	host          string
	port          int
	defaultShopID string
	bus           domain.MessageBus
	logger        *slog.Logger
	server        *http.Server
	upgrader      websocket.Upgrader

	mu    sync.RWMutex
	conns map[string]*webConn // conversation ID -> connection
}

type webConn struct {
	ws   *websocket.Conn
	send chan domain.Message
}

// webInbound is what the widget sends over the socket.
type webInbound struct {
	Content     string `json:"content"`
	DisplayText string `json:"display_text,omitempty"`
	ShopID      string `json:"shop_id,omitempty"`
}

// webOutbound wraps an assistant message for the widget, echoing the
// conversation ID so the client can persist it across reconnects.
type webOutbound struct {
	ConversationID string         `json:"conversation_id"`
	Message        domain.Message `json:"message"`
}

func NewWeb(cfg WebConfig) *Web {
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Web{
		host:          cfg.Host,
		port:          cfg.Port,
		defaultShopID: cfg.DefaultShopID,
		logger:        cfg.Logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// The widget is embedded on arbitrary storefront pages.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		conns: make(map[string]*webConn),
	}
}

func (w *Web) Name() string { return "web" }

func (w *Web) Start(ctx context.Context, bus domain.MessageBus) error {
	w.bus = bus

	bus.OnOutbound("web", w.deliver)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", w.handleWS)
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, _ *http.Request) {
		rw.WriteHeader(http.StatusOK)
		rw.Write([]byte("ok"))
	})
	mux.Handle("/metrics", metrics.Default.Handler())

	w.server = &http.Server{
		Addr:              net.JoinHostPort(w.host, fmt.Sprintf("%d", w.port)),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	w.logger.Info("web widget server starting", "addr", w.server.Addr)

	errCh := make(chan error, 1)
	go func() {
		if err := w.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		w.logger.Info("web widget server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return w.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return fmt.Errorf("web widget server: %w", err)
	}
}

func (w *Web) handleWS(rw http.ResponseWriter, r *http.Request) {
	ws, err := w.upgrader.Upgrade(rw, r, nil)
	if err != nil {
		w.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	// Returning visitors present their previous conversation ID.
	convID := r.URL.Query().Get("conversation_id")
	if convID == "" {
		convID = uuid.NewString()
	}
	shopID := r.URL.Query().Get("shop_id")
	if shopID == "" {
		shopID = w.defaultShopID
	}

	conn := &webConn{ws: ws, send: make(chan domain.Message, 16)}
	w.mu.Lock()
	if old, ok := w.conns[convID]; ok {
		close(old.send)
	}
	w.conns[convID] = conn
	w.mu.Unlock()

	w.logger.Info("widget connected", "conversation_id", convID, "shop_id", shopID)

	go w.writeLoop(convID, conn)
	w.readLoop(convID, shopID, conn)
}

func (w *Web) readLoop(convID, shopID string, conn *webConn) {
	defer func() {
		w.mu.Lock()
		if w.conns[convID] == conn {
			delete(w.conns, convID)
			close(conn.send)
		}
		w.mu.Unlock()
		conn.ws.Close()
	}()

	conn.ws.SetReadLimit(1 << 16)
	conn.ws.SetReadDeadline(time.Now().Add(pongWait))
	conn.ws.SetPongHandler(func(string) error {
		return conn.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var in webInbound
		if err := conn.ws.ReadJSON(&in); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				w.logger.Warn("widget read error", "conversation_id", convID, "error", err)
			}
			return
		}
		if in.Content == "" {
			continue
		}
		sid := in.ShopID
		if sid == "" {
			sid = shopID
		}
		w.bus.Publish(domain.InboundTurn{
			Channel:        "web",
			ShopID:         sid,
			ConversationID: convID,
			SenderID:       convID,
			Payload:        in.Content,
			DisplayText:    in.DisplayText,
			Timestamp:      time.Now(),
		})
	}
}

func (w *Web) writeLoop(convID string, conn *webConn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.ws.Close()
	}()

	for {
		select {
		case msg, ok := <-conn.send:
			conn.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.ws.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			out := webOutbound{ConversationID: convID, Message: msg}
			if err := conn.ws.WriteJSON(out); err != nil {
				w.logger.Warn("widget write error", "conversation_id", convID, "error", err)
				return
			}
		case <-ticker.C:
			conn.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (w *Web) deliver(msg domain.OutboundMessage) {
	w.mu.RLock()
	conn, ok := w.conns[msg.ConversationID]
	w.mu.RUnlock()
	if !ok {
		w.logger.Debug("widget gone, dropping outbound", "conversation_id", msg.ConversationID)
		return
	}
	select {
	case conn.send <- msg.Message:
	default:
		w.logger.Warn("widget send buffer full, dropping message", "conversation_id", msg.ConversationID)
	}
}
