package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vaahk/wxdecode/internal/decoder"
	"github.com/vaahk/wxdecode/internal/weather"
	"github.com/vaahk/wxdecode/pkg/logger"
)

// Message types
const (
	MessageTypeWxUpdate   = "wx_update"  // Server pushes a new decoded report
	MessageTypeFeedState  = "feed_state" // Server pushes a feed state change
	MessageTypeSubscribe  = "subscribe"  // Client picks the report kinds it wants
	MessageTypeSubscribed = "subscribed" // Server acknowledges a subscription
	MessageTypeDecode     = "decode"     // Client asks for a report to be decoded
	MessageTypeDecoded    = "decoded"    // Server answers a decode request
	MessageTypeError      = "error"
)

const writeWait = 10 * time.Second

// Message represents a WebSocket message
type Message struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

// MessageHandler handles client messages the hub does not handle itself
type MessageHandler interface {
	HandleMessage(client *Client, messageType string, data map[string]any) error
}

// ConnectionObserver is told about clients coming and going.
type ConnectionObserver interface {
	ClientConnected()
	ClientDisconnected()
}

// Client represents a WebSocket client
type Client struct {
	conn      *websocket.Conn
	send      chan *Message
	server    *Server
	mu        sync.Mutex
	closed    bool
	closeChan chan struct{}
	kinds     map[decoder.Kind]bool // nil means every kind
}

// Server is the hub fanning weather updates out to browsers
type Server struct {
	clients        map[*Client]bool
	register       chan *Client
	unregister     chan *Client
	broadcast      chan *Message
	upgrader       websocket.Upgrader
	logger         *logger.Logger
	mu             sync.RWMutex
	messageHandler MessageHandler
	observer       ConnectionObserver
	welcome        func() []*Message
	done           chan struct{}
}

// NewServer creates a new WebSocket server
func NewServer(log *logger.Logger) *Server {
	return &Server{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Message, 64),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins
			},
		},
		logger: log.Named("web-socket"),
	}
}

// SetMessageHandler sets the handler for message types the hub does not know
func (s *Server) SetMessageHandler(handler MessageHandler) {
	s.messageHandler = handler
}

// SetObserver registers a connection observer, typically the metrics.
func (s *Server) SetObserver(o ConnectionObserver) {
	s.observer = o
}

// SetWelcome sets the messages sent to every new client before any broadcast.
func (s *Server) SetWelcome(fn func() []*Message) {
	s.welcome = fn
}

// ClientCount returns the number of registered clients
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Run starts the hub loop. It returns when ctx is done.
func (s *Server) Run(ctx context.Context) {
	s.logger.Info("Starting WebSocket server")

	for {
		select {
		case <-ctx.Done():
			close(s.done)
			s.mu.Lock()
			for client := range s.clients {
				s.removeLocked(client)
			}
			s.mu.Unlock()
			s.logger.Info("WebSocket server stopped")
			return

		case client := <-s.register:
			s.mu.Lock()
			s.clients[client] = true
			clientCount := len(s.clients)
			s.mu.Unlock()
			if s.observer != nil {
				s.observer.ClientConnected()
			}
			s.logger.Debug("Client registered", logger.Int("client_count", clientCount))

		case client := <-s.unregister:
			s.mu.Lock()
			s.removeLocked(client)
			clientCount := len(s.clients)
			s.mu.Unlock()
			s.logger.Debug("Client unregistered", logger.Int("client_count", clientCount))

		case message := <-s.broadcast:
			s.mu.RLock()
			clientsToRemove := make([]*Client, 0)
			for client := range s.clients {
				if !client.wants(message) {
					continue
				}
				if !client.SendMessage(message) {
					clientsToRemove = append(clientsToRemove, client)
				}
			}
			s.mu.RUnlock()

			// Clean up slow or closed clients
			if len(clientsToRemove) > 0 {
				s.mu.Lock()
				for _, client := range clientsToRemove {
					s.removeLocked(client)
				}
				s.mu.Unlock()
			}
		}
	}
}

// removeLocked drops a registered client. s.mu must be held.
func (s *Server) removeLocked(client *Client) {
	if _, ok := s.clients[client]; !ok {
		return
	}
	delete(s.clients, client)
	s.closeSend(client)
	if s.observer != nil {
		s.observer.ClientDisconnected()
	}
}

func (s *Server) closeSend(client *Client) {
	client.mu.Lock()
	defer client.mu.Unlock()
	if !client.closed {
		client.closed = true
		close(client.send)
	}
}

// HandleConnection upgrades the request and starts the client pumps
func (s *Server) HandleConnection(w http.ResponseWriter, r *http.Request) {
	s.logger.Info("Handling new WebSocket connection request",
		logger.String("remote_addr", r.RemoteAddr),
		logger.String("user_agent", r.UserAgent()))

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection",
			logger.Error(err),
			logger.String("remote_addr", r.RemoteAddr))
		return
	}

	client := &Client{
		conn:      conn,
		send:      make(chan *Message, 256),
		server:    s,
		closeChan: make(chan struct{}),
	}

	if s.welcome != nil {
		for _, m := range s.welcome() {
			client.send <- m
		}
	}

	select {
	case s.register <- client:
	case <-s.done:
		conn.Close()
		return
	}

	go client.readPump()
	go client.writePump()
}

// Broadcast queues a message for every interested client
func (s *Server) Broadcast(message *Message) {
	s.logger.Debug("Broadcasting message to all clients",
		logger.String("message_type", message.Type),
		logger.Int("client_count", s.ClientCount()))
	select {
	case s.broadcast <- message:
	case <-s.done:
	}
}

// ReportMessage builds the wx_update payload for a report.
func ReportMessage(r weather.Report) *Message {
	return &Message{
		Type: MessageTypeWxUpdate,
		Data: map[string]any{
			"id":          r.ID,
			"station":     r.Station,
			"kind":        r.Kind,
			"raw":         r.Raw,
			"decoded":     r.Decoded,
			"fetched_at":  r.FetchedAt,
			"observed_at": r.ObservedAt,
		},
	}
}

// FeedStateMessage builds the feed_state payload.
func FeedStateMessage(snap weather.FeedSnapshot) *Message {
	return &Message{
		Type: MessageTypeFeedState,
		Data: map[string]any{
			"state":      snap.State,
			"since":      snap.Since,
			"last_error": snap.LastError,
			"kinds":      snap.Kinds,
		},
	}
}

// BroadcastReport implements weather.Broadcaster.
func (s *Server) BroadcastReport(r weather.Report) {
	s.Broadcast(ReportMessage(r))
}

// BroadcastFeedState implements weather.Broadcaster.
func (s *Server) BroadcastFeedState(snap weather.FeedSnapshot) {
	s.Broadcast(FeedStateMessage(snap))
}

// readPump pumps messages from the WebSocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		select {
		case c.server.unregister <- c:
		case <-c.server.done:
		}
		c.conn.Close()
	}()

	for {
		_, messageBytes, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.server.logger.Error("WebSocket read error", logger.Error(err))
			}
			return
		}

		var message Message
		if err := json.Unmarshal(messageBytes, &message); err != nil {
			c.server.logger.Error("Failed to parse WebSocket message", logger.Error(err))
			continue
		}

		c.server.logger.Debug("Received WebSocket message",
			logger.String("type", message.Type),
			logger.String("client", c.conn.RemoteAddr().String()))

		if message.Type == MessageTypeSubscribe {
			if err := c.subscribe(message.Data); err != nil {
				c.server.logger.Warn("Rejected subscription", logger.Error(err))
				c.SendMessage(&Message{Type: MessageTypeSubscribed, Data: map[string]any{"error": err.Error()}})
				continue
			}
			c.SendMessage(&Message{Type: MessageTypeSubscribed, Data: map[string]any{"kinds": c.Kinds()}})
			continue
		}

		if c.server.messageHandler != nil {
			if err := c.server.messageHandler.HandleMessage(c, message.Type, message.Data); err != nil {
				c.server.logger.Error("Failed to handle WebSocket message",
					logger.Error(err),
					logger.String("type", message.Type))
			}
		}
	}
}

// writePump pumps messages from the hub to the WebSocket connection
func (c *Client) writePump() {
	defer c.conn.Close()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			data, err := json.Marshal(message)
			if err != nil {
				c.server.logger.Error("Failed to marshal message", logger.Error(err))
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-c.closeChan:
			return
		}
	}
}

// subscribe restricts wx_update messages to the listed kinds. An empty
// list restores every kind.
func (c *Client) subscribe(data map[string]any) error {
	raw, _ := data["kinds"].([]any)
	if len(raw) == 0 {
		c.mu.Lock()
		c.kinds = nil
		c.mu.Unlock()
		return nil
	}

	kinds := make(map[decoder.Kind]bool, len(raw))
	for _, v := range raw {
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("kind must be a string, got %T", v)
		}
		k, err := decoder.ParseKind(s)
		if err != nil {
			return err
		}
		kinds[k] = true
	}

	c.mu.Lock()
	c.kinds = kinds
	c.mu.Unlock()
	return nil
}

// Kinds returns the subscribed kinds, or all kinds when unrestricted.
func (c *Client) Kinds() []decoder.Kind {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]decoder.Kind, 0, 2)
	for _, k := range decoder.Kinds() {
		if c.kinds == nil || c.kinds[k] {
			out = append(out, k)
		}
	}
	return out
}

// wants reports whether the message passes the client's subscription.
// Only wx_update messages are filtered.
func (c *Client) wants(message *Message) bool {
	if message.Type != MessageTypeWxUpdate {
		return true
	}
	kind, _ := message.Data["kind"].(decoder.Kind)

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.kinds == nil || c.kinds[kind]
}

// Close closes the client connection
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case <-c.closeChan:
		return
	default:
	}
	close(c.closeChan)
	c.conn.Close()
}

// SendMessage sends a message to this client without blocking. It returns
// false when the client is closed or its buffer is full.
func (c *Client) SendMessage(message *Message) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}

	select {
	case c.send <- message:
		return true
	default:
		return false
	}
}
