// Package feed streams live site settings to connected WebSocket clients.
package feed

import (
	"encoding/json"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/zapfragrance/sitecontrol/internal/models"
	"github.com/zapfragrance/sitecontrol/internal/theme"
)

// MessageTypeSettings is the only message type sent to clients.
const MessageTypeSettings = "settings"

// Message is one frame pushed to clients.
type Message struct {
	Type      string              `json:"type"`
	Settings  models.SiteSettings `json:"settings"`
	Variables theme.Variables     `json:"variables"`
	Ready     bool                `json:"ready"`
	At        time.Time           `json:"at"`
}

// NewMessage builds the frame for s, deriving its theme variables.
func NewMessage(s models.SiteSettings, ready bool) *Message {
	return &Message{
		Type:      MessageTypeSettings,
		Settings:  s,
		Variables: theme.DeriveVariables(s),
		Ready:     ready,
		At:        time.Now().UTC(),
	}
}

// Source supplies the current settings to newly connected clients.
type Source interface {
	Snapshot() models.SiteSettings
	Ready() bool
}

// Gauge tracks the connected client count. Implemented by internal/metrics.
type Gauge interface {
	SetFeedClients(n int)
}

// Config holds configuration for the Feed.
type Config struct {
	// PingInterval is how often to send ping messages to clients.
	PingInterval time.Duration
	// WriteTimeout is the timeout for writing to a client.
	WriteTimeout time.Duration
	// ReadTimeout is the timeout for reading from a client.
	ReadTimeout time.Duration
	// MaxMessageSize is the maximum size of a message from a client.
	MaxMessageSize int64
	// SendBufferSize is the size of the send buffer per client.
	SendBufferSize int
	// AllowedOrigins restricts the Origin header. Empty allows any origin.
	AllowedOrigins []string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		PingInterval:   30 * time.Second,
		WriteTimeout:   10 * time.Second,
		ReadTimeout:    60 * time.Second,
		MaxMessageSize: 512,
		SendBufferSize: 16,
	}
}

type client struct {
	id   uuid.UUID
	conn *websocket.Conn
	send chan *Message
	feed *Feed
}

// Feed fans settings changes out to every connected client.
type Feed struct {
	config   Config
	source   Source
	gauge    Gauge
	logger   zerolog.Logger
	upgrader websocket.Upgrader

	clients   map[uuid.UUID]*client
	clientsMu sync.RWMutex

	broadcast  chan *Message
	register   chan *client
	unregister chan *client

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewFeed creates a Feed. gauge may be nil.
func NewFeed(source Source, gauge Gauge, cfg Config, logger zerolog.Logger) *Feed {
	f := &Feed{
		config:     cfg,
		source:     source,
		gauge:      gauge,
		logger:     logger.With().Str("component", "settings_feed").Logger(),
		clients:    make(map[uuid.UUID]*client),
		broadcast:  make(chan *Message, 64),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
	}
	f.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     f.checkOrigin,
	}
	return f
}

func (f *Feed) checkOrigin(r *http.Request) bool {
	if len(f.config.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	return origin == "" || slices.Contains(f.config.AllowedOrigins, origin)
}

// Start begins processing broadcasts and client management.
func (f *Feed) Start() {
	f.wg.Add(1)
	go f.run()
	f.logger.Info().Msg("settings feed started")
}

// Stop stops the feed and closes all client connections.
func (f *Feed) Stop() {
	f.stopOnce.Do(func() {
		close(f.done)
		f.wg.Wait()
		f.logger.Info().Msg("settings feed stopped")
	})
}

func (f *Feed) run() {
	defer f.wg.Done()

	for {
		select {
		case <-f.done:
			f.closeAllClients()
			return

		case c := <-f.register:
			f.addClient(c)

		case c := <-f.unregister:
			f.removeClient(c)

		case msg := <-f.broadcast:
			f.broadcastMessage(msg)
		}
	}
}

func (f *Feed) addClient(c *client) {
	f.clientsMu.Lock()
	f.clients[c.id] = c
	n := len(f.clients)
	f.clientsMu.Unlock()

	// Late joiners get the current state before any broadcast.
	if f.source != nil {
		select {
		case c.send <- NewMessage(f.source.Snapshot(), f.source.Ready()):
		default:
		}
	}

	f.setGauge(n)
	f.logger.Debug().Str("client_id", c.id.String()).Msg("client connected")
}

func (f *Feed) removeClient(c *client) {
	f.clientsMu.Lock()
	if _, ok := f.clients[c.id]; !ok {
		f.clientsMu.Unlock()
		return
	}
	delete(f.clients, c.id)
	close(c.send)
	n := len(f.clients)
	f.clientsMu.Unlock()

	f.setGauge(n)
	f.logger.Debug().Str("client_id", c.id.String()).Msg("client disconnected")
}

func (f *Feed) closeAllClients() {
	f.clientsMu.Lock()
	for _, c := range f.clients {
		close(c.send)
	}
	f.clients = make(map[uuid.UUID]*client)
	f.clientsMu.Unlock()

	f.setGauge(0)
}

func (f *Feed) broadcastMessage(msg *Message) {
	f.clientsMu.RLock()
	defer f.clientsMu.RUnlock()

	for _, c := range f.clients {
		select {
		case c.send <- msg:
		default:
			f.logger.Warn().
				Str("client_id", c.id.String()).
				Msg("client send buffer full, dropping settings update")
		}
	}
}

func (f *Feed) setGauge(n int) {
	if f.gauge != nil {
		f.gauge.SetFeedClients(n)
	}
}

// Publish queues the settings for delivery to every client. Its signature
// matches settings.Manager.Subscribe.
func (f *Feed) Publish(s models.SiteSettings) {
	ready := true
	if f.source != nil {
		ready = f.source.Ready()
	}
	select {
	case f.broadcast <- NewMessage(s, ready):
	default:
		f.logger.Warn().Msg("broadcast buffer full, dropping settings update")
	}
}

// ClientCount returns the number of connected clients.
func (f *Feed) ClientCount() int {
	f.clientsMu.RLock()
	defer f.clientsMu.RUnlock()
	return len(f.clients)
}

// HandleWebSocket upgrades the request and registers the client.
func (f *Feed) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		f.logger.Error().Err(err).Msg("failed to upgrade websocket connection")
		return
	}

	c := &client{
		id:   uuid.New(),
		conn: conn,
		send: make(chan *Message, f.config.SendBufferSize),
		feed: f,
	}

	select {
	case f.register <- c:
	case <-f.done:
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

// readPump drains client frames so control messages are processed. Clients
// have nothing to say on this stream.
func (c *client) readPump() {
	defer func() {
		select {
		case c.feed.unregister <- c:
		case <-c.feed.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.feed.config.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.feed.config.ReadTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.feed.config.ReadTimeout))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.feed.logger.Debug().Err(err).Msg("websocket read error")
			}
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(c.feed.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.feed.config.WriteTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			data, err := json.Marshal(msg)
			if err != nil {
				c.feed.logger.Error().Err(err).Msg("failed to encode settings message")
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.feed.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
