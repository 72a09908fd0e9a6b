package services

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"notewiz-notes/notewiz/database"
	"notewiz-notes/notewiz/models"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 64 * 1024
)

// WebSocketServiceInterface is the connection gateway for both hubs.
type WebSocketServiceInterface interface {
	ServeHub(w http.ResponseWriter, r *http.Request, userID uuid.UUID, route HubRoute)
	OnConnect(userID uuid.UUID, route HubRoute) *Connection
	OnDisconnect(conn *Connection)
	HandleMessage(conn *Connection, raw []byte)
	Stop()
}

// Client pairs a registry connection with its websocket, if any.
type Client struct {
	Conn   *Connection
	Socket *websocket.Conn
	Hub    *WebSocketService
}

type WebSocketConfig struct {
	Registry      *GroupRegistry
	Metrics       *HubMetrics
	Collaboration CollaborationServiceInterface
	Notifications NotificationServiceInterface
	Users         UserServiceInterface
	DB            *database.Database
	QueueSize     int
}

// WebSocketService manages hub connections and routes their invocations.
type WebSocketService struct {
	registry      *GroupRegistry
	metrics       *HubMetrics
	collaboration CollaborationServiceInterface
	notifications NotificationServiceInterface
	users         UserServiceInterface
	db            *database.Database
	queueSize     int
	upgrader      websocket.Upgrader

	clients      map[string]*Client
	clientsMutex sync.RWMutex
	stopOnce     sync.Once
}

func NewWebSocketService(cfg WebSocketConfig) *WebSocketService {
	registry := cfg.Registry
	if registry == nil {
		registry = NewGroupRegistry(cfg.Metrics)
	}
	collaboration := cfg.Collaboration
	if collaboration == nil {
		collaboration = NewCollaborationService(registry)
	}
	return &WebSocketService{
		registry:      registry,
		metrics:       cfg.Metrics,
		collaboration: collaboration,
		notifications: cfg.Notifications,
		users:         cfg.Users,
		db:            cfg.DB,
		queueSize:     cfg.QueueSize,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Connections are authenticated by token before the upgrade.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[string]*Client),
	}
}

func (ws *WebSocketService) Registry() *GroupRegistry {
	return ws.registry
}

// ServeHub upgrades an authenticated request and starts its pumps.
func (ws *WebSocketService) ServeHub(w http.ResponseWriter, r *http.Request, userID uuid.UUID, route HubRoute) {
	socket, err := ws.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("route", string(route)).Msg("Error upgrading to WebSocket")
		return
	}

	client := ws.connect(userID, route, socket)
	go client.writePump()
	go client.readPump()
}

// OnConnect registers a connection for userID. Notification connections are
// placed in the user's personal group straight away.
func (ws *WebSocketService) OnConnect(userID uuid.UUID, route HubRoute) *Connection {
	return ws.connect(userID, route, nil).Conn
}

func (ws *WebSocketService) connect(userID uuid.UUID, route HubRoute, socket *websocket.Conn) *Client {
	name := models.AnonymousName
	if ws.users != nil {
		name = ws.users.GetDisplayName(ws.db, userID)
	}

	conn := NewConnection(userID, name, route, ws.queueSize)
	conn.onDrop = ws.metrics.messageDropped
	client := &Client{Conn: conn, Socket: socket, Hub: ws}

	ws.clientsMutex.Lock()
	ws.clients[conn.ID] = client
	ws.clientsMutex.Unlock()
	ws.metrics.connectionOpened()

	if route == NotificationsRoute {
		ws.registry.Join(UserGroupKey(userID), conn)
	}

	log.Info().
		Str("conn_id", conn.ID).
		Str("user_id", userID.String()).
		Str("route", string(route)).
		Msg("Client connected")
	return client
}

// OnDisconnect removes conn from every group before returning. Repeated calls
// are harmless.
func (ws *WebSocketService) OnDisconnect(conn *Connection) {
	ws.registry.RemoveConnection(conn)

	ws.clientsMutex.Lock()
	_, ok := ws.clients[conn.ID]
	delete(ws.clients, conn.ID)
	ws.clientsMutex.Unlock()

	conn.closeSend()
	if ok {
		ws.metrics.connectionClosed()
		log.Info().
			Str("conn_id", conn.ID).
			Str("user_id", conn.UserID.String()).
			Int64("dropped", conn.Dropped()).
			Msg("Client disconnected")
	}
}

// ConnectionCount is the number of live connections.
func (ws *WebSocketService) ConnectionCount() int {
	ws.clientsMutex.RLock()
	defer ws.clientsMutex.RUnlock()
	return len(ws.clients)
}

// Stop closes every socket; the read pumps then run the disconnect path.
func (ws *WebSocketService) Stop() {
	ws.stopOnce.Do(func() {
		ws.clientsMutex.RLock()
		sockets := make([]*websocket.Conn, 0, len(ws.clients))
		for _, client := range ws.clients {
			if client != nil && client.Socket != nil {
				sockets = append(sockets, client.Socket)
			}
		}
		ws.clientsMutex.RUnlock()

		deadline := time.Now().Add(writeWait)
		for _, socket := range sockets {
			msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
			_ = socket.WriteControl(websocket.CloseMessage, msg, deadline)
			socket.Close()
		}
		log.Info().Int("clients", len(sockets)).Msg("WebSocket service stopped")
	})
}

// HandleMessage decodes one client frame and dispatches it. Failures are
// reported to the caller only; the connection stays open.
func (ws *WebSocketService) HandleMessage(conn *Connection, raw []byte) {
	var msg models.ClientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		log.Debug().Err(err).Str("conn_id", conn.ID).Msg("Error parsing client message")
		ws.replyError(conn, "", ErrMalformedFrame)
		return
	}

	if err := ws.dispatch(conn, msg); err != nil {
		log.Debug().Err(err).Str("conn_id", conn.ID).Str("method", string(msg.Method)).Msg("Invocation failed")
		ws.replyError(conn, msg.Method, err)
	}
}

func (ws *WebSocketService) dispatch(conn *Connection, msg models.ClientMessage) error {
	switch msg.Method {
	case models.JoinSession:
		var p models.NoteParams
		if err := msg.DecodeParams(&p); err != nil {
			return ErrMalformedFrame
		}
		return ws.collaboration.JoinSession(conn, p.NoteID)

	case models.LeaveSession:
		var p models.NoteParams
		if err := msg.DecodeParams(&p); err != nil {
			return ErrMalformedFrame
		}
		return ws.collaboration.LeaveSession(conn, p.NoteID)

	case models.PushContentUpdate:
		var p models.ContentParams
		if err := msg.DecodeParams(&p); err != nil {
			return ErrMalformedFrame
		}
		return ws.collaboration.PushContentUpdate(conn, p.NoteID, p.Content)

	case models.PushDrawingUpdate:
		var p models.DrawingParams
		if err := msg.DecodeParams(&p); err != nil {
			return ErrMalformedFrame
		}
		return ws.collaboration.PushDrawingUpdate(conn, p.NoteID, p.Drawing)

	case models.Typing:
		var p models.TypingParams
		if err := msg.DecodeParams(&p); err != nil {
			return ErrMalformedFrame
		}
		return ws.collaboration.Typing(conn, p.NoteID, p.ActorName)

	case models.MarkNotificationRead:
		var p models.ReadParams
		if err := msg.DecodeParams(&p); err != nil {
			return ErrMalformedFrame
		}
		if ws.notifications == nil || ws.db == nil {
			return ErrNotificationNotFound
		}
		_, err := ws.notifications.MarkAsRead(ws.db, conn.UserID.String(), p.NotificationID, conn)
		return err

	default:
		return ErrUnknownMethod
	}
}

func (ws *WebSocketService) replyError(conn *Connection, method models.ClientMethod, err error) {
	var v *ValidationError
	if !errors.As(err, &v) && !errors.Is(err, ErrUnknownMethod) &&
		!errors.Is(err, ErrNotificationNotFound) && !errors.Is(err, ErrInvalidInput) &&
		!errors.Is(err, ErrConnectionClosed) {
		log.Error().Err(err).Str("conn_id", conn.ID).Str("method", string(method)).Msg("Unexpected invocation error")
		err = errors.New("internal error")
	}
	data, encErr := models.NewErrorEvent(method, err).ToJSON()
	if encErr != nil {
		return
	}
	conn.Enqueue(data)
}

// readPump handles incoming messages from the WebSocket client
func (c *Client) readPump() {
	defer func() {
		c.Hub.OnDisconnect(c.Conn)
		c.Socket.Close()
	}()

	c.Socket.SetReadLimit(maxMessageSize)
	c.Socket.SetReadDeadline(time.Now().Add(pongWait))
	c.Socket.SetPongHandler(func(string) error {
		c.Socket.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Str("conn_id", c.Conn.ID).Msg("Error reading from WebSocket")
			}
			return
		}
		c.Hub.HandleMessage(c.Conn, message)
	}
}

// writePump pumps queued frames to the WebSocket connection, one frame per
// message, and keeps the connection alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Socket.Close()
	}()

	for {
		select {
		case message, ok := <-c.Conn.Messages():
			c.Socket.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Socket.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Socket.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Socket.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Socket.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
