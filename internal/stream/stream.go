// Package stream broadcasts mesh transforms to websocket clients.
package stream

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/san-kum/dropsim/internal/scene"
)

const (
	MessageTypeFrame = "frame"
	MessageTypeInfo  = "info"

	DefaultPingInterval = 2 * time.Second
	writeWait           = time.Second
	sendBuffer          = 16
)

type MeshState struct {
	ID       uint64     `json:"id"`
	Kind     string     `json:"kind"`
	Position [3]float64 `json:"position"`
	Rotation [4]float64 `json:"rotation"`
	Scale    [3]float64 `json:"scale"`
}

type CameraState struct {
	Position [3]float64 `json:"position"`
	Target   [3]float64 `json:"target"`
	Fov      float64    `json:"fov"`
}

// FrameMessage is sent after every rendered frame.
type FrameMessage struct {
	Type       string      `json:"type"`
	Seq        uint64      `json:"seq"`
	ServerTime int64       `json:"server_time"`
	Camera     CameraState `json:"camera"`
	Meshes     []MeshState `json:"meshes"`
}

type InfoMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub is a scene.Renderer that fans frames out to every connected client.
// Slow clients drop frames rather than stall the caller.
type Hub struct {
	upgrader     websocket.Upgrader
	logger       *slog.Logger
	pingInterval time.Duration

	mu      sync.RWMutex
	clients map[*client]struct{}
	seq     uint64
	dropped uint64
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger:       logger,
		pingInterval: DefaultPingInterval,
		clients:      make(map[*client]struct{}),
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Dropped counts frames skipped because a client's buffer was full.
func (h *Hub) Dropped() uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.dropped
}

func (h *Hub) Render(g *scene.Graph, cam scene.Camera) error {
	h.mu.Lock()
	h.seq++
	seq := h.seq
	h.mu.Unlock()

	data, err := json.Marshal(NewFrame(seq, g, cam))
	if err != nil {
		return err
	}
	h.broadcast(data)
	return nil
}

// NewFrame captures the transforms of every mesh in g.
func NewFrame(seq uint64, g *scene.Graph, cam scene.Camera) FrameMessage {
	meshes := g.Meshes()
	msg := FrameMessage{
		Type:       MessageTypeFrame,
		Seq:        seq,
		ServerTime: time.Now().UnixMilli(),
		Camera: CameraState{
			Position: cam.Position,
			Target:   cam.Target,
			Fov:      cam.Fov,
		},
		Meshes: make([]MeshState, 0, len(meshes)),
	}
	for _, m := range meshes {
		tf := m.Transform
		msg.Meshes = append(msg.Meshes, MeshState{
			ID:       m.ID,
			Kind:     m.Kind().String(),
			Position: tf.Position,
			Rotation: [4]float64{tf.Orientation.V[0], tf.Orientation.V[1], tf.Orientation.V[2], tf.Orientation.W},
			Scale:    tf.Scale,
		})
	}
	return msg
}

func (h *Hub) broadcast(data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.dropped++
		}
	}
}

// ServeHTTP upgrades the request and streams frames until the client leaves.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	if err := conn.WriteJSON(InfoMessage{Type: MessageTypeInfo, Message: "dropsim"}); err != nil {
		conn.Close()
		return
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.logger.Info("client connected", "remote", r.RemoteAddr)

	go h.writePump(c)
	h.readPump(c)

	h.mu.Lock()
	delete(h.clients, c)
	close(c.send)
	h.mu.Unlock()
	h.logger.Info("client disconnected", "remote", r.RemoteAddr)
}

// readPump discards client messages; it returns once the connection closes.
func (h *Hub) readPump(c *client) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(h.pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		c.conn.Close()
	}
}
