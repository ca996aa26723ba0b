package server

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ayusman/gesturefield/internal/log"
	"github.com/ayusman/gesturefield/internal/particles"
)

// DefaultFieldInterval is the broadcast period of /api/field (~30 FPS).
const DefaultFieldInterval = 33 * time.Millisecond

const writeWait = time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// FieldSource provides field snapshots for streaming.
type FieldSource interface {
	Snapshot() *particles.Field
	Frames() uint64
}

// FieldMeta describes the slowly changing parts of a field. It is sent as a
// JSON text message on connect and whenever it changes.
type FieldMeta struct {
	Type      string               `json:"type"`
	Template  particles.TemplateID `json:"template"`
	Color     string               `json:"color"`
	Count     int                  `json:"count"`
	PointSize float32              `json:"point_size"`
	Colors    []float32            `json:"colors,omitempty"`
}

func metaOf(f *particles.Field) FieldMeta {
	return FieldMeta{
		Type:      "meta",
		Template:  f.Template,
		Color:     f.Color.Hex(),
		Count:     f.Count(),
		PointSize: f.PointSize,
		Colors:    f.Colors,
	}
}

func (m FieldMeta) key() string {
	return fmt.Sprintf("%s|%s|%d", m.Template, m.Color, m.Count)
}

// frameHeader is uint32 count followed by scale, rotX, rotY, rotZ and tilt.
const frameHeader = 4 + 5*4

// EncodeFrame packs a field as little-endian binary: uint32 N, float32 scale,
// float32 rotation x/y/z, float32 tilt, then 3N float32 positions.
func EncodeFrame(f *particles.Field) []byte {
	buf := make([]byte, frameHeader+4*len(f.Positions))
	le := binary.LittleEndian

	le.PutUint32(buf[0:], uint32(f.Count()))
	le.PutUint32(buf[4:], math.Float32bits(float32(f.Transform.Scale)))
	le.PutUint32(buf[8:], math.Float32bits(float32(f.Transform.Rotation.X)))
	le.PutUint32(buf[12:], math.Float32bits(float32(f.Transform.Rotation.Y)))
	le.PutUint32(buf[16:], math.Float32bits(float32(f.Transform.Rotation.Z)))
	le.PutUint32(buf[20:], math.Float32bits(float32(f.Transform.Tilt)))

	off := frameHeader
	for _, v := range f.Positions {
		le.PutUint32(buf[off:], math.Float32bits(v))
		off += 4
	}
	return buf
}

type fieldClient struct {
	id   string
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *fieldClient) write(msgType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(msgType, data)
}

// FieldHandler broadcasts the particle field via WebSocket.
type FieldHandler struct {
	source   FieldSource
	interval time.Duration
	clients  map[*fieldClient]bool
	mu       sync.RWMutex
	done     chan struct{}
	once     sync.Once
}

// NewFieldHandler creates a FieldHandler and starts broadcasting.
func NewFieldHandler(source FieldSource, interval time.Duration) *FieldHandler {
	if interval <= 0 {
		interval = DefaultFieldInterval
	}
	h := &FieldHandler{
		source:   source,
		interval: interval,
		clients:  make(map[*fieldClient]bool),
		done:     make(chan struct{}),
	}
	go h.broadcast()
	return h
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *FieldHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	c := &fieldClient{id: uuid.New().String(), conn: conn}

	if msg, err := json.Marshal(metaOf(h.source.Snapshot())); err == nil {
		if err := c.write(websocket.TextMessage, msg); err != nil {
			return
		}
	}

	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()
	log.Debug("field client connected", "client_id", c.id)

	defer func() {
		h.mu.Lock()
		delete(h.clients, c)
		h.mu.Unlock()
		log.Debug("field client disconnected", "client_id", c.id)
	}()

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// Clients returns the number of connected clients.
func (h *FieldHandler) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close stops broadcasting.
func (h *FieldHandler) Close() {
	h.once.Do(func() { close(h.done) })
}

// broadcast sends a frame to all connected clients every interval, preceded
// by a metadata message when the template, color or count changed.
func (h *FieldHandler) broadcast() {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	var lastMeta string

	for {
		select {
		case <-h.done:
			return
		case <-ticker.C:
		}

		h.mu.RLock()
		if len(h.clients) == 0 {
			h.mu.RUnlock()
			continue
		}
		clients := make([]*fieldClient, 0, len(h.clients))
		for c := range h.clients {
			clients = append(clients, c)
		}
		h.mu.RUnlock()

		field := h.source.Snapshot()
		frame := EncodeFrame(field)

		var metaMsg []byte
		meta := metaOf(field)
		if k := meta.key(); k != lastMeta {
			lastMeta = k
			metaMsg, _ = json.Marshal(meta)
		}

		for _, c := range clients {
			if metaMsg != nil {
				if err := c.write(websocket.TextMessage, metaMsg); err != nil {
					c.conn.Close()
					continue
				}
			}
			if err := c.write(websocket.BinaryMessage, frame); err != nil {
				c.conn.Close()
			}
		}
	}
}
