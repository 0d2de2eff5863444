package viewer

import (
	"encoding/json"
	"log"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"voxelscope.ai/internal/encoding"
	"voxelscope.ai/internal/flight"
	"voxelscope.ai/internal/harness"
	"voxelscope.ai/internal/viewerproto"
	"voxelscope.ai/internal/world"
)

// Server bridges websocket viewers to the harness loop. Toward the loop it
// is a RenderSink (broadcasting chunk traffic and frames) and an
// InputSource (merging viewer input). The loop side never blocks on a
// viewer: slow sessions are disconnected.
type Server struct {
	log       *log.Logger
	bootstrap viewerproto.BootstrapMsg

	upgrader websocket.Upgrader
	nextID   atomic.Uint64

	mu       sync.Mutex
	sessions map[uint64]*session
	resident map[world.ChunkKey]string // cached CHUNK_VOXELS payloads for late joiners

	in inputState
}

type session struct {
	id  uint64
	out chan []byte

	closeOnce sync.Once
	closed    chan struct{}
}

// inputState accumulates viewer input between loop samples. Keys reflect
// the latest INPUT message; look deltas add up until the loop drains them.
type inputState struct {
	mu     sync.Mutex
	intent flight.Intent
	dx, dy float64
}

func NewServer(boot viewerproto.BootstrapMsg, logger *log.Logger) *Server {
	return &Server{
		log:       logger,
		bootstrap: boot,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
		sessions: map[uint64]*session{},
		resident: map[world.ChunkKey]string{},
	}
}

// Sample implements flight.InputSource. Called once per tick by the loop.
func (s *Server) Sample() (flight.Intent, float64, float64) {
	s.in.mu.Lock()
	defer s.in.mu.Unlock()
	dx, dy := s.in.dx, s.in.dy
	s.in.dx, s.in.dy = 0, 0
	return s.in.intent, dx, dy
}

// LoadChunk implements view.Sink.
func (s *Server) LoadChunk(c *world.Chunk) {
	msg := viewerproto.ChunkVoxelsMsg{
		Type:            viewerproto.TypeChunkVoxels,
		ProtocolVersion: viewerproto.Version,
		CX:              c.CX,
		CZ:              c.CZ,
		Encoding:        viewerproto.EncodingRLE,
		Data:            encoding.EncodeRLE(c.Blocks),
	}
	b, _ := json.Marshal(msg)

	s.mu.Lock()
	s.resident[world.ChunkKey{CX: c.CX, CZ: c.CZ}] = string(b)
	s.broadcastLocked(b)
	s.mu.Unlock()
}

// EvictChunk implements view.Sink.
func (s *Server) EvictChunk(cx, cz int) {
	b, _ := json.Marshal(viewerproto.ChunkEvictMsg{
		Type:            viewerproto.TypeChunkEvict,
		ProtocolVersion: viewerproto.Version,
		CX:              cx,
		CZ:              cz,
	})

	s.mu.Lock()
	delete(s.resident, world.ChunkKey{CX: cx, CZ: cz})
	s.broadcastLocked(b)
	s.mu.Unlock()
}

// Frame implements harness.RenderSink.
func (s *Server) Frame(f harness.Frame) {
	b, _ := json.Marshal(viewerproto.FrameMsg{
		Type:            viewerproto.TypeFrame,
		ProtocolVersion: viewerproto.Version,
		Tick:            f.Tick,
		Pos:             f.Pos,
		Yaw:             f.Yaw,
		Pitch:           f.Pitch,
		ChunkX:          f.ChunkX,
		ChunkZ:          f.ChunkZ,
		Resident:        f.Resident,
	})
	s.mu.Lock()
	s.broadcastLocked(b)
	s.mu.Unlock()
}

func (s *Server) broadcastLocked(b []byte) {
	for id, sess := range s.sessions {
		select {
		case sess.out <- b:
		default:
			// A viewer that cannot drain its queue is cut loose rather
			// than stalling the loop.
			s.log.Printf("viewer %d too slow, dropping", id)
			sess.close()
			delete(s.sessions, id)
		}
	}
}

func (sess *session) close() {
	sess.closeOnce.Do(func() { close(sess.closed) })
}

// BootstrapHandler serves the static world description over plain HTTP so
// tooling can inspect a run without speaking websocket.
func (s *Server) BootstrapHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(s.bootstrap)
	}
}

func (s *Server) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		sess := &session{
			id:     s.nextID.Add(1),
			out:    make(chan []byte, 4096),
			closed: make(chan struct{}),
		}

		// BOOTSTRAP first, then the currently resident chunks so a late
		// joiner starts from a complete window.
		boot, _ := json.Marshal(s.bootstrap)
		sess.out <- boot
		s.mu.Lock()
		for _, payload := range s.resident {
			select {
			case sess.out <- []byte(payload):
			default:
			}
		}
		s.sessions[sess.id] = sess
		s.mu.Unlock()

		defer func() {
			s.mu.Lock()
			delete(s.sessions, sess.id)
			s.mu.Unlock()
			sess.close()
		}()

		writeErr := make(chan error, 1)
		go func() {
			for {
				select {
				case <-sess.closed:
					writeErr <- nil
					return
				case b := <-sess.out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						writeErr <- err
						return
					}
				}
			}
		}()

		s.readLoop(conn, sess)

		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"),
			time.Now().Add(time.Second))

		// Best-effort wait for the writer to stop so it doesn't outlive conn.
		select {
		case <-writeErr:
		case <-time.After(500 * time.Millisecond):
		}
	}
}

func (s *Server) readLoop(conn *websocket.Conn, sess *session) {
	for {
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var in viewerproto.InputMsg
		if err := json.Unmarshal(msg, &in); err != nil || in.Type != viewerproto.TypeInput {
			s.sendError(sess, viewerproto.ErrProtoBadRequest, "expected INPUT")
			continue
		}
		if in.ProtocolVersion != viewerproto.Version {
			s.sendError(sess, viewerproto.ErrProtoVersion, "unsupported protocol version")
			return
		}
		s.applyInput(in)
	}
}

func (s *Server) applyInput(in viewerproto.InputMsg) {
	intent, ok := parseKeys(in.Keys)
	if !ok {
		return
	}
	s.in.mu.Lock()
	s.in.intent = intent
	s.in.dx += in.LookDX
	s.in.dy += in.LookDY
	s.in.mu.Unlock()
}

func (s *Server) sendError(sess *session, code, message string) {
	b, _ := json.Marshal(viewerproto.ErrorMsg{
		Type:            viewerproto.TypeError,
		ProtocolVersion: viewerproto.Version,
		Code:            code,
		Message:         message,
	})
	select {
	case sess.out <- b:
	default:
	}
}

func parseKeys(keys []string) (flight.Intent, bool) {
	var in flight.Intent
	for _, k := range keys {
		switch k {
		case "FORWARD":
			in.Forward = true
		case "BACK":
			in.Back = true
		case "LEFT":
			in.Left = true
		case "RIGHT":
			in.Right = true
		case "UP":
			in.Up = true
		case "DOWN":
			in.Down = true
		default:
			return flight.Intent{}, false
		}
	}
	return in, true
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
