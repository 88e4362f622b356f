package relay

import (
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const writeTimeout = 10 * time.Second

// Server exposes the client-facing endpoints: the static map UI and the
// /websocket push transport. Each accepted WebSocket connection is
// registered for broadcasts until its read loop ends.
type Server struct {
	registry  *Registry
	staticDir string
	log       *logrus.Logger
	upgrader  websocket.Upgrader
}

// NewServer creates the client-facing server. staticDir is the directory
// holding index.html and the map assets.
func NewServer(registry *Registry, staticDir string, log *logrus.Logger) *Server {
	return &Server{
		registry:  registry,
		staticDir: staticDir,
		log:       log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The map is an unauthenticated viewer; any origin may connect.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Router returns the route table for the web server.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/", s.handleIndex)
	r.HandleFunc("/websocket", s.handleWebSocket)
	r.PathPrefix("/static/").Handler(
		http.StripPrefix("/static/", http.FileServer(http.Dir(s.staticDir))))
	r.PathPrefix("/images/").Handler(
		http.StripPrefix("/images/", http.FileServer(http.Dir(filepath.Join(s.staticDir, "images")))))
	r.PathPrefix("/flags/").Handler(
		http.StripPrefix("/flags/", http.FileServer(http.Dir(filepath.Join(s.staticDir, "flags")))))
	return r
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, filepath.Join(s.staticDir, "index.html"))
}

// handleWebSocket upgrades the connection, registers it for broadcasts
// and echoes any text the client sends (diagnostic passthrough). The
// client leaves the registry only when its own read loop ends.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Errorf("websocket upgrade failed for %s: %v", r.RemoteAddr, err)
		return
	}

	client := &wsClient{conn: conn}
	s.registry.Join(client)
	defer func() {
		s.registry.Leave(client)
		conn.Close()
	}()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debugf("websocket read from %s: %v", r.RemoteAddr, err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		if err := client.Send(data); err != nil {
			return
		}
	}
}

// wsClient wraps a WebSocket connection behind the Sender interface.
// gorilla/websocket allows one concurrent writer per connection, so all
// writes (broadcasts and echoes) serialize on the mutex.
type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsClient) Send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}
