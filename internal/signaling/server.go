package signaling

import (
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const serverWriteWait = 5 * time.Second

// Server relays signaling messages between registered hosts and controllers.
type Server struct {
	upgrader websocket.Upgrader
	log      *zap.Logger

	mu      sync.Mutex
	clients map[string]*serverConn
}

type serverConn struct {
	id      string
	role    Role
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (sc *serverConn) write(msg Message) error {
	sc.writeMu.Lock()
	defer sc.writeMu.Unlock()
	_ = sc.conn.SetWriteDeadline(time.Now().Add(serverWriteWait))
	return sc.conn.WriteJSON(msg)
}

// NewServer creates a relay server. Mount it with http.Handle.
func NewServer(log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		log:     log.Named("signaling-server"),
		clients: make(map[string]*serverConn),
	}
}

// Hosts returns the registered hosts sorted by ID.
func (s *Server) Hosts() []HostInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hostsLocked()
}

func (s *Server) hostsLocked() []HostInfo {
	var hosts []HostInfo
	for _, c := range s.clients {
		if c.role == RoleHost {
			hosts = append(hosts, HostInfo{ID: c.id, Online: true})
		}
	}
	sort.Slice(hosts, func(i, j int) bool { return hosts[i].ID < hosts[j].ID })
	return hosts
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("websocket upgrade", zap.Error(err))
		return
	}
	defer conn.Close()

	sc := &serverConn{conn: conn}
	defer s.unregister(sc)

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			if sc.id != "" && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug("signaling read", zap.String("id", sc.id), zap.Error(err))
			}
			return
		}
		s.handle(sc, msg)
	}
}

func (s *Server) handle(sc *serverConn, msg Message) {
	if sc.id == "" && msg.Type != TypeRegister {
		_ = sc.write(errorMsg("register first"))
		return
	}
	switch {
	case msg.Type == TypeRegister:
		s.register(sc, msg)
	case msg.Type == TypeListHosts:
		_ = sc.write(Message{Type: TypeHosts, List: s.Hosts()})
	case msg.relayed():
		s.relay(sc, msg)
	case msg.Type == TypePing:
		_ = sc.write(heartbeat(TypePong))
	default:
		_ = sc.write(errorMsg("unknown message type " + msg.Type))
	}
}

func (s *Server) register(sc *serverConn, msg Message) {
	if sc.id != "" {
		_ = sc.write(errorMsg("already registered"))
		return
	}
	if err := msg.checkRegister(); err != nil {
		_ = sc.write(errorMsg(err.Error()))
		return
	}

	s.mu.Lock()
	if _, taken := s.clients[msg.ID]; taken {
		s.mu.Unlock()
		_ = sc.write(errorMsg("id already in use"))
		return
	}
	sc.id, sc.role = msg.ID, msg.Role
	s.clients[sc.id] = sc
	s.mu.Unlock()

	s.log.Info("client registered", zap.String("id", sc.id), zap.String("role", string(sc.role)))
	_ = sc.write(Message{Type: TypeRegistered, ID: sc.id})
	if sc.role == RoleHost {
		s.broadcastHosts(Message{Type: TypeHostsUpdated})
	}
}

func (s *Server) relay(sc *serverConn, msg Message) {
	s.mu.Lock()
	target, ok := s.clients[msg.Target]
	s.mu.Unlock()
	if !ok {
		_ = sc.write(errorMsg("unknown target " + msg.Target))
		return
	}
	if err := target.write(msg.forwarded(sc.id)); err != nil {
		s.log.Debug("relay", zap.String("to", target.id), zap.Error(err))
	}
}

func (s *Server) unregister(sc *serverConn) {
	if sc.id == "" {
		return
	}
	s.mu.Lock()
	if s.clients[sc.id] == sc {
		delete(s.clients, sc.id)
	}
	s.mu.Unlock()

	s.log.Info("client left", zap.String("id", sc.id))
	if sc.role == RoleHost {
		s.broadcastHosts(Message{Type: TypeHostDisconnected, HostID: sc.id})
		s.broadcastHosts(Message{Type: TypeHostsUpdated})
	}
}

// broadcastHosts sends msg, with the current host list attached, to every controller.
func (s *Server) broadcastHosts(msg Message) {
	s.mu.Lock()
	msg.List = s.hostsLocked()
	var controllers []*serverConn
	for _, c := range s.clients {
		if c.role == RoleController {
			controllers = append(controllers, c)
		}
	}
	s.mu.Unlock()

	for _, c := range controllers {
		_ = c.write(msg)
	}
}
