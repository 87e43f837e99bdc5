package daemon

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"os"
	"sync"

	"github.com/gorilla/websocket"

	. "github.com/lorehq/lore/internal/logging"
	"github.com/lorehq/lore/internal/store"
)

// rpcRequest is one line of the daemon's Unix-socket JSON protocol.
type rpcRequest struct {
	Method           string `json:"method"`
	WorkingDirectory string `json:"working_directory,omitempty"`
}

// rpcResponse answers a request; Error is set instead of the payload
// fields on failure.
type rpcResponse struct {
	SessionID string `json:"session_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// rpcServer exposes the daemon's "only required surface" — read access to
// the Store — over a Unix-domain socket, plus a loopback websocket so a
// local UI can subscribe to "a new session arrived" notifications without
// polling the socket.
type rpcServer struct {
	listener net.Listener
	store    *store.Store
	http     *http.Server

	mu   sync.Mutex
	subs map[*websocket.Conn]bool
}

// wsAddr is the loopback-only address the notification websocket listens
// on; it never binds a non-loopback interface, per the daemon's
// "local-only RPC surface" contract.
const wsAddr = "127.0.0.1:47653"

func newRPCServer(socketPath string, st *store.Store) (*rpcServer, error) {
	os.Remove(socketPath)
	ln, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, err
	}
	s := &rpcServer{listener: ln, store: st, subs: map[*websocket.Conn]bool{}}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.ServeWebsocket)
	s.http = &http.Server{Addr: wsAddr, Handler: mux}

	return s, nil
}

// Serve accepts Unix-socket connections and, concurrently, loopback
// websocket upgrades, until Close is called.
func (s *rpcServer) Serve() {
	go func() {
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			L_warn("daemon: websocket listener failed", "error", err)
		}
	}()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		go s.handle(conn)
	}
}

func (s *rpcServer) Close() error {
	s.http.Close()
	return s.listener.Close()
}

func (s *rpcServer) handle(conn net.Conn) {
	defer conn.Close()
	scanner := bufio.NewScanner(conn)
	enc := json.NewEncoder(conn)

	for scanner.Scan() {
		var req rpcRequest
		if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
			enc.Encode(rpcResponse{Error: "invalid request: " + err.Error()})
			continue
		}

		switch req.Method {
		case "GetCurrentSession":
			resp := s.getCurrentSession(req.WorkingDirectory)
			enc.Encode(resp)
		default:
			enc.Encode(rpcResponse{Error: "unknown method: " + req.Method})
		}
	}
}

func (s *rpcServer) getCurrentSession(workingDirectory string) rpcResponse {
	sessions, err := s.store.ListSessions(context.Background(), 1, workingDirectory)
	if err != nil {
		L_warn("daemon: GetCurrentSession failed", "error", err)
		return rpcResponse{Error: err.Error()}
	}
	if len(sessions) == 0 {
		return rpcResponse{}
	}
	return rpcResponse{SessionID: sessions[0].ID.String()}
}

// notifyImportPass broadcasts "N sessions imported" to every subscribed
// websocket client; a slow or gone client is dropped rather than blocking
// the rest of the daemon.
func (s *rpcServer) notifyImportPass(count int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.subs {
		if err := conn.WriteJSON(map[string]any{"event": "import_pass", "imported": count}); err != nil {
			conn.Close()
			delete(s.subs, conn)
		}
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true }, // loopback only
}

// ServeWebsocket upgrades a loopback HTTP connection to a websocket
// subscription feed of daemon events, for local UIs that want push
// notification instead of polling the Unix socket.
func (s *rpcServer) ServeWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		L_warn("daemon: websocket upgrade failed", "error", err)
		return
	}
	s.mu.Lock()
	s.subs[conn] = true
	s.mu.Unlock()
}
