package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 8
)

// wsClient is one connected graph observer
type wsClient struct {
	conn      *websocket.Conn
	send      chan graphSnapshot
	closeOnce sync.Once
}

func (c *wsClient) close() {
	c.closeOnce.Do(func() {
		close(c.send)
	})
}

// handleWebSocket upgrades the connection and streams graph snapshots.
// Each client gets the current state on connect and a fresh snapshot
// after every store mutation.
func (s *ScoutServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || s.originAllowed(origin)
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warnw("WebSocket upgrade failed", "error", err)
		return
	}

	client := &wsClient{
		conn: conn,
		send: make(chan graphSnapshot, sendBufferSize),
	}

	// Registration and wg.Add happen under clientsMu with a shutdown
	// check. Shutdown cancels ctx before taking the same mutex, so a
	// client admitted here is also seen by Shutdown's close pass and
	// wg.Add never races wg.Wait.
	s.clientsMu.Lock()
	if s.ctx.Err() != nil {
		s.clientsMu.Unlock()
		conn.Close()
		return
	}
	s.clients[client] = true
	s.wg.Add(2)
	s.clientsMu.Unlock()
	s.logger.Debugw("WebSocket client connected", "remote", conn.RemoteAddr())

	client.send <- s.snapshot()

	go s.writePump(client)
	go s.readPump(client)
}

// broadcastLoop fans store change signals out to connected clients.
// Slow clients drop intermediate snapshots rather than blocking the
// loop; they always receive the latest state eventually.
func (s *ScoutServer) broadcastLoop() {
	defer s.wg.Done()

	changes, cancel := s.store.Subscribe()
	defer cancel()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-changes:
			snap := s.snapshot()
			s.clientsMu.Lock()
			for client := range s.clients {
				select {
				case client.send <- snap:
				default:
				}
			}
			s.clientsMu.Unlock()
		}
	}
}

func (s *ScoutServer) writePump(client *wsClient) {
	defer s.wg.Done()
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()

	for {
		select {
		case snap, ok := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.conn.WriteJSON(snap); err != nil {
				return
			}
		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *ScoutServer) readPump(client *wsClient) {
	defer s.wg.Done()
	defer func() {
		s.clientsMu.Lock()
		delete(s.clients, client)
		s.clientsMu.Unlock()
		client.close()
		client.conn.Close()
		s.logger.Debugw("WebSocket client disconnected", "remote", client.conn.RemoteAddr())
	}()

	client.conn.SetReadLimit(1 << 20)
	client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		client.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}
