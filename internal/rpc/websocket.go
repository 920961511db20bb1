package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/websocket"

	"github.com/LeJamon/goDCA/internal/core/tx"
	"github.com/LeJamon/goDCA/internal/rpc/rpc_types"
)

const (
	wsMaxMessageSize = 512 * 1024
	wsWriteWait      = 10 * time.Second
)

// Stream names a class of events a connection can subscribe to.
type Stream string

const (
	// StreamEvents carries every event.
	StreamEvents     Stream = "events"
	StreamSwaps      Stream = "swaps"
	StreamPositions  Stream = "positions"
	StreamGovernance Stream = "governance"
)

// streamOf classifies an event type. Events outside any class reach only
// the events stream.
func streamOf(t tx.EventType) Stream {
	switch t {
	case tx.EventSwapped, tx.EventLoaned:
		return StreamSwaps
	case tx.EventDeposited, tx.EventWithdrew, tx.EventWithdrewMany, tx.EventModified, tx.EventTerminated:
		return StreamPositions
	case tx.EventPendingGovernorSet, tx.EventPendingGovernorAccepted, tx.EventFeeRecipientSet,
		tx.EventSwapFeeSet, tx.EventLoanFeeSet, tx.EventSwapIntervalsAllowed, tx.EventSwapIntervalsForbidden,
		tx.EventPaused, tx.EventUnpaused, tx.EventWatchingNewPairs, tx.EventStoppedWatchingPairs:
		return StreamGovernance
	}
	return StreamEvents
}

// SubscriptionRequest is the body of subscribe and unsubscribe. Pairs
// narrows delivery to events of those pairs.
type SubscriptionRequest struct {
	Streams []Stream         `json:"streams"`
	Pairs   []common.Address `json:"pairs"`
}

// WebSocketResponse answers one command.
type WebSocketResponse struct {
	Type   string      `json:"type"`
	ID     interface{} `json:"id,omitempty"`
	Status string      `json:"status"`
	Result interface{} `json:"result,omitempty"`
}

// WebSocketServer serves RPC methods and event streams over WebSocket.
type WebSocketServer struct {
	upgrader     websocket.Upgrader
	server       *Server
	sendQueue    int
	pingInterval time.Duration

	nextID      atomic.Uint64
	connections map[uint64]*WebSocketConnection
	connMu      sync.RWMutex
}

// WebSocketConnection is one client.
type WebSocketConnection struct {
	ID      uint64
	conn    *websocket.Conn
	role    rpc_types.Role
	ip      string
	send    chan []byte
	ctx     context.Context
	cancel  context.CancelFunc
	closeMu sync.Once

	mu      sync.RWMutex
	streams map[Stream]struct{}
	pairs   map[common.Address]struct{}
}

// NewWebSocketServer serves server's methods over WebSocket. sendQueue
// bounds the messages buffered per connection; a connection that falls
// further behind is dropped.
func NewWebSocketServer(server *Server, sendQueue int, pingInterval time.Duration) *WebSocketServer {
	if sendQueue <= 0 {
		sendQueue = 256
	}
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	return &WebSocketServer{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		server:       server,
		sendQueue:    sendQueue,
		pingInterval: pingInterval,
		connections:  make(map[uint64]*WebSocketConnection),
	}
}

// ServeHTTP handles WebSocket upgrade requests
func (ws *WebSocketServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := ws.upgrader.Upgrade(w, r, nil)
	if err != nil {
		ws.server.logger.Debug("websocket upgrade failed", "error", err)
		return
	}

	// The request context ends when ServeHTTP returns.
	ctx, cancel := context.WithCancel(context.Background())
	c := &WebSocketConnection{
		ID:      ws.nextID.Add(1),
		conn:    conn,
		role:    ws.server.roleFor(r.RemoteAddr),
		ip:      clientIP(r.RemoteAddr),
		send:    make(chan []byte, ws.sendQueue),
		ctx:     ctx,
		cancel:  cancel,
		streams: make(map[Stream]struct{}),
		pairs:   make(map[common.Address]struct{}),
	}

	ws.connMu.Lock()
	ws.connections[c.ID] = c
	ws.connMu.Unlock()

	ws.server.logger.Debug("websocket connected", "conn", c.ID, "ip", c.ip)

	go ws.writePump(c)
	go ws.readPump(c)
}

// ConnectionCount returns the number of open connections.
func (ws *WebSocketServer) ConnectionCount() int {
	ws.connMu.RLock()
	defer ws.connMu.RUnlock()
	return len(ws.connections)
}

func (ws *WebSocketServer) readPump(c *WebSocketConnection) {
	defer ws.closeConnection(c)

	readWait := 2 * ws.pingInterval
	c.conn.SetReadLimit(wsMaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(readWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(readWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				ws.server.logger.Debug("websocket read failed", "conn", c.ID, "error", err)
			}
			return
		}
		ws.handleMessage(c, message)
	}
}

func (ws *WebSocketServer) writePump(c *WebSocketConnection) {
	ticker := time.NewTicker(ws.pingInterval)
	defer func() {
		ticker.Stop()
		ws.closeConnection(c)
	}()

	for {
		select {
		case <-c.ctx.Done():
			return
		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage runs one command. Fields other than command and id are the
// method's params.
func (ws *WebSocketServer) handleMessage(c *WebSocketConnection, message []byte) {
	var cmdMap map[string]json.RawMessage
	if err := json.Unmarshal(message, &cmdMap); err != nil {
		ws.sendError(c, rpc_types.NewRpcError(rpc_types.RpcPARSE_ERROR, "jsonInvalid", "Invalid JSON: "+err.Error()), nil)
		return
	}

	var id interface{}
	if raw, ok := cmdMap["id"]; ok {
		_ = json.Unmarshal(raw, &id)
	}
	var command string
	if raw, ok := cmdMap["command"]; ok {
		_ = json.Unmarshal(raw, &command)
	}
	if command == "" {
		ws.sendError(c, rpc_types.RpcErrorMissingCommand(), id)
		return
	}
	delete(cmdMap, "command")
	delete(cmdMap, "id")

	params, err := json.Marshal(cmdMap)
	if err != nil {
		ws.sendError(c, rpc_types.RpcErrorInternal(err.Error()), id)
		return
	}

	switch command {
	case "subscribe":
		ws.handleSubscribe(c, params, id, true)
	case "unsubscribe":
		ws.handleSubscribe(c, params, id, false)
	default:
		result, rpcErr := ws.server.execute(c.ctx, "ws", command, params, c.role, c.ip)
		if rpcErr != nil {
			ws.sendError(c, rpcErr, id)
			return
		}
		ws.sendResponse(c, WebSocketResponse{Type: "response", ID: id, Status: "success", Result: result})
	}
}

func (ws *WebSocketServer) handleSubscribe(c *WebSocketConnection, params json.RawMessage, id interface{}, subscribe bool) {
	var req SubscriptionRequest
	if rpcErr := rpc_types.ParseParams(params, &req); rpcErr != nil {
		ws.sendError(c, rpcErr, id)
		return
	}
	if len(req.Streams) == 0 && len(req.Pairs) == 0 {
		ws.sendError(c, rpc_types.NewRpcError(rpc_types.RpcSTREAM_MALFORMED, "malformedStream", "Missing field 'streams'"), id)
		return
	}
	for _, s := range req.Streams {
		switch s {
		case StreamEvents, StreamSwaps, StreamPositions, StreamGovernance:
		default:
			ws.sendError(c, rpc_types.NewRpcError(rpc_types.RpcSTREAM_MALFORMED, "malformedStream", fmt.Sprintf("Unknown stream: %s", s)), id)
			return
		}
	}

	c.mu.Lock()
	for _, s := range req.Streams {
		if subscribe {
			c.streams[s] = struct{}{}
		} else {
			delete(c.streams, s)
		}
	}
	for _, p := range req.Pairs {
		if subscribe {
			c.pairs[p] = struct{}{}
		} else {
			delete(c.pairs, p)
		}
	}
	c.mu.Unlock()

	key := "subscribed"
	if !subscribe {
		key = "unsubscribed"
	}
	ws.sendResponse(c, WebSocketResponse{
		Type:   "response",
		ID:     id,
		Status: "success",
		Result: map[string]interface{}{key: true},
	})
}

// wants reports whether c subscribed to ev.
func (c *WebSocketConnection) wants(ev tx.Event) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if _, all := c.streams[StreamEvents]; !all {
		if _, ok := c.streams[streamOf(ev.Type)]; !ok {
			return false
		}
	}
	if len(c.pairs) == 0 {
		return true
	}
	_, ok := c.pairs[ev.Pair]
	return ok
}

func (ws *WebSocketServer) sendResponse(c *WebSocketConnection, response WebSocketResponse) {
	data, err := json.Marshal(response)
	if err != nil {
		ws.server.logger.Error("failed to marshal websocket response", "error", err)
		return
	}
	ws.enqueue(c, data)
}

// sendError sends error fields at the top level of the response.
func (ws *WebSocketServer) sendError(c *WebSocketConnection, rpcErr *rpc_types.RpcError, id interface{}) {
	response := map[string]interface{}{
		"type":          "response",
		"status":        "error",
		"error":         rpcErr.ErrorString,
		"error_code":    rpcErr.Code,
		"error_message": rpcErr.Message,
	}
	if id != nil {
		response["id"] = id
	}
	data, err := json.Marshal(response)
	if err != nil {
		ws.server.logger.Error("failed to marshal websocket error", "error", err)
		return
	}
	ws.enqueue(c, data)
}

// enqueue queues data for c, dropping the connection if its queue is full.
func (ws *WebSocketServer) enqueue(c *WebSocketConnection, data []byte) {
	select {
	case <-c.ctx.Done():
	case c.send <- data:
	default:
		ws.server.logger.Warn("websocket send queue full, closing connection", "conn", c.ID)
		ws.closeConnection(c)
	}
}

// Broadcast queues data for every connection subscribed to ev.
func (ws *WebSocketServer) Broadcast(ev tx.Event, data []byte) {
	ws.connMu.RLock()
	targets := make([]*WebSocketConnection, 0, len(ws.connections))
	for _, c := range ws.connections {
		if c.wants(ev) {
			targets = append(targets, c)
		}
	}
	ws.connMu.RUnlock()

	for _, c := range targets {
		ws.enqueue(c, data)
	}
}

func (ws *WebSocketServer) closeConnection(c *WebSocketConnection) {
	c.closeMu.Do(func() {
		c.cancel()

		ws.connMu.Lock()
		delete(ws.connections, c.ID)
		ws.connMu.Unlock()

		_ = c.conn.Close()
		ws.server.logger.Debug("websocket closed", "conn", c.ID)
	})
}

// Close drops every connection.
func (ws *WebSocketServer) Close() {
	ws.connMu.RLock()
	conns := make([]*WebSocketConnection, 0, len(ws.connections))
	for _, c := range ws.connections {
		conns = append(conns, c)
	}
	ws.connMu.RUnlock()

	for _, c := range conns {
		ws.closeConnection(c)
	}
}
