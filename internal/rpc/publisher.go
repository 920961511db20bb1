package rpc

import (
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"

	"github.com/LeJamon/goDCA/internal/core/tx"
)

// StreamMessage is an event as delivered to WebSocket subscribers.
type StreamMessage struct {
	Type      string          `json:"type"`
	EventType tx.EventType    `json:"event_type"`
	Sequence  uint64          `json:"sequence"`
	Time      int64           `json:"time"`
	Pair      *common.Address `json:"pair,omitempty"`
	Data      any             `json:"data"`
}

// Publisher forwards committed engine events to WebSocket subscribers.
type Publisher struct {
	ws *WebSocketServer
}

// NewPublisher creates a Publisher broadcasting on ws.
func NewPublisher(ws *WebSocketServer) *Publisher {
	return &Publisher{ws: ws}
}

// HandleEvent implements tx.EventSink.
func (p *Publisher) HandleEvent(ev tx.Event) {
	if p.ws == nil {
		return
	}

	msg := StreamMessage{
		Type:      "event",
		EventType: ev.Type,
		Sequence:  ev.Sequence,
		Time:      ev.Time,
		Data:      ev.Data,
	}
	if ev.Pair != (common.Address{}) {
		pair := ev.Pair
		msg.Pair = &pair
	}

	data, err := json.Marshal(msg)
	if err != nil {
		p.ws.server.logger.Error("failed to marshal stream message", "event", ev.Type, "error", err)
		return
	}
	p.ws.Broadcast(ev, data)
}

var _ tx.EventSink = (*Publisher)(nil)
