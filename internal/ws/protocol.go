package ws

import (
	"github.com/mesen-mcp/backend/internal/health"
	"github.com/mesen-mcp/backend/internal/stream"
)

type MessageType string

const (
	MsgStatus  MessageType = "status"
	MsgChanges MessageType = "changes"
	MsgError   MessageType = "error"
)

type WSMessage struct {
	Type    MessageType `json:"type"`
	Payload interface{} `json:"payload"`
}

// StatusPayload is pushed on connect and on every status interval.
type StatusPayload struct {
	Stats   stream.Stats        `json:"stats"`
	Process *health.ProcessInfo `json:"process,omitempty"`
}

// ChangesPayload carries a throttled batch of admitted change records. The
// push feed is a tap: records delivered here remain in the pull queue.
type ChangesPayload struct {
	Records []stream.Record `json:"records"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
