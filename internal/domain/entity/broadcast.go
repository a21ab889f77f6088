// internal/domain/entity/broadcast.go
package entity

// Broadcast message types pushed to dashboard subscribers. The shapes below
// are the wire contract with connected clients and must stay stable.
const (
	BroadcastStatusUpdate = "entry-status-update"
	BroadcastNewEntry     = "new-entry"
)

// BroadcastEnvelope wraps every outgoing realtime message.
type BroadcastEnvelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// StatusUpdateMessage notifies subscribers of one lifecycle transition.
type StatusUpdateMessage struct {
	ID                string `json:"id"`
	Status            Status `json:"status"`
	StatusDescription string `json:"statusDescription,omitempty"`
}

// NewEntryMessage carries a freshly created history entry.
type NewEntryMessage struct {
	Entry *HistoryEntry `json:"entry"`
}
