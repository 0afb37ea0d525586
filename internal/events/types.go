// Package events publishes ledger and simulation events.
package events

import "time"

// EventType represents different event types
type EventType string

const (
	// Ledger events
	TradeExecuted    EventType = "TRADE_EXECUTED"
	TradeRejected    EventType = "TRADE_REJECTED"
	DepositProcessed EventType = "DEPOSIT_PROCESSED"
	SnapshotRecorded EventType = "SNAPSHOT_RECORDED"

	// Infrastructure events
	SimulationCompleted EventType = "SIMULATION_COMPLETED"
	BackupCompleted     EventType = "BACKUP_COMPLETED"
	ErrorOccurred       EventType = "ERROR_OCCURRED"
)

// Event is the envelope written to the event stream.
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Module    string    `json:"module"`
	Data      EventData `json:"data"`
}

// NewEvent wraps data in an envelope stamped with the current time.
func NewEvent(module string, data EventData) Event {
	return Event{
		Type:      data.EventType(),
		Timestamp: time.Now().UTC(),
		Module:    module,
		Data:      data,
	}
}
