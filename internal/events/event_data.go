package events

// EventData is the interface that all event data types must implement
// This allows for type-safe event data while maintaining flexibility
type EventData interface {
	// EventType returns the event type this data is associated with
	EventType() EventType
}

// TradeData describes a ledger transaction. It is used for both executed and
// rejected trades; Status carries the ledger's status message.
type TradeData struct {
	TransactionID string  `json:"transaction_id"`
	Date          string  `json:"date"`
	Action        string  `json:"action"`
	Symbol        string  `json:"symbol"`
	Price         float64 `json:"price"`
	Quantity      int64   `json:"quantity"`
	Fee           float64 `json:"fee"`
	Status        string  `json:"status"`
	Success       bool    `json:"success"`
}

// EventType returns TradeExecuted or TradeRejected depending on Success
func (d *TradeData) EventType() EventType {
	if d.Success {
		return TradeExecuted
	}
	return TradeRejected
}

// DepositProcessedData contains data for DepositProcessed events
type DepositProcessedData struct {
	TransactionID string  `json:"transaction_id"`
	Date          string  `json:"date"`
	Amount        float64 `json:"amount"`
	Balance       float64 `json:"balance"`
}

// EventType returns the event type for DepositProcessedData
func (d *DepositProcessedData) EventType() EventType {
	return DepositProcessed
}

// SnapshotRecordedData contains data for SnapshotRecorded events
type SnapshotRecordedData struct {
	SnapshotID           string  `json:"snapshot_id"`
	Date                 string  `json:"date"`
	NetWorth             float64 `json:"net_worth"`
	TotalReturn          float64 `json:"total_return"`
	ReturnSinceLastMonth float64 `json:"return_since_last_month"`
}

// EventType returns the event type for SnapshotRecordedData
func (d *SnapshotRecordedData) EventType() EventType {
	return SnapshotRecorded
}

// SimulationCompletedData contains data for SimulationCompleted events
type SimulationCompletedData struct {
	RunID     string `json:"run_id"`
	Seed      uint64 `json:"seed"`
	Days      int    `json:"days"`
	Agents    int    `json:"agents"`
	Companies int    `json:"companies"`
}

// EventType returns the event type for SimulationCompletedData
func (d *SimulationCompletedData) EventType() EventType {
	return SimulationCompleted
}

// BackupCompletedData contains data for BackupCompleted events
type BackupCompletedData struct {
	Key       string `json:"key"`
	SizeBytes int64  `json:"size_bytes"`
	Checksum  string `json:"checksum"`
}

// EventType returns the event type for BackupCompletedData
func (d *BackupCompletedData) EventType() EventType {
	return BackupCompleted
}

// ErrorData contains data for ErrorOccurred events
type ErrorData struct {
	Error   string                 `json:"error"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// EventType returns the event type for ErrorData
func (d *ErrorData) EventType() EventType {
	return ErrorOccurred
}
