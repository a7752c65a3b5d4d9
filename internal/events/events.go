// Package events provides the kiosk's internal pub/sub bus and the typed
// event payloads published on it. Events describe things that happened
// (connection state changes, recorded doses, errors); the SSE stream and the
// operator API consume them.
package events

import "time"

// EventType identifies a system event
type EventType string

const (
	// ConnectionEstablished is published when the broadcaster session connects
	ConnectionEstablished EventType = "connection_established"
	// ConnectionLost is published when the broadcaster session drops
	ConnectionLost EventType = "connection_lost"
	// ProtocolDecodeError is published for each malformed protocol line
	ProtocolDecodeError EventType = "protocol_decode_error"
	// DoseRecorded is published after every confirmation decision
	DoseRecorded EventType = "dose_recorded"
	// HistoryCleared is published when the operator clears the dose history
	HistoryCleared EventType = "history_cleared"
	// ReminderDue is published when a taken dose's next-dose time passes
	ReminderDue EventType = "reminder_due"
	// PersistenceError is published when a ledger snapshot write fails
	PersistenceError EventType = "persistence_error"
	// BackupCompleted is published after a successful off-device backup
	BackupCompleted EventType = "backup_completed"
	// BackupFailed is published after a failed off-device backup
	BackupFailed EventType = "backup_failed"
)

// EventData is the interface that all event data types must implement
type EventData interface {
	// EventType returns the event type this data is associated with
	EventType() EventType
}

// Event is an event instance as delivered to subscribers
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      EventData `json:"data,omitempty"`
}

// ConnectionData contains data for connection state events
type ConnectionData struct {
	Endpoint string `json:"endpoint"`
	Reason   string `json:"reason,omitempty"`
}

// EventType returns the event type for ConnectionData
func (d *ConnectionData) EventType() EventType {
	if d.Reason != "" {
		return ConnectionLost
	}
	return ConnectionEstablished
}

// DecodeErrorData contains data for ProtocolDecodeError events
type DecodeErrorData struct {
	Line  string `json:"line"`
	Error string `json:"error"`
}

// EventType returns the event type for DecodeErrorData
func (d *DecodeErrorData) EventType() EventType {
	return ProtocolDecodeError
}

// DoseRecordedData contains data for DoseRecorded events
type DoseRecordedData struct {
	Medication   string     `json:"medication"`
	Taken        bool       `json:"taken"`
	TimeTaken    time.Time  `json:"time_taken"`
	NextDoseTime *time.Time `json:"next_dose_time,omitempty"`
}

// EventType returns the event type for DoseRecordedData
func (d *DoseRecordedData) EventType() EventType {
	return DoseRecorded
}

// ReminderDueData contains data for ReminderDue events
type ReminderDueData struct {
	Medication   string    `json:"medication"`
	NextDoseTime time.Time `json:"next_dose_time"`
}

// EventType returns the event type for ReminderDueData
func (d *ReminderDueData) EventType() EventType {
	return ReminderDue
}

// HistoryClearedData contains data for HistoryCleared events
type HistoryClearedData struct {
	RecordsRemoved int `json:"records_removed"`
}

// EventType returns the event type for HistoryClearedData
func (d *HistoryClearedData) EventType() EventType {
	return HistoryCleared
}

// BackupData contains data for BackupCompleted events
type BackupData struct {
	Archive   string `json:"archive"`
	SizeBytes int64  `json:"size_bytes"`
}

// EventType returns the event type for BackupData
func (d *BackupData) EventType() EventType {
	return BackupCompleted
}

// ErrorData contains data for error events (persistence, backup)
type ErrorData struct {
	Type    EventType `json:"-"`
	Source  string    `json:"source"`
	Message string    `json:"message"`
}

// EventType returns the event type for ErrorData
func (d *ErrorData) EventType() EventType {
	return d.Type
}
