package domain

// LogType classifies diagnostic log entries.
type LogType string

const (
	LogTypeInfo    LogType = "info"
	LogTypeError   LogType = "error"
	LogTypeSuccess LogType = "success"
)

// SystemLog is an ephemeral diagnostic record. Entries live only in the
// engine's in-memory ring buffer and are never persisted.
type SystemLog struct {
	ID        string  `json:"id"`
	Timestamp string  `json:"timestamp"`
	Type      LogType `json:"type"`
	Message   string  `json:"message"`
	Details   string  `json:"details,omitempty"`
}

// CollectionStat reports existence and row count for one remote collection,
// used purely for operator visibility on the settings screen.
type CollectionStat struct {
	Name   string `json:"name"`
	Exists bool   `json:"exists"`
	Count  int    `json:"count"`
}
