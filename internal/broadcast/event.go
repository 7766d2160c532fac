// Package broadcast publishes accepted operations to Kafka so that other
// otctl server instances sharing the same document can apply them, and
// consumes that same topic to receive operations accepted elsewhere.
package broadcast

import "time"

// OpEvent is the wire event published for every operation internal/history
// accepts, keyed by DocID so Kafka preserves per-document ordering.
type OpEvent struct {
	DocID     string    `json:"docId"`
	ClientID  string    `json:"clientId"`
	EntryID   string    `json:"entryId"`
	Revision  int       `json:"revision"`
	OpJSON    []byte    `json:"op"`
	AppliedAt time.Time `json:"appliedAt"`
}
