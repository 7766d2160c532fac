// Package transport carries operations between otclient.Client and
// internal/server.Hub over a gorilla/websocket connection.
package transport

import (
	"encoding/json"

	"golang.org/x/xerrors"

	"github.com/otlabs/collabtext/ot"
)

// MsgType discriminates the small message protocol spoken over a
// connection's websocket.
type MsgType string

const (
	// MsgInit is sent by the server immediately after a connection is
	// accepted: it carries the document's current content and revision.
	MsgInit MsgType = "init"
	// MsgOperation carries an operation in either direction: client-to-server
	// submissions, and server-to-client broadcasts of accepted operations.
	MsgOperation MsgType = "operation"
	// MsgAck is sent by the server to confirm that the operation a client
	// most recently submitted has been accepted.
	MsgAck MsgType = "ack"
)

// Envelope is the outermost JSON object written to the wire; Type selects
// which of the other fields are populated.
type Envelope struct {
	Type      MsgType              `json:"type"`
	Revision  int                  `json:"revision,omitempty"`
	Content   string               `json:"content,omitempty"`
	Op        *ot.WrappedOperation `json:"op,omitempty"`
	ClientID  string               `json:"clientId,omitempty"`
}

// Encode marshals e to JSON, wrapping any error.
func (e Envelope) Encode() ([]byte, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return nil, xerrors.Errorf("transport: encode %s: %w", e.Type, err)
	}
	return b, nil
}

// Decode unmarshals b into an Envelope.
func Decode(b []byte) (Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(b, &e); err != nil {
		return Envelope{}, xerrors.Errorf("transport: decode: %w", err)
	}
	return e, nil
}
