package history

import "errors"

// ErrNotParented is returned when a client submits an operation based on a
// revision for which the server has already accepted another operation from
// that same client. Clients are responsible for buffering their own
// concurrent edits (otclient does this); the server never buffers on a
// client's behalf.
var ErrNotParented = errors.New("history: operation is not parented off a revision the server has seen")

// ErrRemoteOutOfOrder is returned by RecordRemote when the entry it is given
// does not immediately follow the log's current revision: a gap means this
// instance missed an earlier broadcast event and its history can no longer
// be trusted to transform against without replaying from a snapshot.
var ErrRemoteOutOfOrder = errors.New("history: remote entry does not follow the current revision")
