package otclient

import "errors"

// State-machine protocol violations (spec.md §7). All are fatal: a
// RevisionDesync or NoPendingAck means the client must discard local state
// and re-sync from the server; recovery is not modeled here.
var (
	ErrNoPendingAck  = errors.New("otclient: serverAck received while synchronized")
	ErrRevisionDesync = errors.New("otclient: incoming operation does not match expected base length")
	ErrNotImplemented = errors.New("otclient: adapter hook not implemented")
)
