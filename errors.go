package protect

import (
	"fmt"

	"github.com/lumenvue/protectclient/internal/httpapi"
	"github.com/lumenvue/protectclient/internal/wire"
	"github.com/lumenvue/protectclient/internal/wsconn"
)

// Error taxonomy re-exported from the internal packages that actually
// classify failures, so callers never need to import internal/* to
// type-switch on an error kind (spec.md §7).
type (
	AuthError       = httpapi.AuthError
	PermissionError = httpapi.PermissionError
	NotFoundError   = httpapi.NotFoundError
	BadRequestError = httpapi.BadRequestError
	TransportError  = httpapi.TransportError
	ProtocolError   = wire.ProtocolError
	StreamError     = wsconn.StreamError
)

// StateError reports an operation invalid for the client's current
// state (spec.md §7: e.g. Connect called twice, a setter invoked before
// any bootstrap has loaded). Surfaced immediately, no retry.
type StateError struct {
	Op     string
	Reason string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("protect: %s: %s", e.Op, e.Reason)
}
