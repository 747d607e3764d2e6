package frftp

import "github.com/gofrs/uuid"

// newSessionID mints a correlation ID for log lines tying together a
// sender's and a receiver's view of the same transfer. It never
// travels on the wire — the frame header is bit-exact per spec §6 and
// has no field for it.
func newSessionID() string {
	id, err := uuid.NewV4()
	if err != nil {
		// Entropy failure is exceedingly rare and non-fatal here: a
		// session ID is a logging aid, not a protocol field.
		return "unknown"
	}
	return id.String()
}
