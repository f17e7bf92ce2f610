package database

import "github.com/JaimeStill/warden/pkg/faults"

// Check reports the pool's phase through these errors.
var (
	ErrNotReady    = faults.New(faults.ErrExternalService, "database connection not yet established")
	ErrUnreachable = faults.New(faults.ErrExternalService, "database unreachable, startup retries exhausted")
	ErrClosed      = faults.New(faults.ErrClosed, "database pool closed")
)

type phase int32

const (
	connecting phase = iota
	connected
	unreachable
	closed
)

func (p phase) err() error {
	switch p {
	case connecting:
		return ErrNotReady
	case unreachable:
		return ErrUnreachable
	case closed:
		return ErrClosed
	}
	return nil
}
