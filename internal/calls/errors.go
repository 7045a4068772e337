package calls

import "errors"

var (
	// ErrInvalidArgument is returned for missing or malformed identifiers
	// before any state is touched.
	ErrInvalidArgument = errors.New("calls: invalid argument")

	// ErrNotFound is returned for an unknown call id. No side effect.
	ErrNotFound = errors.New("calls: call not found")

	// ErrForbidden is returned when the actor is neither caller nor receiver.
	// No side effect.
	ErrForbidden = errors.New("calls: actor is not a party to this call")

	// ErrInvalidTransition is returned for state machine violations, including
	// the losing side of a transition race. The stored record is unchanged.
	ErrInvalidTransition = errors.New("calls: invalid status transition")

	// ErrReceiverBusy is returned at create time when the receiver's
	// concurrent-ringing cap is reached.
	ErrReceiverBusy = errors.New("calls: receiver busy")
)
