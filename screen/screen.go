// Package screen holds the UI state machines of a single client: which
// screen is shown for the current session, the sign-in form and the profile
// editor. Remote failures end up in each screen's message; the errors
// returned by screen methods only report actions rejected locally.
package screen

import "errors"

var (
	// ErrBusy rejects an action while a previous one is still in flight.
	ErrBusy = errors.New("screen: operation in progress")

	ErrNoSession = errors.New("screen: no session")
)
