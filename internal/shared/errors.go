package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrActorMissing indicates the request carried no authenticated actor.
	ErrActorMissing = errors.New("acting user not identified")
)
