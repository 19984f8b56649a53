package state

import "errors"

var (
	ErrNoUser = errors.New("no signed-in user")
	ErrNoNest = errors.New("no nest selected")
)
