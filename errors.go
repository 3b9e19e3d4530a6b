package meadow

import "errors"

var (
	// ErrSelfAttach is returned when a session is attached to itself.
	ErrSelfAttach = errors.New("meadow: session cannot be attached to itself")
	// ErrNestedGroup is returned when an attach would make a group deeper
	// than one level.
	ErrNestedGroup = errors.New("meadow: groups are one level deep")
	// ErrAlreadyAttached is returned when the child already has a parent.
	ErrAlreadyAttached = errors.New("meadow: session is already attached")
	// ErrNotAttached is returned by Detach for a session that is not a child.
	ErrNotAttached = errors.New("meadow: session is not attached")
)

// ErrNoStore is returned by queries on a Checker created without a database.
var ErrNoStore = errors.New("meadow: checker has no database")
