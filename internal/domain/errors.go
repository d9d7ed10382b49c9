package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicate         = errors.New("duplicate key")
	ErrOwnershipMismatch = errors.New("establishment not owned by tenant")
	ErrInvalidAlias      = errors.New("invalid alias")
	ErrAliasTaken        = errors.New("alias already taken")
	// ErrAliasExhausted means every issuance attempt collided. With the token
	// length in use this points at a broken generator or store, not bad luck.
	ErrAliasExhausted = errors.New("alias issuance exhausted all attempts")
)
