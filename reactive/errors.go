package reactive

import "errors"

var (
	ErrUnknownProperty = errors.New("property was not present when the store was observed")
	ErrReadOnly        = errors.New("property is read-only")
	ErrDuplicateKey    = errors.New("property already defined")
	ErrCycle           = errors.New("self-referential data cannot be observed")
	ErrReentrant       = errors.New("watcher re-entered while evaluating")
)
