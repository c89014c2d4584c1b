package machine

import "errors"

var (
	ErrAnonymousCaller  = errors.New("call requires a caller identity")
	ErrNotMaintainer    = errors.New("caller is not a maintainer")
	ErrEmptyModule      = errors.New("invalid or empty module")
	ErrModuleTooLarge   = errors.New("module exceeds the size limit")
	ErrNoMaintainers    = errors.New("maintainer set cannot be emptied")
	ErrDispatcherClosed = errors.New("dispatcher is closed")
	ErrBadSnapshot      = errors.New("invalid snapshot")
)
