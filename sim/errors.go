package sim

import (
	"errors"
	"fmt"
)

// Errors returned by the network controller and by element validation.
var (
	ErrPortNotBound        = errors.New("required port not bound")
	ErrNotLoaded           = errors.New("network is not loaded")
	ErrAlreadyLoaded       = errors.New("network is already loaded")
	ErrDuplicatedElement   = errors.New("duplicated element name")
	ErrInvalidElementName  = errors.New("invalid element name")
	ErrUnknownPort         = errors.New("unknown port")
	ErrPortNeedsSyncedElem = errors.New("port requires a synchronized conflict element")
)

func portNotBound(elem Named, port string) error {
	return fmt.Errorf("element %s, port %s: %w", elem.Name(), port, ErrPortNotBound)
}
