package attribution

import (
	"errors"
	"fmt"
)

// ErrInvalidRequest is the base of every configuration error. Callers map it
// to a client error; anything else coming out of the engine is an upstream failure.
var ErrInvalidRequest = errors.New("invalid attribution request")

var (
	ErrUnknownModel     = fmt.Errorf("%w: unknown attribution model", ErrInvalidRequest)
	ErrUnknownLevel     = fmt.Errorf("%w: unknown aggregation level", ErrInvalidRequest)
	ErrChannelRequired  = fmt.Errorf("%w: channel is required for this level", ErrInvalidRequest)
	ErrShopRequired     = fmt.Errorf("%w: shop is required", ErrInvalidRequest)
	ErrInvalidDateRange = fmt.Errorf("%w: invalid date range", ErrInvalidRequest)
)

// IsConfigError reports whether err is a configuration error.
func IsConfigError(err error) bool {
	return errors.Is(err, ErrInvalidRequest)
}
