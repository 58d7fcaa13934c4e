package baseline

import (
	"fmt"
	"math"

	apperrors "github.com/Adithya-Monish-Kumar-K/morfseg/pkg/errors"
)

// LogDampening maps a count to round(log2(x+1)).
func LogDampening(x int) int {
	return int(math.Round(math.Log2(float64(x + 1))))
}

// OnesDampening maps every count to 1.
func OnesDampening(int) int {
	return 1
}

// ParseDampening returns the count function for "none", "log" or "ones".
// "none" yields a nil function, which callers treat as identity.
func ParseDampening(name string) (CountFunc, error) {
	switch name {
	case "", "none":
		return nil, nil
	case "log":
		return LogDampening, nil
	case "ones":
		return OnesDampening, nil
	default:
		return nil, fmt.Errorf("%w: %q", apperrors.ErrUnknownDampening, name)
	}
}
