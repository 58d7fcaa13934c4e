package baseline

import (
	"fmt"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/morfseg/pkg/errors"
)

// InvariantError reports a broken construction-store invariant. The model
// panics with it instead of continuing on a corrupted cost model.
type InvariantError struct {
	Construction string
	Count        int
	Reason       string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("%s: construction %q count %d: %s",
		apperrors.ErrInconsistentState, strings.ReplaceAll(e.Construction, keySep, " "), e.Count, e.Reason)
}

func (e *InvariantError) Unwrap() error {
	return apperrors.ErrInconsistentState
}
