package sources

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrEntityData marks a failure that belongs to one entity, such as an unknown
// listing or a malformed payload. It says nothing about the source's health.
var ErrEntityData = errors.New("entity data unavailable")

// statusError reports a non-200 response. Client errors other than throttling
// are tied to the requested entity.
func statusError(source string, code int) error {
	if code >= 400 && code < 500 && code != http.StatusTooManyRequests {
		return fmt.Errorf("%s API returned status %d: %w", source, code, ErrEntityData)
	}
	return fmt.Errorf("%s API returned status %d", source, code)
}
