package location

import (
	"context"
	"errors"
	"fmt"

	"github.com/benmeehan/hospital-finder/pkg/faults"
)

// Platform geolocation error codes.
const (
	CodePermissionDenied    = 1
	CodePositionUnavailable = 2
	CodeTimeout             = 3
)

// TranslateCode maps a platform geolocation error code onto a faults kind.
func TranslateCode(code int, message string) error {
	const op = "location.read"
	err := fmt.Errorf("code %d: %s", code, message)
	switch code {
	case CodePermissionDenied:
		return faults.Wrap(faults.PermissionDenied, op, err)
	case CodeTimeout:
		return faults.Wrap(faults.SensorTimeout, op, err)
	default:
		return faults.Wrap(faults.SensorUnavailable, op, err)
	}
}

// classify gives an untyped read error a faults kind. Errors that already
// carry one are returned unchanged.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if faults.KindOf(err) != faults.Unknown {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return faults.Wrap(faults.SensorTimeout, op, err)
	}
	return faults.Wrap(faults.SensorUnavailable, op, err)
}
