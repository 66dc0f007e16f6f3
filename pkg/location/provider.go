package location

import "context"

// Provider interface defines the methods for location providers
type Provider interface {
	// GetLocation performs one position read. Implementations honour ctx and
	// return errors carrying a faults kind.
	GetLocation(ctx context.Context, opts PositionOptions) (Position, error)
}

// PermissionStatus is the outcome of a location permission request.
type PermissionStatus string

const (
	PermissionGranted PermissionStatus = "granted"
	PermissionDenied  PermissionStatus = "denied"
)

// PermissionRequester asks the platform for a location permission grant.
type PermissionRequester interface {
	RequestPermission(ctx context.Context) (PermissionStatus, error)
}

// StaticPermission answers every request with a fixed status. Hosts that
// grant location access implicitly use PermissionGranted.
type StaticPermission PermissionStatus

// RequestPermission returns the configured status.
func (s StaticPermission) RequestPermission(ctx context.Context) (PermissionStatus, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return PermissionStatus(s), nil
}
