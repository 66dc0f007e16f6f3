package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/benmeehan/hospital-finder/internal/models"
	"github.com/benmeehan/hospital-finder/internal/utils"
	"github.com/benmeehan/hospital-finder/pkg/faults"
	"github.com/benmeehan/hospital-finder/pkg/location"
)

var (
	// ErrAcquisitionInProgress rejects a request that would overlap a running episode.
	ErrAcquisitionInProgress = errors.New("location request already in progress")
	// ErrSearchInProgress rejects work that would overlap a facility search.
	ErrSearchInProgress = errors.New("facility search already in progress")
	// ErrControllerClosed is returned once the screen has been torn down.
	ErrControllerClosed = errors.New("location controller is closed")
	// ErrFacilityNotFound is returned for an id outside the current facility set.
	ErrFacilityNotFound = errors.New("facility not found")
)

// ControllerConfig bounds one acquisition episode.
type ControllerConfig struct {
	MaxAttempts  int
	RetryDelay   time.Duration
	ReadTimeout  time.Duration
	MaxCacheAge  time.Duration
	HighAccuracy bool
}

// LocationController runs the acquisition state machine: permission, a
// bounded number of position reads separated by a fixed delay, and
// cooperative cancellation. Transitions are applied under one mutex and
// observers are called in transition order while it is held, so observers
// must not call back into the controller.
type LocationController struct {
	config      ControllerConfig
	provider    location.Provider
	permissions location.PermissionRequester
	state       *ScreenState
	activity    *ActivityLog
	clock       utils.Clock
	logger      zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu         sync.Mutex
	observers  []func(models.AcquisitionState)
	episode    uuid.UUID // zero when no episode is running
	cancelled  bool
	inFlight   bool
	retryTimer utils.Timer
	closed     bool
}

// NewLocationController creates a controller writing into state.
func NewLocationController(
	config ControllerConfig,
	provider location.Provider,
	permissions location.PermissionRequester,
	state *ScreenState,
	activity *ActivityLog,
	clock utils.Clock,
	logger zerolog.Logger,
) *LocationController {
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &LocationController{
		config:      config,
		provider:    provider,
		permissions: permissions,
		state:       state,
		activity:    activity,
		clock:       clock,
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// MaxAttempts returns the per-episode read budget.
func (c *LocationController) MaxAttempts() int {
	return c.config.MaxAttempts
}

// Subscribe registers fn for every state transition.
func (c *LocationController) Subscribe(fn func(models.AcquisitionState)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, fn)
}

// State returns the current acquisition state.
func (c *LocationController) State() models.AcquisitionState {
	return c.state.Acquisition()
}

// RequestLocation starts a new episode. The outcome is delivered as state
// transitions. A request while an episode is running is rejected; a request
// while a cancellation is settling closes the old episode first.
func (c *LocationController) RequestLocation() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrControllerClosed
	}
	if c.episode != uuid.Nil {
		if !c.cancelled {
			c.logger.Warn().Str("episode", c.episode.String()).Msg("Location request ignored, episode already running")
			return ErrAcquisitionInProgress
		}
		c.finishCancelled()
	}

	first := models.Requesting(1)
	if err := c.state.beginAcquisition(first); err != nil {
		return err
	}

	c.episode = uuid.New()
	c.cancelled = false
	c.logger.Info().Str("episode", c.episode.String()).Int("max_attempts", c.config.MaxAttempts).Msg("Location episode started")
	c.notify(first)
	c.launch(c.episode, 1, true)
	return nil
}

// Cancel asks the running episode to stop. It does not abort a read already
// in flight; it suppresses any further attempt and unblocks the UI at once.
func (c *LocationController) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.episode == uuid.Nil || c.cancelled {
		return
	}
	c.cancelled = true
	c.stopRetryTimer()
	c.activity.Info("Location request cancelled by user")

	if c.inFlight {
		c.transition(models.Cancelling(), 0)
		return
	}
	c.finishCancelled()
}

// Close tears the controller down with its screen: pending retries are
// dropped, in-flight reads are aborted and late results are ignored.
func (c *LocationController) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.stopRetryTimer()
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
}

// launch runs one attempt in the background. Caller holds c.mu.
func (c *LocationController) launch(episode uuid.UUID, attempt int, askPermission bool) {
	c.inFlight = true
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		if askPermission {
			if err := c.checkPermission(); err != nil {
				c.complete(episode, attempt, location.Position{}, err, false)
				return
			}
			if !c.proceed(episode) {
				return
			}
		}

		c.activity.Info(fmt.Sprintf("Attempting to get current location (Attempt %d/%d)", attempt, c.config.MaxAttempts))

		ctx, cancel := context.WithTimeout(c.ctx, c.config.ReadTimeout)
		pos, err := c.provider.GetLocation(ctx, location.PositionOptions{
			HighAccuracy: c.config.HighAccuracy,
			Timeout:      c.config.ReadTimeout,
			MaximumAge:   c.config.MaxCacheAge,
		})
		cancel()

		c.complete(episode, attempt, pos, err, true)
	}()
}

func (c *LocationController) checkPermission() error {
	const op = "location.permission"

	c.activity.Info("Requesting location permission")
	status, err := c.permissions.RequestPermission(c.ctx)
	if err != nil {
		return faults.Wrap(faults.SensorUnavailable, op, fmt.Errorf("permission request failed: %w", err))
	}
	if status != location.PermissionGranted {
		return faults.New(faults.PermissionDenied, op, "location permission denied")
	}
	c.activity.Info("Location permission granted")
	return nil
}

// proceed reports whether episode still wants its first read once permission
// is granted. A cancellation that arrived meanwhile is settled here and the
// sensor is never touched.
func (c *LocationController) proceed(episode uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || episode != c.episode {
		return false
	}
	if c.cancelled {
		c.logger.Info().Str("episode", episode.String()).Msg("Episode cancelled before its first read")
		c.finishCancelled()
		return false
	}
	return true
}

// complete applies the result of one attempt.
func (c *LocationController) complete(episode uuid.UUID, attempt int, pos location.Position, err error, retryable bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	if episode != c.episode {
		c.logger.Debug().Str("episode", episode.String()).Msg("Discarding result of a finished episode")
		return
	}
	c.inFlight = false

	if c.cancelled {
		if err == nil {
			c.logger.Info().Str("episode", episode.String()).Msg("Discarding location received after cancellation")
		}
		c.finishCancelled()
		return
	}

	if err == nil {
		coord := c.toCoordinate(pos)
		c.activity.Info(fmt.Sprintf("Successfully got location: %f, %f", coord.Latitude, coord.Longitude))
		c.transition(models.Succeeded(coord), 0)
		c.endEpisode()
		return
	}

	kind := faults.KindOf(err)
	if kind == faults.PermissionDenied || !retryable {
		c.logger.Error().Err(err).Str("episode", episode.String()).Msg("Location episode failed")
		c.activity.Error(faults.Message(kind))
		c.transition(models.Failed(err), 0)
		c.endEpisode()
		return
	}

	if attempt < c.config.MaxAttempts {
		next := attempt + 1
		c.activity.Info(fmt.Sprintf("Location error: %v. Retrying location fetch (attempt %d/%d)", err, next, c.config.MaxAttempts))
		c.retryTimer = c.clock.AfterFunc(c.config.RetryDelay, func() {
			c.retry(episode, next)
		})
		return
	}

	exhausted := faults.Wrap(faults.RetriesExhausted, "location.acquire",
		fmt.Errorf("failed after %d attempts: %w", attempt, err))
	c.logger.Error().Err(exhausted).Str("episode", episode.String()).Msg("Location episode failed")
	c.activity.Error(faults.Message(faults.RetriesExhausted))
	c.transition(models.Failed(exhausted), 0)
	c.endEpisode()
}

// retry starts the next attempt when its timer fires, unless the episode
// ended or was cancelled since it was scheduled.
func (c *LocationController) retry(episode uuid.UUID, attempt int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || episode != c.episode || c.cancelled {
		return
	}
	c.retryTimer = nil
	c.transition(models.Requesting(attempt), attempt)
	c.launch(episode, attempt, false)
}

func (c *LocationController) toCoordinate(pos location.Position) models.Coordinate {
	observed := pos.Timestamp
	if observed.IsZero() {
		observed = c.clock.Now()
	}
	coord := models.Coordinate{
		Latitude:   pos.Latitude,
		Longitude:  pos.Longitude,
		ObservedAt: observed,
	}
	if pos.Accuracy != nil {
		v := *pos.Accuracy
		coord.AccuracyMeters = &v
	}
	if pos.Altitude != nil {
		v := *pos.Altitude
		coord.AltitudeMeters = &v
	}
	return coord
}

func (c *LocationController) finishCancelled() {
	c.transition(models.Cancelled(), 0)
	c.endEpisode()
}

func (c *LocationController) endEpisode() {
	c.stopRetryTimer()
	c.episode = uuid.Nil
	c.cancelled = false
	c.inFlight = false
}

func (c *LocationController) stopRetryTimer() {
	if c.retryTimer != nil {
		c.retryTimer.Stop()
		c.retryTimer = nil
	}
}

func (c *LocationController) transition(state models.AcquisitionState, attempt int) {
	c.state.setAcquisition(state, attempt)
	c.notify(state)
}

func (c *LocationController) notify(state models.AcquisitionState) {
	for _, fn := range c.observers {
		fn(state)
	}
}
