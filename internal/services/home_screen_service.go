package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	MQTT "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/benmeehan/hospital-finder/internal/constants"
	"github.com/benmeehan/hospital-finder/internal/models"
	"github.com/benmeehan/hospital-finder/internal/utils"
	"github.com/benmeehan/hospital-finder/pkg/mqtt"
)

// HomeScreenService hosts the home screen: it accepts user commands from the
// UI host over MQTT, drives the location controller and the facility
// service, and publishes screen snapshots and error notifications back.
type HomeScreenService struct {
	// Configuration fields
	topicPrefix string
	qos         int

	// Dependencies
	mqttClient mqtt.MQTTClient
	controller *LocationController
	facilities *FacilityService
	state      *ScreenState
	activity   *ActivityLog
	logger     zerolog.Logger

	// Internal state management
	commands *utils.WorkerPool
	outbox   *utils.WorkerPool
	ctx      context.Context
	cancel   context.CancelFunc
	mu       sync.Mutex
	running  bool
}

// NewHomeScreenService wires the screen together. mqttClient may be nil, in
// which case the screen is only reachable through its methods.
func NewHomeScreenService(topicPrefix string, qos int, mqttClient mqtt.MQTTClient, controller *LocationController,
	facilities *FacilityService, state *ScreenState, activity *ActivityLog, logger zerolog.Logger) *HomeScreenService {
	h := &HomeScreenService{
		topicPrefix: topicPrefix,
		qos:         qos,
		mqttClient:  mqttClient,
		controller:  controller,
		facilities:  facilities,
		state:       state,
		activity:    activity,
		logger:      logger,
	}
	controller.Subscribe(h.onTransition)
	facilities.OnChange(h.publishSnapshot)
	activity.AddNotifier(h)
	return h
}

// Start subscribes to the command topic and publishes the initial snapshot.
func (h *HomeScreenService) Start() error {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		h.logger.Warn().Msg("HomeScreenService is already running")
		return errors.New("home screen service is already running")
	}
	h.ctx, h.cancel = context.WithCancel(context.Background())
	h.commands = utils.NewWorkerPool(1, constants.DefaultOutboxSize)
	h.outbox = utils.NewWorkerPool(1, constants.DefaultOutboxSize)
	h.running = true
	h.mu.Unlock()

	if h.mqttClient != nil {
		topic := constants.Topic(h.topicPrefix, constants.TopicHomeCommand)
		h.logger.Info().Str("topic", topic).Msg("Starting HomeScreenService and subscribing to MQTT topic")
		if err := mqtt.Await(h.mqttClient.Subscribe(topic, byte(h.qos), h.HandleCommand), constants.DefaultPublishTimeout); err != nil {
			h.logger.Error().Err(err).Str("topic", topic).Msg("Failed to subscribe to MQTT topic")
			h.shutdown()
			return err
		}
	}

	h.publishSnapshot()
	return nil
}

// Stop unsubscribes, tears the controller down and drains pending work.
func (h *HomeScreenService) Stop() error {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return errors.New("home screen service is not running")
	}
	h.mu.Unlock()

	if h.mqttClient != nil {
		topic := constants.Topic(h.topicPrefix, constants.TopicHomeCommand)
		if err := mqtt.Await(h.mqttClient.Unsubscribe(topic), constants.DefaultPublishTimeout); err != nil {
			h.logger.Warn().Err(err).Str("topic", topic).Msg("Failed to unsubscribe from MQTT topic")
		}
	}

	h.shutdown()
	h.logger.Info().Msg("HomeScreenService stopped")
	return nil
}

func (h *HomeScreenService) shutdown() {
	h.cancel()
	h.controller.Close()
	h.commands.Shutdown()

	h.mu.Lock()
	h.running = false
	outbox := h.outbox
	h.mu.Unlock()
	outbox.Shutdown()
}

// HandleCommand processes an incoming MQTT message. Commands run one at a
// time in arrival order.
func (h *HomeScreenService) HandleCommand(client MQTT.Client, msg MQTT.Message) {
	var cmd models.HomeCommand
	if err := json.Unmarshal(msg.Payload(), &cmd); err != nil {
		h.logger.Error().Err(err).Str("topic", msg.Topic()).Msg("Failed to parse home command")
		return
	}

	h.mu.Lock()
	pool := h.commands
	h.mu.Unlock()
	if pool == nil {
		h.logger.Warn().Str("action", cmd.Action).Msg("Home command received before start")
		return
	}

	if err := pool.Submit(func() { h.dispatch(cmd) }); err != nil {
		h.logger.Warn().Err(err).Str("action", cmd.Action).Msg("Home command dropped")
	}
}

func (h *HomeScreenService) dispatch(cmd models.HomeCommand) {
	h.logger.Debug().Str("action", cmd.Action).Msg("Handling home command")

	switch cmd.Action {
	case constants.ActionRequestLocation:
		if err := h.RequestLocation(); err != nil {
			h.logger.Warn().Err(err).Msg("Location request rejected")
		}
	case constants.ActionCancelLocation:
		h.CancelLocation()
	case constants.ActionFindHospitals:
		if _, err := h.FindHospitals(h.ctx); err != nil {
			h.logger.Warn().Err(err).Msg("Hospital search did not complete")
		}
	default:
		h.logger.Warn().Str("action", cmd.Action).Msg("Unknown home command")
	}
}

// RequestLocation starts a location episode.
func (h *HomeScreenService) RequestLocation() error {
	return h.controller.RequestLocation()
}

// CancelLocation cancels the running location episode, if any.
func (h *HomeScreenService) CancelLocation() {
	h.controller.Cancel()
}

// FindHospitals searches around the last resolved coordinate.
func (h *HomeScreenService) FindHospitals(ctx context.Context) (models.FacilitySet, error) {
	return h.facilities.FindNearby(ctx)
}

// Facility returns one record of the current set with the user's last
// resolved position, for the details view.
func (h *HomeScreenService) Facility(id string) (models.FacilityDetails, error) {
	set, ok := h.state.Facilities()
	if !ok {
		return models.FacilityDetails{}, ErrFacilityNotFound
	}
	record, ok := set.Find(id)
	if !ok {
		return models.FacilityDetails{}, ErrFacilityNotFound
	}

	details := models.FacilityDetails{Facility: record}
	if coord, ok := h.state.Coordinate(); ok {
		details.UserLocation = &coord
	}
	return details, nil
}

// Snapshot returns the current screen.
func (h *HomeScreenService) Snapshot() models.ScreenSnapshot {
	return h.state.Snapshot(h.controller.MaxAttempts())
}

// Logs returns the screen's activity trail.
func (h *HomeScreenService) Logs() []models.LogEntry {
	return h.activity.Entries()
}

// Notify publishes an error notification for the UI host to show.
func (h *HomeScreenService) Notify(n models.Notification) {
	h.publish(constants.TopicHomeNotification, n, false)
}

// onTransition runs under the controller lock and must not call back into it.
func (h *HomeScreenService) onTransition(models.AcquisitionState) {
	h.publishSnapshot()
}

func (h *HomeScreenService) publishSnapshot() {
	h.publish(constants.TopicHomeState, h.Snapshot(), true)
}

// publish captures v now and hands it to the outbox, keeping messages in the
// order their state changes happened.
func (h *HomeScreenService) publish(suffix string, v any, retained bool) {
	if h.mqttClient == nil {
		return
	}

	h.mu.Lock()
	pool := h.outbox
	running := h.running
	h.mu.Unlock()
	if !running || pool == nil {
		return
	}

	topic := constants.Topic(h.topicPrefix, suffix)
	payload, err := json.Marshal(v)
	if err != nil {
		h.logger.Error().Err(err).Str("topic", topic).Msg("Failed to serialize screen message")
		return
	}

	err = pool.Submit(func() {
		token := h.mqttClient.Publish(topic, byte(h.qos), retained, payload)
		if err := mqtt.Await(token, constants.DefaultPublishTimeout); err != nil {
			h.logger.Error().Err(err).Str("topic", topic).Msg("Failed to publish screen message")
		}
	})
	if err != nil {
		h.logger.Debug().Err(err).Str("topic", topic).Msg("Screen message dropped")
	}
}
