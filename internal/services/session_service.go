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
	"github.com/benmeehan/hospital-finder/pkg/identity"
	"github.com/benmeehan/hospital-finder/pkg/mqtt"
)

const authErrorTitle = "Authentication Error"

// SessionService gates the app on a signed-in user. It routes the
// navigation host to Login or Home and runs auth commands from the UI host.
type SessionService struct {
	// Configuration fields
	topicPrefix string
	qos         int

	// Dependencies
	mqttClient mqtt.MQTTClient
	provider   identity.Provider
	clock      utils.Clock
	logger     zerolog.Logger

	// Internal state management
	commands *utils.WorkerPool
	ctx      context.Context
	cancel   context.CancelFunc
	mu       sync.Mutex
	running  bool
	route    models.Route
}

// NewSessionService creates the session gate. mqttClient may be nil.
func NewSessionService(topicPrefix string, qos int, mqttClient mqtt.MQTTClient, provider identity.Provider,
	clock utils.Clock, logger zerolog.Logger) *SessionService {
	s := &SessionService{
		topicPrefix: topicPrefix,
		qos:         qos,
		mqttClient:  mqttClient,
		provider:    provider,
		clock:       clock,
		logger:      logger,
	}
	provider.OnSessionChanged(s.onSessionChanged)
	return s
}

// Start subscribes to auth commands and publishes the current route.
func (s *SessionService) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Warn().Msg("SessionService is already running")
		return errors.New("session service is already running")
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.commands = utils.NewWorkerPool(1, constants.DefaultOutboxSize)
	s.running = true
	route := s.route
	s.mu.Unlock()

	if s.mqttClient != nil {
		topic := constants.Topic(s.topicPrefix, constants.TopicAuthCommand)
		s.logger.Info().Str("topic", topic).Msg("Starting SessionService and subscribing to MQTT topic")
		if err := mqtt.Await(s.mqttClient.Subscribe(topic, byte(s.qos), s.HandleCommand), constants.DefaultPublishTimeout); err != nil {
			s.logger.Error().Err(err).Str("topic", topic).Msg("Failed to subscribe to MQTT topic")
			s.shutdown()
			return err
		}
	}

	s.publish(constants.TopicNavigationRoute, route, true)
	return nil
}

// Stop unsubscribes and waits for the running command to finish.
func (s *SessionService) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return errors.New("session service is not running")
	}
	s.mu.Unlock()

	if s.mqttClient != nil {
		topic := constants.Topic(s.topicPrefix, constants.TopicAuthCommand)
		if err := mqtt.Await(s.mqttClient.Unsubscribe(topic), constants.DefaultPublishTimeout); err != nil {
			s.logger.Warn().Err(err).Str("topic", topic).Msg("Failed to unsubscribe from MQTT topic")
		}
	}

	s.shutdown()
	s.logger.Info().Msg("SessionService stopped")
	return nil
}

func (s *SessionService) shutdown() {
	s.cancel()
	s.commands.Shutdown()

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// Route returns the screen the navigation host should show.
func (s *SessionService) Route() models.Route {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.route
}

// HandleCommand processes an incoming auth command.
func (s *SessionService) HandleCommand(client MQTT.Client, msg MQTT.Message) {
	var cmd models.AuthCommand
	if err := json.Unmarshal(msg.Payload(), &cmd); err != nil {
		s.logger.Error().Err(err).Str("topic", msg.Topic()).Msg("Failed to parse auth command")
		return
	}

	s.mu.Lock()
	pool := s.commands
	s.mu.Unlock()
	if pool == nil {
		s.logger.Warn().Str("action", cmd.Action).Msg("Auth command received before start")
		return
	}

	if err := pool.Submit(func() { s.dispatch(cmd) }); err != nil {
		s.logger.Warn().Err(err).Str("action", cmd.Action).Msg("Auth command dropped")
	}
}

func (s *SessionService) dispatch(cmd models.AuthCommand) {
	var err error
	switch cmd.Action {
	case constants.ActionSignIn:
		_, err = s.provider.SignIn(s.ctx, cmd.Email, cmd.Password)
	case constants.ActionSignUp:
		_, err = s.provider.SignUp(s.ctx, cmd.Email, cmd.Password, cmd.DisplayName)
	case constants.ActionSignInIDP:
		_, err = s.provider.SignInWithIDToken(s.ctx, cmd.ProviderID, cmd.IDToken)
	case constants.ActionSignOut:
		err = s.provider.SignOut(s.ctx)
	default:
		s.logger.Warn().Str("action", cmd.Action).Msg("Unknown auth command")
		return
	}

	if err != nil {
		s.logger.Warn().Err(err).Str("action", cmd.Action).Msg("Auth command failed")
		s.publish(constants.TopicAuthNotification, models.Notification{
			Title:     authErrorTitle,
			Message:   identity.Describe(err),
			Timestamp: s.clock.Now(),
		}, false)
	}
}

func (s *SessionService) onSessionChanged(session *identity.Session) {
	route := models.Route{Screen: identity.InitialScreen(session)}
	if session != nil {
		route.UserID = session.UserID
	}

	s.mu.Lock()
	s.route = route
	running := s.running
	s.mu.Unlock()

	s.logger.Info().Str("screen", route.Screen).Msg("Session changed")
	if running {
		s.publish(constants.TopicNavigationRoute, route, true)
	}
}

func (s *SessionService) publish(suffix string, v any, retained bool) {
	if s.mqttClient == nil {
		return
	}
	topic := constants.Topic(s.topicPrefix, suffix)
	if err := mqtt.PublishJSON(s.mqttClient, topic, byte(s.qos), retained, v, constants.DefaultPublishTimeout); err != nil {
		s.logger.Error().Err(err).Str("topic", topic).Msg("Failed to publish session message")
	}
}
