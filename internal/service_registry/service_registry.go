package service_registry

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/benmeehan/hospital-finder/internal/registry"
	"github.com/benmeehan/hospital-finder/internal/services"
	"github.com/benmeehan/hospital-finder/internal/utils"
	"github.com/benmeehan/hospital-finder/pkg/identity"
	"github.com/benmeehan/hospital-finder/pkg/location"
	"github.com/benmeehan/hospital-finder/pkg/mqtt"
	"github.com/benmeehan/hospital-finder/pkg/places"
)

// ServiceRegistry manages the lifecycle of various services in the system.
type ServiceRegistry struct {
	services    map[string]registry.Service // Stores registered services
	serviceKeys []string                    // Maintains order of service registration
	mqttClient  mqtt.MQTTClient
	clock       utils.Clock
	Logger      zerolog.Logger

	home    *services.HomeScreenService
	session *services.SessionService
}

// NewServiceRegistry initializes a new service registry with dependencies.
// mqttClient may be nil when MQTT is disabled.
func NewServiceRegistry(mqttClient mqtt.MQTTClient, clock utils.Clock, logger zerolog.Logger) *ServiceRegistry {
	return &ServiceRegistry{
		services:   make(map[string]registry.Service),
		mqttClient: mqttClient,
		clock:      clock,
		Logger:     logger,
	}
}

// RegisterService adds a new service to the registry.
func (sr *ServiceRegistry) RegisterService(name string, svc registry.Service) {
	if _, exists := sr.services[name]; exists {
		sr.Logger.Warn().Msgf("Service %s is already registered", name)
		return
	}
	sr.services[name] = svc
	sr.serviceKeys = append(sr.serviceKeys, name)
	sr.Logger.Info().Msgf("Registered service: %s", name)
}

// StartServices initiates all registered services in order.
// If a service fails to start, it stops already started services.
func (sr *ServiceRegistry) StartServices() error {
	startedServices := []string{}

	for _, name := range sr.serviceKeys {
		svc := sr.services[name]
		sr.Logger.Info().Msgf("Starting service: %s", name)
		if err := svc.Start(); err != nil {
			sr.Logger.Error().Err(err).Msgf("Failed to start service: %s", name)

			sr.Logger.Warn().Msg("Stopping already started services due to startup failure...")
			for i := len(startedServices) - 1; i >= 0; i-- {
				_ = sr.services[startedServices[i]].Stop()
			}
			return err
		}
		startedServices = append(startedServices, name)
	}

	return nil
}

// StopServices stops all services in reverse order.
func (sr *ServiceRegistry) StopServices() error {
	var stopErrors []error
	for i := len(sr.serviceKeys) - 1; i >= 0; i-- {
		name := sr.serviceKeys[i]
		if err := sr.services[name].Stop(); err != nil {
			stopErrors = append(stopErrors, fmt.Errorf("failed to stop %s: %w", name, err))
		}
	}
	if len(stopErrors) > 0 {
		for _, e := range stopErrors {
			sr.Logger.Error().Err(e).Msg("Service stop failure")
		}
		return errors.Join(stopErrors...)
	}
	return nil
}

// Home returns the home screen built by RegisterServices.
func (sr *ServiceRegistry) Home() *services.HomeScreenService {
	return sr.home
}

// Session returns the session gate, nil when identity is disabled.
func (sr *ServiceRegistry) Session() *services.SessionService {
	return sr.session
}

// RegisterServices builds the screens from configuration and registers them
// in start order: the session gate first, then the home screen.
func (sr *ServiceRegistry) RegisterServices(config *utils.Config) error {
	servicesInOrder := []struct {
		name        string
		enabled     bool
		constructor func() (registry.Service, error)
	}{
		{
			name:    "session",
			enabled: config.Identity.Enabled,
			constructor: func() (registry.Service, error) {
				provider := identity.NewFirebaseProvider(
					config.Identity.APIKey,
					config.Identity.BaseURL,
					&http.Client{Timeout: config.Identity.Timeout},
					sr.Logger.With().Str("component", "identity").Logger(),
				)
				sr.session = services.NewSessionService(
					config.MQTT.TopicPrefix,
					config.MQTT.QOS,
					sr.mqttClient,
					provider,
					sr.clock,
					sr.Logger.With().Str("service", "session").Logger(),
				)
				return sr.session, nil
			},
		},
		{
			name:    "home",
			enabled: true,
			constructor: func() (registry.Service, error) {
				home, err := sr.buildHomeScreen(config)
				if err != nil {
					return nil, err
				}
				sr.home = home
				return home, nil
			},
		},
	}

	for _, svc := range servicesInOrder {
		if !svc.enabled {
			continue
		}
		instance, err := svc.constructor()
		if err != nil {
			sr.Logger.Error().Err(err).Msgf("Failed to create service: %s", svc.name)
			return fmt.Errorf("failed to create %s service: %w", svc.name, err)
		}
		sr.RegisterService(svc.name, instance)
	}
	return nil
}

func (sr *ServiceRegistry) buildHomeScreen(config *utils.Config) (*services.HomeScreenService, error) {
	logger := sr.Logger.With().Str("service", "home").Logger()

	provider, err := newLocationProvider(config, logger)
	if err != nil {
		return nil, err
	}

	permission := location.PermissionDenied
	if *config.Location.PermissionGranted {
		permission = location.PermissionGranted
	}

	state := services.NewScreenState()
	activity := services.NewActivityLog(logger, sr.clock)
	controller := services.NewLocationController(
		services.ControllerConfig{
			MaxAttempts:  config.Location.MaxAttempts,
			RetryDelay:   config.Location.RetryDelay,
			ReadTimeout:  config.Location.ReadTimeout,
			MaxCacheAge:  config.Location.MaxCacheAge,
			HighAccuracy: *config.Location.HighAccuracy,
		},
		location.NewCachedProvider(provider),
		location.StaticPermission(permission),
		state,
		activity,
		sr.clock,
		logger,
	)

	placesClient := places.NewClient(
		config.Places.APIKey,
		config.Places.BaseURL,
		&http.Client{Timeout: config.Places.Timeout},
		logger.With().Str("component", "places").Logger(),
	)
	facilities := services.NewFacilityService(
		placesClient,
		config.Places.RadiusMeters,
		config.Places.Category,
		state,
		activity,
		sr.clock,
		logger,
	)

	return services.NewHomeScreenService(
		config.MQTT.TopicPrefix,
		config.MQTT.QOS,
		sr.mqttClient,
		controller,
		facilities,
		state,
		activity,
		logger,
	), nil
}

// newLocationProvider picks the serial GPS or the network geolocation API.
func newLocationProvider(config *utils.Config, logger zerolog.Logger) (location.Provider, error) {
	if config.Location.SensorBased {
		logger.Info().Str("port", config.Location.GPSDevicePort).Msg("Using serial GPS location provider")
		return location.NewDeviceSensorProvider(config.Location.GPSDevicePort, config.Location.GPSDeviceBaudRate), nil
	}

	logger.Info().Msg("Using network geolocation provider")
	provider, err := location.NewGoogleGeolocationProvider(
		config.Location.MapsAPIKey,
		config.Location.ModemIndex,
		logger.With().Str("component", "geolocation").Logger(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create geolocation provider: %w", err)
	}
	return provider, nil
}
