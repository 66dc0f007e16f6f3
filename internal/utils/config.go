package utils

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/benmeehan/hospital-finder/internal/constants"
	"github.com/benmeehan/hospital-finder/pkg/file"
)

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// Config represents the structure of the configuration file.
type Config struct {
	Logging struct {
		Level  string `yaml:"level"`  // zerolog level name, default info
		Pretty bool   `yaml:"pretty"` // human readable console output
	} `yaml:"logging"`

	MQTT struct {
		Enabled       bool   `yaml:"enabled"`        // Connect to the UI host over MQTT
		Broker        string `yaml:"broker"`         // MQTT broker address
		ClientID      string `yaml:"client_id"`      // MQTT client ID
		CACertificate string `yaml:"ca_certificate"` // Path to the CA certificate, empty for plain TCP
		TopicPrefix   string `yaml:"topic_prefix"`   // Prefix for every topic
		QOS           int    `yaml:"qos"`            // MQTT QoS level
	} `yaml:"mqtt"`

	HTTP struct {
		Enabled bool   `yaml:"enabled"` // Serve the local HTTP host
		Addr    string `yaml:"addr"`    // Listen address
	} `yaml:"http"`

	Location struct {
		SensorBased       bool          `yaml:"sensor_based"`    // Use the serial GPS instead of the geolocation API
		MapsAPIKey        string        `yaml:"maps_api_key"`    // Google maps API Key
		ModemIndex        int           `yaml:"modem_index"`     // mmcli modem index for cell tower scans
		GPSDeviceBaudRate int           `yaml:"gps_baud_rate"`   // The Baud rate for GPS sensor
		GPSDevicePort     string        `yaml:"gps_device_port"` // UNIX Port where the GPS sensor is mounted
		PermissionGranted *bool         `yaml:"permission"`      // Platform permission answer, default granted
		MaxAttempts       int           `yaml:"max_attempts"`    // Reads per episode
		RetryDelay        time.Duration `yaml:"retry_delay"`     // Delay before the next read
		ReadTimeout       time.Duration `yaml:"read_timeout"`    // Upper bound for one read
		MaxCacheAge       time.Duration `yaml:"max_cache_age"`   // Oldest cached fix a read may return
		HighAccuracy      *bool         `yaml:"high_accuracy"`   // Use radio scans / strict fixes
	} `yaml:"location"`

	Places struct {
		APIKey       string        `yaml:"api_key"`       // Places API credential
		BaseURL      string        `yaml:"base_url"`      // Nearby search endpoint
		RadiusMeters int           `yaml:"radius_meters"` // Search radius
		Category     string        `yaml:"category"`      // Place type filter
		Timeout      time.Duration `yaml:"timeout"`       // HTTP client timeout
	} `yaml:"places"`

	Identity struct {
		Enabled bool          `yaml:"enabled"`  // Run the session gate
		APIKey  string        `yaml:"api_key"`  // Identity toolkit web API key
		BaseURL string        `yaml:"base_url"` // Identity toolkit endpoint
		Timeout time.Duration `yaml:"timeout"`  // HTTP client timeout
	} `yaml:"identity"`
}

// LoadConfig loads the YAML configuration from the specified file, applies
// defaults and environment overrides for credentials, and validates it.
func LoadConfig(filename string, fileClient file.FileOperations) (*Config, error) {
	exists, err := fileClient.IsFileExists(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to check configuration file %s: %w", filename, err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, filename)
	}

	var config Config
	if err := fileClient.ReadYamlFile(filename, &config); err != nil {
		return nil, fmt.Errorf("failed to read configuration file %s: %w", filename, err)
	}

	config.applyEnv(os.LookupEnv)
	config.ApplyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup("PLACES_API_KEY"); ok && v != "" {
		c.Places.APIKey = v
	}
	if v, ok := lookup("IDENTITY_API_KEY"); ok && v != "" {
		c.Identity.APIKey = v
	}
	if v, ok := lookup("MAPS_API_KEY"); ok && v != "" {
		c.Location.MapsAPIKey = v
	}
}

// ApplyDefaults fills every unset field with its default.
func (c *Config) ApplyDefaults() {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.MQTT.TopicPrefix == "" {
		c.MQTT.TopicPrefix = "hospital-finder"
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = "hospital-finder"
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.Location.GPSDeviceBaudRate == 0 {
		c.Location.GPSDeviceBaudRate = 9600
	}
	if c.Location.MaxAttempts == 0 {
		c.Location.MaxAttempts = constants.DefaultMaxAttempts
	}
	if c.Location.RetryDelay == 0 {
		c.Location.RetryDelay = constants.DefaultRetryDelay
	}
	if c.Location.ReadTimeout == 0 {
		c.Location.ReadTimeout = constants.DefaultReadTimeout
	}
	if c.Location.MaxCacheAge == 0 {
		c.Location.MaxCacheAge = constants.DefaultMaxCacheAge
	}
	if c.Location.HighAccuracy == nil {
		v := constants.DefaultHighAccuracy
		c.Location.HighAccuracy = &v
	}
	if c.Location.PermissionGranted == nil {
		v := true
		c.Location.PermissionGranted = &v
	}
	if c.Places.BaseURL == "" {
		c.Places.BaseURL = constants.DefaultPlacesBaseURL
	}
	if c.Places.RadiusMeters == 0 {
		c.Places.RadiusMeters = constants.DefaultSearchRadiusMeters
	}
	if c.Places.Category == "" {
		c.Places.Category = constants.DefaultFacilityCategory
	}
	if c.Places.Timeout == 0 {
		c.Places.Timeout = constants.DefaultHTTPTimeout
	}
	if c.Identity.Timeout == 0 {
		c.Identity.Timeout = constants.DefaultHTTPTimeout
	}
}

// Validate rejects configurations the services cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Location.MaxAttempts < 1 {
		errs = append(errs, errors.New("location.max_attempts must be at least 1"))
	}
	if c.Location.RetryDelay < 0 || c.Location.ReadTimeout < 0 || c.Location.MaxCacheAge < 0 {
		errs = append(errs, errors.New("location durations must not be negative"))
	}
	if c.Places.Timeout < 0 || c.Identity.Timeout < 0 {
		errs = append(errs, errors.New("http timeouts must not be negative"))
	}
	if c.Places.APIKey == "" {
		errs = append(errs, errors.New("places.api_key is required (or set PLACES_API_KEY)"))
	}
	if c.Places.RadiusMeters < 1 {
		errs = append(errs, errors.New("places.radius_meters must be positive"))
	}
	if !c.Location.SensorBased && c.Location.MapsAPIKey == "" {
		errs = append(errs, errors.New("location.maps_api_key is required unless sensor_based is set"))
	}
	if c.Location.SensorBased && c.Location.GPSDevicePort == "" {
		errs = append(errs, errors.New("location.gps_device_port is required when sensor_based is set"))
	}
	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		errs = append(errs, errors.New("mqtt.broker is required when mqtt is enabled"))
	}
	if c.Identity.Enabled && c.Identity.APIKey == "" {
		errs = append(errs, errors.New("identity.api_key is required when identity is enabled"))
	}
	return errors.Join(errs...)
}
