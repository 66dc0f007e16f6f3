package utils

import (
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benmeehan/hospital-finder/internal/constants"
	"github.com/benmeehan/hospital-finder/pkg/file"
)

func TestWorkerPool_SingleWorkerKeepsOrder(t *testing.T) {
	pool := NewWorkerPool(1, 16)

	var mu sync.Mutex
	var order []int
	for i := 0; i < 10; i++ {
		i := i
		require.NoError(t, pool.Submit(func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		}))
	}
	pool.Shutdown()

	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, order)
}

func TestWorkerPool_SubmitAfterShutdown(t *testing.T) {
	pool := NewWorkerPool(2, 0)
	pool.Shutdown()
	pool.Shutdown()

	assert.ErrorIs(t, pool.Submit(func() {}), ErrPoolClosed)
}

func TestSystemClock_AfterFuncStop(t *testing.T) {
	fired := make(chan struct{}, 1)
	timer := SystemClock{}.AfterFunc(time.Hour, func() { fired <- struct{}{} })
	assert.True(t, timer.Stop())
	assert.False(t, timer.Stop())
	assert.Empty(t, fired)
}

const sampleConfig = `
location:
  maps_api_key: maps-key
  max_attempts: 5
  retry_delay: 1s
places:
  api_key: places-key
mqtt:
  enabled: true
  broker: tcp://localhost:1883
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := t.TempDir() + "/config.yaml"
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func TestLoadConfig_AppliesDefaults(t *testing.T) {
	t.Setenv("PLACES_API_KEY", "")
	cfg, err := LoadConfig(writeConfig(t, sampleConfig), file.NewFileService())
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Location.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Location.RetryDelay)
	assert.Equal(t, constants.DefaultReadTimeout, cfg.Location.ReadTimeout)
	assert.Equal(t, constants.DefaultMaxCacheAge, cfg.Location.MaxCacheAge)
	assert.True(t, *cfg.Location.HighAccuracy)
	assert.True(t, *cfg.Location.PermissionGranted)
	assert.Equal(t, 5000, cfg.Places.RadiusMeters)
	assert.Equal(t, "hospital", cfg.Places.Category)
	assert.Equal(t, constants.DefaultPlacesBaseURL, cfg.Places.BaseURL)
	assert.Equal(t, "places-key", cfg.Places.APIKey)
	assert.Equal(t, "hospital-finder", cfg.MQTT.TopicPrefix)
	assert.Equal(t, constants.DefaultHTTPTimeout, cfg.Places.Timeout)
	assert.Equal(t, constants.DefaultHTTPTimeout, cfg.Identity.Timeout)
}

func TestLoadConfig_IdentityTimeoutIsIndependent(t *testing.T) {
	t.Setenv("PLACES_API_KEY", "")
	cfg, err := LoadConfig(writeConfig(t, sampleConfig+"identity:\n  timeout: 3s\n"), file.NewFileService())
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, cfg.Identity.Timeout)
	assert.Equal(t, constants.DefaultHTTPTimeout, cfg.Places.Timeout)
}

func TestLoadConfig_EnvOverridesSecrets(t *testing.T) {
	t.Setenv("PLACES_API_KEY", "from-env")
	cfg, err := LoadConfig(writeConfig(t, sampleConfig), file.NewFileService())
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Places.APIKey)
}

func TestLoadConfig_ValidationErrors(t *testing.T) {
	t.Setenv("PLACES_API_KEY", "")
	_, err := LoadConfig(writeConfig(t, "location:\n  sensor_based: true\n  max_attempts: -1\n"), file.NewFileService())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_attempts")
	assert.Contains(t, err.Error(), "places.api_key")
	assert.Contains(t, err.Error(), "gps_device_port")
}

func TestLoadConfig_MissingFile(t *testing.T) {
	path := t.TempDir() + "/nope.yaml"
	_, err := LoadConfig(path, file.NewFileService())
	assert.ErrorIs(t, err, ErrConfigNotFound)
	assert.Contains(t, err.Error(), path)
}
