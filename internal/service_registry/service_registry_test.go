package service_registry

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benmeehan/hospital-finder/internal/constants"
	"github.com/benmeehan/hospital-finder/internal/mocks"
	"github.com/benmeehan/hospital-finder/internal/utils"
)

type fakeService struct {
	name     string
	startErr error
	stopErr  error
	events   *[]string
}

func (f *fakeService) Start() error {
	*f.events = append(*f.events, "start:"+f.name)
	return f.startErr
}

func (f *fakeService) Stop() error {
	*f.events = append(*f.events, "stop:"+f.name)
	return f.stopErr
}

func newTestRegistry() *ServiceRegistry {
	return NewServiceRegistry(nil, mocks.NewManualClock(time.Unix(0, 0)), zerolog.Nop())
}

func TestServiceRegistry_StartStopOrder(t *testing.T) {
	var events []string
	sr := newTestRegistry()
	sr.RegisterService("a", &fakeService{name: "a", events: &events})
	sr.RegisterService("b", &fakeService{name: "b", events: &events})
	sr.RegisterService("a", &fakeService{name: "duplicate", events: &events})

	require.NoError(t, sr.StartServices())
	require.NoError(t, sr.StopServices())

	assert.Equal(t, []string{"start:a", "start:b", "stop:b", "stop:a"}, events)
}

func TestServiceRegistry_StartFailureRollsBack(t *testing.T) {
	var events []string
	sr := newTestRegistry()
	sr.RegisterService("a", &fakeService{name: "a", events: &events})
	sr.RegisterService("b", &fakeService{name: "b", startErr: errors.New("boom"), events: &events})
	sr.RegisterService("c", &fakeService{name: "c", events: &events})

	assert.EqualError(t, sr.StartServices(), "boom")
	assert.Equal(t, []string{"start:a", "start:b", "stop:a"}, events)
}

func TestServiceRegistry_StopCollectsErrors(t *testing.T) {
	var events []string
	sr := newTestRegistry()
	sr.RegisterService("a", &fakeService{name: "a", stopErr: errors.New("a failed"), events: &events})
	sr.RegisterService("b", &fakeService{name: "b", stopErr: errors.New("b failed"), events: &events})

	err := sr.StopServices()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to stop a: a failed")
	assert.Contains(t, err.Error(), "failed to stop b: b failed")
}

func testConfig() *utils.Config {
	var config utils.Config
	config.Location.SensorBased = true
	config.Location.GPSDevicePort = "/dev/ttyUSB0"
	config.Places.APIKey = "places-key"
	config.ApplyDefaults()
	return &config
}

func TestServiceRegistry_RegisterServices(t *testing.T) {
	sr := newTestRegistry()

	require.NoError(t, sr.RegisterServices(testConfig()))

	assert.Equal(t, []string{"home"}, sr.serviceKeys)
	require.NotNil(t, sr.Home())
	assert.Nil(t, sr.Session())

	require.NoError(t, sr.StartServices())
	snap := sr.Home().Snapshot()
	assert.Equal(t, constants.PhaseIdle, snap.State.Phase)
	assert.Equal(t, constants.DefaultMaxAttempts, snap.MaxAttempts)
	require.NoError(t, sr.StopServices())
}

func TestServiceRegistry_RegisterServicesWithIdentity(t *testing.T) {
	config := testConfig()
	config.Identity.Enabled = true
	config.Identity.APIKey = "web-key"
	sr := newTestRegistry()

	require.NoError(t, sr.RegisterServices(config))

	assert.Equal(t, []string{"session", "home"}, sr.serviceKeys)
	require.NotNil(t, sr.Session())
	assert.Equal(t, "Login", sr.Session().Route().Screen)
}
