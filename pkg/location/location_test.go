package location

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tarm/serial"
	"googlemaps.github.io/maps"

	"github.com/benmeehan/hospital-finder/pkg/faults"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

const (
	ggaFix   = "$GPGGA,092750.000,5321.6802,N,00630.3372,W,1,8,1.03,61.7,M,55.2,M,,*76"
	ggaNoFix = "$GPGGA,092751.000,,,,,0,0,,,M,,M,,*40"
	gsv      = "$GPGSV,3,1,11,10,63,137,17,07,61,098,15,05,59,290,20,08,54,157,30*70"
)

func TestReadFix_SkipsUntilValidGGA(t *testing.T) {
	stream := strings.Join([]string{"garbage", gsv, ggaNoFix, ggaFix}, "\r\n")

	pos, err := readFix(strings.NewReader(stream), func() time.Time { return fixedNow })
	require.NoError(t, err)

	assert.InDelta(t, 53.361337, pos.Latitude, 1e-5)
	assert.InDelta(t, -6.505620, pos.Longitude, 1e-5)
	require.NotNil(t, pos.Accuracy)
	assert.InDelta(t, 1.03, *pos.Accuracy, 1e-9)
	require.NotNil(t, pos.Altitude)
	assert.InDelta(t, 61.7, *pos.Altitude, 1e-9)
	assert.Equal(t, fixedNow, pos.Timestamp)
}

func TestReadFix_NoFix(t *testing.T) {
	_, err := readFix(strings.NewReader(gsv+"\r\n"), time.Now)
	assert.ErrorIs(t, err, errNoFix)
}

type blockingPort struct {
	closed chan struct{}
}

func (b *blockingPort) Read(p []byte) (int, error) {
	<-b.closed
	return 0, io.EOF
}

func (b *blockingPort) Close() error {
	select {
	case <-b.closed:
	default:
		close(b.closed)
	}
	return nil
}

func TestDeviceSensorProvider_TimeoutIsSensorTimeout(t *testing.T) {
	port := &blockingPort{closed: make(chan struct{})}
	d := NewDeviceSensorProvider("/dev/ttyUSB0", 9600)
	d.openPort = func(c *serial.Config) (io.ReadCloser, error) { return port, nil }

	_, err := d.GetLocation(context.Background(), PositionOptions{Timeout: 20 * time.Millisecond})
	assert.True(t, errors.Is(err, faults.E(faults.SensorTimeout)))
}

func TestDeviceSensorProvider_OpenFailureIsUnavailable(t *testing.T) {
	d := NewDeviceSensorProvider("/dev/missing", 9600)
	d.openPort = func(c *serial.Config) (io.ReadCloser, error) {
		assert.Equal(t, "/dev/missing", c.Name)
		assert.Equal(t, 9600, c.Baud)
		return nil, errors.New("no such file or directory")
	}

	_, err := d.GetLocation(context.Background(), PositionOptions{Timeout: time.Second})
	assert.Equal(t, faults.SensorUnavailable, faults.KindOf(err))
}

func TestDeviceSensorProvider_ReadsFix(t *testing.T) {
	d := NewDeviceSensorProvider("/dev/ttyUSB0", 9600)
	d.now = func() time.Time { return fixedNow }
	d.openPort = func(c *serial.Config) (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader(ggaFix + "\r\n")), nil
	}

	pos, err := d.GetLocation(context.Background(), PositionOptions{Timeout: time.Second})
	require.NoError(t, err)
	assert.InDelta(t, 53.361337, pos.Latitude, 1e-5)
}

type mockGeolocator struct {
	mock.Mock
}

func (m *mockGeolocator) Geolocate(ctx context.Context, r *maps.GeolocationRequest) (*maps.GeolocationResult, error) {
	args := m.Called(ctx, r)
	res, _ := args.Get(0).(*maps.GeolocationResult)
	return res, args.Error(1)
}

func newTestGeolocationProvider(client geolocator) *GoogleGeolocationProvider {
	return &GoogleGeolocationProvider{
		client: client,
		logger: zerolog.Nop(),
		scanWiFi: func(ctx context.Context) ([]maps.WiFiAccessPoint, error) {
			return []maps.WiFiAccessPoint{{MACAddress: "00:14:22:01:23:45", SignalStrength: -60}}, nil
		},
		scanCells: func(ctx context.Context) ([]maps.CellTower, error) {
			return nil, errors.New("mmcli not found")
		},
		now: func() time.Time { return fixedNow },
	}
}

func TestGoogleGeolocationProvider_GetLocation(t *testing.T) {
	client := new(mockGeolocator)
	client.On("Geolocate", mock.Anything, mock.MatchedBy(func(r *maps.GeolocationRequest) bool {
		return r.ConsiderIP && len(r.WiFiAccessPoints) == 1 && len(r.CellTowers) == 0
	})).Return(&maps.GeolocationResult{
		Location: maps.LatLng{Lat: 37.7749, Lng: -122.4194},
		Accuracy: 25,
	}, nil)

	g := newTestGeolocationProvider(client)
	pos, err := g.GetLocation(context.Background(), PositionOptions{HighAccuracy: true, Timeout: time.Second})
	require.NoError(t, err)

	assert.Equal(t, 37.7749, pos.Latitude)
	assert.Equal(t, -122.4194, pos.Longitude)
	require.NotNil(t, pos.Accuracy)
	assert.Equal(t, 25.0, *pos.Accuracy)
	assert.Nil(t, pos.Altitude)
	client.AssertExpectations(t)
}

func TestGoogleGeolocationProvider_DeadlineIsSensorTimeout(t *testing.T) {
	client := new(mockGeolocator)
	client.On("Geolocate", mock.Anything, mock.Anything).Return(nil, context.DeadlineExceeded)

	g := newTestGeolocationProvider(client)
	_, err := g.GetLocation(context.Background(), PositionOptions{})
	assert.Equal(t, faults.SensorTimeout, faults.KindOf(err))
}

type countingProvider struct {
	calls int
	pos   Position
	err   error
}

func (c *countingProvider) GetLocation(ctx context.Context, opts PositionOptions) (Position, error) {
	c.calls++
	return c.pos, c.err
}

func TestCachedProvider_ServesFixWithinMaximumAge(t *testing.T) {
	inner := &countingProvider{pos: Position{Latitude: 1, Longitude: 2, Timestamp: fixedNow}}
	c := NewCachedProvider(inner)
	now := fixedNow
	c.now = func() time.Time { return now }
	opts := PositionOptions{MaximumAge: 10 * time.Second}

	_, err := c.GetLocation(context.Background(), opts)
	require.NoError(t, err)

	now = fixedNow.Add(10 * time.Second)
	pos, err := c.GetLocation(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, 1.0, pos.Latitude)

	now = fixedNow.Add(11 * time.Second)
	_, err = c.GetLocation(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestCachedProvider_ZeroMaximumAgeAlwaysReads(t *testing.T) {
	inner := &countingProvider{pos: Position{Timestamp: fixedNow}}
	c := NewCachedProvider(inner)
	c.now = func() time.Time { return fixedNow }

	for i := 0; i < 3; i++ {
		_, err := c.GetLocation(context.Background(), PositionOptions{})
		require.NoError(t, err)
	}
	assert.Equal(t, 3, inner.calls)
}

func TestCachedProvider_ErrorsAreNotCached(t *testing.T) {
	inner := &countingProvider{err: faults.New(faults.SensorUnavailable, "test", "down")}
	c := NewCachedProvider(inner)

	_, err := c.GetLocation(context.Background(), PositionOptions{MaximumAge: time.Minute})
	assert.Error(t, err)
	assert.Nil(t, c.last)
}

func TestTranslateCode(t *testing.T) {
	assert.Equal(t, faults.PermissionDenied, faults.KindOf(TranslateCode(CodePermissionDenied, "denied")))
	assert.Equal(t, faults.SensorUnavailable, faults.KindOf(TranslateCode(CodePositionUnavailable, "no provider")))
	assert.Equal(t, faults.SensorTimeout, faults.KindOf(TranslateCode(CodeTimeout, "timed out")))
	assert.Equal(t, faults.SensorUnavailable, faults.KindOf(TranslateCode(42, "?")))
}

func TestStaticPermission(t *testing.T) {
	status, err := StaticPermission(PermissionDenied).RequestPermission(context.Background())
	require.NoError(t, err)
	assert.Equal(t, PermissionDenied, status)
}

func TestParseWiFiAccessPoints(t *testing.T) {
	out := "AA\\:BB\\:CC\\:DD\\:EE\\:FF:72\nbroken line\n00\\:14\\:22\\:01\\:23\\:45:40\nZZ\\:BB\\:CC\\:DD\\:EE\\:FF:10\n"

	aps, err := parseWiFiAccessPoints(out)
	require.NoError(t, err)
	require.Len(t, aps, 2)
	assert.Equal(t, "AA:BB:CC:DD:EE:FF", aps[0].MACAddress)
	assert.Equal(t, 72.0, aps[0].SignalStrength)
	assert.Equal(t, "00:14:22:01:23:45", aps[1].MACAddress)
}

func TestParseCellTowers(t *testing.T) {
	out := strings.Join([]string{
		"modem.location.3gpp.mcc : 310",
		"modem.location.3gpp.mnc : 260",
		"modem.location.3gpp.lac : 0000",
		"modem.location.3gpp.tac : 00A8B1",
		"modem.location.3gpp.cid : 0A2B3C4D",
	}, "\n")

	towers, err := parseCellTowers(out)
	require.NoError(t, err)
	require.Len(t, towers, 1)
	assert.Equal(t, 310, towers[0].MobileCountryCode)
	assert.Equal(t, 260, towers[0].MobileNetworkCode)
	assert.Equal(t, 0xA8B1, towers[0].LocationAreaCode)
	assert.Equal(t, 0x0A2B3C4D, towers[0].CellID)

	_, err = parseCellTowers("modem.location.3gpp.cid : 01")
	assert.Error(t, err)
}
