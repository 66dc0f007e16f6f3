package location

import (
	"bufio"
	"context"
	"errors"
	"io"
	"time"

	"github.com/adrianmo/go-nmea"
	"github.com/tarm/serial"
)

// errNoFix is returned when the GPS stream ends without a usable sentence.
var errNoFix = errors.New("no valid GPS data found")

// DeviceSensorProvider is responsible for retrieving location data from a GPS device connected via serial port.
type DeviceSensorProvider struct {
	port     string // Serial port to which the GPS device is connected
	baudRate int    // Baud rate for the serial communication

	openPort func(c *serial.Config) (io.ReadCloser, error)
	now      func() time.Time
}

// NewDeviceSensorProvider creates a new instance of DeviceSensorProvider with the specified port and baud rate.
func NewDeviceSensorProvider(port string, baudRate int) *DeviceSensorProvider {
	return &DeviceSensorProvider{
		port:     port,
		baudRate: baudRate,
		openPort: func(c *serial.Config) (io.ReadCloser, error) {
			return serial.OpenPort(c)
		},
		now: time.Now,
	}
}

// GetLocation reads NMEA sentences from the device until it sees a valid fix
// or ctx expires. Closing the port on expiry unblocks the pending read.
func (d *DeviceSensorProvider) GetLocation(ctx context.Context, opts PositionOptions) (Position, error) {
	const op = "location.gps"

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	s, err := d.openPort(&serial.Config{Name: d.port, Baud: d.baudRate})
	if err != nil {
		return Position{}, classify(op, err)
	}

	type result struct {
		pos Position
		err error
	}
	done := make(chan result, 1)
	go func() {
		pos, err := readFix(s, d.now)
		done <- result{pos: pos, err: err}
	}()

	select {
	case r := <-done:
		s.Close()
		return r.pos, classify(op, r.err)
	case <-ctx.Done():
		s.Close()
		return Position{}, classify(op, ctx.Err())
	}
}

// readFix scans r for the first GGA sentence with a fix, or RMC sentence
// flagged valid. Malformed lines are skipped.
func readFix(r io.Reader, now func() time.Time) (Position, error) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		sentence, err := nmea.Parse(scanner.Text())
		if err != nil {
			continue
		}

		switch s := sentence.(type) {
		case nmea.GGA:
			if s.FixQuality == nmea.Invalid {
				continue
			}
			hdop := s.HDOP // HDOP as a proxy for accuracy
			altitude := s.Altitude
			return Position{
				Latitude:  s.Latitude,
				Longitude: s.Longitude,
				Accuracy:  &hdop,
				Altitude:  &altitude,
				Timestamp: now(),
			}, nil
		case nmea.RMC:
			if s.Validity != nmea.ValidRMC {
				continue
			}
			return Position{
				Latitude:  s.Latitude,
				Longitude: s.Longitude,
				Timestamp: now(),
			}, nil
		}
	}

	if err := scanner.Err(); err != nil {
		return Position{}, err
	}
	return Position{}, errNoFix
}
