package places

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/benmeehan/hospital-finder/pkg/faults"
)

const (
	defaultBaseURL     = "https://maps.gomaps.pro/maps/api/place/nearbysearch/json"
	defaultHTTPTimeout = 10 * time.Second
	redactedKey        = "API_KEY_HIDDEN"
)

// Client performs nearby searches against a Google Places compatible
// endpoint. It never retries; each call issues exactly one request.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient creates a places client. An empty baseURL selects the public
// endpoint and a nil httpClient gets a default timeout.
func NewClient(apiKey, baseURL string, httpClient *http.Client, logger zerolog.Logger) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// NearbySearch issues a single nearby search request.
func (c *Client) NearbySearch(ctx context.Context, req NearbyRequest) (*NearbyResponse, error) {
	const op = "places.nearbysearch"

	if c.apiKey == "" {
		return nil, faults.New(faults.InvalidCredential, op, "places api key is not configured")
	}

	params := url.Values{}
	params.Set("location", fmt.Sprintf("%s,%s",
		strconv.FormatFloat(req.Latitude, 'f', -1, 64),
		strconv.FormatFloat(req.Longitude, 'f', -1, 64)))
	params.Set("radius", strconv.Itoa(req.RadiusMeters))
	params.Set("type", req.Category)
	params.Set("key", c.apiKey)
	reqURL := c.baseURL + "?" + params.Encode()

	c.logger.Info().Str("url", c.redact(reqURL)).Msg("Fetching nearby places")

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, faults.Wrap(faults.NetworkFailure, op, fmt.Errorf("failed to build request: %w", c.scrub(err)))
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, faults.Wrap(faults.NetworkFailure, op, c.scrub(err))
	}
	defer resp.Body.Close()

	c.logger.Info().Int("status_code", resp.StatusCode).Msg("Places response received")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, faults.New(faults.NetworkFailure, op, fmt.Sprintf("HTTP error, status: %d", resp.StatusCode))
	}

	var payload nearbyPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, faults.Wrap(faults.MalformedResponse, op, fmt.Errorf("failed to decode response: %w", err))
	}

	switch payload.Status {
	case StatusRequestDenied:
		msg := "API key is invalid or expired"
		if payload.ErrorMessage != "" {
			msg += ": " + payload.ErrorMessage
		}
		return nil, faults.New(faults.InvalidCredential, op, msg)
	case StatusOverQueryLimit, StatusInvalidRequest, StatusUnknownError:
		return nil, faults.New(faults.NetworkFailure, op, "provider returned status "+payload.Status)
	}

	out := &NearbyResponse{
		Status:       payload.Status,
		ErrorMessage: payload.ErrorMessage,
		Results:      make([]Place, 0, len(payload.Results)),
	}
	for i, raw := range payload.Results {
		place, err := decodePlace(raw)
		if err != nil {
			c.logger.Debug().Err(err).Int("index", i).Msg("Skipping undecodable place entry")
			continue
		}
		out.Results = append(out.Results, place)
	}
	return out, nil
}

func (c *Client) redact(s string) string {
	if c.apiKey == "" {
		return s
	}
	s = strings.ReplaceAll(s, url.QueryEscape(c.apiKey), redactedKey)
	return strings.ReplaceAll(s, c.apiKey, redactedKey)
}

// scrub removes the key from the text of transport errors, which embed the
// request URL. The cause stays reachable through errors.Is.
func (c *Client) scrub(err error) error {
	if err == nil {
		return nil
	}
	return &redactedError{msg: c.redact(err.Error()), err: err}
}

type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }
