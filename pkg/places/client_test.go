package places_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benmeehan/hospital-finder/pkg/faults"
	"github.com/benmeehan/hospital-finder/pkg/places"
)

func newServer(t *testing.T, status int, body string, calls *int32) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

var sfRequest = places.NearbyRequest{Latitude: 37.7749, Longitude: -122.4194, RadiusMeters: 5000, Category: "hospital"}

func TestNearbySearch_BuildsQueryAndParsesResults(t *testing.T) {
	var got *http.Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		_, _ = w.Write([]byte(`{
  "status": "OK",
  "results": [
    {"place_id": "a", "name": "General", "vicinity": "1 Main St", "rating": 4.2, "user_ratings_total": 120,
     "opening_hours": {"open_now": true}, "geometry": {"location": {"lat": 37.77, "lng": -122.41}}},
    {"place_id": "b", "name": "No Lng", "geometry": {"location": {"lat": 37.78}}},
    {"place_id": "c", "name": "String Lat", "geometry": {"location": {"lat": "37.7", "lng": -122.4}}},
    {"place_id": "d", "name": "Null Lat", "geometry": {"location": {"lat": null, "lng": -122.4}}},
    {"place_id": "e", "name": "No Geometry"}
  ]
}`))
	}))
	defer server.Close()

	client := places.NewClient("secret-key", server.URL, server.Client(), zerolog.Nop())
	resp, err := client.NearbySearch(context.Background(), sfRequest)
	require.NoError(t, err)

	require.NotNil(t, got)
	assert.Equal(t, http.MethodGet, got.Method)
	q := got.URL.Query()
	assert.Equal(t, "37.7749,-122.4194", q.Get("location"))
	assert.Equal(t, "5000", q.Get("radius"))
	assert.Equal(t, "hospital", q.Get("type"))
	assert.Equal(t, "secret-key", q.Get("key"))

	require.Len(t, resp.Results, 5)
	first := resp.Results[0]
	assert.Equal(t, "a", first.PlaceID)
	require.NotNil(t, first.Lat)
	require.NotNil(t, first.Lng)
	assert.Equal(t, 37.77, *first.Lat)
	require.NotNil(t, first.OpenNow)
	assert.True(t, *first.OpenNow)
	require.NotNil(t, first.UserRatingsTotal)
	assert.Equal(t, 120, *first.UserRatingsTotal)

	assert.Nil(t, resp.Results[1].Lng)
	assert.Nil(t, resp.Results[2].Lat)
	assert.Nil(t, resp.Results[3].Lat)
	assert.Nil(t, resp.Results[4].Lat)
}

func TestNearbySearch_MistypedFieldsOnlyAffectTheirEntry(t *testing.T) {
	var calls int32
	server := newServer(t, http.StatusOK, `{
  "status": "OK",
  "results": [
    {"place_id": "a", "name": "General", "rating": 4.5, "geometry": {"location": {"lat": 37.77, "lng": -122.41}}},
    {"place_id": "b", "name": "Mercy", "rating": "n/a", "user_ratings_total": 12.5,
     "opening_hours": "unknown", "geometry": {"location": {"lat": 37.78, "lng": -122.42}}},
    {"place_id": "c", "name": "Broken Geometry", "geometry": "x"},
    "not an object"
  ]
}`, &calls)

	client := places.NewClient("key", server.URL, server.Client(), zerolog.Nop())
	resp, err := client.NearbySearch(context.Background(), sfRequest)
	require.NoError(t, err)

	require.Len(t, resp.Results, 3)
	assert.Equal(t, "a", resp.Results[0].PlaceID)
	require.NotNil(t, resp.Results[0].Rating)
	assert.Equal(t, 4.5, *resp.Results[0].Rating)

	mercy := resp.Results[1]
	assert.Equal(t, "Mercy", mercy.Name)
	assert.Nil(t, mercy.Rating)
	assert.Nil(t, mercy.UserRatingsTotal)
	assert.Nil(t, mercy.OpenNow)
	require.NotNil(t, mercy.Lat)
	require.NotNil(t, mercy.Lng)
	assert.Equal(t, 37.78, *mercy.Lat)

	assert.Equal(t, "c", resp.Results[2].PlaceID)
	assert.Nil(t, resp.Results[2].Lat)
}

func TestNearbySearch_RequestDeniedIsInvalidCredential(t *testing.T) {
	var calls int32
	server := newServer(t, http.StatusOK, `{"status":"REQUEST_DENIED","error_message":"The provided API key is invalid."}`, &calls)

	client := places.NewClient("bad", server.URL, server.Client(), zerolog.Nop())
	_, err := client.NearbySearch(context.Background(), sfRequest)

	require.Error(t, err)
	assert.Equal(t, faults.InvalidCredential, faults.KindOf(err))
	assert.NotEqual(t, faults.MalformedResponse, faults.KindOf(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestNearbySearch_HTTPErrorIsNetworkFailure(t *testing.T) {
	var calls int32
	server := newServer(t, http.StatusInternalServerError, `oops`, &calls)

	client := places.NewClient("key", server.URL, server.Client(), zerolog.Nop())
	_, err := client.NearbySearch(context.Background(), sfRequest)

	assert.Equal(t, faults.NetworkFailure, faults.KindOf(err))
	assert.Contains(t, err.Error(), "500")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestNearbySearch_BadJSONIsMalformed(t *testing.T) {
	var calls int32
	server := newServer(t, http.StatusOK, `{"status": "OK", "results": [`, &calls)

	client := places.NewClient("key", server.URL, server.Client(), zerolog.Nop())
	_, err := client.NearbySearch(context.Background(), sfRequest)

	assert.Equal(t, faults.MalformedResponse, faults.KindOf(err))
}

func TestNearbySearch_ZeroResults(t *testing.T) {
	var calls int32
	server := newServer(t, http.StatusOK, `{"status":"ZERO_RESULTS","results":[]}`, &calls)

	client := places.NewClient("key", server.URL, server.Client(), zerolog.Nop())
	resp, err := client.NearbySearch(context.Background(), sfRequest)

	require.NoError(t, err)
	assert.Empty(t, resp.Results)
}

func TestNearbySearch_OverQueryLimit(t *testing.T) {
	var calls int32
	server := newServer(t, http.StatusOK, `{"status":"OVER_QUERY_LIMIT","results":[]}`, &calls)

	client := places.NewClient("key", server.URL, server.Client(), zerolog.Nop())
	_, err := client.NearbySearch(context.Background(), sfRequest)

	assert.Equal(t, faults.NetworkFailure, faults.KindOf(err))
	assert.Contains(t, err.Error(), "OVER_QUERY_LIMIT")
}

func TestNearbySearch_KeyNeverLogged(t *testing.T) {
	var calls int32
	server := newServer(t, http.StatusOK, `{"status":"OK","results":[]}`, &calls)

	var buf bytes.Buffer
	client := places.NewClient("super-secret-key", server.URL, server.Client(), zerolog.New(&buf))
	_, err := client.NearbySearch(context.Background(), sfRequest)
	require.NoError(t, err)

	assert.NotContains(t, buf.String(), "super-secret-key")
	assert.Contains(t, buf.String(), "API_KEY_HIDDEN")
}

func TestNearbySearch_TransportErrorRedactsKey(t *testing.T) {
	var calls int32
	server := newServer(t, http.StatusOK, `{}`, &calls)
	server.Close()

	client := places.NewClient("super-secret-key", server.URL, nil, zerolog.Nop())
	_, err := client.NearbySearch(context.Background(), sfRequest)

	require.Error(t, err)
	assert.Equal(t, faults.NetworkFailure, faults.KindOf(err))
	assert.NotContains(t, err.Error(), "super-secret-key")
}

func TestNearbySearch_MissingKey(t *testing.T) {
	client := places.NewClient("", "http://127.0.0.1:1", nil, zerolog.Nop())
	_, err := client.NearbySearch(context.Background(), sfRequest)
	assert.Equal(t, faults.InvalidCredential, faults.KindOf(err))
}
