package repository

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const overpassBody = `{
  "version": 0.6,
  "osm3s": {"timestamp_osm_base": "2024-05-01T10:00:00Z"},
  "elements": [
    {"type": "node", "id": 305, "lat": 47.6140, "lon": -122.3450,
     "tags": {"place": "neighbourhood", "name": "Belltown"}},
    {"type": "node", "id": 17, "lat": 47.6250, "lon": -122.3190,
     "tags": {"place": "suburb", "name": "Capitol Hill"}},
    {"type": "node", "id": 99, "lat": 47.6200, "lon": -122.3300,
     "tags": {"place": "neighbourhood"}}
  ]
}`

func TestOverpassRepositoryGetPlaces(t *testing.T) {
	var query string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		query = r.PostForm.Get("data")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(overpassBody))
	}))
	defer server.Close()

	repo := NewOverpassRepository(server.URL, time.Second, 1500)
	places, err := repo.GetPlaces(context.Background(), 47.6185, -122.3405)
	require.NoError(t, err)

	assert.Contains(t, query, "around:1500,47.618500,-122.340500")
	assert.Contains(t, query, `["place"~"^(neighbourhood|suburb|quarter)$"]`)

	require.Len(t, places, 2)
	assert.Equal(t, int64(17), places[0].ID)
	assert.Equal(t, "Capitol Hill", places[0].Name)
	assert.Equal(t, "suburb", places[0].Kind)
	assert.Equal(t, int64(305), places[1].ID)
	assert.Equal(t, 47.6140, places[1].Lat)
}

func TestOverpassRepositoryErrors(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer failing.Close()

	_, err := NewOverpassRepository(failing.URL, time.Second, 1500).GetPlaces(context.Background(), 47.6, -122.3)
	require.Error(t, err)

	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer slow.Close()

	start := time.Now()
	_, err = NewOverpassRepository(slow.URL, 50*time.Millisecond, 1500).GetPlaces(context.Background(), 47.6, -122.3)
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewOverpassRepository(slow.URL, time.Second, 1500).GetPlaces(ctx, 47.6, -122.3)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "cancelled"), err.Error())
}
