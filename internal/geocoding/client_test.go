package geocoding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/richxcame/ride-booking-client/internal/location"
	"github.com/richxcame/ride-booking-client/pkg/cache"
	"github.com/richxcame/ride-booking-client/pkg/common"
	"github.com/richxcame/ride-booking-client/pkg/redis"
	"github.com/richxcame/ride-booking-client/pkg/resilience"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockCache struct {
	mock.Mock
}

func (m *mockCache) SetWithExpiration(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	args := m.Called(ctx, key, value, expiration)
	return args.Error(0)
}

func (m *mockCache) GetString(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *mockCache) Delete(ctx context.Context, keys ...string) error {
	return nil
}

func (m *mockCache) Close() error {
	return nil
}

func testConfig(baseURL string) Config {
	return Config{
		BaseURL:         baseURL,
		CountryCode:     "lk",
		Limit:           5,
		UserAgent:       "ride-booking-client-test",
		Timeout:         time.Second,
		ForwardCacheTTL: time.Hour,
		ReverseCacheTTL: 24 * time.Hour,
	}
}

func TestSearch_QueryAndParsing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "Colom", q.Get("q"))
		assert.Equal(t, "lk", q.Get("countrycodes"))
		assert.Equal(t, "5", q.Get("limit"))
		assert.Equal(t, "jsonv2", q.Get("format"))
		assert.Equal(t, "ride-booking-client-test", r.Header.Get("User-Agent"))

		_, _ = w.Write([]byte(`[
			{"name":"Colombo","display_name":"Colombo, Western Province, Sri Lanka","lat":"6.9271","lon":"79.8612"},
			{"name":"","display_name":"Colombo Fort, Sri Lanka","lat":"6.9344","lon":"79.8428","address":{"road":"York Street","suburb":"Fort"}},
			{"name":"","display_name":"Somewhere, Sri Lanka","lat":"7.0","lon":"80.0"},
			{"name":"Broken","display_name":"Broken","lat":"x","lon":"80.0"}
		]`))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), nil, nil)
	places, err := client.Search(context.Background(), "  Colom ")
	require.NoError(t, err)
	require.Len(t, places, 3)

	assert.Equal(t, "Colombo", places[0].Label)
	assert.Equal(t, location.Coordinate{Latitude: 6.9271, Longitude: 79.8612}, places[0].Position)
	assert.Equal(t, "York Street, Fort", places[1].Label)
	assert.Equal(t, "Somewhere, Sri Lanka", places[2].Label)
}

func TestSearch_EmptyQueryMakesNoRequest(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer server.Close()

	places, err := NewClient(testConfig(server.URL), nil, nil).Search(context.Background(), "   ")
	require.NoError(t, err)
	assert.Empty(t, places)
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestSearch_UpstreamFailureIsExternal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := NewClient(testConfig(server.URL), nil, nil).Search(context.Background(), "Kandy")
	require.Error(t, err)
	assert.Equal(t, common.KindExternal, common.KindOf(err))
}

func TestSearch_CacheHitSkipsRequest(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer server.Close()

	cached, _ := json.Marshal([]Place{{Label: "Galle", Position: location.Coordinate{Latitude: 6.05, Longitude: 80.22}}})
	store := new(mockCache)
	store.On("GetString", mock.Anything, "geocode:search:lk:galle fort").Return(string(cached), nil).Once()

	places, err := NewClient(testConfig(server.URL), store, nil).Search(context.Background(), "Galle   FORT")
	require.NoError(t, err)
	require.Len(t, places, 1)
	assert.Equal(t, "Galle", places[0].Label)
	assert.Zero(t, atomic.LoadInt32(&calls))
	store.AssertExpectations(t)
}

func TestSearch_CacheMissStoresResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"name":"Kandy","display_name":"Kandy","lat":"7.29","lon":"80.63"}]`))
	}))
	defer server.Close()

	store := new(mockCache)
	store.On("GetString", mock.Anything, "geocode:search:lk:kandy").Return("", redis.ErrMiss).Once()
	store.On("SetWithExpiration", mock.Anything, "geocode:search:lk:kandy", mock.Anything, time.Hour).Return(nil).Once()

	_, err := NewClient(testConfig(server.URL), store, nil).Search(context.Background(), "Kandy")
	require.NoError(t, err)
	store.AssertExpectations(t)
}

func TestSearch_OpenBreakerReturnsNoPlacesUncached(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	breaker := resilience.NewCircuitBreaker(resilience.Settings{
		Name:             "geocoder-open-test",
		Timeout:          time.Minute,
		FailureThreshold: 1,
	})
	store := new(mockCache)
	store.On("GetString", mock.Anything, "geocode:search:lk:kandy").Return("", redis.ErrMiss)
	client := NewClient(testConfig(server.URL), store, breaker)

	_, err := client.Search(context.Background(), "Kandy")
	require.Error(t, err)
	assert.Equal(t, common.KindExternal, common.KindOf(err))

	places, err := client.Search(context.Background(), "Kandy")
	require.NoError(t, err)
	assert.Empty(t, places)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	store.AssertNotCalled(t, "SetWithExpiration", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestReverse_NamePriority(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"name field", `{"name":"Galle Face Green","display_name":"Galle Face, Colombo"}`, "Galle Face Green"},
		{"address parts", `{"name":"","address":{"road":"Galle Road","city":"Colombo"},"display_name":"x"}`, "Galle Road, Colombo"},
		{"display name", `{"display_name":"Colombo 03, Sri Lanka"}`, "Colombo 03, Sri Lanka"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/reverse", r.URL.Path)
				assert.Equal(t, "6.927100", r.URL.Query().Get("lat"))
				assert.Equal(t, "79.861200", r.URL.Query().Get("lon"))
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			got, err := NewClient(testConfig(server.URL), nil, nil).Reverse(context.Background(), location.Coordinate{Latitude: 6.9271, Longitude: 79.8612})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReverse_ErrorPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":"Unable to geocode"}`))
	}))
	defer server.Close()

	_, err := NewClient(testConfig(server.URL), nil, nil).Reverse(context.Background(), location.Coordinate{Latitude: 0, Longitude: 0})
	require.Error(t, err)
	assert.Equal(t, common.KindExternal, common.KindOf(err))
}

func TestReverseCacheKey_NearbyPointsShareCell(t *testing.T) {
	c := NewClient(testConfig("http://unused"), nil, nil)

	a := c.reverseCacheKey(location.Coordinate{Latitude: 6.927100, Longitude: 79.861200})
	b := c.reverseCacheKey(location.Coordinate{Latitude: 6.927105, Longitude: 79.861205})
	far := c.reverseCacheKey(location.Coordinate{Latitude: 7.2906, Longitude: 80.6337})

	assert.NotEmpty(t, a)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, far)
}

func TestReverse_CacheHit(t *testing.T) {
	coord := location.Coordinate{Latitude: 6.9271, Longitude: 79.8612}
	c := NewClient(testConfig("http://unused.invalid"), nil, nil)
	key := c.reverseCacheKey(coord)

	store := new(mockCache)
	store.On("GetString", mock.Anything, key).Return(`"Pettah"`, nil).Once()
	c.cache = cache.NewManager(store)

	got, err := c.Reverse(context.Background(), coord)
	require.NoError(t, err)
	assert.Equal(t, "Pettah", got)
}
