package exchangerate

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aristath/playground/internal/clientdata"
	"github.com/aristath/playground/internal/database"
	testingpkg "github.com/aristath/playground/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCache(t *testing.T) *clientdata.Cache {
	db := testingpkg.NewTestDB(t, database.NameClientData)
	return clientdata.NewCache(db.Conn())
}

func TestGetRate_SameCurrency(t *testing.T) {
	c := NewClient("http://127.0.0.1:0", nil, zerolog.Nop())
	rate, err := c.GetRate("USD", "USD")
	require.NoError(t, err)
	assert.Equal(t, 1.0, rate)
}

func TestGetRate_FetchesAndCaches(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		assert.Equal(t, "/ILS", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"base":"ILS","rates":{"USD":0.27,"EUR":0.25}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, newCache(t), zerolog.Nop())

	rate, err := c.GetRate("ILS", "USD")
	require.NoError(t, err)
	assert.Equal(t, 0.27, rate)

	rate, err = c.GetRate("ILS", "USD")
	require.NoError(t, err)
	assert.Equal(t, 0.27, rate)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestGetRate_FallsBackToStaleCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cache := newCache(t)
	require.NoError(t, cache.PutTTL(clientdata.ExchangeRates, "EUR:USD", cachedExchangeRate{Rate: 1.08}, -time.Hour))

	c := NewClient(srv.URL, cache, zerolog.Nop())
	c.http.SetRetryCount(0)

	rate, err := c.GetRate("EUR", "USD")
	require.NoError(t, err)
	assert.Equal(t, 1.08, rate)

	_, err = c.GetRate("JPY", "USD")
	assert.Error(t, err)
}

func TestGetRate_MissingRate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"base":"GBP","rates":{"EUR":1.17}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil, zerolog.Nop())
	_, err := c.GetRate("GBP", "USD")
	assert.Error(t, err)
}
