package mw

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})
}

func hit(h http.Handler, ip string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodPost, "/count", nil)
	r.RemoteAddr = "10.0.0.1:1234"
	r.Header.Set("Fly-Client-IP", ip)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestRateLimitDisabled(t *testing.T) {
	h := RateLimit(RateLimitConfig{Burst: 0})(okHandler())

	for i := 0; i < 50; i++ {
		w := hit(h, "203.0.113.7")
		require.Equal(t, http.StatusAccepted, w.Code)
		assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
	}
}

func TestRateLimitPerClient(t *testing.T) {
	h := RateLimit(RateLimitConfig{
		Burst:          3,
		RefillPerMin:   1,
		MaxEntries:     16,
		ClientIPHeader: "Fly-Client-IP",
	})(okHandler())

	for i := 0; i < 3; i++ {
		w := hit(h, "203.0.113.7")
		require.Equal(t, http.StatusAccepted, w.Code)
		assert.Equal(t, "3", w.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, strconv.Itoa(2-i), w.Header().Get("X-RateLimit-Remaining"))
	}

	w := hit(h, "203.0.113.7")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	retry, err := strconv.Atoi(w.Header().Get("Retry-After"))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, retry, 1)
	assert.LessOrEqual(t, retry, 60)

	// Another client keeps its own bucket.
	assert.Equal(t, http.StatusAccepted, hit(h, "198.51.100.9").Code)
}

func TestRateLimitEvictsOldClients(t *testing.T) {
	h := RateLimit(RateLimitConfig{
		Burst:          1,
		RefillPerMin:   1,
		MaxEntries:     1,
		ClientIPHeader: "Fly-Client-IP",
	})(okHandler())

	require.Equal(t, http.StatusAccepted, hit(h, "203.0.113.7").Code)
	require.Equal(t, http.StatusTooManyRequests, hit(h, "203.0.113.7").Code)

	// A second client pushes the first out of the cache, so it starts fresh.
	require.Equal(t, http.StatusAccepted, hit(h, "198.51.100.9").Code)
	assert.Equal(t, http.StatusAccepted, hit(h, "203.0.113.7").Code)
}
