package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLimiter(t *testing.T, max int) (*AuthRateLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	log, _ := test.NewNullLogger()
	return NewAuthRateLimiter(rdb, max, time.Minute, false, log), mr
}

func doLogin(h http.Handler, remote string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/user/login", nil)
	req.RemoteAddr = remote
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAuthRateLimiter_BlocksAfterMax(t *testing.T) {
	l, mr := newLimiter(t, 3)
	h := l.Handler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }))

	for i := 0; i < 3; i++ {
		rec := doLogin(h, "203.0.113.7:5000")
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i+1)
	}
	rec := doLogin(h, "203.0.113.7:5000")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// other clients are counted separately
	assert.Equal(t, http.StatusOK, doLogin(h, "198.51.100.1:5000").Code)

	mr.FastForward(time.Minute + time.Second)
	assert.Equal(t, http.StatusOK, doLogin(h, "203.0.113.7:5000").Code)
}

func TestAuthRateLimiter_FailsOpen(t *testing.T) {
	l, mr := newLimiter(t, 1)
	h := l.Handler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }))
	mr.Close()

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, doLogin(h, "203.0.113.7:5000").Code)
	}
}

func TestAuthRateLimiter_DisabledWithoutRedis(t *testing.T) {
	var l *AuthRateLimiter
	next := http.NotFoundHandler()
	assert.NotNil(t, l.Handler(next))

	l = NewAuthRateLimiter(nil, 1, time.Minute, false, nil)
	rec := doLogin(l.Handler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })), "1.2.3.4:1")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthRateLimiter_RepairsCounterWithoutTTL(t *testing.T) {
	l, mr := newLimiter(t, 3)
	h := l.Handler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }))

	// a counter over the limit whose EXPIRE never landed
	key := authRateLimitKeyPrefix + "/user/login:203.0.113.7"
	require.NoError(t, mr.Set(key, "10"))
	require.Zero(t, mr.TTL(key))

	rec := doLogin(h, "203.0.113.7:5000")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, time.Minute, mr.TTL(key))
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	mr.FastForward(time.Minute + time.Second)
	assert.Equal(t, http.StatusOK, doLogin(h, "203.0.113.7:5000").Code)
}
