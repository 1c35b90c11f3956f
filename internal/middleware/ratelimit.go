package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/AnshRaj112/clipstream-backend/internal/httputil"
	"github.com/AnshRaj112/clipstream-backend/pkg/apperr"
	"github.com/AnshRaj112/clipstream-backend/pkg/clientip"
	"github.com/AnshRaj112/clipstream-backend/pkg/logger"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const authRateLimitKeyPrefix = "ratelimit:auth:"

// AuthRateLimiter is a Redis fixed-window counter per client IP and route,
// shared by every instance behind the load balancer. Redis errors let the
// request through.
type AuthRateLimiter struct {
	rdb        *redis.Client
	max        int
	window     time.Duration
	trustProxy bool
	log        logrus.FieldLogger
}

func NewAuthRateLimiter(rdb *redis.Client, max int, window time.Duration, trustProxy bool, log logrus.FieldLogger) *AuthRateLimiter {
	return &AuthRateLimiter{rdb: rdb, max: max, window: window, trustProxy: trustProxy, log: logger.OrDefault(log)}
}

func (l *AuthRateLimiter) Handler(next http.Handler) http.Handler {
	if l == nil || l.rdb == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientip.RealClientIP(r, l.trustProxy)
		key := authRateLimitKeyPrefix + r.URL.Path + ":" + ip

		n, ttl, err := l.hit(r, key)
		if err != nil {
			l.log.WithError(err).WithField("ip", ip).Warn("auth rate limiter unavailable, allowing request")
			next.ServeHTTP(w, r)
			return
		}

		count := int(n)
		remaining := l.max - count
		if remaining < 0 {
			remaining = 0
		}
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.max))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if count > l.max {
			w.Header().Set("Retry-After", strconv.Itoa(int(ttl.Seconds())))
			l.log.WithFields(logrus.Fields{"ip": ip, "path": r.URL.Path}).Warn("auth rate limit exceeded")
			httputil.WriteError(w, r, l.log, apperr.New(apperr.KindRateLimited, "Too many attempts. Please try again later."))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// hit counts one request and returns the count with the window's remaining
// time. A counter left without a TTL gets one on the next hit, so a failed
// EXPIRE never locks a client out for good.
func (l *AuthRateLimiter) hit(r *http.Request, key string) (int64, time.Duration, error) {
	var (
		incr *redis.IntCmd
		ttl  *redis.DurationCmd
	)
	_, err := l.rdb.TxPipelined(r.Context(), func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(r.Context(), key)
		ttl = pipe.TTL(r.Context(), key)
		return nil
	})
	if err != nil {
		return 0, 0, err
	}

	remaining := ttl.Val()
	if remaining < 0 {
		if err := l.rdb.Expire(r.Context(), key, l.window).Err(); err != nil {
			return 0, 0, err
		}
		remaining = l.window
	}
	return incr.Val(), remaining, nil
}
