// internal/handlers/middleware/ratelimit.go
package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const limiterIdle = 10 * time.Minute

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimit allows bursts of requests per window for each client. Scanners
// behind one warehouse NAT share an address, so a client is its X-Device-ID
// when sent and its IP otherwise. Idle clients are forgotten until ctx is done.
func RateLimit(ctx context.Context, requests int, per time.Duration) Middleware {
	var (
		mu      sync.Mutex
		clients = make(map[string]*clientLimiter)
	)
	every := rate.Every(per / time.Duration(max(requests, 1)))

	go func() {
		ticker := time.NewTicker(limiterIdle)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				mu.Lock()
				for key, c := range clients {
					if now.Sub(c.lastSeen) > limiterIdle {
						delete(clients, key)
					}
				}
				mu.Unlock()
			}
		}
	}()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientKey(r)
			now := time.Now()

			mu.Lock()
			c, ok := clients[key]
			if !ok {
				c = &clientLimiter{limiter: rate.NewLimiter(every, requests)}
				clients[key] = c
			}
			c.lastSeen = now
			res := c.limiter.ReserveN(now, 1)
			mu.Unlock()

			if delay := res.DelayFrom(now); delay > 0 {
				res.CancelAt(now)
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(delay.Seconds()))))
				writeError(w, r, http.StatusTooManyRequests, "Rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientKey(r *http.Request) string {
	if device := r.Header.Get(DeviceHeader); device != "" {
		return "device:" + device
	}
	return "ip:" + clientIP(r)
}
