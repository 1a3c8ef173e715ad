package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestRedisRateLimitMiddleware_Basic(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	client := redis.NewClient(&redis.Options{Addr: m.Addr()})

	r := gin.New()
	r.Use(RedisRateLimitMiddleware(client, 1, 0, 1*time.Second)) // 1 req/sec, no burst
	r.GET("/r", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })

	require.Equal(t, http.StatusOK, serve(r, "/r", ""))

	// immediate second request -> blocked, unless the wall-clock second rolled over
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/r", nil))
	if w.Code == http.StatusOK {
		require.Equal(t, http.StatusTooManyRequests, serve(r, "/r", ""))
	} else {
		require.Equal(t, http.StatusTooManyRequests, w.Code)
	}

	// advance miniredis clock past window and request should be allowed
	m.FastForward(2 * time.Second)
	require.Equal(t, http.StatusOK, serve(r, "/r", ""))
}

func TestRedisRateLimitMiddleware_RedisDown(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: m.Addr(), MaxRetries: -1})
	m.Close()

	r := gin.New()
	r.Use(RedisRateLimitMiddleware(client, 1, 0, time.Second))
	r.GET("/r", func(c *gin.Context) { c.Status(200) })
	require.Equal(t, http.StatusInternalServerError, serve(r, "/r", ""))
}

func TestRedisRateLimitMiddleware_NilClientFallsBack(t *testing.T) {
	r := gin.New()
	r.Use(RedisRateLimitMiddleware(nil, 0.1, 1, time.Second))
	r.GET("/r", func(c *gin.Context) { c.Status(200) })
	require.Equal(t, http.StatusOK, serve(r, "/r", ""))
	require.Equal(t, http.StatusTooManyRequests, serve(r, "/r", ""))
}
