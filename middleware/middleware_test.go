package middleware

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wirdly/wirdbot/config"
	"github.com/wirdly/wirdbot/utils"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	config.SetForTest(config.AppConfig{
		BotToken:           "test-token",
		JWTSecret:          "test-jwt-secret",
		RateLimitPerMinute: 4,
		RedisHost:          "127.0.0.1",
		RedisPort:          6399,
	})
	utils.Sugar = zap.NewNop().Sugar()
	os.Exit(m.Run())
}

func protectedRouter() *gin.Engine {
	r := gin.New()
	r.GET("/protected", AuthRequired(), func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"user": ctx.GetString(ContextUsernameKey)})
	})
	return r
}

func get(r *gin.Engine, path, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestAuthRequired(t *testing.T) {
	r := protectedRouter()

	token, err := utils.GenerateToken("admin", time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"valid token", "Bearer " + token, http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + token, http.StatusUnauthorized},
		{"empty token", "Bearer ", http.StatusUnauthorized},
		{"garbage token", "Bearer not.a.token", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(r, "/protected", tt.header)
			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusOK {
				assert.Contains(t, rec.Body.String(), "admin")
			}
		})
	}
}

func TestAuthRequiredRejectsExpiredToken(t *testing.T) {
	r := protectedRouter()

	token, err := utils.GenerateToken("admin", -time.Minute)
	require.NoError(t, err)

	rec := get(r, "/protected", "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRateLimitMiddleware(t *testing.T) {
	r := gin.New()
	r.GET("/limited", RateLimitMiddleware(), func(ctx *gin.Context) {
		utils.Success(ctx, nil)
	})

	// Burst is perMinute/2 = 2 for the test config; the bucket refills far
	// slower than this loop runs.
	codes := map[int]int{}
	for i := 0; i < 6; i++ {
		rec := get(r, "/limited", "")
		codes[rec.Code]++
	}

	assert.Equal(t, 2, codes[http.StatusOK])
	assert.Equal(t, 4, codes[http.StatusTooManyRequests])
}
