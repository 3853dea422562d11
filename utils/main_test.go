package utils

import (
	"os"
	"testing"

	"go.uber.org/zap"

	"github.com/wirdly/wirdbot/config"
)

func TestMain(m *testing.M) {
	config.SetForTest(config.AppConfig{
		BotToken:  "test-token",
		JWTSecret: "test-jwt-secret",
		RedisHost: "127.0.0.1",
		RedisPort: 6399,
	})
	Sugar = zap.NewNop().Sugar()
	os.Exit(m.Run())
}
