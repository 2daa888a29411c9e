package config_test

import (
	"os"
	"testing"

	"github.com/arslant84/l1a-test-sub000/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoadConfigFromFile 测试从配置文件加载配置
func TestLoadConfigFromFile(t *testing.T) {
	configContent := `
server:
  host: "0.0.0.0"
  port: 9090
  rate_limit_rps: 50
  rate_limit_burst: 100
database:
  driver: "sqlite"
  dbname: ":memory:"
auth:
  jwt_secret: "file-secret"
  issuer: "l1a-training"
notify:
  webhook_url: "https://hooks.example.com/training"
  workers: 8
tracing:
  enabled: true
  jaeger_endpoint: "http://jaeger:14268/api/traces"
`

	tmpFile, err := os.CreateTemp("", "config-*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpFile.Name())

	_, err = tmpFile.WriteString(configContent)
	require.NoError(t, err)
	tmpFile.Close()

	cfg, err := config.Load(tmpFile.Name())
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, float64(50), cfg.Server.RateLimitRPS)
	assert.Equal(t, 100, cfg.Server.RateLimitBurst)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, ":memory:", cfg.Database.DBName)
	assert.Equal(t, "file-secret", cfg.Auth.JWTSecret)
	assert.Equal(t, 8, cfg.Notify.Workers)
	assert.True(t, cfg.Tracing.Enabled)
	assert.Equal(t, "http://jaeger:14268/api/traces", cfg.Tracing.JaegerEndpoint)
}

// TestLoadConfigDefaults 测试默认配置值
func TestLoadConfigDefaults(t *testing.T) {
	cfg := config.Default()

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, float64(0), cfg.Server.RateLimitRPS)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "l1a_training", cfg.Database.DBName)
	assert.Equal(t, "l1a-training", cfg.Auth.Issuer)
	assert.Equal(t, 4, cfg.Notify.Workers)
	assert.False(t, cfg.Tracing.Enabled)
	assert.NotEmpty(t, cfg.CORS.AllowedOrigins)
}

// TestLoadConfigFromEnv 测试环境变量覆盖
func TestLoadConfigFromEnv(t *testing.T) {
	os.Setenv("APP_SERVER_PORT", "7070")
	os.Setenv("APP_DATABASE_HOST", "db.example.com")
	os.Setenv("APP_AUTH_JWT_SECRET", "env-secret")
	defer func() {
		os.Unsetenv("APP_SERVER_PORT")
		os.Unsetenv("APP_DATABASE_HOST")
		os.Unsetenv("APP_AUTH_JWT_SECRET")
	}()

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "db.example.com", cfg.Database.Host)
	assert.Equal(t, "env-secret", cfg.Auth.JWTSecret)
}

// TestIsProduction 测试生产环境判断
func TestIsProduction(t *testing.T) {
	assert.False(t, config.IsProduction(nil))
	assert.False(t, config.IsProduction(&config.Config{Env: "development"}))
	assert.True(t, config.IsProduction(&config.Config{Env: "production"}))
}
