package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jrsteele09/go-broker-auth/internal/config"
	apperrors "github.com/jrsteele09/go-broker-auth/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var requiredVars = []string{
	"BROKER_CLIENT_ID",
	"BROKER_CLIENT_SECRET",
	"BROKER_REDIRECT_URI",
	"BROKER_LOGIN_ID",
	"BROKER_PASSWORD",
	"LISTENER_TLS_CERT_FILE",
	"LISTENER_TLS_KEY_FILE",
}

func setRequired(t *testing.T) {
	t.Helper()

	dir := t.TempDir()
	certFile := filepath.Join(dir, "cert.pem")
	keyFile := filepath.Join(dir, "key.pem")
	require.NoError(t, os.WriteFile(certFile, []byte("cert"), 0o600))
	require.NoError(t, os.WriteFile(keyFile, []byte("key"), 0o600))

	t.Setenv("BROKER_CLIENT_ID", "client-1")
	t.Setenv("BROKER_CLIENT_SECRET", "secret-1")
	t.Setenv("BROKER_REDIRECT_URI", "https://127.0.0.1")
	t.Setenv("BROKER_LOGIN_ID", "jdoe")
	t.Setenv("BROKER_PASSWORD", "hunter2")
	t.Setenv("LISTENER_TLS_CERT_FILE", certFile)
	t.Setenv("LISTENER_TLS_KEY_FILE", keyFile)
}

func TestLoadMissingRequired(t *testing.T) {
	for _, v := range requiredVars {
		t.Setenv(v, "")
	}

	cfg, err := config.Load()
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.True(t, apperrors.Is(err, apperrors.ErrMissingConfig))

	var cfgErr *apperrors.ConfigError
	require.True(t, apperrors.As(err, &cfgErr))
	assert.ElementsMatch(t, requiredVars, cfgErr.Missing)
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "client-1", cfg.GetClientID())
	assert.Equal(t, []string{"readonly"}, cfg.GetScopes())
	assert.Equal(t, "https://api.schwabapi.com/v1/oauth/authorize", cfg.GetAuthorizeURL())
	assert.Equal(t, "https://api.schwabapi.com/v1/oauth/token", cfg.GetTokenURL())
	assert.Equal(t, ":443", cfg.GetListenerAddr())
	assert.Equal(t, "/", cfg.GetCallbackPath())
	assert.Equal(t, 60*time.Second, cfg.GetListenerTimeout())
	assert.Equal(t, 10*time.Second, cfg.GetSettleTimeout())
	assert.Equal(t, 2*time.Second, cfg.GetScrollSettle())
	assert.Equal(t, time.Duration(0), cfg.GetDriverTimeout())
	assert.True(t, cfg.GetHeadless())
	assert.False(t, cfg.GetScreenshotsEnabled())
}

func TestLoadFromEnvFile(t *testing.T) {
	setRequired(t)
	t.Setenv("BROKER_CLIENT_ID", "")
	os.Unsetenv("BROKER_CLIENT_ID")

	envFile := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("BROKER_CLIENT_ID=from-file\n"), 0o600))

	cfg, err := config.Load(envFile)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.GetClientID())
}

func TestLoadMissingCertFile(t *testing.T) {
	setRequired(t)
	t.Setenv("LISTENER_TLS_CERT_FILE", filepath.Join(t.TempDir(), "nope.pem"))

	_, err := config.Load()
	require.Error(t, err)

	var cfgErr *apperrors.ConfigError
	require.True(t, apperrors.As(err, &cfgErr))
	assert.Equal(t, []string{"LISTENER_TLS_CERT_FILE"}, cfgErr.Invalid)
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidConfig))
}

func TestLoadInvalidDuration(t *testing.T) {
	setRequired(t)
	t.Setenv("LISTENER_TIMEOUT", "soon")

	_, err := config.Load()
	require.Error(t, err)

	var cfgErr *apperrors.ConfigError
	require.True(t, apperrors.As(err, &cfgErr))
	assert.Equal(t, []string{"LISTENER_TIMEOUT"}, cfgErr.Invalid)
}

func TestCustomBaseURLs(t *testing.T) {
	setRequired(t)
	t.Setenv("BROKER_AUTH_BASE_URL", "https://auth.example.com/")
	t.Setenv("BROKER_API_BASE_URL", "https://api.example.com/")
	t.Setenv("BROKER_SCOPE", "readonly trade")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "https://auth.example.com/v1/oauth/token", cfg.GetTokenURL())
	assert.Equal(t, "https://api.example.com", cfg.GetAPIBaseURL())
	assert.Equal(t, []string{"readonly", "trade"}, cfg.GetScopes())
}

func TestLoadMissingNamedEnvFile(t *testing.T) {
	setRequired(t)

	_, err := config.Load(filepath.Join(t.TempDir(), "absent.env"))
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidConfig))
}

func TestLoadMissingDefaultEnvFileIsTolerated(t *testing.T) {
	setRequired(t)
	t.Chdir(t.TempDir())

	cfg, err := config.Load(config.DefaultEnvFile)
	require.NoError(t, err)
	assert.Equal(t, "client-1", cfg.GetClientID())
}

func TestLoadEveryEnvFile(t *testing.T) {
	setRequired(t)
	for _, v := range []string{"BROKER_CLIENT_ID", "BROKER_LOGIN_ID"} {
		t.Setenv(v, "")
		os.Unsetenv(v)
	}

	dir := t.TempDir()
	first := filepath.Join(dir, "first.env")
	second := filepath.Join(dir, "second.env")
	require.NoError(t, os.WriteFile(first, []byte("BROKER_CLIENT_ID=from-first\n"), 0o600))
	require.NoError(t, os.WriteFile(second, []byte("BROKER_LOGIN_ID=from-second\n"), 0o600))

	cfg, err := config.Load(first, second)
	require.NoError(t, err)
	assert.Equal(t, "from-first", cfg.GetClientID())
	assert.Equal(t, "from-second", cfg.GetLoginID())
}
