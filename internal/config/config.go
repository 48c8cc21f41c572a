package config

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	apperrors "github.com/jrsteele09/go-broker-auth/internal/errors"
)

type Config interface {
	EnvConfig
	OAuthConfig
	ListenerConfig
	BrowserConfig
	FlowConfig
}

type EnvConfig interface {
	GetAppName() string
	GetLogLevel() string
	GetLogPretty() bool
	GetEnv() string
}

type mainConfig struct {
	EnvVars
}

var _ Config = mainConfig{}

// DefaultEnvFile is the dotenv file loaded when no other is named. It may be absent.
const DefaultEnvFile = ".env"

// Load reads the given dotenv files in order and then the process environment.
// A named file that cannot be read is an error, except a missing DefaultEnvFile.
// Every required value that is absent is reported in a single ConfigError.
func Load(envFiles ...string) (Config, error) {
	if err := loadEnvFiles(envFiles); err != nil {
		return nil, err
	}

	var vars EnvVars
	if err := envconfig.Process("", &vars); err != nil {
		if perr, ok := err.(*envconfig.ParseError); ok {
			return nil, &apperrors.ConfigError{Invalid: []string{perr.KeyName}}
		}
		return nil, apperrors.Wrapf(apperrors.ErrInvalidConfig, "%v", err)
	}
	if err := vars.validate(); err != nil {
		return nil, err
	}
	return mainConfig{EnvVars: vars}, nil
}

func loadEnvFiles(envFiles []string) error {
	for _, file := range envFiles {
		err := godotenv.Load(file)
		if err == nil {
			continue
		}
		if file == DefaultEnvFile && errors.Is(err, fs.ErrNotExist) {
			continue
		}
		return apperrors.Wrapf(apperrors.ErrInvalidConfig, "env file %s: %v", file, err)
	}
	return nil
}

// New wraps already populated variables, validating them the same way Load does.
func New(vars EnvVars) (Config, error) {
	if err := vars.validate(); err != nil {
		return nil, err
	}
	return mainConfig{EnvVars: vars}, nil
}

func (e EnvVars) validate() error {
	cfgErr := &apperrors.ConfigError{}
	required := []struct {
		key   string
		value string
	}{
		{clientIDEnvVar, e.ClientID},
		{clientSecretEnvVar, e.ClientSecret},
		{redirectURIEnvVar, e.RedirectURI},
		{loginIDEnvVar, e.LoginID},
		{passwordEnvVar, e.Password},
		{tlsCertEnvVar, e.TLSCertFile},
		{tlsKeyEnvVar, e.TLSKeyFile},
	}
	for _, r := range required {
		if r.value == "" {
			cfgErr.Missing = append(cfgErr.Missing, r.key)
		}
	}
	for _, f := range []struct {
		key  string
		path string
	}{
		{tlsCertEnvVar, e.TLSCertFile},
		{tlsKeyEnvVar, e.TLSKeyFile},
	} {
		if f.path == "" {
			continue
		}
		if _, err := os.Stat(f.path); err != nil {
			cfgErr.Invalid = append(cfgErr.Invalid, f.key)
		}
	}
	if e.ListenerTimeout <= 0 {
		cfgErr.Invalid = append(cfgErr.Invalid, "LISTENER_TIMEOUT")
	}
	if len(cfgErr.Missing) > 0 || len(cfgErr.Invalid) > 0 {
		return cfgErr
	}
	return nil
}
