package config

import (
	"time"
)

const (
	clientIDEnvVar     = "BROKER_CLIENT_ID"
	clientSecretEnvVar = "BROKER_CLIENT_SECRET"
	redirectURIEnvVar  = "BROKER_REDIRECT_URI"
	loginIDEnvVar      = "BROKER_LOGIN_ID"
	passwordEnvVar     = "BROKER_PASSWORD"
	tlsCertEnvVar      = "LISTENER_TLS_CERT_FILE"
	tlsKeyEnvVar       = "LISTENER_TLS_KEY_FILE"
)

// EnvVars is populated by envconfig from the process environment.
type EnvVars struct {
	AppName   string `envconfig:"APP_NAME" default:"Broker Auth"`
	Env       string `envconfig:"ENV" default:"DEV"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogPretty bool   `envconfig:"LOG_PRETTY" default:"true"`

	// Provider
	ClientID         string        `envconfig:"BROKER_CLIENT_ID"`
	ClientSecret     string        `envconfig:"BROKER_CLIENT_SECRET"`
	RedirectURI      string        `envconfig:"BROKER_REDIRECT_URI"`
	Scope            string        `envconfig:"BROKER_SCOPE" default:"readonly"`
	AuthBaseURL      string        `envconfig:"BROKER_AUTH_BASE_URL" default:"https://api.schwabapi.com"`
	APIBaseURL       string        `envconfig:"BROKER_API_BASE_URL" default:"https://api.schwabapi.com"`
	TokenHTTPTimeout time.Duration `envconfig:"TOKEN_HTTP_TIMEOUT" default:"30s"`

	// Consent form credentials
	LoginID  string `envconfig:"BROKER_LOGIN_ID"`
	Password string `envconfig:"BROKER_PASSWORD"`

	// Callback listener
	ListenerAddr    string        `envconfig:"LISTENER_ADDR" default:":443"`
	CallbackPath    string        `envconfig:"LISTENER_CALLBACK_PATH" default:"/"`
	ListenerTimeout time.Duration `envconfig:"LISTENER_TIMEOUT" default:"60s"`
	TLSCertFile     string        `envconfig:"LISTENER_TLS_CERT_FILE"`
	TLSKeyFile      string        `envconfig:"LISTENER_TLS_KEY_FILE"`

	// Browser
	Headless           bool   `envconfig:"BROWSER_HEADLESS" default:"true"`
	BrowserControlURL  string `envconfig:"BROWSER_CONTROL_URL"`
	BrowserBin         string `envconfig:"BROWSER_BIN"`
	BrowserNoSandbox   bool   `envconfig:"BROWSER_NO_SANDBOX" default:"false"`
	ScreenshotsEnabled bool   `envconfig:"SCREENSHOTS_ENABLED" default:"false"`
	ScreenshotDir      string `envconfig:"SCREENSHOT_DIR" default:"./screenshots"`

	// Consent flow timing
	PageWaitTimeout    time.Duration `envconfig:"PAGE_WAIT_TIMEOUT" default:"30s"`
	NavigationTimeout  time.Duration `envconfig:"NAVIGATION_TIMEOUT" default:"30s"`
	SettleTimeout      time.Duration `envconfig:"SETTLE_TIMEOUT" default:"10s"`
	SettlePollInterval time.Duration `envconfig:"SETTLE_POLL_INTERVAL" default:"500ms"`
	ScrollSettle       time.Duration `envconfig:"SCROLL_SETTLE" default:"2s"`
	DriverTimeout      time.Duration `envconfig:"DRIVER_TIMEOUT" default:"0s"`
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetAppName() string {
	return e.AppName
}

func (e EnvVars) GetEnv() string {
	if e.Env == "" {
		return "DEV"
	}
	return e.Env
}

func (e EnvVars) GetLogLevel() string {
	return e.LogLevel
}

func (e EnvVars) GetLogPretty() bool {
	return e.LogPretty
}
