package config

import "time"

type BrowserConfig interface {
	GetHeadless() bool
	GetBrowserControlURL() string
	GetBrowserBin() string
	GetBrowserNoSandbox() bool
	GetScreenshotsEnabled() bool
	GetScreenshotDir() string
}

// FlowConfig holds the consent form credentials and the timing budget of the browser flow.
type FlowConfig interface {
	GetLoginID() string
	GetPassword() string
	GetPageWaitTimeout() time.Duration
	GetNavigationTimeout() time.Duration
	GetSettleTimeout() time.Duration
	GetSettlePollInterval() time.Duration
	GetScrollSettle() time.Duration
	GetDriverTimeout() time.Duration
}

var (
	_ BrowserConfig = EnvVars{}
	_ FlowConfig    = EnvVars{}
)

func (e EnvVars) GetHeadless() bool {
	return e.Headless
}

func (e EnvVars) GetBrowserControlURL() string {
	return e.BrowserControlURL
}

func (e EnvVars) GetBrowserBin() string {
	return e.BrowserBin
}

// GetBrowserNoSandbox disables the Chromium sandbox, which cannot start as root.
func (e EnvVars) GetBrowserNoSandbox() bool {
	return e.BrowserNoSandbox
}

func (e EnvVars) GetScreenshotsEnabled() bool {
	return e.ScreenshotsEnabled
}

func (e EnvVars) GetScreenshotDir() string {
	return e.ScreenshotDir
}

func (e EnvVars) GetLoginID() string {
	return e.LoginID
}

func (e EnvVars) GetPassword() string {
	return e.Password
}

func (e EnvVars) GetPageWaitTimeout() time.Duration {
	return e.PageWaitTimeout
}

func (e EnvVars) GetNavigationTimeout() time.Duration {
	return e.NavigationTimeout
}

func (e EnvVars) GetSettleTimeout() time.Duration {
	return e.SettleTimeout
}

func (e EnvVars) GetSettlePollInterval() time.Duration {
	return e.SettlePollInterval
}

func (e EnvVars) GetScrollSettle() time.Duration {
	return e.ScrollSettle
}

// GetDriverTimeout bounds the whole browser flow. Zero means no overall limit.
func (e EnvVars) GetDriverTimeout() time.Duration {
	return e.DriverTimeout
}
