package config

import "time"

type ListenerConfig interface {
	GetListenerAddr() string
	GetCallbackPath() string
	GetListenerTimeout() time.Duration
	GetTLSCertFile() string
	GetTLSKeyFile() string
}

var _ ListenerConfig = EnvVars{}

func (e EnvVars) GetListenerAddr() string {
	return e.ListenerAddr
}

func (e EnvVars) GetCallbackPath() string {
	if e.CallbackPath == "" {
		return "/"
	}
	return e.CallbackPath
}

// GetListenerTimeout is how long the callback listener waits for a code before giving up
func (e EnvVars) GetListenerTimeout() time.Duration {
	return e.ListenerTimeout
}

func (e EnvVars) GetTLSCertFile() string {
	return e.TLSCertFile
}

func (e EnvVars) GetTLSKeyFile() string {
	return e.TLSKeyFile
}
