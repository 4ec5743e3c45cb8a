package metrics

import "strings"

// Config labels every instrument with the service and environment.
type Config struct {
	ServiceName string
	Environment string
}

func (c Config) serviceName() string {
	if name := strings.TrimSpace(c.ServiceName); name != "" {
		return name
	}
	return "lingua"
}

func (c Config) environment() string {
	if env := strings.TrimSpace(c.Environment); env != "" {
		return env
	}
	return "unknown"
}
