package config

import "fmt"

// Logger contains LPN core logger configuration.
type Logger struct {
	LogEncoding string `yaml:"LogEncoding"`
	LogLevel    string `yaml:"LogLevel"`
}

// Validate returns an error if the Logger configuration is not valid.
func (l Logger) Validate() error {
	if len(l.LogEncoding) > 0 && l.LogEncoding != "console" && l.LogEncoding != "json" {
		return fmt.Errorf("invalid LogEncoding: %s", l.LogEncoding)
	}
	if len(l.LogLevel) > 0 {
		switch l.LogLevel {
		case "debug", "info", "warn", "error":
		default:
			return fmt.Errorf("invalid LogLevel: %s", l.LogLevel)
		}
	}
	return nil
}
