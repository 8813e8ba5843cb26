package config

// BasicService is used as a simple base for optional LPN services, such as
// the Prometheus metrics surface.
type BasicService struct {
	Enabled bool `yaml:"Enabled"`
	// Addresses holds the list of bind addresses in the form "address:port".
	Addresses []string `yaml:"Addresses"`
}
