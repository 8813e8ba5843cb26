// Package config holds the tunable parameters of the LPN friendship core,
// loaded from a YAML file the same way the rest of the node configuration
// is loaded.
package config

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/nspcc-dev/ble-mesh-lpn/pkg/lpn/config/limits"
	"gopkg.in/yaml.v3"
)

// Defaults match the literal values used throughout spec §6/§8.
const (
	DefaultRecvDelay             = 100 * time.Millisecond
	DefaultFriendReqWait         = 100 * time.Millisecond
	DefaultFriendReqScan         = 1 * time.Second
	DefaultPollRetryTimeout      = 100 * time.Millisecond
	DefaultClearAttempts         = 2
	DefaultLPNGroups             = 16
	DefaultPollTimeoutUnits      = 300 // 100ms units => 30s
	DefaultFriendReqRetryTimeout = 5 * time.Second
	// DefaultFriendReqTimeout is FRIEND_REQ_TIMEOUT, the window after a
	// Friend Request/Clear transmission within which a response is
	// expected before the current attempt is considered missed.
	DefaultFriendReqTimeout = 2 * time.Second
	DefaultMinQueueSize          = 1
	DefaultRSSIFactor            = 0
	DefaultRecvWinFactor         = 0
	// DefaultAutoEnableWindow is the Timer-state idle window: how long the
	// node waits after the last received mesh message before auto-entering
	// Enabled. Spec §4.1 names the Timer state but leaves its window
	// unspecified; not carried on the wire, so it is a local policy choice
	// (see DESIGN.md).
	DefaultAutoEnableWindow = 10 * time.Second
)

// Criteria packs the friendship criteria advertised in a Friend Request's
// criteria octet (spec §4.2).
type Criteria struct {
	MinQueueSize uint8 `yaml:"MinQueueSize"`
	RSSIFactor   uint8 `yaml:"RSSIFactor"`
	RecvWinFactor uint8 `yaml:"RecvWinFactor"`
}

// Config is the top-level LPN core configuration.
type Config struct {
	// RecvDelay is LPN_RECV_DELAY, advertised in Friend Request and used to
	// compute the RecvDelay -> WaitUpdate timer arm (10-255ms).
	RecvDelay time.Duration `yaml:"RecvDelay"`
	// ScanLatency is SCAN_LATENCY, clamped to min(configured, RecvDelay).
	ScanLatency time.Duration `yaml:"ScanLatency"`
	// FriendReqRetryTimeout arms after a failed establishment round.
	FriendReqRetryTimeout time.Duration `yaml:"FriendReqRetryTimeout"`
	// FriendReqTimeout is FRIEND_REQ_TIMEOUT, the per-attempt response
	// window for a Friend Request (WaitOffer, when establishment
	// optimization is off) and for a Friend Clear (Clear state).
	FriendReqTimeout time.Duration `yaml:"FriendReqTimeout"`
	// FriendReqWait is FRIEND_REQ_WAIT (100ms fixed by spec, but kept
	// configurable for test acceleration).
	FriendReqWait time.Duration `yaml:"FriendReqWait"`
	// FriendReqScan is FRIEND_REQ_SCAN (1s fixed by spec).
	FriendReqScan time.Duration `yaml:"FriendReqScan"`
	// PollRetryTimeout is POLL_RETRY_TIMEOUT (100ms fixed by spec).
	PollRetryTimeout time.Duration `yaml:"PollRetryTimeout"`
	// ClearAttempts is CLEAR_ATTEMPTS.
	ClearAttempts int `yaml:"ClearAttempts"`
	// LPNGroups is the size of the groups slot array.
	LPNGroups int `yaml:"LPNGroups"`
	// PollTimeoutUnits is LPN_POLL_TIMEOUT expressed in 100ms units, as
	// carried on the wire in poll_to.
	PollTimeoutUnits uint32 `yaml:"PollTimeoutUnits"`
	// EstablishOptimization gates the ReqWait/RecvDelay pre-scan-enable
	// states described in spec §4.1/§4.7.
	EstablishOptimization bool `yaml:"EstablishOptimization"`
	// AutoEnable, if set, makes the initial state Timer instead of
	// Disabled (spec §4.1).
	AutoEnable       bool          `yaml:"AutoEnable"`
	AutoEnableWindow time.Duration `yaml:"AutoEnableWindow"`

	Criteria Criteria     `yaml:"Criteria"`
	Logger   Logger       `yaml:"Logger"`
	Metrics  BasicService `yaml:"Metrics"`
}

// Default returns the configuration with every tunable set to the literal
// defaults named in spec.md.
func Default() Config {
	return Config{
		RecvDelay:             DefaultRecvDelay,
		ScanLatency:           DefaultRecvDelay,
		FriendReqRetryTimeout: DefaultFriendReqRetryTimeout,
		FriendReqTimeout:      DefaultFriendReqTimeout,
		FriendReqWait:         DefaultFriendReqWait,
		FriendReqScan:         DefaultFriendReqScan,
		PollRetryTimeout:      DefaultPollRetryTimeout,
		ClearAttempts:         DefaultClearAttempts,
		LPNGroups:             DefaultLPNGroups,
		PollTimeoutUnits:      DefaultPollTimeoutUnits,
		EstablishOptimization: true,
		AutoEnableWindow:      DefaultAutoEnableWindow,
		Criteria: Criteria{
			MinQueueSize:  DefaultMinQueueSize,
			RSSIFactor:    DefaultRSSIFactor,
			RecvWinFactor: DefaultRecvWinFactor,
		},
	}
}

// Load reads and validates a Config from the YAML file at path, starting
// from Default() so that a partial file only overrides what it names.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("unable to read config: %w", err)
	}
	return LoadBytes(data)
}

// LoadBytes decodes and validates a Config from raw YAML, starting from
// Default().
func LoadBytes(data []byte) (Config, error) {
	cfg := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate returns an error if the configuration violates a wire-format or
// protocol-mandated bound. It also clamps ScanLatency to RecvDelay in place,
// so callers must hold an addressable Config (Load/LoadBytes already do).
func (c *Config) Validate() error {
	ms := c.RecvDelay.Milliseconds()
	if ms < limits.MinRecvDelay || ms > limits.MaxRecvDelay {
		return fmt.Errorf("RecvDelay %s out of wire range [%d,%d]ms", c.RecvDelay, limits.MinRecvDelay, limits.MaxRecvDelay)
	}
	if c.LPNGroups <= 0 {
		return fmt.Errorf("LPNGroups must be positive, got %d", c.LPNGroups)
	}
	if c.ClearAttempts <= 0 {
		return fmt.Errorf("ClearAttempts must be positive, got %d", c.ClearAttempts)
	}
	if c.PollTimeoutUnits == 0 || c.PollTimeoutUnits > limits.MaxPollTimeoutUnits {
		return fmt.Errorf("PollTimeoutUnits %d out of wire range (0,%d]", c.PollTimeoutUnits, limits.MaxPollTimeoutUnits)
	}
	if err := c.Logger.Validate(); err != nil {
		return err
	}
	if c.ScanLatency > c.RecvDelay {
		c.ScanLatency = c.RecvDelay
	}
	return nil
}
