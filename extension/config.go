package extension

import "time"

// Config holds the Propshare extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.propshare" or "propshare" keys).
type Config struct {
	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// RentCooldown is the minimum elapsed time between rent-rate updates
	// across the whole ledger (default: 8760h, one year).
	RentCooldown time.Duration `json:"rent_cooldown" mapstructure:"rent_cooldown" yaml:"rent_cooldown"`

	// Administrators lists caller identities granted the administrator
	// capability. Ignored when an Authorizer is injected programmatically.
	Administrators []string `json:"administrators" mapstructure:"administrators" yaml:"administrators"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		RentCooldown: 365 * 24 * time.Hour,
	}
}
