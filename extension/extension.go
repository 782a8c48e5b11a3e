// Package extension provides the Forge extension adapter for Propshare.
//
// It implements the forge.Extension interface to integrate the ledger
// into a Forge application with automatic dependency discovery,
// DI registration, and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.propshare" or
// "propshare" keys.
package extension

import (
	"context"
	"errors"

	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	"github.com/xraph/propshare"
	"github.com/xraph/propshare/store"
	"github.com/xraph/propshare/store/memory"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "propshare"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Fractional-ownership ledger for income-producing assets"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts Propshare as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *propshare.Ledger
	store      store.Store
	authorizer propshare.Authorizer
	ledgerOpts []propshare.Option
}

// New creates a new Propshare Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying Ledger instance.
// This is nil until Register is called.
func (e *Extension) Engine() *propshare.Ledger { return e.engine }

// Register implements [forge.Extension]. It loads configuration,
// initializes the ledger engine, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	// Use memory store if no store was provided programmatically.
	if e.store == nil {
		e.store = memory.New()
	}

	// Build ledger options from resolved config.
	opts := e.buildLedgerOpts()

	eng := propshare.New(e.store, opts...)
	e.engine = eng

	return vessel.Provide(fapp.Container(), func() (*propshare.Ledger, error) {
		return e.engine, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("propshare: extension not initialized")
	}

	if !e.config.DisableMigrate {
		if err := e.engine.Start(ctx); err != nil {
			return err
		}
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.engine != nil {
		if err := e.engine.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("propshare: store not initialized")
	}
	return e.store.Ping(ctx)
}

// buildLedgerOpts constructs propshare.Option values from the resolved config.
func (e *Extension) buildLedgerOpts() []propshare.Option {
	opts := make([]propshare.Option, 0, len(e.ledgerOpts)+2)

	if e.config.RentCooldown > 0 {
		opts = append(opts, propshare.WithRentCooldown(e.config.RentCooldown))
	}

	// A programmatic Authorizer wins over the config admin list.
	switch {
	case e.authorizer != nil:
		opts = append(opts, propshare.WithAuthorizer(e.authorizer))
	case len(e.config.Administrators) > 0:
		opts = append(opts, propshare.WithAuthorizer(propshare.StaticAdmins(e.config.Administrators...)))
	}

	// Append any pass-through ledger options.
	opts = append(opts, e.ledgerOpts...)

	return opts
}

// --- Config Loading (mirrors grove/shield extension pattern) ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	// Try loading from config file.
	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("propshare: configuration is required but not found in config files; " +
				"ensure 'extensions.propshare' or 'propshare' key exists in your config")
		}

		// Use programmatic config merged with defaults.
		e.config = e.mergeWithDefaults(programmaticConfig)
	} else {
		// Config loaded from YAML -- merge with programmatic options.
		e.config = e.mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("propshare: configuration loaded",
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("rent_cooldown", e.config.RentCooldown),
		forge.F("administrators", len(e.config.Administrators)),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	// Try "extensions.propshare" first (namespaced pattern).
	if cm.IsSet("extensions.propshare") {
		if err := cm.Bind("extensions.propshare", &cfg); err == nil {
			e.Logger().Debug("propshare: loaded config from file",
				forge.F("key", "extensions.propshare"),
			)
			return cfg, true
		}
		e.Logger().Warn("propshare: failed to bind extensions.propshare config",
			forge.F("error", "bind failed"),
		)
	}

	// Try legacy "propshare" key.
	if cm.IsSet("propshare") {
		if err := cm.Bind("propshare", &cfg); err == nil {
			e.Logger().Debug("propshare: loaded config from file",
				forge.F("key", "propshare"),
			)
			return cfg, true
		}
		e.Logger().Warn("propshare: failed to bind propshare config",
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func (e *Extension) mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.RentCooldown == 0 {
		cfg.RentCooldown = defaults.RentCooldown
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic bool flags fill gaps.
func (e *Extension) mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	// Programmatic bool flags override when true.
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}

	// Duration fields: YAML takes precedence, programmatic fills gaps.
	if yamlConfig.RentCooldown == 0 && programmaticConfig.RentCooldown != 0 {
		yamlConfig.RentCooldown = programmaticConfig.RentCooldown
	}

	// List fields: YAML takes precedence, programmatic fills gaps.
	if len(yamlConfig.Administrators) == 0 && len(programmaticConfig.Administrators) > 0 {
		yamlConfig.Administrators = programmaticConfig.Administrators
	}

	// Fill remaining zeros with defaults.
	return e.mergeWithDefaults(yamlConfig)
}
