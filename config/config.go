// Copyright 2025 NCAR PSL.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package config holds the publisher node configuration. Attributes
// arrive as a loosely typed map, are coerced against a schema with
// defaults filled in, and are handed to the rest of the system as
// explicit values rather than ambient globals.
package config

import (
	"time"

	"github.com/juju/errors"
	"github.com/juju/schema"

	"github.com/ncaripsl/esg-publisher/registry"
)

// Attribute keys understood by the publisher.
const (
	// RegistryURL is the base URL of the publication service that
	// deletion and retraction requests are sent to.
	RegistryURL = "registry-url"

	// RegistryInterface selects the publication interface spoken at
	// RegistryURL, either InterfaceLegacy or InterfaceREST.
	RegistryInterface = "registry-interface"

	// RegistryCertFile and RegistryKeyFile locate the client
	// certificate pair presented to the publication service. The
	// legacy interface authenticates writers by certificate, so both
	// are required there; the REST interface uses them when present.
	RegistryCertFile = "registry-cert-file"
	RegistryKeyFile  = "registry-key-file"

	// RegistryDebug turns on wire level tracing of registry traffic.
	RegistryDebug = "registry-debug"

	// ServingRoot is the directory holding the serving layer's
	// catalog files. Required only when the serving phase is used.
	ServingRoot = "serving-root"

	// CatalogDB is the path of the node catalog database.
	CatalogDB = "catalog-db"

	// DatasetGranularity makes registry operations address whole
	// datasets rather than individual dataset versions.
	DatasetGranularity = "dataset-granularity"

	// ConnectTimeout bounds each registry request.
	ConnectTimeout = "connect-timeout"
)

// Values accepted by RegistryInterface.
const (
	InterfaceLegacy = "legacy"
	InterfaceREST   = "rest"
)

// DefaultConnectTimeout bounds registry requests when ConnectTimeout
// is not set.
const DefaultConnectTimeout = 30 * time.Second

var configChecker = schema.FieldMap(schema.Fields{
	RegistryURL:        schema.String(),
	RegistryInterface:  schema.String(),
	RegistryCertFile:   schema.String(),
	RegistryKeyFile:    schema.String(),
	RegistryDebug:      schema.Bool(),
	ServingRoot:        schema.String(),
	CatalogDB:          schema.String(),
	DatasetGranularity: schema.Bool(),
	ConnectTimeout:     schema.TimeDurationString(),
}, schema.Defaults{
	RegistryInterface:  InterfaceLegacy,
	RegistryCertFile:   schema.Omit,
	RegistryKeyFile:    schema.Omit,
	RegistryDebug:      false,
	ServingRoot:        schema.Omit,
	CatalogDB:          schema.Omit,
	DatasetGranularity: true,
	ConnectTimeout:     DefaultConnectTimeout,
})

// Config is a map of coerced publisher configuration attributes.
type Config map[string]interface{}

// New returns a Config from the input attributes, with defaults
// filled in and the result validated. Attributes outside the schema
// are dropped.
func New(attrs map[string]interface{}) (Config, error) {
	coerced, err := configChecker.Coerce(attrs, nil)
	if err != nil {
		return nil, errors.Trace(err)
	}
	config := Config(coerced.(map[string]interface{}))
	if err := config.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return config, nil
}

// Validate checks the cross-field rules that the schema alone cannot
// express.
func (c Config) Validate() error {
	if c.asString(RegistryURL) == "" {
		return errors.NotValidf("empty %s", RegistryURL)
	}

	iface := c.asString(RegistryInterface)
	switch iface {
	case InterfaceLegacy, InterfaceREST:
	default:
		return errors.NotValidf("registry interface %q", iface)
	}

	cert, key := c.asString(RegistryCertFile), c.asString(RegistryKeyFile)
	if cert != "" && key == "" {
		return errors.NotValidf("%s without %s", RegistryCertFile, RegistryKeyFile)
	}
	if key != "" && cert == "" {
		return errors.NotValidf("%s without %s", RegistryKeyFile, RegistryCertFile)
	}
	if iface == InterfaceLegacy && cert == "" {
		return errors.NotValidf("legacy interface without a client certificate")
	}

	if c.ConnectTimeout() < 0 {
		return errors.NotValidf("negative %s", ConnectTimeout)
	}
	return nil
}

// RegistryURL returns the base URL of the publication service.
func (c Config) RegistryURL() string {
	return c.asString(RegistryURL)
}

// RegistryInterface returns the publication interface to speak.
func (c Config) RegistryInterface() string {
	return c.asString(RegistryInterface)
}

// RegistryCertFile returns the path of the client certificate
// presented to the publication service, or "".
func (c Config) RegistryCertFile() string {
	return c.asString(RegistryCertFile)
}

// RegistryKeyFile returns the path of the key matching
// RegistryCertFile, or "".
func (c Config) RegistryKeyFile() string {
	return c.asString(RegistryKeyFile)
}

// RegistryDebug reports whether registry traffic should be traced.
func (c Config) RegistryDebug() bool {
	return c.boolOrDefault(RegistryDebug, false)
}

// ServingRoot returns the directory holding the serving layer's
// catalog files, or "" when no serving layer is configured.
func (c Config) ServingRoot() string {
	return c.asString(ServingRoot)
}

// CatalogDB returns the path of the node catalog database, or "".
func (c Config) CatalogDB() string {
	return c.asString(CatalogDB)
}

// DatasetGranularity reports whether registry operations address
// whole datasets rather than individual versions.
func (c Config) DatasetGranularity() bool {
	return c.boolOrDefault(DatasetGranularity, true)
}

// ConnectTimeout returns the bound on each registry request.
func (c Config) ConnectTimeout() time.Duration {
	return c.durationOrDefault(ConnectTimeout, DefaultConnectTimeout)
}

// RegistryConfig returns the registry client configuration described
// by these attributes.
func (c Config) RegistryConfig() registry.Config {
	return registry.Config{
		URL:      c.RegistryURL(),
		Legacy:   c.RegistryInterface() == InterfaceLegacy,
		CertFile: c.RegistryCertFile(),
		KeyFile:  c.RegistryKeyFile(),
		Timeout:  c.ConnectTimeout(),
	}
}

// LoggingConfig returns the logger configuration implied by these
// attributes, in the form accepted by loggo.ConfigureLoggers.
func (c Config) LoggingConfig() string {
	if c.RegistryDebug() {
		return "esgpublisher=INFO;esgpublisher.registry=TRACE"
	}
	return "esgpublisher=INFO"
}

func (c Config) asString(name string) string {
	value, _ := c[name].(string)
	return value
}

func (c Config) boolOrDefault(name string, defaultVal bool) bool {
	if value, ok := c[name]; ok {
		// Already coerced, so this must be a bool.
		return value.(bool)
	}
	return defaultVal
}

func (c Config) durationOrDefault(name string, defaultVal time.Duration) time.Duration {
	if value, ok := c[name]; ok {
		switch v := value.(type) {
		case string:
			if d, err := time.ParseDuration(v); err == nil {
				return d
			}
		case time.Duration:
			return v
		}
	}
	return defaultVal
}
