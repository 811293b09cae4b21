package config

import (
	"fmt"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// fileDefinition is the HCL layout:
//
//	server_url  = "https://game.example.com"
//	events_path = "/events"
//	token_file  = "/home/me/.config/gamestream/credentials.yaml"
//	log_level   = "debug"
//	connect_timeout = "10s"
//
//	backoff {
//	  base = "1s"
//	  max  = "30s"
//	}
type fileDefinition struct {
	ServerURL  *string            `hcl:"server_url,optional"`
	EventsPath *string            `hcl:"events_path,optional"`
	TokenFile  *string            `hcl:"token_file,optional"`
	LogLevel   *string            `hcl:"log_level,optional"`
	Backoff    *backoffDefinition `hcl:"backoff,block"`

	ConnectTimeout *string `hcl:"connect_timeout,optional"`
}

type backoffDefinition struct {
	Base     *string   `hcl:"base,optional"`
	Max      *string   `hcl:"max,optional"`
	DefRange hcl.Range `hcl:",def_range"`
}

// LoadFile overlays the settings present in the HCL file at path.
func (c *Config) LoadFile(path string) error {
	file, diags := hclparse.NewParser().ParseHCLFile(path)
	if diags.HasErrors() {
		return fmt.Errorf("failed to parse config file: %w", diags)
	}
	return c.decode(file.Body)
}

// LoadBytes is LoadFile for in-memory content; filename is used in diagnostics.
func (c *Config) LoadBytes(src []byte, filename string) error {
	file, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return fmt.Errorf("failed to parse config file: %w", diags)
	}
	return c.decode(file.Body)
}

func (c *Config) decode(body hcl.Body) error {
	def := fileDefinition{}
	if diags := gohcl.DecodeBody(body, nil, &def); diags.HasErrors() {
		return fmt.Errorf("failed to decode config file: %w", diags)
	}

	if def.ServerURL != nil {
		c.ServerURL = *def.ServerURL
	}
	if def.EventsPath != nil {
		c.EventsPath = *def.EventsPath
	}
	if def.TokenFile != nil {
		c.TokenFile = *def.TokenFile
	}
	if def.LogLevel != nil {
		c.LogLevel = *def.LogLevel
	}

	if err := parseDuration(def.ConnectTimeout, "connect_timeout", body.MissingItemRange(), &c.ConnectTimeout); err != nil {
		return err
	}

	if def.Backoff != nil {
		if err := parseDuration(def.Backoff.Base, "backoff.base", def.Backoff.DefRange, &c.BaseDelay); err != nil {
			return err
		}
		if err := parseDuration(def.Backoff.Max, "backoff.max", def.Backoff.DefRange, &c.MaxDelay); err != nil {
			return err
		}
	}

	return nil
}

func parseDuration(value *string, field string, rng hcl.Range, target *time.Duration) error {
	if value == nil {
		return nil
	}
	d, err := time.ParseDuration(*value)
	if err != nil {
		return ValidationError{Field: field, Message: fmt.Sprintf("invalid duration %q at %s", *value, rng)}
	}
	*target = d
	return nil
}
