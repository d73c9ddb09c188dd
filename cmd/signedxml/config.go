package main

import (
	"fmt"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/spf13/pflag"

	"github.com/moov-io/signedxml"
)

// config is the optional TOML file passed with --config. Command line flags
// take precedence over its values.
type config struct {
	Key                    string   `toml:"key"`
	Certificate            string   `toml:"certificate"`
	PublicKey              string   `toml:"public_key"`
	KeyName                string   `toml:"key_name"`
	DigestMethod           string   `toml:"digest_method"`
	SignatureMethod        string   `toml:"signature_method"`
	CanonicalizationMethod string   `toml:"canonicalization_method"`
	ReferenceURI           string   `toml:"reference_uri"`
	OmitKeyInfo            bool     `toml:"omit_key_info"`
	IDAttributes           []string `toml:"id_attributes"`
	Provider               string   `toml:"provider"`
}

func loadConfig(path string) (config, error) {
	var c config
	if path == "" {
		return c, nil
	}
	md, err := toml.DecodeFile(path, &c)
	if err != nil {
		return c, fmt.Errorf("failed to read config file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return c, fmt.Errorf("unknown config key %q in %s", undecoded[0].String(), path)
	}
	return c, nil
}

// idAttributes returns the attribute names used to look up elements by ID.
func (c config) idAttributes() []string {
	if len(c.IDAttributes) > 0 {
		return c.IDAttributes
	}
	return []string{"ID", "Id", "id"}
}

func (c config) newEngine() (*signedxml.Engine, error) {
	opts := []signedxml.Option{
		signedxml.WithLogger(logger),
		signedxml.WithIDAttributes(c.idAttributes()...),
	}
	if c.Provider != "" {
		opts = append(opts, signedxml.WithProvider(c.Provider))
	}
	return signedxml.NewEngine(opts...)
}

// fromConfig sets the flag name to value unless it was given on the
// command line or value is empty.
func fromConfig(flags *pflag.FlagSet, name, value string) error {
	if value == "" || flags.Changed(name) {
		return nil
	}
	if err := flags.Set(name, value); err != nil {
		return fmt.Errorf("invalid config value for %s: %w", name, err)
	}
	return nil
}

func boolFromConfig(flags *pflag.FlagSet, name string, value bool) error {
	if !value {
		return nil
	}
	return fromConfig(flags, name, strconv.FormatBool(value))
}
