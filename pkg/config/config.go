// Package config loads server settings and expression definition files.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/lemonberrylabs/exprtk/pkg/expr"
)

// Default values used when neither the file, the environment nor a flag
// sets a field.
const (
	DefaultHost     = "0.0.0.0"
	DefaultPort     = 8787
	DefaultGRPCPort = 8788
)

// Tokenizer controls the token stream returned by the tokenize endpoints.
type Tokenizer struct {
	EmitWhitespace bool `yaml:"emit_whitespace"`
	EmitComments   bool `yaml:"emit_comments"`
}

// Config holds server settings.
type Config struct {
	Host                string    `yaml:"host"`
	Port                int       `yaml:"port"`
	GRPCPort            int       `yaml:"grpc_port"`
	ExpressionsDir      string    `yaml:"expressions_dir"`
	Tokenizer           Tokenizer `yaml:"tokenizer"`
	MaxExpressionLength int       `yaml:"max_expression_length"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Host:     DefaultHost,
		Port:     DefaultPort,
		GRPCPort: DefaultGRPCPort,
		Tokenizer: Tokenizer{
			EmitWhitespace: true,
			EmitComments:   true,
		},
		MaxExpressionLength: expr.MaxExpressionLength,
	}
}

// Load reads a YAML config file over the defaults. An empty path returns
// the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from HOST, PORT, GRPC_PORT and EXPRESSIONS_DIR.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("HOST"); v != "" {
		c.Host = v
	}
	if v := os.Getenv("EXPRESSIONS_DIR"); v != "" {
		c.ExpressionsDir = v
	}
	for key, field := range map[string]*int{"PORT": &c.Port, "GRPC_PORT": &c.GRPCPort} {
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: invalid port %q", key, v)
		}
		*field = n
	}
	return nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.GRPCPort < 1 || c.GRPCPort > 65535 {
		return fmt.Errorf("grpc_port %d out of range", c.GRPCPort)
	}
	if c.Port == c.GRPCPort {
		return fmt.Errorf("port and grpc_port must differ (both %d)", c.Port)
	}
	if c.MaxExpressionLength < 0 {
		return fmt.Errorf("max_expression_length must not be negative")
	}
	if c.ExpressionsDir != "" {
		info, err := os.Stat(c.ExpressionsDir)
		if err != nil {
			return fmt.Errorf("expressions_dir: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("expressions_dir %s is not a directory", c.ExpressionsDir)
		}
	}
	return nil
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// GRPCAddr returns the gRPC listen address.
func (c *Config) GRPCAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.GRPCPort)
}
