package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, "0.0.0.0:8787", cfg.Addr())
	assert.Equal(t, "0.0.0.0:8788", cfg.GRPCAddr())
	assert.True(t, cfg.Tokenizer.EmitWhitespace)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFile(t *testing.T) {
	path := writeFile(t, "exprtk.yaml", `
host: 127.0.0.1
port: 9000
tokenizer:
  emit_comments: false
max_expression_length: 100
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", cfg.Host)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, DefaultGRPCPort, cfg.GRPCPort, "unset fields keep defaults")
	assert.True(t, cfg.Tokenizer.EmitWhitespace)
	assert.False(t, cfg.Tokenizer.EmitComments)
	assert.Equal(t, 100, cfg.MaxExpressionLength)
}

func TestLoadEmptyFile(t *testing.T) {
	cfg, err := Load(writeFile(t, "empty.yaml", ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = Load(writeFile(t, "bad.yaml", "port: [1"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "unknown.yaml", "prot: 1"))
	assert.ErrorContains(t, err, "prot")
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("HOST", "localhost")
	t.Setenv("PORT", "8000")
	t.Setenv("GRPC_PORT", "8001")
	t.Setenv("EXPRESSIONS_DIR", "/tmp/exprs")

	cfg := Default()
	require.NoError(t, cfg.ApplyEnv())
	assert.Equal(t, "localhost:8000", cfg.Addr())
	assert.Equal(t, "localhost:8001", cfg.GRPCAddr())
	assert.Equal(t, "/tmp/exprs", cfg.ExpressionsDir)

	t.Setenv("PORT", "eighty")
	assert.ErrorContains(t, Default().ApplyEnv(), "PORT")
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, "f.yaml", "")

	tests := []struct {
		name   string
		mutate func(c *Config)
		errMsg string
	}{
		{"port too large", func(c *Config) { c.Port = 70000 }, "port 70000"},
		{"grpc port zero", func(c *Config) { c.GRPCPort = 0 }, "grpc_port"},
		{"same ports", func(c *Config) { c.GRPCPort = c.Port }, "must differ"},
		{"negative length", func(c *Config) { c.MaxExpressionLength = -1 }, "max_expression_length"},
		{"missing dir", func(c *Config) { c.ExpressionsDir = filepath.Join(dir, "nope") }, "expressions_dir"},
		{"file not dir", func(c *Config) { c.ExpressionsDir = file }, "not a directory"},
		{"valid dir", func(c *Config) { c.ExpressionsDir = dir }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.errMsg)
		})
	}
}

func TestLoadDefinitions(t *testing.T) {
	tests := []struct {
		name  string
		input string
		names []string
	}{
		{"single", "name: margin\nexpression: '\"Profit\" / \"Sales\"'\n", []string{"margin"}},
		{"list", "- name: a\n  expression: '1'\n- name: b\n  expression: '2'\n", []string{"a", "b"}},
		{"multi document", "name: a\nexpression: '1'\n---\n- name: b\n  expression: '2'\n", []string{"a", "b"}},
		{"json", `[{"name": "a", "expression": "\"x\" + 1"}]`, []string{"a"}},
		{"empty", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defs, err := LoadDefinitions([]byte(tt.input))
			require.NoError(t, err)
			var names []string
			for _, d := range defs {
				names = append(names, d.Name)
			}
			assert.Equal(t, tt.names, names)
		})
	}
}

func TestLoadDefinitionsBlockScalar(t *testing.T) {
	defs, err := LoadDefinitions([]byte(`name: tiered
description: price tier
expression: |
  // bucket by sales
  var s := "Sales";
  if (s > 100) 'high' else 'low'
`))
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, "price tier", defs[0].Description)
	assert.Contains(t, defs[0].Expression, "// bucket by sales\n")
}

func TestLoadDefinitionsErrors(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		errMsg string
	}{
		{"scalar", "just text", "expected a definition"},
		{"missing name", "expression: '1'", "missing name"},
		{"missing expression", "name: a", "missing expression"},
		{"duplicate", "- {name: a, expression: '1'}\n- {name: a, expression: '2'}", "duplicate"},
		{"bad yaml", "name: [", "document 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadDefinitions([]byte(tt.input))
			assert.ErrorContains(t, err, tt.errMsg)
		})
	}
}
