package config

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/httpsys/pkg/config"
)

func newConfigCommand(t *testing.T, path string) (*cobra.Command, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.Flags().String("config", path, "")
	cmd.SetOut(&buf)
	return cmd, &buf
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestGenerateSchema(t *testing.T) {
	raw, err := generateSchema()
	require.NoError(t, err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal(raw, &schema))
	assert.Equal(t, "httpsys Configuration", schema["title"])

	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "listener")
	assert.Contains(t, props, "delegation")
	assert.Contains(t, props, "shutdown_timeout")
}

func TestConfigWarnings(t *testing.T) {
	cfg := config.GetDefaultConfig()
	assert.Empty(t, configWarnings(cfg))

	cfg.Listener.Prefixes = nil
	cfg.Listener.MaxConnections = -1
	cfg.Listener.RejectionVerbosity = "full"
	cfg.API.Address = "0.0.0.0"
	assert.Len(t, configWarnings(cfg), 4)
}

func TestValidateCommand(t *testing.T) {
	path := writeConfig(t, "listener:\n  queue_name: frontend\n  prefixes:\n    - http://+:8080/\n")

	cmd, buf := newConfigCommand(t, path)
	require.NoError(t, runConfigValidate(cmd, nil))
	assert.Contains(t, buf.String(), "Validation: OK")
	assert.Contains(t, buf.String(), "frontend (create)")
}

func TestValidateCommand_Invalid(t *testing.T) {
	path := writeConfig(t, "listener:\n  queue_mode: attach\n")

	cmd, _ := newConfigCommand(t, path)
	require.Error(t, runConfigValidate(cmd, nil))
}

func TestShowCommand(t *testing.T) {
	path := writeConfig(t, "listener:\n  queue_name: shown\n")

	showOutput = "json"
	t.Cleanup(func() { showOutput = "yaml" })

	cmd, buf := newConfigCommand(t, path)
	require.NoError(t, runConfigShow(cmd, nil))

	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Contains(t, buf.String(), `"shown"`)
}
