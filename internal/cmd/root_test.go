package cmd

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func executeCommand(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()
	return out.String(), errOut.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, _, err := executeCommand(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "adscope")
}

func TestVersionCommandJSON(t *testing.T) {
	out, _, err := executeCommand(t, "version", "--json")
	require.NoError(t, err)

	var info struct {
		Version   string
		GoVersion string
	}
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.NotEmpty(t, info.Version)
	assert.NotEmpty(t, info.GoVersion)
}

func TestGPReportRejectsUnknownScope(t *testing.T) {
	_, _, err := executeCommand(t, "gpreport", "--scope", "everything", "srv-01")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown scope")
}

func TestGPReportRejectsMalformedCredential(t *testing.T) {
	_, _, err := executeCommand(t, "gpreport", "--scope", "computer", "--credential", "admin", "srv-01")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "USER:SECRET")
}

func TestLockoutRequiresPrimary(t *testing.T) {
	_, _, err := executeCommand(t, "lockout", "jdoe")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "primary")
}
