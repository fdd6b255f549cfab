package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		normalizeProfile = ""
		entitlementFlags.status = "active"
		entitlementFlags.created = ""
		entitlementFlags.now = ""
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestNormalizeCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "payload.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"email_address":"grace@example.com","merge_fields":{"FNAME":"Grace","LNAME":"Hopper"}}`), 0o600))

	out, err := execute(t, "", "normalize", path)
	require.NoError(t, err)

	var got struct {
		Profile string `json:"profile"`
		Lead    struct {
			FirstName string `json:"first_name"`
			Email     string `json:"email"`
		} `json:"lead"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "mailchimp", got.Profile)
	assert.Equal(t, "Grace", got.Lead.FirstName)
	assert.Equal(t, "grace@example.com", got.Lead.Email)
}

func TestNormalizeCommandStdin(t *testing.T) {
	out, err := execute(t, `{"name":"Ada Lovelace","email":"ada@example.com"}`, "normalize", "-")
	require.NoError(t, err)
	assert.Contains(t, out, `"last_name": "Lovelace"`)
}

func TestNormalizeCommandErrors(t *testing.T) {
	_, err := execute(t, `{"email":"a@example.com"}`, "normalize", "--profile", "fax", "-")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown profile")

	_, err = execute(t, `{"first_name":"Ada"}`, "normalize", "-")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing_required_field")

	_, err = execute(t, `[1,2]`, "normalize", "-")
	require.Error(t, err)
}

func TestEntitlementStatusCommand(t *testing.T) {
	out, err := execute(t, "", "entitlement", "status",
		"--created", "2026-03-01T00:00:00Z",
		"--expires", "2026-03-11T00:00:00Z",
		"--now", "2026-03-09T00:00:00Z",
	)
	require.NoError(t, err)

	var got struct {
		Evaluation struct {
			Effective string `json:"effective_status"`
			Days      int    `json:"days_until_expiry"`
			Band      string `json:"band"`
		} `json:"evaluation"`
		Progress  int  `json:"progress_percent"`
		CanExtend bool `json:"can_extend_trial"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "active", got.Evaluation.Effective)
	assert.Equal(t, 2, got.Evaluation.Days)
	assert.Equal(t, "critical", got.Evaluation.Band)
	assert.Equal(t, 80, got.Progress)
	assert.True(t, got.CanExtend)
}

func TestEntitlementStatusCommandExpired(t *testing.T) {
	out, err := execute(t, "", "entitlement", "status",
		"--expires", "2026-03-01T00:00:00Z",
		"--now", "2026-03-04T12:00:00Z",
	)
	require.NoError(t, err)
	assert.Contains(t, out, `"effective_status": "expired"`)
	assert.Contains(t, out, `"remaining_days": 0`)
}

func TestEntitlementStatusCommandRejectsBadInput(t *testing.T) {
	_, err := execute(t, "", "entitlement", "status", "--expires", "tomorrow")
	require.Error(t, err)

	_, err = execute(t, "", "entitlement", "status", "--expires", "2026-03-01T00:00:00Z", "--status", "paused")
	require.Error(t, err)
}
