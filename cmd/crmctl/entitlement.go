package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/uppalcrm/crm/api/internal/service/entitlement"
)

var entitlementFlags struct {
	status  string
	created string
	expires string
	now     string
}

var entitlementCmd = &cobra.Command{
	Use:   "entitlement",
	Short: "Inspect license and trial lifecycle rules",
}

var entitlementStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Evaluate the effective status and expiry band of an entitlement",
	RunE: func(cmd *cobra.Command, args []string) error {
		expires, err := parseTimestamp("expires", entitlementFlags.expires)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		if entitlementFlags.now != "" {
			if now, err = parseTimestamp("now", entitlementFlags.now); err != nil {
				return err
			}
		}
		created := now
		if entitlementFlags.created != "" {
			if created, err = parseTimestamp("created", entitlementFlags.created); err != nil {
				return err
			}
		}

		status := entitlement.Status(entitlementFlags.status)
		if !status.Valid() {
			return fmt.Errorf("unknown status %q", entitlementFlags.status)
		}

		record := entitlement.Record{Status: status, CreatedAt: created, ExpiresAt: expires}
		return printJSON(cmd, map[string]any{
			"evaluation":       entitlement.Evaluate(record, now),
			"remaining_days":   entitlement.RemainingDays(record, now),
			"progress_percent": entitlement.ProgressPercent(record, now),
			"can_extend_trial": entitlement.CanExtendTrial(record, now),
		})
	},
}

func init() {
	entitlementStatusCmd.Flags().StringVar(&entitlementFlags.status, "status", string(entitlement.StatusActive), "stored status")
	entitlementStatusCmd.Flags().StringVar(&entitlementFlags.created, "created", "", "creation time (RFC3339, defaults to now)")
	entitlementStatusCmd.Flags().StringVar(&entitlementFlags.expires, "expires", "", "expiry time (RFC3339)")
	entitlementStatusCmd.Flags().StringVar(&entitlementFlags.now, "now", "", "evaluation time (RFC3339, defaults to the current time)")
	_ = entitlementStatusCmd.MarkFlagRequired("expires")

	entitlementCmd.AddCommand(entitlementStatusCmd)
}

func parseTimestamp(flag, value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --%s: use RFC3339", flag)
	}
	return t.UTC(), nil
}
