package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/uppalcrm/crm/api/internal/service/normalize"
)

var normalizeProfile string

var normalizeCmd = &cobra.Command{
	Use:   "normalize <file|->",
	Short: "Map a webhook payload onto a lead without persisting it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := readInput(cmd, args[0])
		if err != nil {
			return err
		}

		var payload map[string]any
		if err := json.Unmarshal(raw, &payload); err != nil || payload == nil {
			return fmt.Errorf("payload must be a JSON object")
		}

		profile := normalize.Detect(payload)
		if name := strings.TrimSpace(normalizeProfile); name != "" {
			p, ok := normalize.Lookup(name)
			if !ok {
				return fmt.Errorf("unknown profile %q (known: %s)", name, strings.Join(normalize.Names(), ", "))
			}
			profile = p
		}

		lead, err := normalize.Normalize(payload, profile, normalize.Generic)
		if err != nil {
			return err
		}
		return printJSON(cmd, map[string]any{"profile": profile.Name, "lead": lead})
	},
}

func init() {
	normalizeCmd.Flags().StringVar(&normalizeProfile, "profile", "", "profile to apply instead of auto-detection")
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}
