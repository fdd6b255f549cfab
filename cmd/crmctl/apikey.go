package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/uppalcrm/crm/api/internal/database"
	"github.com/uppalcrm/crm/api/internal/dto"
	"github.com/uppalcrm/crm/api/internal/entity"
	"github.com/uppalcrm/crm/api/internal/repository"
	"github.com/uppalcrm/crm/api/internal/service"
)

var apikeyFlags struct {
	org         string
	name        string
	permissions []string
	limit       int
	expiresIn   int
}

var apikeyCmd = &cobra.Command{
	Use:   "apikey",
	Short: "Manage organization API keys",
}

var apikeyCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Issue an API key for an organization and print it once",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		svc, org, closeFn, err := openAPIKeyService(ctx, apikeyFlags.org)
		if err != nil {
			return err
		}
		defer closeFn()

		created, err := svc.Create(ctx, org, dto.CreateAPIKeyRequest{
			Name:             apikeyFlags.name,
			Permissions:      apikeyFlags.permissions,
			RateLimitPerHour: apikeyFlags.limit,
			ExpiresInDays:    apikeyFlags.expiresIn,
		})
		if err != nil {
			return err
		}
		return printJSON(cmd, created)
	},
}

var apikeyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List an organization's API keys",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		svc, org, closeFn, err := openAPIKeyService(ctx, apikeyFlags.org)
		if err != nil {
			return err
		}
		defer closeFn()

		keys, err := svc.List(ctx, org.ID)
		if err != nil {
			return err
		}
		return printJSON(cmd, keys)
	},
}

func init() {
	apikeyCmd.PersistentFlags().StringVar(&apikeyFlags.org, "org", "", "organization slug")
	_ = apikeyCmd.MarkPersistentFlagRequired("org")

	apikeyCreateCmd.Flags().StringVar(&apikeyFlags.name, "name", "", "display name of the key")
	apikeyCreateCmd.Flags().StringSliceVar(&apikeyFlags.permissions, "permission", nil, "permission to grant (repeatable)")
	apikeyCreateCmd.Flags().IntVar(&apikeyFlags.limit, "limit", 0, "hourly request limit (0 uses the default)")
	apikeyCreateCmd.Flags().IntVar(&apikeyFlags.expiresIn, "expires-in-days", 0, "days until the key expires (0 never expires)")
	_ = apikeyCreateCmd.MarkFlagRequired("name")

	apikeyCmd.AddCommand(apikeyCreateCmd, apikeyListCmd)
}

func openAPIKeyService(ctx context.Context, slug string) (*service.APIKeyService, *entity.Organization, func(), error) {
	pool, err := database.Connect(ctx, os.Getenv("DATABASE_URL"), database.WithMaxConns(2), database.WithApplicationName("crmctl"))
	if err != nil {
		return nil, nil, nil, err
	}
	orgs := repository.NewPGXOrganizationsRepository(pool)
	org, err := orgs.FindBySlug(ctx, slug)
	if err != nil {
		pool.Close()
		return nil, nil, nil, fmt.Errorf("organization %q: %w", slug, err)
	}
	svc := service.NewAPIKeyService(repository.NewPGXAPIKeysRepository(pool), orgs, service.DefaultAPIKeyCost)
	return svc, org, pool.Close, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
