package cmd

import (
	"context"
	"fmt"

	"github.com/Laisky/syncd/internal/syncd"
	pglib "github.com/Laisky/syncd/library/db/postgres"
	"github.com/Laisky/syncd/library/log"

	gconfig "github.com/Laisky/go-config/v2"
	gcmd "github.com/Laisky/go-utils/v6/cmd"
	"github.com/Laisky/zap"
	"github.com/spf13/cobra"
)

// Tenant and credential provisioning is a CLI-only concern: spec §6
// scopes administrative CRUD out of the HTTP surface, but tenants still
// need some way onto the books before their first request.
var tenantCMD = &cobra.Command{
	Use:   "tenant",
	Short: "tenant",
	Long:  `manage tenants and their credentials`,
	Args:  gcmd.NoExtraArgs,
}

var tenantCreateCMD = &cobra.Command{
	Use:   "create [name]",
	Short: "create a tenant",
	Args:  cobra.ExactArgs(1),
	PreRun: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		if err := initialize(ctx, cmd); err != nil {
			log.Logger.Panic("init", zap.Error(err))
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		db, err := pglib.NewDB(ctx, gconfig.Shared.GetString("settings.db.postgres.dsn"))
		if err != nil {
			log.Logger.Panic("connect postgres", zap.Error(err))
		}

		store := syncd.NewStore(ctx, db.DB, tombstoneTTL())
		id, err := store.CreateTenant(ctx, args[0])
		if err != nil {
			log.Logger.Panic("create tenant", zap.Error(err))
		}

		fmt.Println(id)
	},
}

var tenantCredentialCMD = &cobra.Command{
	Use:   "issue-credential [tenant-id] [name]",
	Short: "issue a store-scoped credential for a tenant",
	Args:  cobra.ExactArgs(2),
	PreRun: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		if err := initialize(ctx, cmd); err != nil {
			log.Logger.Panic("init", zap.Error(err))
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		db, err := pglib.NewDB(ctx, gconfig.Shared.GetString("settings.db.postgres.dsn"))
		if err != nil {
			log.Logger.Panic("connect postgres", zap.Error(err))
		}

		store := syncd.NewStore(ctx, db.DB, tombstoneTTL())
		plaintext, err := store.CreateCredential(ctx, args[0], args[1],
			[]syncd.Permission{syncd.PermRead, syncd.PermWrite})
		if err != nil {
			log.Logger.Panic("issue credential", zap.Error(err))
		}

		fmt.Println(plaintext)
	},
}

func init() {
	tenantCMD.AddCommand(tenantCreateCMD, tenantCredentialCMD)
	rootCMD.AddCommand(tenantCMD)
}
