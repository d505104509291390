package cmd

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/Laisky/syncd/internal/gateway/channel"
	"github.com/Laisky/syncd/internal/gateway/rest"
	"github.com/Laisky/syncd/internal/ratelimit"
	"github.com/Laisky/syncd/internal/syncd"
	pglib "github.com/Laisky/syncd/library/db/postgres"
	redislib "github.com/Laisky/syncd/library/db/redis"
	"github.com/Laisky/syncd/library/log"

	gconfig "github.com/Laisky/go-config/v2"
	gcmd "github.com/Laisky/go-utils/v6/cmd"
	"github.com/Laisky/zap"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// tombstoneTTL reads settings.tombstone_ttl_days; zero or unset falls
// through to syncd.NewStore's own DefaultTombstoneTTL.
func tombstoneTTL() time.Duration {
	days := gconfig.Shared.GetInt("settings.tombstone_ttl_days")
	if days <= 0 {
		return 0
	}
	return time.Duration(days) * 24 * time.Hour
}

var serveCMD = &cobra.Command{
	Use:   "serve",
	Short: "serve",
	Long:  `run the sync server`,
	Args:  gcmd.NoExtraArgs,
	PreRun: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		if err := initialize(ctx, cmd); err != nil {
			log.Logger.Panic("init", zap.Error(err))
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		runServe(context.Background())
	},
}

func init() {
	rootCMD.AddCommand(serveCMD)
}

func runServe(ctx context.Context) {
	db, err := pglib.NewDB(ctx, gconfig.Shared.GetString("settings.db.postgres.dsn"))
	if err != nil {
		log.Logger.Panic("connect postgres", zap.Error(err))
	}

	if err := syncd.Migrate(ctx, db.DB); err != nil {
		log.Logger.Panic("migrate schema", zap.Error(err))
	}

	rdb := redislib.NewDB(&redis.Options{
		Addr: gconfig.Shared.GetString("settings.db.redis.addr"),
		DB:   gconfig.Shared.GetInt("settings.db.redis.db"),
	})

	store := syncd.NewStore(ctx, db.DB, tombstoneTTL())
	credStore := syncd.NewCachedCredentialStore(store, rdb)
	auth := syncd.NewAuthenticator(gconfig.Shared.GetString("settings.admin_api_key"), credStore)
	limiter := ratelimit.New(rdb, gconfig.Shared.GetInt("settings.ratelimit.requests_per_minute"))

	origins := splitCSV(gconfig.Shared.GetString("settings.cors.origins"))

	channelSrv := channel.NewServer(auth, store, limiter, origins)

	restSrv := rest.NewServer(rest.Config{
		Auth:           auth,
		Store:          store,
		DB:             db.DB,
		Broadcaster:    channelSrv,
		Limiter:        limiter,
		AllowedOrigins: origins,
		ChannelHandler: channelSrv.ServeHTTP,
		Version:        "dev",
	})

	addr := gconfig.Shared.GetString("settings.listen")
	log.Logger.Info("starting syncd", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, restSrv.Engine()); err != nil {
		log.Logger.Panic("serve", zap.Error(err))
	}
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
