package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"restaurantpos/internal/caching"
	"restaurantpos/internal/config"
	"restaurantpos/internal/models"
	"restaurantpos/internal/repositories"
	"restaurantpos/internal/services"
	"restaurantpos/pkg/database"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
)

const version = "1.0.0"

// seedPassword is the development password of the seeded accounts
const seedPassword = "123456"

var seedAccounts = []struct {
	email string
	role  models.Role
}{
	{"admin@gmail.com", models.RoleAdmin},
	{"manager@gmail.com", models.RoleManager},
	{"cashier@gmail.com", models.RoleCashier},
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:          "restaurantpos",
		Short:        "Restaurant point of sale API",
		Version:      version,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "config.toml", "path to the TOML config file")

	loadConfig := func() (*config.Config, error) {
		return config.Load(configPath)
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP API",
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
				defer stop()
				return runServer(ctx, cfg)
			},
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Apply pending database migrations",
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				return runMigrate(cmd.Context(), cfg)
			},
		},
		newSeedUsersCmd(loadConfig),
	)
	return root
}

func runMigrate(ctx context.Context, cfg *config.Config) error {
	if cfg.Database.URL == "" {
		return errors.New("DATABASE_URL environment variable is required")
	}
	pool, err := database.NewPool(ctx, cfg.Database.URL, database.PoolOptions{MaxConns: cfg.Database.MaxConns})
	if err != nil {
		return err
	}
	defer pool.Close()

	count, err := database.Migrate(ctx, pool)
	if err != nil {
		return err
	}
	log.Printf("INFO: %d migration(s) applied", count)
	return nil
}

func newSeedUsersCmd(loadConfig func() (*config.Config, error)) *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "seed-users",
		Short: "Create or re-role the admin, manager and cashier demo accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Database.URL == "" {
				return errors.New("DATABASE_URL environment variable is required")
			}

			ctx := cmd.Context()
			pool, err := database.NewPool(ctx, cfg.Database.URL, database.PoolOptions{MaxConns: cfg.Database.MaxConns})
			if err != nil {
				return err
			}
			defer pool.Close()

			profileRepo := repositories.NewProfileRepo(pool)
			var cacheSvc caching.CacheService // password hashing needs no cache
			authSvc := services.NewAuthService(profileRepo, cacheSvc, nil, cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL)
			userSvc := services.NewUserService(profileRepo, services.NewRBACService(profileRepo), authSvc)

			return seedUsers(ctx, userSvc, password)
		},
	}
	cmd.Flags().StringVar(&password, "password", seedPassword, "password for newly created accounts")
	return cmd
}

func seedUsers(ctx context.Context, userSvc services.UserService, password string) error {
	var failed error
	for _, account := range seedAccounts {
		profile, created, err := userSvc.EnsureUser(ctx, account.email, password, account.role)
		if err != nil {
			log.Printf("ERROR: seeding %s failed: %v", account.email, err)
			failed = errors.CombineErrors(failed, err)
			continue
		}
		if created {
			log.Printf("INFO: created %s as %s", profile.Email, profile.Role)
		} else {
			log.Printf("INFO: %s already exists, role is %s", profile.Email, profile.Role)
		}
	}
	return failed
}
