package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/complaintdesk/internal/audit"
	"github.com/gosuda/complaintdesk/internal/auth"
	"github.com/gosuda/complaintdesk/internal/complaint"
	"github.com/gosuda/complaintdesk/internal/config"
	"github.com/gosuda/complaintdesk/internal/domain"
	"github.com/gosuda/complaintdesk/internal/identity"
	"github.com/gosuda/complaintdesk/internal/provision"
	"github.com/gosuda/complaintdesk/internal/refnum"
	"github.com/gosuda/complaintdesk/internal/server"
	"github.com/gosuda/complaintdesk/internal/store/postgres"
	redisstore "github.com/gosuda/complaintdesk/internal/store/redis"
)

const usage = `usage: complaintdesk <command> [flags]

commands:
  serve              run the HTTP server (default)
  migrate            apply pending database migrations
  provision-tenant   create a tenant, or toggle an existing one with --active
  provision-user     create a user bound to a tenant with a role
  seed               load demo tenants, users and complaints
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatal().Err(err).Msg("complaintdesk failed")
	}
}

func run(args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(cfg.Log)

	cmd := "serve"
	if len(args) > 0 && args[0] != "" && args[0][0] != '-' {
		cmd, args = args[0], args[1:]
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	switch cmd {
	case "serve":
		return serve(ctx, cfg)
	case "migrate":
		return migrate(ctx, cfg)
	case "provision-tenant":
		return provisionTenant(ctx, cfg, args)
	case "provision-user":
		return provisionUser(ctx, cfg, args)
	case "seed":
		return seed(ctx, cfg, args)
	case "help", "-h", "--help":
		fmt.Fprint(os.Stdout, usage)
		return nil
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func setupLogging(cfg config.LogConfig) {
	zerolog.SetGlobalLevel(cfg.Level)
	if cfg.Format == "text" {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
}

func openStore(ctx context.Context, cfg *config.Config) (*postgres.Store, error) {
	if cfg.Database.MaxConns < 0 || cfg.Database.MaxConns > math.MaxInt32 {
		return nil, fmt.Errorf("database max_conns %d out of int32 range", cfg.Database.MaxConns)
	}
	return postgres.New(ctx, cfg.Database.DSN(), int32(cfg.Database.MaxConns)) //nolint:gosec // bounds checked above
}

// services holds everything built on top of the store and redis.
type services struct {
	store      *postgres.Store
	redis      *redisstore.Client
	auth       *auth.Service
	complaints *complaint.Service
	actors     *identity.Resolver
	provision  *provision.Provisioner
}

func newServices(ctx context.Context, cfg *config.Config) (*services, func(), error) {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	rdb, err := redisstore.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		store.Close()
		return nil, nil, err
	}

	authSvc := auth.NewService(store.Users(), cfg.JWT.Secret, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)
	svc := &services{
		store:      store,
		redis:      rdb,
		auth:       authSvc,
		complaints: complaint.NewService(store, refnum.New(), audit.NewTrail(), rdb),
		actors:     identity.NewResolver(store.Identities(), store.Tenants(), rdb, cfg.Redis.IdentityCacheTTL),
		provision:  provision.New(store.Tenants(), store.Identities(), authSvc),
	}

	cleanup := func() {
		if err := rdb.Close(); err != nil {
			log.Warn().Err(err).Msg("redis close")
		}
		store.Close()
	}
	return svc, cleanup, nil
}

func serve(ctx context.Context, cfg *config.Config) error {
	svc, cleanup, err := newServices(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	applied, err := svc.store.Migrate(ctx)
	if err != nil {
		return err
	}
	if applied > 0 {
		log.Info().Int("applied", applied).Msg("migrations applied")
	}

	srv := server.New(ctx, cfg, server.Deps{
		Auth:       svc.auth,
		Complaints: svc.complaints,
		Actors:     svc.actors,
		Events:     svc.redis,
		Health: map[string]server.Pinger{
			"postgres": svc.store,
			"redis":    svc.redis,
		},
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(ctx)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	log.Info().Msg("stopped")
	return nil
}

func migrate(ctx context.Context, cfg *config.Config) error {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	n, err := store.Migrate(ctx)
	if err != nil {
		return err
	}
	log.Info().Int("applied", n).Msg("migrations complete")
	return nil
}

func provisionTenant(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("provision-tenant", flag.ContinueOnError)
	name := fs.String("name", "", "display name (required when creating)")
	slug := fs.String("slug", "", "tenant slug, also the reference prefix")
	active := fs.String("active", "", `set to "true" or "false" to toggle an existing tenant`)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *slug == "" {
		return errors.New("provision-tenant: --slug is required")
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	p := provision.New(store.Tenants(), store.Identities(), nil)

	switch *active {
	case "":
		_, err = p.CreateTenant(ctx, *name, *slug)
	case "true", "false":
		err = p.SetTenantActive(ctx, *slug, *active == "true")
	default:
		return fmt.Errorf("provision-tenant: --active must be true or false, got %q", *active)
	}
	return err
}

func provisionUser(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("provision-user", flag.ContinueOnError)
	username := fs.String("username", "", "login name")
	password := fs.String("password", os.Getenv("COMPLAINTDESK_PROVISION_PASSWORD"), "initial password")
	tenant := fs.String("tenant", "", "tenant slug")
	roleName := fs.String("role", string(domain.RoleConsumer), "consumer, helpdesk, support, manager or admin")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *username == "" || *tenant == "" || *password == "" {
		return errors.New("provision-user: --username, --tenant and --password are required")
	}
	role, err := domain.ParseRole(*roleName)
	if err != nil {
		return fmt.Errorf("provision-user: %w", err)
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	authSvc := auth.NewService(store.Users(), cfg.JWT.Secret, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)
	_, err = provision.New(store.Tenants(), store.Identities(), authSvc).CreateUser(ctx, *username, *password, *tenant, role)
	return err
}

func seed(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	password := fs.String("password", "demo-password", "password shared by all demo users")
	if err := fs.Parse(args); err != nil {
		return err
	}

	svc, cleanup, err := newServices(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	if _, err := svc.store.Migrate(ctx); err != nil {
		return err
	}
	return svc.provision.Seed(ctx, svc.complaints, *password)
}
