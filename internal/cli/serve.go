package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"ticketCountManagement/internal/auth"
	"ticketCountManagement/internal/catalog"
	"ticketCountManagement/internal/config"
	"ticketCountManagement/internal/entry"
	grpcserver "ticketCountManagement/internal/grpc"
	"ticketCountManagement/internal/web"
	"ticketCountManagement/models"
	"ticketCountManagement/repository"
)

const shutdownTimeout = 5 * time.Second

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Port        int
	GRPCAddress string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web server",
		Long:  "Open the database, seed units and the admin account, then serve HTTP (and gRPC when an address is set) until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts.RootOptions)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = opts.Port
			}
			if cmd.Flags().Changed("grpc-address") {
				cfg.GRPC.Address = opts.GRPCAddress
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			lis, err := net.Listen("tcp", cfg.Server.Addr())
			if err != nil {
				return err
			}
			return runServe(ctx, cfg, lis)
		},
	}

	cmd.Flags().IntVarP(&opts.Port, "port", "p", 3000, "HTTP port (overrides PORT)")
	cmd.Flags().StringVar(&opts.GRPCAddress, "grpc-address", "", "gRPC listen address (overrides GRPC_ADDRESS)")

	return cmd
}

// runServe serves HTTP on lis until ctx is done.
func runServe(ctx context.Context, cfg *config.Config, lis net.Listener) error {
	slog.Info("configuration loaded", "config", cfg.String())

	cat, err := catalog.LoadOrDefault(cfg.Catalog.File)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	h, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := h.Close(); err != nil {
			slog.Error("close db", "error", err)
		}
	}()
	store := repository.NewStore(h)

	if err := bootstrap(ctx, store, cat, cfg.Auth.AdminPassword); err != nil {
		return err
	}

	sessions := auth.NewManager(store.Users, store.Sessions, cfg.Auth.SessionTTL, cfg.Auth.SecureCookies)
	srv, err := web.NewServer(web.Deps{
		Store:          store,
		Catalog:        cat,
		Sessions:       sessions,
		Entries:        entry.NewService(store.Counts, store.Locks, cat),
		SessionSecret:  cfg.Auth.SessionSecret,
		TokenTTL:       cfg.Auth.SessionTTL,
		SecureCookies:  cfg.Auth.SecureCookies,
		TrustedOrigins: cfg.Auth.TrustedOrigins,
	})
	if err != nil {
		return err
	}

	httpSrv := &http.Server{
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	var stopGRPC func(context.Context) error
	if cfg.GRPC.Address != "" {
		stopGRPC, err = grpcserver.StartGRPC(cfg.GRPC.Address, store, cat, cfg.Auth.SessionSecret)
		if err != nil {
			return fmt.Errorf("start grpc: %w", err)
		}
	}

	// later sweeps happen on login
	if n, err := sessions.Sweep(ctx); err != nil {
		slog.Warn("sweep sessions", "error", err)
	} else if n > 0 {
		slog.Info("expired sessions removed", "count", n)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- httpSrv.Serve(lis) }()
	slog.Info("http listening", "addr", lis.Addr().String(), "driver", store.Dialect().String())

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown", "error", err)
	}
	if stopGRPC != nil {
		if err := stopGRPC(shutdownCtx); err != nil {
			slog.Error("grpc shutdown", "error", err)
		}
	}
	slog.Info("server stopped")
	return nil
}

// bootstrap seeds the unit catalog and creates the admin account when missing.
func bootstrap(ctx context.Context, store *repository.Store, cat *catalog.Catalog, adminPassword string) error {
	if err := store.Units.Seed(ctx, cat.AllUnits()); err != nil {
		return fmt.Errorf("seed units: %w", err)
	}
	hash, err := auth.HashPassword(adminPassword)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	created, err := store.Users.EnsureAdmin(ctx, models.NewAdmin("admin", hash))
	if err != nil {
		return fmt.Errorf("ensure admin: %w", err)
	}
	if created {
		slog.Warn("admin account created; change its password", "username", "admin")
	}
	return nil
}
