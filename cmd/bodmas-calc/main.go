// Package main is the entry point for the BODMAS calculator server and CLI.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/lemonberrylabs/bodmas-calculator/pkg/api"
	grpcapi "github.com/lemonberrylabs/bodmas-calculator/pkg/api/grpc"
	"github.com/lemonberrylabs/bodmas-calculator/pkg/calculator"
	"github.com/lemonberrylabs/bodmas-calculator/pkg/config"
	"github.com/lemonberrylabs/bodmas-calculator/pkg/store"
	"github.com/lemonberrylabs/bodmas-calculator/web"
	"github.com/spf13/cobra"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "bodmas-calc",
	Short: "BODMAS expression calculator",
	Long: "Evaluates arithmetic expressions with BODMAS precedence and tracks the\n" +
		"operators each user applies. Without a subcommand it serves the REST API,\n" +
		"the gRPC service and the web UI.",
	RunE: run,
}

func init() {
	rootCmd.Version = version + " (commit=" + commit + ", built=" + date + ")"
	rootCmd.SetVersionTemplate("bodmas-calc version {{.Version}}\n")

	rootCmd.PersistentFlags().String("config", "", "YAML config file (env CONFIG)")
	rootCmd.PersistentFlags().String("env-file", ".env", "dotenv file loaded before reading the environment")
	rootCmd.PersistentFlags().String("database-url", "", "PostgreSQL connection string; in-memory store when empty (env DATABASE_URL)")

	rootCmd.Flags().Int("port", 0, "HTTP server port (default 8787, env PORT)")
	rootCmd.Flags().Int("grpc-port", -1, "gRPC server port, 0 disables (default 8788, env GRPC_PORT)")
	rootCmd.Flags().String("host", "", "Bind address (default 0.0.0.0, env HOST)")
	rootCmd.Flags().Bool("log-requests", false, "Log every HTTP request (env LOG_REQUESTS)")
	rootCmd.Flags().Bool("no-ui", false, "Disable the web UI (env UI=false)")

	rootCmd.AddCommand(replCmd, evalCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config file, dotenv file and environment, then applies
// any flags the user set explicitly.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = os.Getenv("CONFIG")
	}
	envFile, _ := cmd.Flags().GetString("env-file")

	cfg, err := config.Load(path, envFile)
	if err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	if flags.Changed("database-url") {
		cfg.DatabaseURL, _ = flags.GetString("database-url")
	}
	if flags.Lookup("port") != nil {
		if v, _ := flags.GetInt("port"); v != 0 {
			cfg.Port = v
		}
		if v, _ := flags.GetInt("grpc-port"); v >= 0 {
			cfg.GRPCPort = v
		}
		if v, _ := flags.GetString("host"); v != "" {
			cfg.Host = v
		}
		if v, _ := flags.GetBool("log-requests"); v {
			cfg.LogRequests = true
		}
		if v, _ := flags.GetBool("no-ui"); v {
			cfg.UI = false
		}
	}
	return cfg, cfg.Validate()
}

// openRepository returns the PostgreSQL store when a database URL is set and
// the in-memory store otherwise. The returned func releases it.
func openRepository(ctx context.Context, cfg config.Config) (store.Repository, func(), error) {
	if cfg.DatabaseURL == "" {
		log.Printf("Using in-memory store")
		return store.New(), func() {}, nil
	}
	pg, err := store.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to database: %w", err)
	}
	log.Printf("Using PostgreSQL store")
	return pg, pg.Close, nil
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	repo, closeRepo, err := openRepository(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer closeRepo()

	calc := calculator.New(repo)
	server := api.New(calc, api.Options{LogRequests: cfg.LogRequests})

	// Register the web UI (non-fatal if template parsing fails)
	if cfg.UI {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("Warning: web UI disabled due to template error: %v", r)
				}
			}()
			web.New(calc).Register(server.App())
		}()
	}

	var grpcServer *grpcapi.Server
	if grpcAddr := cfg.GRPCAddr(); grpcAddr != "" {
		grpcServer = grpcapi.New(calc)
		go func() {
			log.Printf("gRPC server listening on %s", grpcAddr)
			if err := grpcServer.Serve(grpcAddr); err != nil {
				log.Fatalf("gRPC server error: %v", err)
			}
		}()
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Println("Shutting down calculator...")
		if grpcServer != nil {
			grpcServer.GracefulStop()
		}
		if err := server.Shutdown(); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}
	}()

	log.Printf("BODMAS calculator listening on %s", cfg.Addr())
	return server.Listen(cfg.Addr())
}
