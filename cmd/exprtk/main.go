// Package main is the entry point for the exprtk server and CLI.
package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lemonberrylabs/exprtk/pkg/api"
	grpcapi "github.com/lemonberrylabs/exprtk/pkg/api/grpc"
	"github.com/lemonberrylabs/exprtk/pkg/config"
	"github.com/lemonberrylabs/exprtk/pkg/store"
	"github.com/lemonberrylabs/exprtk/web"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "exprtk",
		Short:         "Expression tokenizer and computed-column toolkit",
		RunE:          runServe,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.Version = version + " (commit=" + commit + ", built=" + date + ")"
	root.SetVersionTemplate("exprtk version {{.Version}}\n")
	addServeFlags(root)

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and gRPC servers",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	addServeFlags(serve)

	root.AddCommand(serve, newTokenizeCmd(), newCheckCmd(), newEvalCmd(), newReplCmd())
	return root
}

func addServeFlags(cmd *cobra.Command) {
	cmd.Flags().String("config", "", "Path to a YAML config file (env EXPRTK_CONFIG)")
	cmd.Flags().Int("port", 0, "HTTP server port (default 8787, env PORT)")
	cmd.Flags().Int("grpc-port", 0, "gRPC server port (default 8788, env GRPC_PORT)")
	cmd.Flags().String("host", "", "Bind address (default 0.0.0.0, env HOST)")
	cmd.Flags().String("expressions-dir", "", "Directory of expression YAML/JSON files to load (env EXPRESSIONS_DIR)")
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}

// loadConfig resolves settings with flags over environment over file over
// defaults.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = os.Getenv("EXPRTK_CONFIG")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	if cmd.Flags().Changed("port") {
		cfg.Port, _ = cmd.Flags().GetInt("port")
	}
	if cmd.Flags().Changed("grpc-port") {
		cfg.GRPCPort, _ = cmd.Flags().GetInt("grpc-port")
	}
	if v, _ := cmd.Flags().GetString("host"); v != "" {
		cfg.Host = v
	}
	if v, _ := cmd.Flags().GetString("expressions-dir"); v != "" {
		cfg.ExpressionsDir = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	s := store.New()
	server := api.New(s, cfg)

	if cfg.ExpressionsDir != "" {
		if err := server.LoadDir(cfg.ExpressionsDir); err != nil {
			log.Printf("Warning: failed to load expressions directory: %v", err)
		}
	}

	// Register the web UI (non-fatal if template parsing fails)
	func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("Warning: web UI disabled due to template error: %v", r)
			}
		}()
		web.New(s, cfg).Register(server.App())
	}()

	grpcServer := grpcapi.New(s, cfg)
	go func() {
		log.Printf("gRPC server listening on %s", cfg.GRPCAddr())
		if err := grpcServer.Serve(cfg.GRPCAddr()); err != nil {
			log.Fatalf("gRPC server error: %v", err)
		}
	}()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Println("Shutting down exprtk...")
		grpcServer.GracefulStop()
		if err := server.Shutdown(); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}
	}()

	log.Printf("exprtk listening on %s", cfg.Addr())
	if cfg.ExpressionsDir == "" {
		log.Printf("API-only mode (no --expressions-dir specified)")
	}
	return server.Listen(cfg.Addr())
}
