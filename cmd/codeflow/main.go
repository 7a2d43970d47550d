// Command codeflow corre el authorization server y la app client del flow
// authorization code, juntos o por separado.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dropDatabas3/codeflow/internal/config"
	"github.com/dropDatabas3/codeflow/internal/http/server"
	"github.com/dropDatabas3/codeflow/internal/metrics"
	"github.com/dropDatabas3/codeflow/internal/observability/logger"
	"github.com/dropDatabas3/codeflow/internal/security/password"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

type builder func(context.Context, *config.Config) (*server.App, error)

func newRootCmd() *cobra.Command {
	var cfgPath string

	root := &cobra.Command{
		Use:           "codeflow",
		Short:         "OAuth 2.0 authorization code grant: authorization server + client",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "archivo YAML (env CODEFLOW_CONFIG); vacío usa la config demo")

	load := func(service string) (*config.Config, error) {
		// .env es opcional
		_ = godotenv.Load()
		path := cfgPath
		if path == "" {
			path = os.Getenv("CODEFLOW_CONFIG")
		}
		cfg, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		if cfg.App.Version == "" {
			cfg.App.Version = version
		}
		if err := logger.Init(logger.Config{
			Env:         cfg.App.Env,
			Level:       cfg.Log.Level,
			ServiceName: service,
			Version:     cfg.App.Version,
		}); err != nil {
			return nil, err
		}
		if cfg.Metrics.Enabled {
			if err := metrics.Register(nil); err != nil {
				return nil, err
			}
		}
		return cfg, nil
	}

	serve := func(service string, builders ...builder) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			cfg, err := load(service)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			apps := make([]*server.App, 0, len(builders))
			for _, build := range builders {
				app, err := build(ctx, cfg)
				if err != nil {
					for _, a := range apps {
						_ = a.Close()
					}
					return err
				}
				apps = append(apps, app)
			}

			g, gctx := errgroup.WithContext(ctx)
			for _, app := range apps {
				g.Go(func() error { return server.Run(gctx, app) })
			}
			return g.Wait()
		}
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "authserver",
			Short: "Corre el authorization server (/authorize, /token, /userinfo)",
			Args:  cobra.NoArgs,
			RunE:  serve("authserver", server.BuildAuthServer),
		},
		&cobra.Command{
			Use:   "client",
			Short: "Corre la app client (/login, /callback, /protected)",
			Args:  cobra.NoArgs,
			RunE:  serve("client", server.BuildClient),
		},
		&cobra.Command{
			Use:   "all",
			Short: "Corre ambos servicios en el mismo proceso",
			Args:  cobra.NoArgs,
			RunE:  serve("codeflow", server.BuildAuthServer, server.BuildClient),
		},
		newHashPasswordCmd(),
	)
	return root
}

func newHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password [password]",
		Short: "Genera un hash argon2id para authserver.users[].password_hash",
		Long:  "Sin argumento lee la contraseña de stdin (una línea).",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			plain, err := readPassword(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			phc, err := password.Hash(password.Default, plain)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), phc)
			return nil
		},
	}
}

func readPassword(in io.Reader, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errors.New("empty password")
	}
	return line, nil
}
