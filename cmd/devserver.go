package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abhisek/mocktest/internal/devserver"
)

var devserverCmd = &cobra.Command{
	Use:   "devserver",
	Short: "Run a local test portal backed by a YAML fixture",
	Long: "Run a local test portal for development. Tests come from --fixtures " +
		"or the bundled sample; results are kept in memory until the server stops. " +
		"Use `mocktest token` to mint a matching bearer token.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnv(os.Stderr, false, func(e *env) error {
			fixture, err := loadFixture(e.cfg.Dev.Fixtures)
			if err != nil {
				return err
			}

			gin.SetMode(gin.ReleaseMode)
			srv, err := devserver.New(devserver.Options{
				Fixture: fixture,
				Secret:  []byte(e.cfg.Dev.Secret),
				Logger:  e.log.Named("devserver"),
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			e.log.Info("devserver listening",
				zap.String("addr", e.cfg.Dev.Addr),
				zap.Int("tests", len(fixture.Tests)))
			fmt.Fprintf(cmd.OutOrStdout(), "Serving %d tests on http://%s\n", len(fixture.Tests), e.cfg.Dev.Addr)
			return srv.ListenAndServe(ctx, e.cfg.Dev.Addr)
		})
	},
}

func loadFixture(path string) (*devserver.Fixture, error) {
	if path == "" {
		return devserver.SampleFixture()
	}
	f, err := devserver.LoadFixture(path)
	if err != nil {
		return nil, fmt.Errorf("load fixtures: %w", err)
	}
	return f, nil
}

func init() {
	f := devserverCmd.Flags()
	f.String("addr", "", "Listen address (default 127.0.0.1:8787)")
	f.String("fixtures", "", "YAML fixture file (default: bundled sample)")
	f.String("secret", "", "HS256 secret for bearer tokens")

	_ = v.BindPFlag("dev.addr", f.Lookup("addr"))
	_ = v.BindPFlag("dev.fixtures", f.Lookup("fixtures"))
	_ = v.BindPFlag("dev.secret", f.Lookup("secret"))
}
