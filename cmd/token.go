package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/mocktest/internal/auth"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a bearer token for the local devserver",
	RunE: func(cmd *cobra.Command, args []string) error {
		student, _ := cmd.Flags().GetString("student")
		name, _ := cmd.Flags().GetString("name")
		ttl, _ := cmd.Flags().GetDuration("ttl")
		secret, _ := cmd.Flags().GetString("secret")

		if student == "" {
			return errors.New("--student is required")
		}

		return withEnv(nil, false, func(e *env) error {
			if secret == "" {
				secret = e.cfg.Dev.Secret
			}
			tok, err := auth.Mint([]byte(secret), student, name, ttl)
			if err != nil {
				return fmt.Errorf("mint token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			fmt.Fprintf(cmd.ErrOrStderr(), "export MOCKTEST_TOKEN=%s\n", tok)
			return nil
		})
	},
}

func init() {
	f := tokenCmd.Flags()
	f.String("student", "", "Student ID to embed in the token")
	f.String("name", "", "Display name")
	f.Duration("ttl", 24*time.Hour, "Token lifetime")
	f.String("secret", "", "HS256 secret (default: dev.secret)")
}
