package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abhisek/mocktest/internal/testsession"
)

var resetCmd = &cobra.Command{
	Use:   "reset <test-id>",
	Short: "Discard the in-progress attempt saved on this device",
	Long: "Discard the locally saved answers and timer for a test. " +
		"Results already submitted to the portal are not affected.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnv(nil, true, func(e *env) error {
			student, err := studentFor(cmd, e)
			if err != nil {
				return err
			}
			if err := testsession.ClearAttempt(cmd.Context(), e.store.KV(), student, args[0]); err != nil {
				return fmt.Errorf("clear attempt: %w", err)
			}
			e.log.Info("local attempt cleared", zap.String("student", student), zap.String("test", args[0]))
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared saved attempt for %s.\n", args[0])
			return nil
		})
	},
}

func init() {
	resetCmd.Flags().String("student", "", "Student ID (default: taken from the token)")
}
