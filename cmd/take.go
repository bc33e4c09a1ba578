package cmd

import (
	"github.com/spf13/cobra"

	"github.com/abhisek/mocktest/internal/app"
	"github.com/abhisek/mocktest/internal/screen"
	"github.com/abhisek/mocktest/internal/screens/review"
	"github.com/abhisek/mocktest/internal/screens/take"
)

var takeCmd = &cobra.Command{
	Use:   "take <test-id>",
	Short: "Start or resume a timed attempt",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnv(nil, true, func(e *env) error {
			client, err := e.portal()
			if err != nil {
				return err
			}
			root := take.New(take.Options{
				TestID:     args[0],
				NewSession: e.sessionFactory(client),
				Review: func(testID string) screen.Screen {
					return review.New(testID, client.FetchReview)
				},
			})
			return app.Run(root)
		})
	},
}
