package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/mocktest/internal/app"
	rv "github.com/abhisek/mocktest/internal/review"
	"github.com/abhisek/mocktest/internal/screens/review"
)

var reviewCmd = &cobra.Command{
	Use:   "review <test-id>",
	Short: "Review your latest completed attempt",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		plain, _ := cmd.Flags().GetBool("print")
		return withEnv(nil, false, func(e *env) error {
			client, err := e.portal()
			if err != nil {
				return err
			}
			if !plain {
				return app.Run(review.New(args[0], client.FetchReview))
			}
			data, err := client.FetchReview(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("fetch review: %w", err)
			}
			printReview(cmd.OutOrStdout(), rv.Build(*data))
			return nil
		})
	},
}

func init() {
	reviewCmd.Flags().Bool("print", false, "Print the review instead of opening the interactive view")
}

func printReview(w io.Writer, r *rv.Review) {
	fmt.Fprintf(w, "%s\n", r.Test.Title)
	if r.Result == nil {
		fmt.Fprintln(w, "No completed attempt yet.")
		return
	}
	fmt.Fprintf(w, "Score %d/%d  correct %d  incorrect %d  to be graded %d\n",
		r.Score, r.MaxScore, r.Correct, r.Incorrect, r.Manual)
	fmt.Fprintln(w, strings.Repeat("─", 60))

	for _, it := range r.Items {
		fmt.Fprintf(w, "%2d. [%s] %s\n", it.Index+1, it.Verdict, it.Question.Prompt)
		given := it.GivenText()
		if given == "" {
			given = "(no answer)"
		}
		fmt.Fprintf(w, "    yours:   %s\n", given)
		if ref := it.CorrectText(); ref != "" {
			fmt.Fprintf(w, "    correct: %s\n", ref)
		}
	}
}
