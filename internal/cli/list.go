package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newTestsCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "tests",
		Short: "List published tests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tests, err := flags.client().ListTests(cmd.Context())
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTITLE\tCATEGORY\tDIFFICULTY\tQUESTIONS\tMINUTES\tMARKS")
			for _, t := range tests {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%d\n",
					t.ID, t.Title, t.Category, t.Difficulty, t.QuestionCount, t.DurationMinutes, t.TotalMarks)
			}
			return tw.Flush()
		},
	}
}

func newResultsCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "results",
		Short: "List your recorded results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			results, err := flags.client().MyResults(cmd.Context())
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "COMPLETED\tTEST\tSCORE\tACCURACY\tVIOLATIONS\tREASON")
			for _, r := range results {
				fmt.Fprintf(tw, "%s\t%s\t%d/%d\t%.1f%%\t%d\t%s\n",
					r.CompletedAt.Local().Format("2006-01-02 15:04"), r.TestTitle,
					r.Score, r.TotalMarks, r.Accuracy, r.ViolationCount, r.Reason)
			}
			return tw.Flush()
		},
	}
}
