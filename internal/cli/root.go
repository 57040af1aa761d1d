// Package cli implements the portal command-line client.
package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/cettopper/exam-portal/internal/client"
)

type globalFlags struct {
	apiURL string
	token  string
}

// Execute runs the CLI.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	envAPI := os.Getenv("PORTAL_API_URL")
	if envAPI == "" {
		envAPI = "http://localhost:8080"
	}

	flags := &globalFlags{}
	cmd := &cobra.Command{
		Use:          "portal",
		Short:        "Take and author exams on the exam portal",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&flags.apiURL, "api", envAPI, "portal server URL")
	cmd.PersistentFlags().StringVar(&flags.token, "token", os.Getenv("PORTAL_TOKEN"), "bearer token (see create-user)")

	cmd.AddCommand(newTestsCmd(flags))
	cmd.AddCommand(newTakeCmd(flags))
	cmd.AddCommand(newResultsCmd(flags))
	cmd.AddCommand(newImportCmd(flags))
	return cmd
}

func (f *globalFlags) client() *client.Client {
	return client.New(f.apiURL, f.token)
}
