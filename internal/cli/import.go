package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/cettopper/exam-portal/internal/model"
)

func newImportCmd(flags *globalFlags) *cobra.Command {
	var draft bool

	cmd := &cobra.Command{
		Use:   "import <test.yaml>",
		Short: "Create a test from a YAML definition (admin token required)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			req, err := decodeTestDefinition(f)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			if draft {
				published := false
				req.IsPublished = &published
			}

			test, err := flags.client().CreateTest(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %q (%s): %d questions, %d marks, %d minutes\n",
				test.Title, test.ID, len(test.Questions), test.TotalMarks, test.DurationMinutes)
			return nil
		},
	}
	cmd.Flags().BoolVar(&draft, "draft", false, "create the test unpublished")
	return cmd
}

// decodeTestDefinition reads one test from YAML. Unknown keys are rejected
// so typos do not silently drop answers.
func decodeTestDefinition(r io.Reader) (*model.CreateTestRequest, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var req model.CreateTestRequest
	if err := dec.Decode(&req); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	if len(req.Questions) == 0 {
		return nil, fmt.Errorf("no questions defined")
	}
	for i, q := range req.Questions {
		if q.CorrectIndex == nil {
			return nil, fmt.Errorf("question %d: correct_index is required", i+1)
		}
	}
	return &req, nil
}
