package commands

import (
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/terzeron/feedmaker-console/internal/cli/console"
	"github.com/terzeron/feedmaker-console/internal/feeds"
)

// NewProblemsCmd creates the problems command
func NewProblemsCmd(get Provider) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "problems [type]",
		Short: "Show a problem report",
		Long: fmt.Sprintf(`Show one of the server's problem reports.

If no type is provided, an interactive prompt will be shown.

Types: %s`, strings.Join(problemTypeNames(), ", ")),
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var typeName string
			if len(args) > 0 {
				typeName = args[0]
			}
			return runProblems(cmd, get(), typeName)
		},
	}

	return withRoute(cmd, "/problems")
}

func problemTypeNames() []string {
	types := feeds.ProblemTypes()
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	return names
}

func runProblems(cmd *cobra.Command, c *console.Console, typeName string) error {
	var problemType feeds.ProblemType
	var err error

	if typeName != "" {
		problemType, err = feeds.ParseProblemType(typeName)
		if err != nil {
			return err
		}
	} else {
		if !interactive(c.In) {
			return fmt.Errorf("problem type is required in non-interactive mode (one of: %s)", strings.Join(problemTypeNames(), ", "))
		}
		problemType, err = promptProblemType()
		if err != nil {
			return err
		}
	}

	report, err := c.Feeds.Problems(cmd.Context(), problemType)
	if err != nil {
		return fmt.Errorf("failed to get %s: %w", problemType, err)
	}
	return printJSON(c.Out, report)
}

// promptProblemType shows an interactive prompt for the report type
func promptProblemType() (feeds.ProblemType, error) {
	types := feeds.ProblemTypes()

	prompt := promptui.Select{
		Label: "Select a problem report",
		Items: problemTypeNames(),
		Templates: &promptui.SelectTemplates{
			Label:    "{{ . }}",
			Active:   "> {{ . | cyan }}",
			Inactive: "  {{ . }}",
			Selected: "{{ . | green }}",
		},
		Size: len(types),
	}

	index, _, err := prompt.Run()
	if err != nil {
		return "", fmt.Errorf("problem type selection cancelled: %w", err)
	}
	return types[index], nil
}
