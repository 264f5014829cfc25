package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// NewListCommand creates the list command.
func NewListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all registered models",
		Long: `List the registered models in registration order, with their
output kind and the models they depend on.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runList(cmd)
		},
	}

	return cmd
}

func runList(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()

	reg, err := projectRegistry()
	if err != nil {
		return err
	}

	kinds := reg.Kinds()
	_, _ = fmt.Fprintf(out, "Models (%d total):\n\n", len(kinds))

	for i, kind := range kinds {
		output := "derived"
		if kind.Persist() {
			output = "table"
		}

		depStr := ""
		if parents := parentNames(kind); len(parents) > 0 {
			depStr = fmt.Sprintf(" <- %s", strings.Join(parents, ", "))
		}

		_, _ = fmt.Fprintf(out, "  %2d. %-20s [%s]%s\n", i+1, kind.Name(), output, depStr)
	}

	return nil
}
