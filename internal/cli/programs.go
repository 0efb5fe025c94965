package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/stratum/internal/node"
)

// NewProgramsCommand creates the programs command: schema introspection.
func NewProgramsCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "programs",
		Short: "List the configured program keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithNode(cmd, opts, func(n *node.Node, f *Formatter) error {
				return f.OK(map[string]any{"programs": n.Programs()})
			})
		},
	}
}
