package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/stratum/internal/node"
	"github.com/roach88/stratum/internal/protocol"
)

// NewHealthCommand creates the health command: node self-check.
func NewHealthCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the configured node's backends",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithNode(cmd, opts, func(n *node.Node, f *Formatter) error {
				h := n.Health(cmd.Context())
				if err := f.OK(h); err != nil {
					return err
				}
				if h.Status != protocol.HealthOK {
					return WrapExitError(ExitFailure, "node is "+h.Status, nil)
				}
				return nil
			})
		},
	}
}
