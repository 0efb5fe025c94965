package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/stratum/internal/node"
	"github.com/roach88/stratum/internal/uri"
)

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete URI",
		Short: "Delete the record at a URI",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := uri.Parse(args[0])
			if err != nil {
				f := &Formatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
				f.Fail(err)
				return WrapExitError(ExitCommandError, "bad uri", err)
			}

			return runWithNode(cmd, opts, func(n *node.Node, f *Formatter) error {
				if err := n.Delete(cmd.Context(), u); err != nil {
					f.Fail(err)
					return WrapExitError(exitCodeFor(err), "delete failed", err)
				}
				return f.OK(map[string]any{"deleted": u.String()})
			})
		},
	}
}
