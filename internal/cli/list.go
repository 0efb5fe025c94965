package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/stratum/internal/node"
	"github.com/roach88/stratum/internal/protocol"
	"github.com/roach88/stratum/internal/uri"
)

// NewListCommand creates the list command: immediate children under a
// path, directory-style.
func NewListCommand(opts *RootOptions) *cobra.Command {
	var (
		page      int
		limit     int
		pattern   string
		sortBy    string
		sortOrder string
	)

	cmd := &cobra.Command{
		Use:   "list URI",
		Short: "List immediate children under a URI path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := uri.Parse(args[0])
			if err != nil {
				f := &Formatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
				f.Fail(err)
				return WrapExitError(ExitCommandError, "bad uri", err)
			}

			return runWithNode(cmd, opts, func(n *node.Node, f *Formatter) error {
				listing, err := n.List(cmd.Context(), u, protocol.ListOptions{
					Page:      page,
					Limit:     limit,
					Pattern:   pattern,
					SortBy:    sortBy,
					SortOrder: sortOrder,
				})
				if err != nil {
					f.Fail(err)
					return WrapExitError(exitCodeFor(err), "list failed", err)
				}
				return f.OK(listing)
			})
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "page number (1-based)")
	cmd.Flags().IntVar(&limit, "limit", protocol.DefaultListLimit, "entries per page")
	cmd.Flags().StringVar(&pattern, "pattern", "", "glob filter on child names (*, ?)")
	cmd.Flags().StringVar(&sortBy, "sort-by", protocol.SortByName, "sort key (name|timestamp)")
	cmd.Flags().StringVar(&sortOrder, "sort-order", protocol.SortAsc, "sort order (asc|desc)")

	return cmd
}
