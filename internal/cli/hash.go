package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/stratum/internal/content"
)

// NewHashCommand creates the hash command: compute the content address
// of a value without touching any backend.
func NewHashCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "hash ALGORITHM VALUE",
		Short: "Compute a value's content address (hash://...)",
		Long: `Computes the content address of VALUE under ALGORITHM
(` + strings.Join(content.Algorithms(), ", ") + `). VALUE is parsed as JSON and
canonicalized per RFC 8785 before hashing, so field order never changes
the address.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := &Formatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

			u, err := content.HashURI(args[0], parseValue(args[1]))
			if err != nil {
				f.Fail(err)
				return WrapExitError(ExitCommandError, "hash failed", err)
			}
			return f.OK(map[string]any{"uri": u.String()})
		},
	}
}
