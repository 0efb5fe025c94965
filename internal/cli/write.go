package cli

import (
	"encoding/json"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/stratum/internal/node"
	"github.com/roach88/stratum/internal/protocol"
)

// NewWriteCommand creates the write command: submit one transaction.
func NewWriteCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "write URI VALUE",
		Short: "Validate and persist a value at a URI",
		Long: `Submits a transaction (URI, VALUE) to the configured node.
VALUE is parsed as JSON; a value that does not parse is submitted as a
plain string. A payload shaped {"inputs": [...], "outputs": [[uri, value], ...]}
is treated as a transaction envelope and unpacked into its outputs.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithNode(cmd, opts, func(n *node.Node, f *Formatter) error {
				rec, err := n.ReceiveRaw(cmd.Context(), args[0], parseValue(args[1]))
				if err != nil {
					f.Fail(err)
					return WrapExitError(exitCodeFor(err), "write refused", err)
				}
				return f.OK(map[string]any{"uri": args[0], "record": rec})
			})
		},
	}
}

// parseValue decodes a CLI value argument: JSON when it parses,
// otherwise the raw string.
func parseValue(arg string) any {
	var v any
	if err := json.Unmarshal([]byte(arg), &v); err != nil {
		return arg
	}
	return v
}

// exitCodeFor maps protocol outcomes to exit codes: rejections and
// not-found are operation failures, faults are command errors.
func exitCodeFor(err error) int {
	if protocol.IsRejection(err) || protocol.IsNotFound(err) {
		return ExitFailure
	}
	return ExitCommandError
}

// runWithNode loads the config, builds the node, runs fn, and closes
// the node afterwards.
func runWithNode(cmd *cobra.Command, opts *RootOptions, fn func(n *node.Node, f *Formatter) error) error {
	f := &Formatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	cfg, err := LoadConfig(opts.ConfigPath)
	if err != nil {
		f.Fail(err)
		return WrapExitError(ExitCommandError, "configuration", err)
	}

	log := newLogger(cmd, opts)
	n, err := BuildNode(cfg, log)
	if err != nil {
		f.Fail(err)
		return WrapExitError(ExitCommandError, "node construction", err)
	}
	defer n.Close()

	return fn(n, f)
}

func newLogger(cmd *cobra.Command, opts *RootOptions) *slog.Logger {
	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}
