package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/stratum/internal/node"
	"github.com/roach88/stratum/internal/protocol"
	"github.com/roach88/stratum/internal/uri"
)

// NewReadCommand creates the read command: exact-match record lookup.
func NewReadCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "read URI [URI...]",
		Short: "Read records at one or more URIs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			uris, err := parseURIs(args)
			if err != nil {
				f := &Formatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
				f.Fail(err)
				return WrapExitError(ExitCommandError, "bad uri", err)
			}

			return runWithNode(cmd, opts, func(n *node.Node, f *Formatter) error {
				if len(uris) == 1 {
					rec, err := n.Read(cmd.Context(), uris[0])
					if err != nil {
						f.Fail(err)
						return WrapExitError(exitCodeFor(err), "read failed", err)
					}
					return f.OK(map[string]any{"uri": uris[0].String(), "record": rec})
				}

				mr, err := n.ReadMulti(cmd.Context(), uris)
				if err != nil {
					f.Fail(err)
					return WrapExitError(exitCodeFor(err), "read failed", err)
				}
				results := make([]map[string]any, len(mr.Results))
				for i, r := range mr.Results {
					item := map[string]any{"uri": r.URI}
					if r.Err != nil {
						item["error"] = r.Err.Error()
					} else {
						item["record"] = r.Record
					}
					results[i] = item
				}
				out := map[string]any{
					"results":   results,
					"total":     mr.Total,
					"succeeded": mr.Succeeded,
					"failed":    mr.Failed,
				}
				if !mr.OK() {
					f.OK(out)
					return WrapExitError(ExitFailure, "no record found", protocol.NotFound(""))
				}
				return f.OK(out)
			})
		},
	}
}

func parseURIs(args []string) ([]uri.URI, error) {
	uris := make([]uri.URI, len(args))
	for i, arg := range args {
		u, err := uri.Parse(arg)
		if err != nil {
			return nil, err
		}
		uris[i] = u
	}
	return uris, nil
}
