package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/meigma/hashlist"
)

type hashOutput struct {
	Path string `json:"path"`
	ID   string `json:"id"`
}

func newHashCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "hash PATH...",
		Short: "Compute the identifiers of resource paths",
		Long: `Computes the identifier the engine assigns to each path. No hash list is
needed; paths are case-insensitive for ASCII letters.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := make([]hashOutput, 0, len(args))
			for _, path := range args {
				id, err := hashlist.HashPath(path)
				if err != nil {
					return fmt.Errorf("%q: %w", path, err)
				}
				out = append(out, hashOutput{Path: path, ID: id.String()})
			}

			if g.json {
				return printJSON(cmd.OutOrStdout(), out)
			}
			for _, o := range out {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", o.ID, o.Path)
			}
			return nil
		},
	}
}

type lookupOutput struct {
	Query string       `json:"query"`
	Found bool         `json:"found"`
	Entry *entryOutput `json:"entry,omitempty"`
}

func newLookupCmd(g *globalOptions) *cobra.Command {
	var list string
	cmd := &cobra.Command{
		Use:   "lookup --list FILE ID...",
		Short: "Look identifiers up in a hash list",
		Long: `Prints the entry for each identifier. Arguments not starting with '0' are
treated as paths and hashed first.

Exits non-zero when any identifier is not in the list.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hl, err := g.loadList(list)
			if err != nil {
				return err
			}

			out := make([]lookupOutput, 0, len(args))
			missing := 0
			for _, arg := range args {
				id, err := hashlist.ParseAny(arg)
				if err != nil {
					return fmt.Errorf("%q: %w", arg, err)
				}
				o := lookupOutput{Query: arg}
				if e, ok := hl.Lookup(id); ok {
					eo := newEntryOutput(e)
					o.Found, o.Entry = true, &eo
				} else {
					missing++
				}
				out = append(out, o)
			}

			if g.json {
				if err := printJSON(cmd.OutOrStdout(), out); err != nil {
					return err
				}
			} else {
				w := cmd.OutOrStdout()
				for _, o := range out {
					if !o.Found {
						fmt.Fprintf(w, "%s\tnot found\n", o.Query)
						continue
					}
					e := o.Entry
					path := e.Path
					if path == "" {
						path = "-"
					}
					fmt.Fprintf(w, "%s\t%s\t%s", e.ID, e.Type, path)
					if e.Hint != "" {
						fmt.Fprintf(w, "\t(%s)", e.Hint)
					}
					fmt.Fprintln(w)
				}
			}
			if missing > 0 {
				return fmt.Errorf("%d of %d identifiers not found", missing, len(args))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&list, "list", "l", "", "Hash list archive")
	return cmd
}

type reverseOutput struct {
	Path  string `json:"path"`
	ID    string `json:"id"`
	Known bool   `json:"known"`
}

func newReverseCmd(g *globalOptions) *cobra.Command {
	var (
		list    string
		aliases bool
	)
	cmd := &cobra.Command{
		Use:   "reverse --list FILE PATH...",
		Short: "Resolve paths to identifiers",
		Long: `Prints the identifier of each path and whether the hash list knows it.
Unknown paths still get their computed identifier.

With --aliases, entries whose stored path matches are also consulted when
the computed identifier is not in the list.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hl, err := g.loadList(list, hashlist.WithAliasResolution(aliases))
			if err != nil {
				return err
			}

			out := make([]reverseOutput, 0, len(args))
			for _, path := range args {
				id, known, err := hl.ReverseLookup(path)
				if err != nil {
					return fmt.Errorf("%q: %w", path, err)
				}
				out = append(out, reverseOutput{Path: path, ID: id.String(), Known: known})
			}

			if g.json {
				return printJSON(cmd.OutOrStdout(), out)
			}
			for _, o := range out {
				state := "known"
				if !o.Known {
					state = "unknown"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %s\n", o.ID, state, o.Path)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&list, "list", "l", "", "Hash list archive")
	cmd.Flags().BoolVar(&aliases, "aliases", false, "Match stored paths when the computed identifier is unknown")
	return cmd
}
