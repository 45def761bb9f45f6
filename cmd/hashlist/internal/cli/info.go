package cli

import (
	"cmp"
	"fmt"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/meigma/hashlist"
)

// InfoOutput is the JSON output format for hashlist info.
type InfoOutput struct {
	File          string         `json:"file"`
	Size          int64          `json:"size"`
	Digest        string         `json:"digest"`
	Compression   string         `json:"compression"`
	Encoding      string         `json:"encoding"`
	FormatVersion uint32         `json:"format_version"`
	Revision      uint32         `json:"revision"`
	Entries       int            `json:"entries"`
	WithPath      int            `json:"with_path"`
	Types         map[string]int `json:"types"`
	Games         map[string]int `json:"games"`
}

func newInfoCmd(g *globalOptions) *cobra.Command {
	var list string
	cmd := &cobra.Command{
		Use:   "info --list FILE",
		Short: "Summarize a hash list archive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			hl, err := g.loadList(list)
			if err != nil {
				return err
			}
			info := summarize(list, hl)

			if g.json {
				return printJSON(cmd.OutOrStdout(), info)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "File:        %s\n", info.File)
			fmt.Fprintf(w, "Size:        %d bytes\n", info.Size)
			fmt.Fprintf(w, "Digest:      %s\n", info.Digest)
			fmt.Fprintf(w, "Compression: %s\n", info.Compression)
			fmt.Fprintf(w, "Encoding:    %s\n", info.Encoding)
			fmt.Fprintf(w, "Format:      %d\n", info.FormatVersion)
			fmt.Fprintf(w, "Revision:    %d\n", info.Revision)
			fmt.Fprintf(w, "Entries:     %d (%d with path)\n", info.Entries, info.WithPath)
			fmt.Fprintf(w, "\nResource types (%d):\n", len(info.Types))
			for _, t := range byCount(info.Types) {
				fmt.Fprintf(w, "  %s  %d\n", t, info.Types[t])
			}
			fmt.Fprintf(w, "\nGames:\n")
			for _, game := range []hashlist.GameVersion{hashlist.GameH1, hashlist.GameH2, hashlist.GameH3} {
				fmt.Fprintf(w, "  %s  %d\n", game, info.Games[game.String()])
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&list, "list", "l", "", "Hash list archive")
	return cmd
}

func summarize(file string, hl *hashlist.HashList) InfoOutput {
	src := hl.Source()
	info := InfoOutput{
		File:          file,
		Size:          src.Size,
		Digest:        src.Digest.String(),
		Compression:   hl.Compression().String(),
		Encoding:      hl.Encoding().String(),
		FormatVersion: hl.Version().Format,
		Revision:      hl.Version().Revision,
		Entries:       hl.Len(),
		Types:         make(map[string]int),
		Games:         make(map[string]int),
	}
	for e := range hl.Entries() {
		if e.HasPath() {
			info.WithPath++
		}
		info.Types[e.ResourceType.String()]++
		for _, game := range e.Flags.Games() {
			info.Games[game.String()]++
		}
	}
	return info
}

// byCount returns the keys of m, most frequent first.
func byCount(m map[string]int) []string {
	keys := slices.Collect(maps.Keys(m))
	slices.SortFunc(keys, func(a, b string) int {
		if c := cmp.Compare(m[b], m[a]); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	return keys
}
