package cli

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/meigma/hashlist"
)

type packOutput struct {
	File     string `json:"file"`
	Format   string `json:"format"`
	Revision uint32 `json:"revision"`
	Entries  int    `json:"entries"`
	Size     int    `json:"size"`
	Digest   string `json:"digest"`
}

func newPackCmd(g *globalOptions) *cobra.Command {
	var (
		in       string
		outPath  string
		format   string
		revision uint32
		level    int
	)
	cmd := &cobra.Command{
		Use:   "pack --in CSV --out FILE",
		Short: "Build a hash list archive from entry lines",
		Long: `Reads entry lines (ID.TYPE,path,hint,flags) and writes an archive.

The legacy format is brotli-compressed Smile, readable by every existing
consumer. The packed formats are CBOR compressed with zstd or lz4.
Use "-" for --in to read standard input.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if in == "" || outPath == "" {
				return fmt.Errorf("--in and --out are required")
			}
			f, err := hashlist.ParseFormat(format)
			if err != nil {
				return err
			}

			entries, err := readEntriesFrom(cmd.InOrStdin(), in)
			if err != nil {
				return err
			}
			data, err := hashlist.Encode(entries, revision,
				hashlist.EncodeWithFormat(f),
				hashlist.EncodeWithCompressionLevel(level))
			if err != nil {
				return err
			}
			if err := os.WriteFile(outPath, data, 0o644); err != nil { //nolint:gosec // archives are not secret
				return err
			}

			src := hashlist.SourceOf(data)
			g.logger.Info("hash list packed",
				slog.String("file", outPath),
				slog.Int("entries", len(entries)),
				slog.String("format", f.String()),
				slog.String("digest", src.Digest.String()))

			out := packOutput{
				File:     outPath,
				Format:   f.String(),
				Revision: revision,
				Entries:  len(entries),
				Size:     len(data),
				Digest:   src.Digest.String(),
			}
			if g.json {
				return printJSON(cmd.OutOrStdout(), out)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d entries to %s (%s, %d bytes)\n",
				out.Entries, out.File, out.Format, out.Size)
			return nil
		},
	}
	cmd.Flags().StringVarP(&in, "in", "i", "", "Entry lines to read")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Archive to write")
	cmd.Flags().StringVar(&format, "format", hashlist.FormatLegacy.String(),
		"Archive format (legacy, packed, packed-lz4)")
	cmd.Flags().Uint32Var(&revision, "revision", 1, "Data revision to record")
	cmd.Flags().IntVar(&level, "level", 0, "Compression level (0 = codec default)")
	return cmd
}

func readEntriesFrom(stdin io.Reader, path string) ([]hashlist.Entry, error) {
	if path == "-" {
		return readEntries(bufio.NewReader(stdin))
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	entries, err := readEntries(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return entries, nil
}

func newExportCmd(g *globalOptions) *cobra.Command {
	var (
		list    string
		outPath string
	)
	cmd := &cobra.Command{
		Use:   "export --list FILE",
		Short: "Write the entries of an archive as entry lines",
		Long: `Writes every entry as ID.TYPE,path,hint,flags in archive order. The output
can be fed back to pack.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			hl, err := g.loadList(list)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if outPath != "" && outPath != "-" {
				f, cerr := os.Create(outPath)
				if cerr != nil {
					return cerr
				}
				defer func() {
					if cerr := f.Close(); err == nil {
						err = cerr
					}
				}()
				w = f
			}
			return writeEntries(w, hl.Entries())
		},
	}
	cmd.Flags().StringVarP(&list, "list", "l", "", "Hash list archive")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "File to write (default standard output)")
	return cmd
}
