// Package cli implements the hashlist command-line interface.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/meigma/hashlist"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	GitCommit = "unknown"
)

// globalOptions holds persistent flags that apply to all commands.
type globalOptions struct {
	verbosity int
	logFormat string
	json      bool

	logger *slog.Logger
}

// NewRootCmd builds the command tree. Each call returns an independent tree
// with its own flag state.
func NewRootCmd() *cobra.Command {
	g := &globalOptions{}

	root := &cobra.Command{
		Use:   "hashlist",
		Short: "Resolve resource identifiers to paths",
		Long: `hashlist works with hash list archives, which map the 64-bit resource
identifiers of the game's resource containers to their original paths.

Identifiers are written as 16 hex digits. Commands that accept identifiers
also accept paths; any argument not starting with '0' is hashed first.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return g.initLogging(cmd.ErrOrStderr())
		},
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
	}

	root.PersistentFlags().CountVarP(&g.verbosity, "verbose", "v",
		"Increase log verbosity (-v info, -vv debug)")
	root.PersistentFlags().StringVar(&g.logFormat, "log-format", "text",
		"Log format (text, json)")
	root.PersistentFlags().BoolVar(&g.json, "json", false,
		"Output in JSON format")

	root.AddCommand(
		newHashCmd(g),
		newLookupCmd(g),
		newReverseCmd(g),
		newInfoCmd(g),
		newPackCmd(g),
		newExportCmd(g),
		newVersionCmd(g),
	)
	return root
}

// Execute runs the root command.
func Execute() {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(root.ErrOrStderr(), "Error:", err)
		os.Exit(1)
	}
}

// RootCmd returns a fresh root command for testing.
func RootCmd() *cobra.Command {
	return NewRootCmd()
}

func (g *globalOptions) initLogging(w io.Writer) error {
	level := slog.LevelWarn
	switch {
	case g.verbosity >= 2:
		level = slog.LevelDebug
	case g.verbosity == 1:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	switch g.logFormat {
	case "text", "":
		g.logger = slog.New(slog.NewTextHandler(w, opts))
	case "json":
		g.logger = slog.New(slog.NewJSONHandler(w, opts))
	default:
		return fmt.Errorf("unknown log format %q (want text or json)", g.logFormat)
	}
	return nil
}

// loadList reads and decodes the archive at path.
func (g *globalOptions) loadList(path string, opts ...hashlist.Option) (*hashlist.HashList, error) {
	if path == "" {
		return nil, fmt.Errorf("--list is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	opts = append([]hashlist.Option{hashlist.WithLogger(g.logger)}, opts...)
	list, err := hashlist.Load(data, opts...)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	g.logger.Info("hash list loaded",
		slog.String("file", path),
		slog.Int("entries", list.Len()),
		slog.Uint64("revision", uint64(list.Version().Revision)))
	return list, nil
}

// printJSON outputs data as indented JSON.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// entryOutput is the JSON form of an entry.
type entryOutput struct {
	ID    string   `json:"id"`
	Type  string   `json:"type"`
	Path  string   `json:"path,omitempty"`
	Hint  string   `json:"hint,omitempty"`
	Flags uint8    `json:"flags"`
	Games []string `json:"games,omitempty"`
}

func newEntryOutput(e hashlist.Entry) entryOutput {
	out := entryOutput{
		ID:    e.ID.String(),
		Type:  e.ResourceType.String(),
		Path:  e.Path,
		Hint:  e.Hint,
		Flags: uint8(e.Flags),
	}
	for _, g := range e.Flags.Games() {
		out.Games = append(out.Games, g.String())
	}
	return out
}

const versionTemplate = "hashlist %s (%s)\n"

func newVersionCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if g.json {
				return printJSON(cmd.OutOrStdout(), map[string]any{
					"version":        Version,
					"commit":         GitCommit,
					"format_version": hashlist.MaxFormatVersion,
				})
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), versionTemplate, Version, GitCommit)
			return err
		},
	}
}
