package cmd

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-macfiles/internal/bookmark"
	"github.com/deploymenttheory/go-macfiles/pkg/app"
	"github.com/deploymenttheory/go-macfiles/pkg/services"
)

var bookmarkWriteTo string

var bookmarkCmd = &cobra.Command{
	Use:   "bookmark",
	Short: "Create or decode CFURL bookmarks",
}

var bookmarkCreateCmd = &cobra.Command{
	Use:     "create <target>",
	Short:   "Build a bookmark to a file or folder",
	Example: `  macfiles bookmark create .background/bg.png --write-to bg.bookmark`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := newAppContext(cmd)
		svc, err := factory.MetadataService()
		if err != nil {
			return err
		}
		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		bm, err := svc.BookmarkFor(ctx.Context, args[0], cwd)
		if err != nil {
			return app.Classify("failed to build bookmark", err)
		}
		if bookmarkWriteTo != "" {
			data, err := bm.Encode()
			if err != nil {
				return app.Classify("failed to encode bookmark", err)
			}
			if err := os.WriteFile(bookmarkWriteTo, data, 0o644); err != nil {
				return app.Classify("failed to write bookmark", err)
			}
			ctx.Log(fmt.Sprintf("Wrote %d byte bookmark to %s", len(data), bookmarkWriteTo))
		}
		return printBookmark(ctx, bm)
	},
}

var bookmarkReadCmd = &cobra.Command{
	Use:   "read <file>",
	Short: "Decode a raw bookmark",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := newAppContext(cmd)
		svc, err := factory.MetadataService()
		if err != nil {
			return err
		}
		bm, err := svc.ReadBookmark(ctx.Context, args[0])
		if err != nil {
			return app.Classify("failed to read bookmark", err)
		}
		return printBookmark(ctx, bm)
	},
}

func init() {
	rootCmd.AddCommand(bookmarkCmd)
	bookmarkCmd.AddCommand(bookmarkCreateCmd, bookmarkReadCmd)

	bookmarkCreateCmd.Flags().StringVarP(&bookmarkWriteTo, "write-to", "w", "", "also write the encoded bookmark to this file")
}

// bookmarkEntry is a bookmark entry with a readable key
type bookmarkEntry struct {
	TOC   uint32 `json:"toc" yaml:"toc"`
	Key   string `json:"key" yaml:"key"`
	Value any    `json:"value" yaml:"value"`
}

func printBookmark(ctx *app.Context, bm *bookmark.Bookmark) error {
	if ctx.Quiet {
		return nil
	}
	entries := make([]bookmarkEntry, 0)
	for _, e := range bm.Entries() {
		entries = append(entries, bookmarkEntry{TOC: e.TOC, Key: bookmark.KeyName(e.Key), Value: e.Value})
	}
	if ctx.OutputFormat != "table" {
		return writeStructured(ctx.Out, entries, ctx.OutputFormat)
	}
	return writeBookmarkTable(ctx.Out, entries)
}

func writeBookmarkTable(out io.Writer, entries []bookmarkEntry) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "TOC\tKEY\tVALUE\n")
	fmt.Fprintf(w, "---\t---\t-----\n")
	for _, e := range entries {
		fmt.Fprintf(w, "%d\t%s\t%s\n", e.TOC, e.Key, services.FormatValue(e.Value))
	}
	return w.Flush()
}
