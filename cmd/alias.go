package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-macfiles/internal/alias"
	"github.com/deploymenttheory/go-macfiles/pkg/app"
)

var aliasWriteTo string

var aliasCmd = &cobra.Command{
	Use:   "alias",
	Short: "Create or decode classic Mac OS alias records",
}

var aliasCreateCmd = &cobra.Command{
	Use:     "create <target>",
	Short:   "Build an alias to a file or folder",
	Example: `  macfiles alias create /Volumes/Installer/.background/bg.png --write-to bg.alias`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := newAppContext(cmd)
		svc, err := factory.MetadataService()
		if err != nil {
			return err
		}
		a, err := svc.AliasFor(ctx.Context, args[0])
		if err != nil {
			return app.Classify("failed to build alias", err)
		}
		if aliasWriteTo != "" {
			data, err := a.Encode()
			if err != nil {
				return app.Classify("failed to encode alias", err)
			}
			if err := os.WriteFile(aliasWriteTo, data, 0o644); err != nil {
				return app.Classify("failed to write alias", err)
			}
			ctx.Log(fmt.Sprintf("Wrote %d byte alias to %s", len(data), aliasWriteTo))
		}
		return printAlias(ctx, a)
	},
}

var aliasReadCmd = &cobra.Command{
	Use:   "read <file>",
	Short: "Decode a raw alias record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := newAppContext(cmd)
		svc, err := factory.MetadataService()
		if err != nil {
			return err
		}
		a, err := svc.ReadAlias(ctx.Context, args[0])
		if err != nil {
			return app.Classify("failed to read alias", err)
		}
		return printAlias(ctx, a)
	},
}

func init() {
	rootCmd.AddCommand(aliasCmd)
	aliasCmd.AddCommand(aliasCreateCmd, aliasReadCmd)

	aliasCreateCmd.Flags().StringVarP(&aliasWriteTo, "write-to", "w", "", "also write the encoded alias to this file")
}

func printAlias(ctx *app.Context, a *alias.Alias) error {
	if ctx.Quiet {
		return nil
	}
	if ctx.OutputFormat != "table" {
		return writeStructured(ctx.Out, a, ctx.OutputFormat)
	}
	return writeAliasTable(ctx.Out, a)
}

func writeAliasTable(out io.Writer, a *alias.Alias) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	rows := [][2]string{
		{"Version", fmt.Sprint(a.Version)},
		{"Target", fmt.Sprintf("%s (%s)", a.Target.Name, a.Target.Kind)},
		{"CNID", fmt.Sprintf("%d in folder %d", a.Target.CNID, a.Target.FolderCNID)},
		{"Created", a.Target.CreationDate.UTC().Format("2006-01-02 15:04:05")},
		{"Volume", fmt.Sprintf("%s (%s, %s)", a.Volume.Name, a.Volume.FSType.DisplayName(), a.Volume.DiskType)},
	}
	if a.Target.FolderName != "" {
		rows = append(rows, [2]string{"Folder", a.Target.FolderName})
	}
	if a.Target.CarbonPath != "" {
		rows = append(rows, [2]string{"Carbon path", strings.ReplaceAll(a.Target.CarbonPath, "\x00", "")})
	}
	if a.Target.POSIXPath != "" {
		rows = append(rows, [2]string{"POSIX path", a.Target.POSIXPath})
	}
	if a.Volume.POSIXPath != "" {
		rows = append(rows, [2]string{"Mount point", a.Volume.POSIXPath})
	}
	if a.Volume.DiskImageAlias != nil {
		rows = append(rows, [2]string{"Disk image", a.Volume.DiskImageAlias.Target.Name})
	}
	for _, row := range rows {
		fmt.Fprintf(w, "%s:\t%s\n", row[0], row[1])
	}
	return w.Flush()
}
