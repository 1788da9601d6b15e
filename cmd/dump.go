package cmd

import (
	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-macfiles/pkg/app"
	"github.com/deploymenttheory/go-macfiles/pkg/app/dump"
)

var (
	dumpEntry    string
	dumpProperty string
	dumpSummary  bool
)

var dumpCmd = &cobra.Command{
	Use:   "dump <store>",
	Short: "List the records of a .DS_Store file",
	Long: `List every record of a .DS_Store file with its decoded value.

Examples:
  # Show all records
  macfiles dump .DS_Store

  # Show icon positions only, as JSON
  macfiles dump .DS_Store --property Iloc -o json

  # Show the settings of the folder itself
  macfiles dump .DS_Store --entry .`,

	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDump(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(dumpCmd)

	dumpCmd.Flags().StringVarP(&dumpEntry, "entry", "e", "", "only show records of this filename")
	dumpCmd.Flags().StringVarP(&dumpProperty, "property", "p", "", "only show records of this property code")
	dumpCmd.Flags().BoolVar(&dumpSummary, "summary", false, "only show the tree layout")
}

func runDump(cmd *cobra.Command, path string) error {
	ctx := newAppContext(cmd)

	req := &dump.Request{
		Target:   app.StoreTarget{Path: path, Filename: dumpEntry},
		Property: dumpProperty,
		Summary:  dumpSummary,
	}

	response, err := dump.Handle(ctx, req)
	if err != nil {
		return err
	}
	if ctx.Quiet {
		return nil
	}
	if err := dump.FormatOutput(ctx.Out, response, ctx.OutputFormat); err != nil {
		return err
	}
	ctx.Log(dump.FormatSummary(response))
	return nil
}
