package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-macfiles/internal/logger"
	"github.com/deploymenttheory/go-macfiles/pkg/app"
)

var getCmd = &cobra.Command{
	Use:   "get <store> <filename> <property>",
	Short: "Print one record of a .DS_Store file",
	Example: `  macfiles get .DS_Store App.app Iloc
  macfiles get .DS_Store . bwsp -o json`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runGet(cmd, args[0], args[1], args[2])
	},
}

var setCmd = &cobra.Command{
	Use:   "set <store> <filename> <property> <kind:value>",
	Short: "Store one record in a .DS_Store file",
	Long: `Store one record, creating the file if needed.

The value is written as kind:text where kind is one of
  long, shor, comp    integers
  bool                true or false
  type                a four character code
  ustr                a string
  blob                hex encoded bytes
  dutc                an RFC 3339 timestamp
  Iloc                an icon position, x,y`,
	Example: `  macfiles set .DS_Store App.app Iloc Iloc:140,120
  macfiles set .DS_Store . vstl type:icnv`,
	Args: cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSet(cmd, args[0], args[1], args[2], args[3])
	},
}

var deleteCmd = &cobra.Command{
	Use:     "delete <store> <filename> <property>",
	Short:   "Remove one record from a .DS_Store file",
	Example: `  macfiles delete .DS_Store App.app Iloc`,
	Args:    cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDelete(cmd, args[0], args[1], args[2])
	},
}

func init() {
	rootCmd.AddCommand(getCmd, setCmd, deleteCmd)
}

func runGet(cmd *cobra.Command, path, filename, property string) error {
	ctx := newAppContext(cmd)
	code, err := app.ParseProperty(property)
	if err != nil {
		return err
	}
	svc, err := factory.StoreService()
	if err != nil {
		return err
	}

	rec, err := svc.GetValue(ctx.Context, path, filename, code)
	if err != nil {
		return app.Classify("failed to read record", err)
	}
	if ctx.Quiet {
		return nil
	}
	if ctx.OutputFormat == "table" {
		fmt.Fprintf(ctx.Out, "%s\t%s\t%s\t%s\n", rec.Filename, rec.Property, rec.Type, rec.Display)
		return nil
	}
	return writeStructured(ctx.Out, rec, ctx.OutputFormat)
}

func runSet(cmd *cobra.Command, path, filename, property, value string) error {
	ctx := newAppContext(cmd)
	code, err := app.ParseProperty(property)
	if err != nil {
		return err
	}
	svc, err := factory.StoreService()
	if err != nil {
		return err
	}

	if err := svc.SetValue(ctx.Context, path, filename, code, value); err != nil {
		return app.Classify("failed to write record", err)
	}
	logger.LogInfo("record stored", map[string]interface{}{"store": path, "filename": filename, "property": property})
	ctx.Log(fmt.Sprintf("Stored %s of %q in %s", code, filename, path))
	return nil
}

func runDelete(cmd *cobra.Command, path, filename, property string) error {
	ctx := newAppContext(cmd)
	code, err := app.ParseProperty(property)
	if err != nil {
		return err
	}
	svc, err := factory.StoreService()
	if err != nil {
		return err
	}

	if err := svc.DeleteValue(ctx.Context, path, filename, code); err != nil {
		return app.Classify("failed to delete record", err)
	}
	logger.LogInfo("record deleted", map[string]interface{}{"store": path, "filename": filename, "property": property})
	return nil
}
