package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-macfiles/internal/logger"
	"github.com/deploymenttheory/go-macfiles/pkg/app/generate"
)

var generateForce bool

var generateCmd = &cobra.Command{
	Use:   "generate <layout> <output>",
	Short: "Build a .DS_Store from a window layout file",
	Long: `Build a .DS_Store that opens its folder as an icon view window with the
given size, background and icon positions.

Layout file example:
  window:
    width: 640
    height: 480
  background:
    image: /Volumes/Installer/.background/background.png
    bookmark: true
  icon_size: 96
  items:
    - name: App.app
      x: 160
      y: 200
    - name: Applications
      x: 480
      y: 200

The background image must already be on the volume the store will live on.`,
	Example: `  macfiles generate layout.yaml /Volumes/Installer/.DS_Store`,
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runGenerate(cmd, args[0], args[1])
	},
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().BoolVarP(&generateForce, "force", "f", false, "replace an existing output file")
}

func runGenerate(cmd *cobra.Command, layoutPath, output string) error {
	ctx := newAppContext(cmd)

	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	req := &generate.Request{
		LayoutPath: layoutPath,
		OutputPath: output,
		Overwrite:  generateForce,
		WorkingDir: cwd,
	}

	response, err := generate.Handle(ctx, req)
	if err != nil {
		return err
	}
	logger.LogInfo("store generated", map[string]interface{}{"output": response.OutputPath, "records": response.Records})
	if ctx.Quiet {
		return nil
	}
	if ctx.OutputFormat == "table" {
		fmt.Fprintf(ctx.Out, "Wrote %d records (%d items, background %s) to %s\n",
			response.Records, response.Items, response.Background, response.OutputPath)
		return nil
	}
	return writeStructured(ctx.Out, response, ctx.OutputFormat)
}
