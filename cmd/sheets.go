package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Fabianoeyes/Simulador-Economia-Circular-Verde/engine"
)

var sheetsCmd = &cobra.Command{
	Use:   "sheets <file>",
	Short: "List the sheet names of a workbook",
	Args:  cobra.ExactArgs(1),
	RunE:  runSheets,
}

func init() {
	rootCmd.AddCommand(sheetsCmd)
}

func runSheets(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	wb, err := engine.Open(args[0])
	if err != nil {
		return err
	}
	defer wb.Close()

	names := wb.SheetNames()
	if jsonOutput {
		return jsonPrint(names)
	}
	for _, name := range names {
		fmt.Println(name)
	}
	return nil
}
