package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Fabianoeyes/Simulador-Economia-Circular-Verde/engine"
)

var inputsCmd = &cobra.Command{
	Use:   "inputs <file>",
	Short: "List the input cells discovered in the workbook",
	Long: `List the editable input cells of a workbook.

An input cell is a literal (non-formula) cell on the main sheet painted
with a solid fill in the configured theme color. Each input is labeled
from the label column of its row; inputs without a label show their own
address.

Use --json for machine-readable results.`,
	Args: cobra.ExactArgs(1),
	RunE: runInputs,
}

func init() {
	rootCmd.AddCommand(inputsCmd)
}

func runInputs(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	cfg, err := resolveConfig()
	if err != nil {
		return err
	}
	wb, err := openMain(args[0], cfg)
	if err != nil {
		return err
	}
	defer wb.Close()

	inputs, err := engine.DiscoverInputs(wb, cfg.Sheet(), inputOptions(cfg))
	if err != nil {
		return err
	}
	if jsonOutput {
		return jsonPrint(inputs)
	}
	if len(inputs) == 0 {
		fmt.Println("no input cells found")
		return nil
	}
	for _, in := range inputs {
		fmt.Printf("%-30s %-40s %s\n", in.Address, in.Label, formatValue(in.Default))
	}
	return nil
}
