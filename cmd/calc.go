package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Fabianoeyes/Simulador-Economia-Circular-Verde/config"
	"github.com/Fabianoeyes/Simulador-Economia-Circular-Verde/engine"
)

var calcCells []string

var calcCmd = &cobra.Command{
	Use:   "calc <file> [address=value ...]",
	Short: "Apply input edits and evaluate the configured outputs",
	Long: `Apply input edits and evaluate the workbook's output cells.

Each positional edit has the form address=value, e.g. "D7=1.500,00" or
"Outra Aba!B3=true". Values are coerced with pt-BR conventions: comma
decimals, dot thousand separators, true/false booleans. Addresses
without a sheet refer to the main sheet. Assigning a formula is not
allowed; edits always write literals.

Outputs come from the config (--output overrides it); --cell evaluates
ad-hoc addresses instead. Cells that fail to compute print an inline
"Erro:" value and set exit code 2.

Examples:
  simulador calc simulador.xlsx
  simulador calc simulador.xlsx D7=2500 D9=0,15
  simulador calc simulador.xlsx --cell M12 --cell M17 --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCalc,
}

func init() {
	calcCmd.Flags().StringArrayVar(&calcCells, "cell", nil, "Evaluate this address instead of the configured outputs (repeatable)")
	rootCmd.AddCommand(calcCmd)
}

type calcResult struct {
	Label   string `json:"label"`
	Address string `json:"address"`
	Value   any    `json:"value"`
}

func runCalc(cmd *cobra.Command, args []string) error {
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

	model, err := engine.BuildModel(wb)
	if err != nil {
		return err
	}
	ev := engine.NewEvaluator(model, nil)

	for _, raw := range args[1:] {
		addr, value, err := parseEdit(cfg, raw)
		if err != nil {
			return err
		}
		if err := ev.SetCellValue(addr, value); err != nil {
			return err
		}
	}

	outputs := outputTargets(cfg)
	results := make([]calcResult, len(outputs))
	failed := false
	for i, out := range outputs {
		v := ev.Evaluate(out.Address)
		if engine.IsEvalError(v) {
			failed = true
		}
		results[i] = calcResult{Label: out.Label, Address: out.Address, Value: v}
	}

	if jsonOutput {
		if err := jsonPrint(results); err != nil {
			return err
		}
	} else {
		for _, r := range results {
			fmt.Printf("%-24s %-20s %s\n", r.Label, r.Address, formatValue(r.Value))
		}
	}

	if failed {
		return &ExitError{Code: 2}
	}
	return nil
}

func outputTargets(cfg config.Config) []config.Output {
	if len(calcCells) > 0 {
		outputs := make([]config.Output, len(calcCells))
		for i, address := range calcCells {
			addr := qualifyOutput(cfg, address)
			outputs[i] = config.Output{Label: address, Address: addr}
		}
		return outputs
	}
	return cfg.OutputList()
}

// parseEdit splits one "address=value" argument. The '=' is searched
// after the sheet separator so sheet names containing '=' stay intact.
func parseEdit(cfg config.Config, s string) (string, any, error) {
	prefix := ""
	rest := s
	if i := strings.LastIndex(s, "!"); i >= 0 {
		prefix = s[:i+1]
		rest = s[i+1:]
	}
	ref, raw, ok := strings.Cut(rest, "=")
	if !ok || ref == "" {
		return "", nil, fmt.Errorf("edição inválida %q: esperado endereço=valor", s)
	}
	if strings.HasPrefix(raw, "=") {
		return "", nil, fmt.Errorf("edição inválida %q: fórmulas não podem ser atribuídas", s)
	}
	addr := qualifyOutput(cfg, prefix+ref)
	return addr, engine.Coerce(raw), nil
}
