package cmd

import (
	"fmt"
	"math"
	"sort"

	"github.com/spf13/cobra"

	"github.com/Fabianoeyes/Simulador-Economia-Circular-Verde/engine"
	"github.com/Fabianoeyes/Simulador-Economia-Circular-Verde/internal"
)

const checkTolerance = 1e-9

var checkCmd = &cobra.Command{
	Use:   "check <file>",
	Short: "Recompute every formula and compare against the file's cached values",
	Long: `Recompute every formula cell and compare the result against the value
Excel last stored in the file.

Cells whose formulas cannot be computed are reported with the failure
reason; numeric disagreements beyond a small tolerance are reported as
mismatches. Returns exit code 2 when errors or mismatches are found.

Use --json for machine-readable results.`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

type checkIssue struct {
	Address string `json:"address"`
	Formula string `json:"formula"`
	Kind    string `json:"kind"`
	Got     any    `json:"got"`
	Want    any    `json:"want,omitempty"`
}

func runCheck(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	wb, err := engine.Open(args[0])
	if err != nil {
		return err
	}
	defer wb.Close()

	model, err := engine.BuildModel(wb)
	if err != nil {
		return err
	}
	ev := engine.NewEvaluator(model, nil)

	addresses := make([]string, 0, len(model.Formulas))
	for addr := range model.Formulas {
		addresses = append(addresses, addr)
	}
	sort.Strings(addresses)

	var issues []checkIssue
	for _, addr := range addresses {
		f := model.Formulas[addr]
		got := ev.Evaluate(addr)
		if engine.IsEvalError(got) {
			issues = append(issues, checkIssue{Address: addr, Formula: f.Source, Kind: "error", Got: got})
			continue
		}
		sheet, ref := internal.SplitSheet(addr)
		want, err := wb.CachedValue(sheet, ref)
		if err != nil {
			return err
		}
		if !valuesAgree(got, want) {
			issues = append(issues, checkIssue{Address: addr, Formula: f.Source, Kind: "mismatch", Got: got, Want: want})
		}
	}

	if jsonOutput {
		out := struct {
			Formulas int          `json:"formulas"`
			Issues   []checkIssue `json:"issues"`
		}{Formulas: len(addresses), Issues: issues}
		if err := jsonPrint(out); err != nil {
			return err
		}
	} else if len(issues) == 0 {
		fmt.Printf("%d formulas checked, 0 issues\n", len(addresses))
	} else {
		fmt.Printf("%d formulas checked, %d issue", len(addresses), len(issues))
		if len(issues) != 1 {
			fmt.Print("s")
		}
		fmt.Println(":")
		for _, is := range issues {
			if is.Kind == "error" {
				fmt.Printf("  %-20s %-30s %v\n", is.Address, is.Formula, is.Got)
			} else {
				fmt.Printf("  %-20s %-30s got %v, file has %v\n", is.Address, is.Formula, is.Got, is.Want)
			}
		}
	}

	if len(issues) > 0 {
		return &ExitError{Code: 2}
	}
	return nil
}

// valuesAgree compares a computed value against the file's cached value.
// Numbers compare within tolerance; everything else by formatted text,
// since the file stores booleans and numbers as strings in some cells.
func valuesAgree(got, want any) bool {
	gn, gok := got.(float64)
	wn, wok := want.(float64)
	if gok && wok {
		return math.Abs(gn-wn) <= checkTolerance
	}
	return formatValue(got) == formatValue(want)
}
