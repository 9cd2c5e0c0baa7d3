package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/Fabianoeyes/Simulador-Economia-Circular-Verde/config"
	"github.com/Fabianoeyes/Simulador-Economia-Circular-Verde/engine"
	"github.com/Fabianoeyes/Simulador-Economia-Circular-Verde/internal"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var (
	flagSheet      string
	flagThemeIndex int
	flagLabelCol   string
	flagOutputs    outputsFlag
	flagConfig     string
	jsonOutput     bool
)

var rootCmd = &cobra.Command{
	Use:           "simulador",
	Short:         "Simulador de economia circular dirigido por planilha",
	Version:       Version,
	SilenceErrors: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagSheet, "sheet", "", "Main sheet holding inputs and outputs (env: SIMULADOR_SHEET)")
	pf.IntVar(&flagThemeIndex, "theme-index", 0, "Theme color index that marks input cells (env: SIMULADOR_THEME_INDEX)")
	pf.StringVar(&flagLabelCol, "label-col", "", "Column input labels are read from (env: SIMULADOR_LABEL_COL)")
	pf.Var(&flagOutputs, "output", "Output cell as label=address (repeatable)")
	pf.StringVar(&flagConfig, "config", "", "Path to a config file, overriding the user config")
	pf.BoolVar(&jsonOutput, "json", false, "Output raw JSON instead of human-formatted summaries")
}

// outputsFlag accumulates repeatable "label=address" values.
type outputsFlag []config.Output

var _ pflag.Value = (*outputsFlag)(nil)

func (f *outputsFlag) String() string {
	parts := make([]string, len(*f))
	for i, out := range *f {
		parts[i] = out.Label + "=" + out.Address
	}
	return strings.Join(parts, ",")
}

func (f *outputsFlag) Set(s string) error {
	label, address, ok := strings.Cut(s, "=")
	if !ok || label == "" || address == "" {
		return fmt.Errorf("expected label=address, got %q", s)
	}
	*f = append(*f, config.Output{Label: label, Address: address})
	return nil
}

func (f *outputsFlag) Type() string { return "label=address" }

// resolveConfig layers settings: flags beat SIMULADOR_* environment
// variables, which beat the stored config, which beats built-in defaults.
func resolveConfig() (config.Config, error) {
	var cfg config.Config
	var err error
	if flagConfig != "" {
		cfg, err = config.LoadFile(flagConfig)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return cfg, fmt.Errorf("loading config: %w", err)
	}

	if v := os.Getenv("SIMULADOR_SHEET"); v != "" {
		cfg.MainSheet = v
	}
	if v := os.Getenv("SIMULADOR_THEME_INDEX"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("SIMULADOR_THEME_INDEX: %w", err)
		}
		cfg.ThemeIndex = &n
	}
	if v := os.Getenv("SIMULADOR_LABEL_COL"); v != "" {
		cfg.LabelColumn = v
	}

	if flagSheet != "" {
		cfg.MainSheet = flagSheet
	}
	// Changed, not a zero sentinel: theme slot 0 is a legal index.
	if rootCmd.PersistentFlags().Changed("theme-index") {
		n := flagThemeIndex
		cfg.ThemeIndex = &n
	}
	if flagLabelCol != "" {
		cfg.LabelColumn = flagLabelCol
	}
	if len(flagOutputs) > 0 {
		cfg.Outputs = append([]config.Output(nil), flagOutputs...)
	}
	return cfg, nil
}

func inputOptions(cfg config.Config) engine.InputOptions {
	theme := cfg.Theme()
	return engine.InputOptions{ThemeIndex: &theme, LabelColumn: cfg.LabelCol()}
}

// openMain opens the workbook and verifies the configured main sheet
// exists, so every subcommand fails the same way on a bad --sheet.
func openMain(path string, cfg config.Config) (*engine.Workbook, error) {
	wb, err := engine.Open(path)
	if err != nil {
		return nil, err
	}
	if !wb.HasSheet(cfg.Sheet()) {
		available := wb.SheetNames()
		wb.Close()
		return nil, &engine.SheetNotFoundError{Sheet: cfg.Sheet(), Available: available}
	}
	return wb, nil
}

func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		if t {
			return "TRUE"
		}
		return "FALSE"
	default:
		return fmt.Sprint(t)
	}
}

// qualifyOutput completes a bare address like "M12" with the main sheet.
func qualifyOutput(cfg config.Config, address string) string {
	if sheet, _ := internal.SplitSheet(address); sheet == "" {
		return cfg.Sheet() + "!" + address
	}
	return address
}

func Execute() error {
	return rootCmd.Execute()
}
