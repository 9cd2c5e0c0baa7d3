package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Fabianoeyes/Simulador-Economia-Circular-Verde/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and persist simulator settings",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Persist the current --sheet/--theme-index/--label-col/--output values",
	Long: `Persist settings to the user config file.

Values come from the persistent flags and SIMULADOR_* environment
variables, so "simulador --sheet Planilha --theme-index 5 config set"
stores both. Unset values keep their defaults and are not written.

Examples:
  simulador --sheet "Minha Aba" config set
  simulador --output "Economia Total=M12" --output "ROI=M13" config set`,
	Args: cobra.NoArgs,
	RunE: runConfigSet,
}

var configResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Remove the stored configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigReset,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configResetCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	cfg, err := resolveConfig()
	if err != nil {
		return err
	}
	if jsonOutput {
		return jsonPrint(cfg)
	}
	fmt.Printf("sheet:       %s\n", cfg.Sheet())
	fmt.Printf("theme index: %d\n", cfg.Theme())
	fmt.Printf("label col:   %s\n", colName(cfg))
	for _, out := range cfg.OutputList() {
		fmt.Printf("output:      %s = %s\n", out.Label, out.Address)
	}
	return nil
}

func colName(cfg config.Config) string {
	if cfg.LabelColumn != "" {
		return cfg.LabelColumn
	}
	return "B"
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	cfg, err := resolveConfig()
	if err != nil {
		return err
	}
	if err := config.Save(cfg); err != nil {
		return err
	}
	fmt.Println("configuration saved")
	return nil
}

func runConfigReset(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	if err := config.Delete(); err != nil {
		return err
	}
	fmt.Println("configuration removed")
	return nil
}
