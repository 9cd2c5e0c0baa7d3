package cmd

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/Fabianoeyes/Simulador-Economia-Circular-Verde/config"
)

const testSheet = "Simulador Eco Circ Verde"

// writeTestWorkbook builds a minimal simulator workbook on disk.
func writeTestWorkbook(t *testing.T) string {
	t.Helper()
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", testSheet); err != nil {
		t.Fatal(err)
	}
	if err := f.SetCellValue(testSheet, "D3", 1000.0); err != nil {
		t.Fatal(err)
	}
	if err := f.SetCellValue(testSheet, "D4", 0.1); err != nil {
		t.Fatal(err)
	}
	if err := f.SetCellFormula(testSheet, "M12", "D3*D4"); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "simulador.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	f.Close()
	return path
}

func resetFlags(t *testing.T) {
	t.Helper()
	origSheet := flagSheet
	origTheme := flagThemeIndex
	origLabel := flagLabelCol
	origOutputs := flagOutputs
	origConfig := flagConfig
	origJSON := jsonOutput
	origCells := calcCells
	themeFlag := rootCmd.PersistentFlags().Lookup("theme-index")
	origThemeChanged := themeFlag.Changed
	t.Cleanup(func() {
		themeFlag.Changed = origThemeChanged
		flagSheet = origSheet
		flagThemeIndex = origTheme
		flagLabelCol = origLabel
		flagOutputs = origOutputs
		flagConfig = origConfig
		jsonOutput = origJSON
		calcCells = origCells
	})
	flagSheet = ""
	flagThemeIndex = 0
	flagLabelCol = ""
	flagOutputs = nil
	flagConfig = ""
	jsonOutput = false
	calcCells = nil
	themeFlag.Changed = false

	t.Setenv("SIMULADOR_CONFIG_DIR", t.TempDir())
	t.Setenv("SIMULADOR_SHEET", "")
	t.Setenv("SIMULADOR_THEME_INDEX", "")
	t.Setenv("SIMULADOR_LABEL_COL", "")
}

func TestParseEdit(t *testing.T) {
	var cfg config.Config
	tests := []struct {
		name      string
		arg       string
		wantAddr  string
		wantValue any
		wantErr   bool
	}{
		{
			name:      "bare address gets main sheet",
			arg:       "D3=2000",
			wantAddr:  testSheet + "!D3",
			wantValue: 2000.0,
		},
		{
			name:      "explicit sheet kept",
			arg:       "Outra!B2=5",
			wantAddr:  "Outra!B2",
			wantValue: 5.0,
		},
		{
			name:      "pt-BR decimal",
			arg:       "D4=0,15",
			wantAddr:  testSheet + "!D4",
			wantValue: 0.15,
		},
		{
			name:      "thousands separator",
			arg:       "D3=1.500,00",
			wantAddr:  testSheet + "!D3",
			wantValue: 1500.0,
		},
		{
			name:      "boolean",
			arg:       "D5=true",
			wantAddr:  testSheet + "!D5",
			wantValue: true,
		},
		{
			name:      "text value",
			arg:       "D6=cobre",
			wantAddr:  testSheet + "!D6",
			wantValue: "cobre",
		},
		{
			name:      "sheet name with equals sign",
			arg:       "A=B!C1=7",
			wantAddr:  "A=B!C1",
			wantValue: 7.0,
		},
		{
			name:    "formula rejected",
			arg:     "D3==SUM(A1:A2)",
			wantErr: true,
		},
		{
			name:    "missing value",
			arg:     "D3",
			wantErr: true,
		},
		{
			name:    "missing address",
			arg:     "=5",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addr, value, err := parseEdit(cfg, tt.arg)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseEdit(%q) succeeded with %q=%v", tt.arg, addr, value)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseEdit(%q): %v", tt.arg, err)
			}
			if addr != tt.wantAddr {
				t.Errorf("address = %q, want %q", addr, tt.wantAddr)
			}
			if value != tt.wantValue {
				t.Errorf("value = %#v, want %#v", value, tt.wantValue)
			}
		})
	}
}

func TestOutputsFlag(t *testing.T) {
	var f outputsFlag
	if err := f.Set("Economia=M12"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := f.Set("ROI=Resumo!B2"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if len(f) != 2 || f[0].Label != "Economia" || f[1].Address != "Resumo!B2" {
		t.Errorf("flag state = %+v", f)
	}
	if err := f.Set("semvalor"); err == nil {
		t.Error("value without '=' accepted")
	}
	if err := f.Set("=M12"); err == nil {
		t.Error("empty label accepted")
	}
	if f.String() != "Economia=M12,ROI=Resumo!B2" {
		t.Errorf("String() = %q", f.String())
	}
}

func TestRunCalcWithEdits(t *testing.T) {
	resetFlags(t)
	path := writeTestWorkbook(t)
	calcCells = []string{"M12"}

	if err := runCalc(calcCmd, []string{path, "D3=2.000,00"}); err != nil {
		t.Fatalf("runCalc: %v", err)
	}
}

func TestRunCalcExitsTwoOnEvalError(t *testing.T) {
	resetFlags(t)
	path := writeTestWorkbook(t)
	calcCells = []string{"N1"}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.SetCellFormula(testSheet, "N1", "XIRR(D3:D4)"); err != nil {
		t.Fatal(err)
	}
	if err := f.Save(); err != nil {
		t.Fatal(err)
	}
	f.Close()

	err = runCalc(calcCmd, []string{path})
	var exitErr *ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != 2 {
		t.Fatalf("got %v, want ExitError{2}", err)
	}
}

func TestRunCalcMissingSheet(t *testing.T) {
	resetFlags(t)
	path := writeTestWorkbook(t)
	flagSheet = "Inexistente"

	if err := runCalc(calcCmd, []string{path}); err == nil {
		t.Fatal("expected error for missing sheet")
	}
}
