// Package config stores simulator settings in the user's config
// directory as plain JSON.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"

	"github.com/Fabianoeyes/Simulador-Economia-Circular-Verde/internal"
)

// Output names one workbook cell the simulator reports after a
// calculation.
type Output struct {
	Label   string `json:"label"`
	Address string `json:"address"`
}

// Config holds the user's settings. Every field is optional; accessors
// fill in the workbook family's conventions.
type Config struct {
	MainSheet      string   `json:"main_sheet,omitempty"`
	ThemeIndex     *int     `json:"theme_index,omitempty"`
	LabelColumn    string   `json:"label_column,omitempty"`
	Outputs        []Output `json:"outputs,omitempty"`
	PreferredFiles []string `json:"preferred_files,omitempty"`
}

const (
	defaultMainSheet   = "Simulador Eco Circ Verde"
	defaultThemeIndex  = 7
	defaultLabelColumn = "B"
)

// Sheet returns the configured main sheet name, or the default.
func (c Config) Sheet() string {
	if c.MainSheet != "" {
		return c.MainSheet
	}
	return defaultMainSheet
}

// Theme returns the theme color index that marks input cells.
func (c Config) Theme() int {
	if c.ThemeIndex != nil {
		return *c.ThemeIndex
	}
	return defaultThemeIndex
}

// LabelCol returns the 1-indexed column input labels are read from.
func (c Config) LabelCol() int {
	col := c.LabelColumn
	if col == "" {
		col = defaultLabelColumn
	}
	return internal.LetterToCol(col)
}

// OutputList returns the cells reported after a calculation. Addresses
// that carry no sheet are qualified with the main sheet.
func (c Config) OutputList() []Output {
	outputs := c.Outputs
	if len(outputs) == 0 {
		outputs = []Output{
			{Label: "Economia Total", Address: "M12"},
			{Label: "ROI", Address: "M13"},
			{Label: "Pontos Ecoa", Address: "M17"},
			{Label: "Impacto", Address: "M18"},
		}
	}
	qualified := make([]Output, len(outputs))
	for i, out := range outputs {
		if sheet, _ := internal.SplitSheet(out.Address); sheet == "" {
			out.Address = c.Sheet() + "!" + out.Address
		}
		qualified[i] = out
	}
	return qualified
}

// Preferred returns workbook file names tried first when locating a
// workbook in a directory.
func (c Config) Preferred() []string {
	if len(c.PreferredFiles) > 0 {
		return c.PreferredFiles
	}
	return []string{"simulador.xlsx"}
}

func dir() (string, error) {
	if d := os.Getenv("SIMULADOR_CONFIG_DIR"); d != "" {
		return d, nil
	}
	if d := os.Getenv("XDG_CONFIG_HOME"); d != "" {
		return filepath.Join(d, "simulador"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".config", "simulador"), nil
}

func path() (string, error) {
	d, err := dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, "config.json"), nil
}

// Load reads the stored config. A missing file is not an error and yields
// the zero config.
func Load() (Config, error) {
	var c Config
	p, err := path()
	if err != nil {
		return c, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return c, nil
		}
		return c, err
	}
	if err := json.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("parsing %s: %w", p, err)
	}
	return c, nil
}

// LoadFile reads a config from an explicit path. Unlike Load, the file
// must exist.
func LoadFile(p string) (Config, error) {
	var c Config
	data, err := os.ReadFile(p)
	if err != nil {
		return c, err
	}
	if err := json.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("parsing %s: %w", p, err)
	}
	return c, nil
}

// Save writes the config atomically via a temp file in the same
// directory.
func Save(c Config) error {
	p, err := path()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(filepath.Dir(p), "config-*.json")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if runtime.GOOS == "windows" {
		os.Remove(p)
	}
	if err := os.Rename(tmpName, p); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

// Delete removes the stored config. Deleting a config that does not exist
// is not an error.
func Delete() error {
	p, err := path()
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
