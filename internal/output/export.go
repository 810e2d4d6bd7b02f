package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// PrintJSONReport writes sum as indented JSON.
func PrintJSONReport(w io.Writer, sum Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(sum)
}

// PrintYAMLReport writes sum as YAML.
func PrintYAMLReport(w io.Writer, sum Summary) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(sum); err != nil {
		return err
	}
	return enc.Close()
}

// WriteReportFile writes sum to path in the format its extension names:
// .json, .yaml/.yml or .html.
func WriteReportFile(path string, sum Summary) error {
	var write func(io.Writer, Summary) error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		write = PrintJSONReport
	case ".yaml", ".yml":
		write = PrintYAMLReport
	case ".html":
		write = GenerateHTMLReport
	default:
		return fmt.Errorf("unsupported report format %q", filepath.Ext(path))
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	if err := write(f, sum); err != nil {
		f.Close()
		return fmt.Errorf("write report: %w", err)
	}
	return f.Close()
}
