package main

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// reportFormat picks the output format from the file extension, falling
// back to the configured format.
func reportFormat(path, fallback string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return "json"
	case ".yaml", ".yml":
		return "yaml"
	}
	return fallback
}

func writeReport(w io.Writer, format string, v any) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(v), "report: encode json")
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return eris.Wrap(err, "report: encode yaml")
		}
		return eris.Wrap(enc.Close(), "report: close yaml encoder")
	default:
		return eris.Errorf("report: unsupported format %q", format)
	}
}

func writeReportFile(path, fallback string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "report: create file")
	}
	if err := writeReport(f, reportFormat(path, fallback), v); err != nil {
		f.Close() //nolint:errcheck
		return err
	}
	return eris.Wrap(f.Close(), "report: close file")
}
