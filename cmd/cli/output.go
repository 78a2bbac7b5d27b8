package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"
)

const (
	outputTable = "table"
	outputJSON  = "json"
	outputYAML  = "yaml"
)

func validOutput(format string) error {
	switch format {
	case outputTable, outputJSON, outputYAML:
		return nil
	}
	return fmt.Errorf("unknown output format %q (table, json, yaml)", format)
}

// render writes v as JSON or YAML; table output is handled by the caller.
func render(w io.Writer, format string, v any) error {
	switch format {
	case outputYAML:
		// round-trip through JSON so YAML keys match the API's field names
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		var generic any
		if err := json.Unmarshal(b, &generic); err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(generic); err != nil {
			return err
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
}

func ok(w io.Writer, format string, a ...any) {
	fmt.Fprintln(w, color.GreenString("✓"), fmt.Sprintf(format, a...))
}

func warn(w io.Writer, format string, a ...any) {
	fmt.Fprintln(w, color.YellowString("!"), fmt.Sprintf(format, a...))
}

func statusColor(status string) string {
	switch status {
	case "completed":
		return color.GreenString(status)
	case "in_progress":
		return color.CyanString(status)
	case "dropped":
		return color.RedString(status)
	default:
		return color.New(color.Faint).Sprint(status)
	}
}

func progressText(current int, total *int, percent int) string {
	if total == nil {
		return fmt.Sprintf("%d", current)
	}
	return fmt.Sprintf("%d/%d (%d%%)", current, *total, percent)
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
