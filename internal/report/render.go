package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"
)

var (
	headerColor = color.New(color.FgBlue, color.Bold)
	labelColor  = color.New(color.FgWhite, color.Bold)
	dimColor    = color.New(color.FgHiBlack)
)

func renderText(w io.Writer, r *Report) error {
	var b strings.Builder

	if len(r.Functions) > 0 {
		headerColor.Fprintln(&b, "▸ Functions")
		for _, f := range r.Functions {
			labelColor.Fprintf(&b, "  %s", f.Name)
			dimColor.Fprintf(&b, " [%s]", f.Mode)
			if len(f.Updates) > 0 {
				fmt.Fprintf(&b, " updates %s", strings.Join(f.Updates, ", "))
			}
			b.WriteByte('\n')
		}
	}

	if len(r.Calls) > 0 {
		headerColor.Fprintln(&b, "▸ Calls")
		for _, c := range r.Calls {
			labelColor.Fprintf(&b, "  #%d %s", c.Seq, c.Function)
			fmt.Fprintf(&b, " -> %s", joinValues(c.Outputs, false))
			if len(c.Updated) > 0 {
				dimColor.Fprintf(&b, " | %s", joinValues(c.Updated, true))
			}
			b.WriteByte('\n')
		}
	}

	headerColor.Fprintln(&b, "▸ Cells")
	if len(r.Cells) == 0 {
		dimColor.Fprintln(&b, "  (none)")
	}
	for _, c := range r.Cells {
		labelColor.Fprintf(&b, "  %s", c.Name)
		fmt.Fprintf(&b, " = %s", formatValue(c.Value))
		if c.DefaultUpdate != "" {
			dimColor.Fprintf(&b, " (default %s)", c.DefaultUpdate)
		}
		b.WriteByte('\n')
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func joinValues(vs []Value, named bool) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = formatValue(v)
		if named && v.Name != "" {
			parts[i] = v.Name + "=" + parts[i]
		}
	}
	return strings.Join(parts, ", ")
}

func formatValue(v Value) string {
	return fmt.Sprintf("%s %s", formatData(v.Data), v.DType)
}

func formatData(d any) string {
	xs, ok := d.([]any)
	if !ok {
		return fmt.Sprint(d)
	}
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = formatData(x)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func renderJSON(w io.Writer, r *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

func renderYAML(w io.Writer, r *Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return err
	}
	return enc.Close()
}
