package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Printer renders a command result in the selected format.
type Printer struct {
	Format string
	Writer io.Writer
}

func (o *RootOptions) printer(w io.Writer) *Printer {
	return &Printer{Format: o.Format, Writer: w}
}

// Print writes data as JSON or YAML, or calls text for the text format.
// YAML keys follow the JSON tags of data.
func (p *Printer) Print(data interface{}, text func(io.Writer) error) error {
	switch p.Format {
	case "json":
		enc := json.NewEncoder(p.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case "yaml":
		raw, err := json.Marshal(data)
		if err != nil {
			return err
		}
		var generic interface{}
		if err := json.Unmarshal(raw, &generic); err != nil {
			return err
		}
		enc := yaml.NewEncoder(p.Writer)
		enc.SetIndent(2)
		if err := enc.Encode(generic); err != nil {
			return err
		}
		return enc.Close()
	default:
		if text == nil {
			_, err := fmt.Fprintf(p.Writer, "%v\n", data)
			return err
		}
		return text(p.Writer)
	}
}
