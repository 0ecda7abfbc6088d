package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/pterm/pterm"
	"gopkg.in/yaml.v3"

	"github.com/teranos/uniassoc/errors"
)

// Output formats accepted by --format.
const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

// render writes v as JSON or YAML, or as the table built by rows.
// rows is only called for the table format; its first row is the header.
func render(w io.Writer, format string, v interface{}, rows func() [][]string) error {
	switch format {
	case formatJSON:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return errors.Wrap(err, "failed to marshal JSON")
		}
		fmt.Fprintln(w, string(data))
	case formatYAML:
		data, err := yaml.Marshal(v)
		if err != nil {
			return errors.Wrap(err, "failed to marshal YAML")
		}
		fmt.Fprint(w, string(data))
	case formatTable, "":
		return printTable(w, rows())
	default:
		return errors.NewInvalidRequestError("unsupported format: %s (supported: table, json, yaml)", format)
	}
	return nil
}

func printTable(w io.Writer, rows [][]string) error {
	if len(rows) <= 1 {
		fmt.Fprintln(w, "(none)")
		return nil
	}
	out, err := pterm.DefaultTable.WithHasHeader().WithData(rows).Srender()
	if err != nil {
		return errors.Wrap(err, "failed to render table")
	}
	fmt.Fprintln(w, out)
	return nil
}

// countRows renders a type -> count map sorted by type.
func countRows(header string, counts map[string]int) [][]string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rows := [][]string{{header, "Count"}}
	for _, k := range keys {
		rows = append(rows, []string{k, strconv.Itoa(counts[k])})
	}
	return rows
}

// listRows renders one value per row.
func listRows(header string, values []string) [][]string {
	rows := [][]string{{header}}
	for _, v := range values {
		rows = append(rows, []string{v})
	}
	return rows
}
