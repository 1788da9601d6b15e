package dump

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"gopkg.in/yaml.v3"
)

// FormatOutput writes a dump in the requested format
func FormatOutput(w io.Writer, response *Response, format string) error {
	switch format {
	case "json":
		return formatJSON(w, response)
	case "yaml":
		return formatYAML(w, response)
	case "table":
		return formatTable(w, response)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

// formatTable formats records as a table
func formatTable(out io.Writer, response *Response) error {
	sb := response.Store.SuperBlock
	fmt.Fprintf(out, "Store: %s (%s)\n", response.Store.Path, response.Store.Mode)
	fmt.Fprintf(out, "Tree: root block %d, %d levels, %d nodes, %d records, page size %d\n\n",
		sb.RootBlock, sb.LevelCount, sb.NodeCount, sb.RecordCount, sb.PageSize)

	if len(response.Records) == 0 {
		fmt.Fprintln(out, "No records.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "FILENAME\tPROPERTY\tTYPE\tDESCRIPTION\tVALUE\n")
	fmt.Fprintf(w, "--------\t--------\t----\t-----------\t-----\n")
	for _, rec := range response.Records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			rec.Filename, rec.Property, rec.Type, rec.Description, rec.Display)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(out, "\n%s\n", FormatSummary(response))
	return nil
}

// formatJSON formats results as JSON
func formatJSON(w io.Writer, response *Response) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(response)
}

// formatYAML formats results as YAML
func formatYAML(w io.Writer, response *Response) error {
	encoder := yaml.NewEncoder(w)
	defer encoder.Close()
	encoder.SetIndent(2)
	return encoder.Encode(response)
}

// FormatSummary provides a brief summary for verbose output
func FormatSummary(response *Response) string {
	if response.Total == 0 {
		return "No records"
	}
	filenames := make(map[string]struct{})
	for _, rec := range response.Records {
		filenames[rec.Filename] = struct{}{}
	}
	summary := fmt.Sprintf("%d record", response.Total)
	if response.Total != 1 {
		summary += "s"
	}
	summary += fmt.Sprintf(" for %d entr", len(filenames))
	if len(filenames) == 1 {
		summary += "y"
	} else {
		summary += "ies"
	}
	return summary
}
