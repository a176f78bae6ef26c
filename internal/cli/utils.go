// Package cli provides CLI output helpers for ruiji.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/hyperjump/ruiji/internal/models"
	"github.com/hyperjump/ruiji/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputCompact prints one "weight<TAB>key" line per result.
	OutputCompact OutputFormat = "compact"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// keyWidth bounds displayed keys in text output.
const keyWidth = 72

// ParseFormat maps a flag value to an OutputFormat.
func ParseFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case "", OutputText:
		return OutputText, nil
	case OutputCompact, OutputJSON:
		return OutputFormat(s), nil
	default:
		return "", fmt.Errorf("unknown output format %q (use text, compact or json)", s)
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteResults writes a similarity response to w in the given format.
func WriteResults(w io.Writer, response *models.SimilarResponse, format OutputFormat) error {
	switch format {
	case OutputJSON:
		return writeJSON(w, response)
	case OutputCompact:
		for _, r := range response.Results {
			fmt.Fprintf(w, "%.6f\t%s\n", r.Weight, r.Key)
		}
		return nil
	default:
		writeResultsText(w, response)
		return nil
	}
}

func writeResultsText(w io.Writer, response *models.SimilarResponse) {
	fmt.Fprintf(w, "\nQuery: %s\n", utils.TruncateLeft(response.Query, keyWidth))
	fmt.Fprintf(w, "Found %d results among %d candidates in %dms\n\n",
		len(response.Results), response.Candidates, response.QueryTime)
	for i, r := range response.Results {
		fmt.Fprintf(w, "%3d. %.4f  %s\n", i+1, r.Weight, utils.TruncateLeft(r.Key, keyWidth))
	}
	if len(response.Results) > 0 {
		fmt.Fprintln(w)
	}
}

// PrintResults prints a similarity response to stdout in text format.
func PrintResults(response *models.SimilarResponse) {
	_ = WriteResults(os.Stdout, response, OutputText)
}

// WriteWarm writes a warm (or rebuild) report.
func WriteWarm(w io.Writer, resp *models.WarmResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, resp)
	}
	fmt.Fprintf(w, "Requested: %d  Missing: %d  Embedded: %d  Failed: %d  Appended: %d  (%dms)\n",
		resp.Requested, resp.Missing, resp.Embedded, resp.Failed, resp.Appended, resp.Took)
	return nil
}

// WriteStatus writes the store status.
func WriteStatus(w io.Writer, status *models.StatusResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, status)
	}
	fmt.Fprintf(w, "Images:      %d\n", status.Images)
	fmt.Fprintf(w, "Dimensions:  %d\n", status.Dimensions)
	fmt.Fprintf(w, "Array:       %s\n", status.ArrayPath)
	fmt.Fprintf(w, "Keys:        %s\n", status.KeysPath)
	fmt.Fprintf(w, "Disk usage:  %s\n", FormatBytes(status.DiskUsageBytes))
	if len(status.Events) > 0 {
		fmt.Fprintf(w, "Embedded:    %d\n", status.Events[string(models.StatusEmbedded)])
		fmt.Fprintf(w, "Failed:      %d\n", status.Events[string(models.StatusFailed)])
	}
	return nil
}

// WriteFailures writes failed embedding events, newest first.
func WriteFailures(w io.Writer, events []*models.EmbeddingEvent, format OutputFormat) error {
	if format == OutputJSON {
		if events == nil {
			events = []*models.EmbeddingEvent{}
		}
		return writeJSON(w, map[string]interface{}{"failures": events, "total": len(events)})
	}
	if len(events) == 0 {
		fmt.Fprintln(w, "No failed embeddings.")
		return nil
	}
	for _, ev := range events {
		fmt.Fprintf(w, "%s  %s\n    %s\n",
			ev.CreatedAt.Local().Format(time.DateTime),
			utils.TruncateLeft(ev.Key, keyWidth),
			utils.Truncate(ev.Reason, 200))
	}
	return nil
}

// FormatBytes renders n in the largest binary unit that keeps it >= 1.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
