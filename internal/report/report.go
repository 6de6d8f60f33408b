package report

import (
	"fmt"
	"io"
	"strings"

	"gihan9a/docrepair/internal/patch"

	"github.com/fatih/color"
	"github.com/sergi/go-diff/diffmatchpatch"
)

var (
	appliedColor = color.New(color.FgGreen, color.Bold)
	skippedColor = color.New(color.FgYellow)
	failedColor  = color.New(color.FgRed, color.Bold)
	addedColor   = color.New(color.FgGreen)
	removedColor = color.New(color.FgRed)
)

// Write prints one status line per result followed by the summary counts.
// Dry-run results also get a line diff of the computed change.
func Write(w io.Writer, results []patch.Result) patch.Summary {
	for _, r := range results {
		writeStatus(w, r)
		if r.Before != nil || r.After != nil {
			WriteDiff(w, r.Before, r.After)
		}
	}

	summary := patch.Summarize(results)
	fmt.Fprintf(w, "\n%s applied, %s skipped, %s failed\n",
		appliedColor.Sprint(summary.Applied),
		skippedColor.Sprint(summary.Skipped),
		failedColor.Sprint(summary.Failed))
	return summary
}

func writeStatus(w io.Writer, r patch.Result) {
	// Pad before colouring, escape codes would count toward the width
	status := fmt.Sprintf("%-18s", r.Status)
	switch r.Status {
	case patch.StatusApplied:
		status = appliedColor.Sprint(status)
	case patch.StatusFailed:
		status = failedColor.Sprint(status)
	default:
		status = skippedColor.Sprint(status)
	}

	line := status + " " + r.Path
	if r.Kind != "" {
		line += fmt.Sprintf(" (%s)", r.Kind)
	}
	if r.Detail != "" {
		line += ": " + r.Detail
	}
	fmt.Fprintln(w, line)
}

// WriteDiff prints the lines removed from and added to a document
func WriteDiff(w io.Writer, before, after []byte) {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(string(before), string(after))
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	for _, d := range diffs {
		var prefix string
		var c *color.Color
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix, c = "-", removedColor
		case diffmatchpatch.DiffInsert:
			prefix, c = "+", addedColor
		default:
			continue
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			c.Fprint(w, "    "+prefix+" "+strings.TrimSuffix(line, "\n")+"\n")
		}
	}
}
