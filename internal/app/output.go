package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/jkbrsn/pickcolor"
	"github.com/jkbrsn/pickcolor/internal/app/color"
)

const (
	formatAuto = "auto"
	formatJSON = "json"

	// JSONSchemaVersion is the schema version for JSON output
	JSONSchemaVersion = "1.0"
)

var (
	printValueTemp         = "%s: %s\n"
	printIndentedValueTemp = "  %s: %s\n"
)

type resultJSON struct {
	Schema      string     `json:"schema_version"`
	Type        string     `json:"type"`
	URI         string     `json:"uri"`
	Range       rangeJSON  `json:"range"`
	Original    string     `json:"original"`
	Replacement string     `json:"replacement,omitempty"`
	Outcome     string     `json:"outcome"`
	ExitCode    int        `json:"exit_code"`
	Applied     bool       `json:"applied"`
	DryRun      bool       `json:"dry_run,omitempty"`
	DurationMS  int64      `json:"duration_ms"`
	Error       string     `json:"error,omitempty"`
	Swatch      *colorJSON `json:"rgb,omitempty"`
}

type rangeJSON struct {
	Start pickcolor.Position `json:"start"`
	End   pickcolor.Position `json:"end"`
}

type colorJSON struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// buildResultJSON builds the JSON view of the last result.
func (c *Client) buildResultJSON() resultJSON {
	res := c.Result
	out := resultJSON{
		Schema:      JSONSchemaVersion,
		Type:        "result",
		URI:         res.URI,
		Original:    res.Original,
		Replacement: res.Replacement,
		Outcome:     res.Reason.String(),
		ExitCode:    res.ExitCode,
		Applied:     res.Applied,
		DryRun:      c.DryRun && res.Applied,
		DurationMS:  res.Duration.Milliseconds(),
	}
	if c.document != nil {
		out.Range = rangeJSON{
			Start: c.document.PositionAt(res.Range.Start),
			End:   c.document.PositionAt(res.Range.End),
		}
	}
	if res.Err != nil {
		out.Error = res.Err.Error()
	}
	if rgb, ok := color.Parse(res.Replacement); ok {
		out.Swatch = &colorJSON{R: rgb.R, G: rgb.G, B: rgb.B}
	}
	return out
}

// colorEnabled returns true if color output to f is enabled, based on both color mode and
// terminal detection.
func (c *Client) colorEnabled(f *os.File) bool {
	switch c.ColorMode {
	case "always":
		return true
	case "never":
		return false
	case "auto", "":
	default:
		return false
	}

	if _, disabled := os.LookupEnv("NO_COLOR"); disabled {
		return false
	}

	return isTerminal(f)
}

// colorize returns the text with c applied if color output is enabled.
func (c *Client) colorize(rgb color.RGB, text string) string {
	if !c.colorEnabled(os.Stdout) {
		return text
	}
	return rgb.Sprint(text)
}

// swatch returns a color sample for literal, or nothing when color output is disabled.
func (c *Client) swatch(literal string) string {
	if !c.colorEnabled(os.Stdout) {
		return ""
	}
	rgb, ok := color.Parse(literal)
	if !ok {
		return ""
	}
	return rgb.Swatch() + " "
}

// printJSONLine prints a JSON line.
func (*Client) printJSONLine(payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to marshal JSON output: %v\n", err)
		return
	}
	_, _ = os.Stdout.Write(append(data, '\n'))
}

// PrintResult prints the outcome of the last pick, with verbosity based on the flags passed to
// the program. If no pick has completed yet, the function errors.
func (c *Client) PrintResult() error {
	if c.Result == nil {
		return errors.New("no results have been produced")
	}

	if c.Format == formatJSON {
		c.printJSONLine(c.buildResultJSON())
		return nil
	}

	res := c.Result
	if c.Quiet {
		if res.Replacement != "" {
			fmt.Println(res.Replacement)
		}
		return nil
	}

	switch {
	case c.VerbosityLevel >= 1:
		c.printVerbose()
	default:
		status := res.Reason.String()
		switch {
		case res.Err != nil:
			status = c.colorize(color.Rose, "edit failed")
		case res.Applied && c.DryRun:
			status = "dry run"
		case res.Applied:
			status = "replaced"
		}
		if res.Replacement == "" {
			fmt.Printf(printValueTemp, c.colorize(color.Amber, "Color"),
				c.swatch(res.Original)+res.Original+" ("+status+")")
			return nil
		}
		fmt.Printf(printValueTemp, c.colorize(color.Amber, "Color"),
			c.swatch(res.Original)+res.Original+" -> "+c.swatch(res.Replacement)+res.Replacement+
				" ("+status+")")
	}
	return nil
}

// printVerbose prints every detail of the last result.
func (c *Client) printVerbose() {
	res := c.Result
	fmt.Println(c.colorize(color.Amber, "Document"))
	fmt.Printf(printIndentedValueTemp, c.colorize(color.TeaGreen, "URI"), res.URI)
	if c.document != nil {
		start := c.document.PositionAt(res.Range.Start)
		fmt.Printf(printIndentedValueTemp, c.colorize(color.TeaGreen, "Position"),
			fmt.Sprintf("%d:%d", start.Line+1, start.Character+1))
	}
	fmt.Printf(printIndentedValueTemp, c.colorize(color.TeaGreen, "Range"), res.Range)

	fmt.Println(c.colorize(color.Amber, "Picker"))
	fmt.Printf(printIndentedValueTemp, c.colorize(color.TeaGreen, "Seed"),
		c.swatch(res.Original)+res.Original)
	fmt.Printf(printIndentedValueTemp, c.colorize(color.TeaGreen, "Outcome"), res.Reason)
	fmt.Printf(printIndentedValueTemp, c.colorize(color.TeaGreen, "Exit code"),
		fmt.Sprint(res.ExitCode))
	fmt.Printf(printIndentedValueTemp, c.colorize(color.TeaGreen, "Open for"),
		formatDuration(res.Duration))

	fmt.Println(c.colorize(color.Amber, "Edit"))
	replacement := "-"
	if res.Replacement != "" {
		replacement = c.swatch(res.Replacement) + res.Replacement
	}
	fmt.Printf(printIndentedValueTemp, c.colorize(color.TeaGreen, "Replacement"), replacement)
	fmt.Printf(printIndentedValueTemp, c.colorize(color.TeaGreen, "Applied"),
		fmt.Sprint(res.Applied))
	if c.DryRun {
		fmt.Printf(printIndentedValueTemp, c.colorize(color.TeaGreen, "Dry run"), "true")
	}
	if res.Err != nil {
		fmt.Printf(printIndentedValueTemp, c.colorize(color.Rose, "Error"), res.Err)
	}
}
