package bdd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"

	colorKeyword = "\033[38;2;207;142;109m"
	colorText    = "\033[38;2;188;190;196m"
	colorParam   = "\033[38;2;92;146;255m"
	colorHeader  = "\033[38;2;199;125;187m"
	colorDim     = "\033[38;2;111;115;122m"
)

const (
	symbolPass      = "✓"
	symbolFail      = "✗"
	symbolSkip      = "-"
	symbolPending   = "?"
	symbolUndefined = "U"
	symbolAmbiguous = "A"
)

// Reporter receives execution events for one or more scenarios.
type Reporter interface {
	ScenarioStart(sc Scenario)
	StepFinished(result StepResult)
	ScenarioFinished(result ScenarioResult)

	// Flush writes buffered output, if any.
	Flush()
}

// ConsoleReporter prints scenario progress as text.
// A buffered reporter collects output until Flush so that scenarios running
// in parallel do not interleave.
type ConsoleReporter struct {
	out       io.Writer
	outMu     *sync.Mutex
	useColors bool
	buffered  bool
	buf       strings.Builder
}

// NewConsoleReporter creates a reporter that writes directly to out (stdout
// when nil).
func NewConsoleReporter(out io.Writer, useColors bool) *ConsoleReporter {
	if out == nil {
		out = os.Stdout
	}
	return &ConsoleReporter{out: out, outMu: &sync.Mutex{}, useColors: useColors}
}

// Buffered returns a reporter sharing r's writer that holds its output until
// Flush.
func (r *ConsoleReporter) Buffered() *ConsoleReporter {
	return &ConsoleReporter{out: r.out, outMu: r.outMu, useColors: r.useColors, buffered: true}
}

func (r *ConsoleReporter) write(s string) {
	if r.buffered {
		r.buf.WriteString(s)
		return
	}
	r.outMu.Lock()
	defer r.outMu.Unlock()
	_, _ = io.WriteString(r.out, s)
}

func (r *ConsoleReporter) writeln(s string) {
	r.write(s + "\n")
}

func (r *ConsoleReporter) color(c, s string) string {
	if r.useColors {
		return c + s + colorReset
	}
	return s
}

// ScenarioStart prints the scenario header with its feature and tags.
func (r *ConsoleReporter) ScenarioStart(sc Scenario) {
	r.writeln("")
	if len(sc.Tags) > 0 {
		r.writeln("  " + r.color(colorCyan, strings.Join(sc.Tags, " ")))
	}
	keyword := sc.Keyword
	if keyword == "" {
		keyword = "Scenario"
	}
	header := fmt.Sprintf("  %s %s", r.color(colorKeyword, keyword+":"), r.color(colorText, sc.Name))
	if sc.FeatureName != "" {
		header += r.color(colorDim, "  # "+sc.FeatureName)
	}
	r.writeln(header)
}

// StepFinished prints a step line with its status symbol, followed by the
// attached data table and any failure message.
func (r *ConsoleReporter) StepFinished(result StepResult) {
	var line string
	if result.Status == StepSkipped {
		line = fmt.Sprintf("    %s%s", r.color(colorDim, result.Keyword), r.color(colorDim, result.Text))
	} else {
		line = fmt.Sprintf("    %s%s", r.color(colorKeyword, result.Keyword), r.colorizeStepText(result.Text, result.MatchLocs))
	}
	r.writeln(fmt.Sprintf("%-60s %s", line, r.statusSymbol(result.Status)))

	r.dataTable(result.Table)

	if result.Error == "" {
		return
	}
	c := colorRed
	if result.Status == StepPending {
		c = colorYellow
	}
	for _, l := range strings.Split(result.Error, "\n") {
		r.writeln(r.color(c, "      "+l))
	}
}

// ScenarioFinished is a no-op for console output; scenario status is implied by
// its steps.
func (r *ConsoleReporter) ScenarioFinished(ScenarioResult) {}

// Flush writes buffered output atomically.
func (r *ConsoleReporter) Flush() {
	if !r.buffered || r.buf.Len() == 0 {
		return
	}
	r.outMu.Lock()
	defer r.outMu.Unlock()
	_, _ = io.WriteString(r.out, r.buf.String())
	r.buf.Reset()
}

func (r *ConsoleReporter) statusSymbol(s StepStatus) string {
	switch s {
	case StepPassed:
		return r.color(colorGreen, symbolPass)
	case StepFailed:
		return r.color(colorRed, symbolFail)
	case StepPending:
		return r.color(colorYellow, symbolPending)
	case StepUndefined:
		return r.color(colorYellow, symbolUndefined)
	case StepAmbiguous:
		return r.color(colorRed, symbolAmbiguous)
	default:
		return r.color(colorYellow, symbolSkip)
	}
}

// colorizeStepText highlights capture groups. matchLocs holds [start, end]
// byte offset pairs into text.
func (r *ConsoleReporter) colorizeStepText(text string, matchLocs []int) string {
	if !r.useColors || len(matchLocs) < 2 {
		return r.color(colorText, text)
	}

	var b strings.Builder
	prev := 0
	for i := 0; i+1 < len(matchLocs); i += 2 {
		start, end := matchLocs[i], matchLocs[i+1]
		if start < prev || end > len(text) || start >= end {
			continue
		}
		if start > prev {
			b.WriteString(colorText + text[prev:start] + colorReset)
		}
		b.WriteString(colorParam + text[start:end] + colorReset)
		prev = end
	}
	if prev < len(text) {
		b.WriteString(colorText + text[prev:] + colorReset)
	}
	return b.String()
}

func (r *ConsoleReporter) dataTable(rows [][]string) {
	if len(rows) == 0 {
		return
	}

	widths := make([]int, len(rows[0]))
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	pipe := r.color(colorKeyword, "|")
	for rowIdx, row := range rows {
		var b strings.Builder
		b.WriteString("      " + pipe + " ")
		for i, cell := range row {
			width := 0
			if i < len(widths) {
				width = widths[i]
			}
			c := colorParam
			if rowIdx == 0 {
				c = colorHeader
			}
			b.WriteString(r.color(c, fmt.Sprintf("%-*s", width, cell)) + " " + pipe + " ")
		}
		r.writeln(strings.TrimRight(b.String(), " "))
	}
}

// PrintSummary prints scenario and step counters.
func (r *ConsoleReporter) PrintSummary(s Summary) {
	r.writeln("")

	line := fmt.Sprintf("%d scenario(s)", s.ScenariosTotal)
	if parts := r.counts(
		count{s.ScenariosPassed, "passed", colorGreen},
		count{s.ScenariosFailed, "failed", colorRed},
		count{s.ScenariosPending, "pending", colorYellow},
	); parts != "" {
		line += " (" + parts + ")"
	}
	r.writeln(line)

	line = fmt.Sprintf("%d step(s)", s.StepsTotal)
	if parts := r.counts(
		count{s.StepsPassed, "passed", colorGreen},
		count{s.StepsFailed, "failed", colorRed},
		count{s.StepsPending, "pending", colorYellow},
		count{s.StepsUndefined, "undefined", colorYellow},
		count{s.StepsAmbiguous, "ambiguous", colorRed},
		count{s.StepsSkipped, "skipped", colorDim},
	); parts != "" {
		line += " (" + parts + ")"
	}
	r.writeln(line)
}

type count struct {
	n     int
	label string
	color string
}

func (r *ConsoleReporter) counts(cs ...count) string {
	var parts []string
	for _, c := range cs {
		if c.n > 0 {
			parts = append(parts, r.color(c.color, fmt.Sprintf("%d %s", c.n, c.label)))
		}
	}
	return strings.Join(parts, ", ")
}

type noopReporter struct{}

// NewNoopReporter creates a reporter that discards all output.
func NewNoopReporter() Reporter {
	return noopReporter{}
}

func (noopReporter) ScenarioStart(Scenario)          {}
func (noopReporter) StepFinished(StepResult)         {}
func (noopReporter) ScenarioFinished(ScenarioResult) {}
func (noopReporter) Flush()                          {}
