package bdd

import (
	"fmt"
	"html"
	"html/template"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// statusSection groups scenarios of one outcome for the HTML report.
type statusSection struct {
	Label     string
	CSSClass  string
	Duration  time.Duration
	TagGroups []tagGroup
}

type tagGroup struct {
	TagLabel  string
	Scenarios []ScenarioResult
}

type reportData struct {
	ID            string
	Summary       Summary
	TotalDuration time.Duration
	ExecutedAt    time.Time
	Sections      []statusSection
}

// buildReportData orders sections failed, pending, passed and groups each by
// tag set.
func buildReportData(result RunResult) reportData {
	byStatus := map[ScenarioStatus][]ScenarioResult{}
	for _, s := range result.Scenarios {
		byStatus[s.Status] = append(byStatus[s.Status], s)
	}

	var sections []statusSection
	for _, st := range []struct {
		status ScenarioStatus
		label  string
	}{
		{ScenarioFailed, "Failed Scenarios"},
		{ScenarioPending, "Pending Scenarios"},
		{ScenarioPassed, "Passed Scenarios"},
	} {
		scenarios := byStatus[st.status]
		if len(scenarios) == 0 {
			continue
		}
		var total time.Duration
		for _, s := range scenarios {
			total += s.Duration
		}
		sections = append(sections, statusSection{
			Label:     st.label,
			CSSClass:  st.status.String(),
			Duration:  total,
			TagGroups: groupByTags(scenarios),
		})
	}

	return reportData{
		ID:            result.ID,
		Summary:       result.Summary,
		TotalDuration: result.Duration,
		ExecutedAt:    result.StartedAt,
		Sections:      sections,
	}
}

// groupByTags groups scenarios by sorted tag set; untagged scenarios go last.
func groupByTags(scenarios []ScenarioResult) []tagGroup {
	groups := make(map[string][]ScenarioResult)
	for _, s := range scenarios {
		key := tagKey(s.Scenario.Tags)
		groups[key] = append(groups[key], s)
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		if k != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	result := make([]tagGroup, 0, len(groups))
	for _, k := range keys {
		result = append(result, tagGroup{TagLabel: k, Scenarios: groups[k]})
	}
	if untagged, ok := groups[""]; ok {
		result = append(result, tagGroup{TagLabel: "Untagged", Scenarios: untagged})
	}
	return result
}

func tagKey(tags []string) string {
	sorted := append([]string(nil), tags...)
	sort.Strings(sorted)
	return strings.Join(sorted, ", ")
}

// stepTextHTML wraps captured parameters in highlighted spans.
func stepTextHTML(step StepResult) template.HTML {
	if len(step.MatchLocs) == 0 || step.Status == StepSkipped {
		return template.HTML(html.EscapeString(step.Text))
	}

	var b strings.Builder
	cursor := 0
	for i := 0; i+1 < len(step.MatchLocs); i += 2 {
		start, end := step.MatchLocs[i], step.MatchLocs[i+1]
		if start < cursor || end > len(step.Text) || start >= end {
			continue
		}
		b.WriteString(html.EscapeString(step.Text[cursor:start]))
		b.WriteString(`<span class="param">` + html.EscapeString(step.Text[start:end]) + `</span>`)
		cursor = end
	}
	b.WriteString(html.EscapeString(step.Text[cursor:]))
	return template.HTML(b.String())
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return fmt.Sprintf("%.0fµs", float64(d)/float64(time.Microsecond))
	case d < time.Second:
		return fmt.Sprintf("%.0fms", float64(d)/float64(time.Millisecond))
	default:
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
}

var reportTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"stepText":       stepTextHTML,
	"formatDuration": formatDuration,
	"formatTime": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("2006-01-02 15:04:05")
	},
}).Parse(htmlTemplate))

// WriteHTMLReport writes a self-contained HTML report to path, creating parent
// directories as needed.
func WriteHTMLReport(path string, result RunResult) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("could not create report directory %q: %w", dir, err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("could not create report file %q: %w", path, err)
	}
	defer f.Close()

	if err := reportTemplate.Execute(f, buildReportData(result)); err != nil {
		return fmt.Errorf("could not render HTML report: %w", err)
	}
	return nil
}

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>UPTRMS Scenario Report</title>
<style>
  body { font-family: -apple-system, "Segoe UI", Roboto, sans-serif; background: #f8f9fa; color: #212529; padding: 2rem; }
  h1 { font-size: 1.4rem; }
  .meta { color: #868e96; font-size: 0.8rem; margin-bottom: 1rem; }
  .summary span { margin-right: 1rem; font-weight: 600; }
  section { margin-top: 1.5rem; }
  section.failed h2 { color: #c92a2a; }
  section.pending h2 { color: #e67700; }
  section.passed h2 { color: #2b8a3e; }
  details { background: #fff; border: 1px solid #dee2e6; border-radius: 4px; margin: 0.4rem 0; padding: 0.4rem 0.8rem; }
  .tags { color: #1971c2; font-size: 0.8rem; }
  ol { list-style: none; padding-left: 1rem; }
  li.failed, li.ambiguous { color: #c92a2a; }
  li.undefined, li.pending { color: #e67700; }
  li.skipped { color: #adb5bd; }
  .param { color: #5c92ff; font-weight: 600; }
  .error { white-space: pre-wrap; font-family: monospace; font-size: 0.8rem; margin-left: 1.5rem; }
  .dur { color: #868e96; font-size: 0.75rem; float: right; }
  table.data { border-collapse: collapse; margin-left: 1.5rem; font-size: 0.8rem; }
  table.data td { border: 1px solid #dee2e6; padding: 0 0.4rem; }
</style>
</head>
<body>
<h1>UPTRMS Scenario Report</h1>
<div class="meta">run {{.ID}} · {{formatTime .ExecutedAt}} · {{formatDuration .TotalDuration}}</div>
<div class="summary">
  <span>{{.Summary.ScenariosTotal}} scenarios</span>
  <span>{{.Summary.ScenariosPassed}} passed</span>
  <span>{{.Summary.ScenariosFailed}} failed</span>
  <span>{{.Summary.ScenariosPending}} pending</span>
  <span>{{.Summary.StepsTotal}} steps</span>
</div>
{{range .Sections}}
<section class="{{.CSSClass}}">
  <h2>{{.Label}} <span class="dur">{{formatDuration .Duration}}</span></h2>
  {{range .TagGroups}}
  <h3 class="tags">{{.TagLabel}}</h3>
  {{range .Scenarios}}
  <details{{if ne .Status.String "passed"}} open{{end}}>
    <summary>{{.Scenario.FeatureName}}: {{.Scenario.Name}} <span class="dur">{{formatDuration .Duration}}</span></summary>
    <ol>
    {{range .Steps}}
      <li class="{{.Status}}"><b>{{.Keyword}}</b>{{stepText .}} <span class="dur">{{.Status}} {{formatDuration .Duration}}</span>
      {{if .Table}}<table class="data">{{range .Table}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>{{end}}</table>{{end}}
      {{if .Error}}<div class="error">{{.Error}}</div>{{end}}
      </li>
    {{end}}
    </ol>
  </details>
  {{end}}
  {{end}}
</section>
{{end}}
</body>
</html>
`
