// Package report renders a triage result as a static HTML page.
package report

import (
	"fmt"
	"html/template"
	"io"

	"github.com/Masterminds/sprig/v3"

	"github.com/triage-tools/github-triage/internal/domain"
)

const reportTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Project}} review backlog</title>
<style>
body { font-family: sans-serif; margin: 2em auto; max-width: 60em; }
h2 { border-bottom: 1px solid #ddd; padding-bottom: 0.2em; }
p.age { color: #666; font-size: 0.9em; }
li { margin: 0.2em 0; }
</style>
</head>
<body>
<h1><a href="https://github.com/{{.Project}}/pulls">{{.Project}}</a> review backlog</h1>
<p>Generated {{.GeneratedAt | date "2006-01-02 15:04 MST"}} &mdash; {{.Total}} pull requests.</p>
{{- if and (eq .Total 0) (not .Unavailable)}}
<p>No pull requests in backlog!</p>
{{- end}}
{{- range .Groups}}
<h2>{{.Category.Title}} ({{len .PRs}})</h2>
<p class="age">median age {{round .MedianAgeDays 1}} days, p90 {{round .P90AgeDays 1}} days</p>
<ul>
{{- range .PRs}}
<li><a href="{{.HTMLURL}}">gh-{{.Number}}</a>: {{.Title}} ({{.Author}})</li>
{{- end}}
</ul>
{{- end}}
{{- if .Unavailable}}
<h2>Unavailable</h2>
<ul>
{{- range .Unavailable}}
<li>#{{.Number}}: {{.Reason}}</li>
{{- end}}
</ul>
{{- end}}
</body>
</html>
`

var reportTmpl = template.Must(template.New("report").Funcs(sprig.HtmlFuncMap()).Parse(reportTemplate))

// RenderHTML writes the report as a self-contained HTML page. Titles and
// failure reasons pass through html/template's contextual escaping.
func RenderHTML(w io.Writer, r *domain.Report) error {
	if err := reportTmpl.Execute(w, r); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	return nil
}
