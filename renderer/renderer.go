package renderer

import (
	"embed"
	"fmt"
	"io/fs"
	"strings"
	"text/template"

	"github.com/etnz/buckets"
)

//go:embed templates/*.md
var templatesFS embed.FS

// templates holds the markdown templates, main files and partials.
var templates, _ = fs.Sub(templatesFS, "templates")

// reportPartials are the partials of the report, by template name.
var reportPartials = map[string]string{
	"report_title":     "report_title.md",
	"report_buckets":   "report_buckets.md",
	"report_table":     "report_table.md",
	"report_mergers":   "report_mergers.md",
	"report_inclusion": "report_inclusion.md",
}

// RenderAnalysis renders the full markdown report of an analysis.
func RenderAnalysis(a *buckets.Analysis) string {
	return RenderReport(NewReport(a))
}

// RenderReport renders a Report to a markdown string.
func RenderReport(r *Report) string {
	return renderTemplate("report", "report.md", reportPartials, r)
}

// renderTemplate is a generic utility to render a main template that depends on several partials.
func renderTemplate(templateName, mainFile string, partials map[string]string, data any) string {
	mainContent, err := fs.ReadFile(templates, mainFile)
	if err != nil {
		return fmt.Sprintf("error reading main template %q: %v", mainFile, err)
	}

	tmpl, err := template.New(templateName).Parse(string(mainContent))
	if err != nil {
		return fmt.Sprintf("error parsing main template %q: %v", mainFile, err)
	}

	for name, file := range partials {
		var content []byte
		// An empty file name is a valid case, resulting in an empty template.
		if file != "" {
			var readErr error
			content, readErr = fs.ReadFile(templates, file)
			if readErr != nil {
				return fmt.Sprintf("error reading partial template %q: %v", file, readErr)
			}
		}
		if _, err := tmpl.New(name).Parse(string(content)); err != nil {
			return fmt.Sprintf("error parsing partial template %q for %q: %v", file, name, err)
		}
	}

	var b strings.Builder
	if err := tmpl.ExecuteTemplate(&b, templateName, data); err != nil {
		return fmt.Sprintf("error executing template %q: %v", templateName, err)
	}
	return b.String()
}
