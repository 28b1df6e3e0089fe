package workspace

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"sort"
	"strings"

	"github.com/russross/blackfriday/v2"

	"github.com/lewtec/yolomark/internal/index"
)

var (
	//go:embed templates/*
	templateFS embed.FS

	templateManager *TemplateManager = nil

	// TemplateFuncMap contains custom template functions available globally
	TemplateFuncMap = template.FuncMap{
		"add": func(a, b int) int { return a + b },
		"markdown": func(text string) template.HTML {
			// Convert markdown to HTML using blackfriday v2
			return template.HTML(blackfriday.Run([]byte(text)))
		},
	}
)

func init() {
	templateManager = NewTemplateManager()
	templateManager.AddFuncMap(TemplateFuncMap)
	if err := templateManager.LoadFromFS(templateFS); err != nil {
		panic(err)
	}
}

// ClassRow is one line of the per-class distribution table.
type ClassRow struct {
	ID    int
	Name  string
	Count int
}

// ReportData is everything the dataset report page needs.
type ReportData struct {
	Title      string
	Stats      index.Stats
	Classes    []ClassRow
	Validation *Report
	Duplicates [][]string
	Summary    string
}

// BuildReportData assembles the report from a rebuilt index, the per-class
// annotation counts, an optional validation pass and the content-duplicate
// groups from FindDuplicates.
func BuildReportData(stats index.Stats, counts map[int]int, classes []string, validation *Report, dupes map[string][]string) ReportData {
	data := ReportData{
		Title:      "Dataset report",
		Stats:      stats,
		Validation: validation,
	}
	for _, id := range SortedClassIDs(counts) {
		data.Classes = append(data.Classes, ClassRow{ID: id, Name: ClassName(classes, id), Count: counts[id]})
	}
	for _, members := range dupes {
		data.Duplicates = append(data.Duplicates, members)
	}
	sort.Slice(data.Duplicates, func(i, j int) bool {
		return data.Duplicates[i][0] < data.Duplicates[j][0]
	})
	data.Summary = buildSummary(data)
	return data
}

// buildSummary writes the headline numbers as markdown; the template pipes
// it through the markdown function.
func buildSummary(data ReportData) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**%d** images, **%d** annotated, **%d** boxes across **%d** classes.\n",
		data.Stats.TotalImages, data.Stats.Annotated, data.Stats.TotalBoxes, len(data.Stats.ClassesUsed))
	if unannotated := data.Stats.TotalImages - data.Stats.Annotated; unannotated > 0 {
		fmt.Fprintf(&b, "\n%d images still need annotations.\n", unannotated)
	}
	if v := data.Validation; v != nil && (v.MalformedRemoved > 0 || v.ValuesClamped > 0 || v.BadClassIDs > 0) {
		fmt.Fprintf(&b, "\nValidation flagged **%d** malformed lines, **%d** clamped boxes and **%d** out-of-range class IDs.\n",
			v.MalformedRemoved, v.ValuesClamped, v.BadClassIDs)
	}
	if len(data.Duplicates) > 0 {
		fmt.Fprintf(&b, "\n**%d** groups of images have byte-identical content.\n", len(data.Duplicates))
	}
	return b.String()
}

// RenderReport writes the HTML dataset report.
func RenderReport(w io.Writer, data ReportData) error {
	return templateManager.Render(w, "pages/report.html", data)
}
