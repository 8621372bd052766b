package render

import (
	"fmt"
	"html/template"
	"io"

	"github.com/olekukonko/tablewriter"

	"github.com/maintrack/maintrack/pkg/types"
)

var htmlTable = template.Must(template.New("table").Parse(
	`<h2>Data from {{.Table}}</h2>` +
		`<table border='1' style='width:100%; border-collapse:collapse;'>` +
		`<thead><tr>{{range .Columns}}<th>{{.}}</th>{{end}}</tr></thead>` +
		`<tbody>{{range .Rows}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>{{end}}</tbody>` +
		`</table>`))

// HTML writes v as a bordered HTML table preceded by a heading.
// Cell text is escaped.
func HTML(w io.Writer, v types.View) error {
	if err := htmlTable.Execute(w, v); err != nil {
		return fmt.Errorf("render: html %s: %w", v.Table, err)
	}
	return nil
}

// Text writes v as an ASCII table.
func Text(w io.Writer, v types.View) {
	table := tablewriter.NewWriter(w)
	table.SetHeader(v.Columns)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.AppendBulk(v.Rows)
	table.Render()
}
