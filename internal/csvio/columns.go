package csvio

import "strings"

type column int

const (
	colCompany column = iota
	colURL
	colTitle
	colDescription
	colStatus
	colTimestamp
	numColumns
)

// headerNames maps normalized header cells to columns.
var headerNames = map[string]column{
	"companyname":    colCompany,
	"company":        colCompany,
	"joburl":         colURL,
	"url":            colURL,
	"link":           colURL,
	"jobtitle":       colTitle,
	"title":          colTitle,
	"position":       colTitle,
	"jobdescription": colDescription,
	"description":    colDescription,
	"status":         colStatus,
	"timestamp":      colTimestamp,
	"date":           colTimestamp,
	"created":        colTimestamp,
}

// columns holds the record index for each column, or -1 when absent.
type columns [numColumns]int

// positional is the export order.
var positional = columns{0, 1, 2, 3, 4, 5}

// mapColumns reads the header row. When it does not name both the company
// and URL columns, the positional layout is used.
func mapColumns(header []string) columns {
	var cols columns
	for i := range cols {
		cols[i] = -1
	}

	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\uFEFF")))
		key = strings.NewReplacer(" ", "", "_", "", "-", "").Replace(key)
		if c, ok := headerNames[key]; ok && cols[c] == -1 {
			cols[c] = i
		}
	}

	if cols[colCompany] == -1 || cols[colURL] == -1 {
		return positional
	}
	return cols
}

func (c columns) get(record []string, col column) string {
	i := c[col]
	if i < 0 || i >= len(record) {
		return ""
	}
	return record[i]
}
