// Package csvio reads and writes the job list as CSV.
//
// Exports always carry the full header:
//
//	companyName,jobUrl,jobTitle,jobDescription,status,timestamp
//
// Imports map columns by header name, so older five-column exports without
// jobTitle still line up. Unknown headers fall back to that positional order.
package csvio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/thewalkersoft/jobtracker/internal/schema"
)

// DateLayout is the timestamp format written on export (dd-MMM-yyyy).
const DateLayout = "02-Jan-2006"

// Header is the column order written on export.
var Header = []string{"companyName", "jobUrl", "jobTitle", "jobDescription", "status", "timestamp"}

// Accepted on import, tried in order after DateLayout.
var legacyLayouts = []string{
	"02-01-2006",
	"2006-01-02 15:04:05",
}

// minFields is the smallest row that can still describe a job.
const minFields = 4

var nowFunc = time.Now

// Row is one parsed import line.
type Row struct {
	CompanyName    string
	JobURL         string
	JobTitle       string
	JobDescription string
	Status         schema.Status
	// Timestamp is the creation time in epoch ms.
	Timestamp int64
	// Line is the 1-based line where the record starts.
	Line int
}

// Job builds a job from the row under the given id. LastModified is now, so
// an import counts as a fresh local edit.
func (r Row) Job(id int64, now time.Time) *schema.Job {
	return &schema.Job{
		ID:             id,
		CompanyName:    r.CompanyName,
		JobURL:         r.JobURL,
		JobTitle:       r.JobTitle,
		JobDescription: r.JobDescription,
		Status:         r.Status,
		Timestamp:      r.Timestamp,
		LastModified:   schema.NowMillis(now),
	}
}

// Stats summarizes an import.
type Stats struct {
	// Rows counts parsed data rows, skipped ones included.
	Rows int
	// Skipped counts rows that were too short or had no company or URL.
	Skipped int
}

// Encode writes the header and one row per job.
func Encode(w io.Writer, jobs []*schema.Job) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, job := range jobs {
		record := []string{
			job.CompanyName,
			job.JobURL,
			job.JobTitle,
			job.JobDescription,
			job.Status.String(),
			FormatDate(job.Timestamp),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write job %d: %w", job.ID, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return nil
}

// Decode parses an import file. The header row is mandatory.
//
// Short rows and rows without a company or URL are counted in Stats.Skipped
// rather than failing the import. Malformed status and date values fall back
// to SAVED and the current time.
func Decode(r io.Reader) ([]Row, Stats, error) {
	var stats Stats

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, stats, fmt.Errorf("missing header row")
	}
	if err != nil {
		return nil, stats, fmt.Errorf("failed to read header: %w", err)
	}
	cols := mapColumns(header)

	var rows []Row
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				stats.Rows++
				stats.Skipped++
				continue
			}
			return rows, stats, fmt.Errorf("failed to read csv: %w", err)
		}

		if isBlank(record) {
			continue
		}
		stats.Rows++

		if len(record) < minFields {
			stats.Skipped++
			continue
		}

		line, _ := cr.FieldPos(0)
		row := Row{
			CompanyName:    strings.TrimSpace(cols.get(record, colCompany)),
			JobURL:         strings.TrimSpace(cols.get(record, colURL)),
			JobTitle:       strings.TrimSpace(cols.get(record, colTitle)),
			JobDescription: cols.get(record, colDescription),
			Status:         schema.ParseStatus(cols.get(record, colStatus)),
			Timestamp:      ParseTimestamp(cols.get(record, colTimestamp)),
			Line:           line,
		}
		if row.CompanyName == "" || row.JobURL == "" {
			stats.Skipped++
			continue
		}
		rows = append(rows, row)
	}

	return rows, stats, nil
}

// FormatDate renders an epoch-ms timestamp as dd-MMM-yyyy in local time.
func FormatDate(ms int64) string {
	return time.UnixMilli(ms).In(time.Local).Format(DateLayout)
}

// ParseTimestamp reads an exported date, a legacy date or date-time, or a
// raw epoch-ms integer, in that order. Anything else yields the current time.
func ParseTimestamp(value string) int64 {
	value = strings.TrimSpace(value)
	if value == "" {
		return schema.NowMillis(nowFunc())
	}

	for _, layout := range append([]string{DateLayout}, legacyLayouts...) {
		if t, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return schema.NowMillis(t)
		}
	}

	if ms, err := strconv.ParseInt(value, 10, 64); err == nil {
		return ms
	}
	return schema.NowMillis(nowFunc())
}

// isBlank matches whitespace-only lines, which the csv reader returns as a
// single field.
func isBlank(record []string) bool {
	return len(record) == 1 && strings.TrimSpace(record[0]) == ""
}
