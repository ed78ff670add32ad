package csvio

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/thewalkersoft/jobtracker/internal/schema"
)

func fixedNow(t *testing.T, now time.Time) {
	t.Helper()
	orig := nowFunc
	nowFunc = func() time.Time { return now }
	t.Cleanup(func() { nowFunc = orig })
}

func TestEncode(t *testing.T) {
	created := time.Date(2024, time.March, 5, 15, 0, 0, 0, time.Local)
	jobs := []*schema.Job{
		{
			ID:             1,
			CompanyName:    "Acme, Inc.",
			JobURL:         "https://jobs.example/1",
			JobTitle:       "Engineer",
			JobDescription: "Line one\nShe said \"hi\"",
			Status:         schema.StatusInterviewRejected,
			Timestamp:      schema.NowMillis(created),
		},
	}

	var buf bytes.Buffer
	if err := Encode(&buf, jobs); err != nil {
		t.Fatalf("Encode() failed: %v", err)
	}

	want := "companyName,jobUrl,jobTitle,jobDescription,status,timestamp\n" +
		"\"Acme, Inc.\",https://jobs.example/1,Engineer,\"Line one\nShe said \"\"hi\"\"\",INTERVIEW_REJECTED,05-Mar-2024\n"
	if buf.String() != want {
		t.Errorf("Encode() =\n%s\nwant\n%s", buf.String(), want)
	}
}

func TestRoundTrip(t *testing.T) {
	jobs := []*schema.Job{
		schema.NewJob(1, "https://jobs.example/1", "Acme, Inc.", "Dev", "multi\nline, with \"quotes\"", time.Now()),
		schema.NewJob(2, "https://jobs.example/2", "Beta", "", "", time.Now()),
	}
	jobs[1].Status = schema.StatusOffer

	var buf bytes.Buffer
	if err := Encode(&buf, jobs); err != nil {
		t.Fatalf("Encode() failed: %v", err)
	}

	rows, stats, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode() failed: %v", err)
	}
	if stats.Skipped != 0 || len(rows) != 2 {
		t.Fatalf("Decode() = %d rows, stats %+v", len(rows), stats)
	}

	for i, row := range rows {
		job := jobs[i]
		if row.CompanyName != job.CompanyName || row.JobURL != job.JobURL ||
			row.JobTitle != job.JobTitle || row.JobDescription != job.JobDescription ||
			row.Status != job.Status {
			t.Errorf("row %d = %+v, want %+v", i, row, job)
		}
		if FormatDate(row.Timestamp) != FormatDate(job.Timestamp) {
			t.Errorf("row %d date = %s, want %s", i, FormatDate(row.Timestamp), FormatDate(job.Timestamp))
		}
	}
}

func TestDecode_LegacyHeader(t *testing.T) {
	input := "companyName,jobUrl,jobDescription,status,timestamp\n" +
		"Acme,https://jobs.example/1,Build things,REJECTED,05-Mar-2024\n"

	rows, _, err := Decode(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Decode() failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	row := rows[0]
	if row.JobTitle != "" || row.JobDescription != "Build things" {
		t.Errorf("columns misaligned: %+v", row)
	}
	if row.Status != schema.StatusResumeRejected {
		t.Errorf("status = %s, want RESUME_REJECTED", row.Status)
	}
}

func TestDecode_PositionalWhenHeaderUnknown(t *testing.T) {
	input := "a,b,c,d,e,f\nAcme,https://jobs.example/1,Dev,Desc,offer,\n"

	rows, _, err := Decode(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Decode() failed: %v", err)
	}
	if len(rows) != 1 || rows[0].JobTitle != "Dev" || rows[0].Status != schema.StatusOffer {
		t.Errorf("Decode() = %+v", rows)
	}
}

func TestDecode_SkipsShortAndKeylessRows(t *testing.T) {
	input := "companyName,jobUrl,jobTitle,jobDescription,status,timestamp\n" +
		"Acme,https://jobs.example/1,Dev\n" +
		"\n" +
		",https://jobs.example/2,Dev,Desc,SAVED,\n" +
		"Beta,  ,Dev,Desc,SAVED,\n" +
		"Gamma,https://jobs.example/3,Dev,Desc,SAVED,\n"

	rows, stats, err := Decode(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Decode() failed: %v", err)
	}
	if len(rows) != 1 || rows[0].CompanyName != "Gamma" {
		t.Errorf("rows = %+v", rows)
	}
	if stats.Skipped != 3 || stats.Rows != 4 {
		t.Errorf("stats = %+v, want 4 rows with 3 skipped", stats)
	}
}

func TestDecode_MissingHeader(t *testing.T) {
	if _, _, err := Decode(strings.NewReader("")); err == nil {
		t.Error("expected error for empty input")
	}
}

func TestParseTimestamp(t *testing.T) {
	now := time.Date(2025, time.January, 2, 3, 4, 5, 0, time.Local)
	fixedNow(t, now)

	tests := []struct {
		in   string
		want time.Time
	}{
		{"05-Mar-2024", time.Date(2024, time.March, 5, 0, 0, 0, 0, time.Local)},
		{"05-03-2024", time.Date(2024, time.March, 5, 0, 0, 0, 0, time.Local)},
		{"2024-03-05 14:30:00", time.Date(2024, time.March, 5, 14, 30, 0, 0, time.Local)},
		{"1709650000000", time.UnixMilli(1709650000000)},
		{"not a date", now},
		{"", now},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseTimestamp(tt.in); got != schema.NowMillis(tt.want) {
				t.Errorf("ParseTimestamp(%q) = %d, want %d", tt.in, got, schema.NowMillis(tt.want))
			}
		})
	}
}

func TestRow_Job(t *testing.T) {
	now := time.UnixMilli(5000)
	row := Row{CompanyName: "Acme", JobURL: "u", Status: schema.StatusApplied, Timestamp: 1000}

	job := row.Job(7, now)
	if job.ID != 7 || job.Timestamp != 1000 || job.LastModified != 5000 {
		t.Errorf("Job() = %+v", job)
	}
	if err := job.Validate(); err != nil {
		t.Errorf("Validate() failed: %v", err)
	}
}
