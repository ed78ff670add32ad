// Package schema defines the job record shared by the local store, the
// spreadsheet endpoint, CSV files and backups.
//
// # Job
//
// A Job is a flat record keyed by JobURL:
//
//	{
//	  "id": 12,
//	  "companyName": "Acme",
//	  "jobUrl": "https://www.linkedin.com/jobs/view/123",
//	  "jobTitle": "Backend Engineer",
//	  "jobDescription": "...",
//	  "status": "APPLIED",
//	  "timestamp": 1736500000000,
//	  "lastModified": 1736600000000
//	}
//
// Timestamps are epoch milliseconds. Timestamp is the creation time and never
// changes; LastModified is bumped on every local mutation and decides which
// side wins when the same URL differs between stores.
//
// # Statuses
//
// The status vocabulary is SAVED, APPLIED, INTERVIEWING, OFFER,
// RESUME_REJECTED and INTERVIEW_REJECTED. Older data used a single REJECTED
// label, which ParseStatus maps to RESUME_REJECTED. ParseStatus never fails:
//
//	schema.ParseStatus("interview-rejected") // INTERVIEW_REJECTED
//	schema.ParseStatus("rejected")           // RESUME_REJECTED
//	schema.ParseStatus("ghosted")            // SAVED
//
// JSON decoding uses the same lenient parser.
package schema
