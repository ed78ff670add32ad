package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/thewalkersoft/jobtracker/internal/schema"
	jobsync "github.com/thewalkersoft/jobtracker/internal/sync"
	"github.com/thewalkersoft/jobtracker/internal/tracker"
)

// JobUpdateData contains job change information
type JobUpdateData struct {
	ID          int64  `json:"id"`
	Action      string `json:"action"` // saved, deleted
	CompanyName string `json:"company_name"`
	JobTitle    string `json:"job_title,omitempty"`
	JobURL      string `json:"job_url"`
	Status      string `json:"status,omitempty"`
}

// SyncCompleteData contains sync pass counters
type SyncCompleteData struct {
	Uploaded   int    `json:"uploaded"`
	Downloaded int    `json:"downloaded"`
	Updated    int    `json:"updated"`
	Conflicts  int    `json:"conflicts"`
	Failed     int    `json:"failed"`
	Summary    string `json:"summary"`
}

// ImportCompleteData contains CSV import counters
type ImportCompleteData struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

// StatsData contains job statistics
type StatsData struct {
	Total    int            `json:"total"`
	ByStatus map[string]int `json:"by_status"`
}

// Watcher streams job list snapshots. *db.DB satisfies it.
type Watcher interface {
	Watch(ctx context.Context) (<-chan []*schema.Job, error)
}

// Handler turns tracker events into dashboard messages.
type Handler struct {
	server *Server
	logger *log.Logger

	statsMu sync.Mutex
	stats   StatsData
}

var _ tracker.Notifier = (*Handler)(nil)

// NewHandler creates a new event handler connected to a dashboard server
func NewHandler(server *Server, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.Default()
	}

	return &Handler{
		server: server,
		logger: logger,
		stats:  StatsData{ByStatus: make(map[string]int)},
	}
}

// OnJobSaved handles job creation and update events
func (h *Handler) OnJobSaved(job *schema.Job) {
	h.broadcast(MessageTypeJobUpdate, JobUpdateData{
		ID:          job.ID,
		Action:      "saved",
		CompanyName: job.CompanyName,
		JobTitle:    job.JobTitle,
		JobURL:      job.JobURL,
		Status:      job.Status.String(),
	})
}

// OnJobDeleted handles job deletion events
func (h *Handler) OnJobDeleted(job *schema.Job) {
	h.broadcast(MessageTypeJobUpdate, JobUpdateData{
		ID:          job.ID,
		Action:      "deleted",
		CompanyName: job.CompanyName,
		JobURL:      job.JobURL,
	})
}

// OnSyncComplete handles sync completion events
func (h *Handler) OnSyncComplete(result jobsync.Result) {
	h.logger.Printf("Sync complete: %s", result)
	h.broadcast(MessageTypeSyncComplete, SyncCompleteData{
		Uploaded:   result.Uploaded,
		Downloaded: result.Downloaded,
		Updated:    result.Updated,
		Conflicts:  result.Conflicts,
		Failed:     result.Failed,
		Summary:    tracker.SyncSummary(result),
	})
}

// OnImportComplete handles CSV import events
func (h *Handler) OnImportComplete(imported, skipped int) {
	h.logger.Printf("Import complete: %d imported, %d skipped", imported, skipped)
	h.broadcast(MessageTypeImportComplete, ImportCompleteData{Imported: imported, Skipped: skipped})
}

// UpdateStats recomputes statistics from a full job list and broadcasts them
func (h *Handler) UpdateStats(jobs []*schema.Job) {
	stats := StatsData{Total: len(jobs), ByStatus: make(map[string]int)}
	for _, job := range jobs {
		stats.ByStatus[job.Status.String()]++
	}

	h.statsMu.Lock()
	h.stats = stats
	h.statsMu.Unlock()

	h.broadcast(MessageTypeStats, stats)
}

// GetStats returns the current statistics
func (h *Handler) GetStats() StatsData {
	h.statsMu.Lock()
	defer h.statsMu.Unlock()

	out := StatsData{Total: h.stats.Total, ByStatus: make(map[string]int, len(h.stats.ByStatus))}
	for k, v := range h.stats.ByStatus {
		out.ByStatus[k] = v
	}
	return out
}

// Follow keeps statistics current from the store's snapshot stream until
// ctx is done.
func (h *Handler) Follow(ctx context.Context, src Watcher) error {
	snapshots, err := src.Watch(ctx)
	if err != nil {
		return fmt.Errorf("failed to watch jobs: %w", err)
	}

	for jobs := range snapshots {
		h.UpdateStats(jobs)
	}
	return nil
}

func (h *Handler) broadcast(typ MessageType, data interface{}) {
	dataJSON, err := json.Marshal(data)
	if err != nil {
		h.logger.Printf("Failed to marshal %s data: %v", typ, err)
		return
	}

	h.server.Broadcast(Message{
		Type:      typ,
		Timestamp: time.Now(),
		Data:      dataJSON,
	})
}
