package tracker

import (
	"github.com/thewalkersoft/jobtracker/internal/schema"
	jobsync "github.com/thewalkersoft/jobtracker/internal/sync"
)

// Notifier is told about changes after they commit locally. Calls are made
// with the tracker lock held and must not call back into the tracker.
type Notifier interface {
	OnJobSaved(job *schema.Job)
	OnJobDeleted(job *schema.Job)
	OnSyncComplete(result jobsync.Result)
	OnImportComplete(imported, skipped int)
}

// NopNotifier ignores every event.
type NopNotifier struct{}

func (NopNotifier) OnJobSaved(*schema.Job)                 {}
func (NopNotifier) OnJobDeleted(*schema.Job)               {}
func (NopNotifier) OnSyncComplete(jobsync.Result)          {}
func (NopNotifier) OnImportComplete(imported, skipped int) {}
