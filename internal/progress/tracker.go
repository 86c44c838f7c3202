// Package progress derives notification-worthy snapshots from running
// plans. Per-plan notification state is in-memory only and lost on
// restart, an accepted trade-off.
package progress

import (
	"fmt"
	"sync"
	"time"

	"github.com/brightdesk/workflow/pkg/models"
)

// Tracker decides when plan progress is worth telling the user about.
type Tracker struct {
	// threshold is the minimum percentage-point advance before a new
	// notification is warranted.
	threshold int
	// staleness is how long a plan may run silent before a keepalive
	// notification goes out.
	staleness time.Duration

	mu    sync.Mutex
	plans map[string]*planState
	now   func() time.Time
}

// planState is the per-plan notification bookkeeping.
type planState struct {
	lastNotifiedPercent int
	lastNotifyTime      time.Time
	failureSeen         bool
	completionSeen      bool
}

// NewTracker creates a Tracker with the given thresholds. Non-positive
// values fall back to the defaults of 25 points and 60 seconds.
func NewTracker(threshold int, staleness time.Duration) *Tracker {
	if threshold <= 0 {
		threshold = 25
	}
	if staleness <= 0 {
		staleness = 60 * time.Second
	}
	return &Tracker{
		threshold: threshold,
		staleness: staleness,
		plans:     make(map[string]*planState),
		now:       time.Now,
	}
}

// Update inspects the plan and returns a report when a notification is
// warranted, nil otherwise. Notifications fire when progress advanced at
// least the threshold since the last notice, when the staleness window
// elapsed with the plan unfinished, or unconditionally on completion and
// on the first failure.
func (tr *Tracker) Update(p *models.ExecutionPlan) *models.ProgressReport {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	st, ok := tr.plans[p.ID]
	if !ok {
		st = &planState{lastNotifyTime: tr.now()}
		tr.plans[p.ID] = st
	}

	percent := int(p.Progress() * 100)
	failed := p.FailedCount()
	finished := p.Finished()

	notify := false
	switch {
	case percent >= 100 && !st.completionSeen:
		st.completionSeen = true
		notify = true
	case failed > 0 && !st.failureSeen:
		st.failureSeen = true
		notify = true
	case percent-st.lastNotifiedPercent >= tr.threshold:
		notify = true
	case !finished && tr.now().Sub(st.lastNotifyTime) >= tr.staleness:
		notify = true
	}

	if !notify {
		return nil
	}

	st.lastNotifiedPercent = percent
	st.lastNotifyTime = tr.now()

	return tr.snapshot(p, percent)
}

// Forget drops the notification state for a plan, once the plan is
// terminal and no further notifications can occur.
func (tr *Tracker) Forget(planID string) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	delete(tr.plans, planID)
}

// snapshot builds the transient report. Caller holds tr.mu.
func (tr *Tracker) snapshot(p *models.ExecutionPlan, percent int) *models.ProgressReport {
	r := &models.ProgressReport{
		PlanID:      p.ID,
		Total:       len(p.SubTasks),
		Percent:     percent,
		GeneratedAt: tr.now(),
	}

	var current *models.SubTask
	for _, t := range p.SubTasks {
		switch t.Status {
		case models.StatusCompleted:
			r.Completed++
		case models.StatusFailed:
			r.Failed++
			r.Issues = append(r.Issues, fmt.Sprintf("%s failed: %s", t.Name, t.Error))
		case models.StatusSkipped:
			r.Skipped++
		case models.StatusEscalated:
			r.Issues = append(r.Issues, fmt.Sprintf("%s is waiting on a human decision", t.Name))
		case models.StatusInProgress:
			r.InProgress++
			if current == nil || (t.StartedAt != nil && current.StartedAt != nil && t.StartedAt.After(*current.StartedAt)) {
				current = t
			}
		}
	}

	if current != nil {
		r.CurrentActivity = fmt.Sprintf("Working on: %s", current.Name)
	} else if percent >= 100 {
		r.CurrentActivity = "All steps finished"
	} else {
		r.CurrentActivity = "Waiting for next step"
	}

	return r
}
