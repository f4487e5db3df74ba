package health

import (
	"slices"
	"sync"
	"time"
)

// State is the lifecycle state of one pipeline stage.
type State string

const (
	StateRunning State = "running"
	StateDone    State = "done"
	StateFailed  State = "failed"
	StateSkipped State = "skipped"
)

// StageStatus is the last known state of a stage.
type StageStatus struct {
	Stage      string    `json:"stage"`
	State      State     `json:"state"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at,omitzero"`
	FinishedAt time.Time `json:"finished_at,omitzero"`
}

// Progress records stage transitions in first-seen order. It is safe for
// concurrent use.
type Progress struct {
	mu     sync.Mutex
	now    func() time.Time
	order  []string
	stages map[string]*StageStatus
}

// NewProgress returns an empty Progress.
func NewProgress() *Progress {
	return &Progress{now: time.Now, stages: make(map[string]*StageStatus)}
}

func (p *Progress) entry(stage string) *StageStatus {
	s, ok := p.stages[stage]
	if !ok {
		s = &StageStatus{Stage: stage}
		p.stages[stage] = s
		p.order = append(p.order, stage)
	}
	return s
}

// Start marks stage as running and clears any earlier outcome.
func (p *Progress) Start(stage string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.entry(stage)
	*s = StageStatus{Stage: stage, State: StateRunning, StartedAt: p.now()}
}

// Finish marks stage as done, or failed when err is non-nil.
func (p *Progress) Finish(stage string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.entry(stage)
	s.FinishedAt = p.now()
	s.State = StateDone
	if err != nil {
		s.State = StateFailed
		s.Error = err.Error()
	}
}

// Skip marks stage as skipped with reason.
func (p *Progress) Skip(stage, reason string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.entry(stage)
	s.State = StateSkipped
	s.Error = reason
	s.FinishedAt = p.now()
}

// Snapshot returns a copy of every stage status in first-seen order.
func (p *Progress) Snapshot() []StageStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]StageStatus, 0, len(p.order))
	for _, name := range p.order {
		out = append(out, *p.stages[name])
	}
	return slices.Clip(out)
}
