package report

import (
	"fmt"
	"io"
	"sync"

	"github.com/ZanzyTHEbar/vfogsim/internal/domain"
)

// Progress tracks finished trials from trial.finished events and redraws a
// one-line progress bar.
type Progress struct {
	mu       sync.Mutex
	w        io.Writer
	total    int // Expected trial.finished events
	finished int
	perfect  int // Trials in which every task completed
}

// NewProgress expects total trial.finished events (trials times policies).
func NewProgress(w io.Writer, total int) *Progress {
	return &Progress{w: w, total: total}
}

// Observe records an event; anything but trial.finished is ignored.
func (p *Progress) Observe(event domain.Event) {
	data, ok := event.Data.(domain.TrialEvent)
	if !ok || event.Topic != domain.TrialFinished {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.finished++
	if data.Completed == data.Total {
		p.perfect++
	}
	p.print()
}

// Finished returns the number of trial runs observed.
func (p *Progress) Finished() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.finished
}

// Consume observes events until the channel closes. The returned channel is
// closed when it has drained.
func (p *Progress) Consume(events <-chan domain.Event) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range events {
			p.Observe(ev)
		}
	}()
	return done
}

func (p *Progress) print() {
	if p.total <= 0 {
		return
	}
	pct := float64(p.finished) / float64(p.total) * 100
	fmt.Fprintf(p.w, "\rProgress: [%s] %.1f%% (%d/%d runs, %d fully completed)",
		Bar(float64(p.finished), float64(p.total), 50), pct, p.finished, p.total, p.perfect)
	if p.finished >= p.total {
		fmt.Fprintln(p.w)
	}
}
