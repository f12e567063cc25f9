package loader

import (
	"time"

	"go.uber.org/zap"
)

// Progress observes a load. Start is called once with the total row count,
// Advance after every successful batch. Implementations must not block for
// long; a panic inside them is logged and otherwise ignored.
type Progress interface {
	Start(description string, total int)
	Advance(rows int)
}

// NopProgress discards progress.
type NopProgress struct{}

func (NopProgress) Start(string, int) {}
func (NopProgress) Advance(int)       {}

// LogProgress writes one line per batch with running totals and rows/sec since
// the previous batch.
type LogProgress struct {
	Logger *zap.Logger

	description string
	total       int
	done        int
	batches     int
	start       time.Time
	last        time.Time
}

func (p *LogProgress) Start(description string, total int) {
	p.description = description
	p.total = total
	p.done = 0
	p.batches = 0
	p.start = time.Now()
	p.last = p.start
}

func (p *LogProgress) Advance(rows int) {
	now := time.Now()
	since := now.Sub(p.last)
	rps := float64(0)
	if since > 0 {
		rps = float64(rows) / since.Seconds()
	}
	p.done += rows
	p.batches++
	p.last = now

	logger := p.Logger
	if logger == nil {
		logger = zap.L()
	}
	logger.Info(p.description,
		zap.Int("batch", p.batches),
		zap.Int("rows", rows),
		zap.Int("done", p.done),
		zap.Int("total", p.total),
		zap.Float64("rps", rps),
		zap.Duration("elapsed", now.Sub(p.start).Truncate(time.Millisecond)),
	)
}

// guardedProgress keeps observer failures out of the load's control flow.
type guardedProgress struct {
	p   Progress
	log *zap.Logger
}

func (g guardedProgress) Start(description string, total int) {
	defer g.recover("start")
	g.p.Start(description, total)
}

func (g guardedProgress) Advance(rows int) {
	defer g.recover("advance")
	g.p.Advance(rows)
}

func (g guardedProgress) recover(op string) {
	if r := recover(); r != nil {
		g.log.Warn("Progress observer panicked", zap.String("op", op), zap.Any("panic", r))
	}
}
