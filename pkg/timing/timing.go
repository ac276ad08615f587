// Package timing provides per-request phase measurement for the connection FSM.
package timing

import (
	"fmt"
	"time"
)

// Metrics captures per-phase timing for a single request/response cycle.
type Metrics struct {
	Read     time.Duration `json:"read"`
	Parse    time.Duration `json:"parse"`
	Dispatch time.Duration `json:"dispatch"`
	RuleEval time.Duration `json:"rule_eval"`
	Write    time.Duration `json:"write"`
	Total    time.Duration `json:"total"`
}

// Timer helps measure the phases of one read→parse→dispatch→respond cycle.
type Timer struct {
	start time.Time

	readStart, readEnd         time.Time
	parseStart, parseEnd       time.Time
	dispatchStart, dispatchEnd time.Time
	ruleStart, ruleEnd         time.Time
	writeStart, writeEnd       time.Time
}

// NewTimer starts a new timing session.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

func (t *Timer) StartRead()     { t.readStart = time.Now() }
func (t *Timer) EndRead()       { t.readEnd = time.Now() }
func (t *Timer) StartParse()    { t.parseStart = time.Now() }
func (t *Timer) EndParse()      { t.parseEnd = time.Now() }
func (t *Timer) StartDispatch() { t.dispatchStart = time.Now() }
func (t *Timer) EndDispatch()   { t.dispatchEnd = time.Now() }
func (t *Timer) StartRuleEval() { t.ruleStart = time.Now() }
func (t *Timer) EndRuleEval()   { t.ruleEnd = time.Now() }
func (t *Timer) StartWrite()    { t.writeStart = time.Now() }
func (t *Timer) EndWrite()      { t.writeEnd = time.Now() }

func sub(start, end time.Time) time.Duration {
	if start.IsZero() || end.IsZero() {
		return 0
	}
	return end.Sub(start)
}

// GetMetrics returns the calculated timing metrics for the cycle so far.
func (t *Timer) GetMetrics() Metrics {
	return Metrics{
		Read:     sub(t.readStart, t.readEnd),
		Parse:    sub(t.parseStart, t.parseEnd),
		Dispatch: sub(t.dispatchStart, t.dispatchEnd),
		RuleEval: sub(t.ruleStart, t.ruleEnd),
		Write:    sub(t.writeStart, t.writeEnd),
		Total:    time.Since(t.start),
	}
}

// String provides a human-readable representation of the metrics.
func (m Metrics) String() string {
	return fmt.Sprintf("read=%v parse=%v dispatch=%v rule_eval=%v write=%v total=%v",
		m.Read, m.Parse, m.Dispatch, m.RuleEval, m.Write, m.Total)
}
