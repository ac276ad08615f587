package timing

import (
	"strings"
	"testing"
	"time"
)

func TestTimerMeasuresEachPhase(t *testing.T) {
	timer := NewTimer()

	timer.StartRead()
	time.Sleep(5 * time.Millisecond)
	timer.EndRead()

	timer.StartParse()
	time.Sleep(5 * time.Millisecond)
	timer.EndParse()

	timer.StartDispatch()
	time.Sleep(5 * time.Millisecond)
	timer.EndDispatch()

	timer.StartRuleEval()
	time.Sleep(5 * time.Millisecond)
	timer.EndRuleEval()

	timer.StartWrite()
	time.Sleep(5 * time.Millisecond)
	timer.EndWrite()

	metrics := timer.GetMetrics()

	for name, d := range map[string]time.Duration{
		"read": metrics.Read, "parse": metrics.Parse, "dispatch": metrics.Dispatch,
		"rule_eval": metrics.RuleEval, "write": metrics.Write,
	} {
		if d < time.Millisecond {
			t.Errorf("%s phase recorded %v, expected at least 1ms", name, d)
		}
	}

	if metrics.Total <= 0 {
		t.Error("total timing should be positive")
	}
}

func TestMetricsSkippedPhaseIsZero(t *testing.T) {
	timer := NewTimer()
	timer.StartRead()
	timer.EndRead()

	metrics := timer.GetMetrics()
	if metrics.Parse != 0 {
		t.Errorf("parse phase never started or ended, want 0, got %v", metrics.Parse)
	}
}

func TestMetricsString(t *testing.T) {
	metrics := Metrics{
		Read:     10 * time.Millisecond,
		Parse:    5 * time.Millisecond,
		Dispatch: 20 * time.Millisecond,
		RuleEval: 2 * time.Millisecond,
		Write:    8 * time.Millisecond,
		Total:    100 * time.Millisecond,
	}

	str := metrics.String()
	for _, substr := range []string{"read=", "parse=", "dispatch=", "rule_eval=", "write=", "total="} {
		if !strings.Contains(str, substr) {
			t.Errorf("string representation %q should contain %q", str, substr)
		}
	}
}
