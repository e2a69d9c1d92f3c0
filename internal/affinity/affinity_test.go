package affinity

import "testing"

// Pin and RaisePriority are best-effort: sandboxes and non-root runs often
// lack CAP_SYS_NICE, so these tests only assert the calls don't panic;
// the errors they return are not checked.
func TestPinDoesNotPanic(t *testing.T) {
	_ = Pin(0)
}

func TestRaisePriorityDoesNotPanic(t *testing.T) {
	_ = RaisePriority(MaxPriority())
}

func TestMaxPriorityPositive(t *testing.T) {
	if MaxPriority() <= 0 {
		t.Fatalf("expected positive max priority, got %d", MaxPriority())
	}
}
