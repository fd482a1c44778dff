package metrics

import "testing"

func TestCollectorDisabledByDefault(t *testing.T) {
	c := NewCollector(false)
	c.RecordDispatch("view-tag")
	c.RecordRuleMatch()
	snap := c.Snapshot()
	if snap.Enabled {
		t.Fatal("collector should be disabled")
	}
	if snap.Totals.Dispatched != 0 || snap.Counters.RuleMatches != 0 {
		t.Fatalf("disabled collector recorded counters: %+v", snap)
	}
}

func TestCollectorCounts(t *testing.T) {
	c := NewCollector(true)
	c.RecordDispatch("view-tag")
	c.RecordDispatch("view-tag")
	c.RecordDispatch("spawn")
	c.RecordFailure("spawn")
	c.RecordRuleMatch()
	c.RecordManaged()
	c.RecordBlockFailure()
	c.RecordReload(true)
	c.RecordReload(false)

	snap := c.Snapshot()
	if snap.Totals.Dispatched != 3 || snap.Totals.Failed != 1 {
		t.Fatalf("totals = %+v", snap.Totals)
	}
	if len(snap.Actions) != 2 {
		t.Fatalf("actions = %d, want 2", len(snap.Actions))
	}
	// Sorted by action name: spawn before view-tag.
	if snap.Actions[0].Action != "spawn" || snap.Actions[0].Failed != 1 {
		t.Fatalf("first action = %+v", snap.Actions[0])
	}
	if snap.Counters.RuleMatches != 1 || snap.Counters.ClientsManaged != 1 ||
		snap.Counters.BlockFailures != 1 || snap.Counters.ReloadsOK != 1 ||
		snap.Counters.ReloadsFailed != 1 {
		t.Fatalf("counters = %+v", snap.Counters)
	}
}

func TestDisablingResets(t *testing.T) {
	c := NewCollector(true)
	c.RecordDispatch("quit")
	c.SetEnabled(false)
	c.SetEnabled(true)
	if snap := c.Snapshot(); snap.Totals.Dispatched != 0 {
		t.Fatalf("counters survived a disable cycle: %+v", snap)
	}
}

func TestNilCollectorSafe(t *testing.T) {
	var c *Collector
	c.RecordDispatch("noop")
	c.RecordReload(true)
	if c.Enabled() {
		t.Fatal("nil collector reports enabled")
	}
	if snap := c.Snapshot(); snap.Enabled {
		t.Fatalf("nil snapshot = %+v", snap)
	}
}
