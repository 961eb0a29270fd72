package style

import "testing"

func TestSelectionFitView(t *testing.T) {
	var s Selection

	if s.TakeFitView() {
		t.Error("fresh selection should not request a fit")
	}
	if !s.Set("A") {
		t.Error("Set(A) should report a change")
	}
	if s.Set("A") {
		t.Error("repeated Set(A) should not report a change")
	}
	if s.TakeFitView() {
		t.Error("selecting should not request a fit")
	}

	s.Clear()
	if !s.TakeFitView() {
		t.Error("deselect should request a fit")
	}
	if s.TakeFitView() {
		t.Error("fit request should be reported once")
	}

	s.Clear()
	if s.TakeFitView() {
		t.Error("clearing an empty selection should not request a fit")
	}
}

func TestSelectionReselectDropsFit(t *testing.T) {
	var s Selection
	s.Set("A")
	s.Clear()
	s.Set("B")
	if s.TakeFitView() {
		t.Error("a new selection should drop the pending fit")
	}
	if s.Current() != "B" {
		t.Errorf("Current() = %q, want B", s.Current())
	}
}
