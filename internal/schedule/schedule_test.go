package schedule_test

import (
	"testing"
	"time"

	"github.com/lolovespi/reolink-livestream-youtube/internal/schedule"
)

func mustFixed(t *testing.T, hours []int, loc *time.Location) *schedule.Planner {
	t.Helper()
	planner, err := schedule.NewFixed(hours, loc)
	if err != nil {
		t.Fatalf("NewFixed: %v", err)
	}
	return planner
}

func TestFixedMidnightNoonAfterOnePM(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	planner := mustFixed(t, []int{0, 12}, loc)

	ref := time.Date(2026, 3, 2, 13, 0, 0, 0, loc)
	slot := planner.Next(ref)

	wantActivation := time.Date(2026, 3, 3, 0, 0, 0, 0, loc)
	wantDeadline := time.Date(2026, 3, 3, 12, 0, 0, 0, loc)
	if !slot.Activation.Equal(wantActivation) {
		t.Fatalf("activation: got %v want %v", slot.Activation, wantActivation)
	}
	if !slot.Deadline.Equal(wantDeadline) {
		t.Fatalf("deadline: got %v want %v", slot.Deadline, wantDeadline)
	}
}

func TestFixedUnevenHoursGiveUnevenSlots(t *testing.T) {
	planner := mustFixed(t, []int{0, 6, 18}, time.UTC)

	ref := time.Date(2026, 3, 2, 1, 0, 0, 0, time.UTC)
	slot := planner.Next(ref)
	if got := slot.Activation.Hour(); got != 6 {
		t.Fatalf("activation hour: got %d want 6", got)
	}
	if got := slot.Deadline.Sub(slot.Activation); got != 12*time.Hour {
		t.Fatalf("06-18 slot length: got %v want 12h", got)
	}

	later := planner.Next(time.Date(2026, 3, 2, 7, 0, 0, 0, time.UTC))
	if got := later.Deadline.Sub(later.Activation); got != 6*time.Hour {
		t.Fatalf("18-00 slot length: got %v want 6h", got)
	}
}

func TestFixedActivationOnExactHourIsStrictlyAfter(t *testing.T) {
	planner := mustFixed(t, []int{12}, time.UTC)

	ref := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	slot := planner.Next(ref)
	if !slot.Activation.After(ref) {
		t.Fatalf("activation %v must be strictly after reference %v", slot.Activation, ref)
	}
	want := time.Date(2026, 3, 3, 12, 0, 0, 0, time.UTC)
	if !slot.Activation.Equal(want) {
		t.Fatalf("activation: got %v want %v", slot.Activation, want)
	}
}

func TestFixedDeadlineEqualsNextActivation(t *testing.T) {
	planner := mustFixed(t, []int{3, 9, 15, 21}, time.UTC)

	ref := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 8; i++ {
		slot := planner.Next(ref)
		if !slot.Activation.After(ref) {
			t.Fatalf("iteration %d: activation %v not after ref %v", i, slot.Activation, ref)
		}
		next := planner.Next(slot.Activation.Add(time.Second))
		if !slot.Deadline.Equal(next.Activation) {
			t.Fatalf("iteration %d: deadline %v != following activation %v", i, slot.Deadline, next.Activation)
		}
		ref = slot.Activation
	}
}

func TestRollingDeadlineIsExactWindow(t *testing.T) {
	planner, err := schedule.NewRolling(12 * time.Hour)
	if err != nil {
		t.Fatalf("NewRolling: %v", err)
	}
	ref := time.Date(2026, 3, 2, 13, 37, 11, 0, time.UTC)
	slot := planner.Next(ref)
	if !slot.Activation.Equal(ref) {
		t.Fatalf("rolling activation must equal reference, got %v", slot.Activation)
	}
	if !slot.Deadline.Equal(ref.Add(12 * time.Hour)) {
		t.Fatalf("rolling deadline: got %v want %v", slot.Deadline, ref.Add(12*time.Hour))
	}
}

func TestNewFixedRejectsBadInput(t *testing.T) {
	if _, err := schedule.NewFixed(nil, time.UTC); err == nil {
		t.Fatal("expected error for empty hours")
	}
	if _, err := schedule.NewFixed([]int{25}, time.UTC); err == nil {
		t.Fatal("expected error for hour out of range")
	}
	if _, err := schedule.NewRolling(0); err == nil {
		t.Fatal("expected error for zero rotation")
	}
}
