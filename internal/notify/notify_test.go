package notify

import "testing"

func TestRecorder_KeepsOrderAndDefaultsVariant(t *testing.T) {
	r := NewRecorder()
	if _, ok := r.Last(); ok {
		t.Fatal("empty recorder should have no last notification")
	}

	r.Notify(Notification{Title: "first"})
	r.Notify(Failure("second", "went wrong"))

	all := r.All()
	if len(all) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(all))
	}
	if all[0].Title != "first" || all[0].Variant != VariantDefault {
		t.Errorf("first: %+v", all[0])
	}
	last, _ := r.Last()
	if last.Title != "second" || last.Variant != VariantDestructive {
		t.Errorf("last: %+v", last)
	}

	all[0].Title = "mutated"
	if r.All()[0].Title != "first" {
		t.Error("All should return a copy")
	}
}
