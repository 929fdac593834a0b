package milestone

import "testing"

func TestEvaluatePriorityOrder(t *testing.T) {
	d := NewDetector()

	// Streak outranks the dollar and impulse milestones.
	m, fired := d.Evaluate(7, 100.50, 5)
	if !fired {
		t.Fatal("expected a milestone to fire")
	}
	if m.ID != "streak-7" {
		t.Fatalf("milestone = %s, want streak-7", m.ID)
	}
}

func TestEvaluateDollarWindow(t *testing.T) {
	d := NewDetector()

	if _, fired := d.Evaluate(0, 99.99, 0); fired {
		t.Fatal("fired below $100")
	}
	m, fired := d.Evaluate(0, 100.00, 0)
	if !fired || m.ID != "saved-100" {
		t.Fatalf("at $100: fired=%v id=%s, want saved-100", fired, m.ID)
	}
	// The window is one unit wide; a jump past it never fires.
	if _, fired := d.Evaluate(0, 105, 0); fired {
		t.Fatal("fired at $105, outside the window")
	}
}

func TestEvaluateDedupAcrossRefreshes(t *testing.T) {
	d := NewDetector()

	if _, fired := d.Evaluate(7, 0, 0); !fired {
		t.Fatal("first evaluation should fire")
	}
	// The same trigger state re-evaluated every refresh tick stays quiet.
	for i := 0; i < 5; i++ {
		if _, fired := d.Evaluate(7, 0, 0); fired {
			t.Fatalf("refire on repeat evaluation %d", i)
		}
	}
}

func TestEvaluateDedupKeyIncludesBucket(t *testing.T) {
	d := NewDetector()

	if _, fired := d.Evaluate(0, 100.50, 0); !fired {
		t.Fatal("saved-100 should fire")
	}
	// Dropping back into the same hundred-dollar bucket is deduped.
	if _, fired := d.Evaluate(0, 100.25, 0); fired {
		t.Fatal("refire within the same bucket")
	}

	d2 := NewDetector()
	if _, fired := d2.Evaluate(0, 500.00, 0); !fired {
		t.Fatal("saved-500 should fire")
	}
}

func TestEvaluateImpulseThresholds(t *testing.T) {
	d := NewDetector()

	m, fired := d.Evaluate(0, 0, 5)
	if !fired || m.ID != "impulses-5" {
		t.Fatalf("at 5 impulses: fired=%v id=%s, want impulses-5", fired, m.ID)
	}
	if _, fired := d.Evaluate(0, 0, 6); fired {
		t.Fatal("fired at 6 impulses")
	}
	m, fired = d.Evaluate(0, 0, 20)
	if !fired || m.ID != "impulses-20" {
		t.Fatalf("at 20 impulses: fired=%v id=%s, want impulses-20", fired, m.ID)
	}
}

func TestResetForgetsFired(t *testing.T) {
	d := NewDetector()

	if _, fired := d.Evaluate(30, 0, 0); !fired {
		t.Fatal("streak-30 should fire")
	}
	d.Reset()
	if _, fired := d.Evaluate(30, 0, 0); !fired {
		t.Fatal("streak-30 should fire again after reset")
	}
}
