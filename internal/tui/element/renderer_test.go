package element

import "testing"

func TestDistributeLengthReservesExactSize(t *testing.T) {
	items := []LayoutItem{
		{Constraint: LengthC(3)},
		{Constraint: FillC(1)},
	}
	sizes := distribute(10, items, 0)
	if sizes[0] != 3 {
		t.Fatalf("expected the Length(3) item to get exactly 3, got %d", sizes[0])
	}
	if sizes[1] != 7 {
		t.Fatalf("expected the remaining Fill item to get 7, got %d", sizes[1])
	}
}

func TestDistributeFillSharesByWeight(t *testing.T) {
	items := []LayoutItem{
		{Constraint: FillC(1)},
		{Constraint: FillC(3)},
	}
	sizes := distribute(8, items, 0)
	if sizes[0] != 2 || sizes[1] != 6 {
		t.Fatalf("expected an 8-wide split at weights 1:3 to be 2/6, got %v", sizes)
	}
}

func TestDistributeMinIsFlooredEvenUnderRounding(t *testing.T) {
	items := []LayoutItem{
		{Constraint: MinC(5)},
		{Constraint: FillC(1)},
	}
	sizes := distribute(4, items, 0)
	if sizes[0] < 5 {
		t.Fatalf("expected the Min(5) item to never shrink below 5 even when space is scarce, got %d", sizes[0])
	}
}

func TestRenderTextFitsRequestedDimensions(t *testing.T) {
	theme := NewDefaultTheme()
	r := NewRenderer(theme)
	out := r.Render(Text("hello"), 20, 3)
	if out.Frame == "" {
		t.Fatal("expected a non-empty rendered frame")
	}
}

func TestRenderButtonRegistersFocusAndInteraction(t *testing.T) {
	theme := NewDefaultTheme()
	r := NewRenderer(theme)
	pressed := false
	btn := Button("submit", "OK")
	btn.OnPress = func() any { pressed = true; return nil }

	out := r.Render(btn, 20, 1)
	if _, ok := out.Interactions.HitTest(0, 0); !ok {
		t.Fatal("expected the button's rect to be registered for hit testing")
	}
	out.Interactions.HitTest(0, 0)
	if !pressed {
		t.Fatal("expected HitTest to invoke the button's OnPress callback")
	}
}
