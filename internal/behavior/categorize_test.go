package behavior

import "testing"

func TestCategorizeTypingBuckets(t *testing.T) {
	c := DefaultCategorizer()

	tests := []struct {
		speed float64
		want  Category
	}{
		{0, VerySlow},
		{1.9, VerySlow},
		{2.0, Slow}, // boundary value lands in the higher bucket
		{3.4, Slow},
		{3.5, Normal},
		{4.5, Normal},
		{5.5, Fast},
		{7.4, Fast},
		{7.5, VeryFast},
		{12, VeryFast},
	}
	for _, tt := range tests {
		if got := c.CategorizeTyping(tt.speed); got != tt.want {
			t.Errorf("CategorizeTyping(%v) = %v, want %v", tt.speed, got, tt.want)
		}
	}
}

func TestCategorizeMouseBuckets(t *testing.T) {
	c := DefaultCategorizer()

	tests := []struct {
		speed float64
		want  Category
	}{
		{0, VerySlow},
		{99.9, VerySlow},
		{100, Slow},
		{199, Slow},
		{200, Normal},
		{320, Normal},
		{400, Fast},
		{599, Fast},
		{600, VeryFast},
		{1500, VeryFast},
	}
	for _, tt := range tests {
		if got := c.CategorizeMouse(tt.speed); got != tt.want {
			t.Errorf("CategorizeMouse(%v) = %v, want %v", tt.speed, got, tt.want)
		}
	}
}

func TestThresholdsAscending(t *testing.T) {
	if !DefaultTypingThresholds().Ascending() {
		t.Error("default typing thresholds should be ascending")
	}
	if !DefaultMouseThresholds().Ascending() {
		t.Error("default mouse thresholds should be ascending")
	}

	bad := Thresholds{VerySlow: 3, Slow: 2, Normal: 5, Fast: 7}
	if bad.Ascending() {
		t.Error("non-monotonic thresholds reported ascending")
	}
	equal := Thresholds{VerySlow: 2, Slow: 2, Normal: 5, Fast: 7}
	if equal.Ascending() {
		t.Error("equal adjacent thresholds reported ascending")
	}
}

func TestCategoryDescribe(t *testing.T) {
	tests := []struct {
		c    Category
		want string
	}{
		{VerySlow, "extremely slow"},
		{Slow, "very slow"},
		{Normal, "normal"},
		{Fast, "fast"},
		{VeryFast, "extremely fast"},
	}
	for _, tt := range tests {
		if got := tt.c.Describe(); got != tt.want {
			t.Errorf("%v.Describe() = %q, want %q", tt.c, got, tt.want)
		}
	}
}
