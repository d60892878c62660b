package bitmap

import "testing"

func TestNewCapacity(t *testing.T) {
	tests := []struct {
		maxID int64
		cap   int64
	}{
		{-1, 0},
		{0, 64},
		{63, 64},
		{64, 128},
		{1000, 1024},
	}
	for _, tt := range tests {
		if got := New(tt.maxID).Cap(); got != tt.cap {
			t.Errorf("New(%d).Cap() = %d, want %d", tt.maxID, got, tt.cap)
		}
	}
}

func TestAddHas(t *testing.T) {
	b := New(130)
	for _, id := range []int64{0, 1, 63, 64, 130, 130} {
		if !b.Add(id) {
			t.Fatalf("Add(%d) = false", id)
		}
	}
	if b.Len() != 5 {
		t.Fatalf("Len = %d, want 5", b.Len())
	}
	if b.Count() != b.Len() {
		t.Fatalf("Count = %d, Len = %d", b.Count(), b.Len())
	}
	for _, id := range []int64{0, 1, 63, 64, 130} {
		if !b.Has(id) {
			t.Errorf("Has(%d) = false", id)
		}
	}
	for _, id := range []int64{-1, 2, 65, 129, 192, 1 << 40} {
		if b.Has(id) {
			t.Errorf("Has(%d) = true", id)
		}
	}
}

func TestOutOfRange(t *testing.T) {
	b := New(10)
	if b.Add(-5) || b.Add(64) {
		t.Fatal("out of range Add reported success")
	}
	if b.Len() != 0 {
		t.Fatalf("Len = %d, want 0", b.Len())
	}

	empty := New(-1)
	if empty.Add(0) || empty.Has(0) {
		t.Fatal("empty bitmap accepted an ID")
	}
}
