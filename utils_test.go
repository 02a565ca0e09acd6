package curveplot

import (
	"math"
	"reflect"
	"testing"
)

func TestFilter(t *testing.T) {
	t.Run("empty slice", func(t *testing.T) {
		got := Filter([]float64(nil), func(float64) bool { return true })
		if !reflect.DeepEqual(got, []float64{}) {
			t.Fatalf("Filter(nil) = %v, want []", got)
		}
	})

	t.Run("drops non finite", func(t *testing.T) {
		input := []float64{1, math.NaN(), 2, math.Inf(1)}
		got := Filter(input, isFinite)
		want := []float64{1, 2}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("Filter(%v) = %v, want %v", input, got, want)
		}
	})
}

func TestMap(t *testing.T) {
	t.Run("preserves order", func(t *testing.T) {
		got := Map([]float64{3, 1, 2}, func(x float64) float64 { return x * 10 })
		want := []float64{30, 10, 20}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("got %v want %v", got, want)
		}
	})

	t.Run("nil input gives empty output", func(t *testing.T) {
		got := Map([]float64(nil), func(x float64) float64 { return x })
		if got == nil || len(got) != 0 {
			t.Fatalf("expected empty non-nil slice, got %#v", got)
		}
	})

	t.Run("changes element type", func(t *testing.T) {
		got := Map([]int{1, 2}, func(x int) float64 { return float64(x) / 2 })
		want := []float64{0.5, 1}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("got %v want %v", got, want)
		}
	})
}

func TestMinMaxClamp(t *testing.T) {
	if got := Min(5, 3); got != 3 {
		t.Fatalf("Min(5,3) = %v, want 3", got)
	}

	if got := Max(5, 3); got != 5 {
		t.Fatalf("Max(5,3) = %v, want 5", got)
	}

	if got := Clamp(7.5, 0, 3); got != 3 {
		t.Fatalf("Clamp(7.5,0,3) = %v, want 3", got)
	}

	if got := Clamp(-1.0, 0, 3); got != 0 {
		t.Fatalf("Clamp(-1,0,3) = %v, want 0", got)
	}

	if got := Clamp(1.5, 0, 3); got != 1.5 {
		t.Fatalf("Clamp(1.5,0,3) = %v, want 1.5", got)
	}

	// Inverted bounds resolve to the lower bound.
	if got := Clamp(2, 5, 1); got != 5 {
		t.Fatalf("Clamp(2,5,1) = %v, want 5", got)
	}
}

func TestThreadUnsafeRing(t *testing.T) {
	t.Run("partial fill preserves order", func(t *testing.T) {
		r := NewRing[DataRow](3)
		r.Push(DataRow{X: 0, Y: 0})
		r.Push(DataRow{X: 1, Y: 1})
		got := r.ReadAllOrdered()
		want := []DataRow{{X: 0, Y: 0}, {X: 1, Y: 1}}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("got %v want %v", got, want)
		}
	})

	t.Run("wraparound keeps newest", func(t *testing.T) {
		r := NewRing[int](3)
		for i := 1; i <= 7; i++ {
			r.Push(i)
		}
		got := r.ReadAllOrdered()
		want := []int{5, 6, 7}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("got %v want %v", got, want)
		}
	})

	t.Run("read on empty returns empty", func(t *testing.T) {
		r := NewRing[int](3)
		if got := r.ReadAllOrdered(); len(got) != 0 {
			t.Fatalf("expected empty slice, got %v", got)
		}
	})

	t.Run("zero capacity panics", func(t *testing.T) {
		defer func() {
			if r := recover(); r == nil {
				t.Fatalf("expected panic for zero capacity ring")
			}
		}()
		r := NewRing[int](0)
		r.Push(1)
	})
}
