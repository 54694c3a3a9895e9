// Copyright 2025 The go-yaml Project Contributors
// SPDX-License-Identifier: Apache-2.0

package bitset

import "testing"

func TestAlignUp(t *testing.T) {
	cases := []struct{ x, a, want uintptr }{
		{0, 8, 0},
		{1, 8, 8},
		{8, 8, 8},
		{9, 8, 16},
		{63, 64, 64},
		{65, 64, 128},
	}
	for _, c := range cases {
		if got := AlignUp(c.x, c.a); got != c.want {
			t.Errorf("AlignUp(%d, %d) = %d, want %d", c.x, c.a, got, c.want)
		}
	}
}

func TestAlignUpPanicsOnNonPowerOfTwo(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for non-power-of-two alignment")
		}
	}()
	AlignUp(1, 3)
}

func TestNextPowerOfTwo(t *testing.T) {
	cases := []struct {
		x, want uint64
	}{
		{0, 1}, {1, 1}, {2, 2}, {3, 4}, {5, 8}, {1024, 1024}, {1025, 2048},
	}
	for _, c := range cases {
		if got := NextPowerOfTwo(c.x); got != c.want {
			t.Errorf("NextPowerOfTwo(%d) = %d, want %d", c.x, got, c.want)
		}
	}
}

func TestSetAllocFree(t *testing.T) {
	s := New(70)
	var got []int
	for i := 0; i < 70; i++ {
		idx := s.Alloc()
		if idx != i {
			t.Fatalf("Alloc() = %d, want %d", idx, i)
		}
		got = append(got, idx)
	}
	if s.Alloc() != -1 {
		t.Fatal("expected -1 once full")
	}
	if s.CountUsed() != 70 {
		t.Fatalf("CountUsed() = %d, want 70", s.CountUsed())
	}

	s.Free(5)
	if s.IsUsed(5) {
		t.Fatal("expected index 5 to be free")
	}
	if idx := s.Alloc(); idx != 5 {
		t.Fatalf("Alloc() after Free(5) = %d, want 5", idx)
	}
	_ = got
}

func TestSetIterate(t *testing.T) {
	s := New(10)
	s.Alloc()
	s.Alloc()
	s.Free(0)
	s.Alloc()

	var seen []int
	s.Iterate(func(idx int) bool {
		seen = append(seen, idx)
		return true
	})
	if len(seen) != 2 || seen[0] != 0 || seen[1] != 1 {
		t.Fatalf("Iterate order = %v, want [0 1]", seen)
	}
}

func TestFFS(t *testing.T) {
	if FFS(0) != -1 {
		t.Fatal("FFS(0) should be -1")
	}
	if FFS(0b1000) != 3 {
		t.Fatalf("FFS(0b1000) = %d, want 3", FFS(0b1000))
	}
}
