package sbt

import (
	"testing"

	"github.com/ammarasyad/Singularity-sub000/gpu"
	"github.com/cockroachdb/errors"
)

func TestComputeLayout(t *testing.T) {
	type spec struct {
		handleSize, handleAlign, baseAlign uint32
		miss, hit                          uint32
		expRaygen, expMiss, expHit         Span
	}
	specs := []spec{
		{
			16, 32, 64, 2, 1,
			Span{0, 64, 64}, Span{64, 32, 64}, Span{128, 32, 64},
		},
		{
			32, 32, 64, 2, 1,
			Span{0, 64, 64}, Span{64, 32, 64}, Span{128, 32, 64},
		},
		{
			32, 64, 256, 3, 2,
			Span{0, 256, 256}, Span{256, 64, 256}, Span{512, 64, 256},
		},
		// Alignments smaller than the handle still round up.
		{
			48, 16, 32, 1, 1,
			Span{0, 64, 64}, Span{64, 48, 64}, Span{128, 48, 64},
		},
		{
			16, 32, 64, 0, 0,
			Span{0, 64, 64}, Span{64, 32, 0}, Span{64, 32, 0},
		},
	}

	for index, s := range specs {
		l, err := ComputeLayout(s.handleSize, s.handleAlign, s.baseAlign, s.miss, s.hit)
		if err != nil {
			t.Fatalf("[spec %d] unexpected error: %v", index, err)
		}
		if l.Raygen != s.expRaygen {
			t.Fatalf("[spec %d] expected raygen %+v; got %+v", index, s.expRaygen, l.Raygen)
		}
		if l.Miss != s.expMiss {
			t.Fatalf("[spec %d] expected miss %+v; got %+v", index, s.expMiss, l.Miss)
		}
		if l.Hit != s.expHit {
			t.Fatalf("[spec %d] expected hit %+v; got %+v", index, s.expHit, l.Hit)
		}
	}
}

func TestLayoutRegionsAreContiguous(t *testing.T) {
	for _, handleSize := range []uint32{8, 16, 32, 48} {
		for _, handleAlign := range []uint32{1, 8, 32, 64} {
			for _, baseAlign := range []uint32{16, 64, 256} {
				l, err := ComputeLayout(handleSize, handleAlign, baseAlign, 2, 1)
				if err != nil {
					t.Fatal(err)
				}
				if l.Miss.Offset != l.Raygen.Offset+l.Raygen.Size || l.Hit.Offset != l.Miss.Offset+l.Miss.Size {
					t.Fatalf("regions of %s are not contiguous", l)
				}
				for _, s := range []Span{l.Raygen, l.Miss, l.Hit} {
					if s.Stride%uint64(handleAlign) != 0 || s.Size%uint64(handleAlign) != 0 {
						t.Fatalf("region %+v of %s is not a multiple of handle alignment %d", s, l, handleAlign)
					}
					if s.Offset%uint64(baseAlign) != 0 {
						t.Fatalf("region %+v of %s does not start on base alignment %d", s, l, baseAlign)
					}
				}
				if l.Raygen.Stride != l.Raygen.Size {
					t.Fatalf("raygen stride %d differs from its size %d", l.Raygen.Stride, l.Raygen.Size)
				}

				again, _ := ComputeLayout(handleSize, handleAlign, baseAlign, 2, 1)
				if again != l {
					t.Fatalf("expected identical layouts; got %s and %s", l, again)
				}
			}
		}
	}
}

func TestComputeLayoutErrors(t *testing.T) {
	if _, err := ComputeLayout(0, 32, 64, 1, 1); !errors.Is(err, ErrBadHandleSize) {
		t.Fatalf("expected ErrBadHandleSize; got %v", err)
	}
	if _, err := ComputeLayout(16, 24, 64, 1, 1); !errors.Is(err, ErrBadAlignment) {
		t.Fatalf("expected ErrBadAlignment; got %v", err)
	}
	if _, err := ComputeLayout(16, 32, 0, 1, 1); !errors.Is(err, ErrBadAlignment) {
		t.Fatalf("expected ErrBadAlignment; got %v", err)
	}
}

func TestGroupOffsets(t *testing.T) {
	l, err := ComputeLayout(16, 32, 64, 2, 2)
	if err != nil {
		t.Fatal(err)
	}
	exp := []uint64{0, 64, 96, 128, 160}
	for g, off := range exp {
		if got := l.Offset(uint32(g)); got != off {
			t.Fatalf("expected group %d at offset %d; got %d", g, off, got)
		}
	}
	if l.Size() != 192 {
		t.Fatalf("expected table size 192; got %d", l.Size())
	}
}

func TestCheckRecursionDepth(t *testing.T) {
	props := gpu.Properties{Name: "test", MaxRayRecursionDepth: 2}
	for depth, ok := range map[uint32]bool{0: false, 1: true, 2: true, 3: false} {
		err := CheckRecursionDepth(props, depth)
		if ok && err != nil {
			t.Fatalf("expected depth %d to be accepted; got %v", depth, err)
		}
		if !ok && !errors.Is(err, ErrRecursionDepth) {
			t.Fatalf("expected depth %d to be rejected; got %v", depth, err)
		}
	}
}
