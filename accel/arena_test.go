package accel

import (
	"testing"
)

func TestArenaLayoutPacking(t *testing.T) {
	type spec struct {
		alignment  uint64
		sizes      []uint64
		expOffsets []uint64
		expSize    uint64
	}
	specs := []spec{
		{256, []uint64{384, 256, 1}, []uint64{0, 512, 768}, 1024},
		{256, []uint64{256, 256}, []uint64{0, 256}, 512},
		{8, []uint64{3, 5, 9}, []uint64{0, 8, 16}, 32},
		{256, nil, nil, 0},
	}

	for index, s := range specs {
		l := NewArenaLayout(s.alignment)
		for i, size := range s.sizes {
			span := l.Add(size)
			if span.Offset != s.expOffsets[i] {
				t.Fatalf("[spec %d] expected span %d at offset %d; got %d", index, i, s.expOffsets[i], span.Offset)
			}
			if span.Offset%s.alignment != 0 {
				t.Fatalf("[spec %d] span %d offset %d is not aligned to %d", index, i, span.Offset, s.alignment)
			}
		}
		if l.Size() != s.expSize {
			t.Fatalf("[spec %d] expected arena size %d; got %d", index, s.expSize, l.Size())
		}
		if err := l.Verify(); err != nil {
			t.Fatalf("[spec %d] unexpected verification error: %v", index, err)
		}
	}
}

func TestArenaLayoutRejectsBadAlignment(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected non power of two alignment to panic")
		}
	}()
	NewArenaLayout(96)
}

func TestArenaLayoutVerifyDetectsCorruption(t *testing.T) {
	l := NewArenaLayout(256)
	l.Add(300)
	l.Add(10)

	l.spans[1].Offset = 128
	if err := l.Verify(); err == nil {
		t.Fatal("expected misaligned span to fail verification")
	}

	l.spans[1].Offset = 256
	if err := l.Verify(); err == nil {
		t.Fatal("expected overlapping span to fail verification")
	}
}
