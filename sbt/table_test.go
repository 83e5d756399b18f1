package sbt_test

import (
	"bytes"
	"testing"

	"github.com/ammarasyad/Singularity-sub000/gpu/soft"
	"github.com/ammarasyad/Singularity-sub000/sbt"
)

func TestBuildTable(t *testing.T) {
	for _, profile := range soft.Profiles() {
		name := profile.Props.Name
		sd := soft.New(profile)
		dev, err := sd.Context()
		if err != nil {
			t.Fatal(err)
		}

		groups := sbt.DefaultGroups
		pipeline := sd.CreatePipeline(1 + groups.Miss + groups.Hit)
		table, err := sbt.Build(dev, pipeline, groups)
		if err != nil {
			t.Fatalf("[%s] unexpected error: %v", name, err)
		}

		regions := table.Regions()
		if regions[sbt.RaygenRegion].Address%(1<<6) != 0 {
			t.Fatalf("[%s] raygen region %s is not base aligned", name, regions[sbt.RaygenRegion])
		}
		for i := 1; i < len(regions); i++ {
			prev := regions[i-1]
			if regions[i].Address != prev.Address.Offset(prev.Size) {
				t.Fatalf("[%s] region %d starts at %s; expected %s", name, i, regions[i].Address, prev.Address.Offset(prev.Size))
			}
		}

		for g := uint32(0); g < table.Layout().GroupCount(); g++ {
			got, err := table.Handle(g)
			if err != nil {
				t.Fatal(err)
			}
			if exp := sd.GroupHandle(pipeline, g); !bytes.Equal(got, exp) {
				t.Fatalf("[%s] expected group %d handle %x; got %x", name, g, exp, got)
			}
		}

		table.Release()
		sd.DestroyPipeline(pipeline)
		if dev.LiveBuffers() != 0 {
			t.Fatalf("[%s] expected no live buffers; got %v", name, dev.LiveBufferNames())
		}
	}
}

func TestBuildTableIsIdempotent(t *testing.T) {
	dev, sd, err := soft.Open("soft-compact")
	if err != nil {
		t.Fatal(err)
	}
	pipeline := sd.CreatePipeline(4)

	a, err := sbt.Build(dev, pipeline, sbt.DefaultGroups)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Release()
	b, err := sbt.Build(dev, pipeline, sbt.DefaultGroups)
	if err != nil {
		t.Fatal(err)
	}
	defer b.Release()

	if a.Layout() != b.Layout() {
		t.Fatalf("expected identical layouts; got %s and %s", a.Layout(), b.Layout())
	}

	size := a.Layout().Size()
	dataA, dataB := make([]byte, size), make([]byte, size)
	if err = a.Buffer().ReadData(0, dataA); err != nil {
		t.Fatal(err)
	}
	if err = b.Buffer().ReadData(0, dataB); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(dataA, dataB) {
		t.Fatal("expected byte-identical table contents")
	}

	// soft-compact: 16 byte handles, 32 byte handle alignment, 64 byte base.
	ra, rb := a.Regions(), b.Regions()
	for i := range ra {
		offA := uint64(ra[i].Address - ra[0].Address)
		offB := uint64(rb[i].Address - rb[0].Address)
		if offA != offB || ra[i].Stride != rb[i].Stride || ra[i].Size != rb[i].Size {
			t.Fatalf("region %d differs: %s vs %s", i, ra[i], rb[i])
		}
	}
	if ra[sbt.RaygenRegion].Size != 64 || ra[sbt.MissRegion].Size != 64 || uint64(ra[sbt.MissRegion].Address-ra[0].Address) != 64 {
		t.Fatalf("unexpected regions %v", ra)
	}
}

func TestDispatch(t *testing.T) {
	dev, sd, err := soft.Open("")
	if err != nil {
		t.Fatal(err)
	}
	table, err := sbt.Build(dev, sd.CreatePipeline(4), sbt.DefaultGroups)
	if err != nil {
		t.Fatal(err)
	}
	defer table.Release()

	call := table.Dispatch(1920, 1080)
	if call.Width != 1920 || call.Height != 1080 || call.Depth != 1 {
		t.Fatalf("expected 1920x1080x1 launch; got %dx%dx%d", call.Width, call.Height, call.Depth)
	}
	if call.Raygen != table.Regions()[sbt.RaygenRegion] || call.Hit != table.Regions()[sbt.HitRegion] {
		t.Fatal("expected dispatch regions to match the table regions")
	}
	if call.Callable.Size != 0 {
		t.Fatalf("expected empty callable region; got %s", call.Callable)
	}
}

func TestBuildWithTooFewGroups(t *testing.T) {
	dev, sd, err := soft.Open("")
	if err != nil {
		t.Fatal(err)
	}
	if _, err = sbt.Build(dev, sd.CreatePipeline(2), sbt.DefaultGroups); err == nil {
		t.Fatal("expected a pipeline with too few groups to fail")
	}
	if dev.LiveBuffers() != 0 {
		t.Fatalf("expected no live buffers; got %v", dev.LiveBufferNames())
	}
}
