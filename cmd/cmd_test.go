package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ammarasyad/Singularity-sub000/log"
	"github.com/urfave/cli"
)

func testApp(sink *bytes.Buffer) *cli.App {
	log.SetSink(sink)

	app := cli.NewApp()
	app.Flags = []cli.Flag{cli.BoolFlag{Name: "v"}, cli.BoolFlag{Name: "vv"}}
	app.Commands = []cli.Command{
		{
			Name:   "build",
			Flags:  []cli.Flag{cli.UintFlag{Name: "width", Value: 64}, cli.UintFlag{Name: "height", Value: 64}},
			Action: BuildScene,
		},
		{
			Name: "sbt",
			Flags: []cli.Flag{
				cli.UintFlag{Name: "handle-size", Value: 16},
				cli.UintFlag{Name: "handle-align", Value: 32},
				cli.UintFlag{Name: "base-align", Value: 64},
				cli.UintFlag{Name: "miss", Value: 2},
				cli.UintFlag{Name: "hit", Value: 1},
			},
			Action: ShowSBTLayout,
		},
		{Name: "list-devices", Action: ListDevices},
		{Name: "config", Flags: []cli.Flag{cli.StringFlag{Name: "out, o"}}, Action: ShowConfig},
	}
	return app
}

func TestBuildDefaultScene(t *testing.T) {
	var sink bytes.Buffer
	defer log.SetSink(os.Stdout)
	defer log.SetLevel(log.Notice)

	if err := testApp(&sink).Run([]string{"rtgeom", "build"}); err != nil {
		t.Fatal(err)
	}
	for _, exp := range []string{"structure statistics", "shader binding table", "3 instances"} {
		if !strings.Contains(sink.String(), exp) {
			t.Fatalf("expected output to contain %q; got:\n%s", exp, sink.String())
		}
	}
}

func TestBuildConfigFile(t *testing.T) {
	var sink bytes.Buffer
	defer log.SetSink(os.Stdout)
	defer log.SetLevel(log.Notice)

	path := filepath.Join(t.TempDir(), "scene.toml")
	doc := `
[build]
defer_compaction = true
scratch_mode = "disjoint"

[[object]]
shape = "fan"
resolution = 3

[[object]]
shape = "cube"
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := testApp(&sink).Run([]string{"rtgeom", "build", path}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(sink.String(), "before compaction") {
		t.Fatalf("expected deferred compaction report; got:\n%s", sink.String())
	}

	if err := testApp(&sink).Run([]string{"rtgeom", "build", path, path}); err == nil {
		t.Fatal("expected two configuration arguments to fail")
	}
}

func TestBuildReportsRecursionLimit(t *testing.T) {
	var sink bytes.Buffer
	defer log.SetSink(os.Stdout)
	defer log.SetLevel(log.Notice)

	path := filepath.Join(t.TempDir(), "scene.toml")
	doc := "[device]\nprofile = \"soft-compact\"\n\n[pipeline]\nmax_recursion = 2\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := testApp(&sink).Run([]string{"rtgeom", "build", path}); err == nil {
		t.Fatal("expected a recursion depth above the device limit to fail")
	}
}

func TestSBTAndDeviceTables(t *testing.T) {
	var sink bytes.Buffer
	defer log.SetSink(os.Stdout)

	app := testApp(&sink)
	if err := app.Run([]string{"rtgeom", "sbt"}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(sink.String(), "raygen") || !strings.Contains(sink.String(), "192") {
		t.Fatalf("unexpected layout output:\n%s", sink.String())
	}

	if err := app.Run([]string{"rtgeom", "sbt", "--base-align", "48"}); err == nil {
		t.Fatal("expected a non power of two base alignment to fail")
	}

	if err := app.Run([]string{"rtgeom", "list-devices"}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(sink.String(), "soft-rtx (default)") {
		t.Fatalf("expected default profile in device list; got:\n%s", sink.String())
	}
}

func TestShowConfig(t *testing.T) {
	var sink bytes.Buffer
	defer log.SetSink(os.Stdout)

	path := filepath.Join(t.TempDir(), "default.toml")
	if err := testApp(&sink).Run([]string{"rtgeom", "config", "--out", path}); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "[[object]]") {
		t.Fatalf("expected objects in the written configuration; got:\n%s", data)
	}

	// The written file validates.
	if err = testApp(&sink).Run([]string{"rtgeom", "config", "--out", filepath.Join(t.TempDir(), "copy.toml"), path}); err != nil {
		t.Fatal(err)
	}
}
