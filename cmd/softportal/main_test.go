package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ardnew/softportal/device/emulated/infinity"
)

const mcqueen = 0x4246

func runCmd(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRun_Usage(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want int
	}{
		{"no command", nil, 2},
		{"unknown command", []string{"fly"}, 2},
		{"help", []string{"help"}, 0},
		{"create without number", []string{"create", "x.bin"}, 2},
		{"create bad number", []string{"create", "-n", "zz", "x.bin"}, 2},
		{"inspect without path", []string{"inspect"}, 2},
		{"replay without script", []string{"replay"}, 2},
		{"descriptors with argument", []string{"descriptors", "extra"}, 2},
		{"serve without listen", []string{"serve"}, 2},
		{"library without path", []string{"library"}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if code, _, _ := runCmd(t, tt.args...); code != tt.want {
				t.Errorf("exit code = %d, want %d", code, tt.want)
			}
		})
	}
}

func TestRun_Catalog(t *testing.T) {
	code, out, _ := runCmd(t, "catalog", "McQueen")
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	name, _ := infinity.FindByNumber(mcqueen)
	if !strings.Contains(out, name) || !strings.Contains(out, "0x4246") {
		t.Errorf("catalog output missing %q:\n%s", name, out)
	}
	if strings.Contains(out, "Play Set") {
		t.Errorf("catalog filter leaked other entries:\n%s", out)
	}
}

func TestRun_CreateInspect(t *testing.T) {
	dir := t.TempDir()
	name, _ := infinity.FindByNumber(mcqueen)

	code, out, errOut := runCmd(t, "create", "-n", "0x4246", dir)
	if code != 0 {
		t.Fatalf("create exit code = %d: %s", code, errOut)
	}
	path := filepath.Join(dir, name+".bin")
	if !strings.Contains(out, path) {
		t.Errorf("create output = %q, want path %q", out, path)
	}

	code, out, errOut = runCmd(t, "inspect", path)
	if code != 0 {
		t.Fatalf("inspect exit code = %d: %s", code, errOut)
	}
	for _, want := range []string{"number:   0x4246", "category: Character", "name:     " + name} {
		if !strings.Contains(out, want) {
			t.Errorf("inspect output missing %q:\n%s", want, out)
		}
	}

	if code, _, _ := runCmd(t, "create", "-n", "1", dir); code != 1 {
		t.Errorf("create unknown exit code = %d, want 1", code)
	}
	if _, err := os.Stat(filepath.Join(dir, "Unknown(1).bin")); !os.IsNotExist(err) {
		t.Errorf("unknown figure file written: %v", err)
	}
}

func TestRun_Inspect_Corrupt(t *testing.T) {
	path := writeFile(t, t.TempDir(), "junk.bin", strings.Repeat("\x01", infinity.FigureSize))
	if code, _, _ := runCmd(t, "inspect", path); code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
}

func TestRun_CreateLibrary(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, "softportal.yaml", "library:\n  path: "+filepath.Join(dir, "library.sqlite")+"\n")
	path := filepath.Join(dir, "mine.bin")

	if code, _, errOut := runCmd(t, "create", "-n", "16966", "-config", cfg, path); code != 0 {
		t.Fatalf("create exit code = %d: %s", code, errOut)
	}
	code, out, errOut := runCmd(t, "library", "-config", cfg)
	if code != 0 {
		t.Fatalf("library exit code = %d: %s", code, errOut)
	}
	if !strings.Contains(out, path) || !strings.Contains(out, "0x4246") {
		t.Errorf("library output missing %s:\n%s", path, out)
	}
}

func TestRun_Descriptors(t *testing.T) {
	tests := []struct {
		family string
		want   []string
	}{
		{"infinity", []string{
			"device     vid=0e6f pid=0129 usb=0200",
			"config     1 interfaces=1 total=41 attributes=0x80 power=500mA",
			"interface  0 class=0x03 endpoints=2",
			"endpoint   0x81 in interrupt size=32 interval=1",
			"endpoint   0x01 out interrupt size=32 interval=1",
		}},
		{"skylander", []string{
			"device     vid=1430 pid=0150 usb=0200",
			"endpoint   0x81 in interrupt size=64 interval=1",
			"endpoint   0x02 out interrupt size=64 interval=1",
		}},
	}
	for _, tt := range tests {
		t.Run(tt.family, func(t *testing.T) {
			code, out, errOut := runCmd(t, "descriptors", "-family", tt.family)
			if code != 0 {
				t.Fatalf("descriptors exit code = %d: %s", code, errOut)
			}
			for _, want := range tt.want {
				if !strings.Contains(out, want) {
					t.Errorf("descriptors output missing %q:\n%s", want, out)
				}
			}
		})
	}

	if code, _, _ := runCmd(t, "descriptors", "-family", "dimensions"); code != 1 {
		t.Errorf("unknown family exit code = %d, want 1", code)
	}
}

func TestRun_ReplayInfinity(t *testing.T) {
	dir := t.TempDir()
	figure := filepath.Join(dir, "mcqueen.bin")
	if _, err := infinity.CreateFigure(figure, mcqueen); err != nil {
		t.Fatal(err)
	}
	cfg := writeFile(t, dir, "softportal.yaml", "family: infinity\n")
	script := writeFile(t, dir, "session.txt", strings.Join([]string{
		"# activation",
		"interrupt 00",
		"interrupt ff02800182",
		"load player_one " + figure,
		"interrupt aa",
		"control 8006000100001200",
		"bogus",
	}, "\n"))

	code, out, errOut := runCmd(t, "replay", "-config", cfg, script)
	if code != 0 {
		t.Fatalf("replay exit code = %d: %s", code, errOut)
	}
	for _, want := range []string{
		"interrupt ep=0x01 success count=32 t=+500ms ff02800182",
		"interrupt ep=0x81 success count=32 t=+1s aa15",
		"loaded player_one",
		"interrupt ep=0x81 success count=32 t=+2s ab0402090000",
		"success count=18 t=+2.0001s 1201",
		"line 7: error:",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("replay output missing %q:\n%s", want, out)
		}
	}
}

func TestRun_ReplaySkylander(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, "softportal.yaml", "family: skylander\n")
	script := writeFile(t, dir, "session.txt", "control 2109000200000200 4101\ninterrupt 00\n")

	code, out, errOut := runCmd(t, "replay", "-config", cfg, script)
	if code != 0 {
		t.Fatalf("replay exit code = %d: %s", code, errOut)
	}
	for _, want := range []string{"count=10 t=+100µs 4101", "t=+22.1ms 4101ff77"} {
		if !strings.Contains(out, want) {
			t.Errorf("replay output missing %q:\n%s", want, out)
		}
	}
}
