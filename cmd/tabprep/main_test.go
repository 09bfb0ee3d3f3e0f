package main

import (
	"os"
	"path/filepath"
	"testing"
)

func writeProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	data := "age,city,label\n30,Tokyo,1\n40,Osaka,0\n50,Tokyo,1\n"
	if err := os.WriteFile(filepath.Join(dir, "train.csv"), []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := "input:\n  path: " + filepath.Join(dir, "train.csv") + "\n" +
		"output:\n  dir: " + filepath.Join(dir, "out") + "\n" +
		"target: label\n" +
		"features:\n  numeric: [age]\n  categorical: [city]\n" +
		"log_level: error\n"
	path := filepath.Join(dir, "tabprep.yaml")
	if err := os.WriteFile(path, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRun(t *testing.T) {
	cfg := writeProject(t)

	if code := run(nil); code != 2 {
		t.Errorf("no args: exit %d, want 2", code)
	}
	if code := run([]string{"bogus", "-config", cfg}); code != 2 {
		t.Errorf("unknown command: exit %d, want 2", code)
	}
	if code := run([]string{"bogus"}); code != 2 {
		t.Errorf("unknown command without config: exit %d, want 2", code)
	}
	if code := run([]string{"inspect", "-config", cfg}); code != 1 {
		t.Errorf("inspect before fit: exit %d, want 1", code)
	}
	if code := run([]string{"fit", "-config", cfg}); code != 0 {
		t.Fatalf("fit: exit %d, want 0", code)
	}
	if code := run([]string{"transform", "-config", cfg}); code != 0 {
		t.Errorf("transform: exit %d, want 0", code)
	}
	state := filepath.Join(filepath.Dir(cfg), "out", "fitted_state.json")
	if code := run([]string{"inspect", "-state", state, "-log-level", "error"}); code != 0 {
		t.Errorf("inspect: exit %d, want 0", code)
	}
	if code := run([]string{"fit", "-config", filepath.Join(t.TempDir(), "missing.yaml")}); code != 1 {
		t.Errorf("missing config: exit %d, want 1", code)
	}
}
