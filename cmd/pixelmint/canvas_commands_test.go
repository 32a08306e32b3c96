package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCanvasPaintShowAndClear(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"canvas", "paint", "0", "0", "red"}, env.configPath)
	if err != nil {
		t.Fatalf("canvas paint: %v", err)
	}
	requireContains(t, out, "Painted (0, 0) red")

	out, _, err = runCLI(t, []string{"canvas", "paint", "0", "0", "red"}, env.configPath)
	if err != nil {
		t.Fatalf("repeat paint: %v", err)
	}
	requireContains(t, out, "already red")

	out, _, err = runCLI(t, []string{"canvas", "show", "--plain"}, env.configPath)
	if err != nil {
		t.Fatalf("canvas show: %v", err)
	}
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 32 {
		t.Fatalf("expected 32 rows, got %d", len(lines))
	}
	if lines[0] != "#"+strings.Repeat(".", 31) {
		t.Fatalf("unexpected first row %q", lines[0])
	}
	if strings.Contains(strings.Join(lines[1:], ""), "#") {
		t.Fatal("expected only one painted cell")
	}

	if _, _, err := runCLI(t, []string{"canvas", "clear"}, env.configPath); err != nil {
		t.Fatalf("canvas clear: %v", err)
	}
	out, _, err = runCLI(t, []string{"canvas", "show", "--plain"}, env.configPath)
	if err != nil {
		t.Fatalf("canvas show after clear: %v", err)
	}
	if strings.Contains(out, "#") {
		t.Fatalf("expected blank canvas after clear:\n%s", out)
	}
}

func TestCanvasPaintRejectsBadInput(t *testing.T) {
	env := setupCLITestEnv(t)

	cases := [][]string{
		{"canvas", "paint", "0", "0", "not-a-colour"},
		{"canvas", "paint", "32", "0", "red"},
		{"canvas", "paint", "x", "0", "red"},
	}
	for _, args := range cases {
		if _, _, err := runCLI(t, args, env.configPath); err == nil {
			t.Fatalf("expected %v to fail", args)
		}
	}
}

func TestCanvasFillAndExport(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, []string{"canvas", "fill", "#000"}, env.configPath); err != nil {
		t.Fatalf("canvas fill: %v", err)
	}
	out, _, err := runCLI(t, []string{"canvas", "show", "--plain"}, env.configPath)
	if err != nil {
		t.Fatalf("canvas show: %v", err)
	}
	if strings.Contains(out, ".") {
		t.Fatalf("expected every cell painted:\n%s", out)
	}

	target := filepath.Join(t.TempDir(), "out.png")
	out, _, err = runCLI(t, []string{"canvas", "export", "--out", target, "--scale", "2"}, env.configPath)
	if err != nil {
		t.Fatalf("canvas export: %v", err)
	}
	requireContains(t, out, "64x64")
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if len(data) < 8 || string(data[1:4]) != "PNG" {
		t.Fatalf("export is not a PNG: % x", data[:min(8, len(data))])
	}
}
