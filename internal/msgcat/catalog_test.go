package msgcat

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultCatalog(t *testing.T) {
	c := Default()
	got, err := c.Render("game.win_other", map[string]any{"Winner": "White", "Reason": "king capture"})
	if err != nil || got != "White wins by king capture" {
		t.Fatalf("Render = %q, %v", got, err)
	}
	if _, err := c.Render("game.to_roll", map[string]any{}); err == nil {
		t.Fatalf("missing template data accepted")
	}
	if _, err := c.Render("no.such.key", nil); err == nil {
		t.Fatalf("unknown key accepted")
	}
	if c.Text("no.such.key", nil) != "no.such.key" {
		t.Fatalf("Text should fall back to the key")
	}
}

func TestOverrides(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	write("a.yaml", "history:\n  empty: \"아직 끝난 대국이 없습니다.\"\n")
	write("notes.txt", "ignored")

	c, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := c.Text("history.empty", nil); got != "아직 끝난 대국이 없습니다." {
		t.Fatalf("override = %q", got)
	}
	if got := c.Text("game.over", nil); got != "Game over" {
		t.Fatalf("untouched key = %q", got)
	}

	write("b.yml", "history:\n  empty: twice\n")
	if _, err := New(dir); err == nil || !strings.Contains(err.Error(), "duplicate override key") {
		t.Fatalf("duplicate key error = %v", err)
	}
}

func TestRejectsNonStringLeaves(t *testing.T) {
	if _, err := parseYAMLToFlat([]byte("game:\n  turns: 3\n")); err == nil {
		t.Fatalf("numeric leaf accepted")
	}
}
