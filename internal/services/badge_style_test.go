package services

import (
	"os"
	"path/filepath"
	"testing"

	types "github.com/yungbote/learnhub-backend/internal/domain"
)

func TestDefaultColorTableIsTotal(t *testing.T) {
	style := DefaultBadgeStyle()
	want := map[types.CourseLevel]LevelColor{
		types.LevelBeginner:     {Name: "yellow", Hex: "#F5C518"},
		types.LevelIntermediate: {Name: "blue", Hex: "#3B82F6"},
		types.LevelAdvanced:     {Name: "green", Hex: "#22C55E"},
		types.LevelUnknown:      {Name: "purple", Hex: "#8B5CF6"},
	}
	for _, level := range types.Levels {
		if got := style.ColorFor(level); got != want[level] {
			t.Fatalf("ColorFor(%s): want=%+v got=%+v", level, want[level], got)
		}
	}
	for _, raw := range []string{"", "expert-ish", "BEGINNER "} {
		got := style.ColorFor(types.CourseLevel(raw))
		if got.Hex == "" {
			t.Fatalf("ColorFor(%q) returned no color", raw)
		}
	}
	if got := style.ColorFor("BEGINNER "); got.Name != "yellow" {
		t.Fatalf("level parsing: want yellow got=%s", got.Name)
	}
}

func TestBadgeStyleTemplates(t *testing.T) {
	style := DefaultBadgeStyle()
	if got := style.Name("  Rust 101 "); got != "Rust 101 Completion Badge" {
		t.Fatalf("Name: got=%q", got)
	}
	if got := style.Description(""); got != "Awarded for completing Course." {
		t.Fatalf("Description(empty): got=%q", got)
	}
}

func TestLoadBadgeStyleOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "style.yaml")
	raw := []byte(`
name_template: "{title} Trophy"
colors:
  advanced:
    name: crimson
    hex: "#DC143C"
`)
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatalf("write style: %v", err)
	}
	style, err := LoadBadgeStyle(path)
	if err != nil {
		t.Fatalf("LoadBadgeStyle: %v", err)
	}
	if got := style.Name("Go"); got != "Go Trophy" {
		t.Fatalf("Name: got=%q", got)
	}
	if got := style.Description("Go"); got != "Awarded for completing Go." {
		t.Fatalf("Description keeps default, got=%q", got)
	}
	if got := style.ColorFor(types.LevelAdvanced); got.Hex != "#DC143C" || got.Name != "crimson" {
		t.Fatalf("advanced override: got=%+v", got)
	}
	if got := style.ColorFor(types.LevelBeginner); got.Hex != "#F5C518" {
		t.Fatalf("beginner default: got=%+v", got)
	}
}

func TestParseBadgeStyleRejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"unknown level": "colors:\n  legendary:\n    hex: \"#FFFFFF\"\n",
		"bad hex":       "colors:\n  beginner:\n    hex: yellow\n",
		"bad yaml":      "colors: [",
	}
	for name, raw := range cases {
		if _, err := ParseBadgeStyle([]byte(raw)); err == nil {
			t.Fatalf("%s: want error", name)
		}
	}
}
