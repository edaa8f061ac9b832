package learning

import "testing"

func TestParseLevel(t *testing.T) {
	cases := map[string]CourseLevel{
		"beginner":      LevelBeginner,
		" Beginner ":    LevelBeginner,
		"INTERMEDIATE":  LevelIntermediate,
		"advanced":      LevelAdvanced,
		"":              LevelUnknown,
		"mixed":         LevelUnknown,
		"expert":        LevelAdvanced,
		"introductory":  LevelBeginner,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q): want=%v got=%v", in, want, got)
		}
	}
}
