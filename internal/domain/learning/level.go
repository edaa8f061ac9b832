package learning

import "strings"

// CourseLevel is the difficulty tier of a course.
type CourseLevel string

const (
	LevelBeginner     CourseLevel = "beginner"
	LevelIntermediate CourseLevel = "intermediate"
	LevelAdvanced     CourseLevel = "advanced"
	LevelUnknown      CourseLevel = "unknown"
)

// Levels lists every level, LevelUnknown included.
var Levels = []CourseLevel{LevelBeginner, LevelIntermediate, LevelAdvanced, LevelUnknown}

// ParseLevel normalizes free-form level strings. Anything unrecognized is LevelUnknown.
func ParseLevel(raw string) CourseLevel {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "beginner", "basic", "introductory", "intro":
		return LevelBeginner
	case "intermediate", "medium":
		return LevelIntermediate
	case "advanced", "expert":
		return LevelAdvanced
	default:
		return LevelUnknown
	}
}
