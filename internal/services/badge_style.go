package services

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	types "github.com/yungbote/learnhub-backend/internal/domain"
)

// LevelColor is the badge color assigned to a course level.
type LevelColor struct {
	Name string `yaml:"name" json:"name"`
	Hex  string `yaml:"hex" json:"hex"`
}

// BadgeStyle controls how lazily created course badges look. Templates use
// {title} for the course title.
type BadgeStyle struct {
	NameTemplate        string                           `yaml:"name_template"`
	DescriptionTemplate string                           `yaml:"description_template"`
	Colors              map[types.CourseLevel]LevelColor `yaml:"colors"`
}

var defaultLevelColors = map[types.CourseLevel]LevelColor{
	types.LevelBeginner:     {Name: "yellow", Hex: "#F5C518"},
	types.LevelIntermediate: {Name: "blue", Hex: "#3B82F6"},
	types.LevelAdvanced:     {Name: "green", Hex: "#22C55E"},
	types.LevelUnknown:      {Name: "purple", Hex: "#8B5CF6"},
}

func DefaultBadgeStyle() BadgeStyle {
	colors := make(map[types.CourseLevel]LevelColor, len(defaultLevelColors))
	for k, v := range defaultLevelColors {
		colors[k] = v
	}
	return BadgeStyle{
		NameTemplate:        "{title} Completion Badge",
		DescriptionTemplate: "Awarded for completing {title}.",
		Colors:              colors,
	}
}

var hexColor = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// LoadBadgeStyle overlays the YAML file at path on the defaults. An empty path
// returns the defaults.
func LoadBadgeStyle(path string) (BadgeStyle, error) {
	style := DefaultBadgeStyle()
	path = strings.TrimSpace(path)
	if path == "" {
		return style, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return style, fmt.Errorf("read badge style: %w", err)
	}
	return ParseBadgeStyle(raw)
}

func ParseBadgeStyle(raw []byte) (BadgeStyle, error) {
	style := DefaultBadgeStyle()
	var override struct {
		NameTemplate        string                `yaml:"name_template"`
		DescriptionTemplate string                `yaml:"description_template"`
		Colors              map[string]LevelColor `yaml:"colors"`
	}
	if err := yaml.Unmarshal(raw, &override); err != nil {
		return style, fmt.Errorf("parse badge style: %w", err)
	}
	if t := strings.TrimSpace(override.NameTemplate); t != "" {
		style.NameTemplate = t
	}
	if t := strings.TrimSpace(override.DescriptionTemplate); t != "" {
		style.DescriptionTemplate = t
	}
	for rawLevel, c := range override.Colors {
		level := types.CourseLevel(strings.ToLower(strings.TrimSpace(rawLevel)))
		if _, ok := defaultLevelColors[level]; !ok {
			return style, fmt.Errorf("badge style: unknown level %q", rawLevel)
		}
		if !hexColor.MatchString(c.Hex) {
			return style, fmt.Errorf("badge style: level %q has invalid hex %q", rawLevel, c.Hex)
		}
		if c.Name == "" {
			c.Name = style.Colors[level].Name
		}
		style.Colors[level] = c
	}
	return style, nil
}

// ColorFor is total: any level outside the table resolves to the unknown color.
func (s BadgeStyle) ColorFor(level types.CourseLevel) LevelColor {
	if c, ok := s.Colors[types.ParseLevel(string(level))]; ok {
		return c
	}
	if c, ok := s.Colors[types.LevelUnknown]; ok {
		return c
	}
	return defaultLevelColors[types.LevelUnknown]
}

func (s BadgeStyle) Name(title string) string {
	return render(s.NameTemplate, title)
}

func (s BadgeStyle) Description(title string) string {
	return render(s.DescriptionTemplate, title)
}

func render(tmpl, title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		title = "Course"
	}
	return strings.ReplaceAll(tmpl, "{title}", title)
}
