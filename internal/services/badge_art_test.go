package services

import (
	"bytes"
	"image/png"
	"testing"
)

func TestBadgeArtistRendersPNG(t *testing.T) {
	artist, err := NewBadgeArtist()
	if err != nil {
		t.Fatalf("NewBadgeArtist: %v", err)
	}
	raw, err := artist.Render("Go Basics", LevelColor{Name: "yellow", Hex: "#F5C518"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("decode PNG: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 512 || b.Dy() != 512 {
		t.Fatalf("size: want 512x512 got=%dx%d", b.Dx(), b.Dy())
	}
	if _, err := artist.Render("x", LevelColor{Hex: "nope"}); err == nil {
		t.Fatalf("bad hex: want error")
	}
}

func TestInitials(t *testing.T) {
	cases := map[string]string{
		"Go Basics":            "GB",
		"  intro to  networks": "IT",
		"(advanced) SQL":       "AS",
		"":                     "?",
		"Rust":                 "R",
	}
	for in, want := range cases {
		if got := initials(in); got != want {
			t.Fatalf("initials(%q): want=%q got=%q", in, want, got)
		}
	}
}
