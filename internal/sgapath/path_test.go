package sgapath

import (
	"errors"
	"testing"

	"github.com/MAK-Relic-Tool/Relic-Tool-SGA-V2/internal/sga"
)

func TestParseAliasQualified(t *testing.T) {
	p, err := Parse("data:/units/ucs/marine.ucs")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p.Alias != "data" {
		t.Errorf("alias = %q, want %q", p.Alias, "data")
	}
	want := []string{"units", "ucs", "marine.ucs"}
	if len(p.Parts) != len(want) {
		t.Fatalf("parts = %v, want %v", p.Parts, want)
	}
	for i := range want {
		if p.Parts[i] != want[i] {
			t.Errorf("parts[%d] = %q, want %q", i, p.Parts[i], want[i])
		}
	}
}

func TestParseWithoutAlias(t *testing.T) {
	p, err := Parse("/units/marine.ucs")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p.Alias != "" {
		t.Errorf("alias = %q, want empty", p.Alias)
	}
	if len(p.Parts) != 2 {
		t.Fatalf("parts = %v", p.Parts)
	}
}

func TestParseBackslashNormalized(t *testing.T) {
	p, err := Parse(`data:\units\marine.ucs`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(p.Parts) != 2 || p.Parts[0] != "units" || p.Parts[1] != "marine.ucs" {
		t.Fatalf("unexpected parts: %v", p.Parts)
	}
}

func TestParseCollapsesEmptySegments(t *testing.T) {
	p, err := Parse("data://units//marine.ucs/")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(p.Parts) != 2 {
		t.Fatalf("expected doubled/trailing slashes collapsed, got %v", p.Parts)
	}
}

func TestParseEmptyIsInvalid(t *testing.T) {
	if _, err := Parse(""); !errors.Is(err, sga.ErrInvalidPath) {
		t.Fatalf("expected ErrInvalidPath, got %v", err)
	}
	if _, err := Parse("data:"); !errors.Is(err, sga.ErrInvalidPath) {
		t.Fatalf("expected ErrInvalidPath for a bare alias, got %v", err)
	}
}

func TestPathStringRoundTrip(t *testing.T) {
	p, err := Parse("data:/units/marine.ucs")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got, want := p.String(), "data:/units/marine.ucs"; got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}

func TestPathIsRootBaseDir(t *testing.T) {
	root, err := Parse("data:/")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !root.IsRoot() {
		t.Error("expected root path to report IsRoot")
	}
	if root.Base() != "" {
		t.Errorf("Base() of root = %q, want empty", root.Base())
	}

	p, err := Parse("data:/units/marine.ucs")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p.IsRoot() {
		t.Error("non-root path reported IsRoot")
	}
	if p.Base() != "marine.ucs" {
		t.Errorf("Base() = %q, want %q", p.Base(), "marine.ucs")
	}
	dir := p.Dir()
	if dir.String() != "data:/units" {
		t.Errorf("Dir().String() = %q, want %q", dir.String(), "data:/units")
	}
}

func TestPathJoin(t *testing.T) {
	p, err := Parse("data:/units")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	joined := p.Join("marine.ucs")
	if joined.String() != "data:/units/marine.ucs" {
		t.Fatalf("Join result = %q", joined.String())
	}
	// the original path must be unmodified (Join must not alias Parts'
	// backing array across calls)
	if len(p.Parts) != 1 {
		t.Fatalf("original path mutated by Join: %v", p.Parts)
	}
}
