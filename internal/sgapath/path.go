// Package sgapath parses and manipulates the alias-qualified path syntax the
// virtual filesystem uses to address drives, folders and files:
// "alias:/a/b/c". Grounded on internal/squashfs's path handling in reader.go
// (LookupPath) but standard-library only: there is nothing in the corpus's
// third-party stack that does alias-prefixed path splitting, and the logic
// is a dozen lines of string manipulation not worth a dependency for.
package sgapath

import (
	"strings"

	"golang.org/x/xerrors"

	"github.com/MAK-Relic-Tool/Relic-Tool-SGA-V2/internal/sga"
)

// Path is a parsed "alias:/a/b/c" reference. Alias is empty when the path
// had no "alias:" prefix (a path relative to a drive already in hand).
// Parts holds the '/'-separated path segments with empty segments (leading,
// trailing or doubled slashes) removed.
type Path struct {
	Alias string
	Parts []string
}

// Parse splits an alias-qualified path. Both '/' and '\' are accepted as
// separators and normalized to '/'.
func Parse(raw string) (Path, error) {
	s := strings.ReplaceAll(raw, `\`, "/")

	var alias string
	if i := strings.Index(s, ":"); i >= 0 {
		alias = s[:i]
		s = s[i+1:]
		if alias != "" && s == "" {
			return Path{}, xerrors.Errorf("path %q: bare alias: %w", raw, sga.ErrInvalidPath)
		}
	}

	var parts []string
	for _, p := range strings.Split(s, "/") {
		if p == "" {
			continue
		}
		parts = append(parts, p)
	}

	if alias == "" && len(parts) == 0 {
		return Path{}, xerrors.Errorf("path %q: %w", raw, sga.ErrInvalidPath)
	}

	return Path{Alias: alias, Parts: parts}, nil
}

// String reassembles p back into "alias:/a/b/c" form.
func (p Path) String() string {
	var b strings.Builder
	if p.Alias != "" {
		b.WriteString(p.Alias)
		b.WriteByte(':')
	}
	b.WriteByte('/')
	b.WriteString(strings.Join(p.Parts, "/"))
	return b.String()
}

// IsRoot reports whether p addresses the drive root itself.
func (p Path) IsRoot() bool { return len(p.Parts) == 0 }

// Base returns the final path segment, or "" for a root path.
func (p Path) Base() string {
	if len(p.Parts) == 0 {
		return ""
	}
	return p.Parts[len(p.Parts)-1]
}

// Dir returns p with its final segment removed.
func (p Path) Dir() Path {
	if len(p.Parts) == 0 {
		return p
	}
	parent := make([]string, len(p.Parts)-1)
	copy(parent, p.Parts[:len(p.Parts)-1])
	return Path{Alias: p.Alias, Parts: parent}
}

// Join returns p with child appended as a new trailing segment.
func (p Path) Join(child string) Path {
	parts := make([]string, len(p.Parts)+1)
	copy(parts, p.Parts)
	parts[len(p.Parts)] = child
	return Path{Alias: p.Alias, Parts: parts}
}
