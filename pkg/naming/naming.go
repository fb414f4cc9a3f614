// Package naming computes the on-disk names used by the backup tree.
//
// Every backed-up entity has two potential names: a canonical name (the
// actual storage location, either the stable Trello identifier or a
// sanitized human-readable label) and an optional alias (an ASCII-only
// human-readable name used for symbolic links). All functions here are
// pure; callers decide what to do with the returned names.
package naming

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxNameLength is the cap applied to every sanitized name. Remote display
// names are unbounded; filesystems are not.
const MaxNameLength = 100

var hostileReplacer = strings.NewReplacer(
	"<", "_",
	">", "_",
	":", "_",
	"/", "_",
	"\\", "_",
	"|", "_",
	"?", "_",
	"*", "_",
	"'", "_",
)

// Sanitize replaces path-hostile characters with underscores and truncates
// the result to MaxNameLength runes, guaranteeing a filesystem-legal name
// regardless of what the remote side called the entity.
func Sanitize(name string) string {
	clean := hostileReplacer.Replace(name)
	r := []rune(clean)
	if len(r) > MaxNameLength {
		clean = string(r[:MaxNameLength])
	}
	return clean
}

// Transliterate converts name to its closest ASCII equivalent by
// decomposing accented characters, stripping the combining marks, and
// dropping any rune still outside the ASCII range. Symlink names must
// survive filesystems that reject non-ASCII path components.
func Transliterate(name string) string {
	asciiFold := transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		runes.Remove(runes.Predicate(func(r rune) bool { return r > unicode.MaxASCII })),
		norm.NFC,
	)
	out, _, err := transform.String(asciiFold, name)
	if err != nil {
		return name
	}
	return out
}

// Resolve returns the canonical on-disk name for an entity.
//
// In tokenized mode the stable identifier is the name. Otherwise the
// sanitized display name is used, prefixed with the sequence index when one
// is supplied (seq >= 0) so that siblings sharing a display name stay
// distinct. Pass seq < 0 for entities without a natural ordering, such as
// boards.
func Resolve(displayName, id string, seq int, tokenize bool) string {
	if tokenize {
		return id
	}
	if seq < 0 {
		return Sanitize(displayName)
	}
	return fmt.Sprintf("%d_%s", seq, Sanitize(displayName))
}

// Alias returns the human-readable symlink name for an entity: the
// sanitized, transliterated display name, sequence-prefixed like Resolve.
// The alias is never a storage target.
func Alias(displayName string, seq int) string {
	name := Transliterate(Sanitize(displayName))
	if seq < 0 {
		return name
	}
	return fmt.Sprintf("%d_%s", seq, name)
}

// Ext returns the extension of a remote file name, including the dot, or
// the empty string when there is none.
func Ext(filename string) string {
	return filepath.Ext(filename)
}
