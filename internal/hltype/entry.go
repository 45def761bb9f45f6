package hltype

import "strings"

// Entry is one record of a hash list.
type Entry struct {
	// ID is the resource identifier. IDs are unique within a hash list.
	ID ID

	// ResourceType is the kind of resource (e.g., "TEMP").
	ResourceType ResourceType

	// Path is the canonical resource path. Empty when only the hash is known.
	Path string

	// Hint is an optional human-readable alias or comment.
	Hint string

	// Flags records in which games the resource was seen.
	Flags Flags
}

// HasPath reports whether the entry's path is known.
func (e Entry) HasPath() bool {
	return e.Path != ""
}

// GameVersion identifies a game release sharing the resource format.
type GameVersion uint8

// Known game versions.
const (
	GameH1 GameVersion = iota // HITMAN (2016)
	GameH2                    // HITMAN 2
	GameH3                    // HITMAN 3
)

// String returns the short game name.
func (g GameVersion) String() string {
	switch g {
	case GameH1:
		return "h1"
	case GameH2:
		return "h2"
	case GameH3:
		return "h3"
	default:
		return "unknown"
	}
}

// Flags is the provenance bitset stored with each entry. Bit n is set when
// the resource was seen in GameVersion n; higher bits are kept verbatim.
type Flags uint8

// Flag returns the bit for g.
func (g GameVersion) Flag() Flags {
	return 1 << g
}

// Has reports whether the resource was seen in g.
func (f Flags) Has(g GameVersion) bool {
	return g <= GameH3 && f&g.Flag() != 0
}

// Games returns the known games recorded in f, oldest first.
func (f Flags) Games() []GameVersion {
	var games []GameVersion
	for g := GameH1; g <= GameH3; g++ {
		if f.Has(g) {
			games = append(games, g)
		}
	}
	return games
}

// String lists the recorded games, e.g. "h1|h3".
func (f Flags) String() string {
	games := f.Games()
	if len(games) == 0 {
		return "none"
	}
	names := make([]string, len(games))
	for i, g := range games {
		names[i] = g.String()
	}
	return strings.Join(names, "|")
}
