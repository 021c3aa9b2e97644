package main

// Verdict tags derived from the final round stats.
const (
	VerdictBothSoft    = "both-soft"
	VerdictP1Brutal    = "p1-more-brutal"
	VerdictP2Brutal    = "p2-more-brutal"
	VerdictEqualBrutal = "equal"
)

type Recap struct {
	Stats
	Verdict string `json:"verdict"`
}

// brutalVerdict is a pure function of the stats: whoever initiated more
// rounds is the more brutal player, unless nobody ever picked a dare.
func brutalVerdict(stats Stats) string {
	switch {
	case stats.DareCount == 0:
		return VerdictBothSoft
	case stats.StartedByP1 > stats.StartedByP2:
		return VerdictP1Brutal
	case stats.StartedByP2 > stats.StartedByP1:
		return VerdictP2Brutal
	default:
		return VerdictEqualBrutal
	}
}

// brutalLine maps a verdict tag to the closing one-liner shown to players.
func brutalLine(verdict string) string {
	switch verdict {
	case VerdictBothSoft:
		return "Both kept it soft."
	case VerdictP1Brutal:
		return "Most brutal: Player 1"
	case VerdictP2Brutal:
		return "Most brutal: Player 2"
	default:
		return "You were equally evil."
	}
}

// makeRecap derives the closing summary for a room. Called at most once,
// immediately before the room is deleted.
func makeRecap(stats Stats) Recap {
	return Recap{
		Stats:   stats,
		Verdict: brutalVerdict(stats),
	}
}
