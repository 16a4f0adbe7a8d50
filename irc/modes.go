package irc

import "strings"

// ModeKind classifies a channel mode character per CHANMODES, as
// advertised by ISUPPORT (spec.md §4.3): type A modes are list modes
// (bans, quiets, ...), type B always take a parameter, type C take one
// only when being set, type D never take one. Status modes from PREFIX
// are handled like type B but are not listed in CHANMODES.
type ModeKind int

const (
	ModeKindUnknown ModeKind = iota
	ModeKindList             // A
	ModeKindAlways           // B
	ModeKindOnSet            // C
	ModeKindFlag             // D
	ModeKindStatus           // PREFIX mode, e.g. o, v
)

func classifyMode(mode byte, chanModes [4]string, prefixModes string) ModeKind {
	if strings.IndexByte(prefixModes, mode) >= 0 {
		return ModeKindStatus
	}
	if strings.IndexByte(chanModes[0], mode) >= 0 {
		return ModeKindList
	}
	if strings.IndexByte(chanModes[1], mode) >= 0 {
		return ModeKindAlways
	}
	if strings.IndexByte(chanModes[2], mode) >= 0 {
		return ModeKindOnSet
	}
	if strings.IndexByte(chanModes[3], mode) >= 0 {
		return ModeKindFlag
	}
	return ModeKindUnknown
}

// ModeChange is one +/- step of a MODE message, resolved against
// CHANMODES/PREFIX so callers know whether Param is a nickname (status),
// a mask (list), or absent/opaque.
type ModeChange struct {
	Enable bool
	Mode   byte
	Kind   ModeKind
	Param  string // "" when the mode takes no parameter.
}

// ParseChannelMode walks a MODE mode-string with a sign cursor ('+'
// default, per spec.md §4.4), consuming params from args as each mode
// character's kind dictates.
func ParseChannelMode(modeStr string, args []string, chanModes [4]string, prefixModes string) ([]ModeChange, error) {
	var changes []ModeChange
	enable := true
	ai := 0

	for i := 0; i < len(modeStr); i++ {
		c := modeStr[i]
		switch c {
		case '+':
			enable = true
			continue
		case '-':
			enable = false
			continue
		}

		kind := classifyMode(c, chanModes, prefixModes)
		change := ModeChange{Enable: enable, Mode: c, Kind: kind}

		takesParam := false
		switch kind {
		case ModeKindStatus, ModeKindList, ModeKindAlways:
			takesParam = true
		case ModeKindOnSet:
			takesParam = enable
		case ModeKindUnknown:
			// Unknown modes are tolerated: assume no parameter, matching
			// "some clients assume any mode not listed is type D."
			takesParam = false
		}

		if takesParam && ai < len(args) {
			change.Param = args[ai]
			ai++
		}

		changes = append(changes, change)
	}

	return changes, nil
}

// Member is one entry from a NAMES (353) reply: the bare nickname plus
// the status symbols it was decorated with.
type Member struct {
	Name     string
	Statuses string // symbols, in server-given order.
}

// ParseNameReplyToken splits one whitespace-delimited NAMES token into
// its leading status symbols and bare nickname, given the set of known
// status symbols. Unknown leading characters are treated as part of the
// nickname, matching the NAMES edge case in spec.md §4.3 ("unknown
// prefix character... is tolerated").
func ParseNameReplyToken(token, symbols string) Member {
	i := 0
	for i < len(token) && strings.IndexByte(symbols, token[i]) >= 0 {
		i++
	}
	return Member{Statuses: token[:i], Name: token[i:]}
}

// ParseNameReply splits a full NAMES parameter into its member tokens.
func ParseNameReply(names, symbols string) []Member {
	fields := strings.Fields(names)
	members := make([]Member, 0, len(fields))
	for _, f := range fields {
		members = append(members, ParseNameReplyToken(f, symbols))
	}
	return members
}
