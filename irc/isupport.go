package irc

import (
	"strconv"
	"strings"
)

// Features is the decoded form of every 005 (RPL_ISUPPORT) line seen so
// far. Recognized tokens populate the typed fields below; every token,
// recognized or not, is also kept in Raw (value \xHH-decoded) for
// introspection.
type Features struct {
	Prefix    PrefixSpec
	ChanModes [4]string // A,B,C,D groups, see ParseChannelMode.
	ChanTypes string
	Network   string
	StatusMsg string
	Monitor   int // <=0 means absent/unbounded-unknown.
	Watch     int
	NamesX    bool // NAMESX or multi-prefix-equivalent.
	UHNames   bool // UHNAMES or userhost-in-names-equivalent.
	LineLen   int

	CaseMapping string // raw token value, "" until seen.

	Raw map[string]string
}

// PrefixSpec is the decoded form of PREFIX=(modes)symbols. Modes[i] and
// Symbols[i] name the same status; index 0 ranks highest.
type PrefixSpec struct {
	Modes   string
	Symbols string
}

// Rank returns the 0-based rank of a status symbol or mode character
// (lower is higher status), or -1 if unknown.
func (p PrefixSpec) Rank(symbolOrMode byte) int {
	if i := strings.IndexByte(p.Symbols, symbolOrMode); i >= 0 {
		return i
	}
	if i := strings.IndexByte(p.Modes, symbolOrMode); i >= 0 {
		return i
	}
	return -1
}

// SymbolForMode returns the status symbol for a PREFIX mode character.
func (p PrefixSpec) SymbolForMode(mode byte) (byte, bool) {
	if i := strings.IndexByte(p.Modes, mode); i >= 0 {
		return p.Symbols[i], true
	}
	return 0, false
}

// DefaultFeatures returns the conservative defaults to assume before any
// 005 line has been seen.
func DefaultFeatures() Features {
	return Features{
		Prefix:      PrefixSpec{Modes: "ov", Symbols: "@+"},
		ChanModes:   [4]string{"b", "", "", ""},
		ChanTypes:   "#&",
		LineLen:     512,
		CaseMapping: "rfc1459",
		Raw:         map[string]string{},
	}
}

// Update decodes the parameter tokens of one 005 line (with the leading
// nickname and trailing ":are supported" trimmed by the caller) and
// reports whether CASEMAPPING changed (callers must re-key their folded
// containers when it did).
func (f *Features) Update(tokens []string) (casemapChanged bool) {
	if f.Raw == nil {
		f.Raw = map[string]string{}
	}
	for _, tok := range tokens {
		if tok == "" {
			continue
		}
		if strings.HasPrefix(tok, "-") {
			key := strings.ToUpper(tok[1:])
			if eq := strings.IndexByte(key, '='); eq >= 0 {
				key = key[:eq]
			}
			delete(f.Raw, key)
			continue
		}

		key, value := tok, ""
		if eq := strings.IndexByte(tok, '='); eq >= 0 {
			key, value = tok[:eq], tok[eq+1:]
		}
		key = strings.ToUpper(key)
		value = decodeISupportValue(value)
		f.Raw[key] = value

		switch key {
		case "CASEMAPPING":
			if f.CaseMapping != value {
				casemapChanged = true
			}
			f.CaseMapping = value
		case "CHANTYPES":
			f.ChanTypes = value
		case "NETWORK":
			f.Network = value
		case "STATUSMSG":
			f.StatusMsg = value
		case "CHANMODES":
			groups := strings.SplitN(value, ",", 5)
			for i := 0; i < 4; i++ {
				if i < len(groups) {
					f.ChanModes[i] = groups[i]
				} else {
					f.ChanModes[i] = ""
				}
			}
		case "PREFIX":
			if spec, ok := parsePrefixSpec(value); ok {
				f.Prefix = spec
			}
		case "MONITOR":
			if n, err := strconv.Atoi(value); err == nil {
				f.Monitor = n
			}
		case "WATCH":
			if n, err := strconv.Atoi(value); err == nil {
				f.Watch = n
			}
		case "NAMESX":
			f.NamesX = true
		case "UHNAMES":
			f.UHNames = true
		case "LINELEN":
			if n, err := strconv.Atoi(value); err == nil && n > 0 {
				f.LineLen = n
			}
		}
	}
	return casemapChanged
}

// HasMonitor/HasWatch report whether the network advertised that
// presence-subscription protocol.
func (f Features) HasMonitor() bool {
	_, ok := f.Raw["MONITOR"]
	return f.Monitor > 0 || ok
}
func (f Features) HasWatch() bool {
	_, ok := f.Raw["WATCH"]
	return f.Watch > 0 || ok
}

func parsePrefixSpec(value string) (PrefixSpec, bool) {
	if value == "" {
		return PrefixSpec{}, true
	}
	if value[0] != '(' {
		return PrefixSpec{}, false
	}
	close := strings.IndexByte(value, ')')
	if close < 0 {
		return PrefixSpec{}, false
	}
	modes := value[1:close]
	symbols := value[close+1:]
	if len(modes) != len(symbols) {
		return PrefixSpec{}, false
	}
	return PrefixSpec{Modes: modes, Symbols: symbols}, true
}

// decodeISupportValue unescapes \xHH hex escapes in an ISUPPORT value.
func decodeISupportValue(value string) string {
	if !strings.Contains(value, `\x`) {
		return value
	}
	var b strings.Builder
	for i := 0; i < len(value); i++ {
		if value[i] == '\\' && i+3 < len(value) && value[i+1] == 'x' {
			n, err := strconv.ParseUint(value[i+2:i+4], 16, 8)
			if err == nil {
				b.WriteByte(byte(n))
				i += 3
				continue
			}
		}
		b.WriteByte(value[i])
	}
	return b.String()
}
