package irc

// CaseMapping folds a string per one of the three mappings a server can
// advertise via ISUPPORT CASEMAPPING. Folding is applied per 8-bit code
// unit, never per rune, matching the wire's 8-bit-clean nature.
type CaseMapping func(string) string

// CasemapASCII folds 'A'-'Z' to 'a'-'z' and nothing else.
func CasemapASCII(s string) string {
	return foldRunes(s, nil)
}

// CasemapRFC1459 folds the ASCII range plus {}|^ to []\~.
func CasemapRFC1459(s string) string {
	return foldRunes(s, rfc1459Pairs)
}

// CasemapStrictRFC1459 folds the ASCII range plus {}| to []\ (no ^~ pair).
func CasemapStrictRFC1459(s string) string {
	return foldRunes(s, strictRFC1459Pairs)
}

var rfc1459Pairs = [][2]byte{{'{', '['}, {'}', ']'}, {'|', '\\'}, {'^', '~'}}
var strictRFC1459Pairs = [][2]byte{{'{', '['}, {'}', ']'}, {'|', '\\'}}

func foldRunes(s string, extra [][2]byte) string {
	b := []byte(s)
	changed := false
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
			changed = true
			continue
		}
		for _, p := range extra {
			if c == p[0] {
				b[i] = p[1]
				changed = true
				break
			}
		}
	}
	if !changed {
		return s
	}
	return string(b)
}

// caseMappingByName selects the CaseMapping named by an ISUPPORT
// CASEMAPPING value, defaulting to rfc1459 when the value is unrecognized
// (the historical default per the IRC protocol).
func caseMappingByName(name string) CaseMapping {
	switch name {
	case "ascii":
		return CasemapASCII
	case "strict-rfc1459":
		return CasemapStrictRFC1459
	case "rfc1459":
		return CasemapRFC1459
	default:
		return CasemapRFC1459
	}
}
