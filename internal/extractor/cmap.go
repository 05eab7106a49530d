package extractor

import (
	"encoding/hex"
	"regexp"
	"strings"
	"unicode/utf16"
)

// toUnicode maps font character codes to text. Codes are upper-case hex of
// a fixed byte width, taken from the first mapping seen.
type toUnicode struct {
	codes map[string]string
	width int
}

func newToUnicode() *toUnicode {
	return &toUnicode{codes: make(map[string]string)}
}

var (
	bfCharBlock  = regexp.MustCompile(`(?s)beginbfchar(.*?)endbfchar`)
	bfRangeBlock = regexp.MustCompile(`(?s)beginbfrange(.*?)endbfrange`)
	bfCharPair   = regexp.MustCompile(`<([0-9A-Fa-f]+)>\s*<([0-9A-Fa-f]+)>`)
	bfRangeEntry = regexp.MustCompile(`<([0-9A-Fa-f]+)>\s*<([0-9A-Fa-f]+)>\s*(<[0-9A-Fa-f]+>|\[[^\]]*\])`)
	hexToken     = regexp.MustCompile(`<([0-9A-Fa-f]+)>`)
)

// isCMap reports whether a decoded stream carries ToUnicode mappings.
func isCMap(s string) bool {
	return strings.Contains(s, "beginbfchar") || strings.Contains(s, "beginbfrange")
}

// add merges the bfchar and bfrange mappings in a CMap stream.
func (m *toUnicode) add(content string) {
	for _, block := range bfCharBlock.FindAllStringSubmatch(content, -1) {
		for _, p := range bfCharPair.FindAllStringSubmatch(block[1], -1) {
			m.set(p[1], utf16Hex(p[2]))
		}
	}

	for _, block := range bfRangeBlock.FindAllStringSubmatch(content, -1) {
		for _, e := range bfRangeEntry.FindAllStringSubmatch(block[1], -1) {
			lo, okLo := hexInt(e[1])
			hi, okHi := hexInt(e[2])
			if !okLo || !okHi || hi < lo {
				continue
			}
			digits := len(e[1])

			if strings.HasPrefix(e[3], "[") {
				for i, t := range hexToken.FindAllStringSubmatch(e[3], -1) {
					m.set(codeHex(lo+i, digits), utf16Hex(t[1]))
				}
				continue
			}

			dstHex := strings.Trim(e[3], "<>")
			dst, ok := hexInt(dstHex)
			if !ok {
				continue
			}
			for c := lo; c <= hi; c++ {
				m.set(codeHex(c, digits), utf16Hex(codeHex(dst+c-lo, len(dstHex))))
			}
		}
	}
}

func (m *toUnicode) set(code, text string) {
	if text == "" {
		return
	}
	code = strings.ToUpper(code)
	if m.width == 0 {
		m.width = max(len(code)/2, 1)
	}
	m.codes[code] = text
}

func (m *toUnicode) empty() bool { return m == nil || len(m.codes) == 0 }

// decode maps raw string bytes through the table. Unmapped single-byte codes
// that are printable ASCII pass through.
func (m *toUnicode) decode(raw []byte) string {
	if m.empty() {
		return ""
	}
	var b strings.Builder
	for i := 0; i+m.width <= len(raw); {
		if s, ok := m.codes[strings.ToUpper(hex.EncodeToString(raw[i:i+m.width]))]; ok {
			b.WriteString(s)
			i += m.width
			continue
		}
		if m.width > 1 {
			if s, ok := m.codes[strings.ToUpper(hex.EncodeToString(raw[i:i+1]))]; ok {
				b.WriteString(s)
				i++
				continue
			}
		} else if raw[i] >= 0x20 && raw[i] < 0x7f {
			b.WriteByte(raw[i])
		}
		i += m.width
	}
	return b.String()
}

func hexInt(h string) (int, bool) {
	if h == "" || len(h) > 8 {
		return 0, false
	}
	n := 0
	for _, c := range strings.ToUpper(h) {
		switch {
		case c >= '0' && c <= '9':
			n = n<<4 | int(c-'0')
		case c >= 'A' && c <= 'F':
			n = n<<4 | int(c-'A'+10)
		default:
			return 0, false
		}
	}
	return n, true
}

func codeHex(n, digits int) string {
	h := strings.ToUpper(hex.EncodeToString([]byte{byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n)}))
	if len(h) > digits {
		return h[len(h)-digits:]
	}
	return strings.Repeat("0", digits-len(h)) + h
}

// utf16Hex decodes a hex string of UTF-16BE code units, surrogate pairs
// included.
func utf16Hex(h string) string {
	if len(h)%2 != 0 {
		h = "0" + h
	}
	raw, err := hex.DecodeString(h)
	if err != nil {
		return ""
	}
	if len(raw) == 1 {
		return string(rune(raw[0]))
	}
	units := make([]uint16, 0, len(raw)/2)
	for i := 0; i+1 < len(raw); i += 2 {
		units = append(units, uint16(raw[i])<<8|uint16(raw[i+1]))
	}
	return string(utf16.Decode(units))
}
