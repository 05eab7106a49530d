package extractor

import (
	"bytes"
	"compress/zlib"
	"encoding/hex"
	"io"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// extractRaw reads text operators straight out of the document's content
// streams, decoding CID fonts through any ToUnicode maps it finds. It is the
// fallback for files the pdf library cannot open or decode.
func extractRaw(data []byte) []string {
	cmap := newToUnicode()
	var contents []string
	for _, s := range pdfStreams(data) {
		text := string(inflate(s))
		if isCMap(text) {
			cmap.add(text)
			continue
		}
		contents = append(contents, text)
	}

	var lines []string
	for _, c := range contents {
		lines = append(lines, textLines(c, cmap)...)
	}
	if len(lines) == 0 {
		return nil
	}
	return []string{strings.Join(lines, "\n")}
}

// pdfStreams returns the bodies of every stream ... endstream block.
func pdfStreams(data []byte) [][]byte {
	var out [][]byte
	begin, end := []byte("stream"), []byte("endstream")
	for off := 0; off < len(data); {
		i := bytes.Index(data[off:], begin)
		if i < 0 {
			break
		}
		start := off + i + len(begin)
		// "endstream" also contains "stream"; skip it.
		if i >= 3 && bytes.Equal(data[off+i-3:off+i], []byte("end")) {
			off = start
			continue
		}
		if start < len(data) && data[start] == '\r' {
			start++
		}
		if start < len(data) && data[start] == '\n' {
			start++
		}
		j := bytes.Index(data[start:], end)
		if j < 0 {
			break
		}
		if j > 0 {
			out = append(out, data[start:start+j])
		}
		off = start + j + len(end)
	}
	return out
}

// inflate returns the zlib-decoded stream, or the input when it is not
// compressed.
func inflate(b []byte) []byte {
	r, err := zlib.NewReader(bytes.NewReader(b))
	if err != nil {
		return b
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil && len(out) == 0 {
		return b
	}
	return out
}

// textOp matches, in stream order, the operators that show text or move to
// a new line.
var textOp = regexp.MustCompile(`<([0-9A-Fa-f\s]*)>\s*Tj|\(((?:\\.|[^\\)])*)\)\s*(Tj|')|\[((?:\\.|[^\]])*)\]\s*TJ|-?[\d.]+\s+-?[\d.]+\s+T[dD]|T\*|\bET\b`)

// arrayItem matches the strings and kerning numbers inside a TJ array.
var arrayItem = regexp.MustCompile(`<([0-9A-Fa-f\s]*)>|\(((?:\\.|[^\\)])*)\)|(-?[\d.]+)`)

// wordGap is the TJ kerning adjustment, in thousandths of an em, treated as
// a space between words.
const wordGap = -200

func textLines(content string, cmap *toUnicode) []string {
	if !strings.Contains(content, "Tj") && !strings.Contains(content, "TJ") {
		return nil
	}

	var lines []string
	var cur strings.Builder
	flush := func() {
		if line := strings.TrimSpace(cur.String()); line != "" {
			lines = append(lines, line)
		}
		cur.Reset()
	}

	for _, m := range textOp.FindAllStringSubmatch(content, -1) {
		op := m[0]
		switch {
		case strings.HasSuffix(op, "TJ"):
			cur.WriteString(decodeArray(m[4], cmap))
		case strings.HasPrefix(op, "<"):
			cur.WriteString(decodeHex(m[1], cmap))
		case strings.HasPrefix(op, "("):
			if m[3] == "'" {
				flush()
			}
			cur.WriteString(decodeLiteral(m[2], cmap))
		default:
			flush()
		}
	}
	flush()
	return lines
}

func decodeArray(arr string, cmap *toUnicode) string {
	var b strings.Builder
	for _, it := range arrayItem.FindAllStringSubmatch(arr, -1) {
		switch {
		case strings.HasPrefix(it[0], "<"):
			b.WriteString(decodeHex(it[1], cmap))
		case strings.HasPrefix(it[0], "("):
			b.WriteString(decodeLiteral(it[2], cmap))
		default:
			if n, err := strconv.ParseFloat(it[3], 64); err == nil && n <= wordGap {
				b.WriteByte(' ')
			}
		}
	}
	return b.String()
}

func decodeHex(h string, cmap *toUnicode) string {
	h = strings.Join(strings.Fields(h), "")
	if len(h)%2 != 0 {
		h += "0"
	}
	raw, err := hex.DecodeString(h)
	if err != nil {
		return ""
	}
	if s := cmap.decode(raw); s != "" {
		return s
	}
	if len(raw) >= 2 && len(raw)%2 == 0 {
		if s := printable(utf16Hex(h)); s != "" {
			return s
		}
	}
	return printable(string(raw))
}

func decodeLiteral(s string, cmap *toUnicode) string {
	raw := unescape(s)
	if d := cmap.decode([]byte(raw)); d != "" && mostlyPrintable(d) {
		return d
	}
	return printable(raw)
}

// unescape resolves PDF literal-string escapes, including octal codes.
func unescape(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 == len(s) {
			b.WriteByte(c)
			continue
		}
		i++
		switch c = s[i]; c {
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case '0', '1', '2', '3', '4', '5', '6', '7':
			v := int(c - '0')
			for k := 0; k < 2 && i+1 < len(s) && s[i+1] >= '0' && s[i+1] <= '7'; k++ {
				i++
				v = v*8 + int(s[i]-'0')
			}
			b.WriteByte(byte(v))
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func printable(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) || r == '\t' {
			return r
		}
		return -1
	}, s)
}

func mostlyPrintable(s string) bool {
	total, ok := 0, 0
	for _, r := range s {
		total++
		if unicode.IsPrint(r) || unicode.IsSpace(r) {
			ok++
		}
	}
	return total > 0 && ok*2 > total
}
