package cleaning

import (
	"bytes"
	"encoding/json"
	"errors"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

// ErrInvalidMessages is returned when a conversation cannot be decoded into turns
var ErrInvalidMessages = errors.New("invalid message format")

// conversationMessage keeps Content optional so a missing field survives decoding
type conversationMessage struct {
	Role    string  `json:"role"`
	Content *string `json:"content,omitempty"`
}

// parseMessages decodes a serialized conversation. Besides plain JSON it accepts the
// newline-separated object lists and single-quoted literals found in CSV mirrors.
func parseMessages(raw string) ([]conversationMessage, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrInvalidMessages
	}

	candidates := []string{raw}
	fixed := strings.ReplaceAll(raw, "}\n {", "}, {")
	fixed = strings.ReplaceAll(fixed, "}\n{", "}, {")
	if fixed != raw {
		candidates = append(candidates, fixed)
	}
	if converted, ok := pythonLiteralToJSON(fixed); ok {
		candidates = append(candidates, converted)
	}

	for _, candidate := range candidates {
		var msgs []conversationMessage
		if err := json.Unmarshal([]byte(candidate), &msgs); err == nil {
			return msgs, nil
		}
	}
	return nil, ErrInvalidMessages
}

// canonicalJSON serializes messages the way the pattern table expects:
// compact, role before content, no HTML escaping.
func canonicalJSON(msgs []conversationMessage) (string, error) {
	blob, _, err := canonicalConversation(msgs)
	return blob, err
}

// canonicalConversation is canonicalJSON plus the byte offset at which each
// user/assistant pair starts in the blob. Element-wise encoding yields the same
// bytes as encoding the slice.
func canonicalConversation(msgs []conversationMessage) (string, []int, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)

	var b strings.Builder
	pairs := make([]int, 0, (len(msgs)+1)/2)
	b.WriteByte('[')
	for i, m := range msgs {
		if i > 0 {
			b.WriteByte(',')
		}
		if i%2 == 0 {
			pairs = append(pairs, b.Len())
		}
		buf.Reset()
		if err := encoder.Encode(m); err != nil {
			return "", nil, err
		}
		b.WriteString(strings.TrimRight(buf.String(), "\n"))
	}
	b.WriteByte(']')
	return b.String(), pairs, nil
}

// pairAt returns the 1-based pair whose span contains offset
func pairAt(pairs []int, offset int) int {
	i := sort.Search(len(pairs), func(i int) bool { return pairs[i] > offset })
	if i < 1 {
		return 1
	}
	return i
}

// pythonLiteralToJSON rewrites a Python list/dict literal into JSON
func pythonLiteralToJSON(s string) (string, bool) {
	runes := []rune(s)
	var b strings.Builder

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '\'' || r == '"':
			str, end, ok := readPythonString(runes, i)
			if !ok {
				return "", false
			}
			quoted, err := json.Marshal(str)
			if err != nil {
				return "", false
			}
			b.Write(quoted)
			i = end
		case hasKeyword(runes, i, "None"):
			b.WriteString("null")
			i += 3
		case hasKeyword(runes, i, "True"):
			b.WriteString("true")
			i += 3
		case hasKeyword(runes, i, "False"):
			b.WriteString("false")
			i += 4
		default:
			b.WriteRune(r)
		}
	}
	return b.String(), true
}

// readPythonString decodes the string literal opening at start and returns the
// index of its closing quote
func readPythonString(runes []rune, start int) (string, int, bool) {
	quote := runes[start]
	var sb strings.Builder

	for i := start + 1; i < len(runes); i++ {
		r := runes[i]
		if r == quote {
			return sb.String(), i, true
		}
		if r != '\\' || i+1 >= len(runes) {
			sb.WriteRune(r)
			continue
		}

		i++
		switch esc := runes[i]; esc {
		case 'n':
			sb.WriteRune('\n')
		case 't':
			sb.WriteRune('\t')
		case 'r':
			sb.WriteRune('\r')
		case '\\', '\'', '"':
			sb.WriteRune(esc)
		case 'u':
			if i+4 < len(runes) {
				if code, err := strconv.ParseUint(string(runes[i+1:i+5]), 16, 32); err == nil {
					sb.WriteRune(rune(code))
					i += 4
					continue
				}
			}
			sb.WriteString(`\u`)
		default:
			sb.WriteRune('\\')
			sb.WriteRune(esc)
		}
	}
	return "", 0, false
}

func hasKeyword(runes []rune, i int, word string) bool {
	w := []rune(word)
	if i+len(w) > len(runes) || string(runes[i:i+len(w)]) != word {
		return false
	}
	if i > 0 && isIdentRune(runes[i-1]) {
		return false
	}
	end := i + len(w)
	return end == len(runes) || !isIdentRune(runes[end])
}

func isIdentRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
