package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

func decodeJSONC(content string) (filePayload, error) {
	normalized, err := normalizeJSONC(content)
	if err != nil {
		return filePayload{}, err
	}

	decoder := json.NewDecoder(strings.NewReader(normalized))
	decoder.DisallowUnknownFields()

	var payload filePayload
	if err := decoder.Decode(&payload); err != nil {
		return filePayload{}, locateJSONError(normalized, err)
	}
	if err := ensureSingleJSONValue(decoder); err != nil {
		return filePayload{}, locateJSONError(normalized, err)
	}
	return payload, nil
}

// normalizeJSONC blanks comments and trailing commas in one pass. Every
// removed byte becomes a space (newlines are kept), so decoder offsets map
// back to the original text.
func normalizeJSONC(content string) (string, error) {
	out := []byte(content)
	pendingComma := -1
	line := 1

	for i := 0; i < len(out); i++ {
		ch := out[i]
		switch {
		case ch == '\n':
			line++
		case ch == '"':
			end, err := skipString(out, i)
			if err != nil {
				return "", fmt.Errorf("line %d: %w", line, err)
			}
			i = end
			pendingComma = -1
		case ch == '/' && i+1 < len(out) && out[i+1] == '/':
			for i < len(out) && out[i] != '\n' && out[i] != '\r' {
				out[i] = ' '
				i++
			}
			i--
		case ch == '/' && i+1 < len(out) && out[i+1] == '*':
			start := line
			closed := false
			out[i], out[i+1] = ' ', ' '
			for i += 2; i < len(out); i++ {
				if out[i] == '*' && i+1 < len(out) && out[i+1] == '/' {
					out[i], out[i+1] = ' ', ' '
					i++
					closed = true
					break
				}
				switch out[i] {
				case '\n':
					line++
				case '\r', '\t':
				default:
					out[i] = ' '
				}
			}
			if !closed {
				return "", fmt.Errorf("line %d: unterminated block comment in JSONC", start)
			}
		case ch == ',':
			pendingComma = i
		case ch == '}' || ch == ']':
			if pendingComma >= 0 {
				out[pendingComma] = ' '
			}
			pendingComma = -1
		case ch == ' ' || ch == '\t' || ch == '\r':
		default:
			pendingComma = -1
		}
	}

	return string(out), nil
}

// skipString returns the index of the closing quote of the string opening at start.
func skipString(b []byte, start int) (int, error) {
	for i := start + 1; i < len(b); i++ {
		switch b[i] {
		case '\\':
			i++
		case '"':
			return i, nil
		case '\n':
			return 0, errors.New("newline in string literal")
		}
	}
	return 0, errors.New("unterminated string literal")
}

func ensureSingleJSONValue(decoder *json.Decoder) error {
	var extra struct{}
	err := decoder.Decode(&extra)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err == nil {
		return fmt.Errorf("multiple JSON values are not allowed")
	}
	return err
}

// locateJSONError prefixes syntax and type errors with their line and column.
func locateJSONError(content string, err error) error {
	var offset int64
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxErr):
		offset = syntaxErr.Offset
	case errors.As(err, &typeErr):
		offset = typeErr.Offset
	default:
		return err
	}
	line, col := offsetToLineCol(content, offset)
	return fmt.Errorf("line %d column %d: %w", line, col, err)
}

// offsetToLineCol converts a decoder offset (bytes consumed) to the 1-based
// position of the last consumed byte.
func offsetToLineCol(content string, offset int64) (int, int) {
	if offset <= 0 {
		return 1, 1
	}
	end := max(min(int(offset), len(content))-1, 0)
	prefix := content[:end]
	line := strings.Count(prefix, "\n") + 1
	col := end - (strings.LastIndexByte(prefix, '\n') + 1) + 1
	return line, col
}
