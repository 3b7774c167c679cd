package recognize

import "strings"

// resultLog folds backend responses into the fragment list of one stream.
type resultLog struct {
	finals   []string
	interims []string
}

// apply merges one response and reports whether the snapshot changed. Every
// non-empty final is kept as its own segment in arrival order.
func (l *resultLog) apply(results []Result) ([]Fragment, bool) {
	if len(results) == 0 {
		return nil, false
	}

	var interims []string
	for _, result := range results {
		text := cleanSegment(result.Text)
		if text == "" {
			continue
		}
		if result.Final {
			l.finals = append(l.finals, text)
			continue
		}
		interims = append(interims, text)
	}
	l.interims = interims
	return l.snapshot(), true
}

// snapshot lists committed finals followed by the latest interims.
func (l *resultLog) snapshot() []Fragment {
	out := make([]Fragment, 0, len(l.finals)+len(l.interims))
	for _, text := range l.finals {
		out = append(out, Fragment{Text: text, Final: true})
	}
	for _, text := range l.interims {
		out = append(out, Fragment{Text: text})
	}
	return out
}

// JoinFragments renders fragments as one transcript string.
func JoinFragments(fragments []Fragment) string {
	parts := make([]string, 0, len(fragments))
	for _, fragment := range fragments {
		if text := cleanSegment(fragment.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

// cleanSegment normalizes transcript whitespace.
func cleanSegment(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	return strings.Join(strings.Fields(raw), " ")
}
