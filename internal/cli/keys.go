package cli

type actionKind int

const (
	actNext actionKind = iota + 1
	actPrev
	actSelect
	actClear
	actFlag
	actSubmit
	actStart
	actFocusLost
	actFocusGained
	actQuit
)

type keyAction struct {
	kind   actionKind
	option int // for actSelect, zero-based
}

// parseInput turns raw terminal bytes into actions. Focus reports
// (ESC [ I / ESC [ O) arrive once focus reporting is enabled.
func parseInput(buf []byte) []keyAction {
	var out []keyAction
	for i := 0; i < len(buf); i++ {
		b := buf[i]
		if b == 0x1b {
			if i+2 < len(buf) && buf[i+1] == '[' {
				if a, ok := csiAction(buf[i+2]); ok {
					out = append(out, a)
				}
				i += 2
			}
			continue
		}

		switch {
		case b >= '1' && b <= '9':
			out = append(out, keyAction{kind: actSelect, option: int(b - '1')})
		case b == 'n' || b == 'l':
			out = append(out, keyAction{kind: actNext})
		case b == 'p' || b == 'h':
			out = append(out, keyAction{kind: actPrev})
		case b == 'c':
			out = append(out, keyAction{kind: actClear})
		case b == 'f':
			out = append(out, keyAction{kind: actFlag})
		case b == 's':
			out = append(out, keyAction{kind: actSubmit})
		case b == '\r' || b == '\n':
			out = append(out, keyAction{kind: actStart})
		case b == 'q' || b == 0x03:
			out = append(out, keyAction{kind: actQuit})
		}
	}
	return out
}

func csiAction(final byte) (keyAction, bool) {
	switch final {
	case 'C', 'B':
		return keyAction{kind: actNext}, true
	case 'D', 'A':
		return keyAction{kind: actPrev}, true
	case 'O':
		return keyAction{kind: actFocusLost}, true
	case 'I':
		return keyAction{kind: actFocusGained}, true
	}
	return keyAction{}, false
}
