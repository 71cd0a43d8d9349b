package tokenize

// IsLetter reports whether r is an ASCII letter.
func IsLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

// IsDigit reports whether r is an ASCII decimal digit.
func IsDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

// IsSymbolStart reports whether r may begin a symbol.
func IsSymbolStart(r rune) bool {
	return IsLetter(r) || r == '_'
}

// IsSymbolPart reports whether r may continue a symbol.
func IsSymbolPart(r rune) bool {
	return IsSymbolStart(r) || IsDigit(r)
}

// IsNewline reports whether r terminates a line comment.
func IsNewline(r rune) bool {
	return r == '\n' || r == '\r'
}

// IsSpace reports whether r is whitespace between tokens.
func IsSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r', '\f', '\v':
		return true
	}
	return false
}

func isExponentMark(r rune) bool {
	return r == 'e' || r == 'E'
}

func isSign(r rune) bool {
	return r == '+' || r == '-'
}
