package openai

// repairJSON attempts to fix a common model output defect: object keys
// missing their opening quote, e.g. `, total":` instead of `, "total":`.
func repairJSON(s string) string {
	src := []rune(s)
	fixed := make([]rune, 0, len(src)+16)

	i := 0
	for i < len(src) {
		ch := src[i]
		if ch != '{' && ch != ',' {
			fixed = append(fixed, ch)
			i++
			continue
		}

		fixed = append(fixed, ch)
		i++

		for i < len(src) && (src[i] == ' ' || src[i] == '\n' || src[i] == '\t') {
			fixed = append(fixed, src[i])
			i++
		}

		// A key starting with a letter instead of a quote may be missing
		// its opening quote.
		if i >= len(src) || src[i] == '"' || !isLetter(src[i]) {
			continue
		}

		keyStart := i
		for i < len(src) && (isLetter(src[i]) || src[i] == '_' || src[i] == ' ') {
			i++
		}

		if i+1 < len(src) && src[i] == '"' && src[i+1] == ':' {
			// Unquoted key confirmed: insert the opening quote; the
			// closing quote is already in place.
			fixed = append(fixed, '"')
			fixed = append(fixed, src[keyStart:i]...)
		} else {
			// Not a key after all, copy what was skipped.
			fixed = append(fixed, src[keyStart:i]...)
		}
	}

	return string(fixed)
}

// isLetter returns true if the rune is an ASCII letter.
func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
