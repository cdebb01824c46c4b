package openai

// extractJSON returns the first balanced JSON object in content, which
// models sometimes wrap in prose or markdown fences.
func extractJSON(content string) string {
	start := findJSONStart(content)
	if start < 0 {
		return ""
	}

	end := findJSONEnd(content, start)
	if end <= start {
		return ""
	}

	return content[start:end]
}

func findJSONStart(content string) int {
	for i := 0; i < len(content); i++ {
		if content[i] == '{' {
			return i
		}
	}
	return -1
}

// findJSONEnd returns the index after the brace closing the object opened
// at start, skipping braces inside strings.
func findJSONEnd(content string, start int) int {
	if start < 0 || start >= len(content) || content[start] != '{' {
		return -1
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(content); i++ {
		c := content[i]

		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}

	return -1
}
