package oci

import "strings"

// Placeholders holds the bind placeholders found in a statement
type Placeholders struct {
	// Names contains the placeholder names, upper-cased, in order of
	// first appearance. Numeric placeholders such as :1 keep their digits.
	Names []string

	// Positions maps each name to its 1-based occurrence positions. A name
	// may appear more than once.
	Positions map[string][]int

	// Count is the total number of placeholder occurrences
	Count int
}

// Has reports whether the statement contains the named placeholder. The
// leading colon is optional and the match ignores case.
func (p *Placeholders) Has(name string) bool {
	if p == nil {
		return false
	}
	_, ok := p.Positions[normalizeName(name)]
	return ok
}

func normalizeName(name string) string {
	name = strings.TrimPrefix(name, ":")
	if len(name) >= 2 && name[0] == '"' && name[len(name)-1] == '"' {
		return name[1 : len(name)-1]
	}
	return strings.ToUpper(name)
}

// ParsePlaceholders scans query for :name and :n placeholders. Quoted
// strings, quoted identifiers, q'[...]' literals and comments are
// skipped. It returns an empty set when the query has none.
func ParsePlaceholders(query string) *Placeholders {
	result := &Placeholders{
		Positions: make(map[string][]int),
	}
	i := 0
	for i < len(query) {
		c := query[i]

		// Alternative quoting: q'[ ... ]'
		if (c == 'q' || c == 'Q') && i+2 < len(query) && query[i+1] == '\'' && (i == 0 || !isIdentChar(query[i-1])) {
			closer := closingDelimiter(query[i+2])
			i += 3
			for i+1 < len(query) && !(query[i] == closer && query[i+1] == '\'') {
				i++
			}
			i += 2
			continue
		}

		if c == '\'' || c == '"' {
			i = skipQuoted(query, i, c)
			continue
		}

		if c == '-' && i+1 < len(query) && query[i+1] == '-' {
			for i < len(query) && query[i] != '\n' {
				i++
			}
			continue
		}

		if c == '/' && i+1 < len(query) && query[i+1] == '*' {
			i += 2
			for i+1 < len(query) && !(query[i] == '*' && query[i+1] == '/') {
				i++
			}
			i += 2
			continue
		}

		if c == ':' && i+1 < len(query) && (isIdentStart(query[i+1]) || isDigit(query[i+1])) {
			start := i + 1
			end := start + 1
			for end < len(query) && isIdentChar(query[end]) {
				end++
			}
			name := strings.ToUpper(query[start:end])
			result.Count++
			if _, seen := result.Positions[name]; !seen {
				result.Names = append(result.Names, name)
			}
			result.Positions[name] = append(result.Positions[name], result.Count)
			i = end
			continue
		}

		i++
	}
	return result
}

func skipQuoted(query string, i int, quote byte) int {
	i++
	for i < len(query) {
		if query[i] == quote {
			if i+1 < len(query) && query[i+1] == quote {
				i += 2
				continue
			}
			return i + 1
		}
		i++
	}
	return i
}

func closingDelimiter(c byte) byte {
	switch c {
	case '[':
		return ']'
	case '{':
		return '}'
	case '(':
		return ')'
	case '<':
		return '>'
	}
	return c
}

// isIdentStart returns true if c is a valid identifier start character
func isIdentStart(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
}

// isIdentChar returns true if c is a valid identifier character
func isIdentChar(c byte) bool {
	return isIdentStart(c) || isDigit(c) || c == '$' || c == '#'
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
