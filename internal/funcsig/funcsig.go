// Package funcsig splits a demangled C++ signature into the three
// name forms the data model tracks: the full signature as demangled,
// the template-stripped signature, and the bare name with both
// templates and argument lists removed.
package funcsig

import "strings"

// Split takes a demangled full name (e.g.
// "std::vector<int, std::allocator<int> >::push_back(int const&)") and
// returns (fullName, templateName, name):
//   - fullName is returned unchanged.
//   - templateName has the trailing argument-list parens stripped but
//     keeps template angle brackets.
//   - name additionally removes every template argument list, angle
//     brackets included, and anonymous-namespace/compiler-local
//     markers are left to the normalize package.
func Split(fullName string) (full, template, name string) {
	full = fullName
	template = stripTrailingArgList(fullName)
	name = collapseTemplateArgs(template)
	return full, template, name
}

// stripTrailingArgList removes a trailing "(...)" argument list,
// matched by balanced parens from the end, plus any trailing
// "const"/"volatile"/ref-qualifier/noexcept tokens that follow it.
func stripTrailingArgList(s string) string {
	end := len(s)
	for end > 0 && (s[end-1] == ' ' || isQualifierTail(s, end)) {
		if trimmed, ok := trimQualifierTail(s, end); ok {
			end = trimmed
			continue
		}
		break
	}
	if end == 0 || s[end-1] != ')' {
		return s
	}

	depth := 0
	for i := end - 1; i >= 0; i-- {
		switch s[i] {
		case ')':
			depth++
		case '(':
			depth--
			if depth == 0 {
				return s[:i]
			}
		}
	}
	return s
}

func isQualifierTail(s string, end int) bool {
	_, ok := trimQualifierTail(s, end)
	return ok
}

func trimQualifierTail(s string, end int) (int, bool) {
	for _, q := range []string{" const", " volatile", " noexcept", " &&", " &"} {
		if end >= len(q) && s[end-len(q):end] == q {
			return end - len(q), true
		}
	}
	return end, false
}

// collapseTemplateArgs replaces every top-level "<...>" template
// argument list with nothing, leaving the bare function/method name. It
// walks left to right tracking bracket depth so nested templates
// collapse along with their parent.
func collapseTemplateArgs(s string) string {
	var b strings.Builder
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '<':
			depth++
		case '>':
			if depth > 0 {
				depth--
			}
		default:
			if depth == 0 {
				b.WriteByte(s[i])
			}
		}
	}
	return b.String()
}
