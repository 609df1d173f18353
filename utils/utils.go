// Package utils provides path helpers shared by the storage backends.
package utils

import (
	"errors"
	"regexp"
	"strings"
)

const (
	// ErrBadAbsFilePath constant is returned when a file path is not absolute
	ErrBadAbsFilePath = "absolute file path is invalid - must include leading slash and may not include trailing slash"
	// ErrBadAbsLocationPath constant is returned when a path is not absolute
	ErrBadAbsLocationPath = "absolute path is invalid - must include a leading slash"
)

// RemoveTrailingSlash removes trailing slash, if any
func RemoveTrailingSlash(path string) string {
	return strings.TrimRight(path, "/")
}

// RemoveLeadingSlash removes leading slash, if any
func RemoveLeadingSlash(path string) string {
	return strings.TrimLeft(path, "/")
}

// EnsureTrailingSlash adds a trailing slash if there wasn't one. Only ever
// uses / since it's used for storage keys, never a Windows OS path.
func EnsureTrailingSlash(dir string) string {
	if strings.HasSuffix(dir, "/") {
		return dir
	}
	return dir + "/"
}

// EnsureLeadingSlash is like EnsureTrailingSlash except that it adds the leading slash if needed.
func EnsureLeadingSlash(dir string) string {
	if strings.HasPrefix(dir, "/") {
		return dir
	}
	return "/" + dir
}

// ValidateAbsFilePath ensures that a file path has a leading slash but not a trailing slash
func ValidateAbsFilePath(name string) error {
	if !strings.HasPrefix(name, "/") || strings.HasSuffix(name, "/") {
		return errors.New(ErrBadAbsFilePath)
	}
	return nil
}

// ValidateAbsPath ensures that a path has a leading slash
func ValidateAbsPath(name string) error {
	if !strings.HasPrefix(name, "/") {
		return errors.New(ErrBadAbsLocationPath)
	}
	return nil
}

// RegexpPrefix returns the literal prefix a name must have to possibly match
// the expression, or "" when none can be derived. Only anchored expressions
// yield a prefix, and only the literal run before the first metacharacter
// counts. Callers use the result to narrow a server-side listing; it is an
// optimization only and never replaces matching against the full expression.
func RegexpPrefix(expression *regexp.Regexp) string {
	if expression == nil {
		return ""
	}

	expr := expression.String()
	if !strings.HasPrefix(expr, "^") {
		return ""
	}

	// A top-level alternation means the anchor and any literal head bind only
	// to the first branch, so no prefix is mandatory. Alternation inside a
	// group does not reach the head, but the scan stays conservative about
	// bracket expressions and treats their | as top level too.
	depth := 0
	escaped := false
	for _, r := range expr {
		switch {
		case escaped:
			escaped = false
		case r == '\\':
			escaped = true
		case r == '(':
			depth++
		case r == ')':
			depth--
		case r == '|' && depth == 0:
			return ""
		}
	}

	var literal []rune

	for _, r := range expr[1:] {
		if strings.ContainsRune(`.*+?()[]{}|$\`, r) {
			// A quantifier binds to the preceding character, so that
			// character is not a guaranteed part of the prefix either.
			if len(literal) > 0 && strings.ContainsRune(`*+?{`, r) {
				literal = literal[:len(literal)-1]
			}

			break
		}

		literal = append(literal, r)
	}

	return string(literal)
}
