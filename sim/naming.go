package sim

import (
	"fmt"
	"strconv"
	"strings"
)

// ValidateName checks that an element name follows the naming convention.
//
//  1. It may be organized in a hierarchical structure with dots. For example,
//     "Chain.AAndB" is valid, but "Chain.AAndB." is not.
//  2. Individual names must not be empty. For example, "A..B" is not valid.
//  3. Individual names must be capitalized CamelCase.
//  4. Elements in a series are named with square brackets, as in "Stage[3]".
func ValidateName(name string) error {
	for _, token := range strings.Split(name, ".") {
		if err := validateNameToken(token); err != nil {
			return fmt.Errorf("name %q: %s: %w", name, err, ErrInvalidElementName)
		}
	}

	return nil
}

func validateNameToken(token string) error {
	base, err := splitIndices(token)
	if err != nil {
		return err
	}

	if base == "" {
		return fmt.Errorf("element must not be empty")
	}

	for _, c := range []string{"_", "\"", "'", "-", " "} {
		if strings.Contains(base, c) {
			return fmt.Errorf("element must not contain %q", c)
		}
	}

	if base[0] < 'A' || base[0] > 'Z' {
		return fmt.Errorf("element must start with a capital letter")
	}

	return nil
}

// splitIndices strips the trailing "[n]" groups of a token and returns what is
// left.
func splitIndices(token string) (string, error) {
	open := strings.IndexByte(token, '[')
	if open < 0 {
		if strings.ContainsRune(token, ']') {
			return "", fmt.Errorf("brackets must match")
		}

		return token, nil
	}

	rest := token[open:]
	for rest != "" {
		end := strings.IndexByte(rest, ']')
		if rest[0] != '[' || end < 0 {
			return "", fmt.Errorf("brackets must match")
		}

		if _, err := strconv.Atoi(rest[1:end]); err != nil {
			return "", fmt.Errorf("index must be an integer")
		}

		rest = rest[end+1:]
	}

	return token[:open], nil
}
