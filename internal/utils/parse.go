package utils

import (
	"fmt"
	"strconv"
	"strings"
)

// SplitPair splits input at the first sep and trims both halves.
// Input examples:
//   - "1..10" with ".." → "1", "10"
//   - "42@150ms" with "@" → "42", "150ms"
//   - "alice>bob:hi" with ":" → "alice>bob", "hi"
func SplitPair(input, sep string) (string, string, error) {
	parts := strings.SplitN(input, sep, 2)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("expected %q in %q", sep, input)
	}

	key := strings.TrimSpace(parts[0])
	value := strings.TrimSpace(parts[1])
	if key == "" {
		return "", "", fmt.Errorf("missing value before %q in %q", sep, input)
	}
	return key, value, nil
}

// ParseIntList parses integers separated by spaces or commas across all
// args, so both `1 2 3` and `1,2,3` work.
func ParseIntList(args []string) ([]int, error) {
	var out []int
	for _, arg := range args {
		fields := strings.FieldsFunc(arg, func(r rune) bool {
			return r == ',' || r == ' ' || r == '\t'
		})
		for _, f := range fields {
			n, err := strconv.Atoi(f)
			if err != nil {
				return nil, fmt.Errorf("invalid integer %q", f)
			}
			out = append(out, n)
		}
	}
	return out, nil
}
