package sweep

import (
	"fmt"
	"strings"
)

// ExtractMetric returns the whitespace-separated field at index field of
// output. Trailing whitespace is ignored. Output with too few fields yields
// ErrMalformedOutput; no default is substituted.
func ExtractMetric(output string, field int) (string, error) {
	fields := strings.Fields(strings.TrimRight(output, " \t\r\n"))
	if field < 0 || field >= len(fields) {
		return "", fmt.Errorf("%w: want field %d, got %d fields in %q",
			ErrMalformedOutput, field, len(fields), output)
	}

	return fields[field], nil
}
