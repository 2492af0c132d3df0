package core

import (
	"fmt"
	"strings"
)

const invalidFilenameChars = "<>:\"/\\|?*"

// maxFilenameLen keeps generated names well under common filesystem limits
// once the image extension is appended.
const maxFilenameLen = 100

// SanitizeFilename converts a media title into a name safe for every major
// filesystem: control characters, path separators and reserved characters
// collapse into single spaces.
func SanitizeFilename(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("name is empty after sanitization")
	}

	var b strings.Builder
	b.Grow(len(name))

	lastSpace := false
	for _, r := range name {
		if r < 32 || r == 127 || strings.ContainsRune(invalidFilenameChars, r) {
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
			continue
		}
		if r == ' ' {
			if lastSpace {
				continue
			}
			lastSpace = true
			b.WriteRune(' ')
			continue
		}
		lastSpace = false
		b.WriteRune(r)
	}

	result := strings.TrimSpace(b.String())
	if result == "" {
		return "", fmt.Errorf("name is empty after sanitization")
	}
	if len(result) > maxFilenameLen {
		result = strings.TrimSpace(result[:maxFilenameLen])
	}
	return result, nil
}
