package folders

import "strings"

// Separator joins folder names into a path. Folder names may themselves
// contain the separator, so segments are escaped when a path is built and
// unescaped when it is split. JoinPath and SplitPath are exact inverses:
// SplitPath(JoinPath(segments)) == segments for any segment list.
const Separator = "/"

// EscapeSegment escapes a single folder name for inclusion in a path.
func EscapeSegment(name string) string {
	name = strings.ReplaceAll(name, `\`, `\\`)
	return strings.ReplaceAll(name, Separator, `\`+Separator)
}

// JoinPath builds a path string from raw segment names.
func JoinPath(segments []string) string {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = EscapeSegment(s)
	}
	return strings.Join(escaped, Separator)
}

// SplitPath splits a path string into raw segment names, honoring escapes.
func SplitPath(path string) []string {
	if path == "" {
		return nil
	}

	var segments []string
	var cur strings.Builder
	escaped := false
	for _, r := range path {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case string(r) == Separator:
			segments = append(segments, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	// A trailing backslash is kept literally rather than dropped.
	if escaped {
		cur.WriteByte('\\')
	}
	segments = append(segments, cur.String())
	return segments
}
