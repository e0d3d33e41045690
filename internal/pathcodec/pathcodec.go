// Package pathcodec maps project paths to the encoded directory names the
// agent uses under its log root.
//
// The scheme replaces every path separator with a single dash, so
// /home/user/proj becomes -home-user-proj. It is deliberately lossy: a path
// segment containing a literal dash decodes to the wrong path. The external
// layout was defined this way and consumers depend on matching it exactly, so
// the ambiguity is preserved rather than repaired.
package pathcodec

import "strings"

// Delimiter is the reserved character substituted for path separators.
const Delimiter = "-"

// Encode converts a filesystem project path into its on-disk directory name.
// Both slash conventions are replaced so encoded names are host-independent.
func Encode(path string) string {
	encoded := strings.ReplaceAll(path, "/", Delimiter)
	return strings.ReplaceAll(encoded, "\\", Delimiter)
}

// Decode is the best-effort inverse of Encode. A leading delimiter marks an
// absolute path. Decode never fails; ambiguous inputs produce a plausible but
// possibly wrong path.
func Decode(encoded string) string {
	if strings.HasPrefix(encoded, Delimiter) {
		return "/" + strings.ReplaceAll(encoded[len(Delimiter):], Delimiter, "/")
	}
	return strings.ReplaceAll(encoded, Delimiter, "/")
}
