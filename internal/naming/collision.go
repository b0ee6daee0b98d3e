package naming

import (
	"path/filepath"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// CollisionKey canonicalizes an output path for duplicate detection. Paths
// are cleaned and NFC-normalized so composed and decomposed spellings of the
// same name match; foldCase additionally applies Unicode case folding.
func CollisionKey(path string, foldCase bool) string {
	key := norm.NFC.String(filepath.Clean(path))
	if foldCase {
		key = cases.Fold().String(key)
	}
	return key
}
