package naming

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// separators are the characters treated as path separators when extracting
// the file-name component of an input path.
const separators = "/" + string(os.PathSeparator)

// Resolve maps a job's batch position, input path, and the batch policy to
// the output file name (not a full path). extension must start with ".".
func Resolve(index int, inputPath string, policy Policy, extension string) (string, error) {
	if err := ValidateExtension(extension); err != nil {
		return "", err
	}
	if err := policy.Validate(); err != nil {
		return "", err
	}
	if index < 0 {
		return "", fmt.Errorf("%w: %d", ErrInvalidIndex, index)
	}

	switch policy.kind {
	case KindSequencePrefix:
		return policy.prefix + strconv.Itoa(index) + extension, nil
	default:
		name := baseName(inputPath)
		if name == "" {
			return "", fmt.Errorf("%w: %q has no file name", ErrInvalidInput, inputPath)
		}
		return stem(name) + extension, nil
	}
}

// ValidateExtension checks that ext is a usable target extension: a leading
// dot followed by at least one character and no path separators.
func ValidateExtension(ext string) error {
	if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
		return fmt.Errorf("%w: %q must start with \".\"", ErrInvalidExtension, ext)
	}
	if strings.ContainsAny(ext, separators) {
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidExtension, ext)
	}
	return nil
}

// baseName returns the substring after the last path separator.
func baseName(path string) string {
	if i := strings.LastIndexAny(path, separators); i >= 0 {
		return path[i+1:]
	}
	return path
}

// stem strips the final extension from name. Leading dots belong to the
// name, so ".hidden" keeps its full name and ".a.b" becomes ".a".
func stem(name string) string {
	lead := len(name) - len(strings.TrimLeft(name, "."))
	if i := strings.LastIndex(name[lead:], "."); i >= 0 {
		return name[:lead+i]
	}
	return name
}
