package naming

import (
	"fmt"
	"strings"

	"batchmux/internal/services"
)

var (
	// ErrInvalidPolicy reports a policy with no variant selected or an unusable prefix.
	ErrInvalidPolicy = fmt.Errorf("%w: invalid naming policy", services.ErrValidation)
	// ErrInvalidExtension reports a target extension that does not start with ".".
	ErrInvalidExtension = fmt.Errorf("%w: invalid extension", services.ErrValidation)
	// ErrInvalidInput reports an input path without a file-name component.
	ErrInvalidInput = fmt.Errorf("%w: invalid input path", services.ErrValidation)
	// ErrInvalidIndex reports a negative batch position.
	ErrInvalidIndex = fmt.Errorf("%w: invalid job index", services.ErrValidation)
)

// Kind identifies the active naming variant.
type Kind int

const (
	// KindUnset is the zero value; resolving with it fails.
	KindUnset Kind = iota
	// KindOriginalName reuses the input stem.
	KindOriginalName
	// KindSequencePrefix numbers outputs by batch position.
	KindSequencePrefix
)

func (k Kind) String() string {
	switch k {
	case KindOriginalName:
		return "original"
	case KindSequencePrefix:
		return "sequence"
	default:
		return "unset"
	}
}

// Policy is a tagged variant describing how output file names are derived.
// The zero Policy is invalid.
type Policy struct {
	kind   Kind
	prefix string
}

// OriginalName returns the policy that keeps each input's base name.
func OriginalName() Policy {
	return Policy{kind: KindOriginalName}
}

// SequencePrefix returns the policy that names outputs prefix+index+extension.
func SequencePrefix(prefix string) Policy {
	return Policy{kind: KindSequencePrefix, prefix: prefix}
}

// Kind reports the active variant.
func (p Policy) Kind() Kind { return p.kind }

// Prefix returns the sequence prefix; it is empty for OriginalName.
func (p Policy) Prefix() string { return p.prefix }

func (p Policy) String() string {
	if p.kind == KindSequencePrefix {
		return fmt.Sprintf("sequence(%q)", p.prefix)
	}
	return p.kind.String()
}

// Validate reports whether the policy can resolve names. A sequence prefix
// must be non-empty and must not contain a path separator, otherwise outputs
// would escape the output directory.
func (p Policy) Validate() error {
	switch p.kind {
	case KindOriginalName:
		return nil
	case KindSequencePrefix:
		if p.prefix == "" {
			return fmt.Errorf("%w: sequence prefix must not be empty", ErrInvalidPolicy)
		}
		if strings.ContainsAny(p.prefix, separators) {
			return fmt.Errorf("%w: sequence prefix %q contains a path separator", ErrInvalidPolicy, p.prefix)
		}
		return nil
	default:
		return fmt.Errorf("%w: no naming variant selected", ErrInvalidPolicy)
	}
}

// ParsePolicy builds a policy from its configuration name ("original" or
// "sequence") and the prefix used by the sequence variant.
func ParsePolicy(name, prefix string) (Policy, error) {
	var policy Policy
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "original", "original_name", "original-name":
		policy = OriginalName()
	case "sequence", "sequence_prefix", "sequence-prefix", "prefix":
		policy = SequencePrefix(prefix)
	default:
		return Policy{}, fmt.Errorf("%w: unknown naming scheme %q", ErrInvalidPolicy, name)
	}
	if err := policy.Validate(); err != nil {
		return Policy{}, err
	}
	return policy, nil
}
