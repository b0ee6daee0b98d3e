package batch

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"batchmux/internal/naming"
	"batchmux/internal/services"
)

var (
	// ErrInvalidRequest reports a malformed batch request.
	ErrInvalidRequest = fmt.Errorf("%w: invalid batch request", services.ErrValidation)
	// ErrEmptyInput reports an empty entry in the input list.
	ErrEmptyInput = fmt.Errorf("%w: empty input path", services.ErrValidation)
	// ErrOutputCollision reports jobs that would write the same output file.
	ErrOutputCollision = fmt.Errorf("%w: output collision", services.ErrValidation)
)

// Collision describes one output path claimed more than once.
type Collision struct {
	OutputPath string
	Inputs     []string
	// OverwritesInput is set when the output is itself an input of the batch.
	OverwritesInput bool
}

// CollisionError lists every collision found while planning.
type CollisionError struct {
	Collisions []Collision
}

func (e *CollisionError) Error() string {
	parts := make([]string, 0, len(e.Collisions))
	for _, c := range e.Collisions {
		if c.OverwritesInput {
			parts = append(parts, fmt.Sprintf("%s would overwrite a batch input (from %s)", c.OutputPath, strings.Join(c.Inputs, ", ")))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s <- %s", c.OutputPath, strings.Join(c.Inputs, ", ")))
	}
	return fmt.Sprintf("%d output collision(s): %s", len(e.Collisions), strings.Join(parts, "; "))
}

func (e *CollisionError) Unwrap() error { return ErrOutputCollision }

// Plan validates req and resolves the ordered job list. No file is touched.
func Plan(req Request) ([]Job, error) {
	if err := naming.ValidateExtension(req.Extension); err != nil {
		return nil, err
	}
	if err := req.Policy.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.OutputDirectory) == "" {
		return nil, fmt.Errorf("%w: output directory is required", ErrInvalidRequest)
	}

	jobs := make([]Job, 0, len(req.InputPaths))
	for i, input := range req.InputPaths {
		if strings.TrimSpace(input) == "" {
			return nil, fmt.Errorf("%w: position %d", ErrEmptyInput, i)
		}
		name, err := naming.Resolve(i, input, req.Policy, req.Extension)
		if err != nil {
			return nil, fmt.Errorf("resolve output for %s: %w", input, err)
		}
		jobs = append(jobs, Job{
			Index:      i,
			InputPath:  input,
			OutputPath: filepath.Join(req.OutputDirectory, name),
		})
	}

	if collisions := findCollisions(jobs, req.CaseInsensitiveCollisions); len(collisions) > 0 {
		return nil, &CollisionError{Collisions: collisions}
	}
	return jobs, nil
}

func findCollisions(jobs []Job, foldCase bool) []Collision {
	byOutput := make(map[string][]Job, len(jobs))
	order := make([]string, 0, len(jobs))
	for _, job := range jobs {
		key := naming.CollisionKey(job.OutputPath, foldCase)
		if _, seen := byOutput[key]; !seen {
			order = append(order, key)
		}
		byOutput[key] = append(byOutput[key], job)
	}

	inputs := make(map[string]struct{}, len(jobs))
	for _, job := range jobs {
		inputs[naming.CollisionKey(absPath(job.InputPath), foldCase)] = struct{}{}
	}

	var collisions []Collision
	for _, key := range order {
		group := byOutput[key]
		names := make([]string, 0, len(group))
		for _, job := range group {
			names = append(names, job.InputPath)
		}
		_, clobbers := inputs[naming.CollisionKey(absPath(group[0].OutputPath), foldCase)]
		if len(group) > 1 || clobbers {
			collisions = append(collisions, Collision{
				OutputPath:      group[0].OutputPath,
				Inputs:          names,
				OverwritesInput: clobbers,
			})
		}
	}
	return collisions
}

func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

// ParseInputList splits a separator-joined list of paths. Surrounding
// whitespace is trimmed and empty segments are dropped. An empty separator
// defaults to ";".
func ParseInputList(list, sep string) []string {
	if sep == "" {
		sep = ";"
	}
	var paths []string
	for _, part := range strings.Split(list, sep) {
		if part = strings.TrimSpace(part); part != "" {
			paths = append(paths, part)
		}
	}
	return paths
}

// IsCollision reports whether err is a planning collision.
func IsCollision(err error) bool {
	return errors.Is(err, ErrOutputCollision)
}
