package schema

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/perflab/benchmatrix/internal/matrix"
)

// rawRunner mirrors one runner capability record as written in YAML.
type rawRunner struct {
	Accelerators *int     `yaml:"accelerators"`
	Frameworks   []string `yaml:"frameworks"`
	Precisions   []string `yaml:"precisions"`
}

// ParseRunnerRegistry validates a runner-registry document: a mapping from
// runner name to capability descriptor. Collects all errors.
func ParseRunnerRegistry(data []byte, doc string) (matrix.RunnerRegistry, []ConfigValidationError) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, []ConfigValidationError{
			fieldError(doc, "", ReasonWrongType, ErrMalformedDocument, "%v", err),
		}
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil, []ConfigValidationError{
			fieldError(doc, "", ReasonMissing, ErrEmptyDocument, "runner registry is empty"),
		}
	}
	mapping := root.Content[0]
	if mapping.Kind != yaml.MappingNode {
		return nil, []ConfigValidationError{
			fieldError(doc, "", ReasonWrongType, ErrMalformedDocument,
				"top level must be a mapping from runner name to capability descriptor"),
		}
	}

	registry := make(matrix.RunnerRegistry)
	var errs []ConfigValidationError

	for i := 0; i+1 < len(mapping.Content); i += 2 {
		keyNode, valNode := mapping.Content[i], mapping.Content[i+1]
		name := keyNode.Value

		if strings.TrimSpace(name) == "" {
			errs = append(errs, fieldError(doc, "", ReasonMissing, ErrMissingField,
				"runner name must be non-empty"))
			continue
		}
		if _, dup := registry[name]; dup {
			errs = append(errs, fieldError(doc, name, ReasonOutOfRange, ErrDuplicateKey,
				"runner %q declared more than once", name))
			continue
		}

		desc, descErrs := parseRunner(valNode, doc, name)
		if len(descErrs) > 0 {
			errs = append(errs, descErrs...)
			continue
		}
		registry[name] = desc
	}

	if len(registry) == 0 && len(errs) == 0 {
		errs = append(errs, fieldError(doc, "", ReasonMissing, ErrEmptyDocument,
			"no runners declared"))
	}
	return registry, errs
}

// parseRunner validates one capability descriptor node.
func parseRunner(node *yaml.Node, doc, name string) (matrix.RunnerDescriptor, []ConfigValidationError) {
	var raw rawRunner
	if err := strictDecodeNode(node, &raw); err != nil {
		return matrix.RunnerDescriptor{}, classifyDecodeError(doc, name, err)
	}

	var errs []ConfigValidationError
	desc := matrix.RunnerDescriptor{Name: name}

	if raw.Accelerators == nil {
		errs = append(errs, fieldError(doc, joinPath(name, "accelerators"),
			ReasonMissing, ErrMissingField, "accelerators is required"))
	} else if *raw.Accelerators < 1 {
		errs = append(errs, fieldError(doc, joinPath(name, "accelerators"),
			ReasonOutOfRange, ErrOutOfRange, "accelerators must be >= 1, got %d", *raw.Accelerators))
	} else {
		desc.Accelerators = *raw.Accelerators
	}

	if len(raw.Frameworks) == 0 {
		errs = append(errs, fieldError(doc, joinPath(name, "frameworks"),
			ReasonMissing, ErrMissingField, "at least one supported framework is required"))
	}
	for i, s := range raw.Frameworks {
		f, err := matrix.ParseFramework(s)
		if err != nil {
			errs = append(errs, fieldError(doc, fmt.Sprintf("%s.frameworks[%d]", name, i),
				ReasonOutOfRange, ErrOutOfRange, "%v, must be one of %s", err, enumList(matrix.Frameworks)))
			continue
		}
		desc.Frameworks = append(desc.Frameworks, f)
	}

	if len(raw.Precisions) == 0 {
		errs = append(errs, fieldError(doc, joinPath(name, "precisions"),
			ReasonMissing, ErrMissingField, "at least one supported precision is required"))
	}
	for i, s := range raw.Precisions {
		p, err := matrix.ParsePrecision(s)
		if err != nil {
			errs = append(errs, fieldError(doc, fmt.Sprintf("%s.precisions[%d]", name, i),
				ReasonOutOfRange, ErrOutOfRange, "%v, must be one of %s", err, enumList(matrix.Precisions)))
			continue
		}
		desc.Precisions = append(desc.Precisions, p)
	}

	if len(errs) > 0 {
		return matrix.RunnerDescriptor{}, errs
	}
	return desc, nil
}

// LoadRunnerRegistry reads and validates a runner-registry file.
// The raw bytes are returned for input hashing.
func LoadRunnerRegistry(path string) (matrix.RunnerRegistry, []byte, []ConfigValidationError, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("reading runner registry: %w", err)
	}
	registry, errs := ParseRunnerRegistry(data, path)
	return registry, data, errs, nil
}
