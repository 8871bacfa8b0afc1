package schema

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/perflab/benchmatrix/internal/matrix"
)

// Sweep defaults, applied when the document omits the optional fields.
const (
	defaultSweepStep = 2.0
	defaultParallel  = 1
)

const defaultSweepMode = matrix.SweepMultiplicative

// prefixRe constrains model-prefix keys: they become part of slugs and
// result filenames, so no whitespace or path-hostile characters.
var prefixRe = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)

// MasterConfig is the validated content of one or more master
// configuration documents. Entries preserve declaration order across and
// within documents; the expander's output ordering depends on it.
type MasterConfig struct {
	Entries []matrix.MasterConfigEntry

	// Raw holds the raw document bytes in load order, for input hashing.
	Raw [][]byte
}

// rawEntry mirrors one benchmark-intent entry as written in YAML.
// Pointer fields distinguish "absent" from zero values.
type rawEntry struct {
	Model          *string        `yaml:"model"`
	Precision      *string        `yaml:"precision"`
	Framework      *string        `yaml:"framework"`
	Runners        []string       `yaml:"runners"`
	SeqLens        []embeddedNode `yaml:"seq-lens"`
	Sweep          *rawSweep      `yaml:"sweep"`
	TensorParallel *int           `yaml:"tensor-parallel"`
	ExpertParallel *int           `yaml:"expert-parallel"`
}

type rawSweep struct {
	Start *int     `yaml:"conc-start"`
	End   *int     `yaml:"conc-end"`
	Step  *float64 `yaml:"conc-step"`
	Mode  *string  `yaml:"conc-mode"`
}

// ParseMasterConfig validates one master configuration document: a mapping
// from model-prefix to a list of benchmark-intent entries. Collects all
// errors rather than failing fast.
func ParseMasterConfig(data []byte, doc string) ([]matrix.MasterConfigEntry, []ConfigValidationError) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, []ConfigValidationError{
			fieldError(doc, "", ReasonWrongType, ErrMalformedDocument, "%v", err),
		}
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil, []ConfigValidationError{
			fieldError(doc, "", ReasonMissing, ErrEmptyDocument, "document is empty"),
		}
	}

	mapping := root.Content[0]
	if mapping.Kind != yaml.MappingNode {
		return nil, []ConfigValidationError{
			fieldError(doc, "", ReasonWrongType, ErrMalformedDocument,
				"top level must be a mapping from model-prefix to entry list"),
		}
	}

	var entries []matrix.MasterConfigEntry
	var errs []ConfigValidationError
	seen := make(map[string]bool)

	for i := 0; i+1 < len(mapping.Content); i += 2 {
		keyNode, valNode := mapping.Content[i], mapping.Content[i+1]
		prefix := keyNode.Value

		if !prefixRe.MatchString(prefix) {
			errs = append(errs, fieldError(doc, prefix, ReasonOutOfRange, ErrOutOfRange,
				"model-prefix %q must match %s", prefix, prefixRe.String()))
			continue
		}
		if seen[prefix] {
			errs = append(errs, fieldError(doc, prefix, ReasonOutOfRange, ErrDuplicateKey,
				"model-prefix %q declared more than once", prefix))
			continue
		}
		seen[prefix] = true

		if valNode.Kind != yaml.SequenceNode {
			errs = append(errs, fieldError(doc, prefix, ReasonWrongType, ErrMalformedDocument,
				"value must be a list of benchmark entries"))
			continue
		}

		for j, entryNode := range valNode.Content {
			path := fmt.Sprintf("%s[%d]", prefix, j)
			entry, entryErrs := parseEntry(entryNode, doc, path, prefix)
			if len(entryErrs) > 0 {
				errs = append(errs, entryErrs...)
				continue
			}
			entries = append(entries, entry)
		}
	}

	if len(entries) == 0 && len(errs) == 0 {
		errs = append(errs, fieldError(doc, "", ReasonMissing, ErrEmptyDocument,
			"no benchmark entries declared"))
	}
	return entries, errs
}

// parseEntry validates one benchmark-intent entry node.
func parseEntry(node *yaml.Node, doc, path, prefix string) (matrix.MasterConfigEntry, []ConfigValidationError) {
	var raw rawEntry
	if err := strictDecodeNode(node, &raw); err != nil {
		return matrix.MasterConfigEntry{}, classifyDecodeError(doc, path, err)
	}

	var errs []ConfigValidationError
	entry := matrix.MasterConfigEntry{
		Key:            path,
		ModelPrefix:    prefix,
		TensorParallel: defaultParallel,
		ExpertParallel: defaultParallel,
	}

	if raw.Model == nil || strings.TrimSpace(*raw.Model) == "" {
		errs = append(errs, fieldError(doc, joinPath(path, "model"),
			ReasonMissing, ErrMissingField, "model is required"))
	} else {
		entry.Model = *raw.Model
	}

	if raw.Precision == nil {
		errs = append(errs, fieldError(doc, joinPath(path, "precision"),
			ReasonMissing, ErrMissingField, "precision is required"))
	} else if p, err := matrix.ParsePrecision(*raw.Precision); err != nil {
		errs = append(errs, fieldError(doc, joinPath(path, "precision"),
			ReasonOutOfRange, ErrOutOfRange, "%v, must be one of %s", err, enumList(matrix.Precisions)))
	} else {
		entry.Precision = p
	}

	if raw.Framework == nil {
		errs = append(errs, fieldError(doc, joinPath(path, "framework"),
			ReasonMissing, ErrMissingField, "framework is required"))
	} else if f, err := matrix.ParseFramework(*raw.Framework); err != nil {
		errs = append(errs, fieldError(doc, joinPath(path, "framework"),
			ReasonOutOfRange, ErrOutOfRange, "%v, must be one of %s", err, enumList(matrix.Frameworks)))
	} else {
		entry.Framework = f
	}

	if len(raw.Runners) == 0 {
		errs = append(errs, fieldError(doc, joinPath(path, "runners"),
			ReasonMissing, ErrMissingField, "at least one target runner is required"))
	} else {
		seenRunner := make(map[string]bool)
		for k, name := range raw.Runners {
			runnerPath := fmt.Sprintf("%s.runners[%d]", path, k)
			if strings.TrimSpace(name) == "" {
				errs = append(errs, fieldError(doc, runnerPath,
					ReasonMissing, ErrMissingField, "runner name must be non-empty"))
				continue
			}
			if seenRunner[name] {
				errs = append(errs, fieldError(doc, runnerPath,
					ReasonOutOfRange, ErrDuplicateKey, "runner %q listed more than once", name))
				continue
			}
			seenRunner[name] = true
			entry.Runners = append(entry.Runners, name)
		}
	}

	if len(raw.SeqLens) == 0 {
		errs = append(errs, fieldError(doc, joinPath(path, "seq-lens"),
			ReasonMissing, ErrMissingField, "at least one sequence-length bucket is required"))
	} else {
		for k := range raw.SeqLens {
			bucketPath := fmt.Sprintf("%s.seq-lens[%d]", path, k)
			bucket, bucketErrs := parseBucket(&raw.SeqLens[k].node, doc, bucketPath)
			if len(bucketErrs) > 0 {
				errs = append(errs, bucketErrs...)
				continue
			}
			entry.Buckets = append(entry.Buckets, bucket)
		}
	}

	sweep, sweepErrs := parseSweep(raw.Sweep, doc, path)
	if len(sweepErrs) > 0 {
		errs = append(errs, sweepErrs...)
	} else {
		entry.Sweep = sweep
	}

	if raw.TensorParallel != nil {
		if *raw.TensorParallel < 1 {
			errs = append(errs, fieldError(doc, joinPath(path, "tensor-parallel"),
				ReasonOutOfRange, ErrOutOfRange, "tensor-parallel must be >= 1, got %d", *raw.TensorParallel))
		} else {
			entry.TensorParallel = *raw.TensorParallel
		}
	}
	if raw.ExpertParallel != nil {
		if *raw.ExpertParallel < 1 {
			errs = append(errs, fieldError(doc, joinPath(path, "expert-parallel"),
				ReasonOutOfRange, ErrOutOfRange, "expert-parallel must be >= 1, got %d", *raw.ExpertParallel))
		} else {
			entry.ExpertParallel = *raw.ExpertParallel
		}
	}

	if len(errs) > 0 {
		return matrix.MasterConfigEntry{}, errs
	}
	return entry, nil
}

// parseBucket accepts either a named bucket ("1k1k") or an explicit
// {isl, osl} mapping.
func parseBucket(node *yaml.Node, doc, path string) (matrix.SeqLenBucket, []ConfigValidationError) {
	if node.Kind == yaml.ScalarNode {
		var name string
		if err := node.Decode(&name); err != nil {
			return matrix.SeqLenBucket{}, classifyDecodeError(doc, path, err)
		}
		bucket, ok := matrix.NamedBuckets[name]
		if !ok {
			return matrix.SeqLenBucket{}, []ConfigValidationError{
				fieldError(doc, path, ReasonOutOfRange, ErrOutOfRange,
					"unknown sequence-length bucket %q, known buckets: %s", name, namedBucketList()),
			}
		}
		return bucket, nil
	}

	var aux struct {
		ISL *int `yaml:"isl"`
		OSL *int `yaml:"osl"`
	}
	if err := strictDecodeNode(node, &aux); err != nil {
		return matrix.SeqLenBucket{}, classifyDecodeError(doc, path, err)
	}

	var errs []ConfigValidationError
	if aux.ISL == nil {
		errs = append(errs, fieldError(doc, joinPath(path, "isl"),
			ReasonMissing, ErrMissingField, "isl is required"))
	} else if *aux.ISL < 1 {
		errs = append(errs, fieldError(doc, joinPath(path, "isl"),
			ReasonOutOfRange, ErrOutOfRange, "isl must be >= 1, got %d", *aux.ISL))
	}
	if aux.OSL == nil {
		errs = append(errs, fieldError(doc, joinPath(path, "osl"),
			ReasonMissing, ErrMissingField, "osl is required"))
	} else if *aux.OSL < 1 {
		errs = append(errs, fieldError(doc, joinPath(path, "osl"),
			ReasonOutOfRange, ErrOutOfRange, "osl must be >= 1, got %d", *aux.OSL))
	}
	if len(errs) > 0 {
		return matrix.SeqLenBucket{}, errs
	}
	return matrix.SeqLenBucket{ISL: *aux.ISL, OSL: *aux.OSL}, nil
}

// parseSweep validates the concurrency-sweep descriptor. Range semantics
// (end < start, step bounds) are the expander's responsibility; the schema
// only enforces presence, types, and the mode enum.
func parseSweep(raw *rawSweep, doc, path string) (matrix.ConcurrencySweepSpec, []ConfigValidationError) {
	if raw == nil {
		return matrix.ConcurrencySweepSpec{}, []ConfigValidationError{
			fieldError(doc, joinPath(path, "sweep"), ReasonMissing, ErrMissingField,
				"sweep descriptor is required"),
		}
	}

	var errs []ConfigValidationError
	spec := matrix.ConcurrencySweepSpec{
		Step: defaultSweepStep,
		Mode: defaultSweepMode,
	}

	if raw.Start == nil {
		errs = append(errs, fieldError(doc, joinPath(path, "sweep.conc-start"),
			ReasonMissing, ErrMissingField, "conc-start is required"))
	} else {
		spec.Start = *raw.Start
	}
	if raw.End == nil {
		errs = append(errs, fieldError(doc, joinPath(path, "sweep.conc-end"),
			ReasonMissing, ErrMissingField, "conc-end is required"))
	} else {
		spec.End = *raw.End
	}
	if raw.Step != nil {
		spec.Step = *raw.Step
	}
	if raw.Mode != nil {
		mode, err := matrix.ParseSweepMode(*raw.Mode)
		if err != nil {
			errs = append(errs, fieldError(doc, joinPath(path, "sweep.conc-mode"),
				ReasonOutOfRange, ErrOutOfRange,
				"%v, must be %q or %q", err, matrix.SweepAdditive, matrix.SweepMultiplicative))
		} else {
			spec.Mode = mode
		}
	}

	if len(errs) > 0 {
		return matrix.ConcurrencySweepSpec{}, errs
	}
	return spec, nil
}

// LoadMasterConfigs reads and validates one or more master configuration
// files. IO failures are returned as a plain error; validation failures
// are collected. A model-prefix declared in two different files is a
// duplicate-key error.
func LoadMasterConfigs(paths []string) (*MasterConfig, []ConfigValidationError, error) {
	cfg := &MasterConfig{}
	var errs []ConfigValidationError
	prefixDoc := make(map[string]string)

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, nil, fmt.Errorf("reading master config: %w", err)
		}
		cfg.Raw = append(cfg.Raw, data)

		entries, parseErrs := ParseMasterConfig(data, path)
		errs = append(errs, parseErrs...)

		for _, entry := range entries {
			if firstDoc, ok := prefixDoc[entry.ModelPrefix]; ok && firstDoc != path {
				errs = append(errs, fieldError(path, entry.ModelPrefix,
					ReasonOutOfRange, ErrDuplicateKey,
					"model-prefix %q already declared in %s", entry.ModelPrefix, firstDoc))
				continue
			}
			prefixDoc[entry.ModelPrefix] = path
			cfg.Entries = append(cfg.Entries, entry)
		}
	}
	return cfg, errs, nil
}

// Prefixes returns the distinct model prefixes in declaration order.
func (c *MasterConfig) Prefixes() []string {
	seen := make(map[string]bool)
	var out []string
	for _, e := range c.Entries {
		if !seen[e.ModelPrefix] {
			seen[e.ModelPrefix] = true
			out = append(out, e.ModelPrefix)
		}
	}
	return out
}

// Select returns the entries whose model-prefix is in keys, preserving
// declaration order. A key matching no entry is an error listing the
// available prefixes.
func (c *MasterConfig) Select(keys []string) ([]matrix.MasterConfigEntry, error) {
	want := make(map[string]bool, len(keys))
	for _, k := range keys {
		want[k] = true
	}

	matched := make(map[string]bool)
	var out []matrix.MasterConfigEntry
	for _, e := range c.Entries {
		if want[e.ModelPrefix] {
			matched[e.ModelPrefix] = true
			out = append(out, e)
		}
	}

	var missing []string
	for _, k := range keys {
		if !matched[k] {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("config key(s) not found: %s; available keys: %s",
			strings.Join(missing, ", "), strings.Join(c.Prefixes(), ", "))
	}
	return out, nil
}

// enumList renders an enum slice for error messages.
func enumList[T ~string](vals []T) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = string(v)
	}
	return strings.Join(parts, ", ")
}

// namedBucketList renders the known bucket names sorted for error messages.
func namedBucketList() string {
	names := make([]string, 0, len(matrix.NamedBuckets))
	for name := range matrix.NamedBuckets {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}
