package schema

import (
	"bytes"
	"errors"
	"regexp"

	"gopkg.in/yaml.v3"
)

// embeddedNode captures a raw YAML node during struct decoding so the
// caller can re-decode it strictly with a precise error path. yaml.v3's
// node.Decode does not honor KnownFields, so nested strict decoding goes
// through strictDecodeNode instead.
type embeddedNode struct {
	node yaml.Node
}

// UnmarshalYAML stores the node verbatim.
func (n *embeddedNode) UnmarshalYAML(node *yaml.Node) error {
	n.node = *node
	return nil
}

// strictDecodeNode decodes a YAML node into out, rejecting unknown fields.
// The node is re-serialized because Decoder.KnownFields is the only strict
// mode yaml.v3 offers and it is not reachable from yaml.Node.Decode.
func strictDecodeNode(node *yaml.Node, out any) error {
	raw, err := yaml.Marshal(node)
	if err != nil {
		return err
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	return dec.Decode(out)
}

var unknownFieldRe = regexp.MustCompile(`field (\S+) not found in type`)

// classifyDecodeError converts a yaml decode error into structured
// validation errors. Unknown-field failures identify the offending key;
// everything else is reported as a type mismatch at the given path.
func classifyDecodeError(doc, path string, err error) []ConfigValidationError {
	var typeErr *yaml.TypeError
	if errors.As(err, &typeErr) {
		out := make([]ConfigValidationError, 0, len(typeErr.Errors))
		for _, msg := range typeErr.Errors {
			if m := unknownFieldRe.FindStringSubmatch(msg); m != nil {
				out = append(out, fieldError(doc, joinPath(path, m[1]),
					ReasonUnknownField, ErrUnknownField, "unknown field %q", m[1]))
				continue
			}
			out = append(out, fieldError(doc, path, ReasonWrongType, ErrWrongType, "%s", msg))
		}
		return out
	}
	return []ConfigValidationError{
		fieldError(doc, path, ReasonWrongType, ErrWrongType, "%v", err),
	}
}

// joinPath appends a field segment to a document path.
func joinPath(base, field string) string {
	if base == "" {
		return field
	}
	return base + "." + field
}
