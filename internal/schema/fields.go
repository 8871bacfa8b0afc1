package schema

// External documents use hyphenated field names; the internal data model
// uses snake_case canonical names. This table is the single source of
// truth for the mapping. Both directions are exercised by tests.
var externalNames = map[string]string{
	"model":           "model",
	"precision":       "precision",
	"framework":       "framework",
	"runners":         "runners",
	"seq_lens":        "seq-lens",
	"isl":             "isl",
	"osl":             "osl",
	"sweep":           "sweep",
	"conc_start":      "conc-start",
	"conc_end":        "conc-end",
	"conc_step":       "conc-step",
	"conc_mode":       "conc-mode",
	"tensor_parallel": "tensor-parallel",
	"expert_parallel": "expert-parallel",
	"accelerators":    "accelerators",
	"frameworks":      "frameworks",
	"precisions":      "precisions",
}

var internalNames = func() map[string]string {
	m := make(map[string]string, len(externalNames))
	for internal, external := range externalNames {
		m[external] = internal
	}
	return m
}()

// ExternalFieldName returns the hyphenated document spelling of a
// canonical field name. Unknown names pass through unchanged.
func ExternalFieldName(internal string) string {
	if ext, ok := externalNames[internal]; ok {
		return ext
	}
	return internal
}

// InternalFieldName returns the canonical name of a hyphenated document
// field. Unknown names pass through unchanged.
func InternalFieldName(external string) string {
	if in, ok := internalNames[external]; ok {
		return in
	}
	return external
}
