package matrix

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity. The version suffix
// enables future algorithm migration without silently changing old slugs.
const (
	DomainJobSpec = "benchmatrix/jobspec/v1"
	DomainInput   = "benchmatrix/input/v1"
)

// slugHashLen is the number of hex characters of the tuple hash appended
// to the readable slug prefix.
const slugHashLen = 12

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data). The null separator prevents
// domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// InputHash computes the content hash of a raw input document set.
// The ledger uses it to group generation runs over identical input.
func InputHash(docs ...[]byte) string {
	h := sha256.New()
	h.Write([]byte(DomainInput))
	for _, d := range docs {
		h.Write([]byte{0x00})
		h.Write(d)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// computeSlug derives the job's result-file key: a readable prefix built
// from the identifying fields plus a truncated content hash of the full
// field tuple. Deterministic across runs; distinct tuples never collide
// because every identifying field appears in the readable prefix and the
// hash covers the model identifier too.
func (j JobSpec) computeSlug() (string, error) {
	tuple := map[string]any{
		"model":           j.Model,
		"model_prefix":    j.ModelPrefix,
		"precision":       string(j.Precision),
		"framework":       string(j.Framework),
		"runner":          j.Runner,
		"isl":             j.ISL,
		"osl":             j.OSL,
		"tensor_parallel": j.TensorParallel,
		"expert_parallel": j.ExpertParallel,
		"concurrency":     j.Concurrency,
	}

	canonical, err := MarshalCanonical(tuple)
	if err != nil {
		return "", fmt.Errorf("slug: failed to marshal field tuple: %w", err)
	}

	hash := hashWithDomain(DomainJobSpec, canonical)
	readable := fmt.Sprintf("%s_%s_%s_%s_%s_tp%d_c%d",
		j.ModelPrefix, j.Bucket().Name(), j.Framework, j.Precision,
		j.Runner, j.TensorParallel, j.Concurrency)

	return readable + "_" + hash[:slugHashLen], nil
}

// MustSlug recomputes a JobSpec's slug and panics on error.
// Use only in tests with known-valid field values.
func MustSlug(j JobSpec) string {
	slug, err := j.computeSlug()
	if err != nil {
		panic(err)
	}
	return slug
}
