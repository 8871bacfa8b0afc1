package emit

import (
	"fmt"
	"io"

	"github.com/perflab/benchmatrix/internal/matrix"
)

// EnvVar is one launcher environment assignment. Rendered in a fixed
// order so generated env blocks diff cleanly.
type EnvVar struct {
	Name  string
	Value string
}

// EnvVars maps a job to the environment block a launcher script consumes.
// RESULT_FILE is derived from the slug, so concurrent jobs never collide
// on output paths.
func EnvVars(j matrix.JobSpec) []EnvVar {
	return []EnvVar{
		{"MODEL", j.Model},
		{"MODEL_PREFIX", j.ModelPrefix},
		{"PRECISION", string(j.Precision)},
		{"FRAMEWORK", string(j.Framework)},
		{"RUNNER", j.Runner},
		{"ISL", fmt.Sprintf("%d", j.ISL)},
		{"OSL", fmt.Sprintf("%d", j.OSL)},
		{"TP", fmt.Sprintf("%d", j.TensorParallel)},
		{"EP", fmt.Sprintf("%d", j.ExpertParallel)},
		{"CONCURRENCY", fmt.Sprintf("%d", j.Concurrency)},
		{"MAX_MODEL_LEN", fmt.Sprintf("%d", j.MaxModelLen)},
		{"EXP_NAME", j.ExpName},
		{"RESULT_FILE", j.Slug + ".json"},
	}
}

// WriteEnvFile renders the job's environment block in dotenv form.
func WriteEnvFile(w io.Writer, j matrix.JobSpec) error {
	for _, v := range EnvVars(j) {
		if _, err := fmt.Fprintf(w, "%s=%s\n", v.Name, v.Value); err != nil {
			return err
		}
	}
	return nil
}
