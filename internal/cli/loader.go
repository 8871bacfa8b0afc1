package cli

import (
	"github.com/sirupsen/logrus"

	"github.com/perflab/benchmatrix/internal/matrix"
	"github.com/perflab/benchmatrix/internal/schema"
)

// Inputs is the fully loaded and validated input set shared by the
// generate and smoke commands.
type Inputs struct {
	Config    *schema.MasterConfig
	Registry  matrix.RunnerRegistry
	InputHash string // content hash over the raw input documents
}

// LoadInputs reads the master config files and the runner registry,
// collecting every validation error rather than stopping at the first.
// IO failures come back as a plain error and map to ExitCommandError;
// validation failures map to ExitFailure.
func LoadInputs(configPaths []string, runnerPath string) (*Inputs, []schema.ConfigValidationError, error) {
	cfg, errs, err := schema.LoadMasterConfigs(configPaths)
	if err != nil {
		return nil, nil, err
	}

	registry, rawRunners, runnerErrs, err := schema.LoadRunnerRegistry(runnerPath)
	if err != nil {
		return nil, nil, err
	}
	errs = append(errs, runnerErrs...)

	if len(errs) > 0 {
		return nil, errs, nil
	}

	docs := make([][]byte, 0, len(cfg.Raw)+1)
	docs = append(docs, cfg.Raw...)
	docs = append(docs, rawRunners)

	in := &Inputs{
		Config:    cfg,
		Registry:  registry,
		InputHash: matrix.InputHash(docs...),
	}
	logrus.WithFields(logrus.Fields{
		"entries":    len(cfg.Entries),
		"runners":    len(registry),
		"input_hash": in.InputHash[:12],
	}).Debug("inputs loaded")
	return in, nil, nil
}
