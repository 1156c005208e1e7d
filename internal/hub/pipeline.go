package hub

import (
	"context"
	"fmt"
	"time"

	"github.com/Caia-Tech/darija-corpus/pkg/logging"
)

// Module is one step of the hub pipeline
type Module interface {
	Name() string
	Run(ctx context.Context) error
}

// ModuleTiming records how a module went
type ModuleTiming struct {
	Name     string        `json:"name"`
	Duration time.Duration `json:"duration"`
	Err      error         `json:"-"`
}

// Pipeline runs modules in order and stops on the first failure
type Pipeline struct {
	modules []Module
}

// NewPipeline creates a pipeline over modules
func NewPipeline(modules ...Module) *Pipeline {
	return &Pipeline{modules: modules}
}

// Run returns the timing of every module that ran
func (p *Pipeline) Run(ctx context.Context) ([]ModuleTiming, error) {
	logger := logging.GetPipelineLogger("hub", "run")
	start := time.Now()
	timings := make([]ModuleTiming, 0, len(p.modules))

	for _, m := range p.modules {
		logger.Info().Str("module", m.Name()).Msg("Module started")
		moduleStart := time.Now()
		err := m.Run(ctx)
		timing := ModuleTiming{Name: m.Name(), Duration: time.Since(moduleStart), Err: err}
		timings = append(timings, timing)

		if err != nil {
			logger.Error().Err(err).Str("module", m.Name()).Msg("Pipeline stopped")
			return timings, fmt.Errorf("module %s failed: %w", m.Name(), err)
		}
		logger.Info().Str("module", m.Name()).Dur("duration", timing.Duration).Msg("Module completed")
	}

	logger.Info().Dur("duration", time.Since(start)).Msg("Pipeline completed")
	return timings, nil
}
