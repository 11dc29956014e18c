package workflow

import (
	"time"

	"github.com/cohesivestack/valgo"

	"github.com/relicworks/relic/pkg/stage"
)

/*
Config tunes orchestrator behavior. The zero value is not usable; start from
DefaultConfig and patch it through UpdateConfig.
*/
type Config struct {
	EnableParallelProcessing bool    `json:"enable_parallel_processing"`
	EnableSelfHealing        bool    `json:"enable_self_healing"`
	ConfidenceThreshold      float64 `json:"confidence_threshold"`
	MaxRetries               int     `json:"max_retries"`
	EnableValidation         bool    `json:"enable_validation"`
	EnableExplanation        bool    `json:"enable_explanation"`

	// StageWeights drives confidence aggregation; weights are renormalized
	// over the stages that actually ran, so they need not sum to one.
	StageWeights map[stage.Name]float64 `json:"stage_weights"`

	RetryBaseDelay       time.Duration `json:"retry_base_delay"`
	BatchDelay           time.Duration `json:"batch_delay"`
	ConcurrentBatchLimit int           `json:"concurrent_batch_limit"`
	Retention            time.Duration `json:"retention"`
}

func DefaultConfig() Config {
	return Config{
		EnableParallelProcessing: true,
		EnableSelfHealing:        true,
		ConfidenceThreshold:      0.7,
		MaxRetries:               1,
		EnableValidation:         true,
		EnableExplanation:        false,
		StageWeights: map[stage.Name]float64{
			stage.Analyze:   0.3,
			stage.Transform: 0.4,
			stage.Validate:  0.2,
			stage.Explain:   0.1,
		},
		RetryBaseDelay:       time.Second,
		BatchDelay:           time.Second,
		ConcurrentBatchLimit: 5,
		Retention:            5 * time.Minute,
	}
}

func (c Config) Validate() error {
	v := valgo.Is(
		valgo.Number(c.ConfidenceThreshold, "confidence_threshold").Between(0, 1),
		valgo.Number(c.MaxRetries, "max_retries").GreaterOrEqualTo(0),
		valgo.Number(c.ConcurrentBatchLimit, "concurrent_batch_limit").GreaterThan(0),
		valgo.Number(c.Retention, "retention").GreaterThan(0),
	)
	for name, weight := range c.StageWeights {
		v.Is(valgo.Number(weight, "stage_weights."+string(name)).GreaterOrEqualTo(0))
	}
	if !v.Valid() {
		return v.Error()
	}
	return nil
}

func (c Config) clone() Config {
	out := c
	out.StageWeights = make(map[stage.Name]float64, len(c.StageWeights))
	for name, weight := range c.StageWeights {
		out.StageWeights[name] = weight
	}
	return out
}

// ConfigPatch is a partial config update; nil fields keep their current
// value. StageWeights, when present, replaces the whole mapping.
type ConfigPatch struct {
	EnableParallelProcessing *bool    `json:"enable_parallel_processing,omitempty"`
	EnableSelfHealing        *bool    `json:"enable_self_healing,omitempty"`
	ConfidenceThreshold      *float64 `json:"confidence_threshold,omitempty"`
	MaxRetries               *int     `json:"max_retries,omitempty"`
	EnableValidation         *bool    `json:"enable_validation,omitempty"`
	EnableExplanation        *bool    `json:"enable_explanation,omitempty"`

	StageWeights map[stage.Name]float64 `json:"stage_weights,omitempty"`
}

func (p ConfigPatch) apply(c Config) Config {
	out := c.clone()

	if p.EnableParallelProcessing != nil {
		out.EnableParallelProcessing = *p.EnableParallelProcessing
	}
	if p.EnableSelfHealing != nil {
		out.EnableSelfHealing = *p.EnableSelfHealing
	}
	if p.ConfidenceThreshold != nil {
		out.ConfidenceThreshold = *p.ConfidenceThreshold
	}
	if p.MaxRetries != nil {
		out.MaxRetries = *p.MaxRetries
	}
	if p.EnableValidation != nil {
		out.EnableValidation = *p.EnableValidation
	}
	if p.EnableExplanation != nil {
		out.EnableExplanation = *p.EnableExplanation
	}
	if p.StageWeights != nil {
		out.StageWeights = make(map[stage.Name]float64, len(p.StageWeights))
		for name, weight := range p.StageWeights {
			out.StageWeights[name] = weight
		}
	}
	return out
}
