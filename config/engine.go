package config

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EngineConfig holds pipeline-level tunables for the legal retrieval engine,
// as opposed to ProviderConfig's per-provider settings. Defaults mirror the
// constants used throughout the retrieval pipeline's reference behavior.
type EngineConfig struct {
	// RRFK is Reciprocal Rank Fusion's rank-offset constant.
	RRFK int `mapstructure:"rrf_k" validate:"gt=0"`

	// AuthorityMultipliers maps a regulation jenis (UU, PP, Perpres, Permen,
	// Perda, ...) to its authority boost multiplier.
	AuthorityMultipliers map[string]float64 `mapstructure:"authority_multipliers"`

	// KGBoostMultiplier is applied to documents reachable from a query's
	// detected legal references via a knowledge-graph hop.
	KGBoostMultiplier float64 `mapstructure:"kg_boost_multiplier" validate:"gte=1"`

	// KGDeadline bounds a single knowledge-graph BFS expansion.
	KGDeadline time.Duration `mapstructure:"kg_deadline"`

	// ConfidenceGate is the minimum confidence score required to generate an
	// answer instead of refusing with a hallucination-risk response.
	ConfidenceGate float64 `mapstructure:"confidence_gate" validate:"gte=0,lte=1"`

	// ConfidenceHigh and ConfidenceMedium are the thresholds separating
	// tinggi/sedang/rendah confidence labels.
	ConfidenceHigh   float64 `mapstructure:"confidence_high" validate:"gte=0,lte=1,gtfield=ConfidenceMedium"`
	ConfidenceMedium float64 `mapstructure:"confidence_medium" validate:"gte=0,lte=1"`

	// CRAGCorrect and CRAGIncorrect are the average-score thresholds CRAG
	// uses to classify a retrieval as correct, ambiguous, or incorrect.
	CRAGCorrect   float64 `mapstructure:"crag_correct" validate:"gte=0,lte=1,gtfield=CRAGIncorrect"`
	CRAGIncorrect float64 `mapstructure:"crag_incorrect" validate:"gte=0,lte=1"`

	// MaxAgenticIterations bounds the rule-based agentic retrieval loop.
	MaxAgenticIterations int `mapstructure:"max_agentic_iterations" validate:"gt=0"`

	// RerankPoolMultiplier scales the candidate pool size fetched upstream of
	// a reranking stage.
	RerankPoolMultiplier int `mapstructure:"rerank_pool_multiplier" validate:"gt=0"`

	// GroundingBudget bounds the LLM-as-judge grounding verification call.
	GroundingBudget time.Duration `mapstructure:"grounding_budget"`
}

// DefaultEngineConfig returns an EngineConfig populated with the reference
// pipeline's defaults.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		RRFK: 60,
		AuthorityMultipliers: map[string]float64{
			"uu":      1.50,
			"pp":      1.20,
			"perpres": 1.10,
			"permen":  1.05,
			"perda":   0.60,
		},
		KGBoostMultiplier:    1.15,
		KGDeadline:           200 * time.Millisecond,
		ConfidenceGate:       0.15,
		ConfidenceHigh:       0.65,
		ConfidenceMedium:     0.40,
		CRAGCorrect:          0.7,
		CRAGIncorrect:        0.3,
		MaxAgenticIterations: 3,
		RerankPoolMultiplier: 3,
		GroundingBudget:      5 * time.Second,
	}
}

// LoadEngineConfig reads EngineConfig from environment variables prefixed
// LEGALRAG_ and, if present, a config file under any of configPaths, layered
// on top of DefaultEngineConfig's values.
func LoadEngineConfig(configPaths ...string) (EngineConfig, error) {
	cfg := DefaultEngineConfig()

	v := viper.New()
	v.SetDefault("rrf_k", cfg.RRFK)
	v.SetDefault("authority_multipliers", cfg.AuthorityMultipliers)
	v.SetDefault("kg_boost_multiplier", cfg.KGBoostMultiplier)
	v.SetDefault("kg_deadline", cfg.KGDeadline)
	v.SetDefault("confidence_gate", cfg.ConfidenceGate)
	v.SetDefault("confidence_high", cfg.ConfidenceHigh)
	v.SetDefault("confidence_medium", cfg.ConfidenceMedium)
	v.SetDefault("crag_correct", cfg.CRAGCorrect)
	v.SetDefault("crag_incorrect", cfg.CRAGIncorrect)
	v.SetDefault("max_agentic_iterations", cfg.MaxAgenticIterations)
	v.SetDefault("rerank_pool_multiplier", cfg.RerankPoolMultiplier)
	v.SetDefault("grounding_budget", cfg.GroundingBudget)

	v.SetConfigName("engine")
	v.SetConfigType("yaml")
	for _, p := range configPaths {
		v.AddConfigPath(p)
	}
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return cfg, err
		}
	}

	v.SetEnvPrefix("LEGALRAG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}
	if err := validator.New().Struct(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
