package artifact

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tablewise/salesight/internal/feature"
	"github.com/tablewise/salesight/internal/tree"
)

// SchemaVersion is the current bundle layout. Bump it when a change
// would make older readers misinterpret the payload; Load rejects any
// other value instead of guessing.
const SchemaVersion = 1

// Metrics is the training scorecard stored with the model.
type Metrics struct {
	TrainR2      float64 `json:"train_r2"`
	TestR2       float64 `json:"test_r2"`
	TrainMSE     float64 `json:"train_mse"`
	TestMSE      float64 `json:"test_mse"`
	TrainMAE     float64 `json:"train_mae"`
	TestMAE      float64 `json:"test_mae"`
	CVMeanR2     float64 `json:"cv_mean_r2"`
	CVStdR2      float64 `json:"cv_std_r2"`
	FeatureCount int     `json:"feature_count"`
	// BelowQualityFloor records a test R² under the configured minimum.
	// Training still succeeds; downstream consumers decide what to do.
	BelowQualityFloor bool `json:"below_quality_floor,omitempty"`
}

// Artifact is the self-contained trained bundle: the serialized model,
// the exact feature contract it was fitted on, and the pipeline config
// needed to rebuild that contract at prediction time.
type Artifact struct {
	SchemaVersion int             `json:"schema_version"`
	ID            string          `json:"id"`
	ModelFamily   tree.Family     `json:"model_family"`
	Model         json.RawMessage `json:"model"`
	FeatureNames  []string        `json:"feature_names"`
	Scaler        *feature.Scaler `json:"scaler,omitempty"`
	Pipeline      feature.Config  `json:"pipeline"`
	Metrics       Metrics         `json:"metrics"`
	TrainedAt     time.Time       `json:"trained_at"`
}

// New wraps a fitted model into a versioned bundle.
func New(family tree.Family, m tree.Model, names []string, scaler *feature.Scaler, cfg feature.Config, metrics Metrics) (*Artifact, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("artifact: marshal model: %w", err)
	}
	return &Artifact{
		SchemaVersion: SchemaVersion,
		ID:            uuid.NewString(),
		ModelFamily:   family,
		Model:         raw,
		FeatureNames:  names,
		Scaler:        scaler,
		Pipeline:      cfg,
		Metrics:       metrics,
		TrainedAt:     time.Now().UTC(),
	}, nil
}

// DecodeModel reconstructs the ensemble from the stored payload.
func (a *Artifact) DecodeModel() (tree.Model, error) {
	return tree.Decode(a.ModelFamily, a.Model)
}

// CheckContract verifies that a freshly built feature-name list matches
// the contract the model was trained on, position by position.
func (a *Artifact) CheckContract(names []string) error {
	if len(names) != len(a.FeatureNames) {
		return &ContractMismatchError{Want: a.FeatureNames, Got: names}
	}
	for i := range names {
		if names[i] != a.FeatureNames[i] {
			return &ContractMismatchError{Want: a.FeatureNames, Got: names}
		}
	}
	return nil
}

// ContractMismatchError reports a prediction-time feature contract that
// differs from the one stored in the artifact.
type ContractMismatchError struct {
	Want []string
	Got  []string
}

func (e *ContractMismatchError) Error() string {
	if len(e.Want) != len(e.Got) {
		return fmt.Sprintf("artifact: feature contract mismatch: model trained on %d features, pipeline produced %d",
			len(e.Want), len(e.Got))
	}
	for i := range e.Want {
		if e.Want[i] != e.Got[i] {
			return fmt.Sprintf("artifact: feature contract mismatch at position %d: trained on %q, pipeline produced %q",
				i, e.Want[i], e.Got[i])
		}
	}
	return "artifact: feature contract mismatch"
}
