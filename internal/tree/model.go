package tree

import (
	"encoding/json"

	"github.com/rotisserie/eris"
)

// Family identifies the ensemble type inside a stored artifact.
type Family string

const (
	FamilyForest   Family = "random_forest"
	FamilyBoosting Family = "gradient_boosting"
)

// Model is what training produces and prediction consumes.
type Model interface {
	Predict(row []float64) float64
}

// Decode reconstructs a model of the given family from its artifact
// JSON. Unknown families are rejected rather than guessed at.
func Decode(family Family, raw json.RawMessage) (Model, error) {
	switch family {
	case FamilyForest:
		var f Forest
		if err := json.Unmarshal(raw, &f); err != nil {
			return nil, eris.Wrap(err, "tree: decode forest")
		}
		if len(f.Trees) == 0 {
			return nil, eris.New("tree: decoded forest has no trees")
		}
		return &f, nil
	case FamilyBoosting:
		var b Boosting
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, eris.Wrap(err, "tree: decode boosting")
		}
		if len(b.Trees) == 0 {
			return nil, eris.New("tree: decoded boosting model has no trees")
		}
		return &b, nil
	default:
		return nil, eris.Errorf("tree: unknown model family %q", family)
	}
}
