package classifier

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"instaguard/internal/features"
)

// Estimator kinds supported in a model artifact.
const (
	KindForest  = "forest"  // leaves hold positive-class fractions, averaged over trees
	KindBoosted = "boosted" // leaves hold log-odds margins, summed then passed through a sigmoid
)

// Voting modes.
const (
	VotingSoft = "soft"
	VotingHard = "hard"
)

// Model scores one feature row. It must be safe for concurrent use.
type Model interface {
	Predict(row []float64) (int, error)
	Version() string
}

// ProbabilityModel is a Model that also reports the positive-class probability.
type ProbabilityModel interface {
	Model
	PredictProba(row []float64) (float64, error)
}

// Artifact is the serialized form of a voting ensemble exported by the
// training job.
type Artifact struct {
	Version    string          `json:"version"`
	Columns    []string        `json:"columns"`
	Voting     string          `json:"voting"`
	Estimators []EstimatorSpec `json:"estimators"`
}

// EstimatorSpec is one member of the ensemble.
type EstimatorSpec struct {
	Name      string  `json:"name"`
	Kind      string  `json:"kind"`
	Weight    float64 `json:"weight"`
	BaseScore float64 `json:"base_score"` // boosted only, probability space; 0 means 0.5
	Trees     []Tree  `json:"trees"`
}

// Tree is a flat binary decision tree; node 0 is the root.
type Tree struct {
	Nodes []Node `json:"nodes"`
}

// Node is a split when Left >= 0, otherwise a leaf carrying Value.
type Node struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	Value     float64 `json:"value"`
}

func (n Node) isLeaf() bool { return n.Left < 0 }

// Ensemble is a loaded voting ensemble. It is immutable after construction.
type Ensemble struct {
	version    string
	voting     string
	estimators []EstimatorSpec
	weightSum  float64
}

// softEnsemble exposes probability output for soft-voting ensembles.
type softEnsemble struct {
	*Ensemble
}

// LoadFile reads and validates a JSON model artifact.
func LoadFile(path string) (Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model artifact: %w", err)
	}

	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("failed to decode model artifact: %w", err)
	}
	return FromArtifact(&a)
}

// FromArtifact validates an artifact and builds a model from it. Soft-voting
// ensembles implement ProbabilityModel, hard-voting ones do not.
func FromArtifact(a *Artifact) (Model, error) {
	if err := validateArtifact(a); err != nil {
		return nil, err
	}

	e := &Ensemble{
		version:    a.Version,
		voting:     a.Voting,
		estimators: a.Estimators,
	}
	for i := range e.estimators {
		if e.estimators[i].Weight == 0 {
			e.estimators[i].Weight = 1
		}
		e.weightSum += e.estimators[i].Weight
	}

	if e.voting == VotingSoft {
		return softEnsemble{e}, nil
	}
	return e, nil
}

func validateArtifact(a *Artifact) error {
	if len(a.Columns) != features.NumColumns {
		return fmt.Errorf("model expects %d columns, want %d", len(a.Columns), features.NumColumns)
	}
	for i, c := range a.Columns {
		if c != features.Columns[i] {
			return fmt.Errorf("model column %d is %q, want %q", i, c, features.Columns[i])
		}
	}

	switch a.Voting {
	case "":
		a.Voting = VotingSoft
	case VotingSoft, VotingHard:
	default:
		return fmt.Errorf("unknown voting mode %q", a.Voting)
	}

	if len(a.Estimators) == 0 {
		return fmt.Errorf("model has no estimators")
	}

	for _, est := range a.Estimators {
		if est.Kind != KindForest && est.Kind != KindBoosted {
			return fmt.Errorf("estimator %q: unknown kind %q", est.Name, est.Kind)
		}
		if est.Weight < 0 {
			return fmt.Errorf("estimator %q: negative weight", est.Name)
		}
		if est.Kind == KindBoosted && (est.BaseScore < 0 || est.BaseScore >= 1) {
			return fmt.Errorf("estimator %q: base_score must be in [0,1)", est.Name)
		}
		if len(est.Trees) == 0 {
			return fmt.Errorf("estimator %q: no trees", est.Name)
		}
		for ti, tree := range est.Trees {
			if err := validateTree(tree); err != nil {
				return fmt.Errorf("estimator %q tree %d: %w", est.Name, ti, err)
			}
		}
	}
	return nil
}

func validateTree(t Tree) error {
	if len(t.Nodes) == 0 {
		return fmt.Errorf("empty tree")
	}
	for i, n := range t.Nodes {
		if n.isLeaf() {
			continue
		}
		if n.Feature < 0 || n.Feature >= features.NumColumns {
			return fmt.Errorf("node %d: feature index %d out of range", i, n.Feature)
		}
		// Children must point forward, which also rules out cycles.
		if n.Left <= i || n.Left >= len(t.Nodes) || n.Right <= i || n.Right >= len(t.Nodes) {
			return fmt.Errorf("node %d: child index out of range", i)
		}
	}
	return nil
}

// Version returns the artifact version string.
func (e *Ensemble) Version() string {
	return e.version
}

// Predict returns 1 for the positive (fake) class and 0 otherwise.
func (e *Ensemble) Predict(row []float64) (int, error) {
	if len(row) != features.NumColumns {
		return 0, fmt.Errorf("%w: got %d columns", features.ErrMalformedVector, len(row))
	}

	if e.voting == VotingSoft {
		p := e.softProba(row)
		if p > 0.5 {
			return 1, nil
		}
		return 0, nil
	}

	// Hard voting: weighted majority, ties go to the negative class.
	var pos, neg float64
	for _, est := range e.estimators {
		if estimatorProba(est, row) > 0.5 {
			pos += est.Weight
		} else {
			neg += est.Weight
		}
	}
	if pos > neg {
		return 1, nil
	}
	return 0, nil
}

// PredictProba returns the weighted mean positive-class probability.
func (s softEnsemble) PredictProba(row []float64) (float64, error) {
	if len(row) != features.NumColumns {
		return 0, fmt.Errorf("%w: got %d columns", features.ErrMalformedVector, len(row))
	}
	return s.softProba(row), nil
}

func (e *Ensemble) softProba(row []float64) float64 {
	var sum float64
	for _, est := range e.estimators {
		sum += est.Weight * estimatorProba(est, row)
	}
	return sum / e.weightSum
}

func estimatorProba(est EstimatorSpec, row []float64) float64 {
	switch est.Kind {
	case KindBoosted:
		margin := logit(est.BaseScore)
		for _, t := range est.Trees {
			margin += leafValue(t, row, false)
		}
		return sigmoid(margin)
	default:
		var sum float64
		for _, t := range est.Trees {
			sum += leafValue(t, row, true)
		}
		return sum / float64(len(est.Trees))
	}
}

// leafValue walks a tree. Forest splits send x <= threshold left, boosted
// splits send x < threshold left.
func leafValue(t Tree, row []float64, inclusive bool) float64 {
	i := 0
	for {
		n := t.Nodes[i]
		if n.isLeaf() {
			return n.Value
		}
		x := row[n.Feature]
		if x < n.Threshold || (inclusive && x == n.Threshold) {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func logit(p float64) float64 {
	if p <= 0 {
		return 0
	}
	return math.Log(p / (1 - p))
}
