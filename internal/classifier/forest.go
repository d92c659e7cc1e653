package classifier

import "fmt"

// Forest is an ensemble of trees with soft voting: the predicted class is
// the arg-max of the mean class distribution. A single decision tree is a
// forest of one.
type Forest struct {
	kind        string
	trees       []Tree
	classes     []int
	positive    int // index of PositiveClass in classes
	nFeatures   int
	importances []float64
}

func newForest(kind string, trees []Tree, classes []int, nFeatures int, importances []float64) (*Forest, error) {
	if len(trees) == 0 {
		return nil, fmt.Errorf("%w: %s has no trees", ErrInvalidModel, kind)
	}
	positive, err := positiveIndex(classes)
	if err != nil {
		return nil, err
	}
	for i := range trees {
		if err := trees[i].validate(nFeatures, len(classes)); err != nil {
			return nil, fmt.Errorf("tree %d: %w", i, err)
		}
	}

	f := &Forest{
		kind:      kind,
		trees:     trees,
		classes:   classes,
		positive:  positive,
		nFeatures: nFeatures,
	}

	if len(importances) > 0 {
		if len(importances) != nFeatures {
			return nil, fmt.Errorf("%w: %d importances for %d features", ErrInvalidModel, len(importances), nFeatures)
		}
		f.importances = append([]float64(nil), importances...)
	} else {
		f.importances = f.impurityImportances()
	}
	return f, nil
}

func (f *Forest) Kind() string     { return f.kind }
func (f *Forest) NumFeatures() int { return f.nFeatures }

// FeatureImportances returns a copy of the per-feature importance vector.
func (f *Forest) FeatureImportances() []float64 {
	return append([]float64(nil), f.importances...)
}

func (f *Forest) Predict(X [][]float64) ([]int, error) {
	dists, err := f.classDistributions(X)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(dists))
	for i, d := range dists {
		best := 0
		for j := 1; j < len(d); j++ {
			if d[j] > d[best] {
				best = j
			}
		}
		out[i] = f.classes[best]
	}
	return out, nil
}

func (f *Forest) PredictProba(X [][]float64) ([]float64, error) {
	dists, err := f.classDistributions(X)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(dists))
	for i, d := range dists {
		out[i] = d[f.positive]
	}
	return out, nil
}

func (f *Forest) classDistributions(X [][]float64) ([][]float64, error) {
	if err := checkWidth(X, f.nFeatures); err != nil {
		return nil, err
	}
	out := make([][]float64, len(X))
	for i, x := range X {
		mean := make([]float64, len(f.classes))
		for t := range f.trees {
			for j, p := range distribution(f.trees[t].leafValue(x)) {
				mean[j] += p
			}
		}
		for j := range mean {
			mean[j] /= float64(len(f.trees))
		}
		out[i] = mean
	}
	return out, nil
}

func (f *Forest) impurityImportances() []float64 {
	out := make([]float64, f.nFeatures)
	for t := range f.trees {
		for j, v := range f.trees[t].importances(f.nFeatures) {
			out[j] += v
		}
	}
	for j := range out {
		out[j] /= float64(len(f.trees))
	}
	normalize(out)
	return out
}

func positiveIndex(classes []int) (int, error) {
	if len(classes) != 2 {
		return 0, fmt.Errorf("%w: expected 2 classes, got %d", ErrInvalidModel, len(classes))
	}
	for i, c := range classes {
		if c == PositiveClass {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: classes %v do not include %d", ErrInvalidModel, classes, PositiveClass)
}
