package classifier

import (
	"fmt"
	"math"
)

// Node is one node of a flattened CART tree. Leaves have Feature == -1.
type Node struct {
	Feature     int       `msgpack:"feature"`
	Threshold   float64   `msgpack:"threshold"`
	Categorical bool      `msgpack:"categorical"` // equality split: x == Threshold goes left
	Left        int       `msgpack:"left"`
	Right       int       `msgpack:"right"`
	Samples     int       `msgpack:"samples"`
	Impurity    float64   `msgpack:"impurity"`
	Value       []float64 `msgpack:"value"` // class distribution, aligned with the envelope classes
}

func (n *Node) isLeaf() bool {
	return n.Feature < 0
}

// Tree is a fitted decision tree; Nodes[0] is the root.
type Tree struct {
	Nodes []Node `msgpack:"nodes"`
}

func (t *Tree) validate(nFeatures, nClasses int) error {
	if len(t.Nodes) == 0 {
		return fmt.Errorf("%w: tree has no nodes", ErrInvalidModel)
	}
	for i, n := range t.Nodes {
		if n.isLeaf() {
			if len(n.Value) != nClasses {
				return fmt.Errorf("%w: leaf %d has %d class values, want %d", ErrInvalidModel, i, len(n.Value), nClasses)
			}
			continue
		}
		if n.Feature >= nFeatures {
			return fmt.Errorf("%w: node %d splits on feature %d of %d", ErrInvalidModel, i, n.Feature, nFeatures)
		}
		// children always follow their parent, which also rules out cycles
		if n.Left <= i || n.Left >= len(t.Nodes) || n.Right <= i || n.Right >= len(t.Nodes) {
			return fmt.Errorf("%w: node %d has out-of-range children", ErrInvalidModel, i)
		}
	}
	return nil
}

// leafValue walks x down to a leaf. A missing (NaN) value follows the
// branch that saw more training samples.
func (t *Tree) leafValue(x []float64) []float64 {
	node := &t.Nodes[0]
	for !node.isLeaf() {
		val := x[node.Feature]
		left, right := &t.Nodes[node.Left], &t.Nodes[node.Right]

		switch {
		case math.IsNaN(val):
			if left.Samples >= right.Samples {
				node = left
			} else {
				node = right
			}
		case node.Categorical:
			if val == node.Threshold {
				node = left
			} else {
				node = right
			}
		case val <= node.Threshold:
			node = left
		default:
			node = right
		}
	}
	return node.Value
}

// importances computes the normalised impurity decrease per feature.
func (t *Tree) importances(nFeatures int) []float64 {
	out := make([]float64, nFeatures)
	root := t.Nodes[0]
	if root.Samples == 0 {
		return out
	}
	for _, n := range t.Nodes {
		if n.isLeaf() {
			continue
		}
		l, r := t.Nodes[n.Left], t.Nodes[n.Right]
		decrease := float64(n.Samples)*n.Impurity -
			float64(l.Samples)*l.Impurity -
			float64(r.Samples)*r.Impurity
		out[n.Feature] += decrease / float64(root.Samples)
	}
	normalize(out)
	return out
}

func normalize(v []float64) {
	var sum float64
	for _, x := range v {
		sum += x
	}
	if sum <= 0 {
		return
	}
	for i := range v {
		v[i] /= sum
	}
}

func distribution(value []float64) []float64 {
	out := make([]float64, len(value))
	copy(out, value)
	normalize(out)
	return out
}
