// Package forest implements a random forest of CART regression trees.
// It is deliberately small: two or three predictors, bootstrap
// sampling per tree, mean-of-trees prediction. Training is
// reproducible under a fixed seed.
package forest

import (
	"fmt"
	"math/rand"
	"time"
)

type Options struct {
	// Trees is the ensemble size.
	Trees int
	// MTry is the number of candidate predictors considered per split.
	MTry int
	// MinLeaf is the minimum number of training rows in a leaf.
	MinLeaf int
	// MaxDepth limits tree depth; 0 means unlimited.
	MaxDepth int
	// Seed fixes the sampling randomness. 0 seeds from the clock.
	Seed int64
}

const (
	DefaultTrees   = 5000
	DefaultMTry    = 2
	DefaultMinLeaf = 2
)

func (o *Options) setDefaults() {
	if o.Trees <= 0 {
		o.Trees = DefaultTrees
	}
	if o.MTry <= 0 {
		o.MTry = DefaultMTry
	}
	if o.MinLeaf <= 0 {
		o.MinLeaf = DefaultMinLeaf
	}
	if o.Seed == 0 {
		o.Seed = time.Now().UnixNano()
	}
}

type Forest struct {
	trees []*node
}

// Train fits a forest on xs -> ys. Every row of xs must have the same
// number of features.
func Train(xs [][]float64, ys []float64, opts Options) (*Forest, error) {
	if len(xs) == 0 {
		return nil, fmt.Errorf("train: no rows")
	}
	if len(xs) != len(ys) {
		return nil, fmt.Errorf("train: %d feature rows but %d targets", len(xs), len(ys))
	}
	nFeatures := len(xs[0])
	for i, row := range xs {
		if len(row) != nFeatures {
			return nil, fmt.Errorf("train: row %d has %d features, want %d", i, len(row), nFeatures)
		}
	}
	opts.setDefaults()

	master := rand.New(rand.NewSource(opts.Seed))
	f := &Forest{trees: make([]*node, opts.Trees)}
	for t := 0; t < opts.Trees; t++ {
		// Each tree gets its own deterministic stream so the
		// ensemble is reproducible under a fixed seed.
		rng := rand.New(rand.NewSource(master.Int63()))

		idx := make([]int, len(xs))
		for i := range idx {
			idx[i] = rng.Intn(len(xs))
		}
		f.trees[t] = buildNode(xs, ys, idx, opts, 0, rng)
	}
	return f, nil
}

// Predict returns the mean prediction over all trees.
func (f *Forest) Predict(x []float64) float64 {
	var sum float64
	for _, tr := range f.trees {
		sum += tr.predict(x)
	}
	return sum / float64(len(f.trees))
}
