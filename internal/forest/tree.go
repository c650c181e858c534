package forest

import (
	"math/rand"
	"sort"
)

type node struct {
	leaf    bool
	value   float64
	feature int
	thresh  float64
	left    *node
	right   *node
}

func (n *node) predict(x []float64) float64 {
	for !n.leaf {
		if x[n.feature] <= n.thresh {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.value
}

func mean(ys []float64, idx []int) float64 {
	if len(idx) == 0 {
		return 0
	}
	var sum float64
	for _, i := range idx {
		sum += ys[i]
	}
	return sum / float64(len(idx))
}

// bestSplit finds the (feature, threshold) pair over the candidate
// features that minimises the summed squared error of the two halves.
// ok is false when no split separates the rows.
func bestSplit(xs [][]float64, ys []float64, idx []int, features []int, minLeaf int) (feature int, thresh float64, ok bool) {
	bestSSE := float64(0)
	for _, i := range idx {
		bestSSE += ys[i] * ys[i]
	}
	var sum float64
	for _, i := range idx {
		sum += ys[i]
	}
	bestSSE -= sum * sum / float64(len(idx)) // SSE of the unsplit node

	order := make([]int, len(idx))

	for _, feat := range features {
		copy(order, idx)
		sort.Slice(order, func(a, b int) bool {
			return xs[order[a]][feat] < xs[order[b]][feat]
		})

		var leftSum, leftSq float64
		rightSum, rightSq := sum, 0.0
		for _, i := range idx {
			rightSq += ys[i] * ys[i]
		}

		for k := 0; k < len(order)-1; k++ {
			y := ys[order[k]]
			leftSum += y
			leftSq += y * y
			rightSum -= y
			rightSq -= y * y

			// Can only split between distinct feature values.
			if xs[order[k]][feat] == xs[order[k+1]][feat] {
				continue
			}
			nl, nr := k+1, len(order)-k-1
			if nl < minLeaf || nr < minLeaf {
				continue
			}

			sse := (leftSq - leftSum*leftSum/float64(nl)) +
				(rightSq - rightSum*rightSum/float64(nr))
			if sse < bestSSE {
				bestSSE = sse
				feature = feat
				thresh = (xs[order[k]][feat] + xs[order[k+1]][feat]) / 2
				ok = true
			}
		}
	}
	return feature, thresh, ok
}

func buildNode(xs [][]float64, ys []float64, idx []int, opts Options, depth int, rng *rand.Rand) *node {
	if len(idx) < 2*opts.MinLeaf || (opts.MaxDepth > 0 && depth >= opts.MaxDepth) || constantTarget(ys, idx) {
		return &node{leaf: true, value: mean(ys, idx)}
	}

	features := sampleFeatures(len(xs[0]), opts.MTry, rng)
	feat, thresh, ok := bestSplit(xs, ys, idx, features, opts.MinLeaf)
	if !ok {
		return &node{leaf: true, value: mean(ys, idx)}
	}

	var left, right []int
	for _, i := range idx {
		if xs[i][feat] <= thresh {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	return &node{
		feature: feat,
		thresh:  thresh,
		left:    buildNode(xs, ys, left, opts, depth+1, rng),
		right:   buildNode(xs, ys, right, opts, depth+1, rng),
	}
}

func constantTarget(ys []float64, idx []int) bool {
	for _, i := range idx[1:] {
		if ys[i] != ys[idx[0]] {
			return false
		}
	}
	return true
}

// sampleFeatures picks mtry distinct feature indexes.
func sampleFeatures(nFeatures, mtry int, rng *rand.Rand) []int {
	if mtry >= nFeatures {
		all := make([]int, nFeatures)
		for i := range all {
			all[i] = i
		}
		return all
	}
	perm := rng.Perm(nFeatures)
	return perm[:mtry]
}
