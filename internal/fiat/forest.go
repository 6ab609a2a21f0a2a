package fiat

import (
	"math"
	"math/rand"
	"sort"
)

// isolationForest is an unsupervised outlier scorer over feature vectors.
// Anomalous points isolate in fewer random splits, so their average path
// length across the trees is shorter. Fitting is fully deterministic for a
// given seed, which keeps scoring reproducible across retrains on the same
// data.
type isolationForest struct {
	trees      []*isoNode
	sampleSize int
	// offset is the contamination-quantile of the training score
	// distribution; Decision subtracts it so the expected outlier
	// fraction lands below zero.
	offset float64
}

type isoNode struct {
	// Internal nodes.
	splitColumn int
	splitValue  float64
	left, right *isoNode

	// Leaves.
	leaf bool
	size int
}

// fitForest builds the forest and calibrates the decision offset.
func fitForest(data [][]float64, trees, sampleSize int, contamination float64, seed int64) *isolationForest {
	if sampleSize > len(data) || sampleSize <= 0 {
		sampleSize = len(data)
	}
	maxDepth := int(math.Ceil(math.Log2(math.Max(float64(sampleSize), 2))))

	rng := rand.New(rand.NewSource(seed))
	f := &isolationForest{
		trees:      make([]*isoNode, 0, trees),
		sampleSize: sampleSize,
	}

	for i := 0; i < trees; i++ {
		sample := subsample(data, sampleSize, rng)
		f.trees = append(f.trees, buildTree(sample, 0, maxDepth, rng))
	}

	// Calibrate the offset on the training scores so that roughly the
	// contamination fraction of the data scores below zero.
	scores := make([]float64, len(data))
	for i, row := range data {
		scores[i] = f.scoreSample(row)
	}
	sort.Float64s(scores)
	idx := int(contamination * float64(len(scores)))
	if idx >= len(scores) {
		idx = len(scores) - 1
	}
	f.offset = scores[idx]

	return f
}

func subsample(data [][]float64, n int, rng *rand.Rand) [][]float64 {
	if n >= len(data) {
		return data
	}
	perm := rng.Perm(len(data))
	sample := make([][]float64, n)
	for i := 0; i < n; i++ {
		sample[i] = data[perm[i]]
	}
	return sample
}

func buildTree(rows [][]float64, depth, maxDepth int, rng *rand.Rand) *isoNode {
	if depth >= maxDepth || len(rows) <= 1 {
		return &isoNode{leaf: true, size: len(rows)}
	}

	// Only columns with spread can split; constant data terminates early.
	splittable := splittableColumns(rows)
	if len(splittable) == 0 {
		return &isoNode{leaf: true, size: len(rows)}
	}

	col := splittable[rng.Intn(len(splittable))]
	lo, hi := columnRange(rows, col)
	split := lo + rng.Float64()*(hi-lo)

	var left, right [][]float64
	for _, row := range rows {
		if row[col] < split {
			left = append(left, row)
		} else {
			right = append(right, row)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return &isoNode{leaf: true, size: len(rows)}
	}

	return &isoNode{
		splitColumn: col,
		splitValue:  split,
		left:        buildTree(left, depth+1, maxDepth, rng),
		right:       buildTree(right, depth+1, maxDepth, rng),
	}
}

func splittableColumns(rows [][]float64) []int {
	var cols []int
	for c := range rows[0] {
		lo, hi := columnRange(rows, c)
		if hi > lo {
			cols = append(cols, c)
		}
	}
	return cols
}

func columnRange(rows [][]float64, col int) (float64, float64) {
	lo, hi := rows[0][col], rows[0][col]
	for _, row := range rows[1:] {
		if row[col] < lo {
			lo = row[col]
		}
		if row[col] > hi {
			hi = row[col]
		}
	}
	return lo, hi
}

func (n *isoNode) pathLength(x []float64, depth float64) float64 {
	if n.leaf {
		return depth + avgPathLength(n.size)
	}
	if x[n.splitColumn] < n.splitValue {
		return n.left.pathLength(x, depth+1)
	}
	return n.right.pathLength(x, depth+1)
}

// avgPathLength is the expected path length of an unsuccessful BST search
// over n points, the standard normalizer for isolation forests.
func avgPathLength(n int) float64 {
	switch {
	case n > 2:
		h := math.Log(float64(n-1)) + 0.5772156649
		return 2*h - 2*float64(n-1)/float64(n)
	case n == 2:
		return 1
	default:
		return 0
	}
}

// scoreSample returns the negated anomaly score in (-1, 0); lower values
// are more anomalous.
func (f *isolationForest) scoreSample(x []float64) float64 {
	var total float64
	for _, tree := range f.trees {
		total += tree.pathLength(x, 0)
	}
	mean := total / float64(len(f.trees))
	anomaly := math.Pow(2, -mean/avgPathLength(f.sampleSize))
	return -anomaly
}

// Decision returns the signed anomaly decision: negative for outliers,
// positive for inliers.
func (f *isolationForest) Decision(x []float64) float64 {
	return f.scoreSample(x) - f.offset
}
