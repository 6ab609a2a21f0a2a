package fiat

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clusterData generates points clustered in the unit square.
func clusterData(n int, seed int64) [][]float64 {
	rng := rand.New(rand.NewSource(seed))
	data := make([][]float64, n)
	for i := range data {
		data[i] = []float64{rng.Float64(), rng.Float64()}
	}
	return data
}

func TestFitForestIsDeterministic(t *testing.T) {
	data := clusterData(300, 7)

	a := fitForest(data, 50, 128, 0.05, 42)
	b := fitForest(data, 50, 128, 0.05, 42)

	probes := [][]float64{{0.5, 0.5}, {0.1, 0.9}, {5, 5}}
	for _, p := range probes {
		assert.Equal(t, a.Decision(p), b.Decision(p))
	}
}

func TestDecisionSeparatesOutliers(t *testing.T) {
	data := clusterData(300, 7)
	f := fitForest(data, 100, 128, 0.05, 42)

	inlier := f.Decision([]float64{0.5, 0.5})
	outlier := f.Decision([]float64{10, 10})

	assert.Greater(t, inlier, outlier)
	assert.Less(t, outlier, 0.0)
}

func TestOffsetCalibration(t *testing.T) {
	data := clusterData(400, 7)
	f := fitForest(data, 100, 128, 0.05, 42)

	// Roughly the contamination fraction of the training data lands below
	// zero; never dramatically more.
	flagged := 0
	for _, row := range data {
		if f.Decision(row) < 0 {
			flagged++
		}
	}
	assert.LessOrEqual(t, flagged, 400*15/100)
}

func TestFitForestClampsSampleSize(t *testing.T) {
	data := clusterData(20, 7)

	f := fitForest(data, 10, 256, 0.05, 42)
	require.Len(t, f.trees, 10)
	assert.Equal(t, 20, f.sampleSize)
}

func TestConstantDataScoresUniformly(t *testing.T) {
	data := make([][]float64, 50)
	for i := range data {
		data[i] = []float64{1, 1}
	}

	f := fitForest(data, 10, 32, 0.05, 42)

	// Every training point is identical, so no point can look anomalous
	// relative to another.
	assert.Equal(t, f.Decision(data[0]), f.Decision(data[1]))
	assert.GreaterOrEqual(t, f.Decision(data[0]), 0.0)
}
