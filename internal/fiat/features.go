package fiat

import (
	"math"
	"sort"

	"github.com/banking/fraud-detection/internal/domain"
)

// Feature column name prefixes for the one-hot encodings.
const (
	currencyPrefix = "currency_"
	cardPrefix     = "card_"
	geoPrefix      = "geo_"

	geoMismatchColumn = "geo_mismatch"
	logAmountColumn   = "log_amount"
)

// featureSet fixes the column layout learned at training time. Scoring a
// single leg re-derives the same representation and aligns it to these
// columns: one-hot columns unseen in training are dropped, training columns
// absent from the leg are zero.
type featureSet struct {
	columns []string
	index   map[string]int
}

// newFeatureSet derives the column set from the training legs. Column order
// is sorted so an identical data set always yields an identical layout.
func newFeatureSet(legs []domain.FiatLeg) *featureSet {
	names := make(map[string]struct{})
	for _, leg := range legs {
		names[currencyPrefix+leg.Currency] = struct{}{}
		names[cardPrefix+leg.CardCountry] = struct{}{}
		names[geoPrefix+leg.GeoSignal] = struct{}{}
	}
	names[geoMismatchColumn] = struct{}{}
	names[logAmountColumn] = struct{}{}

	columns := make([]string, 0, len(names))
	for name := range names {
		columns = append(columns, name)
	}
	sort.Strings(columns)

	index := make(map[string]int, len(columns))
	for i, name := range columns {
		index[name] = i
	}

	return &featureSet{columns: columns, index: index}
}

// vector encodes one leg against the learned column layout.
func (fs *featureSet) vector(leg domain.FiatLeg) []float64 {
	v := make([]float64, len(fs.columns))

	fs.set(v, currencyPrefix+leg.Currency, 1)
	fs.set(v, cardPrefix+leg.CardCountry, 1)
	fs.set(v, geoPrefix+leg.GeoSignal, 1)

	if leg.CardCountry != leg.GeoSignal {
		fs.set(v, geoMismatchColumn, 1)
	}
	fs.set(v, logAmountColumn, math.Log1p(leg.Amount.InexactFloat64()))

	return v
}

func (fs *featureSet) set(v []float64, column string, value float64) {
	if i, ok := fs.index[column]; ok {
		v[i] = value
	}
}

// matrix encodes all training legs.
func (fs *featureSet) matrix(legs []domain.FiatLeg) [][]float64 {
	rows := make([][]float64, len(legs))
	for i, leg := range legs {
		rows[i] = fs.vector(leg)
	}
	return rows
}

// geoMismatch reports whether the encoded vector has the mismatch flag set.
func (fs *featureSet) geoMismatch(v []float64) bool {
	i, ok := fs.index[geoMismatchColumn]
	return ok && v[i] > 0
}

// logAmount returns the encoded log-amount feature.
func (fs *featureSet) logAmount(v []float64) float64 {
	i, ok := fs.index[logAmountColumn]
	if !ok {
		return 0
	}
	return v[i]
}
