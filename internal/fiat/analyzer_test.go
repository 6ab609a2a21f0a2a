package fiat

import (
	"context"
	"testing"

	"github.com/banking/fraud-detection/internal/config"
	"github.com/banking/fraud-detection/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeJurisdictions struct{}

func (fakeJurisdictions) LookupJurisdiction(code string) (domain.JurisdictionEntry, bool) {
	switch code {
	case "NG", "TR":
		return domain.JurisdictionEntry{CountryCode: code, ListTier: domain.ListTierGrey, RiskWeight: 0.7}, true
	case "KP":
		return domain.JurisdictionEntry{CountryCode: code, ListTier: domain.ListTierBlack, RiskWeight: 1.0}, true
	}
	return domain.JurisdictionEntry{}, false
}

type fakeGeo struct {
	country string
	ok      bool
}

func (g fakeGeo) ResolveCountry(_ context.Context, _ string) (string, bool) {
	return g.country, g.ok
}

func testConfig() config.AnomalyConfig {
	return config.AnomalyConfig{
		Contamination:        0.05,
		Seed:                 42,
		Trees:                100,
		SampleSize:           256,
		ModelWeight:          0.7,
		RuleWeight:           0.3,
		LargeAmountThreshold: 10000,
		ModelAlertThreshold:  0.7,
	}
}

func testAnalyzer(geo GeoResolver) *Analyzer {
	return New(testConfig(), fakeJurisdictions{}, geo, zap.NewNop())
}

func usdLeg(amount float64, cardCountry, geoSignal string) domain.FiatLeg {
	return domain.FiatLeg{
		Amount:      decimal.NewFromFloat(amount),
		Currency:    "USD",
		CardCountry: cardCountry,
		GeoSignal:   geoSignal,
	}
}

func TestAnalyzeInvalidLeg(t *testing.T) {
	a := testAnalyzer(fakeGeo{})

	result := a.Analyze(context.Background(), domain.FiatLeg{Currency: "USD"})

	assert.Equal(t, 0.8, result.Score)
	assert.Equal(t, []string{"Invalid transaction data"}, result.Alerts)
}

func TestAnalyzeUntrainedCleanLeg(t *testing.T) {
	a := testAnalyzer(fakeGeo{})

	result := a.Analyze(context.Background(), usdLeg(100, "US", "US"))

	assert.Equal(t, 0.0, result.Score)
	assert.Empty(t, result.Alerts)
}

func TestAnalyzeUntrainedRulesStack(t *testing.T) {
	a := testAnalyzer(fakeGeo{})

	// Country mismatch, large amount and a grey-listed geo signal together
	// exceed 1.0 and get capped.
	result := a.Analyze(context.Background(), usdLeg(15000, "US", "NG"))

	assert.Equal(t, 1.0, result.Score)
	assert.Equal(t, []string{
		"Geo mismatch: NG vs US",
		"Large transaction amount: 15000 USD",
		"IP from FATF grey-listed country: NG",
	}, result.Alerts)
}

func TestAnalyzeGreyListedCardCountry(t *testing.T) {
	a := testAnalyzer(fakeGeo{})

	result := a.Analyze(context.Background(), usdLeg(100, "TR", "TR"))

	// The card country and the geo signal each match the grey list.
	assert.InDelta(t, 0.8, result.Score, 1e-9)
	assert.Equal(t, []string{
		"Card from FATF grey-listed country: TR",
		"IP from FATF grey-listed country: TR",
	}, result.Alerts)
}

func TestAnalyzeResolvedIPMatchingCard(t *testing.T) {
	a := testAnalyzer(fakeGeo{country: "US", ok: true})

	result := a.Analyze(context.Background(), usdLeg(100, "US", "8.8.8.8"))

	assert.Equal(t, 0.0, result.Score)
	assert.Empty(t, result.Alerts)
}

func TestAnalyzeResolvedIPMismatchingCard(t *testing.T) {
	a := testAnalyzer(fakeGeo{country: "RU", ok: true})

	result := a.Analyze(context.Background(), usdLeg(100, "US", "8.8.8.8"))

	assert.Equal(t, 0.5, result.Score)
	assert.Equal(t, []string{"Geo mismatch: RU IP vs US card"}, result.Alerts)
}

func TestAnalyzeUnresolvableIPFallsBackToRawComparison(t *testing.T) {
	a := testAnalyzer(fakeGeo{ok: false})

	result := a.Analyze(context.Background(), usdLeg(100, "US", "8.8.8.8"))

	assert.Equal(t, 0.5, result.Score)
	assert.Equal(t, []string{"Geo mismatch: 8.8.8.8 vs US"}, result.Alerts)
}

func TestTrainEmptyIsNoOp(t *testing.T) {
	a := testAnalyzer(fakeGeo{})

	a.Train(nil)

	assert.False(t, a.Trained())
}

// normalLegs generates a homogeneous training set of small domestic
// payments.
func normalLegs(n int) []domain.FiatLeg {
	legs := make([]domain.FiatLeg, 0, n)
	for i := 0; i < n; i++ {
		legs = append(legs, usdLeg(float64(50+i%100), "US", "US"))
	}
	return legs
}

func TestTrainedModelSeparatesOutliers(t *testing.T) {
	a := testAnalyzer(fakeGeo{})
	a.Train(normalLegs(300))
	require.True(t, a.Trained())

	normal := a.Analyze(context.Background(), usdLeg(100, "US", "US"))
	outlier := a.Analyze(context.Background(), usdLeg(50000, "US", "NG"))

	assert.Less(t, normal.Score, 0.55)
	assert.Greater(t, outlier.Score, normal.Score)
	assert.Contains(t, outlier.Alerts, "Geo mismatch: NG vs US")
	assert.Contains(t, outlier.Alerts, "Large transaction amount: 50000 USD")
}

func TestTrainingIsDeterministic(t *testing.T) {
	legs := normalLegs(300)
	probe := usdLeg(5000, "US", "US")

	a := testAnalyzer(fakeGeo{})
	a.Train(legs)
	b := testAnalyzer(fakeGeo{})
	b.Train(legs)

	assert.Equal(t,
		a.Analyze(context.Background(), probe).Score,
		b.Analyze(context.Background(), probe).Score,
	)
}

func TestRetrainReplacesModel(t *testing.T) {
	a := testAnalyzer(fakeGeo{})
	probe := usdLeg(5000, "US", "US")

	a.Train(normalLegs(300))
	first := a.Analyze(context.Background(), probe).Score

	a.Train(normalLegs(300))
	second := a.Analyze(context.Background(), probe).Score

	assert.Equal(t, first, second)
}

func TestFeatureSetAlignsUnseenCategories(t *testing.T) {
	fs := newFeatureSet(normalLegs(10))

	// A currency never seen in training contributes nothing; the shared
	// numeric features still encode.
	v := fs.vector(domain.FiatLeg{
		Amount:      decimal.NewFromInt(100),
		Currency:    "EUR",
		CardCountry: "US",
		GeoSignal:   "DE",
	})

	assert.True(t, fs.geoMismatch(v))
	assert.Greater(t, fs.logAmount(v), 0.0)

	sum := 0.0
	for _, x := range v {
		sum += x
	}
	// card_US one-hot + mismatch flag + log amount are the only non-zero
	// entries.
	assert.InDelta(t, 2+fs.logAmount(v), sum, 1e-9)
}
