// Package fiat scores fiat payment legs by blending an unsupervised
// anomaly model with deterministic rule checks. Until a model has been
// trained, scoring falls back to the rules alone.
package fiat

import (
	"context"
	"math"
	"sync/atomic"

	"github.com/banking/fraud-detection/internal/config"
	"github.com/banking/fraud-detection/internal/domain"
	"go.uber.org/zap"
)

// Rule contributions. The rule component is capped at 1.0.
const (
	geoMismatchRisk = 0.5
	largeAmountRisk = 0.3
	greyListRisk    = 0.4
)

// invalidLegRisk is the fixed fallback for malformed input; scoring a
// malformed leg high is safer than refusing an opinion.
const invalidLegRisk = 0.8

// modelLargeAmountLog is the log1p threshold above which the model alert
// names the amount as the likely driver.
var modelLargeAmountLog = math.Log1p(5000)

// GeoResolver resolves an IP literal to a country code, best effort.
type GeoResolver interface {
	ResolveCountry(ctx context.Context, ip string) (string, bool)
}

// JurisdictionLookup answers grey/black list membership for country codes.
type JurisdictionLookup interface {
	LookupJurisdiction(code string) (domain.JurisdictionEntry, bool)
}

// trainedModel bundles the forest with the feature layout it was fit on.
// The pair is immutable once published; retraining publishes a fresh pair.
type trainedModel struct {
	features *featureSet
	forest   *isolationForest
}

// Analyzer is the fiat anomaly analyzer. Safe for concurrent use: Train
// swaps the model atomically, Analyze snapshots it once per call.
type Analyzer struct {
	cfg      config.AnomalyConfig
	registry JurisdictionLookup
	geo      GeoResolver
	logger   *zap.Logger

	model atomic.Pointer[trainedModel]
}

// New creates a fiat analyzer in the untrained state.
func New(cfg config.AnomalyConfig, registry JurisdictionLookup, geo GeoResolver, logger *zap.Logger) *Analyzer {
	return &Analyzer{
		cfg:      cfg,
		registry: registry,
		geo:      geo,
		logger:   logger,
	}
}

// Trained reports whether a model is available.
func (a *Analyzer) Trained() bool {
	return a.model.Load() != nil
}

// Train fits the anomaly model on historical fiat legs and swaps it in
// atomically. Empty input is a logged no-op; repeat calls replace the model
// wholesale (last call wins). In-flight Analyze calls keep the snapshot
// they started with.
func (a *Analyzer) Train(legs []domain.FiatLeg) {
	if len(legs) == 0 {
		a.logger.Warn("Training data is empty, skipping training")
		return
	}

	a.logger.Info("Training fiat anomaly model", zap.Int("samples", len(legs)))

	features := newFeatureSet(legs)
	forest := fitForest(
		features.matrix(legs),
		a.cfg.Trees,
		a.cfg.SampleSize,
		a.cfg.Contamination,
		a.cfg.Seed,
	)

	a.model.Store(&trainedModel{features: features, forest: forest})

	a.logger.Info("Fiat anomaly model trained",
		zap.Int("features", len(features.columns)),
		zap.Int("trees", a.cfg.Trees),
	)
}

// Analyze scores a single fiat leg. Malformed legs get the fixed high-risk
// fallback instead of an error.
func (a *Analyzer) Analyze(ctx context.Context, leg domain.FiatLeg) domain.ChannelResult {
	if !leg.Valid() {
		a.logger.Warn("Invalid fiat transaction data")
		return domain.ChannelResult{Score: invalidLegRisk, Alerts: []string{"Invalid transaction data"}}
	}

	ruleScore, alerts := a.ruleChecks(ctx, leg)

	model := a.model.Load()
	if model == nil {
		a.logger.Debug("Model not trained, using rule-based analysis only")
		return domain.ChannelResult{Score: ruleScore, Alerts: alerts}
	}

	modelScore, modelAlerts := a.modelCheck(model, leg)
	alerts = append(alerts, modelAlerts...)

	combined := a.cfg.ModelWeight*modelScore + a.cfg.RuleWeight*ruleScore
	return domain.ChannelResult{Score: combined, Alerts: alerts}
}

// ruleChecks runs the deterministic rules; the sum is capped at 1.0.
func (a *Analyzer) ruleChecks(ctx context.Context, leg domain.FiatLeg) (float64, []string) {
	score := 0.0
	var alerts []string

	if leg.CardCountry != leg.GeoSignal {
		if leg.GeoSignalIsIP() {
			// Refine the raw comparison through geo-IP resolution when
			// we can; a failed lookup falls back to the raw strings.
			if country, ok := a.geo.ResolveCountry(ctx, leg.GeoSignal); ok {
				if country != leg.CardCountry {
					score += geoMismatchRisk
					alerts = append(alerts, "Geo mismatch: "+country+" IP vs "+leg.CardCountry+" card")
				}
			} else {
				score += geoMismatchRisk
				alerts = append(alerts, "Geo mismatch: "+leg.GeoSignal+" vs "+leg.CardCountry)
			}
		} else {
			score += geoMismatchRisk
			alerts = append(alerts, "Geo mismatch: "+leg.GeoSignal+" vs "+leg.CardCountry)
		}
	}

	if leg.Amount.InexactFloat64() > a.cfg.LargeAmountThreshold {
		score += largeAmountRisk
		alerts = append(alerts, "Large transaction amount: "+leg.Amount.String()+" "+leg.Currency)
	}

	if entry, ok := a.registry.LookupJurisdiction(leg.CardCountry); ok && entry.ListTier == domain.ListTierGrey {
		score += greyListRisk
		alerts = append(alerts, "Card from FATF grey-listed country: "+leg.CardCountry)
	}

	if domain.IsCountryCode(leg.GeoSignal) {
		if entry, ok := a.registry.LookupJurisdiction(leg.GeoSignal); ok && entry.ListTier == domain.ListTierGrey {
			score += greyListRisk
			alerts = append(alerts, "IP from FATF grey-listed country: "+leg.GeoSignal)
		}
	}

	return math.Min(score, 1.0), alerts
}

// modelCheck scores the leg against the model snapshot and maps the signed
// decision to a risk: more anomalous means a lower decision, so
// risk = 0.5 - decision/2.
func (a *Analyzer) modelCheck(model *trainedModel, leg domain.FiatLeg) (float64, []string) {
	vector := model.features.vector(leg)
	decision := model.forest.Decision(vector)
	risk := 0.5 - decision/2

	var alerts []string
	if risk > a.cfg.ModelAlertThreshold {
		alerts = append(alerts, "Transaction flagged as anomalous by ML model")
		if model.features.geoMismatch(vector) {
			alerts = append(alerts, "Unusual geographic pattern detected")
		}
		if model.features.logAmount(vector) > modelLargeAmountLog {
			alerts = append(alerts, "Unusual transaction amount")
		}
	}

	return risk, alerts
}
