// Package cryptorisk scores a crypto payment leg from three independent
// signals: direct hits against the flagged-address registry, the share of
// transferred value touching known mixers, and temporal/value patterns in
// the address's ledger history. The channel score is the maximum of the
// triggered sub-scores, not their sum.
package cryptorisk

import (
	"context"
	"fmt"
	"sort"

	"github.com/banking/fraud-detection/internal/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Sub-scores for history-based findings.
const (
	noHistoryRisk     = 0.4
	newAccountDayRisk = 0.7
	newAccountWkRisk  = 0.4
	singleTxRisk      = 0.3
	peelingChainRisk  = 0.6
	parseFailureRisk  = 0.3
)

// Mixer-interaction tiers by percentage of total transferred value.
const (
	mixerExtremePct = 50.0
	mixerHighPct    = 20.0
	mixerMediumPct  = 5.0
)

const invalidLegRisk = 0.8

const secondsPerDay = 86400

// HistoryFetcher supplies ledger history for an address. An error is a
// degradation signal meaning "no history", never a hard failure.
type HistoryFetcher interface {
	GetTransactionHistory(ctx context.Context, address, tokenContract string) ([]domain.LedgerTransaction, error)
}

// AddressLookup answers flagged-address membership.
type AddressLookup interface {
	LookupAddress(addr string) (domain.AddressRiskEntry, bool)
	IsMixer(addr string) bool
}

// Analyzer scores crypto legs. Stateless; safe for concurrent use.
type Analyzer struct {
	registry AddressLookup
	ledger   HistoryFetcher
	logger   *zap.Logger
}

// New creates a crypto risk analyzer.
func New(registry AddressLookup, ledger HistoryFetcher, logger *zap.Logger) *Analyzer {
	return &Analyzer{
		registry: registry,
		ledger:   ledger,
		logger:   logger,
	}
}

// Analyze scores a single crypto leg. Malformed legs get the fixed
// high-risk fallback instead of an error.
func (a *Analyzer) Analyze(ctx context.Context, leg domain.CryptoLeg) domain.ChannelResult {
	if !leg.Valid() {
		a.logger.Warn("Invalid crypto transaction data", zap.String("address", leg.Address))
		return domain.ChannelResult{Score: invalidLegRisk, Alerts: []string{"Invalid crypto transaction data"}}
	}

	risk := 0.0
	var alerts []string

	// Direct hits never depend on network availability.
	if directRisk, directAlerts := a.directHit(leg.Address); len(directAlerts) > 0 {
		risk = max(risk, directRisk)
		alerts = append(alerts, directAlerts...)
	}

	history, err := a.ledger.GetTransactionHistory(ctx, leg.Address, "")
	if err != nil || len(history) == 0 {
		if err != nil {
			a.logger.Info("No ledger history available",
				zap.String("address", leg.Address),
				zap.Error(err),
			)
		}
		risk = max(risk, noHistoryRisk)
		alerts = append(alerts, noHistoryAlert(leg.Currency))
		return domain.ChannelResult{Score: risk, Alerts: alerts}
	}

	if mixerRisk, mixerAlerts := a.mixerInteraction(history); len(mixerAlerts) > 0 {
		risk = max(risk, mixerRisk)
		alerts = append(alerts, mixerAlerts...)
	}

	patternRisk, patternAlerts := a.transactionPatterns(history)
	if len(patternAlerts) > 0 {
		risk = max(risk, patternRisk)
		alerts = append(alerts, patternAlerts...)
	}

	return domain.ChannelResult{Score: risk, Alerts: alerts}
}

// directHit checks the address itself against the registry. Darknet
// outranks mixer through max semantics; scam sits between them.
func (a *Analyzer) directHit(address string) (float64, []string) {
	entry, ok := a.registry.LookupAddress(address)
	if !ok {
		return 0, nil
	}

	var alert string
	switch entry.Category {
	case domain.AddressCategoryMixer:
		alert = "Address is a known mixer: " + address
	case domain.AddressCategoryDarknet:
		alert = "Address is associated with darknet markets: " + address
	case domain.AddressCategoryScam:
		alert = "Address is a known scam address: " + address
	default:
		alert = "Address is on the risk list: " + address
	}

	return entry.BaseRisk, []string{alert}
}

func noHistoryAlert(currency string) string {
	if currency != "ETH" {
		return fmt.Sprintf("No Ethereum transaction history found for this %s address", currency)
	}
	return "No Ethereum transaction history found"
}

// mixerInteraction computes the share of transferred value touching known
// mixer addresses. Values are base-unit integer strings that can exceed
// the 64-bit range; all arithmetic stays in decimal.
func (a *Analyzer) mixerInteraction(history []domain.LedgerTransaction) (float64, []string) {
	totalValue := decimal.Zero
	mixerValue := decimal.Zero
	mixerCount := 0

	for _, tx := range history {
		value, err := tx.ValueDecimal()
		if err != nil {
			a.logger.Warn("Skipping transaction with unparseable value",
				zap.String("hash", tx.Hash),
				zap.String("value", tx.Value),
			)
			continue
		}
		totalValue = totalValue.Add(value)

		if a.registry.IsMixer(tx.From) || a.registry.IsMixer(tx.To) {
			mixerCount++
			mixerValue = mixerValue.Add(value)
		}
	}

	if totalValue.Sign() <= 0 || mixerValue.Sign() <= 0 {
		return 0, nil
	}

	pct, _ := mixerValue.Div(totalValue).Mul(decimal.NewFromInt(100)).Float64()

	var risk float64
	switch {
	case pct > mixerExtremePct:
		risk = 1.0
	case pct > mixerHighPct:
		risk = 0.8
	case pct > mixerMediumPct:
		risk = 0.6
	default:
		risk = 0.4
	}

	alert := fmt.Sprintf("%.1f%% of value from/to known mixers (%d transactions)", pct, mixerCount)
	return risk, []string{alert}
}

// transactionPatterns runs the temporal and value heuristics. Malformed
// records are skipped and reported as a moderate-risk alert instead of
// aborting the analysis.
func (a *Analyzer) transactionPatterns(history []domain.LedgerTransaction) (float64, []string) {
	risk := 0.0
	var alerts []string

	type parsedTx struct {
		timestamp int64
		value     decimal.Decimal
	}

	parsed := make([]parsedTx, 0, len(history))
	malformed := 0
	for _, tx := range history {
		ts, err := tx.Timestamp()
		if err == nil {
			var value decimal.Decimal
			value, err = decimal.NewFromString(tx.Value)
			if err == nil {
				parsed = append(parsed, parsedTx{timestamp: ts, value: value})
				continue
			}
		}
		malformed++
		a.logger.Warn("Skipping malformed ledger record in pattern analysis",
			zap.String("hash", tx.Hash),
			zap.Error(err),
		)
	}

	if malformed > 0 {
		risk = max(risk, parseFailureRisk)
		alerts = append(alerts, fmt.Sprintf("Incomplete pattern analysis: %d malformed records skipped", malformed))
	}

	if len(parsed) > 0 {
		oldest, newest := parsed[0].timestamp, parsed[0].timestamp
		for _, tx := range parsed[1:] {
			if tx.timestamp < oldest {
				oldest = tx.timestamp
			}
			if tx.timestamp > newest {
				newest = tx.timestamp
			}
		}

		ageDays := float64(newest-oldest) / secondsPerDay
		if ageDays < 1 {
			risk = max(risk, newAccountDayRisk)
			alerts = append(alerts, "New account: less than 1 day old")
		} else if ageDays < 7 {
			risk = max(risk, newAccountWkRisk)
			alerts = append(alerts, "New account: less than 7 days old")
		}
	}

	if len(history) == 1 {
		risk = max(risk, singleTxRisk)
		alerts = append(alerts, "Single transaction history")
	}

	// Peeling chain: after sorting by time, more than half of consecutive
	// value pairs strictly decrease, with at least two such decreases.
	if len(parsed) >= 3 {
		sort.Slice(parsed, func(i, j int) bool {
			return parsed[i].timestamp < parsed[j].timestamp
		})

		decreasing := 0
		for i := 0; i < len(parsed)-1; i++ {
			if parsed[i].value.GreaterThan(parsed[i+1].value) {
				decreasing++
			}
		}
		if decreasing >= 2 && float64(decreasing) > float64(len(parsed))*0.5 {
			risk = max(risk, peelingChainRisk)
			alerts = append(alerts, "Possible peeling chain detected (decreasing transaction values)")
		}
	}

	return risk, alerts
}
