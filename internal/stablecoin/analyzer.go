// Package stablecoin scores an address by the share of its transfers, on a
// single token contract, whose counterparty is a direct hit in the flagged
// address registry. A plain ratio estimator with a floor: below the
// threshold the channel stays silent, which keeps typical wallets from
// accumulating noise alerts.
package stablecoin

import (
	"context"
	"fmt"

	"github.com/banking/fraud-detection/internal/domain"
	"go.uber.org/zap"
)

// riskyShareFloorPct is the percentage of risky-counterparty transfers
// below which the channel reports zero.
const riskyShareFloorPct = 10.0

// HistoryFetcher supplies a token transfer log for an address.
type HistoryFetcher interface {
	GetTransactionHistory(ctx context.Context, address, tokenContract string) ([]domain.LedgerTransaction, error)
}

// AddressLookup answers flagged-address membership.
type AddressLookup interface {
	LookupAddress(addr string) (domain.AddressRiskEntry, bool)
}

// Analyzer scores stablecoin transfer activity for one token contract.
type Analyzer struct {
	registry AddressLookup
	ledger   HistoryFetcher
	symbol   string
	contract string
	logger   *zap.Logger
}

// New creates a stablecoin analyzer bound to one token contract.
func New(registry AddressLookup, ledger HistoryFetcher, symbol, contract string, logger *zap.Logger) *Analyzer {
	return &Analyzer{
		registry: registry,
		ledger:   ledger,
		symbol:   symbol,
		contract: contract,
		logger:   logger,
	}
}

// Symbol returns the token symbol this analyzer covers.
func (a *Analyzer) Symbol() string {
	return a.symbol
}

// Analyze returns the risky-counterparty share for the address's transfer
// log. No transfers, or an unavailable ledger, scores zero.
func (a *Analyzer) Analyze(ctx context.Context, address string) domain.ChannelResult {
	transfers, err := a.ledger.GetTransactionHistory(ctx, address, a.contract)
	if err != nil {
		a.logger.Info("No stablecoin transfer log available",
			zap.String("address", address),
			zap.String("token", a.symbol),
			zap.Error(err),
		)
		return domain.ChannelResult{}
	}
	if len(transfers) == 0 {
		return domain.ChannelResult{}
	}

	risky := 0
	for _, tx := range transfers {
		if a.isRisky(tx.From) || a.isRisky(tx.To) {
			risky++
		}
	}

	fraction := float64(risky) / float64(len(transfers))
	pct := fraction * 100

	a.logger.Debug("Stablecoin counterparty analysis",
		zap.String("address", address),
		zap.Int("risky", risky),
		zap.Int("total", len(transfers)),
		zap.Float64("pct", pct),
	)

	if pct <= riskyShareFloorPct {
		return domain.ChannelResult{}
	}

	score := fraction
	if score > 1.0 {
		score = 1.0
	}
	alert := fmt.Sprintf("%.1f%% of %s transfers involve flagged counterparties (%d of %d)",
		pct, a.symbol, risky, len(transfers))

	return domain.ChannelResult{Score: score, Alerts: []string{alert}}
}

func (a *Analyzer) isRisky(addr string) bool {
	_, ok := a.registry.LookupAddress(addr)
	return ok
}
