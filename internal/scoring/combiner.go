// Package scoring orchestrates the channel analyzers and merges their
// results into one normalized risk score and tier.
package scoring

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/banking/fraud-detection/internal/config"
	"github.com/banking/fraud-detection/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrInvalidEvent is the only failure Analyze can return; every other
// condition degrades to a risk opinion.
var ErrInvalidEvent = errors.New("risk event must carry at least one leg")

// FiatChannel is the fiat anomaly analyzer as seen by the combiner.
type FiatChannel interface {
	Train(legs []domain.FiatLeg)
	Analyze(ctx context.Context, leg domain.FiatLeg) domain.ChannelResult
}

// CryptoChannel is the crypto risk analyzer as seen by the combiner.
type CryptoChannel interface {
	Analyze(ctx context.Context, leg domain.CryptoLeg) domain.ChannelResult
}

// StablecoinChannel is the stablecoin transfer analyzer as seen by the
// combiner. It only runs when the crypto leg's currency matches Symbol.
type StablecoinChannel interface {
	Symbol() string
	Analyze(ctx context.Context, address string) domain.ChannelResult
}

// Combiner fans a risk event out to the present channels and merges the
// per-channel results under the configured weights. Channels that are
// absent have their weight redistributed proportionally across the present
// ones, so effective weights always sum to 1.0.
type Combiner struct {
	cfg        config.ScoringConfig
	budget     time.Duration
	fiat       FiatChannel
	crypto     CryptoChannel
	stablecoin StablecoinChannel
	logger     *zap.Logger
}

// New creates a combiner. budget bounds how long one analyze call may
// spend on external ledger lookups before the crypto channels degrade to
// no-history semantics.
func New(cfg config.ScoringConfig, budget time.Duration, fiat FiatChannel, crypto CryptoChannel, stablecoin StablecoinChannel, logger *zap.Logger) *Combiner {
	return &Combiner{
		cfg:        cfg,
		budget:     budget,
		fiat:       fiat,
		crypto:     crypto,
		stablecoin: stablecoin,
		logger:     logger,
	}
}

// Train fits the fiat anomaly model on historical legs. Idempotent; the
// last call wins. Empty input is a no-op.
func (c *Combiner) Train(legs []domain.FiatLeg) {
	c.fiat.Train(legs)
}

// Analyze scores one risk event. The only error is ErrInvalidEvent for an
// event with no legs; all degraded conditions still produce a result.
func (c *Combiner) Analyze(ctx context.Context, event domain.RiskEvent) (domain.CombinedResult, error) {
	if !event.HasLeg() {
		return domain.CombinedResult{}, ErrInvalidEvent
	}

	// Bound the externally-dependent channels. The ledger client treats
	// an expired context as Unavailable, which the analyzers map to
	// no-history scoring, so a slow explorer degrades instead of hanging
	// the call.
	analyzeCtx := ctx
	var cancel context.CancelFunc
	if c.budget > 0 {
		analyzeCtx, cancel = context.WithTimeout(ctx, c.budget)
		defer cancel()
	}

	var fiatResult, cryptoResult, stablecoinResult *domain.ChannelResult

	g, gctx := errgroup.WithContext(analyzeCtx)

	if event.Fiat != nil {
		leg := *event.Fiat
		g.Go(func() error {
			r := c.fiat.Analyze(gctx, leg)
			fiatResult = &r
			return nil
		})
	}

	if event.Crypto != nil {
		leg := *event.Crypto
		g.Go(func() error {
			r := c.crypto.Analyze(gctx, leg)
			cryptoResult = &r
			return nil
		})

		if leg.Currency == c.stablecoin.Symbol() {
			g.Go(func() error {
				r := c.stablecoin.Analyze(gctx, leg.Address)
				stablecoinResult = &r
				return nil
			})
		}
	}

	// Analyzers never return errors; the group is only a join point.
	_ = g.Wait()

	result := c.merge(fiatResult, cryptoResult, stablecoinResult)

	c.logger.Info("Risk analysis complete",
		zap.Float64("risk_score", result.RiskScore),
		zap.String("risk_level", string(result.RiskLevel)),
		zap.Int("alerts", len(result.Alerts)),
	)

	return result, nil
}

// merge combines the per-channel scores with renormalized weights and
// concatenates alerts in fiat, crypto, stablecoin order with channel
// prefixes.
func (c *Combiner) merge(fiat, crypto, stablecoin *domain.ChannelResult) domain.CombinedResult {
	type channel struct {
		name   string
		weight float64
		result *domain.ChannelResult
	}

	channels := []channel{
		{"Fiat", c.cfg.FiatWeight, fiat},
		{"Crypto", c.cfg.CryptoWeight, crypto},
		{"Stablecoin", c.cfg.StablecoinWeight, stablecoin},
	}

	weightSum := 0.0
	for _, ch := range channels {
		if ch.result != nil {
			weightSum += ch.weight
		}
	}

	combined := 0.0
	alerts := []string{}
	if weightSum > 0 {
		for _, ch := range channels {
			if ch.result == nil {
				continue
			}
			combined += (ch.weight / weightSum) * ch.result.Score
			for _, alert := range ch.result.Alerts {
				alerts = append(alerts, ch.name+": "+alert)
			}
		}
	}

	score := math.Round(combined*100*100) / 100

	return domain.CombinedResult{
		RiskScore:  score,
		RiskLevel:  domain.LevelForScore(score),
		Alerts:     alerts,
		Fiat:       fiat,
		Crypto:     crypto,
		Stablecoin: stablecoin,
	}
}
