package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/banking/fraud-detection/internal/config"
	"github.com/banking/fraud-detection/internal/cryptorisk"
	"github.com/banking/fraud-detection/internal/domain"
	"github.com/banking/fraud-detection/internal/fiat"
	"github.com/banking/fraud-detection/internal/geoip"
	"github.com/banking/fraud-detection/internal/ledger"
	"github.com/banking/fraud-detection/internal/registry"
	"github.com/banking/fraud-detection/internal/scoring"
	"github.com/banking/fraud-detection/internal/service"
	"github.com/banking/fraud-detection/internal/stablecoin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	cleanWallet = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	usdcWallet  = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	darknetAddr = "0x3cbded43efdaf0fc77b9c55f6fc9988fcc9b757d"
	scamAddr    = "0x1446d6a152245d26f79082202bcd8a8a34967f4b"
	usdcToken   = "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"
)

func writeHistory(w http.ResponseWriter, txs []domain.LedgerTransaction) {
	result, _ := json.Marshal(txs)
	resp, _ := json.Marshal(map[string]interface{}{
		"status": "1", "message": "OK", "result": json.RawMessage(result),
	})
	w.Write(resp)
}

// steadyEthHistory is an established, unremarkable account: weekly
// transactions with growing values and clean counterparties.
func steadyEthHistory() []domain.LedgerTransaction {
	history := make([]domain.LedgerTransaction, 0, 5)
	for i := 0; i < 5; i++ {
		history = append(history, domain.LedgerTransaction{
			Hash:      fmt.Sprintf("0xhash%d", i),
			From:      cleanWallet,
			To:        "0xcccccccccccccccccccccccccccccccccccccccc",
			Value:     decimal.NewFromInt(int64(10 + i)).Mul(domain.WeiPerEther).String(),
			TimeStamp: fmt.Sprintf("%d", 1700000000+i*7*86400),
		})
	}
	return history
}

// usdcTransferLog has 3 of 10 transfers touching a known scam address.
func usdcTransferLog() []domain.LedgerTransaction {
	transfers := make([]domain.LedgerTransaction, 0, 10)
	for i := 0; i < 10; i++ {
		to := "0xcccccccccccccccccccccccccccccccccccccccc"
		if i < 3 {
			to = scamAddr
		}
		transfers = append(transfers, domain.LedgerTransaction{
			Hash:      fmt.Sprintf("0xtransfer%d", i),
			From:      usdcWallet,
			To:        to,
			Value:     "1000000",
			TimeStamp: fmt.Sprintf("%d", 1700000000+i*86400),
		})
	}
	return transfers
}

// newRiskService wires the full scoring pipeline against stub upstream
// endpoints.
func newRiskService(t *testing.T) *service.RiskService {
	t.Helper()

	explorer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		action := r.URL.Query().Get("action")
		address := r.URL.Query().Get("address")

		switch {
		case action == "tokentx" && address == usdcWallet:
			writeHistory(w, usdcTransferLog())
		case action == "txlist" && address == cleanWallet:
			writeHistory(w, steadyEthHistory())
		case action == "txlist" && address == usdcWallet:
			writeHistory(w, steadyEthHistory())
		default:
			w.Write([]byte(`{"status":"0","message":"No transactions found","result":[]}`))
		}
	}))
	t.Cleanup(explorer.Close)

	geo := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"country":"US"}`))
	}))
	t.Cleanup(geo.Close)

	logger := zap.NewNop()

	reg, err := registry.New(registry.DefaultAddressEntries(), registry.DefaultJurisdictionEntries(), logger)
	require.NoError(t, err)

	ledgerClient := ledger.NewClient(config.LedgerConfig{
		BaseURL:           explorer.URL,
		RequestsPerSecond: 1000,
		RequestTimeout:    5 * time.Second,
	}, logger)
	geoResolver := geoip.NewResolver(config.GeoIPConfig{BaseURL: geo.URL, Timeout: 2 * time.Second}, logger)

	anomalyCfg := config.AnomalyConfig{
		Contamination:        0.05,
		Seed:                 42,
		Trees:                100,
		SampleSize:           256,
		ModelWeight:          0.7,
		RuleWeight:           0.3,
		LargeAmountThreshold: 10000,
		ModelAlertThreshold:  0.7,
	}
	scoringCfg := config.ScoringConfig{
		FiatWeight:         0.4,
		CryptoWeight:       0.4,
		StablecoinWeight:   0.2,
		StablecoinSymbol:   "USDC",
		StablecoinContract: usdcToken,
	}

	fiatAnalyzer := fiat.New(anomalyCfg, reg, geoResolver, logger)
	cryptoAnalyzer := cryptorisk.New(reg, ledgerClient, logger)
	stablecoinAnalyzer := stablecoin.New(reg, ledgerClient, scoringCfg.StablecoinSymbol, scoringCfg.StablecoinContract, logger)

	combiner := scoring.New(scoringCfg, 10*time.Second, fiatAnalyzer, cryptoAnalyzer, stablecoinAnalyzer, logger)

	return service.NewRiskService(combiner, nil, nil, logger)
}

func TestFiatOnlyFlow(t *testing.T) {
	svc := newRiskService(t)

	assessment, err := svc.Analyze(context.Background(), domain.RiskEvent{
		Fiat: &domain.FiatLeg{
			Amount:      decimal.NewFromInt(15000),
			Currency:    "USD",
			CardCountry: "GB",
			GeoSignal:   "8.8.8.8",
		},
	})
	require.NoError(t, err)

	// Untrained model: rules only. Resolved-country mismatch plus the large
	// amount give 0.8, carried at full weight as the lone channel.
	assert.Equal(t, 80.0, assessment.Result.RiskScore)
	assert.Equal(t, domain.RiskLevelHigh, assessment.Result.RiskLevel)
	assert.Equal(t, []string{
		"Fiat: Geo mismatch: US IP vs GB card",
		"Fiat: Large transaction amount: 15000 USD",
	}, assessment.Result.Alerts)
	assert.NotZero(t, assessment.AssessmentID)
}

func TestDarknetAddressFlow(t *testing.T) {
	svc := newRiskService(t)

	assessment, err := svc.Analyze(context.Background(), domain.RiskEvent{
		Crypto: &domain.CryptoLeg{
			Address:  darknetAddr,
			Currency: "ETH",
			Amount:   decimal.NewFromInt(1),
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 100.0, assessment.Result.RiskScore)
	assert.Equal(t, domain.RiskLevelCritical, assessment.Result.RiskLevel)
	assert.Contains(t, assessment.Result.Alerts, "Crypto: Address is associated with darknet markets: "+darknetAddr)
}

func TestMixedEventFlow(t *testing.T) {
	svc := newRiskService(t)

	assessment, err := svc.Analyze(context.Background(), domain.RiskEvent{
		Fiat: &domain.FiatLeg{
			Amount:      decimal.NewFromInt(100),
			Currency:    "USD",
			CardCountry: "US",
			GeoSignal:   "US",
		},
		Crypto: &domain.CryptoLeg{
			Address:  cleanWallet,
			Currency: "ETH",
			Amount:   decimal.NewFromInt(2),
		},
	})
	require.NoError(t, err)

	// Clean fiat leg and an established, unremarkable crypto history.
	assert.Equal(t, 0.0, assessment.Result.RiskScore)
	assert.Equal(t, domain.RiskLevelLow, assessment.Result.RiskLevel)
	assert.Empty(t, assessment.Result.Alerts)
}

func TestStablecoinFlow(t *testing.T) {
	svc := newRiskService(t)

	assessment, err := svc.Analyze(context.Background(), domain.RiskEvent{
		Crypto: &domain.CryptoLeg{
			Address:  usdcWallet,
			Currency: "USDC",
			Amount:   decimal.NewFromInt(500),
		},
	})
	require.NoError(t, err)

	// Crypto channel is clean; the stablecoin channel flags 30% risky
	// counterparties. Renormalized weights: (0.2/0.6)*0.3 = 0.1.
	assert.Equal(t, 10.0, assessment.Result.RiskScore)
	assert.Equal(t, domain.RiskLevelLow, assessment.Result.RiskLevel)
	assert.Equal(t, []string{
		"Stablecoin: 30.0% of USDC transfers involve flagged counterparties (3 of 10)",
	}, assessment.Result.Alerts)
}

func TestTrainingChangesFiatScoring(t *testing.T) {
	svc := newRiskService(t)

	leg := domain.FiatLeg{
		Amount:      decimal.NewFromInt(100),
		Currency:    "USD",
		CardCountry: "US",
		GeoSignal:   "US",
	}

	before, err := svc.Analyze(context.Background(), domain.RiskEvent{Fiat: &leg})
	require.NoError(t, err)
	assert.Equal(t, 0.0, before.Result.RiskScore)

	training := make([]domain.FiatLeg, 0, 300)
	for i := 0; i < 300; i++ {
		training = append(training, domain.FiatLeg{
			Amount:      decimal.NewFromInt(int64(50 + i%100)),
			Currency:    "USD",
			CardCountry: "US",
			GeoSignal:   "US",
		})
	}
	svc.Train(training)

	// With a trained model the blended score carries the model component
	// even for a clean leg.
	after, err := svc.Analyze(context.Background(), domain.RiskEvent{Fiat: &leg})
	require.NoError(t, err)
	assert.Greater(t, after.Result.RiskScore, 0.0)
	assert.Less(t, after.Result.RiskScore, 55.0)
}
