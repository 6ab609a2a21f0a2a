package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/banking/fraud-detection/internal/api"
	"github.com/banking/fraud-detection/internal/config"
	"github.com/banking/fraud-detection/internal/cryptorisk"
	"github.com/banking/fraud-detection/internal/domain"
	"github.com/banking/fraud-detection/internal/events"
	"github.com/banking/fraud-detection/internal/fiat"
	"github.com/banking/fraud-detection/internal/geoip"
	"github.com/banking/fraud-detection/internal/ledger"
	"github.com/banking/fraud-detection/internal/registry"
	"github.com/banking/fraud-detection/internal/repository/elasticsearch"
	"github.com/banking/fraud-detection/internal/repository/postgres"
	"github.com/banking/fraud-detection/internal/repository/s3"
	"github.com/banking/fraud-detection/internal/scoring"
	"github.com/banking/fraud-detection/internal/service"
	"github.com/banking/fraud-detection/internal/stablecoin"
	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

func main() {
	// 1. Config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()
	sugar := logger.Sugar()

	sugar.Info("Starting Fraud Risk Scoring Service...")

	// 3. Risk-list registry
	reg, err := loadRegistry(cfg, logger)
	if err != nil {
		sugar.Fatalf("Failed to load risk registry: %v", err)
	}

	// 4. External collaborators
	ledgerClient := ledger.NewClient(cfg.Ledger, logger)
	geoResolver := geoip.NewResolver(cfg.GeoIP, logger)

	// 5. Channel analyzers and combiner
	fiatAnalyzer := fiat.New(cfg.Anomaly, reg, geoResolver, logger)
	cryptoAnalyzer := cryptorisk.New(reg, ledgerClient, logger)
	stablecoinAnalyzer := stablecoin.New(reg, ledgerClient,
		cfg.Scoring.StablecoinSymbol, cfg.Scoring.StablecoinContract, logger)

	combiner := scoring.New(cfg.Scoring, cfg.Ledger.CallBudget,
		fiatAnalyzer, cryptoAnalyzer, stablecoinAnalyzer, logger)

	// 6. Optional sinks
	var esRepo *elasticsearch.AssessmentRepository
	if cfg.Elasticsearch.Enabled {
		esRepo, err = elasticsearch.NewAssessmentRepository(cfg.Elasticsearch)
		if err != nil {
			sugar.Warnf("Failed to connect to Elasticsearch: %v (assessment search will be unavailable)", err)
			esRepo = nil
		}
	}

	var producer *events.AlertProducer
	if cfg.Kafka.Enabled {
		producer, err = events.NewAlertProducer(cfg.Kafka, logger)
		if err != nil {
			sugar.Fatalf("Failed to create Kafka producer: %v", err)
		}
		defer producer.Close()
	}

	// 7. Service
	riskService := service.NewRiskService(combiner, esRepo, producer, logger)

	// 8. API Server
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	riskHandler := api.NewRiskHandler(riskService)

	apiGroup := e.Group("/risk")

	// Security: Add JWT Authentication
	keyData, err := os.ReadFile(cfg.Auth.JWTPublicKeyPath)
	var signingKey interface{}
	if err == nil {
		signingKey, err = jwt.ParseRSAPublicKeyFromPEM(keyData)
		if err != nil {
			sugar.Warnf("Failed to parse JWT public key: %v", err)
		}
	} else {
		sugar.Warnf("JWT public key not found at %s: %v", cfg.Auth.JWTPublicKeyPath, err)
	}

	if signingKey != nil {
		config := echojwt.Config{
			SigningKey:    signingKey,
			SigningMethod: "RS256",
			NewClaimsFunc: func(c echo.Context) jwt.Claims {
				return new(jwt.MapClaims)
			},
		}
		apiGroup.Use(echojwt.WithConfig(config))
		sugar.Info("JWT Authentication enabled for /risk/*")
	} else {
		sugar.Warn("JWT Authentication DISABLED - Missing Public Key (Security Risk)")
	}

	riskHandler.RegisterRoutes(apiGroup)

	// Health Check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	// Start Server
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			sugar.Fatalf("Shutting down the server: %v", err)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	sugar.Info("Shutting down service...")
	// Timeout for shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		sugar.Fatal(err)
	}
}

// loadRegistry builds the risk-list registry from the configured source.
// The service refuses to start with empty lists, whatever the source.
func loadRegistry(cfg *config.Config, logger *zap.Logger) (*registry.Registry, error) {
	var (
		addresses     []domain.AddressRiskEntry
		jurisdictions []domain.JurisdictionEntry
	)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch cfg.Registry.Source {
	case "static", "":
		addresses = registry.DefaultAddressEntries()
		jurisdictions = registry.DefaultJurisdictionEntries()

	case "postgres":
		repo, err := postgres.NewListRepository(cfg.Database)
		if err != nil {
			return nil, err
		}
		defer repo.Close()

		if addresses, err = repo.LoadAddressEntries(ctx); err != nil {
			return nil, err
		}
		if jurisdictions, err = repo.LoadJurisdictionEntries(ctx); err != nil {
			return nil, err
		}

	case "s3":
		source, err := s3.NewListSource(ctx, cfg.S3)
		if err != nil {
			return nil, err
		}

		if addresses, err = source.LoadAddressEntries(ctx); err != nil {
			return nil, err
		}
		if jurisdictions, err = source.LoadJurisdictionEntries(ctx); err != nil {
			return nil, err
		}

	default:
		return nil, fmt.Errorf("unknown registry source %q", cfg.Registry.Source)
	}

	return registry.New(addresses, jurisdictions, logger)
}
