package s3

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	appConfig "github.com/banking/fraud-detection/internal/config"
	"github.com/banking/fraud-detection/internal/domain"
)

// ListSource loads curated risk lists from an S3 bucket at startup. The
// compliance team publishes updated JSON lists there; a failed load is
// fatal because the registry must never start empty.
type ListSource struct {
	client         *s3.Client
	bucket         string
	addressListKey string
	countryListKey string
}

// NewListSource creates an S3-backed risk-list source
func NewListSource(ctx context.Context, cfg appConfig.S3Config) (*ListSource, error) {
	// Custom resolver for MinIO/Localstack support
	customResolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		if cfg.Endpoint != "" {
			return aws.Endpoint{
				PartitionID:   "aws",
				URL:           cfg.Endpoint,
				SigningRegion: cfg.Region,
			}, nil
		}
		return aws.Endpoint{}, &aws.EndpointNotFoundError{}
	})

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithEndpointResolverWithOptions(customResolver),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true // Required for MinIO
	})

	return &ListSource{
		client:         client,
		bucket:         cfg.Bucket,
		addressListKey: cfg.AddressListKey,
		countryListKey: cfg.CountryListKey,
	}, nil
}

// LoadAddressEntries fetches and decodes the flagged-address list.
func (s *ListSource) LoadAddressEntries(ctx context.Context) ([]domain.AddressRiskEntry, error) {
	var entries []domain.AddressRiskEntry
	if err := s.loadJSON(ctx, s.addressListKey, &entries); err != nil {
		return nil, fmt.Errorf("failed to load address list: %w", err)
	}
	return entries, nil
}

// LoadJurisdictionEntries fetches and decodes the jurisdiction list.
func (s *ListSource) LoadJurisdictionEntries(ctx context.Context) ([]domain.JurisdictionEntry, error) {
	var entries []domain.JurisdictionEntry
	if err := s.loadJSON(ctx, s.countryListKey, &entries); err != nil {
		return nil, fmt.Errorf("failed to load jurisdiction list: %w", err)
	}
	return entries, nil
}

func (s *ListSource) loadJSON(ctx context.Context, key string, out interface{}) error {
	obj, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to fetch s3://%s/%s: %w", s.bucket, key, err)
	}
	defer obj.Body.Close()

	data, err := io.ReadAll(obj.Body)
	if err != nil {
		return fmt.Errorf("failed to read object body: %w", err)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode list JSON: %w", err)
	}

	return nil
}
