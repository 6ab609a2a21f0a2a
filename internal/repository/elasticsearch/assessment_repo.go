package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/banking/fraud-detection/internal/config"
	"github.com/banking/fraud-detection/internal/domain"
	elastic "github.com/elastic/go-elasticsearch/v8"
)

// AssessmentRepository indexes completed risk assessments for analyst
// search. Indexing is best effort; the scoring path never depends on it.
type AssessmentRepository struct {
	client *elastic.Client
	index  string
}

// NewAssessmentRepository creates a new search repository
func NewAssessmentRepository(cfg config.ElasticsearchConfig) (*AssessmentRepository, error) {
	client, err := elastic.NewClient(elastic.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}

	// Verify connection
	if _, err = client.Info(); err != nil {
		return nil, fmt.Errorf("failed to connect to elasticsearch: %w", err)
	}

	return &AssessmentRepository{
		client: client,
		index:  cfg.Index,
	}, nil
}

// IndexAssessment indexes one assessment document.
func (r *AssessmentRepository) IndexAssessment(ctx context.Context, assessment *domain.RiskAssessment) error {
	data, err := json.Marshal(assessment)
	if err != nil {
		return fmt.Errorf("failed to marshal assessment: %w", err)
	}

	res, err := r.client.Index(
		r.index,
		bytes.NewReader(data),
		r.client.Index.WithContext(ctx),
		r.client.Index.WithDocumentID(assessment.AssessmentID.String()),
	)
	if err != nil {
		return fmt.Errorf("failed to index assessment: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch error: %s", res.String())
	}

	return nil
}

// SearchAssessments runs a query-string search over indexed assessments,
// newest first.
func (r *AssessmentRepository) SearchAssessments(ctx context.Context, query string, from, size int) ([]*domain.RiskAssessment, int64, error) {
	esQuery := map[string]interface{}{
		"from": from,
		"size": size,
		"query": map[string]interface{}{
			"query_string": map[string]interface{}{
				"query": query,
			},
		},
		"sort": []map[string]interface{}{
			{"analyzed_at": "desc"},
		},
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(esQuery); err != nil {
		return nil, 0, fmt.Errorf("failed to encode query: %w", err)
	}

	res, err := r.client.Search(
		r.client.Search.WithContext(ctx),
		r.client.Search.WithIndex(r.index),
		r.client.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to perform search: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, 0, fmt.Errorf("elasticsearch search error: %s", res.String())
	}

	var result struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source json.RawMessage `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, 0, fmt.Errorf("failed to decode response: %w", err)
	}

	assessments := make([]*domain.RiskAssessment, 0, len(result.Hits.Hits))
	for _, hit := range result.Hits.Hits {
		var assessment domain.RiskAssessment
		if err := json.Unmarshal(hit.Source, &assessment); err == nil {
			assessments = append(assessments, &assessment)
		}
	}

	return assessments, result.Hits.Total.Value, nil
}
