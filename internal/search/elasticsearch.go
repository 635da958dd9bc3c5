package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"kinobook/internal/config"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// ElasticsearchClient maintains the payment audit index. Every terminal
// payment attempt (SUCCESS or FAILED) ends up here via the consumer binary,
// giving support staff a searchable trail without touching the ledger.
type ElasticsearchClient struct {
	client *elasticsearch.Client
	config config.ElasticsearchConfig
}

// TransactionDocument is the audit shape stored per payment attempt.
type TransactionDocument struct {
	TransactionID int64     `json:"transaction_id"`
	BookingID     int64     `json:"booking_id"`
	UserID        string    `json:"user_id"`
	Amount        int64     `json:"amount"`
	SeatNumber    string    `json:"seat_number"`
	Status        string    `json:"status"`
	Reason        string    `json:"reason,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func NewElasticsearchClient(cfg config.ElasticsearchConfig) (*ElasticsearchClient, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:     []string{cfg.URL},
		Username:      cfg.Username,
		Password:      cfg.Password,
		RetryOnStatus: []int{502, 503, 504, 429},
		MaxRetries:    cfg.MaxRetries,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}

	client := &ElasticsearchClient{
		client: es,
		config: cfg,
	}

	if err := client.ensureIndex(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ensure index exists: %w", err)
	}

	return client, nil
}

func (c *ElasticsearchClient) ensureIndex(ctx context.Context) error {
	req := esapi.IndicesExistsRequest{
		Index: []string{c.config.Index},
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return fmt.Errorf("failed to check index existence: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == 200 {
		return nil
	}

	mapping := map[string]any{
		"mappings": map[string]any{
			"properties": map[string]any{
				"transaction_id": map[string]any{"type": "long"},
				"booking_id":     map[string]any{"type": "long"},
				"user_id":        map[string]any{"type": "keyword"},
				"amount":         map[string]any{"type": "long"},
				"seat_number":    map[string]any{"type": "keyword"},
				"status":         map[string]any{"type": "keyword"},
				"reason":         map[string]any{"type": "text"},
				"created_at":     map[string]any{"type": "date"},
			},
		},
	}

	body, err := json.Marshal(mapping)
	if err != nil {
		return fmt.Errorf("failed to marshal index mapping: %w", err)
	}

	createReq := esapi.IndicesCreateRequest{
		Index: c.config.Index,
		Body:  bytes.NewReader(body),
	}

	createRes, err := createReq.Do(ctx, c.client)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	defer createRes.Body.Close()

	if createRes.IsError() {
		return fmt.Errorf("index creation returned error: %s", createRes.String())
	}

	slog.Info("Created Elasticsearch index", "index", c.config.Index)
	return nil
}

// IndexTransaction stores one audit document, keyed by transaction id so
// redelivered events overwrite instead of duplicating.
func (c *ElasticsearchClient) IndexTransaction(ctx context.Context, doc TransactionDocument) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal transaction document: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      c.config.Index,
		DocumentID: strconv.FormatInt(doc.TransactionID, 10),
		Body:       bytes.NewReader(body),
		Refresh:    "false",
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return fmt.Errorf("failed to index transaction %d: %w", doc.TransactionID, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("indexing transaction %d returned error: %s", doc.TransactionID, res.String())
	}

	return nil
}

// SearchTransactions queries the audit index by user and/or status,
// newest first.
func (c *ElasticsearchClient) SearchTransactions(ctx context.Context, userID, status string, size int) ([]TransactionDocument, int, error) {
	if size <= 0 || size > 100 {
		size = 20
	}

	must := []map[string]any{}
	if userID != "" {
		must = append(must, map[string]any{
			"term": map[string]any{"user_id": userID},
		})
	}
	if status != "" {
		must = append(must, map[string]any{
			"term": map[string]any{"status": status},
		})
	}

	query := map[string]any{
		"query": map[string]any{
			"bool": map[string]any{"must": must},
		},
		"sort": []map[string]any{
			{"created_at": map[string]any{"order": "desc"}},
		},
		"size": size,
	}

	body, err := json.Marshal(query)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to marshal search query: %w", err)
	}

	req := esapi.SearchRequest{
		Index: []string{c.config.Index},
		Body:  bytes.NewReader(body),
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to search transactions: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, 0, fmt.Errorf("transaction search returned error: %s", res.String())
	}

	var parsed struct {
		Hits struct {
			Total struct {
				Value int `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source TransactionDocument `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}

	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, 0, fmt.Errorf("failed to decode search response: %w", err)
	}

	docs := make([]TransactionDocument, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		docs = append(docs, hit.Source)
	}

	return docs, parsed.Hits.Total.Value, nil
}
