package poller

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"

	elasticsearch "github.com/elastic/go-elasticsearch/v8"
)

// SearchResult is the slice of a search response the poller cares about:
// the total hit count and the raw _source of each returned document.
type SearchResult struct {
	Total   int64
	Sources []json.RawMessage
}

// Searcher abstracts the search backend so the poll loop can be tested
// without a live cluster.
type Searcher interface {
	Search(ctx context.Context, body map[string]interface{}) (*SearchResult, error)
}

// ESClient queries a single index on an Elasticsearch/OpenSearch-compatible
// backend.
type ESClient struct {
	es    *elasticsearch.Client
	index string
}

// ESConfig holds the connection settings for the search backend.
type ESConfig struct {
	URL         string
	Index       string
	Username    string
	Password    string
	VerifyCerts bool
}

// NewESClient connects to the search backend. It does not probe the
// connection; the first query surfaces any reachability error.
func NewESClient(cfg ESConfig) (*ESClient, error) {
	esCfg := elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
	}
	if !cfg.VerifyCerts {
		esCfg.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}
	es, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("create search client: %w", err)
	}
	return &ESClient{es: es, index: cfg.Index}, nil
}

// Search runs one query against the configured index.
func (c *ESClient) Search(ctx context.Context, body map[string]interface{}) (*SearchResult, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal query: %w", err)
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(c.index),
		c.es.Search.WithBody(bytes.NewReader(payload)),
	)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("search failed: %s", res.Status())
	}

	var parsed struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source json.RawMessage `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	result := &SearchResult{Total: parsed.Hits.Total.Value}
	for _, hit := range parsed.Hits.Hits {
		result.Sources = append(result.Sources, hit.Source)
	}
	return result, nil
}

// Ping checks backend reachability, used by startup gating only.
func (c *ESClient) Ping(ctx context.Context) error {
	res, err := c.es.Info(c.es.Info.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("info failed: %s", res.Status())
	}
	return nil
}
