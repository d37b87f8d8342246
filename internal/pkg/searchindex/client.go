package searchindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/shafiq-apps/afs-staging-sub006/internal/pkg/env"
)

// Client wraps the Elasticsearch client with the handful of operations
// the indexing pipeline needs. All methods translate 404 responses into
// the idempotent outcome callers expect (false / no-op) instead of errors.
type Client struct {
	es *elasticsearch.Client
}

// New creates a search index client from explicit configuration.
func New(addresses []string, username, password string) (*Client, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: addresses,
		Username:  username,
		Password:  password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}
	return &Client{es: es}, nil
}

// NewFromEnv creates a client from ELASTICSEARCH_* environment variables.
func NewFromEnv() (*Client, error) {
	addr := env.GetEnv("ELASTICSEARCH_URL", "http://localhost:9200")
	return New(
		strings.Split(addr, ","),
		env.GetEnv("ELASTICSEARCH_USER", ""),
		env.GetEnv("ELASTICSEARCH_PASSWORD", ""),
	)
}

// Ping reports whether the cluster is reachable.
func (c *Client) Ping(ctx context.Context) error {
	res, err := c.es.Ping(c.es.Ping.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("elasticsearch ping: %s", res.Status())
	}
	return nil
}

// IndexExists checks for the index by name.
func (c *Client) IndexExists(ctx context.Context, index string) (bool, error) {
	res, err := c.es.Indices.Exists([]string{index}, c.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return false, err
	}
	defer res.Body.Close()
	if res.StatusCode == 404 {
		return false, nil
	}
	if res.IsError() {
		return false, fmt.Errorf("indices.exists %s: %s", index, res.Status())
	}
	return true, nil
}

// EnsureIndex creates the index with the given mapping when it does not
// exist yet. Racing creates are tolerated.
func (c *Client) EnsureIndex(ctx context.Context, index, mapping string) error {
	exists, err := c.IndexExists(ctx, index)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	res, err := c.es.Indices.Create(
		index,
		c.es.Indices.Create.WithContext(ctx),
		c.es.Indices.Create.WithBody(strings.NewReader(mapping)),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		body := readBody(res)
		if strings.Contains(body, "resource_already_exists_exception") {
			return nil
		}
		return fmt.Errorf("indices.create %s: %s", index, body)
	}
	return nil
}

// DeleteIndex removes the index; a missing index is success.
func (c *Client) DeleteIndex(ctx context.Context, index string) error {
	res, err := c.es.Indices.Delete([]string{index}, c.es.Indices.Delete.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode == 404 {
		return nil
	}
	if res.IsError() {
		return fmt.Errorf("indices.delete %s: %s", index, res.Status())
	}
	return nil
}

// IndexDocument upserts one document. refresh=true makes the write
// immediately visible to searches.
func (c *Client) IndexDocument(ctx context.Context, index, id string, doc interface{}, refresh bool) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document %s: %w", id, err)
	}
	opts := []func(*esapi.IndexRequest){
		c.es.Index.WithContext(ctx),
		c.es.Index.WithDocumentID(id),
	}
	if refresh {
		opts = append(opts, c.es.Index.WithRefresh("true"))
	}
	res, err := c.es.Index(index, bytes.NewReader(body), opts...)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("index %s/%s: %s", index, id, readBody(res))
	}
	return nil
}

// UpdateDocument applies a partial document update.
func (c *Client) UpdateDocument(ctx context.Context, index, id string, partial interface{}) error {
	body, err := json.Marshal(map[string]interface{}{"doc": partial})
	if err != nil {
		return err
	}
	res, err := c.es.Update(index, id, bytes.NewReader(body), c.es.Update.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("update %s/%s: %s", index, id, readBody(res))
	}
	return nil
}

// DeleteDocument removes one document; a missing document is success.
func (c *Client) DeleteDocument(ctx context.Context, index, id string) error {
	res, err := c.es.Delete(
		index, id,
		c.es.Delete.WithContext(ctx),
		c.es.Delete.WithRefresh("true"),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode == 404 {
		return nil
	}
	if res.IsError() {
		return fmt.Errorf("delete %s/%s: %s", index, id, res.Status())
	}
	return nil
}

// Hit is one search result document.
type Hit struct {
	ID     string
	Source json.RawMessage
	Sort   []interface{}
}

// SearchResult carries hits plus the total match count.
type SearchResult struct {
	Total int64
	Hits  []Hit
}

// Search runs a raw query against the index. A missing index yields an
// empty result, not an error.
func (c *Client) Search(ctx context.Context, index string, query map[string]interface{}) (*SearchResult, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}
	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(index),
		c.es.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode == 404 {
		return &SearchResult{}, nil
	}
	if res.IsError() {
		return nil, fmt.Errorf("search %s: %s", index, readBody(res))
	}

	var parsed struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				ID     string          `json:"_id"`
				Source json.RawMessage `json:"_source"`
				Sort   []interface{}   `json:"sort"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	result := &SearchResult{Total: parsed.Hits.Total.Value}
	for _, h := range parsed.Hits.Hits {
		result.Hits = append(result.Hits, Hit{ID: h.ID, Source: h.Source, Sort: h.Sort})
	}
	return result, nil
}

// DeleteByQuery removes all documents matching the query and returns the
// deleted count. A missing index is a zero-count success.
func (c *Client) DeleteByQuery(ctx context.Context, index string, query map[string]interface{}) (int64, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return 0, err
	}
	res, err := c.es.DeleteByQuery(
		[]string{index},
		bytes.NewReader(body),
		c.es.DeleteByQuery.WithContext(ctx),
		c.es.DeleteByQuery.WithRefresh(true),
	)
	if err != nil {
		return 0, err
	}
	defer res.Body.Close()
	if res.StatusCode == 404 {
		return 0, nil
	}
	if res.IsError() {
		return 0, fmt.Errorf("delete_by_query %s: %s", index, readBody(res))
	}

	var parsed struct {
		Deleted int64 `json:"deleted"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return 0, err
	}
	return parsed.Deleted, nil
}

// MappingFields returns the set of top-level field names in the index
// mapping. Documents are filtered against this set before indexing so
// unexpected upstream fields cannot explode the mapping.
func (c *Client) MappingFields(ctx context.Context, index string) (map[string]bool, error) {
	res, err := c.es.Indices.GetMapping(
		c.es.Indices.GetMapping.WithContext(ctx),
		c.es.Indices.GetMapping.WithIndex(index),
	)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("indices.get_mapping %s: %s", index, res.Status())
	}

	var parsed map[string]struct {
		Mappings struct {
			Properties map[string]json.RawMessage `json:"properties"`
		} `json:"mappings"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode mapping response: %w", err)
	}

	fields := make(map[string]bool)
	for _, idx := range parsed {
		for name := range idx.Mappings.Properties {
			fields[name] = true
		}
	}
	return fields, nil
}

func readBody(res *esapi.Response) string {
	b, err := io.ReadAll(res.Body)
	if err != nil {
		return res.Status()
	}
	return string(b)
}
