package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"job-marketplace-backend/internal/domain"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

const versionType = "external_gte"

// jobsMapping keeps enum fields exact and the free-text fields analyzed.
const jobsMapping = `{
  "mappings": {
    "properties": {
      "id":               {"type": "keyword"},
      "employerId":       {"type": "keyword"},
      "title":            {"type": "text"},
      "description":      {"type": "text"},
      "responsibilities": {"type": "text"},
      "jobType":          {"type": "keyword"},
      "experienceLevel":  {"type": "keyword"},
      "minSalary":        {"type": "integer"},
      "maxSalary":        {"type": "integer"},
      "requiredSkills":   {"type": "text", "fields": {"raw": {"type": "keyword"}}},
      "status":           {"type": "keyword"},
      "createdAt":        {"type": "date"},
      "updatedAt":        {"type": "date"}
    }
  }
}`

// maxResultWindow is the Elasticsearch default for index.max_result_window.
const maxResultWindow = 10000

type searchIndex struct {
	es       *elasticsearch.Client
	index    string
	pageSize int
}

// NewSearchIndex returns a domain.SearchIndex backed by one Elasticsearch
// index. pageSize is how many ids IDs fetches per request.
func NewSearchIndex(es *elasticsearch.Client, index string, pageSize int) domain.SearchIndex {
	if pageSize < 1 {
		pageSize = 1000
	}
	if pageSize > maxResultWindow {
		pageSize = maxResultWindow
	}
	return &searchIndex{es: es, index: index, pageSize: pageSize}
}

// NewClient builds an Elasticsearch client for the given node URL.
func NewClient(url string) (*elasticsearch.Client, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{url},
	})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}
	return es, nil
}

// EnsureIndex creates the index with its mapping when it does not exist yet.
func EnsureIndex(ctx context.Context, es *elasticsearch.Client, index string) error {
	res, err := es.Indices.Exists([]string{index}, es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrIndexUnavailable, err)
	}
	drain(res)
	if res.StatusCode == http.StatusOK {
		return nil
	}

	res, err = es.Indices.Create(index,
		es.Indices.Create.WithContext(ctx),
		es.Indices.Create.WithBody(bytes.NewReader([]byte(jobsMapping))),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrIndexUnavailable, err)
	}
	defer drain(res)
	// Another instance may have won the race.
	if res.IsError() && res.StatusCode != http.StatusBadRequest {
		return responseError("create index", res)
	}
	return nil
}

// HealthCheck pings the cluster.
func HealthCheck(es *elasticsearch.Client) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		res, err := es.Ping(es.Ping.WithContext(ctx))
		if err != nil {
			return err
		}
		defer drain(res)
		if res.IsError() {
			return fmt.Errorf("elasticsearch ping: %s", res.Status())
		}
		return nil
	}
}

func (s *searchIndex) Upsert(ctx context.Context, doc domain.SearchDocument, version int64) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document %s: %w", doc.ID, err)
	}

	res, err := s.es.Index(s.index, bytes.NewReader(body),
		s.es.Index.WithContext(ctx),
		s.es.Index.WithDocumentID(doc.ID),
		s.es.Index.WithVersion(int(version)),
		s.es.Index.WithVersionType(versionType),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrIndexUnavailable, err)
	}
	defer drain(res)

	switch {
	case res.StatusCode == http.StatusConflict:
		return domain.ErrStaleDocument
	case res.IsError():
		return responseError("upsert "+doc.ID, res)
	}
	return nil
}

func (s *searchIndex) Delete(ctx context.Context, id string, version int64) error {
	res, err := s.es.Delete(s.index, id,
		s.es.Delete.WithContext(ctx),
		s.es.Delete.WithVersion(int(version)),
		s.es.Delete.WithVersionType(versionType),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrIndexUnavailable, err)
	}
	defer drain(res)

	switch {
	case res.StatusCode == http.StatusNotFound:
		return nil
	case res.StatusCode == http.StatusConflict:
		return domain.ErrStaleDocument
	case res.IsError():
		return responseError("delete "+id, res)
	}
	return nil
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			ID     string                `json:"_id"`
			Source domain.SearchDocument `json:"_source"`
			Sort   []any                 `json:"sort"`
		} `json:"hits"`
	} `json:"hits"`
}

func (s *searchIndex) Search(ctx context.Context, text string, fields []string, limit int) ([]domain.SearchDocument, error) {
	query := map[string]any{
		"size": limit,
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  text,
				"fields": fields,
			},
		},
	}
	var parsed searchResponse
	if err := s.search(ctx, query, &parsed); err != nil {
		return nil, err
	}

	docs := make([]domain.SearchDocument, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		doc := hit.Source
		if doc.ID == "" {
			doc.ID = hit.ID
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// IDs walks the whole index in id order, one page per request, resuming
// each page after the last sort value of the previous one.
func (s *searchIndex) IDs(ctx context.Context) ([]string, error) {
	var ids []string
	var after []any
	for {
		query := map[string]any{
			"size":             s.pageSize,
			"_source":          false,
			"track_total_hits": false,
			"query":            map[string]any{"match_all": map[string]any{}},
			"sort":             []any{map[string]any{"id": "asc"}},
		}
		if after != nil {
			query["search_after"] = after
		}
		var parsed searchResponse
		if err := s.search(ctx, query, &parsed); err != nil {
			return nil, err
		}

		hits := parsed.Hits.Hits
		for _, hit := range hits {
			ids = append(ids, hit.ID)
		}
		if len(hits) < s.pageSize {
			return ids, nil
		}
		after = hits[len(hits)-1].Sort
		if len(after) == 0 {
			return nil, fmt.Errorf("%w: search page without sort values", domain.ErrIndexUnavailable)
		}
	}
}

func (s *searchIndex) search(ctx context.Context, query map[string]any, out any) error {
	body, err := json.Marshal(query)
	if err != nil {
		return err
	}
	res, err := s.es.Search(
		s.es.Search.WithContext(ctx),
		s.es.Search.WithIndex(s.index),
		s.es.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrIndexUnavailable, err)
	}
	defer drain(res)

	if res.IsError() {
		return responseError("search", res)
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decode search response: %w", err)
	}
	return nil
}

func responseError(op string, res *esapi.Response) error {
	msg, _ := io.ReadAll(io.LimitReader(res.Body, 512))
	return fmt.Errorf("%w: %s: status %d: %s", domain.ErrIndexUnavailable, op, res.StatusCode, bytes.TrimSpace(msg))
}

func drain(res *esapi.Response) {
	if res != nil && res.Body != nil {
		_, _ = io.Copy(io.Discard, res.Body)
		_ = res.Body.Close()
	}
}
