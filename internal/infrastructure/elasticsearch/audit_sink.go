package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	es "github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/sirupsen/logrus"

	"github.com/exotic-fruits/auth-service/internal/domain/entity"
	"github.com/exotic-fruits/auth-service/internal/domain/repository"
)

const requestTimeout = 3 * time.Second

// AuditSink indexes audit entries so they outlive the in-process ring buffer.
type AuditSink struct {
	client *es.Client
	index  string
	logger *logrus.Logger
}

func NewAuditSink(client *es.Client, index string, logger *logrus.Logger) *AuditSink {
	return &AuditSink{client: client, index: index, logger: logger}
}

func (s *AuditSink) Write(ctx context.Context, e entity.AuditEntry) error {
	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode audit entry: %w", err)
	}
	req := esapi.IndexRequest{Index: s.index, Body: bytes.NewReader(b), Refresh: "false"}
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := req.Do(c, s.client)
	if err != nil {
		return fmt.Errorf("index audit entry: %w", err)
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return fmt.Errorf("index audit entry: %s", res.Status())
	}
	return nil
}

// Search returns the newest indexed entries, optionally narrowed to one action
// and one user.
func (s *AuditSink) Search(ctx context.Context, action, userID string, size int) ([]entity.AuditEntry, error) {
	if size <= 0 || size > 100 {
		size = 20
	}
	var filters []map[string]any
	if action != "" {
		filters = append(filters, map[string]any{"term": map[string]any{"action.keyword": action}})
	}
	if userID != "" {
		filters = append(filters, map[string]any{"term": map[string]any{"user_id.keyword": userID}})
	}
	query := map[string]any{
		"query": map[string]any{"bool": map[string]any{"filter": filters}},
		"sort":  []map[string]any{{"timestamp": map[string]any{"order": "desc"}}},
		"size":  size,
	}
	b, _ := json.Marshal(query)

	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := s.client.Search(
		s.client.Search.WithContext(c),
		s.client.Search.WithIndex(s.index),
		s.client.Search.WithBody(bytes.NewReader(b)),
	)
	if err != nil {
		return nil, fmt.Errorf("search audit: %w", err)
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		if s.logger != nil {
			s.logger.WithField("status", res.Status()).Warn("es audit search response error")
		}
		return nil, fmt.Errorf("search audit: %s", res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source entity.AuditEntry `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode audit search: %w", err)
	}
	out := make([]entity.AuditEntry, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, h.Source)
	}
	return out, nil
}

var _ repository.AuditSink = (*AuditSink)(nil)
