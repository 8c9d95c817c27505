package gcs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"time"

	"cloud.google.com/go/storage"

	"github.com/exotic-fruits/auth-service/internal/domain/entity"
	"github.com/exotic-fruits/auth-service/pkg/helpers"
)

var ErrNotConfigured = errors.New("gcs not configured")

// AuditArchiver uploads point-in-time snapshots of the audit log.
type AuditArchiver struct {
	client *storage.Client
	bucket string
	prefix string
	now    func() time.Time
}

func NewAuditArchiver(client *storage.Client, bucket string) *AuditArchiver {
	return &AuditArchiver{client: client, bucket: bucket, prefix: "audit", now: time.Now}
}

type snapshot struct {
	GeneratedAt time.Time           `json:"generated_at"`
	Count       int                 `json:"count"`
	Entries     []entity.AuditEntry `json:"entries"`
}

// ObjectPath names the snapshot taken at t, e.g. audit/2025/03/01/20250301T090000Z.json.
func (a *AuditArchiver) ObjectPath(t time.Time) string {
	t = t.UTC()
	return path.Join(a.prefix, t.Format("2006/01/02"), t.Format("20060102T150405Z")+".json")
}

// Archive writes entries as one JSON document and returns its gs:// URI.
func (a *AuditArchiver) Archive(ctx context.Context, entries []entity.AuditEntry) (string, error) {
	if a == nil || a.client == nil || a.bucket == "" {
		return "", ErrNotConfigured
	}
	now := a.now()
	b, err := encodeSnapshot(now, entries)
	if err != nil {
		return "", err
	}
	uri, err := helpers.UploadObject(ctx, a.client, a.bucket, a.ObjectPath(now), "application/json", bytes.NewReader(b))
	if err != nil {
		return "", fmt.Errorf("upload audit snapshot: %w", err)
	}
	return uri, nil
}

func encodeSnapshot(at time.Time, entries []entity.AuditEntry) ([]byte, error) {
	if entries == nil {
		entries = []entity.AuditEntry{}
	}
	b, err := json.Marshal(snapshot{GeneratedAt: at.UTC(), Count: len(entries), Entries: entries})
	if err != nil {
		return nil, fmt.Errorf("encode audit snapshot: %w", err)
	}
	return b, nil
}
