// Package storage persists match events as durable snapshots, one JSON
// object per event, on Google Cloud Storage or the local filesystem.
// The in-memory store remains the source of truth; snapshots exist so a
// restart does not re-notify matches that were already reported.
package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/codeGROOVE-dev/retry"
	"google.golang.org/api/iterator"

	"neighborhood-monitor/pkg/backoff"
	"neighborhood-monitor/pkg/monitor"
)

// Store handles match event persistence.
type Store struct {
	client    *storage.Client
	logger    *slog.Logger
	localPath string
	bucket    string
}

// New creates a snapshot store. Either a GCS client+bucket or a local
// path must be provided; localPath wins when both are set.
func New(client *storage.Client, bucket, localPath string, logger *slog.Logger) *Store {
	return &Store{
		client:    client,
		logger:    logger,
		localPath: localPath,
		bucket:    bucket,
	}
}

// eventKey derives a stable object name from a vendor post ID. Post IDs
// are opaque vendor strings, so they are hashed rather than embedded in
// the name, which keeps keys filesystem-safe regardless of content.
func eventKey(postID string) string {
	sum := sha256.Sum256([]byte(postID))
	return fmt.Sprintf("match-%s.json", hex.EncodeToString(sum[:]))
}

// Save persists one match event. Saving the same event twice overwrites
// the same object, so retried deliveries are harmless.
func (s *Store) Save(ctx context.Context, ev *monitor.MatchEvent) error {
	if ev == nil || ev.PostID == "" {
		return errors.New("event has no post id")
	}
	key := eventKey(ev.PostID)
	s.logger.Debug("Saving match snapshot", "key", key, "post_id", ev.PostID)

	data, err := json.MarshalIndent(ev, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	// Local filesystem storage
	if s.localPath != "" {
		filePath := filepath.Join(s.localPath, key)
		if err := os.WriteFile(filePath, data, 0o600); err != nil {
			return fmt.Errorf("write to local storage: %w", err)
		}
		s.logger.Info("Match snapshot saved to local storage", "path", filePath, "post_id", ev.PostID)
		return nil
	}

	// Cloud Storage with retry logic for reliability
	err = retry.Do(
		func() error {
			w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
			if _, writeErr := w.Write(data); writeErr != nil {
				if closeErr := w.Close(); closeErr != nil {
					s.logger.Warn("Failed to close writer after error", "error", closeErr)
				}
				return fmt.Errorf("write to storage: %w", writeErr)
			}
			if closeErr := w.Close(); closeErr != nil {
				return fmt.Errorf("close storage writer: %w", closeErr)
			}
			return nil
		},
		backoff.Options(ctx, s.logger, "snapshot save")...,
	)
	if err != nil {
		return fmt.Errorf("save after retries: %w", err)
	}

	s.logger.Info("Match snapshot saved", "key", key, "post_id", ev.PostID)
	return nil
}

// Notify persists a newly recorded event, so the snapshot store can sit
// in the notifier fanout alongside the push channel.
func (s *Store) Notify(ctx context.Context, ev *monitor.MatchEvent) error {
	return s.Save(ctx, ev)
}

// LoadAll returns every persisted match event, for re-seeding the
// in-memory store at startup. Unreadable objects are skipped with a
// warning rather than failing the whole restore.
func (s *Store) LoadAll(ctx context.Context) ([]*monitor.MatchEvent, error) {
	var events []*monitor.MatchEvent

	// Local filesystem storage
	if s.localPath != "" {
		entries, err := os.ReadDir(s.localPath)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, nil
			}
			return nil, fmt.Errorf("read local storage directory: %w", err)
		}

		for _, entry := range entries {
			if entry.IsDir() || !strings.HasPrefix(entry.Name(), "match-") || !strings.HasSuffix(entry.Name(), ".json") {
				continue
			}
			ev, err := s.load(ctx, entry.Name())
			if err != nil {
				s.logger.Warn("Failed to load match snapshot", "file", entry.Name(), "error", err)
				continue
			}
			events = append(events, ev)
		}
		return events, nil
	}

	// Cloud Storage
	it := s.client.Bucket(s.bucket).Objects(ctx, &storage.Query{
		Prefix: "match-",
	})

	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterate storage: %w", err)
		}

		ev, err := s.load(ctx, attrs.Name)
		if err != nil {
			s.logger.Warn("Failed to load match snapshot", "key", attrs.Name, "error", err)
			continue
		}
		events = append(events, ev)
	}

	return events, nil
}

func (s *Store) load(ctx context.Context, key string) (*monitor.MatchEvent, error) {
	var data []byte

	if s.localPath != "" {
		var err error
		data, err = os.ReadFile(filepath.Join(s.localPath, key))
		if err != nil {
			return nil, fmt.Errorf("read from local storage: %w", err)
		}
	} else {
		var readData []byte
		err := retry.Do(
			func() error {
				r, openErr := s.client.Bucket(s.bucket).Object(key).NewReader(ctx)
				if openErr != nil {
					// Objects that vanished between listing and reading are not retryable.
					if errors.Is(openErr, storage.ErrObjectNotExist) {
						return retry.Unrecoverable(fmt.Errorf("open storage reader: %w", openErr))
					}
					return fmt.Errorf("open storage reader: %w", openErr)
				}
				defer func() {
					if closeErr := r.Close(); closeErr != nil {
						s.logger.Warn("Failed to close storage reader", "error", closeErr)
					}
				}()

				var readErr error
				readData, readErr = io.ReadAll(r)
				if readErr != nil {
					return fmt.Errorf("read from storage: %w", readErr)
				}
				return nil
			},
			backoff.Options(ctx, s.logger, "snapshot load")...,
		)
		if err != nil {
			return nil, fmt.Errorf("load after retries: %w", err)
		}
		data = readData
	}

	var ev monitor.MatchEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("unmarshal event: %w", err)
	}
	if ev.PostID == "" {
		return nil, errors.New("snapshot has no post id")
	}

	return &ev, nil
}
