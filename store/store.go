// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

// Package store keeps the client side cache of message records. The ledger is
// authoritative; the cache is rebuilt wholesale on every reload.
package store

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/whisper"
	"github.com/luxfi/whisper/ledger"
	"go.uber.org/zap"
)

// TodayWindow is how far back a record counts towards Stats.Today.
const TodayWindow = 24 * time.Hour

// Source reads records from the ledger.
type Source interface {
	ListIDs(ctx context.Context) ([]string, error)
	GetRecord(ctx context.Context, id string) (*ledger.Record, error)
}

type Stats struct {
	Total    int `json:"total"`
	Verified int `json:"verified"`
	Today    int `json:"today"`
}

type snapshot struct {
	records  []*whisper.MessageRecord
	index    map[string]int
	digest   common.Hash
	loadedAt time.Time
}

var emptySnapshot = &snapshot{index: map[string]int{}}

// MessageStore publishes immutable snapshots. Readers never observe a
// partially rebuilt collection.
type MessageStore struct {
	logger  *zap.Logger
	metrics *Metrics
	source  Source

	current atomic.Pointer[snapshot]

	reloadLock sync.Mutex
	inflight   *reloadCall
}

// reloadCall is one running rebuild. err is set before done is closed.
type reloadCall struct {
	done chan struct{}
	err  error
}

// New creates an empty store. metrics may be nil.
func New(source Source, metrics *Metrics, logger *zap.Logger) *MessageStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &MessageStore{
		logger:  logger,
		metrics: metrics,
		source:  source,
	}
	s.current.Store(emptySnapshot)
	return s
}

// Reload rebuilds the collection from the ledger and swaps it in. Records
// that fail to load are skipped; only a failure to list ids fails the reload.
//
// Rebuilds never overlap. A caller only shares a rebuild that started after
// it called Reload, so every write confirmed before the call is visible once
// Reload returns. A rebuild already running when the caller arrives is
// waited out and followed by a fresh one.
func (s *MessageStore) Reload(ctx context.Context) error {
	s.reloadLock.Lock()
	if stale := s.inflight; stale != nil {
		s.reloadLock.Unlock()
		select {
		case <-stale.done:
		case <-ctx.Done():
			return ctx.Err()
		}
		s.reloadLock.Lock()
	}
	// Anything in flight now started after this call.
	if fresh := s.inflight; fresh != nil {
		s.reloadLock.Unlock()
		s.logger.Debug("Joined in-flight reload")
		return waitReload(ctx, fresh)
	}
	call := &reloadCall{done: make(chan struct{})}
	s.inflight = call
	s.reloadLock.Unlock()

	call.err = s.reload(ctx)

	s.reloadLock.Lock()
	s.inflight = nil
	s.reloadLock.Unlock()
	close(call.done)
	return call.err
}

func waitReload(ctx context.Context, call *reloadCall) error {
	select {
	case <-call.done:
		return call.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *MessageStore) reload(ctx context.Context) error {
	ids, err := s.source.ListIDs(ctx)
	if err != nil {
		s.logger.Error("Failed to list record ids", zap.Error(err))
		s.observeReload("failure")
		return err
	}

	prev := s.current.Load()
	next := &snapshot{
		records:  make([]*whisper.MessageRecord, 0, len(ids)),
		index:    make(map[string]int, len(ids)),
		loadedAt: time.Now(),
	}
	skipped := 0
	for _, id := range ids {
		raw, err := s.source.GetRecord(ctx, id)
		if err != nil {
			skipped++
			s.logger.Warn("Skipping record that failed to load",
				zap.String("id", id),
				zap.Error(err),
			)
			continue
		}
		rec := raw.MessageRecord()
		if _, dup := next.index[rec.ID]; dup {
			continue
		}
		// A stale read must not undo a verification already observed.
		if i, ok := prev.index[rec.ID]; ok && !rec.IsVerified() && prev.records[i].IsVerified() {
			rec.Decryption = prev.records[i].Decryption
		}
		next.index[rec.ID] = len(next.records)
		next.records = append(next.records, rec)
	}

	digest, err := whisper.Digest(next.records)
	if err != nil {
		s.observeReload("failure")
		return err
	}
	next.digest = digest
	s.current.Store(next)

	if s.metrics != nil {
		s.metrics.skippedRecordCount.Add(float64(skipped))
		s.metrics.recordCount.Set(float64(len(next.records)))
		s.metrics.verifiedRecordCount.Set(float64(countVerified(next.records)))
	}
	s.observeReload("success")
	s.logger.Info("Reloaded message store",
		zap.Int("records", len(next.records)),
		zap.Int("skipped", skipped),
		zap.Stringer("digest", digest),
	)
	return nil
}

func (s *MessageStore) observeReload(outcome string) {
	if s.metrics != nil {
		s.metrics.reloadCount.WithLabelValues(outcome).Inc()
	}
}

// Get returns a copy of the record with id.
func (s *MessageStore) Get(id string) (*whisper.MessageRecord, bool) {
	snap := s.current.Load()
	i, ok := snap.index[id]
	if !ok {
		return nil, false
	}
	rec := *snap.records[i]
	return &rec, true
}

// All returns a copy of every record in ledger order.
func (s *MessageStore) All() []*whisper.MessageRecord {
	return copyRecords(s.current.Load().records, nil)
}

// Filter returns the records whose content or sender contains term, ignoring
// case. An empty term returns every record in order.
func (s *MessageStore) Filter(term string) []*whisper.MessageRecord {
	records := s.current.Load().records
	if term == "" {
		return copyRecords(records, nil)
	}
	needle := strings.ToLower(term)
	return copyRecords(records, func(r *whisper.MessageRecord) bool {
		return strings.Contains(strings.ToLower(r.Content), needle) ||
			strings.Contains(strings.ToLower(r.Sender.Hex()), needle)
	})
}

// Stats summarizes the snapshot. Today counts records younger than
// TodayWindow relative to now.
func (s *MessageStore) Stats(now time.Time) Stats {
	records := s.current.Load().records
	window := int64(TodayWindow / time.Second)
	stats := Stats{Total: len(records)}
	for _, r := range records {
		if r.IsVerified() {
			stats.Verified++
		}
		if now.Unix()-int64(r.Timestamp) < window {
			stats.Today++
		}
	}
	return stats
}

// Digest fingerprints the current snapshot.
func (s *MessageStore) Digest() common.Hash {
	return s.current.Load().digest
}

// LoadedAt is when the current snapshot was built, zero before the first
// reload.
func (s *MessageStore) LoadedAt() time.Time {
	return s.current.Load().loadedAt
}

func copyRecords(records []*whisper.MessageRecord, keep func(*whisper.MessageRecord) bool) []*whisper.MessageRecord {
	out := make([]*whisper.MessageRecord, 0, len(records))
	for _, r := range records {
		if keep != nil && !keep(r) {
			continue
		}
		rec := *r
		out = append(out, &rec)
	}
	return out
}

func countVerified(records []*whisper.MessageRecord) int {
	n := 0
	for _, r := range records {
		if r.IsVerified() {
			n++
		}
	}
	return n
}
