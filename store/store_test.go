// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package store

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/whisper"
	"github.com/luxfi/whisper/ledger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var (
	alice = common.HexToAddress("0x00000000000000000000000000000000000A11CE")
	bob   = common.HexToAddress("0x0000000000000000000000000000000000000B0B")
)

type fakeSource struct {
	lock     sync.Mutex
	ids      []string
	records  map[string]*ledger.Record
	failIDs  map[string]bool
	listErr  error
	gate     chan struct{}
	listings atomic.Int32
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		records: make(map[string]*ledger.Record),
		failIDs: make(map[string]bool),
	}
}

func (f *fakeSource) add(id, content string, sender common.Address, ts int64, verified bool, value uint32) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.ids = append(f.ids, id)
	f.records[id] = &ledger.Record{
		ID:             id,
		Name:           whisper.MessageLabel,
		PublicValue1:   big.NewInt(int64(len(content))),
		PublicValue2:   big.NewInt(0),
		Description:    content,
		Creator:        sender,
		Timestamp:      big.NewInt(ts),
		IsVerified:     verified,
		DecryptedValue: value,
	}
}

// ListIDs reads the ids on entry. With a gate set, each listing then blocks
// until the test sends one token.
func (f *fakeSource) ListIDs(context.Context) ([]string, error) {
	f.lock.Lock()
	ids := append([]string(nil), f.ids...)
	err := f.listErr
	f.lock.Unlock()

	f.listings.Add(1)
	if f.gate != nil {
		<-f.gate
	}
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (f *fakeSource) GetRecord(_ context.Context, id string) (*ledger.Record, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.failIDs[id] {
		return nil, errors.New("record fetch failed")
	}
	rec := *f.records[id]
	return &rec, nil
}

func TestReloadAndRead(t *testing.T) {
	require := require.New(t)
	src := newFakeSource()
	now := time.Now().Unix()
	src.add("msg-2", "Hello World", alice, now, false, 0)
	src.add("msg-1", "hey bob", bob, now-2*86400, true, 7)

	s := New(src, nil, zaptest.NewLogger(t))
	require.Empty(s.All())
	require.True(s.LoadedAt().IsZero())

	require.NoError(s.Reload(context.Background()))
	all := s.All()
	require.Len(all, 2)
	require.Equal("msg-2", all[0].ID)
	require.Equal("msg-1", all[1].ID)
	require.Equal(uint64(11), all[0].EncryptedValue)
	require.False(s.LoadedAt().IsZero())

	rec, ok := s.Get("msg-1")
	require.True(ok)
	require.Equal(whisper.Verified(7), rec.Decryption)

	// Returned records are copies
	rec.Content = "mutated"
	again, _ := s.Get("msg-1")
	require.Equal("hey bob", again.Content)

	_, ok = s.Get("msg-404")
	require.False(ok)
}

func TestFilter(t *testing.T) {
	src := newFakeSource()
	src.add("msg-1", "Hello World", alice, 1, false, 0)
	src.add("msg-2", "hey bob", bob, 2, false, 0)
	src.add("msg-3", "HELLO again", bob, 3, false, 0)

	s := New(src, nil, zaptest.NewLogger(t))
	require.NoError(t, s.Reload(context.Background()))

	tests := []struct {
		name     string
		term     string
		expected []string
	}{
		{name: "empty term keeps order", term: "", expected: []string{"msg-1", "msg-2", "msg-3"}},
		{name: "case insensitive content", term: "hello", expected: []string{"msg-1", "msg-3"}},
		{name: "sender substring", term: "a11ce", expected: []string{"msg-1"}},
		{name: "sender prefix", term: "0x0000000000000000000000000000000000000b0b", expected: []string{"msg-2", "msg-3"}},
		{name: "no match", term: "zzz", expected: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Filter(tt.term)
			ids := make([]string, 0, len(got))
			for _, r := range got {
				ids = append(ids, r.ID)
			}
			require.Equal(t, tt.expected, ids)
		})
	}
}

func TestReloadSkipsFailedRecords(t *testing.T) {
	require := require.New(t)
	src := newFakeSource()
	src.add("msg-1", "a", alice, 1, false, 0)
	src.add("msg-2", "b", alice, 2, false, 0)
	src.add("msg-3", "c", alice, 3, false, 0)
	src.failIDs["msg-2"] = true

	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)
	s := New(src, metrics, zaptest.NewLogger(t))

	require.NoError(s.Reload(context.Background()))
	all := s.All()
	require.Len(all, 2)
	require.Equal("msg-1", all[0].ID)
	require.Equal("msg-3", all[1].ID)

	require.Equal(1.0, testutil.ToFloat64(metrics.skippedRecordCount))
	require.Equal(2.0, testutil.ToFloat64(metrics.recordCount))
	require.Equal(1.0, testutil.ToFloat64(metrics.reloadCount.WithLabelValues("success")))
}

func TestReloadListFailureKeepsSnapshot(t *testing.T) {
	require := require.New(t)
	src := newFakeSource()
	src.add("msg-1", "a", alice, 1, false, 0)

	metrics := NewMetrics(prometheus.NewRegistry())
	s := New(src, metrics, zaptest.NewLogger(t))
	require.NoError(s.Reload(context.Background()))
	digest := s.Digest()

	errList := errors.New("rpc down")
	src.listErr = errList
	require.ErrorIs(s.Reload(context.Background()), errList)
	require.Len(s.All(), 1)
	require.Equal(digest, s.Digest())
	require.Equal(1.0, testutil.ToFloat64(metrics.reloadCount.WithLabelValues("failure")))
}

func TestReloadNeverDowngradesVerification(t *testing.T) {
	require := require.New(t)
	src := newFakeSource()
	src.add("msg-1", "hello", alice, 1, true, 5)

	s := New(src, nil, zaptest.NewLogger(t))
	require.NoError(s.Reload(context.Background()))

	// A lagging node serves the pre-verification state
	src.records["msg-1"].IsVerified = false
	src.records["msg-1"].DecryptedValue = 0
	require.NoError(s.Reload(context.Background()))

	rec, ok := s.Get("msg-1")
	require.True(ok)
	require.Equal(whisper.Verified(5), rec.Decryption)
}

func TestReloadCoalesces(t *testing.T) {
	require := require.New(t)
	src := newFakeSource()
	src.add("msg-1", "a", alice, 1, false, 0)
	src.gate = make(chan struct{})

	s := New(src, nil, zaptest.NewLogger(t))

	first := make(chan error, 1)
	go func() { first <- s.Reload(context.Background()) }()
	require.Eventually(func() bool { return src.listings.Load() == 1 }, time.Second, time.Millisecond)

	// Callers arriving during the first rebuild wait for it, then share a
	// single fresh one.
	const callers = 4
	errs := make(chan error, callers)
	var wg sync.WaitGroup
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func() {
			defer wg.Done()
			errs <- s.Reload(context.Background())
		}()
	}
	time.Sleep(20 * time.Millisecond)
	src.gate <- struct{}{}
	require.NoError(<-first)

	require.Eventually(func() bool { return src.listings.Load() == 2 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	src.gate <- struct{}{}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(err)
	}

	require.Equal(int32(2), src.listings.Load())
	require.Len(s.All(), 1)
}

func TestReloadAfterWriteSeesWrite(t *testing.T) {
	require := require.New(t)
	src := newFakeSource()
	src.add("msg-old", "a", alice, 1, false, 0)
	src.gate = make(chan struct{})

	s := New(src, nil, zaptest.NewLogger(t))

	// A reload lists ids before the write is confirmed.
	early := make(chan error, 1)
	go func() { early <- s.Reload(context.Background()) }()
	require.Eventually(func() bool { return src.listings.Load() == 1 }, time.Second, time.Millisecond)

	src.add("msg-new", "b", alice, 2, false, 0)
	late := make(chan error, 1)
	go func() { late <- s.Reload(context.Background()) }()
	time.Sleep(20 * time.Millisecond)

	src.gate <- struct{}{}
	require.NoError(<-early)

	require.Eventually(func() bool { return src.listings.Load() == 2 }, time.Second, time.Millisecond)
	src.gate <- struct{}{}
	require.NoError(<-late)

	_, ok := s.Get("msg-new")
	require.True(ok)
	require.Len(s.All(), 2)
}

func TestReloadWaitHonorsContext(t *testing.T) {
	require := require.New(t)
	src := newFakeSource()
	src.gate = make(chan struct{})

	s := New(src, nil, zaptest.NewLogger(t))

	running := make(chan error, 1)
	go func() { running <- s.Reload(context.Background()) }()
	require.Eventually(func() bool { return src.listings.Load() == 1 }, time.Second, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(s.Reload(ctx), context.Canceled)

	src.gate <- struct{}{}
	require.NoError(<-running)
	require.Equal(int32(1), src.listings.Load())
}

func TestStats(t *testing.T) {
	require := require.New(t)
	now := time.Unix(1_700_000_000, 0)
	src := newFakeSource()
	src.add("msg-1", "a", alice, now.Unix()-60, true, 1)
	src.add("msg-2", "b", alice, now.Unix()-86399, false, 0)
	src.add("msg-3", "c", alice, now.Unix()-86400, true, 1)
	src.add("msg-4", "d", alice, now.Unix()-3*86400, false, 0)

	s := New(src, nil, zaptest.NewLogger(t))
	require.NoError(s.Reload(context.Background()))

	require.Equal(Stats{Total: 4, Verified: 2, Today: 2}, s.Stats(now))
}

func TestDigestTracksContent(t *testing.T) {
	require := require.New(t)
	src := newFakeSource()
	src.add("msg-1", "a", alice, 1, false, 0)

	s := New(src, nil, zaptest.NewLogger(t))
	require.NoError(s.Reload(context.Background()))
	first := s.Digest()
	require.NotEqual(common.Hash{}, first)

	require.NoError(s.Reload(context.Background()))
	require.Equal(first, s.Digest())

	src.add("msg-2", "b", bob, 2, false, 0)
	require.NoError(s.Reload(context.Background()))
	require.NotEqual(first, s.Digest())
}
