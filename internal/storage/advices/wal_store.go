// Package advices journals every advisor response in a write-ahead log
// so decisions can be replayed or audited after a restart.
package advices

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/gowal"

	"upbot/internal/domain"
)

const (
	defaultAdviceDir   = "./wal/advices"
	adviceSegmentLimit = 100
	adviceMaxSegments  = 10
	adviceKeyPrefix    = "advice_"
)

// WALStore persists advice events in a WAL. Every advisor response is
// journaled, including those the validator later degraded to hold.
type WALStore struct {
	wal *gowal.Wal
	mu  sync.RWMutex
}

// NewWALStore initializes a WAL-backed advice journal under dir.
func NewWALStore(dir string) (*WALStore, error) {
	if dir == "" {
		dir = defaultAdviceDir
	}

	cfg := gowal.Config{
		Dir:              dir,
		Prefix:           "advice_",
		SegmentThreshold: adviceSegmentLimit,
		MaxSegments:      adviceMaxSegments,
		IsInSyncDiskMode: true,
	}

	wal, err := gowal.NewWAL(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "init advice WAL")
	}

	return &WALStore{wal: wal}, nil
}

// Save appends the advice event. Callers must set event.Market.
func (s *WALStore) Save(event domain.AdviceEvent) error {
	if s == nil || s.wal == nil {
		return errors.New("advice store is not initialized")
	}
	if event.Market == "" {
		return errors.New("advice event market is required")
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "marshal advice event")
	}

	key := fmt.Sprintf("%s%s", adviceKeyPrefix, event.Market)

	s.mu.Lock()
	defer s.mu.Unlock()

	nextIndex := s.wal.CurrentIndex() + 1
	return s.wal.Write(nextIndex, key, payload)
}

// EventsAfter returns all advice events written after the given index.
func (s *WALStore) EventsAfter(index uint64) ([]domain.AdviceEventRecord, error) {
	if s == nil || s.wal == nil {
		return nil, errors.New("advice store is not initialized")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	current := s.wal.CurrentIndex()
	if current <= index {
		return nil, nil
	}

	records := make([]domain.AdviceEventRecord, 0, current-index)
	for idx := index + 1; idx <= current; idx++ {
		key, payload, err := s.wal.Get(idx)
		if err != nil || !strings.HasPrefix(key, adviceKeyPrefix) {
			continue
		}
		var event domain.AdviceEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			return nil, errors.Wrap(err, "decode advice event")
		}
		records = append(records, domain.AdviceEventRecord{
			Index: idx,
			Event: event,
		})
	}

	return records, nil
}

// CurrentIndex returns the latest WAL index stored.
func (s *WALStore) CurrentIndex() uint64 {
	if s == nil || s.wal == nil {
		return 0
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.wal.CurrentIndex()
}

// Close closes the underlying WAL.
func (s *WALStore) Close() error {
	if s == nil || s.wal == nil {
		return errors.New("advice store is not initialized")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.wal.Close()
}
