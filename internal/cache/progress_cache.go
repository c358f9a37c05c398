package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"quizprogress/internal/model"
	"strconv"
	"strings"
)

// ProgressKeyPrefix prefixes every in-progress attempt key
const ProgressKeyPrefix = "quiz_in_progress_"

// ErrCorruptRecord is returned when a cached attempt record cannot be used
var ErrCorruptRecord = errors.New("cache: corrupt attempt record")

// ProgressCache stores at most one in-progress attempt record per quiz
type ProgressCache interface {
	// Get returns nil, nil when no record exists
	Get(ctx context.Context, quizID int64) (*model.AttemptRecord, error)
	Put(ctx context.Context, record *model.AttemptRecord) error
	Delete(ctx context.Context, quizID int64) error
	// List returns every usable record; corrupt entries are removed
	List(ctx context.Context) ([]*model.AttemptRecord, error)
}

type progressCache struct {
	store Store
}

// NewProgressCache creates a typed progress view over a store
func NewProgressCache(store Store) ProgressCache {
	return &progressCache{store: store}
}

// ProgressKey returns the store key for a quiz
func ProgressKey(quizID int64) string {
	return ProgressKeyPrefix + strconv.FormatInt(quizID, 10)
}

func (c *progressCache) Get(ctx context.Context, quizID int64) (*model.AttemptRecord, error) {
	data, err := c.store.Get(ctx, ProgressKey(quizID))
	if errors.Is(err, ErrMiss) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var record model.AttemptRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("%w: quiz %d: %v", ErrCorruptRecord, quizID, err)
	}
	if record.AttemptID <= 0 {
		return nil, fmt.Errorf("%w: quiz %d: missing attempt id", ErrCorruptRecord, quizID)
	}
	// the key is authoritative for the quiz id
	record.QuizID = quizID
	return &record, nil
}

func (c *progressCache) Put(ctx context.Context, record *model.AttemptRecord) error {
	if record.QuizID <= 0 {
		return fmt.Errorf("cache: invalid quiz id %d", record.QuizID)
	}
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return c.store.Set(ctx, ProgressKey(record.QuizID), data)
}

func (c *progressCache) Delete(ctx context.Context, quizID int64) error {
	return c.store.Delete(ctx, ProgressKey(quizID))
}

func (c *progressCache) List(ctx context.Context) ([]*model.AttemptRecord, error) {
	keys, err := c.store.Keys(ctx, ProgressKeyPrefix)
	if err != nil {
		return nil, err
	}

	records := make([]*model.AttemptRecord, 0, len(keys))
	for _, key := range keys {
		quizID, err := strconv.ParseInt(strings.TrimPrefix(key, ProgressKeyPrefix), 10, 64)
		if err != nil || quizID <= 0 {
			continue
		}
		record, err := c.Get(ctx, quizID)
		if errors.Is(err, ErrCorruptRecord) {
			if err := c.Delete(ctx, quizID); err != nil {
				return nil, err
			}
			continue
		}
		if err != nil {
			return nil, err
		}
		if record != nil {
			records = append(records, record)
		}
	}
	return records, nil
}
