package sequence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/Victor-armando18/pedimento-rules/internal/domain"
	"github.com/Victor-armando18/pedimento-rules/internal/interfaces"
	"github.com/Victor-armando18/pedimento-rules/internal/platform/ctxutil"
	"github.com/Victor-armando18/pedimento-rules/internal/platform/dbctx"
	"github.com/Victor-armando18/pedimento-rules/internal/platform/logger"
)

// Service issues consecutives. Each allocation runs in its own transaction
// holding the counter row lock until commit.
type Service struct {
	db       *gorm.DB
	counters interfaces.CounterStore
	log      *logger.Logger
	now      func() time.Time
}

func NewService(db *gorm.DB, counters interfaces.CounterStore, baseLog *logger.Logger) *Service {
	return &Service{
		db:       db,
		counters: counters,
		log:      baseLog.With("service", "SequenceService"),
		now:      time.Now,
	}
}

var _ interfaces.SequenceAllocator = (*Service)(nil)

// Allocate increments the counter of key and returns the new consecutive.
// The increment and its log entry commit or roll back together.
func (s *Service) Allocate(ctx context.Context, key domain.SequenceKey, note string) (*domain.Allocation, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	actor := ctxutil.Actor(ctx)

	var issued int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		if err := s.counters.EnsureCounter(dbc, key); err != nil {
			return fmt.Errorf("ensure counter: %w", err)
		}
		counter, err := s.counters.LockCounter(dbc, key)
		if err != nil {
			return err
		}
		next := counter.LastIssued + 1
		if next > domain.MaxConsecutive {
			return &domain.CapacityError{Key: key, Limit: domain.MaxConsecutive}
		}
		if err := s.counters.UpdateLastIssued(dbc, counter.ID, next); err != nil {
			return fmt.Errorf("update counter: %w", err)
		}
		if err := s.counters.AppendLog(dbc, &domain.SequenceLog{
			CounterID: counter.ID,
			OldValue:  counter.LastIssued,
			NewValue:  next,
			Actor:     actor,
			Note:      note,
			CreatedAt: s.now().UTC(),
		}); err != nil {
			return fmt.Errorf("append sequence log: %w", err)
		}
		issued = next
		return nil
	})
	if err != nil {
		var capErr *domain.CapacityError
		if errors.As(err, &capErr) {
			s.log.Error("consecutive space exhausted", "key", key.String(), "limit", capErr.Limit)
		} else {
			s.log.Warn("allocation failed", "key", key.String(), "error", err)
		}
		return nil, err
	}

	s.log.Debug("consecutive issued", "key", key.String(), "value", issued, "actor", actor)
	return &domain.Allocation{
		Key:         key,
		Consecutive: issued,
		Number:      FormatConsecutive(issued),
		Display:     DisplayNumber(key, issued),
	}, nil
}

// Current returns the last issued consecutive of key, zero when none was issued.
func (s *Service) Current(ctx context.Context, key domain.SequenceKey) (int, error) {
	if err := key.Validate(); err != nil {
		return 0, err
	}
	counter, err := s.counters.GetCounter(dbctx.Background(ctx), key)
	if errors.Is(err, domain.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return counter.LastIssued, nil
}
