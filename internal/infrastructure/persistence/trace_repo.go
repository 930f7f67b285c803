package persistence

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Victor-armando18/pedimento-rules/internal/domain"
	"github.com/Victor-armando18/pedimento-rules/internal/interfaces"
	"github.com/Victor-armando18/pedimento-rules/internal/platform/dbctx"
	"github.com/Victor-armando18/pedimento-rules/internal/platform/logger"
)

type traceRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTraceRepo(db *gorm.DB, baseLog *logger.Logger) interfaces.TraceStore {
	return &traceRepo{db: db, log: baseLog.With("repo", "TraceRepo")}
}

// Save upserts the trace of a declaration; the newest document wins.
func (r *traceRepo) Save(dbc dbctx.Context, trace *domain.RuleTrace) error {
	if trace == nil || strings.TrimSpace(trace.DeclarationID) == "" {
		return fmt.Errorf("%w: trace requires a declaration id", domain.ErrInvalidArgument)
	}
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	return t.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "declaration_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"rulepack_code", "scenario", "truncated", "document", "recorded_at"}),
		}).
		Create(trace).Error
}

func (r *traceRepo) Get(dbc dbctx.Context, declarationID string) (*domain.RuleTrace, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var rows []domain.RuleTrace
	if err := t.WithContext(dbc.Ctx).
		Where("declaration_id = ?", declarationID).
		Limit(1).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no trace for declaration %s", domain.ErrNotFound, declarationID)
	}
	return &rows[0], nil
}
