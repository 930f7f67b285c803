package persistence

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Victor-armando18/pedimento-rules/internal/domain"
	"github.com/Victor-armando18/pedimento-rules/internal/interfaces"
	"github.com/Victor-armando18/pedimento-rules/internal/platform/dbctx"
	"github.com/Victor-armando18/pedimento-rules/internal/platform/logger"
)

type sequenceRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSequenceRepo(db *gorm.DB, baseLog *logger.Logger) interfaces.CounterStore {
	return &sequenceRepo{db: db, log: baseLog.With("repo", "SequenceRepo")}
}

func (r *sequenceRepo) tx(dbc dbctx.Context) *gorm.DB {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	return t.WithContext(dbc.Ctx)
}

func keyScope(key domain.SequenceKey) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("year_two = ? AND office_code = ? AND license = ?", key.Year, key.Office, key.License)
	}
}

// EnsureCounter creates the row for key at zero unless it already exists.
func (r *sequenceRepo) EnsureCounter(dbc dbctx.Context, key domain.SequenceKey) error {
	row := domain.SequenceCounter{Year: key.Year, Office: key.Office, License: key.License}
	return r.tx(dbc).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "year_two"}, {Name: "office_code"}, {Name: "license"}},
			DoNothing: true,
		}).
		Create(&row).Error
}

// LockCounter reads the counter row with SELECT ... FOR UPDATE. Only the row of
// key is locked, so allocations for other keys proceed in parallel.
func (r *sequenceRepo) LockCounter(dbc dbctx.Context, key domain.SequenceKey) (*domain.SequenceCounter, error) {
	var rows []domain.SequenceCounter
	if err := r.tx(dbc).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Scopes(keyScope(key)).
		Limit(1).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: sequence counter %s", domain.ErrNotFound, key)
	}
	return &rows[0], nil
}

func (r *sequenceRepo) GetCounter(dbc dbctx.Context, key domain.SequenceKey) (*domain.SequenceCounter, error) {
	var rows []domain.SequenceCounter
	if err := r.tx(dbc).Scopes(keyScope(key)).Limit(1).Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: sequence counter %s", domain.ErrNotFound, key)
	}
	return &rows[0], nil
}

func (r *sequenceRepo) UpdateLastIssued(dbc dbctx.Context, counterID uint, value int) error {
	res := r.tx(dbc).
		Model(&domain.SequenceCounter{}).
		Where("id = ?", counterID).
		Update("last_issued", value)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: sequence counter %d", domain.ErrNotFound, counterID)
	}
	return nil
}

func (r *sequenceRepo) AppendLog(dbc dbctx.Context, entry *domain.SequenceLog) error {
	return r.tx(dbc).Create(entry).Error
}

func (r *sequenceRepo) ListLog(dbc dbctx.Context, counterID uint) ([]domain.SequenceLog, error) {
	var out []domain.SequenceLog
	if err := r.tx(dbc).
		Where("counter_id = ?", counterID).
		Order("new_value").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
