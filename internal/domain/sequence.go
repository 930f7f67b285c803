package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MaxConsecutive is the last number a counter may issue.
const MaxConsecutive = 999999

// SequenceKey identifies one consecutive space: year, customs office and license.
type SequenceKey struct {
	Year    string `json:"year"`
	Office  string `json:"office"`
	License string `json:"license"`
}

func (k SequenceKey) String() string {
	return fmt.Sprintf("%s-%s-%s", k.Year, k.Office, k.License)
}

// Validate checks the 2/2/4 digit shape of the key.
func (k SequenceKey) Validate() error {
	if len(k.Year) != 2 || OnlyDigits(k.Year) != k.Year {
		return fmt.Errorf("%w: year must have exactly 2 digits", ErrInvalidArgument)
	}
	if len(k.Office) != 2 || OnlyDigits(k.Office) != k.Office {
		return fmt.Errorf("%w: customs office must have exactly 2 digits", ErrInvalidArgument)
	}
	if len(k.License) != 4 || OnlyDigits(k.License) != k.License {
		return fmt.Errorf("%w: license must have exactly 4 digits", ErrInvalidArgument)
	}
	return nil
}

// SequenceCounter holds the last consecutive issued for a key. Rows are
// created lazily and never deleted.
type SequenceCounter struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Year       string    `gorm:"column:year_two;size:2;not null;uniqueIndex:idx_sequence_counter_key" json:"year"`
	Office     string    `gorm:"column:office_code;size:2;not null;uniqueIndex:idx_sequence_counter_key" json:"office"`
	License    string    `gorm:"column:license;size:4;not null;uniqueIndex:idx_sequence_counter_key" json:"license"`
	LastIssued int       `gorm:"column:last_issued;not null;default:0" json:"last_issued"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time `gorm:"not null" json:"updated_at"`
}

func (SequenceCounter) TableName() string { return "sequence_counter" }

func (c SequenceCounter) Key() SequenceKey {
	return SequenceKey{Year: c.Year, Office: c.Office, License: c.License}
}

// SequenceLog is the append-only audit entry of one counter change.
type SequenceLog struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CounterID uint      `gorm:"column:counter_id;not null;index" json:"counter_id"`
	OldValue  int       `gorm:"column:old_value;not null" json:"old_value"`
	NewValue  int       `gorm:"column:new_value;not null" json:"new_value"`
	Actor     string    `gorm:"column:actor;not null" json:"actor"`
	Note      string    `gorm:"column:note" json:"note,omitempty"`
	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}

func (SequenceLog) TableName() string { return "sequence_log" }

func (l *SequenceLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// BeforeUpdate keeps the log immutable.
func (l *SequenceLog) BeforeUpdate(tx *gorm.DB) error {
	return fmt.Errorf("%w: sequence log entries are immutable", ErrInvalidArgument)
}

// BeforeDelete keeps the log append-only.
func (l *SequenceLog) BeforeDelete(tx *gorm.DB) error {
	return fmt.Errorf("%w: sequence log entries are immutable", ErrInvalidArgument)
}

// Allocation is one consecutive issued for a key.
type Allocation struct {
	Key         SequenceKey `json:"key"`
	Consecutive int         `json:"consecutive"`
	// Number is the consecutive zero-padded to six digits.
	Number string `json:"number"`
	// Display is the last digit of the year followed by Number.
	Display string `json:"display"`
}
