package journal

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/esportubt/discord-bot/internal/reconcile"
)

const maxListLimit = 200

// Entry is one persisted run summary. The journal is an insert-only
// audit trail for operators; reconciliation never reads it back.
type Entry struct {
	ID              int64             `gorm:"primaryKey"`
	RunID           int64             `gorm:"column:run_id;index"`
	Mode            string            `gorm:"column:mode"`
	GrantedCount    int               `gorm:"column:granted_count"`
	RevokedCount    int               `gorm:"column:revoked_count"`
	UnresolvedCount int               `gorm:"column:unresolved_count"`
	ForbiddenCount  int               `gorm:"column:forbidden_count"`
	Detail          datatypes.JSONMap `gorm:"column:detail"`
	CompletedAt     time.Time         `gorm:"column:completed_at;index"`
	CreatedAt       time.Time         `gorm:"column:created_at"`
}

func (Entry) TableName() string {
	return "sync_runs"
}

// Journal records completed reconciliation runs.
type Journal struct {
	db    *gorm.DB
	genID *snowflake.Node
}

func New(db *gorm.DB, genID *snowflake.Node) (*Journal, error) {
	if db == nil || genID == nil {
		return nil, errors.New("journal_unavailable")
	}
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, err
	}
	return &Journal{db: db, genID: genID}, nil
}

// Record inserts one run summary. Implements reconcile.Sink.
func (j *Journal) Record(ctx context.Context, result *reconcile.Result) error {
	if result == nil {
		return errors.New("missing_result")
	}
	entry := Entry{
		ID:              int64(j.genID.Generate()),
		RunID:           int64(result.RunID),
		Mode:            string(result.Mode),
		GrantedCount:    len(result.Granted),
		RevokedCount:    len(result.Revoked),
		UnresolvedCount: len(result.Unresolved),
		ForbiddenCount:  len(result.Forbidden),
		Detail: datatypes.JSONMap{
			"granted":    result.Granted,
			"revoked":    result.Revoked,
			"unchanged":  result.Unchanged,
			"unresolved": result.Unresolved,
			"forbidden":  result.Forbidden,
		},
		CompletedAt: result.CompletedAt,
		CreatedAt:   time.Now().UTC(),
	}
	return j.db.WithContext(ctx).Create(&entry).Error
}

// List returns the most recent run summaries, newest first.
func (j *Journal) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}
	var entries []Entry
	err := j.db.WithContext(ctx).
		Order("completed_at DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
