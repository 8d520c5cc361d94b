package board

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Recorder appends activity log entries as a side effect of mutations.
// Recording is best effort: a storage failure is logged and never surfaced
// to the caller, so a broken audit trail cannot abort the mutation that
// triggered it.
type Recorder struct {
	db     *gorm.DB
	logger *zap.Logger
	clock  func() time.Time
}

// NewRecorder constructs an activity recorder. A nil logger is replaced
// with a no-op logger.
func NewRecorder(db *gorm.DB, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{db: db, logger: logger, clock: time.Now}
}

// Record appends one entry for the board. Meta values are serialized to
// JSON; a nil map becomes an empty object.
func (r *Recorder) Record(ctx context.Context, boardID, actorID uint, action string, meta map[string]any) {
	metaJSON := "{}"
	if len(meta) > 0 {
		encoded, err := json.Marshal(meta)
		if err != nil {
			r.logger.Warn("activity meta not serializable",
				zap.String("action", action),
				zap.Error(err))
		} else {
			metaJSON = string(encoded)
		}
	}

	entry := ActivityLog{
		BoardID:   boardID,
		ActorID:   actorID,
		Action:    action,
		MetaJSON:  metaJSON,
		CreatedAt: r.clock().UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&entry).Error; err != nil {
		r.logger.Warn("activity log write failed",
			zap.Uint("board_id", boardID),
			zap.String("action", action),
			zap.Error(err))
	}
}
