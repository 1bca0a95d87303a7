package media

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/socialreel-backend/internal/domain"
	"github.com/yungbote/socialreel-backend/internal/platform/dbctx"
	"github.com/yungbote/socialreel-backend/internal/platform/logger"
)

type ItemRepo interface {
	// ListPendingIncoming returns not-trashed rows still under the
	// incoming/ prefix, oldest first.
	ListPendingIncoming(dbc dbctx.Context) ([]*types.MediaItem, error)
	UpdateStorageKey(dbc dbctx.Context, id uuid.UUID, newKey string) error
	UpdateDiagnostics(dbc dbctx.Context, id uuid.UUID, diagnostics datatypes.JSON) error
	InsertOutput(dbc dbctx.Context, item *types.MediaItem) (*types.MediaItem, error)
}

type itemRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewItemRepo(db *gorm.DB, baseLog *logger.Logger) ItemRepo {
	repoLog := baseLog.With("repo", "MediaItemRepo")
	return &itemRepo{db: db, log: repoLog}
}

func (r *itemRepo) ListPendingIncoming(dbc dbctx.Context) ([]*types.MediaItem, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.MediaItem
	if err := transaction.WithContext(dbc.Ctx).
		Where("storage_key LIKE ?", types.PrefixIncoming+"%").
		Where("is_trashed = ?", false).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *itemRepo) UpdateStorageKey(dbc dbctx.Context, id uuid.UUID, newKey string) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	if newKey == "" {
		return fmt.Errorf("newKey required")
	}

	res := transaction.WithContext(dbc.Ctx).
		Model(&types.MediaItem{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"storage_key": newKey,
			"updated_at":  time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *itemRepo) UpdateDiagnostics(dbc dbctx.Context, id uuid.UUID, diagnostics datatypes.JSON) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	res := transaction.WithContext(dbc.Ctx).
		Model(&types.MediaItem{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"diagnostics": diagnostics,
			"updated_at":  time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *itemRepo) InsertOutput(dbc dbctx.Context, item *types.MediaItem) (*types.MediaItem, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	if item == nil {
		return nil, fmt.Errorf("item required")
	}

	if err := transaction.WithContext(dbc.Ctx).Create(item).Error; err != nil {
		return nil, err
	}
	return item, nil
}
