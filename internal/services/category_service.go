package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/storage"

	"github.com/google/uuid"
)

type CategoryStore interface {
	UnitOfWork
	ListCategories(ctx context.Context, ownerID string) ([]core.Category, error)
}

type CategoryService struct {
	store  CategoryStore
	logger *log.Logger
	now    func() time.Time
}

func NewCategoryService(store CategoryStore, logger *log.Logger) *CategoryService {
	if logger == nil {
		logger = log.Nop()
	}
	return &CategoryService{
		store:  store,
		logger: logger.WithComponent(log.ComponentCategory),
		now:    time.Now,
	}
}

func (s *CategoryService) CreateCategory(ctx context.Context, ownerID string, in core.NewCategory) (core.Category, error) {
	if err := requireOwner(ownerID); err != nil {
		return core.Category{}, err
	}
	in.Name = strings.TrimSpace(in.Name)
	if err := in.Validate(); err != nil {
		return core.Category{}, err
	}

	cat := core.Category{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Name:      in.Name,
		Type:      in.Type,
		CreatedAt: s.now().UTC().Truncate(time.Millisecond),
	}
	err := s.store.WithinTx(ctx, func(tx storage.Tx) error {
		taken, err := tx.CategoryNameTaken(ctx, ownerID, cat.Name)
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("%w: %q", core.ErrDuplicateName, cat.Name)
		}
		return tx.InsertCategory(ctx, cat)
	})
	if err != nil {
		logFailure(ctx, s.logger, log.OpCreate, ownerID, err)
		return core.Category{}, err
	}

	s.logger.InfoContext(ctx, "Category created",
		log.FieldOwnerID, ownerID, log.FieldCategoryID, cat.ID, log.FieldEntryType, string(cat.Type))
	return cat, nil
}

func (s *CategoryService) ListCategories(ctx context.Context, ownerID string) ([]core.Category, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	cats, err := s.store.ListCategories(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if cats == nil {
		cats = []core.Category{}
	}
	return cats, nil
}

// DeleteCategory removes a category no entry references.
func (s *CategoryService) DeleteCategory(ctx context.Context, ownerID, id string) error {
	if err := requireOwner(ownerID); err != nil {
		return err
	}
	err := s.store.WithinTx(ctx, func(tx storage.Tx) error {
		cat, err := tx.GetCategory(ctx, id)
		if err != nil {
			return err
		}
		if cat.OwnerID != ownerID {
			return fmt.Errorf("category %s: %w", id, core.ErrNotFound)
		}
		used, err := tx.CategoryHasEntries(ctx, ownerID, id)
		if err != nil {
			return err
		}
		if used {
			return core.ErrInUse
		}
		return tx.DeleteCategory(ctx, id, ownerID)
	})
	if err != nil {
		logFailure(ctx, s.logger, log.OpDelete, ownerID, err)
		return err
	}
	s.logger.InfoContext(ctx, "Category deleted", log.FieldOwnerID, ownerID, log.FieldCategoryID, id)
	return nil
}
