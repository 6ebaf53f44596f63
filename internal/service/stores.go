package service

import (
	"context"

	"cloud.google.com/go/civil"
	"github.com/Freeeeeet/mentoring/internal/model"
)

// SlotStore хранилище слотов без бизнес-правил.
// GetByID возвращает nil, nil если слота нет.
type SlotStore interface {
	Create(ctx context.Context, slot *model.Slot) error
	GetByID(ctx context.Context, id int64) (*model.Slot, error)
	GetByDate(ctx context.Context, date civil.Date) ([]*model.Slot, error)
	GetByStudent(ctx context.Context, studentID int64) ([]*model.Slot, error)
	GetAll(ctx context.Context) ([]*model.Slot, error)
	// AssignStudent возвращает repository.ErrSlotTaken, если студент уже назначен
	AssignStudent(ctx context.Context, slotID, studentID int64) error
	Delete(ctx context.Context, id int64) error
}

// UserStore хранилище пользователей; логин (mail) уникален
type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByMail(ctx context.Context, mail string) (*model.User, error)
	GetFirstByRole(ctx context.Context, role model.Role) (*model.User, error)
	ListByRole(ctx context.Context, role model.Role) ([]*model.User, error)
	Update(ctx context.Context, user *model.User) error
	Delete(ctx context.Context, id int64) error
}
