package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Freeeeeet/mentoring/internal/lock"
	"github.com/Freeeeeet/mentoring/internal/model"
	"github.com/Freeeeeet/mentoring/internal/notify"
	"github.com/Freeeeeet/mentoring/internal/repository"
	"go.uber.org/zap"
)

// BookingService создание, бронирование и удаление слотов ментора
type BookingService struct {
	slots     SlotStore
	directory *DirectoryService
	locker    lock.Locker
	notifier  notify.Notifier
	logger    *zap.Logger
}

func NewBookingService(
	slots SlotStore,
	directory *DirectoryService,
	locker lock.Locker,
	notifier notify.Notifier,
	logger *zap.Logger,
) *BookingService {
	return &BookingService{
		slots:     slots,
		directory: directory,
		locker:    locker,
		notifier:  notifier,
		logger:    logger,
	}
}

func dateKey(slot *model.Slot) string {
	return "date:" + slot.Date.String()
}

func slotKey(id int64) string {
	return fmt.Sprintf("slot:%d", id)
}

func (s *BookingService) lock(ctx context.Context, key string) (func(), error) {
	unlock, err := s.locker.Lock(ctx, key)
	if err != nil {
		return nil, storeUnavailable("acquire lock "+key, err)
	}
	return unlock, nil
}

// CreateSlot создаёт свободный слот ментора длиной SlotDuration.
// Проверка пересечений и вставка выполняются под блокировкой даты.
func (s *BookingService) CreateSlot(ctx context.Context, caller model.Caller, in model.SlotInput) (*model.Slot, error) {
	if err := Authorize(OpCreateSlot, caller, nil); err != nil {
		return nil, err
	}

	if in.Date == nil || in.StartTime == nil || in.EndTime == nil {
		return nil, invalidArgument(errInsufficient)
	}
	if in.ID != nil || in.MentorID != nil || in.StudentID != nil {
		return nil, invalidArgument(errIllegal)
	}
	if in.EndTime.Sub(*in.StartTime) != model.SlotDuration {
		return nil, invalidArgument("time interval must be equal to 15 minutes")
	}

	mentor, err := s.directory.Mentor(ctx)
	if err != nil {
		return nil, err
	}

	slot := &model.Slot{
		Date:      *in.Date,
		StartTime: *in.StartTime,
		EndTime:   *in.EndTime,
		MentorID:  mentor.ID,
	}

	unlock, err := s.lock(ctx, dateKey(slot))
	if err != nil {
		return nil, err
	}
	defer unlock()

	existing, err := s.slots.GetByDate(ctx, slot.Date)
	if err != nil {
		return nil, storeUnavailable("get slots by date", err)
	}
	for _, other := range existing {
		if other.Overlaps(slot.Date, slot.StartTime, slot.EndTime) {
			s.logger.Info("Slot collision",
				zap.String("date", slot.Date.String()),
				zap.String("start_time", slot.StartTime.String()),
				zap.Int64("existing_slot_id", other.ID),
			)
			return nil, collision("meeting collides with already existing meeting")
		}
	}

	if err := s.slots.Create(ctx, slot); err != nil {
		switch {
		case errors.Is(err, repository.ErrSlotCollision):
			return nil, collision("meeting collides with already existing meeting")
		case errors.Is(err, repository.ErrUserNotFound):
			return nil, notFound("mentor not found")
		}
		s.logger.Error("Failed to create slot", zap.Error(err))
		return nil, storeUnavailable("create slot", err)
	}

	s.logger.Info("Slot created",
		zap.Int64("slot_id", slot.ID),
		zap.String("date", slot.Date.String()),
		zap.String("start_time", slot.StartTime.String()),
	)

	return slot, nil
}

// BookSlot назначает студента на свободный слот. Студент бронирует только для себя.
func (s *BookingService) BookSlot(ctx context.Context, caller model.Caller, in model.SlotInput) (*model.Slot, error) {
	if in.ID == nil || in.StudentID == nil {
		return nil, invalidArgument(errInsufficient)
	}
	if in.Date != nil || in.StartTime != nil || in.EndTime != nil || in.MentorID != nil {
		return nil, invalidArgument(errIllegal)
	}

	student, err := s.directory.resolveUser(ctx, caller)
	if err != nil {
		return nil, err
	}
	resolved := model.Caller{Role: student.Role, Login: student.Mail, ID: student.ID}
	if err := Authorize(OpBookSlot, resolved, in.StudentID); err != nil {
		s.logger.Warn("Booking rejected",
			zap.Int64("caller_id", resolved.ID),
			zap.Int64("student_id", *in.StudentID),
			zap.Error(err),
		)
		return nil, err
	}

	slot, err := s.assign(ctx, *in.ID, student.ID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Slot booked",
		zap.Int64("slot_id", slot.ID),
		zap.Int64("student_id", student.ID),
	)

	s.notifyBooked(ctx, slot, student)

	return slot, nil
}

// assign проверяет и занимает слот под блокировкой слота
func (s *BookingService) assign(ctx context.Context, slotID, studentID int64) (*model.Slot, error) {
	unlock, err := s.lock(ctx, slotKey(slotID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	slot, err := s.slots.GetByID(ctx, slotID)
	if err != nil {
		return nil, storeUnavailable("get slot", err)
	}
	if slot == nil {
		return nil, notFound("meeting with specified id not found: %d", slotID)
	}
	if slot.IsBooked() {
		return nil, conflict("meeting with specified id is already booked")
	}

	if err := s.slots.AssignStudent(ctx, slotID, studentID); err != nil {
		switch {
		case errors.Is(err, repository.ErrSlotTaken):
			return nil, conflict("meeting with specified id is already booked")
		case errors.Is(err, repository.ErrSlotNotFound):
			return nil, notFound("meeting with specified id not found: %d", slotID)
		case errors.Is(err, repository.ErrUserNotFound):
			return nil, notFound("student with specified id not found: %d", studentID)
		}
		s.logger.Error("Failed to assign student", zap.Int64("slot_id", slotID), zap.Error(err))
		return nil, storeUnavailable("assign student", err)
	}

	slot.StudentID = &studentID
	return slot, nil
}

// notifyBooked уведомляет студента и ментора; ошибки только логируются
func (s *BookingService) notifyBooked(ctx context.Context, slot *model.Slot, student *model.User) {
	s.send(ctx, bookingMessage(slot, student, student))

	mentor, err := s.directory.user(ctx, slot.MentorID)
	if err != nil {
		s.logger.Error("Failed to load mentor for notification",
			zap.Int64("slot_id", slot.ID),
			zap.Error(err),
		)
		return
	}
	s.send(ctx, bookingMessage(slot, mentor, student))
}

func (s *BookingService) send(ctx context.Context, msg notify.Message) {
	if err := s.notifier.Notify(ctx, msg); err != nil {
		s.logger.Error("Could not send notification",
			zap.String("recipient", msg.Recipient),
			zap.String("subject", msg.Subject),
			zap.Error(err),
		)
	}
}

func (s *BookingService) GetSlot(ctx context.Context, caller model.Caller, id int64) (*model.Slot, error) {
	if err := Authorize(OpReadSlots, caller, nil); err != nil {
		return nil, err
	}

	slot, err := s.slots.GetByID(ctx, id)
	if err != nil {
		return nil, storeUnavailable("get slot", err)
	}
	if slot == nil {
		return nil, notFound("meeting with specified id not found: %d", id)
	}
	return slot, nil
}

func (s *BookingService) ListSlots(ctx context.Context, caller model.Caller) ([]*model.Slot, error) {
	if err := Authorize(OpReadSlots, caller, nil); err != nil {
		return nil, err
	}

	slots, err := s.slots.GetAll(ctx)
	if err != nil {
		return nil, storeUnavailable("list slots", err)
	}
	return slots, nil
}

// ListSlotsForStudent слоты студента; неизвестный студент - NotFound
func (s *BookingService) ListSlotsForStudent(ctx context.Context, caller model.Caller, studentID int64) ([]*model.Slot, error) {
	if err := Authorize(OpReadSlots, caller, nil); err != nil {
		return nil, err
	}

	if _, err := s.directory.Student(ctx, studentID); err != nil {
		return nil, err
	}

	slots, err := s.slots.GetByStudent(ctx, studentID)
	if err != nil {
		return nil, storeUnavailable("list student slots", err)
	}
	return slots, nil
}

// DeleteSlot удаляет слот, в том числе занятый. Студент занятого слота
// получает уведомление об отмене.
func (s *BookingService) DeleteSlot(ctx context.Context, caller model.Caller, id int64) error {
	if err := Authorize(OpDeleteSlot, caller, nil); err != nil {
		return err
	}

	slot, err := s.remove(ctx, id)
	if err != nil {
		return err
	}

	s.logger.Info("Slot deleted",
		zap.Int64("slot_id", id),
		zap.Bool("was_booked", slot.IsBooked()),
	)

	if slot.IsBooked() {
		student, err := s.directory.user(ctx, *slot.StudentID)
		if err != nil {
			s.logger.Error("Failed to load student for cancellation",
				zap.Int64("slot_id", id),
				zap.Error(err),
			)
			return nil
		}
		s.send(ctx, cancellationMessage(slot, student))
	}

	return nil
}

func (s *BookingService) remove(ctx context.Context, id int64) (*model.Slot, error) {
	unlock, err := s.lock(ctx, slotKey(id))
	if err != nil {
		return nil, err
	}
	defer unlock()

	slot, err := s.slots.GetByID(ctx, id)
	if err != nil {
		return nil, storeUnavailable("get slot", err)
	}
	if slot == nil {
		return nil, notFound("meeting with specified id not found: %d", id)
	}

	if err := s.slots.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrSlotNotFound) {
			return nil, notFound("meeting with specified id not found: %d", id)
		}
		return nil, storeUnavailable("delete slot", err)
	}

	return slot, nil
}
