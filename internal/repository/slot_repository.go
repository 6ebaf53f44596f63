package repository

import (
	"context"
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/Freeeeeet/mentoring/internal/model"
	"github.com/Freeeeeet/mentoring/internal/repository/base"
	"github.com/jackc/pgx/v5"
)

const slotColumns = `id, date::text, start_time::text, end_time::text, mentor_id, student_id, created_at`

type SlotRepository struct {
	*base.Repository
}

func NewSlotRepository(pool base.Pool) *SlotRepository {
	return &SlotRepository{Repository: base.NewRepository(pool)}
}

func scanSlot(row pgx.Row) (*model.Slot, error) {
	var (
		slot             model.Slot
		date, start, end string
	)

	err := row.Scan(
		&slot.ID,
		&date,
		&start,
		&end,
		&slot.MentorID,
		&slot.StudentID,
		&slot.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if slot.Date, err = civil.ParseDate(date); err != nil {
		return nil, fmt.Errorf("parse date: %w", err)
	}
	if slot.StartTime, err = model.ParseClock(start); err != nil {
		return nil, err
	}
	if slot.EndTime, err = model.ParseClock(end); err != nil {
		return nil, err
	}

	return &slot, nil
}

func (r *SlotRepository) list(ctx context.Context, op, query string, args ...interface{}) ([]*model.Slot, error) {
	rows, err := r.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	slots := []*model.Slot{}
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		slots = append(slots, slot)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate slots: %w", err)
	}

	return slots, nil
}

// Create создаёт новый слот
func (r *SlotRepository) Create(ctx context.Context, slot *model.Slot) error {
	query := `
		INSERT INTO meetings (date, start_time, end_time, mentor_id, student_id)
		VALUES ($1::date, $2::time, $3::time, $4, $5)
		RETURNING id, created_at
	`

	err := r.QueryRow(
		ctx, query,
		slot.Date.String(),
		slot.StartTime.Time.String(),
		slot.EndTime.Time.String(),
		slot.MentorID,
		slot.StudentID,
	).Scan(&slot.ID, &slot.CreatedAt)

	if err != nil {
		if base.IsUniqueViolation(err) {
			return ErrSlotCollision
		}
		return fmt.Errorf("create slot: %w", err)
	}

	return nil
}

// GetByID получает слот по ID
func (r *SlotRepository) GetByID(ctx context.Context, id int64) (*model.Slot, error) {
	query := `SELECT ` + slotColumns + ` FROM meetings WHERE id = $1`

	slot, err := scanSlot(r.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get slot by id: %w", err)
	}

	return slot, nil
}

// GetByDate получает все слоты на календарный день
func (r *SlotRepository) GetByDate(ctx context.Context, date civil.Date) ([]*model.Slot, error) {
	query := `
		SELECT ` + slotColumns + `
		FROM meetings
		WHERE date = $1::date
		ORDER BY start_time, id
	`
	return r.list(ctx, "get slots by date", query, date.String())
}

// GetByStudent получает слоты, забронированные студентом
func (r *SlotRepository) GetByStudent(ctx context.Context, studentID int64) ([]*model.Slot, error) {
	query := `
		SELECT ` + slotColumns + `
		FROM meetings
		WHERE student_id = $1
		ORDER BY date, start_time, id
	`
	return r.list(ctx, "get slots by student", query, studentID)
}

// GetAll получает все слоты
func (r *SlotRepository) GetAll(ctx context.Context) ([]*model.Slot, error) {
	query := `
		SELECT ` + slotColumns + `
		FROM meetings
		ORDER BY date, start_time, id
	`
	return r.list(ctx, "get slots", query)
}

// AssignStudent привязывает студента к свободному слоту.
// Условный UPDATE не даст перезаписать уже назначенного студента.
func (r *SlotRepository) AssignStudent(ctx context.Context, slotID, studentID int64) error {
	return r.WithTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE meetings
			SET student_id = $1
			WHERE id = $2 AND student_id IS NULL
		`, studentID, slotID)
		if err != nil {
			if base.IsForeignKeyViolation(err) {
				return ErrUserNotFound
			}
			return fmt.Errorf("assign student: %w", err)
		}

		if tag.RowsAffected() > 0 {
			return nil
		}

		var exists bool
		err = tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM meetings WHERE id = $1)`, slotID).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check slot exists: %w", err)
		}
		if !exists {
			return ErrSlotNotFound
		}
		return ErrSlotTaken
	})
}

// Delete удаляет слот
func (r *SlotRepository) Delete(ctx context.Context, id int64) error {
	affected, err := r.ExecAffected(ctx, `DELETE FROM meetings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete slot: %w", err)
	}

	if affected == 0 {
		return ErrSlotNotFound
	}

	return nil
}
