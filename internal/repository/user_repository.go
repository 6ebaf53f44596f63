package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/mentoring/internal/model"
	"github.com/Freeeeeet/mentoring/internal/repository/base"
	"github.com/jackc/pgx/v5"
)

const userColumns = `id, mail, password, role, enabled, first_name, last_name, telegram_chat_id, created_at`

type UserRepository struct {
	*base.Repository
}

func NewUserRepository(pool base.Pool) *UserRepository {
	return &UserRepository{Repository: base.NewRepository(pool)}
}

func scanUser(row pgx.Row) (*model.User, error) {
	var user model.User
	err := row.Scan(
		&user.ID,
		&user.Mail,
		&user.PasswordHash,
		&user.Role,
		&user.Enabled,
		&user.FirstName,
		&user.LastName,
		&user.TelegramChatID,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) getOne(ctx context.Context, op, query string, args ...interface{}) (*model.User, error) {
	user, err := scanUser(r.QueryRow(ctx, query, args...))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil // Пользователь не найден
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

// Create создаёт нового пользователя
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	query := `
		INSERT INTO users (mail, password, role, enabled, first_name, last_name, telegram_chat_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`

	err := r.QueryRow(
		ctx, query,
		user.Mail,
		user.PasswordHash,
		user.Role,
		user.Enabled,
		user.FirstName,
		user.LastName,
		user.TelegramChatID,
	).Scan(&user.ID, &user.CreatedAt)

	if err != nil {
		if base.IsUniqueViolation(err) {
			return ErrLoginTaken
		}
		return fmt.Errorf("create user: %w", err)
	}

	return nil
}

// GetByID получает пользователя по ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.getOne(ctx, "get user by id", query, id)
}

// GetByMail получает пользователя по логину
func (r *UserRepository) GetByMail(ctx context.Context, mail string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE mail = $1`
	return r.getOne(ctx, "get user by mail", query, mail)
}

// GetFirstByRole получает пользователя роли с наименьшим ID
func (r *UserRepository) GetFirstByRole(ctx context.Context, role model.Role) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE role = $1 ORDER BY id ASC LIMIT 1`
	return r.getOne(ctx, "get first user by role", query, role)
}

// ListByRole получает всех пользователей роли
func (r *UserRepository) ListByRole(ctx context.Context, role model.Role) ([]*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE role = $1 ORDER BY id`

	rows, err := r.Query(ctx, query, role)
	if err != nil {
		return nil, fmt.Errorf("list users by role: %w", err)
	}
	defer rows.Close()

	users := []*model.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}

	return users, nil
}

// Update обновляет данные пользователя
func (r *UserRepository) Update(ctx context.Context, user *model.User) error {
	query := `
		UPDATE users
		SET mail = $1, password = $2, first_name = $3, last_name = $4, telegram_chat_id = $5
		WHERE id = $6
	`

	affected, err := r.ExecAffected(
		ctx, query,
		user.Mail,
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		user.TelegramChatID,
		user.ID,
	)
	if err != nil {
		if base.IsUniqueViolation(err) {
			return ErrLoginTaken
		}
		return fmt.Errorf("update user: %w", err)
	}

	if affected == 0 {
		return ErrUserNotFound
	}

	return nil
}

// Delete удаляет пользователя
func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	affected, err := r.ExecAffected(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		if base.IsForeignKeyViolation(err) {
			return ErrStudentHasSlots
		}
		return fmt.Errorf("delete user: %w", err)
	}

	if affected == 0 {
		return ErrUserNotFound
	}

	return nil
}
