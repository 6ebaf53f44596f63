package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Freeeeeet/mentoring/internal/lock"
	"github.com/Freeeeeet/mentoring/internal/model"
	"github.com/Freeeeeet/mentoring/internal/repository"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// maxPasswordBytes предел bcrypt, считается в байтах, а не в символах
const maxPasswordBytes = 72

var errPasswordTooLong = invalidArgument(fmt.Sprintf("password must not exceed %d bytes", maxPasswordBytes))

// DirectoryService пользователи: единственный ментор и студенты
type DirectoryService struct {
	users    UserStore
	locker   lock.Locker
	validate *validator.Validate
	logger   *zap.Logger
	hashCost int
}

// DirectoryOption настройка DirectoryService
type DirectoryOption func(*DirectoryService)

// WithHashCost задаёт стоимость bcrypt (в тестах bcrypt.MinCost)
func WithHashCost(cost int) DirectoryOption {
	return func(s *DirectoryService) {
		s.hashCost = cost
	}
}

// WithLocker блокировки записей пользователей; по умолчанию в пределах процесса
func WithLocker(locker lock.Locker) DirectoryOption {
	return func(s *DirectoryService) {
		s.locker = locker
	}
}

func NewDirectoryService(users UserStore, logger *zap.Logger, opts ...DirectoryOption) *DirectoryService {
	s := &DirectoryService{
		users:    users,
		locker:   lock.NewLocal(),
		validate: validator.New(),
		logger:   logger,
		hashCost: bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MentorAccount данные ментора для первичного создания
type MentorAccount struct {
	Mail      string
	Password  string
	FirstName string
	LastName  string
}

// Mentor возвращает канонического ментора (наименьший ID)
func (s *DirectoryService) Mentor(ctx context.Context) (*model.User, error) {
	mentor, err := s.users.GetFirstByRole(ctx, model.RoleMentor)
	if err != nil {
		return nil, storeUnavailable("get mentor", err)
	}
	if mentor == nil {
		return nil, notFound("mentor not found")
	}
	return mentor, nil
}

// Student возвращает студента по ID
func (s *DirectoryService) Student(ctx context.Context, id int64) (*model.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, storeUnavailable("get student", err)
	}
	if user == nil || user.Role != model.RoleStudent {
		return nil, notFound("student with specified id not found: %d", id)
	}
	return user, nil
}

func (s *DirectoryService) user(ctx context.Context, id int64) (*model.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, storeUnavailable("get user", err)
	}
	if user == nil {
		return nil, notFound("user with specified id not found: %d", id)
	}
	return user, nil
}

// resolveUser ищет запись вызывающего по логину
func (s *DirectoryService) resolveUser(ctx context.Context, caller model.Caller) (*model.User, error) {
	if caller.IsAnonymous() {
		return nil, unauthorized("authentication required")
	}

	user, err := s.users.GetByMail(ctx, caller.Login)
	if err != nil {
		return nil, storeUnavailable("get user by mail", err)
	}
	if user == nil || !user.Enabled {
		return nil, unauthorized("unknown user")
	}
	return user, nil
}

// Resolve возвращает каноническую личность вызывающего: роль и ID берутся
// из хранилища по логину, а не из запроса
func (s *DirectoryService) Resolve(ctx context.Context, caller model.Caller) (model.Caller, error) {
	user, err := s.resolveUser(ctx, caller)
	if err != nil {
		return model.Caller{}, err
	}
	return model.Caller{Role: user.Role, Login: user.Mail, ID: user.ID}, nil
}

// Authenticate проверяет логин и пароль
func (s *DirectoryService) Authenticate(ctx context.Context, mail, password string) (model.Caller, error) {
	user, err := s.users.GetByMail(ctx, mail)
	if err != nil {
		return model.Caller{}, storeUnavailable("get user by mail", err)
	}
	if user == nil || !user.Enabled {
		return model.Caller{}, unauthorized("bad credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return model.Caller{}, unauthorized("bad credentials")
	}
	return model.Caller{Role: user.Role, Login: user.Mail, ID: user.ID}, nil
}

// ChatIDByLogin чат Telegram пользователя, если он привязан
func (s *DirectoryService) ChatIDByLogin(ctx context.Context, login string) (int64, bool, error) {
	user, err := s.users.GetByMail(ctx, login)
	if err != nil {
		return 0, false, fmt.Errorf("get user by mail: %w", err)
	}
	if user == nil || user.TelegramChatID == nil {
		return 0, false, nil
	}
	return *user.TelegramChatID, true, nil
}

// GetMentor доступен только ментору
func (s *DirectoryService) GetMentor(ctx context.Context, caller model.Caller) (*model.User, error) {
	if err := Authorize(OpReadMentor, caller, nil); err != nil {
		return nil, err
	}
	return s.Mentor(ctx)
}

// GetMentorByID ментор по ID; доступен только ментору
func (s *DirectoryService) GetMentorByID(ctx context.Context, caller model.Caller, id int64) (*model.User, error) {
	if err := Authorize(OpReadMentor, caller, nil); err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, storeUnavailable("get mentor", err)
	}
	if user == nil || user.Role != model.RoleMentor {
		return nil, notFound("mentor with specified id not found: %d", id)
	}
	return user, nil
}

func (s *DirectoryService) GetStudent(ctx context.Context, caller model.Caller, id int64) (*model.User, error) {
	if err := Authorize(OpReadStudents, caller, nil); err != nil {
		return nil, err
	}
	return s.Student(ctx, id)
}

func (s *DirectoryService) ListStudents(ctx context.Context, caller model.Caller) ([]*model.User, error) {
	if err := Authorize(OpReadStudents, caller, nil); err != nil {
		return nil, err
	}

	students, err := s.users.ListByRole(ctx, model.RoleStudent)
	if err != nil {
		return nil, storeUnavailable("list students", err)
	}
	return students, nil
}

func (s *DirectoryService) checkInput(in model.StudentInput) error {
	if err := s.validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fe.Field())
			}
			return invalidArgument("invalid fields: " + strings.Join(fields, ", "))
		}
		return invalidArgument(err.Error())
	}
	return nil
}

func (s *DirectoryService) hash(password string) (string, error) {
	if len(password) > maxPasswordBytes {
		return "", errPasswordTooLong
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", errPasswordTooLong
		}
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func empty(v *string) bool {
	return v == nil || *v == ""
}

// RegisterStudent регистрирует студента; доступно только анониму.
// Роль и признак активности выставляются сервером.
func (s *DirectoryService) RegisterStudent(ctx context.Context, caller model.Caller, in model.StudentInput) (*model.User, error) {
	if err := Authorize(OpRegisterStudent, caller, nil); err != nil {
		return nil, err
	}

	if empty(in.Mail) || empty(in.Password) || empty(in.FirstName) || empty(in.LastName) {
		return nil, invalidArgument(errInsufficient)
	}
	if in.ID != nil || in.Role != nil || in.Enabled != nil {
		return nil, invalidArgument(errIllegal)
	}
	if err := s.checkInput(in); err != nil {
		return nil, err
	}

	hash, err := s.hash(*in.Password)
	if err != nil {
		return nil, err
	}

	student := &model.User{
		Mail:           *in.Mail,
		PasswordHash:   hash,
		Role:           model.RoleStudent,
		Enabled:        true,
		FirstName:      *in.FirstName,
		LastName:       *in.LastName,
		TelegramChatID: in.TelegramChatID,
	}

	if err := s.users.Create(ctx, student); err != nil {
		if errors.Is(err, repository.ErrLoginTaken) {
			return nil, conflict("user with specified mail already exists")
		}
		return nil, storeUnavailable("create student", err)
	}

	s.logger.Info("Student registered",
		zap.Int64("student_id", student.ID),
		zap.String("mail", student.Mail),
	)

	return student, nil
}

// UpdateStudent сливает непустые поля в запись студента; только сам студент
func (s *DirectoryService) UpdateStudent(ctx context.Context, caller model.Caller, in model.StudentInput) (*model.User, error) {
	if in.ID == nil {
		return nil, invalidArgument(errInsufficient)
	}
	if in.Role != nil || in.Enabled != nil {
		return nil, invalidArgument(errIllegal)
	}

	resolved, err := s.Resolve(ctx, caller)
	if err != nil {
		return nil, err
	}
	if err := Authorize(OpUpdateStudent, resolved, in.ID); err != nil {
		return nil, err
	}
	if err := s.checkInput(in); err != nil {
		return nil, err
	}

	// чтение, слияние и запись одной записи не должны перемежаться
	key := fmt.Sprintf("user:%d", *in.ID)
	unlock, err := s.locker.Lock(ctx, key)
	if err != nil {
		return nil, storeUnavailable("acquire lock "+key, err)
	}
	defer unlock()

	student, err := s.Student(ctx, *in.ID)
	if err != nil {
		return nil, err
	}

	if !empty(in.Mail) {
		student.Mail = *in.Mail
	}
	if !empty(in.FirstName) {
		student.FirstName = *in.FirstName
	}
	if !empty(in.LastName) {
		student.LastName = *in.LastName
	}
	if in.TelegramChatID != nil {
		student.TelegramChatID = in.TelegramChatID
	}
	if !empty(in.Password) {
		if student.PasswordHash, err = s.hash(*in.Password); err != nil {
			return nil, err
		}
	}

	if err := s.users.Update(ctx, student); err != nil {
		switch {
		case errors.Is(err, repository.ErrLoginTaken):
			return nil, conflict("user with specified mail already exists")
		case errors.Is(err, repository.ErrUserNotFound):
			return nil, notFound("student with specified id not found: %d", student.ID)
		}
		return nil, storeUnavailable("update student", err)
	}

	s.logger.Info("Student updated", zap.Int64("student_id", student.ID))

	return student, nil
}

// DeleteStudent удаляет запись студента; только сам студент и только без броней
func (s *DirectoryService) DeleteStudent(ctx context.Context, caller model.Caller, id int64) error {
	resolved, err := s.Resolve(ctx, caller)
	if err != nil {
		return err
	}
	if err := Authorize(OpDeleteStudent, resolved, &id); err != nil {
		return err
	}

	if err := s.users.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, repository.ErrStudentHasSlots):
			return conflict("student has booked meetings")
		case errors.Is(err, repository.ErrUserNotFound):
			return notFound("student with specified id not found: %d", id)
		}
		return storeUnavailable("delete student", err)
	}

	s.logger.Info("Student deleted", zap.Int64("student_id", id))

	return nil
}

// EnsureMentor создаёт ментора, если его ещё нет
func (s *DirectoryService) EnsureMentor(ctx context.Context, account MentorAccount) (*model.User, error) {
	existing, err := s.users.GetFirstByRole(ctx, model.RoleMentor)
	if err != nil {
		return nil, storeUnavailable("get mentor", err)
	}
	if existing != nil {
		return existing, nil
	}

	if account.Mail == "" || account.Password == "" {
		return nil, invalidArgument(errInsufficient)
	}

	hash, err := s.hash(account.Password)
	if err != nil {
		return nil, err
	}

	mentor := &model.User{
		Mail:         account.Mail,
		PasswordHash: hash,
		Role:         model.RoleMentor,
		Enabled:      true,
		FirstName:    account.FirstName,
		LastName:     account.LastName,
	}

	if err := s.users.Create(ctx, mentor); err != nil {
		if errors.Is(err, repository.ErrLoginTaken) {
			return nil, conflict("user with specified mail already exists")
		}
		return nil, storeUnavailable("create mentor", err)
	}

	s.logger.Info("Mentor created",
		zap.Int64("mentor_id", mentor.ID),
		zap.String("mail", mentor.Mail),
	)

	return mentor, nil
}
