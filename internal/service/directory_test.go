package service_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Freeeeeet/mentoring/internal/model"
	"github.com/Freeeeeet/mentoring/internal/repository/memory"
	"github.com/Freeeeeet/mentoring/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func TestRegisterStudent(t *testing.T) {
	f := newFixture(t)
	ctx := testContext(t)

	valid := func() model.StudentInput {
		return model.StudentInput{
			Mail:      strPtr("new@example.com"),
			Password:  strPtr("password"),
			FirstName: strPtr("New"),
			LastName:  strPtr("Student"),
		}
	}

	t.Run("server assigns role and enabled", func(t *testing.T) {
		user, err := f.directory.RegisterStudent(ctx, model.Caller{}, valid())
		require.NoError(t, err)
		assert.Equal(t, model.RoleStudent, user.Role)
		assert.True(t, user.Enabled)
		assert.NotEqual(t, "password", user.PasswordHash)
	})

	t.Run("duplicate mail", func(t *testing.T) {
		_, err := f.directory.RegisterStudent(ctx, model.Caller{}, valid())
		requireKind(t, err, service.KindConflict)
	})

	t.Run("authenticated caller", func(t *testing.T) {
		in := valid()
		in.Mail = strPtr("other@example.com")
		_, err := f.directory.RegisterStudent(ctx, f.student, in)
		requireKind(t, err, service.KindForbidden)
	})

	t.Run("missing last name", func(t *testing.T) {
		in := valid()
		in.Mail = strPtr("other@example.com")
		in.LastName = nil
		_, err := f.directory.RegisterStudent(ctx, model.Caller{}, in)
		requireKind(t, err, service.KindInvalidArgument)
	})

	t.Run("caller sets role", func(t *testing.T) {
		in := valid()
		in.Mail = strPtr("other@example.com")
		role := model.RoleMentor
		in.Role = &role
		_, err := f.directory.RegisterStudent(ctx, model.Caller{}, in)
		requireKind(t, err, service.KindInvalidArgument)
	})

	t.Run("malformed mail", func(t *testing.T) {
		in := valid()
		in.Mail = strPtr("not-a-mail")
		_, err := f.directory.RegisterStudent(ctx, model.Caller{}, in)
		requireKind(t, err, service.KindInvalidArgument)
		assert.Contains(t, err.Error(), "Mail")
	})

	t.Run("password over bcrypt byte limit", func(t *testing.T) {
		in := valid()
		in.Mail = strPtr("cyrillic@example.com")
		in.Password = strPtr(strings.Repeat("ж", 40))
		_, err := f.directory.RegisterStudent(ctx, model.Caller{}, in)
		requireKind(t, err, service.KindInvalidArgument)
	})

	t.Run("password at bcrypt byte limit", func(t *testing.T) {
		in := valid()
		in.Mail = strPtr("cyrillic@example.com")
		in.Password = strPtr(strings.Repeat("ж", 36))
		_, err := f.directory.RegisterStudent(ctx, model.Caller{}, in)
		require.NoError(t, err)
	})
}

func TestAuthenticate(t *testing.T) {
	f := newFixture(t)
	ctx := testContext(t)

	caller, err := f.directory.Authenticate(ctx, "john@example.com", "password")
	require.NoError(t, err)
	assert.Equal(t, f.student, caller)

	_, err = f.directory.Authenticate(ctx, "john@example.com", "wrong")
	requireKind(t, err, service.KindUnauthorized)

	_, err = f.directory.Authenticate(ctx, "nobody@example.com", "password")
	requireKind(t, err, service.KindUnauthorized)
}

func TestGetMentorAndStudents(t *testing.T) {
	f := newFixture(t)
	ctx := testContext(t)

	mentor, err := f.directory.GetMentor(ctx, f.mentor)
	require.NoError(t, err)
	assert.Equal(t, int64(1), mentor.ID)

	_, err = f.directory.GetMentor(ctx, f.student)
	requireKind(t, err, service.KindUnauthorized)

	mentor, err = f.directory.GetMentorByID(ctx, f.mentor, 1)
	require.NoError(t, err)
	assert.Equal(t, "mentor@example.com", mentor.Mail)

	_, err = f.directory.GetMentorByID(ctx, f.mentor, 2)
	requireKind(t, err, service.KindNotFound)

	_, err = f.directory.GetMentorByID(ctx, f.student, 1)
	requireKind(t, err, service.KindUnauthorized)

	students, err := f.directory.ListStudents(ctx, f.student)
	require.NoError(t, err)
	require.Len(t, students, 2)
	assert.Equal(t, int64(2), students[0].ID)

	_, err = f.directory.GetStudent(ctx, f.mentor, 1)
	requireKind(t, err, service.KindNotFound)

	student, err := f.directory.GetStudent(ctx, f.mentor, 3)
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", student.Mail)
}

func TestEnsureMentorKeepsFirst(t *testing.T) {
	f := newFixture(t)

	mentor, err := f.directory.EnsureMentor(testContext(t), service.MentorAccount{
		Mail:     "second@example.com",
		Password: "secret",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), mentor.ID)
	assert.Equal(t, "mentor@example.com", mentor.Mail)
}

func TestUpdateStudent(t *testing.T) {
	f := newFixture(t)
	ctx := testContext(t)

	t.Run("other student", func(t *testing.T) {
		_, err := f.directory.UpdateStudent(ctx, f.student3, model.StudentInput{
			ID:        int64Ptr(2),
			FirstName: strPtr("Hacked"),
		})
		requireKind(t, err, service.KindForbidden)
	})

	t.Run("missing id", func(t *testing.T) {
		_, err := f.directory.UpdateStudent(ctx, f.student, model.StudentInput{FirstName: strPtr("X")})
		requireKind(t, err, service.KindInvalidArgument)
	})

	t.Run("mail taken", func(t *testing.T) {
		_, err := f.directory.UpdateStudent(ctx, f.student, model.StudentInput{
			ID:   int64Ptr(2),
			Mail: strPtr("jane@example.com"),
		})
		requireKind(t, err, service.KindConflict)
	})

	t.Run("merges non-empty fields", func(t *testing.T) {
		user, err := f.directory.UpdateStudent(ctx, f.student, model.StudentInput{
			ID:        int64Ptr(2),
			FirstName: strPtr("Johnny"),
			LastName:  strPtr(""),
			Password:  strPtr("changed"),
		})
		require.NoError(t, err)
		assert.Equal(t, "Johnny", user.FirstName)
		assert.Equal(t, "Doe", user.LastName)

		_, err = f.directory.Authenticate(ctx, "john@example.com", "changed")
		require.NoError(t, err)
	})

	t.Run("password over bcrypt byte limit", func(t *testing.T) {
		_, err := f.directory.UpdateStudent(ctx, f.student, model.StudentInput{
			ID:       int64Ptr(2),
			Password: strPtr(strings.Repeat("ж", 40)),
		})
		requireKind(t, err, service.KindInvalidArgument)

		_, err = f.directory.Authenticate(ctx, "john@example.com", "changed")
		require.NoError(t, err)
	})
}

// slowUsers растягивает чтение записи, чтобы параллельные обновления пересеклись
type slowUsers struct {
	service.UserStore
}

func (s slowUsers) GetByID(ctx context.Context, id int64) (*model.User, error) {
	time.Sleep(20 * time.Millisecond)
	return s.UserStore.GetByID(ctx, id)
}

func TestConcurrentUpdatesKeepBothFields(t *testing.T) {
	ctx := testContext(t)
	store := memory.NewStore()
	directory := service.NewDirectoryService(slowUsers{store.Users()}, zap.NewNop(), service.WithHashCost(bcrypt.MinCost))

	student, err := directory.RegisterStudent(ctx, model.Caller{}, model.StudentInput{
		Mail:      strPtr("john@example.com"),
		Password:  strPtr("password"),
		FirstName: strPtr("John"),
		LastName:  strPtr("Doe"),
	})
	require.NoError(t, err)
	caller := model.Caller{Role: model.RoleStudent, Login: student.Mail, ID: student.ID}

	updates := []model.StudentInput{
		{ID: int64Ptr(student.ID), FirstName: strPtr("Johnny")},
		{ID: int64Ptr(student.ID), LastName: strPtr("Smith")},
	}

	var wg sync.WaitGroup
	for _, in := range updates {
		wg.Add(1)
		go func(in model.StudentInput) {
			defer wg.Done()
			_, err := directory.UpdateStudent(ctx, caller, in)
			assert.NoError(t, err)
		}(in)
	}
	wg.Wait()

	user, err := store.Users().GetByID(ctx, student.ID)
	require.NoError(t, err)
	assert.Equal(t, "Johnny", user.FirstName)
	assert.Equal(t, "Smith", user.LastName)
}

func TestEnsureMentorPasswordLimit(t *testing.T) {
	directory := service.NewDirectoryService(memory.NewStore().Users(), zap.NewNop(), service.WithHashCost(bcrypt.MinCost))

	_, err := directory.EnsureMentor(testContext(t), service.MentorAccount{
		Mail:     "mentor@example.com",
		Password: strings.Repeat("ж", 40),
	})
	requireKind(t, err, service.KindInvalidArgument)
}

func TestRenamedStudentKeepsSlots(t *testing.T) {
	f := newFixture(t)
	ctx := testContext(t)

	_, err := f.booking.CreateSlot(ctx, f.mentor, minuteSlot(t, "2020-08-06", 600))
	require.NoError(t, err)
	_, err = f.booking.BookSlot(ctx, f.student, bookInput(1, 2))
	require.NoError(t, err)

	_, err = f.directory.UpdateStudent(ctx, f.student, model.StudentInput{
		ID:   int64Ptr(2),
		Mail: strPtr("john.doe@example.com"),
	})
	require.NoError(t, err)

	slots, err := f.booking.ListSlotsForStudent(ctx, f.mentor, 2)
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, int64(1), slots[0].ID)

	// старый логин больше не действует
	_, err = f.booking.BookSlot(ctx, f.student, bookInput(1, 2))
	requireKind(t, err, service.KindUnauthorized)

	renamed := model.Caller{Role: model.RoleStudent, Login: "john.doe@example.com", ID: 2}
	_, err = f.booking.CreateSlot(ctx, f.mentor, minuteSlot(t, "2020-08-06", 615))
	require.NoError(t, err)
	_, err = f.booking.BookSlot(ctx, renamed, bookInput(2, 2))
	require.NoError(t, err)
}

func TestDeleteStudent(t *testing.T) {
	f := newFixture(t)
	ctx := testContext(t)

	_, err := f.booking.CreateSlot(ctx, f.mentor, minuteSlot(t, "2020-08-06", 600))
	require.NoError(t, err)
	_, err = f.booking.BookSlot(ctx, f.student, bookInput(1, 2))
	require.NoError(t, err)

	err = f.directory.DeleteStudent(ctx, f.student3, 2)
	requireKind(t, err, service.KindForbidden)

	err = f.directory.DeleteStudent(ctx, f.student, 2)
	requireKind(t, err, service.KindConflict)

	require.NoError(t, f.directory.DeleteStudent(ctx, f.student3, 3))

	_, err = f.directory.GetStudent(ctx, f.mentor, 3)
	requireKind(t, err, service.KindNotFound)
}
