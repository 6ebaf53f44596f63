package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/Freeeeeet/mentoring/internal/lock"
	"github.com/Freeeeeet/mentoring/internal/model"
	"github.com/Freeeeeet/mentoring/internal/notify"
	"github.com/Freeeeeet/mentoring/internal/repository/memory"
	"github.com/Freeeeeet/mentoring/internal/service"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type recordingNotifier struct {
	mu       sync.Mutex
	messages []notify.Message
	err      error
}

func (n *recordingNotifier) Notify(_ context.Context, msg notify.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, msg)
	return n.err
}

func (n *recordingNotifier) sent() []notify.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notify.Message(nil), n.messages...)
}

type fixture struct {
	store     *memory.Store
	directory *service.DirectoryService
	booking   *service.BookingService
	notifier  *recordingNotifier

	mentor   model.Caller
	student  model.Caller // id 2
	student3 model.Caller // id 3
}

func strPtr(s string) *string { return &s }

func int64Ptr(v int64) *int64 { return &v }

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger := zap.NewNop()
	store := memory.NewStore()
	notifier := &recordingNotifier{}
	directory := service.NewDirectoryService(store.Users(), logger, service.WithHashCost(bcrypt.MinCost))
	booking := service.NewBookingService(store.Slots(), directory, lock.NewLocal(), notifier, logger)

	f := &fixture{
		store:     store,
		directory: directory,
		booking:   booking,
		notifier:  notifier,
	}

	mentor, err := directory.EnsureMentor(testContext(t), service.MentorAccount{
		Mail:      "mentor@example.com",
		Password:  "secret",
		FirstName: "Mary",
		LastName:  "Mentor",
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), mentor.ID)
	f.mentor = model.Caller{Role: model.RoleMentor, Login: mentor.Mail, ID: mentor.ID}

	f.student = f.register(t, "john@example.com", "John", "Doe")
	require.Equal(t, int64(2), f.student.ID)
	f.student3 = f.register(t, "jane@example.com", "Jane", "Roe")
	require.Equal(t, int64(3), f.student3.ID)

	return f
}

func (f *fixture) register(t *testing.T, mail, first, last string) model.Caller {
	t.Helper()

	user, err := f.directory.RegisterStudent(testContext(t), model.Caller{}, model.StudentInput{
		Mail:      strPtr(mail),
		Password:  strPtr("password"),
		FirstName: strPtr(first),
		LastName:  strPtr(last),
	})
	require.NoError(t, err)

	return model.Caller{Role: model.RoleStudent, Login: user.Mail, ID: user.ID}
}

func slotInput(t *testing.T, date, start, end string) model.SlotInput {
	t.Helper()

	in := model.SlotInput{}
	d, err := civil.ParseDate(date)
	require.NoError(t, err)
	in.Date = &d

	s, err := model.ParseClock(start)
	require.NoError(t, err)
	in.StartTime = &s

	e, err := model.ParseClock(end)
	require.NoError(t, err)
	in.EndTime = &e

	return in
}

// minuteSlot слот длиной 15 минут, начинающийся через minute минут после полуночи
func minuteSlot(t *testing.T, date string, minute int) model.SlotInput {
	t.Helper()

	d, err := civil.ParseDate(date)
	require.NoError(t, err)
	start := model.NewClock(minute/60, minute%60)
	end := model.NewClock((minute+15)/60, (minute+15)%60)

	return model.SlotInput{Date: &d, StartTime: &start, EndTime: &end}
}

func bookInput(slotID, studentID int64) model.SlotInput {
	return model.SlotInput{ID: int64Ptr(slotID), StudentID: int64Ptr(studentID)}
}

func requireKind(t *testing.T, err error, kind service.Kind) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind, service.KindOf(err), "unexpected error: %v", err)
}

var errDelivery = errors.New("delivery failed")
