package service_test

import (
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"github.com/Freeeeeet/mentoring/internal/model"
	"github.com/Freeeeeet/mentoring/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookingScenarios(t *testing.T) {
	f := newFixture(t)
	ctx := testContext(t)

	// 1: свободный слот
	slot, err := f.booking.CreateSlot(ctx, f.mentor, slotInput(t, "2020-08-06", "15:20", "15:35"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), slot.ID)
	assert.Equal(t, f.mentor.ID, slot.MentorID)
	assert.Nil(t, slot.StudentID)

	// 2: пересечение
	_, err = f.booking.CreateSlot(ctx, f.mentor, slotInput(t, "2020-08-06", "15:25", "15:40"))
	requireKind(t, err, service.KindCollision)
	assert.ErrorIs(t, err, service.ErrConflict)

	// 3: бронь и повторная бронь
	booked, err := f.booking.BookSlot(ctx, f.student, bookInput(1, 2))
	require.NoError(t, err)
	require.NotNil(t, booked.StudentID)
	assert.Equal(t, int64(2), *booked.StudentID)

	_, err = f.booking.BookSlot(ctx, f.student, bookInput(1, 2))
	requireKind(t, err, service.KindConflict)

	// 4: бронь за другого студента
	_, err = f.booking.BookSlot(ctx, f.student3, bookInput(1, 2))
	requireKind(t, err, service.KindForbidden)

	// 5: неверная длительность
	_, err = f.booking.CreateSlot(ctx, f.mentor, slotInput(t, "2020-08-07", "10:00", "10:20"))
	requireKind(t, err, service.KindInvalidArgument)

	// 6: аноним
	_, err = f.booking.CreateSlot(ctx, model.Caller{}, slotInput(t, "2020-08-07", "10:00", "10:15"))
	requireKind(t, err, service.KindUnauthorized)

	stored, err := f.booking.GetSlot(ctx, f.mentor, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), *stored.StudentID)

	all, err := f.booking.ListSlots(ctx, f.student3)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestCreateSlotValidation(t *testing.T) {
	f := newFixture(t)
	ctx := testContext(t)

	t.Run("student is not mentor", func(t *testing.T) {
		_, err := f.booking.CreateSlot(ctx, f.student, slotInput(t, "2020-08-06", "10:00", "10:15"))
		requireKind(t, err, service.KindUnauthorized)
	})

	t.Run("missing end time", func(t *testing.T) {
		in := slotInput(t, "2020-08-06", "10:00", "10:15")
		in.EndTime = nil
		_, err := f.booking.CreateSlot(ctx, f.mentor, in)
		requireKind(t, err, service.KindInvalidArgument)
		assert.Contains(t, err.Error(), "insufficient")
	})

	for name, mutate := range map[string]func(*model.SlotInput){
		"id":         func(in *model.SlotInput) { in.ID = int64Ptr(7) },
		"mentor id":  func(in *model.SlotInput) { in.MentorID = int64Ptr(1) },
		"student id": func(in *model.SlotInput) { in.StudentID = int64Ptr(2) },
	} {
		t.Run("caller sets "+name, func(t *testing.T) {
			in := slotInput(t, "2020-08-06", "10:00", "10:15")
			mutate(&in)
			_, err := f.booking.CreateSlot(ctx, f.mentor, in)
			requireKind(t, err, service.KindInvalidArgument)
			assert.Contains(t, err.Error(), "illegal")
		})
	}

	t.Run("adjacent slots do not collide", func(t *testing.T) {
		_, err := f.booking.CreateSlot(ctx, f.mentor, slotInput(t, "2020-08-06", "10:00", "10:15"))
		require.NoError(t, err)
		_, err = f.booking.CreateSlot(ctx, f.mentor, slotInput(t, "2020-08-06", "10:15", "10:30"))
		require.NoError(t, err)
		_, err = f.booking.CreateSlot(ctx, f.mentor, slotInput(t, "2020-08-06", "09:45", "10:00"))
		require.NoError(t, err)
	})

	t.Run("same start collides", func(t *testing.T) {
		_, err := f.booking.CreateSlot(ctx, f.mentor, slotInput(t, "2020-08-06", "10:15", "10:30"))
		requireKind(t, err, service.KindCollision)
	})

	t.Run("same time on another day", func(t *testing.T) {
		_, err := f.booking.CreateSlot(ctx, f.mentor, slotInput(t, "2020-08-08", "10:00", "10:15"))
		require.NoError(t, err)
	})
}

func TestCreateSlotWithoutMentor(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Users().Delete(testContext(t), f.mentor.ID))

	_, err := f.booking.CreateSlot(testContext(t), f.mentor, slotInput(t, "2020-08-06", "10:00", "10:15"))
	requireKind(t, err, service.KindNotFound)
}

func TestBookSlotValidation(t *testing.T) {
	f := newFixture(t)
	ctx := testContext(t)

	_, err := f.booking.CreateSlot(ctx, f.mentor, slotInput(t, "2020-08-06", "10:00", "10:15"))
	require.NoError(t, err)

	t.Run("missing student id", func(t *testing.T) {
		_, err := f.booking.BookSlot(ctx, f.student, model.SlotInput{ID: int64Ptr(1)})
		requireKind(t, err, service.KindInvalidArgument)
	})

	t.Run("timing supplied", func(t *testing.T) {
		in := slotInput(t, "2020-08-06", "10:00", "10:15")
		in.ID = int64Ptr(1)
		in.StudentID = int64Ptr(2)
		_, err := f.booking.BookSlot(ctx, f.student, in)
		requireKind(t, err, service.KindInvalidArgument)
		assert.Contains(t, err.Error(), "illegal")
	})

	t.Run("mentor cannot book", func(t *testing.T) {
		_, err := f.booking.BookSlot(ctx, f.mentor, bookInput(1, 1))
		requireKind(t, err, service.KindUnauthorized)
	})

	t.Run("anonymous cannot book", func(t *testing.T) {
		_, err := f.booking.BookSlot(ctx, model.Caller{}, bookInput(1, 2))
		requireKind(t, err, service.KindUnauthorized)
	})

	t.Run("unknown login", func(t *testing.T) {
		ghost := model.Caller{Role: model.RoleStudent, Login: "ghost@example.com", ID: 2}
		_, err := f.booking.BookSlot(ctx, ghost, bookInput(1, 2))
		requireKind(t, err, service.KindUnauthorized)
	})

	t.Run("forged caller id is ignored", func(t *testing.T) {
		forged := f.student3
		forged.ID = 2
		_, err := f.booking.BookSlot(ctx, forged, bookInput(1, 2))
		requireKind(t, err, service.KindForbidden)
	})

	t.Run("unknown slot", func(t *testing.T) {
		_, err := f.booking.BookSlot(ctx, f.student, bookInput(42, 2))
		requireKind(t, err, service.KindNotFound)
		assert.Contains(t, err.Error(), "42")
	})

	slot, err := f.booking.GetSlot(ctx, f.mentor, 1)
	require.NoError(t, err)
	assert.Nil(t, slot.StudentID)
}

func TestBookSlotNotifiesBothParties(t *testing.T) {
	f := newFixture(t)
	ctx := testContext(t)

	_, err := f.booking.CreateSlot(ctx, f.mentor, slotInput(t, "2020-08-06", "15:20", "15:35"))
	require.NoError(t, err)
	_, err = f.booking.BookSlot(ctx, f.student, bookInput(1, 2))
	require.NoError(t, err)

	sent := f.notifier.sent()
	require.Len(t, sent, 2)

	assert.Equal(t, "john@example.com", sent[0].Recipient)
	assert.Equal(t, "Confirmation for meeting reservation", sent[0].Subject)
	assert.Contains(t, sent[0].Body, "You've made a reservation for a meeting at:")
	assert.Contains(t, sent[0].Body, "Date: 2020-08-06\nTime: 15:20-15:35\n")

	assert.Equal(t, "mentor@example.com", sent[1].Recipient)
	assert.Equal(t, "New meeting reservation", sent[1].Subject)
	assert.Contains(t, sent[1].Body, "Student: John Doe booked a meeting at:")
}

func TestBookSlotSurvivesNotifierFailure(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errDelivery
	ctx := testContext(t)

	_, err := f.booking.CreateSlot(ctx, f.mentor, slotInput(t, "2020-08-06", "15:20", "15:35"))
	require.NoError(t, err)

	slot, err := f.booking.BookSlot(ctx, f.student, bookInput(1, 2))
	require.NoError(t, err)
	assert.Equal(t, int64(2), *slot.StudentID)

	stored, err := f.booking.GetSlot(ctx, f.mentor, 1)
	require.NoError(t, err)
	assert.True(t, stored.IsBooked())
}

func TestConcurrentBookingHasOneWinner(t *testing.T) {
	f := newFixture(t)
	ctx := testContext(t)

	_, err := f.booking.CreateSlot(ctx, f.mentor, slotInput(t, "2020-08-06", "15:20", "15:35"))
	require.NoError(t, err)

	students := []model.Caller{f.student, f.student3}
	for i := 0; i < 8; i++ {
		students = append(students, f.register(t, fmt.Sprintf("student%d@example.com", i), "S", fmt.Sprint(i)))
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for _, student := range students {
		wg.Add(1)
		go func(caller model.Caller) {
			defer wg.Done()
			_, err := f.booking.BookSlot(ctx, caller, bookInput(1, caller.ID))

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case service.KindOf(err) == service.KindConflict:
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(student)
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, len(students)-1, conflicts)
}

func TestConcurrentCreateHasOneWinner(t *testing.T) {
	f := newFixture(t)
	ctx := testContext(t)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for _, minute := range []int{600, 605, 610, 600, 605, 610} {
		in := minuteSlot(t, "2020-08-06", minute)

		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.booking.CreateSlot(ctx, f.mentor, in)
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
				return
			}
			if service.KindOf(err) != service.KindCollision {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
}

func TestNoOverlapProperty(t *testing.T) {
	f := newFixture(t)
	ctx := testContext(t)
	rnd := rand.New(rand.NewSource(42))

	for i := 0; i < 200; i++ {
		in := minuteSlot(t, "2020-08-06", 9*60+rnd.Intn(120))

		_, err := f.booking.CreateSlot(ctx, f.mentor, in)
		if err != nil {
			requireKind(t, err, service.KindCollision)
		}
	}

	slots, err := f.booking.ListSlots(ctx, f.mentor)
	require.NoError(t, err)
	require.NotEmpty(t, slots)

	for i, a := range slots {
		for _, b := range slots[i+1:] {
			assert.False(t, a.StartTime.Equal(b.StartTime), "slots %d and %d share start", a.ID, b.ID)
			intersect := a.StartTime.Before(b.EndTime) && b.StartTime.Before(a.EndTime)
			assert.False(t, intersect, "slots %d and %d intersect", a.ID, b.ID)
		}
	}
}

func TestListSlotsForStudent(t *testing.T) {
	f := newFixture(t)
	ctx := testContext(t)

	for _, minute := range []int{600, 615, 630} {
		_, err := f.booking.CreateSlot(ctx, f.mentor, minuteSlot(t, "2020-08-06", minute))
		require.NoError(t, err)
	}

	_, err := f.booking.BookSlot(ctx, f.student, bookInput(1, 2))
	require.NoError(t, err)
	_, err = f.booking.BookSlot(ctx, f.student, bookInput(3, 2))
	require.NoError(t, err)
	_, err = f.booking.BookSlot(ctx, f.student3, bookInput(2, 3))
	require.NoError(t, err)

	slots, err := f.booking.ListSlotsForStudent(ctx, f.mentor, 2)
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Equal(t, int64(1), slots[0].ID)
	assert.Equal(t, int64(3), slots[1].ID)

	again, err := f.booking.ListSlotsForStudent(ctx, f.mentor, 2)
	require.NoError(t, err)
	assert.Equal(t, slots, again)

	_, err = f.booking.ListSlotsForStudent(ctx, f.mentor, 99)
	requireKind(t, err, service.KindNotFound)

	_, err = f.booking.ListSlotsForStudent(ctx, model.Caller{}, 2)
	requireKind(t, err, service.KindUnauthorized)
}

func TestDeleteSlot(t *testing.T) {
	f := newFixture(t)
	ctx := testContext(t)

	_, err := f.booking.CreateSlot(ctx, f.mentor, slotInput(t, "2020-08-06", "15:20", "15:35"))
	require.NoError(t, err)
	_, err = f.booking.BookSlot(ctx, f.student, bookInput(1, 2))
	require.NoError(t, err)

	err = f.booking.DeleteSlot(ctx, f.student, 1)
	requireKind(t, err, service.KindUnauthorized)

	require.NoError(t, f.booking.DeleteSlot(ctx, f.mentor, 1))

	_, err = f.booking.GetSlot(ctx, f.mentor, 1)
	requireKind(t, err, service.KindNotFound)

	err = f.booking.DeleteSlot(ctx, f.mentor, 1)
	requireKind(t, err, service.KindNotFound)

	sent := f.notifier.sent()
	require.Len(t, sent, 3)
	assert.Equal(t, "john@example.com", sent[2].Recipient)
	assert.Equal(t, "Meeting cancelled", sent[2].Subject)
}
