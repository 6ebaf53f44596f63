// Package memory хранит слоты и пользователей в памяти процесса.
// Используется в режиме разработки (STORE=memory) и в тестах сервисов.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"cloud.google.com/go/civil"
	"github.com/Freeeeeet/mentoring/internal/model"
	"github.com/Freeeeeet/mentoring/internal/repository"
)

// Store общее состояние; слоты и пользователи под одним мьютексом,
// чтобы проверять ссылочную целостность как внешние ключи в БД
type Store struct {
	mu         sync.RWMutex
	slots      map[int64]model.Slot
	users      map[int64]model.User
	nextSlotID int64
	nextUserID int64
}

func NewStore() *Store {
	return &Store{
		slots: make(map[int64]model.Slot),
		users: make(map[int64]model.User),
	}
}

// Slots возвращает хранилище слотов
func (s *Store) Slots() *SlotStore {
	return &SlotStore{s: s}
}

// Users возвращает хранилище пользователей
func (s *Store) Users() *UserStore {
	return &UserStore{s: s}
}

type SlotStore struct {
	s *Store
}

func copySlot(slot model.Slot) *model.Slot {
	if slot.StudentID != nil {
		id := *slot.StudentID
		slot.StudentID = &id
	}
	return &slot
}

func (st *SlotStore) filter(keep func(model.Slot) bool) []*model.Slot {
	st.s.mu.RLock()
	defer st.s.mu.RUnlock()

	slots := []*model.Slot{}
	for _, slot := range st.s.slots {
		if keep(slot) {
			slots = append(slots, copySlot(slot))
		}
	}

	sort.Slice(slots, func(i, j int) bool {
		a, b := slots[i], slots[j]
		if a.Date != b.Date {
			return a.Date.Before(b.Date)
		}
		if !a.StartTime.Equal(b.StartTime) {
			return a.StartTime.Before(b.StartTime)
		}
		return a.ID < b.ID
	})

	return slots
}

func (st *SlotStore) Create(_ context.Context, slot *model.Slot) error {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()

	if _, ok := st.s.users[slot.MentorID]; !ok {
		return repository.ErrUserNotFound
	}
	for _, existing := range st.s.slots {
		if existing.Date == slot.Date && existing.StartTime.Equal(slot.StartTime) {
			return repository.ErrSlotCollision
		}
	}

	st.s.nextSlotID++
	slot.ID = st.s.nextSlotID
	slot.CreatedAt = time.Now()
	st.s.slots[slot.ID] = *copySlot(*slot)

	return nil
}

func (st *SlotStore) GetByID(_ context.Context, id int64) (*model.Slot, error) {
	st.s.mu.RLock()
	defer st.s.mu.RUnlock()

	slot, ok := st.s.slots[id]
	if !ok {
		return nil, nil
	}
	return copySlot(slot), nil
}

func (st *SlotStore) GetByDate(_ context.Context, date civil.Date) ([]*model.Slot, error) {
	return st.filter(func(slot model.Slot) bool { return slot.Date == date }), nil
}

func (st *SlotStore) GetByStudent(_ context.Context, studentID int64) ([]*model.Slot, error) {
	return st.filter(func(slot model.Slot) bool {
		return slot.StudentID != nil && *slot.StudentID == studentID
	}), nil
}

func (st *SlotStore) GetAll(_ context.Context) ([]*model.Slot, error) {
	return st.filter(func(model.Slot) bool { return true }), nil
}

// AssignStudent условная запись: только если студент ещё не назначен
func (st *SlotStore) AssignStudent(_ context.Context, slotID, studentID int64) error {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()

	slot, ok := st.s.slots[slotID]
	if !ok {
		return repository.ErrSlotNotFound
	}
	if slot.StudentID != nil {
		return repository.ErrSlotTaken
	}
	if _, ok := st.s.users[studentID]; !ok {
		return repository.ErrUserNotFound
	}

	slot.StudentID = &studentID
	st.s.slots[slotID] = slot

	return nil
}

func (st *SlotStore) Delete(_ context.Context, id int64) error {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()

	if _, ok := st.s.slots[id]; !ok {
		return repository.ErrSlotNotFound
	}
	delete(st.s.slots, id)

	return nil
}

type UserStore struct {
	s *Store
}

func copyUser(user model.User) *model.User {
	if user.TelegramChatID != nil {
		id := *user.TelegramChatID
		user.TelegramChatID = &id
	}
	return &user
}

func (us *UserStore) mailTaken(mail string, exceptID int64) bool {
	for _, user := range us.s.users {
		if user.Mail == mail && user.ID != exceptID {
			return true
		}
	}
	return false
}

func (us *UserStore) Create(_ context.Context, user *model.User) error {
	us.s.mu.Lock()
	defer us.s.mu.Unlock()

	if us.mailTaken(user.Mail, 0) {
		return repository.ErrLoginTaken
	}

	us.s.nextUserID++
	user.ID = us.s.nextUserID
	user.CreatedAt = time.Now()
	us.s.users[user.ID] = *copyUser(*user)

	return nil
}

func (us *UserStore) GetByID(_ context.Context, id int64) (*model.User, error) {
	us.s.mu.RLock()
	defer us.s.mu.RUnlock()

	user, ok := us.s.users[id]
	if !ok {
		return nil, nil
	}
	return copyUser(user), nil
}

func (us *UserStore) GetByMail(_ context.Context, mail string) (*model.User, error) {
	us.s.mu.RLock()
	defer us.s.mu.RUnlock()

	for _, user := range us.s.users {
		if user.Mail == mail {
			return copyUser(user), nil
		}
	}
	return nil, nil
}

func (us *UserStore) GetFirstByRole(ctx context.Context, role model.Role) (*model.User, error) {
	users, err := us.ListByRole(ctx, role)
	if err != nil || len(users) == 0 {
		return nil, err
	}
	return users[0], nil
}

func (us *UserStore) ListByRole(_ context.Context, role model.Role) ([]*model.User, error) {
	us.s.mu.RLock()
	defer us.s.mu.RUnlock()

	users := []*model.User{}
	for _, user := range us.s.users {
		if user.Role == role {
			users = append(users, copyUser(user))
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })

	return users, nil
}

// Update меняет только изменяемые поля, роль и дата создания остаются прежними
func (us *UserStore) Update(_ context.Context, user *model.User) error {
	us.s.mu.Lock()
	defer us.s.mu.Unlock()

	existing, ok := us.s.users[user.ID]
	if !ok {
		return repository.ErrUserNotFound
	}
	if us.mailTaken(user.Mail, user.ID) {
		return repository.ErrLoginTaken
	}

	existing.Mail = user.Mail
	existing.PasswordHash = user.PasswordHash
	existing.FirstName = user.FirstName
	existing.LastName = user.LastName
	existing.TelegramChatID = user.TelegramChatID
	us.s.users[user.ID] = *copyUser(existing)

	return nil
}

func (us *UserStore) Delete(_ context.Context, id int64) error {
	us.s.mu.Lock()
	defer us.s.mu.Unlock()

	if _, ok := us.s.users[id]; !ok {
		return repository.ErrUserNotFound
	}
	for _, slot := range us.s.slots {
		if slot.MentorID == id || (slot.StudentID != nil && *slot.StudentID == id) {
			return repository.ErrStudentHasSlots
		}
	}
	delete(us.s.users, id)

	return nil
}
