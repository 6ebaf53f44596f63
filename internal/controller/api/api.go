// Package api HTTP-интерфейс сервиса бронирования встреч.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/Freeeeeet/mentoring/internal/model"
	"github.com/Freeeeeet/mentoring/internal/service"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Booking операции со слотами
type Booking interface {
	CreateSlot(ctx context.Context, caller model.Caller, in model.SlotInput) (*model.Slot, error)
	BookSlot(ctx context.Context, caller model.Caller, in model.SlotInput) (*model.Slot, error)
	GetSlot(ctx context.Context, caller model.Caller, id int64) (*model.Slot, error)
	ListSlots(ctx context.Context, caller model.Caller) ([]*model.Slot, error)
	ListSlotsForStudent(ctx context.Context, caller model.Caller, studentID int64) ([]*model.Slot, error)
	DeleteSlot(ctx context.Context, caller model.Caller, id int64) error
}

// Directory операции с пользователями
type Directory interface {
	Authenticate(ctx context.Context, mail, password string) (model.Caller, error)
	Resolve(ctx context.Context, caller model.Caller) (model.Caller, error)
	GetMentor(ctx context.Context, caller model.Caller) (*model.User, error)
	GetMentorByID(ctx context.Context, caller model.Caller, id int64) (*model.User, error)
	GetStudent(ctx context.Context, caller model.Caller, id int64) (*model.User, error)
	ListStudents(ctx context.Context, caller model.Caller) ([]*model.User, error)
	RegisterStudent(ctx context.Context, caller model.Caller, in model.StudentInput) (*model.User, error)
	UpdateStudent(ctx context.Context, caller model.Caller, in model.StudentInput) (*model.User, error)
	DeleteStudent(ctx context.Context, caller model.Caller, id int64) error
}

// Options настройки транспорта
type Options struct {
	RequestTimeout     time.Duration
	RateLimitPerMinute int
}

type API struct {
	router    *mux.Router
	booking   Booking
	directory Directory
	tokens    *TokenIssuer
	opts      Options
	limiter   *ipLimiter
	logger    *zap.Logger
}

func NewAPI(booking Booking, directory Directory, tokens *TokenIssuer, opts Options, logger *zap.Logger) *API {
	return &API{
		router:    mux.NewRouter(),
		booking:   booking,
		directory: directory,
		tokens:    tokens,
		opts:      opts,
		limiter:   newIPLimiter(opts.RateLimitPerMinute),
		logger:    logger,
	}
}

// Router маршрутизатор без внешних middleware
func (a *API) Router() *mux.Router {
	return a.router
}

func (a *API) RegisterRoutes() {
	a.router.Use(a.authenticate)

	a.router.HandleFunc("/health", a.health).Methods(http.MethodGet)
	a.router.HandleFunc("/auth/token", a.issueToken).Methods(http.MethodPost)

	a.router.HandleFunc("/meeting", a.listSlots).Methods(http.MethodGet)
	a.router.HandleFunc("/meeting", a.createSlot).Methods(http.MethodPost)
	a.router.HandleFunc("/meeting", a.bookSlot).Methods(http.MethodPut)
	a.router.HandleFunc("/meeting/{id:[0-9]+}", a.getSlot).Methods(http.MethodGet)
	a.router.HandleFunc("/meeting/{id:[0-9]+}", a.deleteSlot).Methods(http.MethodDelete)
	a.router.HandleFunc("/meeting/student/{id:[0-9]+}", a.listStudentSlots).Methods(http.MethodGet)

	a.router.HandleFunc("/user/mentor", a.getMentor).Methods(http.MethodGet)
	a.router.HandleFunc("/user/mentor/{id:[0-9]+}", a.getMentorByID).Methods(http.MethodGet)
	a.router.HandleFunc("/user/student", a.listStudents).Methods(http.MethodGet)
	a.router.HandleFunc("/user/student", a.registerStudent).Methods(http.MethodPost)
	a.router.HandleFunc("/user/student", a.updateStudent).Methods(http.MethodPut)
	a.router.HandleFunc("/user/student/{id:[0-9]+}", a.getStudent).Methods(http.MethodGet)
	a.router.HandleFunc("/user/student/{id:[0-9]+}", a.deleteStudent).Methods(http.MethodDelete)
}

type errorResponse struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}

func (a *API) Response(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		a.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (a *API) Error(w http.ResponseWriter, status int, message string) {
	a.Response(w, status, errorResponse{Timestamp: time.Now().UTC(), Message: message})
}

// statusOf переводит ошибку сервиса в HTTP-статус
func statusOf(err error) int {
	switch service.KindOf(err) {
	case service.KindInvalidArgument:
		return http.StatusBadRequest
	case service.KindUnauthorized:
		return http.StatusUnauthorized
	case service.KindForbidden:
		return http.StatusForbidden
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindConflict, service.KindCollision:
		return http.StatusConflict
	case service.KindStoreUnavailable:
		return http.StatusServiceUnavailable
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (a *API) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	message := err.Error()

	if status >= http.StatusInternalServerError {
		a.logger.Error("Request failed",
			zap.String("request_id", RequestID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		if status == http.StatusInternalServerError {
			message = "internal error"
		}
	}
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Basic realm="mentoring"`)
	}

	a.Error(w, status, message)
}

func (a *API) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		a.Error(w, http.StatusBadRequest, "malformed request body: "+err.Error())
		return false
	}
	return true
}

func (a *API) health(w http.ResponseWriter, _ *http.Request) {
	a.Response(w, http.StatusOK, map[string]string{"status": "ok"})
}
