package api

import (
	"net/http"
	"strconv"

	"github.com/Freeeeeet/mentoring/internal/model"
	"github.com/gorilla/mux"
)

func (a *API) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		a.Error(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func (a *API) listSlots(w http.ResponseWriter, r *http.Request) {
	slots, err := a.booking.ListSlots(r.Context(), CallerFrom(r.Context()))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.Response(w, http.StatusOK, slots)
}

func (a *API) getSlot(w http.ResponseWriter, r *http.Request) {
	id, ok := a.pathID(w, r)
	if !ok {
		return
	}

	slot, err := a.booking.GetSlot(r.Context(), CallerFrom(r.Context()), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.Response(w, http.StatusOK, slot)
}

func (a *API) listStudentSlots(w http.ResponseWriter, r *http.Request) {
	id, ok := a.pathID(w, r)
	if !ok {
		return
	}

	slots, err := a.booking.ListSlotsForStudent(r.Context(), CallerFrom(r.Context()), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.Response(w, http.StatusOK, slots)
}

func (a *API) createSlot(w http.ResponseWriter, r *http.Request) {
	var in model.SlotInput
	if !a.decode(w, r, &in) {
		return
	}

	slot, err := a.booking.CreateSlot(r.Context(), CallerFrom(r.Context()), in)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.Response(w, http.StatusCreated, slot)
}

// bookSlot PUT /meeting: {"id": ..., "studentId": ...}
func (a *API) bookSlot(w http.ResponseWriter, r *http.Request) {
	var in model.SlotInput
	if !a.decode(w, r, &in) {
		return
	}

	slot, err := a.booking.BookSlot(r.Context(), CallerFrom(r.Context()), in)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.Response(w, http.StatusOK, slot)
}

func (a *API) deleteSlot(w http.ResponseWriter, r *http.Request) {
	id, ok := a.pathID(w, r)
	if !ok {
		return
	}

	if err := a.booking.DeleteSlot(r.Context(), CallerFrom(r.Context()), id); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
