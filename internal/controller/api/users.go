package api

import (
	"net/http"

	"github.com/Freeeeeet/mentoring/internal/model"
)

func (a *API) getMentor(w http.ResponseWriter, r *http.Request) {
	mentor, err := a.directory.GetMentor(r.Context(), CallerFrom(r.Context()))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.Response(w, http.StatusOK, mentor)
}

func (a *API) getMentorByID(w http.ResponseWriter, r *http.Request) {
	id, ok := a.pathID(w, r)
	if !ok {
		return
	}

	mentor, err := a.directory.GetMentorByID(r.Context(), CallerFrom(r.Context()), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.Response(w, http.StatusOK, mentor)
}

func (a *API) listStudents(w http.ResponseWriter, r *http.Request) {
	students, err := a.directory.ListStudents(r.Context(), CallerFrom(r.Context()))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.Response(w, http.StatusOK, students)
}

func (a *API) getStudent(w http.ResponseWriter, r *http.Request) {
	id, ok := a.pathID(w, r)
	if !ok {
		return
	}

	student, err := a.directory.GetStudent(r.Context(), CallerFrom(r.Context()), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.Response(w, http.StatusOK, student)
}

func (a *API) registerStudent(w http.ResponseWriter, r *http.Request) {
	var in model.StudentInput
	if !a.decode(w, r, &in) {
		return
	}

	student, err := a.directory.RegisterStudent(r.Context(), CallerFrom(r.Context()), in)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.Response(w, http.StatusCreated, student)
}

func (a *API) updateStudent(w http.ResponseWriter, r *http.Request) {
	var in model.StudentInput
	if !a.decode(w, r, &in) {
		return
	}

	student, err := a.directory.UpdateStudent(r.Context(), CallerFrom(r.Context()), in)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.Response(w, http.StatusOK, student)
}

func (a *API) deleteStudent(w http.ResponseWriter, r *http.Request) {
	id, ok := a.pathID(w, r)
	if !ok {
		return
	}

	if err := a.directory.DeleteStudent(r.Context(), CallerFrom(r.Context()), id); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
