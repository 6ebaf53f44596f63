package service

import "github.com/Freeeeeet/mentoring/internal/model"

// Operation действие, которое проверяет Authorize
type Operation string

const (
	OpCreateSlot      Operation = "create_slot"
	OpReadSlots       Operation = "read_slots"
	OpBookSlot        Operation = "book_slot"
	OpDeleteSlot      Operation = "delete_slot"
	OpReadMentor      Operation = "read_mentor"
	OpReadStudents    Operation = "read_students"
	OpRegisterStudent Operation = "register_student"
	OpUpdateStudent   Operation = "update_student"
	OpDeleteStudent   Operation = "delete_student"
)

// Authorize решает, может ли caller выполнить op.
//
//	операция              MENTOR  STUDENT(сам)  STUDENT(другой)  аноним
//	create/delete slot    да      нет           нет              нет
//	read slots/students   да      да            да               нет
//	read mentor           да      нет           нет              нет
//	book slot             нет     да            нет              нет
//	register student      нет     -             -                да
//	update/delete student нет     да            нет              нет
//
// Для операций "только над собой" target - ID из запроса, а caller.ID
// должен быть каноническим ID, найденным по логину (DirectoryService.Resolve).
func Authorize(op Operation, caller model.Caller, target *int64) error {
	switch op {
	case OpCreateSlot, OpDeleteSlot, OpReadMentor:
		if !caller.IsMentor() {
			return unauthorized("mentor role required")
		}
		return nil

	case OpReadSlots, OpReadStudents:
		if !caller.IsMentor() && !caller.IsStudent() {
			return unauthorized("authentication required")
		}
		return nil

	case OpRegisterStudent:
		if !caller.IsAnonymous() {
			return forbidden("authenticated user cannot register a student")
		}
		return nil

	case OpBookSlot:
		if !caller.IsStudent() {
			return unauthorized("student role required")
		}
		if target == nil || *target != caller.ID {
			return forbidden("student cannot book for another student")
		}
		return nil

	case OpUpdateStudent, OpDeleteStudent:
		if !caller.IsStudent() {
			return unauthorized("student role required")
		}
		if target == nil || *target != caller.ID {
			return forbidden("student can only modify own record")
		}
		return nil
	}

	return forbidden("unknown operation")
}
