package model

// Caller личность текущего запроса. Нулевое значение - аноним.
type Caller struct {
	Role  Role
	Login string
	ID    int64
}

func (c Caller) IsAnonymous() bool {
	return c.Login == ""
}

func (c Caller) IsMentor() bool {
	return !c.IsAnonymous() && c.Role == RoleMentor
}

func (c Caller) IsStudent() bool {
	return !c.IsAnonymous() && c.Role == RoleStudent
}
