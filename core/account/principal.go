package account

import "github.com/smartclass/portal/core"

// Principal is the authenticated actor of a request: exactly one of *Student or *Faculty.
type Principal interface {
	GetAccount() *Account
	Role() Role
	principal()
}

type Student struct {
	Account Account        `json:"account"`
	Profile StudentProfile `json:"profile"`
}

type Faculty struct {
	Account Account        `json:"account"`
	Profile FacultyProfile `json:"profile"`
}

var (
	_ Principal = (*Student)(nil)
	_ Principal = (*Faculty)(nil)
)

func (s *Student) GetAccount() *Account { return &s.Account }
func (*Student) Role() Role             { return RoleStudent }
func (*Student) principal()             {}

func (f *Faculty) GetAccount() *Account { return &f.Account }
func (*Faculty) Role() Role             { return RoleFaculty }
func (*Faculty) principal()             {}

// AsStudent narrows p to a student or fails with an AuthorizationError.
func AsStudent(p Principal) (*Student, error) {
	if s, ok := p.(*Student); ok && s != nil {
		return s, nil
	}
	return nil, core.NewAuthorizationError("a student account is required")
}

// AsFaculty narrows p to a faculty member or fails with an AuthorizationError.
func AsFaculty(p Principal) (*Faculty, error) {
	if f, ok := p.(*Faculty); ok && f != nil {
		return f, nil
	}
	return nil, core.NewAuthorizationError("a faculty account is required")
}
