package account

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/smartclass/portal/core"
)

type Role string

// Roles
const (
	RoleStudent Role = "student"
	RoleFaculty Role = "faculty"
)

func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleFaculty
}

// Gender values accepted on a FacultyProfile.
const (
	GenderMale   = "Male"
	GenderFemale = "Female"
	GenderOther  = "Other"
)

type Account struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	PasswordHash []byte    `json:"-"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`           // UTC
	UpdatedAt    time.Time `json:"updated_at"`           // UTC
	LastLogin    time.Time `json:"last_login,omitempty"` // UTC
}

func (a *Account) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	a.PasswordHash = hash
	return nil
}

func (a *Account) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(a.PasswordHash, []byte(pwd))
}

func (a *Account) FullName() string {
	switch {
	case a.FirstName == "":
		return a.LastName
	case a.LastName == "":
		return a.FirstName
	}
	return a.FirstName + " " + a.LastName
}

type StudentProfile struct {
	ID           int64  `json:"id"`
	AccountID    int64  `json:"account_id"`
	RollNo       string `json:"roll_no"`
	Semester     int    `json:"semester"`
	Department   string `json:"department"`
	FatherName   string `json:"father_name"`
	MotherName   string `json:"mother_name"`
	Address      string `json:"address"`
	MobileNumber string `json:"mobile_number"`
	ParentPhone  string `json:"parent_phone"`
	Photo        string `json:"photo"`
	Signature    string `json:"signature"`
}

type FacultyProfile struct {
	ID             int64      `json:"id"`
	AccountID      int64      `json:"account_id"`
	EmployeeID     string     `json:"employee_id"`
	Designation    string     `json:"designation"`
	Department     string     `json:"department"`
	DateOfBirth    *time.Time `json:"date_of_birth"`
	Gender         string     `json:"gender"`
	FatherName     string     `json:"father_name"`
	MotherName     string     `json:"mother_name"`
	PhoneNumber    string     `json:"phone_number"`
	Address        string     `json:"address"`
	Qualifications string     `json:"qualifications"`
	Experience     string     `json:"experience"`
	Photo          string     `json:"photo"`
}

// NewAccount contains information needed to register a new Account.
type NewAccount struct {
	Username        string `json:"username" form:"username" validate:"required,max=150,alphanum_"`
	Email           string `json:"email" form:"email" validate:"omitempty,max=254,email"`
	FirstName       string `json:"first_name" form:"first_name" validate:"max=150"`
	LastName        string `json:"last_name" form:"last_name" validate:"max=150"`
	Password        string `json:"password" form:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" form:"password_confirm" validate:"omitempty,eqfield=Password"`
}

func (na *NewAccount) Clean() {
	na.Username = core.CleanString(na.Username, true /* lower */)
	na.Email = core.CleanString(na.Email, true /* lower */)
	na.FirstName = core.CleanString(na.FirstName)
	na.LastName = core.CleanString(na.LastName)
}

// ResetPassword is the password reset confirmation, uid and token coming from the emailed link.
type ResetPassword struct {
	UID             string `json:"uid" form:"uid" validate:"required"`
	Token           string `json:"token" form:"token" validate:"required"`
	Password        string `json:"password" form:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" form:"password_confirm" validate:"required,eqfield=Password"`
}

// UpdateStudentProfile defines what a student may change on their own profile.
type UpdateStudentProfile struct {
	Email        string `json:"email" form:"email" validate:"required,max=254,email"`
	RollNo       string `json:"roll_no" form:"roll_no" validate:"max=50"`
	Semester     int    `json:"semester" form:"semester" validate:"min=0"`
	Department   string `json:"department" form:"department" validate:"max=100"`
	FatherName   string `json:"father_name" form:"father_name" validate:"max=100"`
	MotherName   string `json:"mother_name" form:"mother_name" validate:"max=100"`
	Address      string `json:"address" form:"address"`
	MobileNumber string `json:"mobile_number" form:"mobile_number" validate:"max=15"`
	ParentPhone  string `json:"parent_phone" form:"parent_phone" validate:"max=15"`

	// file references, set when a new file was stored
	Photo     string `json:"-" form:"-"`
	Signature string `json:"-" form:"-"`
}

func (up *UpdateStudentProfile) Clean() {
	up.Email = core.CleanString(up.Email, true /* lower */)
	up.RollNo = core.CleanString(up.RollNo)
	up.Department = core.CleanString(up.Department)
	up.FatherName = core.CleanString(up.FatherName)
	up.MotherName = core.CleanString(up.MotherName)
	up.Address = core.CleanString(up.Address)
	up.MobileNumber = core.CleanString(up.MobileNumber)
	up.ParentPhone = core.CleanString(up.ParentPhone)
}

// UpdateFacultyProfile defines what a faculty member may change on their own profile.
type UpdateFacultyProfile struct {
	FullName       string `json:"full_name" form:"full_name" validate:"required,max=300"`
	Email          string `json:"email" form:"email" validate:"required,max=254,email"`
	EmployeeID     string `json:"employee_id" form:"employee_id" validate:"max=50"`
	Designation    string `json:"designation" form:"designation" validate:"max=100"`
	Department     string `json:"department" form:"department" validate:"max=100"`
	DateOfBirth    string `json:"date_of_birth" form:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
	Gender         string `json:"gender" form:"gender" validate:"omitempty,oneof=Male Female Other"`
	FatherName     string `json:"father_name" form:"father_name" validate:"max=100"`
	MotherName     string `json:"mother_name" form:"mother_name" validate:"max=100"`
	PhoneNumber    string `json:"phone_number" form:"phone_number" validate:"max=15"`
	Address        string `json:"address" form:"address"`
	Qualifications string `json:"qualifications" form:"qualifications"`
	Experience     string `json:"experience" form:"experience"`

	Photo string `json:"-" form:"-"`
}

func (up *UpdateFacultyProfile) Clean() {
	up.FullName = core.CleanString(up.FullName)
	up.Email = core.CleanString(up.Email, true /* lower */)
	up.EmployeeID = core.CleanString(up.EmployeeID)
	up.Designation = core.CleanString(up.Designation)
	up.Department = core.CleanString(up.Department)
	up.DateOfBirth = core.CleanString(up.DateOfBirth)
	up.Gender = core.CleanString(up.Gender)
	up.FatherName = core.CleanString(up.FatherName)
	up.MotherName = core.CleanString(up.MotherName)
	up.PhoneNumber = core.CleanString(up.PhoneNumber)
	up.Address = core.CleanString(up.Address)
	up.Qualifications = core.CleanString(up.Qualifications)
	up.Experience = core.CleanString(up.Experience)
}

// splitName splits a full name on its first space: "Ada Byron King" -> ("Ada", "Byron King").
func splitName(full string) (first, last string) {
	for i, r := range full {
		if r == ' ' {
			return full[:i], core.CleanString(full[i+1:])
		}
	}
	return full, ""
}
