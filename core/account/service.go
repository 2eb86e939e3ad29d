package account

import (
	"context"
	"net/mail"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/smartclass/portal/core"
)

var (
	// errors
	ErrUsernameExists     = errors.New("an account with this username already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")

	NowFunc = func() time.Time { return time.Now().UTC() } // mockable
)

type (
	Repository interface {
		UsernameExists(ctx context.Context, username string) (bool, error)
		// CreateStudent and CreateFaculty store the account and its profile atomically.
		// They return ErrUsernameExists when the username is taken.
		CreateStudent(ctx context.Context, acc Account, prof StudentProfile) (Student, error)
		CreateFaculty(ctx context.Context, acc Account, prof FacultyProfile) (Faculty, error)
		GetAccountByID(ctx context.Context, id int64) (Account, error)
		GetAccountByUsername(ctx context.Context, username string) (Account, error)
		// ListActiveAccountsByEmail returns the active accounts using email, ordered by username.
		ListActiveAccountsByEmail(ctx context.Context, email string) ([]Account, error)
		GetStudentByAccountID(ctx context.Context, accountID int64) (Student, error)
		GetFacultyByAccountID(ctx context.Context, accountID int64) (Faculty, error)
		GetStudent(ctx context.Context, studentID int64) (Student, error)
		// ListStudents returns every student ordered by username.
		ListStudents(ctx context.Context) ([]Student, error)
		UpdateLastLogin(ctx context.Context, accountID int64, at time.Time) error
		UpdatePassword(ctx context.Context, accountID int64, hash []byte, at time.Time) error
		// UpdateStudent and UpdateFaculty save the account names/email and the whole profile.
		UpdateStudent(ctx context.Context, s Student) (Student, error)
		UpdateFaculty(ctx context.Context, f Faculty) (Faculty, error)
	}

	Service struct {
		repo     Repository
		validate *validator.Validate
		mailer   core.EmailService
		tokens   *ResetTokenGenerator
	}
)

func NewService(repo Repository, validate *validator.Validate, mailer core.EmailService, tokens *ResetTokenGenerator) *Service {
	return &Service{repo: repo, validate: validate, mailer: mailer, tokens: tokens}
}

func usernameTakenError() error {
	return core.NewValidationError(ErrUsernameExists, core.FieldError{Field: "username", Error: ErrUsernameExists.Error()})
}

func (svc *Service) newAccount(ctx context.Context, na *NewAccount) (Account, error) {
	na.Clean()
	if err := svc.validate.Struct(na); err != nil {
		return Account{}, err
	}
	exists, err := svc.repo.UsernameExists(ctx, na.Username)
	if err != nil {
		return Account{}, errors.Wrap(err, "checking username")
	}
	if exists {
		return Account{}, usernameTakenError()
	}

	now := NowFunc()
	acc := Account{
		Username:  na.Username,
		Email:     na.Email,
		FirstName: na.FirstName,
		LastName:  na.LastName,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := acc.SetPassword(na.Password); err != nil {
		return Account{}, errors.Wrap(err, "hashing password")
	}
	return acc, nil
}

// RegisterStudent creates an Account together with its StudentProfile.
func (svc *Service) RegisterStudent(ctx context.Context, na NewAccount) (*Student, error) {
	acc, err := svc.newAccount(ctx, &na)
	if err != nil {
		return nil, err
	}
	s, err := svc.repo.CreateStudent(ctx, acc, StudentProfile{})
	if err != nil {
		if errors.Cause(err) == ErrUsernameExists {
			return nil, usernameTakenError()
		}
		return nil, errors.Wrap(err, "creating student")
	}
	svc.sendWelcome(s.Account, RoleStudent)
	return &s, nil
}

// RegisterFaculty creates an Account together with its FacultyProfile.
func (svc *Service) RegisterFaculty(ctx context.Context, na NewAccount) (*Faculty, error) {
	acc, err := svc.newAccount(ctx, &na)
	if err != nil {
		return nil, err
	}
	f, err := svc.repo.CreateFaculty(ctx, acc, FacultyProfile{})
	if err != nil {
		if errors.Cause(err) == ErrUsernameExists {
			return nil, usernameTakenError()
		}
		return nil, errors.Wrap(err, "creating faculty")
	}
	svc.sendWelcome(f.Account, RoleFaculty)
	return &f, nil
}

func (svc *Service) sendWelcome(acc Account, role Role) {
	if svc.mailer == nil || acc.Email == "" {
		return
	}
	svc.mailer.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: acc.FullName(), Address: acc.Email}},
		Subject:      "Welcome",
		TemplateName: "welcome",
		TemplateData: map[string]interface{}{"Username": acc.Username, "Role": string(role)},
	})
}

// Authenticate checks the credentials and returns the principal of the requested role.
// Unknown usernames, wrong passwords, deactivated accounts and accounts of the other role
// all fail with the same ValidationError.
func (svc *Service) Authenticate(ctx context.Context, username, pwd string, role Role) (Principal, error) {
	failed := core.NewValidationError(errors.Errorf("%s or not a %s", ErrInvalidCredentials, role))

	acc, err := svc.repo.GetAccountByUsername(ctx, core.CleanString(username, true /* lower */))
	if err != nil {
		if core.IsNotFound(err) {
			return nil, failed
		}
		return nil, errors.Wrap(err, "getting account")
	}
	if !acc.IsActive || acc.CheckPassword(pwd) != nil {
		return nil, failed
	}

	p, err := svc.ResolvePrincipal(ctx, acc.ID, role)
	if err != nil {
		if core.IsNotFound(err) {
			return nil, failed
		}
		return nil, err
	}

	now := NowFunc()
	if err := svc.repo.UpdateLastLogin(ctx, acc.ID, now); err != nil {
		return nil, errors.Wrap(err, "updating last login")
	}
	p.GetAccount().LastLogin = now
	return p, nil
}

// ResolvePrincipal loads the account and its profile of the given role.
func (svc *Service) ResolvePrincipal(ctx context.Context, accountID int64, role Role) (Principal, error) {
	switch role {
	case RoleStudent:
		s, err := svc.repo.GetStudentByAccountID(ctx, accountID)
		if err != nil {
			return nil, errors.Wrap(err, "getting student")
		}
		return &s, nil
	case RoleFaculty:
		f, err := svc.repo.GetFacultyByAccountID(ctx, accountID)
		if err != nil {
			return nil, errors.Wrap(err, "getting faculty")
		}
		return &f, nil
	}
	return nil, core.NewNotFoundError("role")
}

func (svc *Service) GetStudent(ctx context.Context, studentID int64) (*Student, error) {
	s, err := svc.repo.GetStudent(ctx, studentID)
	if err != nil {
		return nil, errors.Wrap(err, "getting student")
	}
	return &s, nil
}

func (svc *Service) ListStudents(ctx context.Context) ([]Student, error) {
	students, err := svc.repo.ListStudents(ctx)
	return students, errors.Wrap(err, "listing students")
}

func (svc *Service) UpdateStudentProfile(ctx context.Context, s *Student, up UpdateStudentProfile) (*Student, error) {
	up.Clean()
	if err := svc.validate.Struct(up); err != nil {
		return nil, err
	}

	upd := *s
	upd.Account.Email = up.Email
	upd.Account.UpdatedAt = NowFunc()
	upd.Profile.RollNo = up.RollNo
	upd.Profile.Semester = up.Semester
	upd.Profile.Department = up.Department
	upd.Profile.FatherName = up.FatherName
	upd.Profile.MotherName = up.MotherName
	upd.Profile.Address = up.Address
	upd.Profile.MobileNumber = up.MobileNumber
	upd.Profile.ParentPhone = up.ParentPhone
	if up.Photo != "" {
		upd.Profile.Photo = up.Photo
	}
	if up.Signature != "" {
		upd.Profile.Signature = up.Signature
	}

	saved, err := svc.repo.UpdateStudent(ctx, upd)
	if err != nil {
		return nil, errors.Wrap(err, "updating student")
	}
	return &saved, nil
}

func (svc *Service) UpdateFacultyProfile(ctx context.Context, f *Faculty, up UpdateFacultyProfile) (*Faculty, error) {
	up.Clean()
	if err := svc.validate.Struct(up); err != nil {
		return nil, err
	}

	upd := *f
	upd.Account.FirstName, upd.Account.LastName = splitName(up.FullName)
	upd.Account.Email = up.Email
	upd.Account.UpdatedAt = NowFunc()
	upd.Profile.EmployeeID = up.EmployeeID
	upd.Profile.Designation = up.Designation
	upd.Profile.Department = up.Department
	upd.Profile.DateOfBirth = nil
	if up.DateOfBirth != "" {
		dob, err := time.Parse("2006-01-02", up.DateOfBirth)
		if err != nil {
			return nil, core.NewFieldError("date_of_birth", "enter a valid date (YYYY-MM-DD)")
		}
		upd.Profile.DateOfBirth = &dob
	}
	upd.Profile.Gender = up.Gender
	upd.Profile.FatherName = up.FatherName
	upd.Profile.MotherName = up.MotherName
	upd.Profile.PhoneNumber = up.PhoneNumber
	upd.Profile.Address = up.Address
	upd.Profile.Qualifications = up.Qualifications
	upd.Profile.Experience = up.Experience
	if up.Photo != "" {
		upd.Profile.Photo = up.Photo
	}

	saved, err := svc.repo.UpdateFaculty(ctx, upd)
	if err != nil {
		return nil, errors.Wrap(err, "updating faculty")
	}
	return &saved, nil
}

// ResetPassword sets a new password on the account with the given username.
func (svc *Service) ResetPassword(ctx context.Context, username, pwd string) error {
	if core.CleanString(pwd) == "" {
		return core.NewFieldError("password", "this field is required")
	}
	acc, err := svc.repo.GetAccountByUsername(ctx, core.CleanString(username, true /* lower */))
	if err != nil {
		return errors.Wrap(err, "getting account")
	}
	if err := acc.SetPassword(pwd); err != nil {
		return errors.Wrap(err, "hashing password")
	}
	return errors.Wrap(svc.repo.UpdatePassword(ctx, acc.ID, acc.PasswordHash, NowFunc()), "updating password")
}

// RequestPasswordReset emails a reset link to every active account using email.
// An unknown email is not an error.
func (svc *Service) RequestPasswordReset(ctx context.Context, email string) error {
	email = core.CleanString(email, true /* lower */)
	if err := svc.validate.Var(email, "required,email"); err != nil {
		return core.NewFieldError("email", "enter a valid email address")
	}
	accounts, err := svc.repo.ListActiveAccountsByEmail(ctx, email)
	if err != nil {
		return errors.Wrap(err, "listing accounts")
	}

	messages := make([]*core.EmailMessage, 0, len(accounts))
	for _, acc := range accounts {
		messages = append(messages, &core.EmailMessage{
			To:           []mail.Address{{Name: acc.FullName(), Address: acc.Email}},
			Subject:      "Password reset",
			TemplateName: "password_reset",
			TemplateData: map[string]interface{}{"Username": acc.Username, "URL": svc.tokens.Link(acc)},
		})
	}
	if len(messages) > 0 && svc.mailer != nil {
		svc.mailer.SendMessages(messages...)
	}
	return nil
}

// ConfirmPasswordReset sets the new password of the account the reset link was made for.
func (svc *Service) ConfirmPasswordReset(ctx context.Context, rp ResetPassword) error {
	if err := svc.validate.Struct(rp); err != nil {
		return err
	}

	invalid := func(field string) error {
		return core.NewFieldError(field, "invalid value")
	}
	id, err := decodeUID(rp.UID)
	if err != nil {
		return invalid("uid")
	}
	acc, err := svc.repo.GetAccountByID(ctx, id)
	if err != nil {
		if core.IsNotFound(err) {
			return invalid("uid")
		}
		return errors.Wrap(err, "getting account")
	}
	if !acc.IsActive {
		return invalid("uid")
	}
	if err := svc.tokens.CheckToken(acc, rp.Token); err != nil {
		return invalid("token")
	}

	if err := acc.SetPassword(rp.Password); err != nil {
		return errors.Wrap(err, "hashing password")
	}
	return errors.Wrap(svc.repo.UpdatePassword(ctx, acc.ID, acc.PasswordHash, NowFunc()), "updating password")
}
