package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/smartclass/portal/core"
	"github.com/smartclass/portal/core/account"
)

type (
	accountRow struct {
		ID           int64     `db:"id"`
		Username     string    `db:"username"`
		Email        string    `db:"email"`
		FirstName    string    `db:"first_name"`
		LastName     string    `db:"last_name"`
		PasswordHash []byte    `db:"password_hash"`
		IsActive     bool      `db:"is_active"`
		CreatedAt    time.Time `db:"created_at"`
		UpdatedAt    time.Time `db:"updated_at"`
		LastLogin    null.Time `db:"last_login"`
	}

	studentProfileRow struct {
		ProfileID    int64       `db:"profile_id"`
		AccountID    int64       `db:"account_id"`
		RollNo       null.String `db:"roll_no"`
		Semester     null.Int    `db:"semester"`
		Department   null.String `db:"department"`
		FatherName   null.String `db:"father_name"`
		MotherName   null.String `db:"mother_name"`
		Address      null.String `db:"address"`
		MobileNumber null.String `db:"mobile_number"`
		ParentPhone  null.String `db:"parent_phone"`
		Photo        null.String `db:"photo"`
		Signature    null.String `db:"signature"`
	}

	facultyProfileRow struct {
		ProfileID      int64       `db:"profile_id"`
		AccountID      int64       `db:"account_id"`
		EmployeeID     null.String `db:"employee_id"`
		Designation    null.String `db:"designation"`
		Department     null.String `db:"department"`
		DateOfBirth    null.Time   `db:"date_of_birth"`
		Gender         null.String `db:"gender"`
		FatherName     null.String `db:"father_name"`
		MotherName     null.String `db:"mother_name"`
		PhoneNumber    null.String `db:"phone_number"`
		Address        null.String `db:"address"`
		Qualifications null.String `db:"qualifications"`
		Experience     null.String `db:"experience"`
		Photo          null.String `db:"photo"`
	}

	studentRow struct {
		accountRow
		studentProfileRow
	}

	facultyRow struct {
		accountRow
		facultyProfileRow
	}
)

const (
	accountColumns = `a.id, a.username, a.email, a.first_name, a.last_name, a.password_hash, a.is_active,
		a.created_at, a.updated_at, a.last_login`

	studentSelect = `SELECT ` + accountColumns + `,
		p.id AS profile_id, p.account_id, p.roll_no, p.semester, p.department, p.father_name, p.mother_name,
		p.address, p.mobile_number, p.parent_phone, p.photo, p.signature
	FROM student_profile p JOIN account a ON a.id = p.account_id`

	facultySelect = `SELECT ` + accountColumns + `,
		p.id AS profile_id, p.account_id, p.employee_id, p.designation, p.department, p.date_of_birth, p.gender,
		p.father_name, p.mother_name, p.phone_number, p.address, p.qualifications, p.experience, p.photo
	FROM faculty_profile p JOIN account a ON a.id = p.account_id`
)

func optString(s string) null.String { return null.NewString(s, s != "") }

func (r accountRow) toAccount() account.Account {
	return account.Account{
		ID:           r.ID,
		Username:     r.Username,
		Email:        r.Email,
		FirstName:    r.FirstName,
		LastName:     r.LastName,
		PasswordHash: r.PasswordHash,
		IsActive:     r.IsActive,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
		LastLogin:    r.LastLogin.Time.UTC(),
	}
}

func (r studentRow) toStudent() account.Student {
	return account.Student{
		Account: r.accountRow.toAccount(),
		Profile: account.StudentProfile{
			ID:           r.ProfileID,
			AccountID:    r.AccountID,
			RollNo:       r.RollNo.String,
			Semester:     r.Semester.Int,
			Department:   r.Department.String,
			FatherName:   r.FatherName.String,
			MotherName:   r.MotherName.String,
			Address:      r.Address.String,
			MobileNumber: r.MobileNumber.String,
			ParentPhone:  r.ParentPhone.String,
			Photo:        r.Photo.String,
			Signature:    r.Signature.String,
		},
	}
}

func (r facultyRow) toFaculty() account.Faculty {
	f := account.Faculty{
		Account: r.accountRow.toAccount(),
		Profile: account.FacultyProfile{
			ID:             r.ProfileID,
			AccountID:      r.AccountID,
			EmployeeID:     r.EmployeeID.String,
			Designation:    r.Designation.String,
			Department:     r.Department.String,
			Gender:         r.Gender.String,
			FatherName:     r.FatherName.String,
			MotherName:     r.MotherName.String,
			PhoneNumber:    r.PhoneNumber.String,
			Address:        r.Address.String,
			Qualifications: r.Qualifications.String,
			Experience:     r.Experience.String,
			Photo:          r.Photo.String,
		},
	}
	if r.DateOfBirth.Valid {
		dob := r.DateOfBirth.Time.UTC()
		f.Profile.DateOfBirth = &dob
	}
	return f
}

type accountRepository struct {
	db *sqlx.DB
}

var _ account.Repository = (*accountRepository)(nil)

func NewAccountRepository(db *sqlx.DB) account.Repository {
	return &accountRepository{db: db}
}

func (repo *accountRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := repo.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM account WHERE username = $1)`, username)
	return exists, errors.Wrap(err, "checking username")
}

func insertAccount(ctx context.Context, ex core.DBExecutor, acc account.Account) (int64, error) {
	var id int64
	err := ex.QueryRowxContext(ctx, `
		INSERT INTO account (username, email, first_name, last_name, password_hash, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		acc.Username, acc.Email, acc.FirstName, acc.LastName, acc.PasswordHash, acc.IsActive, acc.CreatedAt, acc.UpdatedAt,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, account.ErrUsernameExists
		}
		return 0, errors.Wrap(err, "inserting account")
	}
	return id, nil
}

func (repo *accountRepository) CreateStudent(ctx context.Context, acc account.Account, prof account.StudentProfile) (account.Student, error) {
	var s account.Student
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		id, err := insertAccount(ctx, tx, acc)
		if err != nil {
			return err
		}
		var profID int64
		err = tx.QueryRowxContext(ctx, `
			INSERT INTO student_profile (account_id, roll_no, semester, department, father_name, mother_name,
				address, mobile_number, parent_phone, photo, signature)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING id`,
			id, optString(prof.RollNo), null.NewInt(prof.Semester, prof.Semester != 0), optString(prof.Department),
			optString(prof.FatherName), optString(prof.MotherName), optString(prof.Address),
			optString(prof.MobileNumber), optString(prof.ParentPhone), optString(prof.Photo), optString(prof.Signature),
		).Scan(&profID)
		if err != nil {
			return errors.Wrap(err, "inserting student profile")
		}

		acc.ID, prof.ID, prof.AccountID = id, profID, id
		s = account.Student{Account: acc, Profile: prof}
		return nil
	})
	return s, err
}

func (repo *accountRepository) CreateFaculty(ctx context.Context, acc account.Account, prof account.FacultyProfile) (account.Faculty, error) {
	var f account.Faculty
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		id, err := insertAccount(ctx, tx, acc)
		if err != nil {
			return err
		}
		var profID int64
		err = tx.QueryRowxContext(ctx, `
			INSERT INTO faculty_profile (account_id, employee_id, designation, department, date_of_birth, gender,
				father_name, mother_name, phone_number, address, qualifications, experience, photo)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13) RETURNING id`,
			id, optString(prof.EmployeeID), optString(prof.Designation), optString(prof.Department),
			null.TimeFromPtr(prof.DateOfBirth), optString(prof.Gender), optString(prof.FatherName),
			optString(prof.MotherName), optString(prof.PhoneNumber), optString(prof.Address),
			optString(prof.Qualifications), optString(prof.Experience), optString(prof.Photo),
		).Scan(&profID)
		if err != nil {
			return errors.Wrap(err, "inserting faculty profile")
		}

		acc.ID, prof.ID, prof.AccountID = id, profID, id
		f = account.Faculty{Account: acc, Profile: prof}
		return nil
	})
	return f, err
}

func (repo *accountRepository) getAccount(ctx context.Context, cond string, arg interface{}) (account.Account, error) {
	var row accountRow
	err := repo.db.GetContext(ctx, &row, `SELECT `+accountColumns+` FROM account a WHERE `+cond, arg)
	if err != nil {
		return account.Account{}, notFound(err, "account")
	}
	return row.toAccount(), nil
}

func (repo *accountRepository) GetAccountByID(ctx context.Context, id int64) (account.Account, error) {
	return repo.getAccount(ctx, "a.id = $1", id)
}

func (repo *accountRepository) GetAccountByUsername(ctx context.Context, username string) (account.Account, error) {
	return repo.getAccount(ctx, "a.username = $1", username)
}

func (repo *accountRepository) ListActiveAccountsByEmail(ctx context.Context, email string) ([]account.Account, error) {
	var rows []accountRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT `+accountColumns+` FROM account a WHERE a.email = $1 AND a.email <> '' AND a.is_active ORDER BY a.username`, email)
	if err != nil {
		return nil, errors.Wrap(err, "selecting accounts")
	}
	accounts := make([]account.Account, 0, len(rows))
	for _, row := range rows {
		accounts = append(accounts, row.toAccount())
	}
	return accounts, nil
}

func getStudent(ctx context.Context, ex core.DBExecutor, cond string, arg interface{}) (account.Student, error) {
	var row studentRow
	if err := ex.GetContext(ctx, &row, studentSelect+" WHERE "+cond, arg); err != nil {
		return account.Student{}, notFound(err, "student")
	}
	return row.toStudent(), nil
}

func getFaculty(ctx context.Context, ex core.DBExecutor, cond string, arg interface{}) (account.Faculty, error) {
	var row facultyRow
	if err := ex.GetContext(ctx, &row, facultySelect+" WHERE "+cond, arg); err != nil {
		return account.Faculty{}, notFound(err, "faculty")
	}
	return row.toFaculty(), nil
}

func (repo *accountRepository) GetStudentByAccountID(ctx context.Context, accountID int64) (account.Student, error) {
	return getStudent(ctx, repo.db, "p.account_id = $1", accountID)
}

func (repo *accountRepository) GetFacultyByAccountID(ctx context.Context, accountID int64) (account.Faculty, error) {
	return getFaculty(ctx, repo.db, "p.account_id = $1", accountID)
}

func (repo *accountRepository) GetStudent(ctx context.Context, studentID int64) (account.Student, error) {
	return getStudent(ctx, repo.db, "p.id = $1", studentID)
}

func selectStudents(ctx context.Context, ex core.DBExecutor, query string, args ...interface{}) ([]account.Student, error) {
	var rows []studentRow
	if err := ex.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	students := make([]account.Student, 0, len(rows))
	for _, r := range rows {
		students = append(students, r.toStudent())
	}
	return students, nil
}

func (repo *accountRepository) ListStudents(ctx context.Context) ([]account.Student, error) {
	students, err := selectStudents(ctx, repo.db, studentSelect+" ORDER BY a.username")
	return students, errors.Wrap(err, "selecting students")
}

func (repo *accountRepository) UpdateLastLogin(ctx context.Context, accountID int64, at time.Time) error {
	_, err := repo.db.ExecContext(ctx, `UPDATE account SET last_login = $2 WHERE id = $1`, accountID, at)
	return errors.Wrap(err, "updating last login")
}

func (repo *accountRepository) UpdatePassword(ctx context.Context, accountID int64, hash []byte, at time.Time) error {
	res, err := repo.db.ExecContext(ctx, `UPDATE account SET password_hash = $2, updated_at = $3 WHERE id = $1`, accountID, hash, at)
	if err != nil {
		return errors.Wrap(err, "updating password")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.NewNotFoundError("account")
	}
	return nil
}

func updateAccountDetails(ctx context.Context, ex core.DBExecutor, acc account.Account) error {
	res, err := ex.ExecContext(ctx, `
		UPDATE account SET email = $2, first_name = $3, last_name = $4, updated_at = $5 WHERE id = $1`,
		acc.ID, acc.Email, acc.FirstName, acc.LastName, acc.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "updating account")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.NewNotFoundError("account")
	}
	return nil
}

func (repo *accountRepository) UpdateStudent(ctx context.Context, s account.Student) (account.Student, error) {
	var saved account.Student
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		if err := updateAccountDetails(ctx, tx, s.Account); err != nil {
			return err
		}
		p := s.Profile
		_, err := tx.ExecContext(ctx, `
			UPDATE student_profile SET roll_no = $2, semester = $3, department = $4, father_name = $5, mother_name = $6,
				address = $7, mobile_number = $8, parent_phone = $9, photo = $10, signature = $11
			WHERE id = $1`,
			p.ID, optString(p.RollNo), null.NewInt(p.Semester, p.Semester != 0), optString(p.Department),
			optString(p.FatherName), optString(p.MotherName), optString(p.Address), optString(p.MobileNumber),
			optString(p.ParentPhone), optString(p.Photo), optString(p.Signature),
		)
		if err != nil {
			return errors.Wrap(err, "updating student profile")
		}
		saved, err = getStudent(ctx, tx, "p.id = $1", p.ID)
		return err
	})
	return saved, err
}

func (repo *accountRepository) UpdateFaculty(ctx context.Context, f account.Faculty) (account.Faculty, error) {
	var saved account.Faculty
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		if err := updateAccountDetails(ctx, tx, f.Account); err != nil {
			return err
		}
		p := f.Profile
		_, err := tx.ExecContext(ctx, `
			UPDATE faculty_profile SET employee_id = $2, designation = $3, department = $4, date_of_birth = $5,
				gender = $6, father_name = $7, mother_name = $8, phone_number = $9, address = $10,
				qualifications = $11, experience = $12, photo = $13
			WHERE id = $1`,
			p.ID, optString(p.EmployeeID), optString(p.Designation), optString(p.Department),
			null.TimeFromPtr(p.DateOfBirth), optString(p.Gender), optString(p.FatherName), optString(p.MotherName),
			optString(p.PhoneNumber), optString(p.Address), optString(p.Qualifications), optString(p.Experience),
			optString(p.Photo),
		)
		if err != nil {
			return errors.Wrap(err, "updating faculty profile")
		}
		saved, err = getFaculty(ctx, tx, "p.id = $1", p.ID)
		return err
	})
	return saved, err
}
