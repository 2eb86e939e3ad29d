package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/smartclass/portal/core"
	"github.com/smartclass/portal/core/account"
)

type accountRepository struct {
	db *DB
}

var _ account.Repository = (*accountRepository)(nil)

func NewAccountRepository(db *DB) account.Repository {
	return &accountRepository{db: db}
}

// must be called with the lock held
func (repo *accountRepository) usernameExists(username string) bool {
	for _, acc := range repo.db.accounts {
		if acc.Username == username {
			return true
		}
	}
	return false
}

func (repo *accountRepository) UsernameExists(_ context.Context, username string) (bool, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return repo.usernameExists(username), nil
}

// must be called with the write lock held
func (repo *accountRepository) insertAccount(acc account.Account) (account.Account, error) {
	if repo.usernameExists(acc.Username) {
		return account.Account{}, account.ErrUsernameExists
	}
	acc.ID = repo.db.nextPK()
	stored := acc
	repo.db.accounts[acc.ID] = &stored
	return acc, nil
}

func (repo *accountRepository) CreateStudent(_ context.Context, acc account.Account, prof account.StudentProfile) (account.Student, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	acc, err := repo.insertAccount(acc)
	if err != nil {
		return account.Student{}, err
	}
	prof.ID = repo.db.nextPK()
	prof.AccountID = acc.ID
	stored := prof
	repo.db.studentProfiles[prof.ID] = &stored
	return account.Student{Account: acc, Profile: prof}, nil
}

func (repo *accountRepository) CreateFaculty(_ context.Context, acc account.Account, prof account.FacultyProfile) (account.Faculty, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	acc, err := repo.insertAccount(acc)
	if err != nil {
		return account.Faculty{}, err
	}
	prof.ID = repo.db.nextPK()
	prof.AccountID = acc.ID
	stored := prof
	repo.db.facultyProfiles[prof.ID] = &stored
	return account.Faculty{Account: acc, Profile: prof}, nil
}

func (repo *accountRepository) GetAccountByID(_ context.Context, id int64) (account.Account, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if acc, ok := repo.db.accounts[id]; ok {
		return *acc, nil
	}
	return account.Account{}, core.NewNotFoundError("account")
}

func (repo *accountRepository) GetAccountByUsername(_ context.Context, username string) (account.Account, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, acc := range repo.db.accounts {
		if acc.Username == username {
			return *acc, nil
		}
	}
	return account.Account{}, core.NewNotFoundError("account")
}

func (repo *accountRepository) ListActiveAccountsByEmail(_ context.Context, email string) ([]account.Account, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	accounts := make([]account.Account, 0)
	for _, acc := range repo.db.accounts {
		if acc.IsActive && acc.Email != "" && acc.Email == email {
			accounts = append(accounts, *acc)
		}
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].Username < accounts[j].Username })
	return accounts, nil
}

// must be called with the lock held
func (db *DB) student(match func(p *account.StudentProfile) bool) (account.Student, bool) {
	for _, p := range db.studentProfiles {
		if match(p) {
			return account.Student{Account: *db.accounts[p.AccountID], Profile: *p}, true
		}
	}
	return account.Student{}, false
}

// must be called with the lock held
func (db *DB) faculty(match func(p *account.FacultyProfile) bool) (account.Faculty, bool) {
	for _, p := range db.facultyProfiles {
		if match(p) {
			return account.Faculty{Account: *db.accounts[p.AccountID], Profile: *p}, true
		}
	}
	return account.Faculty{}, false
}

func (repo *accountRepository) getStudent(match func(p *account.StudentProfile) bool) (account.Student, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if s, ok := repo.db.student(match); ok {
		return s, nil
	}
	return account.Student{}, core.NewNotFoundError("student")
}

func (repo *accountRepository) getFaculty(match func(p *account.FacultyProfile) bool) (account.Faculty, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if f, ok := repo.db.faculty(match); ok {
		return f, nil
	}
	return account.Faculty{}, core.NewNotFoundError("faculty")
}

func (repo *accountRepository) GetStudentByAccountID(_ context.Context, accountID int64) (account.Student, error) {
	return repo.getStudent(func(p *account.StudentProfile) bool { return p.AccountID == accountID })
}

func (repo *accountRepository) GetFacultyByAccountID(_ context.Context, accountID int64) (account.Faculty, error) {
	return repo.getFaculty(func(p *account.FacultyProfile) bool { return p.AccountID == accountID })
}

func (repo *accountRepository) GetStudent(_ context.Context, studentID int64) (account.Student, error) {
	return repo.getStudent(func(p *account.StudentProfile) bool { return p.ID == studentID })
}

// must be called with the lock held
func (db *DB) students(match func(p *account.StudentProfile) bool) []account.Student {
	students := make([]account.Student, 0)
	for _, p := range db.studentProfiles {
		if match(p) {
			students = append(students, account.Student{Account: *db.accounts[p.AccountID], Profile: *p})
		}
	}
	sort.Slice(students, func(i, j int) bool { return students[i].Account.Username < students[j].Account.Username })
	return students
}

func (repo *accountRepository) ListStudents(_ context.Context) ([]account.Student, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return repo.db.students(func(*account.StudentProfile) bool { return true }), nil
}

func (repo *accountRepository) UpdateLastLogin(_ context.Context, accountID int64, at time.Time) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	acc, ok := repo.db.accounts[accountID]
	if !ok {
		return core.NewNotFoundError("account")
	}
	acc.LastLogin = at
	return nil
}

func (repo *accountRepository) UpdatePassword(_ context.Context, accountID int64, hash []byte, at time.Time) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	acc, ok := repo.db.accounts[accountID]
	if !ok {
		return core.NewNotFoundError("account")
	}
	acc.PasswordHash = hash
	acc.UpdatedAt = at
	return nil
}

// must be called with the write lock held
func (repo *accountRepository) updateAccountDetails(upd account.Account) (*account.Account, error) {
	acc, ok := repo.db.accounts[upd.ID]
	if !ok {
		return nil, core.NewNotFoundError("account")
	}
	acc.Email = upd.Email
	acc.FirstName = upd.FirstName
	acc.LastName = upd.LastName
	acc.UpdatedAt = upd.UpdatedAt
	return acc, nil
}

func (repo *accountRepository) UpdateStudent(_ context.Context, s account.Student) (account.Student, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.studentProfiles[s.Profile.ID]; !ok {
		return account.Student{}, core.NewNotFoundError("student")
	}
	acc, err := repo.updateAccountDetails(s.Account)
	if err != nil {
		return account.Student{}, err
	}
	prof := s.Profile
	repo.db.studentProfiles[prof.ID] = &prof
	return account.Student{Account: *acc, Profile: prof}, nil
}

func (repo *accountRepository) UpdateFaculty(_ context.Context, f account.Faculty) (account.Faculty, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.facultyProfiles[f.Profile.ID]; !ok {
		return account.Faculty{}, core.NewNotFoundError("faculty")
	}
	acc, err := repo.updateAccountDetails(f.Account)
	if err != nil {
		return account.Faculty{}, err
	}
	prof := f.Profile
	repo.db.facultyProfiles[prof.ID] = &prof
	return account.Faculty{Account: *acc, Profile: prof}, nil
}
