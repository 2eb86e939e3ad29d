package sqlxrepos

import (
	"database/sql"
	"testing"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/smartclass/portal/core"
)

func TestWhere(t *testing.T) {
	var w where
	assert.Equal(t, "", w.String())

	w.add("c.faculty_id = $%d", int64(3))
	w.add("e.student_id = $%d", int64(7))
	assert.Equal(t, " WHERE c.faculty_id = $1 AND e.student_id = $2", w.String())
	assert.Equal(t, []interface{}{int64(3), int64(7)}, w.args)
}

func TestIsUniqueViolation(t *testing.T) {
	pqErr := &pq.Error{Code: uniqueViolation, Constraint: "submission_assignment_id_student_id_key"}

	tests := []struct {
		name       string
		err        error
		constraint []string
		want       bool
	}{
		{"other error", errors.New("boom"), nil, false},
		{"other pq error", &pq.Error{Code: "23503"}, nil, false},
		{"unique violation", pqErr, nil, true},
		{"wrapped", errors.Wrap(pqErr, "inserting submission"), nil, true},
		{"matching constraint", pqErr, []string{"submission_assignment_id_student_id_key"}, true},
		{"other constraint", pqErr, []string{"account_username_key"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isUniqueViolation(tt.err, tt.constraint...))
		})
	}
}

func TestNotFound(t *testing.T) {
	err := notFound(errors.Wrap(sql.ErrNoRows, "selecting"), "course")
	assert.True(t, core.IsNotFound(err))
	assert.Equal(t, "course not found", err.Error())

	boom := errors.New("boom")
	assert.Equal(t, boom, notFound(boom, "course"))
}
