package core_test

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartclass/portal/core"
)

type sample struct {
	Username string `json:"username" validate:"required,alphanum_"`
	Title    string `json:"title" validate:"notblank"`
	Date     string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Internal string `json:"-" validate:"required"`
}

func TestValidator(t *testing.T) {
	validate, translator := core.NewValidator()

	tests := []struct {
		name string
		obj  sample
		want map[string]string
	}{
		{name: "valid", obj: sample{Username: "ada_99", Title: "Lab 1", Date: "2024-02-29", Internal: "x"}},
		{
			name: "required",
			obj:  sample{Title: "Lab 1", Internal: "x"},
			want: map[string]string{"username": "this field is required"},
		},
		{
			name: "not an identifier",
			obj:  sample{Username: "ada lovelace", Title: "Lab 1", Internal: "x"},
			want: map[string]string{"username": "only alphanumeric characters and underscores are allowed"},
		},
		{
			name: "blank",
			obj:  sample{Username: "ada", Title: " \t ", Internal: "x"},
			want: map[string]string{"title": "this field cannot be blank"},
		},
		{
			name: "bad date",
			obj:  sample{Username: "ada", Title: "Lab 1", Date: "2023-02-29", Internal: "x"},
			want: map[string]string{"date": "enter a valid date (YYYY-MM-DD)"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate.Struct(tt.obj)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			var vErrs validator.ValidationErrors
			require.ErrorAs(t, err, &vErrs)
			got := make(map[string]string, len(vErrs))
			for _, fe := range vErrs {
				got[fe.Field()] = fe.Translate(translator)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCleanString(t *testing.T) {
	assert.Equal(t, "Ada", core.CleanString("  Ada\n"))
	assert.Equal(t, "ada", core.CleanString("  Ada\n", true))
	assert.Equal(t, "Ada", core.CleanString("Ada", false))
}
