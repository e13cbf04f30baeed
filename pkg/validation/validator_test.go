package validation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidEmail(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"a@b.com", true},
		{"first.last-1_x@sub.example.org", true},
		{"A@B.CO", true},
		{"a@b", false},
		{"a@b.c", false},
		{"a@b.toolongtld", false},
		{"a b@c.com", false},
		{"a+tag@b.com", false},
		{" a@b.com", false},
		{"", false},
		{"@b.com", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidEmail(tt.in))
		})
	}
}

type sample struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email_lite"`
	Password string `json:"password" validate:"min=6"`
	Age      *int   `json:"age" validate:"omitempty,gte=0,lte=150"`
}

func TestToDetails_ValidationErrors(t *testing.T) {
	v := New()
	age := 200
	err := v.Struct(sample{Email: "nope", Password: "abc", Age: &age})
	require.Error(t, err)

	details := ToDetails(err)
	assert.Equal(t, map[string]string{
		"name":     "is required",
		"email":    "must be a valid email",
		"password": "must be at least 6 characters long",
		"age":      "must be less than or equal to 150",
	}, details)
	assert.Equal(t, "age: must be less than or equal to 150", FirstMessage(details))
}

func TestToDetails_JSONErrors(t *testing.T) {
	var s sample
	err := json.Unmarshal([]byte(`{"name":`), &s)
	assert.Equal(t, map[string]string{"payload": "invalid json"}, ToDetails(err))

	err = json.Unmarshal([]byte(`{"age":"thirty"}`), &s)
	details := ToDetails(err)
	require.Contains(t, details, "age")
	assert.Contains(t, details["age"], "must be of type")
}

func TestToDetails_Nil(t *testing.T) {
	assert.Nil(t, ToDetails(nil))
	assert.Empty(t, FirstMessage(nil))
}
