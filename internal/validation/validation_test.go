package validation

import (
	"errors"
	"strings"
	"testing"

	"snapgram/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fieldsOf(t *testing.T, err error) map[string]string {
	t.Helper()
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "got %v", err)
	assert.Equal(t, models.CodeValidation, appErr.Code)
	return appErr.Fields
}

func TestSignup(t *testing.T) {
	assert.NoError(t, Struct(Signup{Name: "Jo", Username: "jo", Email: "jo@example.com", Password: "password"}))

	fields := fieldsOf(t, Struct(Signup{Name: "J", Username: "jo", Email: "nope", Password: "short"}))
	assert.Equal(t, map[string]string{
		"name":     "Name must contain at least 2 character(s).",
		"email":    "Invalid email.",
		"password": "Password must contain at least 8 character(s).",
	}, fields)
}

func TestSignin_RequiresEmail(t *testing.T) {
	fields := fieldsOf(t, Struct(Signin{Password: "password"}))
	assert.Equal(t, "Email is required.", fields["email"])
}

func TestPost(t *testing.T) {
	tests := []struct {
		name    string
		in      Post
		invalid []string
	}{
		{"valid", Post{Caption: "hello world", Location: "Oslo"}, nil},
		{"short caption", Post{Caption: "hey", Location: "Oslo"}, []string{"caption"}},
		{"long caption", Post{Caption: strings.Repeat("a", 2201), Location: "Oslo"}, []string{"caption"}},
		{"short location", Post{Caption: "hello world", Location: "O"}, []string{"location"}},
		{"long location", Post{Caption: "hello world", Location: strings.Repeat("a", 101)}, []string{"location"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(tt.in)
			if tt.invalid == nil {
				assert.NoError(t, err)
				return
			}
			fields := fieldsOf(t, err)
			for _, f := range tt.invalid {
				assert.Contains(t, fields, f)
			}
		})
	}
}

func TestProfile_BioLimit(t *testing.T) {
	ok := Profile{Name: "Jo", Username: "jo", Email: "jo@example.com", Bio: strings.Repeat("b", 2200)}
	assert.NoError(t, Struct(ok))

	ok.Bio += "b"
	fields := fieldsOf(t, Struct(ok))
	assert.Equal(t, "Bio must contain at most 2200 character(s).", fields["bio"])
}
