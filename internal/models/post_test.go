package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTags(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want StringList
	}{
		{"empty", "", StringList{}},
		{"spaces only", "   ", StringList{}},
		{"single", "art", StringList{"art"}},
		{"spaces removed", " summer, beach , sun set", StringList{"summer", "beach", "sunset"}},
		{"empty entries dropped", "a,,b,", StringList{"a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseTags(tt.raw))
		})
	}
}

func TestStringList_Scan(t *testing.T) {
	var l StringList
	require.NoError(t, l.Scan(`["u1","u2"]`))
	assert.Equal(t, StringList{"u1", "u2"}, l)
	assert.True(t, l.Contains("u2"))
	assert.False(t, l.Contains("u3"))

	require.NoError(t, l.Scan(nil))
	assert.Empty(t, l)

	assert.Error(t, l.Scan(42))

	v, err := StringList(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", v)
}

func TestAppError_Codes(t *testing.T) {
	err := NewNotFoundError("Post", "p1")
	wrapped := errors.Join(errors.New("outer"), err)

	assert.True(t, IsCode(wrapped, CodeNotFound))
	assert.False(t, IsCode(nil, CodeNotFound))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))
	assert.Equal(t, 404, StatusFor(err))
	assert.Equal(t, 409, StatusFor(NewConflictError("dup", nil)))
	assert.Equal(t, 503, StatusFor(NewUnavailableError("storage", errors.New("down"))))
}
