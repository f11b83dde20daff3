package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type signup struct {
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required,min=6"`
	Role     string  `json:"role" validate:"omitempty,oneof=ADMIN MANAGER"`
	Value    float64 `json:"value" validate:"gte=0"`
	Internal string  `json:"-" validate:"max=3"`
}

func TestStruct(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		assert.Nil(t, Struct(signup{Email: "a@example.com", Password: "secret"}))
	})

	t.Run("reports json field names", func(t *testing.T) {
		errs := Struct(signup{Email: "nope", Password: "abc", Role: "OWNER", Value: -1, Internal: "toolong"})

		assert.Equal(t, "email must be a valid email", errs["email"])
		assert.Equal(t, "password must be at least 6 characters", errs["password"])
		assert.Equal(t, "role must be one of: ADMIN MANAGER", errs["role"])
		assert.Equal(t, "value must be greater than or equal to 0", errs["value"])
		assert.Equal(t, "Internal must be at most 3 characters", errs["Internal"])
	})

	t.Run("required", func(t *testing.T) {
		errs := Struct(signup{})
		assert.Equal(t, "email is required", errs["email"])
		assert.Equal(t, "password is required", errs["password"])
	})

	t.Run("non struct input", func(t *testing.T) {
		errs := Struct("not a struct")
		assert.Contains(t, errs, "body")
	})
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "Hello", "Hello"},
		{"trims", "  Acme Corp  ", "Acme Corp"},
		{"strips tags", "<b>Bold</b> move", "Bold move"},
		{"drops script", "Hi<script>alert(1)</script>", "Hi"},
		{"keeps ampersand", "AT&T", "AT&T"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.input))
		})
	}
}

func TestSanitizePtr(t *testing.T) {
	assert.Nil(t, SanitizePtr(nil))

	in := " <i>note</i> "
	out := SanitizePtr(&in)
	if assert.NotNil(t, out) {
		assert.Equal(t, "note", *out)
	}
	assert.Equal(t, " <i>note</i> ", in)
}
