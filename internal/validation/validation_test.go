package validation

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signup struct {
	Username string  `json:"username" validate:"required"`
	Email    string  `json:"email" validate:"required,email"`
	Role     string  `json:"role" validate:"required,oneof=admin csp"`
	Age      *int    `json:"age" validate:"omitempty,gte=18"`
	Nick     *string `json:"nick" validate:"omitempty,max=4"`
}

func TestStructReportsEveryViolation(t *testing.T) {
	age := 12
	nick := "toolong"
	err := Struct(&signup{Email: "nope", Role: "root", Age: &age, Nick: &nick})
	require.Error(t, err)

	var verr *Error
	require.True(t, errors.As(err, &verr))
	assert.Len(t, verr.Fields, 5)
	assert.Equal(t, "username is required", verr.Fields["username"])
	assert.Equal(t, "email must be a valid email address", verr.Fields["email"])
	assert.Equal(t, "role must be one of [admin csp]", verr.Fields["role"])
	assert.Equal(t, "age must be at least 18", verr.Fields["age"])
	assert.Equal(t, "nick must be at most 4 characters", verr.Fields["nick"])
	assert.Equal(t, 5, strings.Count(verr.Detail, ";")+1)
}

func TestStructAcceptsValidPayload(t *testing.T) {
	assert.NoError(t, Struct(&signup{Username: "a", Email: "a@b.co", Role: "csp"}))
}

func TestDecode(t *testing.T) {
	var s signup
	err := Decode(strings.NewReader(`{"username":"a","email":"a@b.co","role":"admin","extra":1}`), &s)
	require.NoError(t, err)
	assert.Equal(t, "admin", s.Role)

	err = Decode(strings.NewReader(``), &s)
	var verr *Error
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "request body is required", verr.Detail)

	err = Decode(strings.NewReader(`{"username":`), &signup{})
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Detail, "invalid JSON body")
}

type credential struct {
	Secret string `json:"secret" validate:"required,maxbytes=8"`
}

func TestMaxBytesCountsEncodedBytes(t *testing.T) {
	assert.NoError(t, Struct(&credential{Secret: "12345678"}))

	err := Struct(&credential{Secret: "ééééé"})
	var verr *Error
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "secret must be at most 8 bytes", verr.Fields["secret"])
}
