package apperrors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/june5815/welive/internal/domain/repository"
)

func TestRemap_Table(t *testing.T) {
	cause := errors.New("pq: duplicate key value violates unique constraint \"users_email_key\"")

	tests := []struct {
		name string
		in   error
		want *AppError
	}{
		{"username", repository.NewTechnical(repository.KindUniqueUsername, cause), ErrDuplicateUsername},
		{"email", repository.NewTechnical(repository.KindUniqueEmail, cause), ErrDuplicateEmail},
		{"contact", repository.NewTechnical(repository.KindUniqueContact, cause), ErrDuplicateContact},
		{"natural key", repository.NewTechnical(repository.KindUnique, cause), ErrDuplicateProperty},
		{"optimistic", repository.NewTechnical(repository.KindOptimisticLock, nil), ErrUnknownServer},
		{"unknown", repository.NewTechnical(repository.KindUnknown, cause), ErrUnknownServer},
		{"wrapped", fmt.Errorf("users: approve: %w", repository.ErrUniqueEmail), ErrDuplicateEmail},
		{"not found", fmt.Errorf("find: %w", repository.ErrNotFound), ErrNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Remap(tc.in)
			require.ErrorIs(t, got, tc.want)
			ae, ok := As(got)
			require.True(t, ok)
			assert.Equal(t, tc.want.HTTPStatus, ae.HTTPStatus)
			assert.NotContains(t, ae.Message, "constraint")
		})
	}
}

func TestRemap_PassThrough(t *testing.T) {
	assert.NoError(t, Remap(nil))

	weird := errors.New("boom")
	assert.Same(t, weird, Remap(weird))
	assert.Equal(t, context.DeadlineExceeded, Remap(context.DeadlineExceeded))

	biz := ErrForbidden.WithDetail("not your apartment")
	assert.Same(t, biz, Remap(biz))
}

func TestWithCause_DoesNotMutateBase(t *testing.T) {
	e := ErrForbidden.WithCause(errors.New("x"))
	assert.Nil(t, ErrForbidden.Err)
	assert.ErrorIs(t, e, ErrForbidden)
	ae, ok := As(e)
	require.True(t, ok)
	assert.Equal(t, "FORBIDDEN", ae.Code)
	_, ok = As(errors.New("plain"))
	assert.False(t, ok)
}

func TestWriteError_HidesCause(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, repository.NewTechnical(repository.KindUnknown, errors.New("SQLSTATE 42P01 relation users")))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "UNKNOWN_SERVER_ERROR", body["code"])
	assert.NotContains(t, rec.Body.String(), "SQLSTATE")

	rec = httptest.NewRecorder()
	WriteError(rec, errors.New("unmapped"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
