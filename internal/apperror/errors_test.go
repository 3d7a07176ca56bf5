package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"validation", Validation("distance must be positive"), KindValidation},
		{"conflict", Conflict("report already approved"), KindConflict},
		{"not found", NotFound("expense %d not found", 9), KindNotFound},
		{"authorization", Authorization("only the owner may submit"), KindAuthorization},
		{"wrapped once", fmt.Errorf("submit: %w", Conflict("bad transition")), KindConflict},
		{"plain error", errors.New("disk full"), KindInternal},
		{"nil cause chain", Wrap(KindNotFound, errors.New("sql: no rows"), "report missing"), KindNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{Validation("bad amount"), http.StatusBadRequest},
		{Authorization("admin only"), http.StatusForbidden},
		{NotFound("no such category"), http.StatusNotFound},
		{Conflict("overlapping window"), http.StatusConflict},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := HTTPStatus(tt.err); got != tt.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("constraint failed")
	err := Wrap(KindConflict, cause, "budget window overlap")

	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find the cause")
	}
	if !IsKind(err, KindConflict) {
		t.Error("expected IsKind(KindConflict)")
	}
	if IsKind(err, KindValidation) {
		t.Error("did not expect IsKind(KindValidation)")
	}
}
