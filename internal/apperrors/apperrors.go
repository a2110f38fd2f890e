// Package apperrors define los errores de negocio que ven los clientes y la
// tabla que traduce los errores técnicos de los repositorios.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError es un error de negocio. Err conserva la causa para logs y nunca
// se serializa.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Detail     string `json:"detail,omitempty"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

// Is compara por Code, así errors.Is(err, ErrForbidden) funciona con copias
// creadas por WithCause/WithDetail.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Code == e.Code
}

// WithDetail devuelve una COPIA con detalle; las variables base no se mutan.
func (e *AppError) WithDetail(detail string) *AppError {
	n := *e
	n.Detail = detail
	return &n
}

// WithCause devuelve una COPIA con la causa original.
func (e *AppError) WithCause(err error) *AppError {
	n := *e
	n.Err = err
	return &n
}

// As extrae el AppError de la cadena, si hay uno.
func As(err error) (*AppError, bool) {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// ─── 400 / 401 ───

var (
	ErrBadRequest = &AppError{
		Code:       "BAD_REQUEST",
		Message:    "La solicitud contiene parámetros inválidos o faltantes.",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrPasswordTooWeak = &AppError{
		Code:       "PASSWORD_TOO_WEAK",
		Message:    "La contraseña no cumple con la política de seguridad.",
		HTTPStatus: http.StatusUnprocessableEntity,
	}

	ErrInvalidCredentials = &AppError{
		Code:       "INVALID_CREDENTIALS",
		Message:    "Usuario o contraseña inválidos.",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrUnauthorizedSession = &AppError{
		Code:       "UNAUTHORIZED_SESSION",
		Message:    "La sesión no es válida o fue revocada.",
		HTTPStatus: http.StatusUnauthorized,
	}
)

// ─── 403 ───

var (
	ErrAccountPending = &AppError{
		Code:       "ACCOUNT_PENDING",
		Message:    "La cuenta aún no fue aprobada.",
		HTTPStatus: http.StatusForbidden,
	}

	ErrAccountRejected = &AppError{
		Code:       "ACCOUNT_REJECTED",
		Message:    "La solicitud de la cuenta fue rechazada.",
		HTTPStatus: http.StatusForbidden,
	}

	ErrForbidden = &AppError{
		Code:       "FORBIDDEN",
		Message:    "No tiene permisos para realizar esta acción.",
		HTTPStatus: http.StatusForbidden,
	}
)

// ─── 404 / 409 ───

var (
	ErrNotFound = &AppError{
		Code:       "NOT_FOUND",
		Message:    "El recurso solicitado no existe.",
		HTTPStatus: http.StatusNotFound,
	}

	ErrDuplicateUsername = &AppError{
		Code:       "DUPLICATE_USERNAME",
		Message:    "El nombre de usuario ya está en uso.",
		HTTPStatus: http.StatusConflict,
	}

	ErrDuplicateEmail = &AppError{
		Code:       "DUPLICATE_EMAIL",
		Message:    "El email ya está registrado.",
		HTTPStatus: http.StatusConflict,
	}

	ErrDuplicateContact = &AppError{
		Code:       "DUPLICATE_CONTACT",
		Message:    "El contacto ya está registrado.",
		HTTPStatus: http.StatusConflict,
	}

	ErrDuplicateProperty = &AppError{
		Code:       "DUPLICATE_PROPERTY",
		Message:    "El complejo ya existe o ya tiene un administrador.",
		HTTPStatus: http.StatusConflict,
	}

	ErrInvalidTransition = &AppError{
		Code:       "INVALID_TRANSITION",
		Message:    "La cuenta no puede pasar a ese estado.",
		HTTPStatus: http.StatusConflict,
	}

	ErrTooManyAttempts = &AppError{
		Code:       "TOO_MANY_ATTEMPTS",
		Message:    "Demasiados intentos. Espere antes de reintentar.",
		HTTPStatus: http.StatusTooManyRequests,
	}
)

// ─── 5xx ───

var (
	ErrUnknownServer = &AppError{
		Code:       "UNKNOWN_SERVER_ERROR",
		Message:    "Ocurrió un error inesperado. Intente nuevamente.",
		HTTPStatus: http.StatusInternalServerError,
	}

	ErrServiceUnavailable = &AppError{
		Code:       "SERVICE_UNAVAILABLE",
		Message:    "El servicio no está disponible temporalmente.",
		HTTPStatus: http.StatusServiceUnavailable,
	}
)
