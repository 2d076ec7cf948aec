package http

import (
	"errors"
	"net/http"

	"github.com/tavern-tools/register/internal/oauth"
	"github.com/tavern-tools/register/internal/provision"
	"github.com/tavern-tools/register/internal/service"
	"github.com/tavern-tools/register/internal/store"
)

var errorStatusMap = map[error]int{
	service.ErrValidation:       http.StatusBadRequest,
	service.ErrSessionState:     http.StatusBadRequest,
	service.ErrNoServerSelected: http.StatusBadRequest,

	service.ErrHandleTaken:         http.StatusConflict,
	service.ErrUserAlreadyBound:    http.StatusConflict,
	store.ErrHandleAlreadyExists:   http.StatusConflict,
	store.ErrUserAlreadyActive:     http.StatusConflict,
	store.ErrCodeExhausted:         http.StatusConflict,
	provision.ErrUserAlreadyExists: http.StatusConflict,

	service.ErrBadCredentials:      http.StatusUnauthorized,
	service.ErrAdminAuthFailed:     http.StatusUnauthorized,
	service.ErrAdminTokenInvalid:   http.StatusUnauthorized,
	service.ErrWrongLoginMethod:    http.StatusForbidden,
	service.ErrManualLoginDisabled: http.StatusForbidden,
	service.ErrStateMismatch:       http.StatusForbidden,
	oauth.ErrNotAMember:            http.StatusForbidden,
	oauth.ErrMembershipTooRecent:   http.StatusForbidden,
	service.ErrLockedOut:           http.StatusTooManyRequests,

	service.ErrInviteRequired:         http.StatusNotFound,
	service.ErrCodeExpired:            http.StatusNotFound,
	service.ErrServerUnavailable:      http.StatusNotFound,
	service.ErrCredentialsAlreadyRead: http.StatusNotFound,
	store.ErrNoUserWasFound:           http.StatusNotFound,
	store.ErrCodeNotFound:             http.StatusNotFound,
	store.ErrNoServerWasFound:         http.StatusNotFound,
	oauth.ErrUnknownProvider:          http.StatusNotFound,
	oauth.ErrProviderNotConfigured:    http.StatusNotFound,

	oauth.ErrTokenExchangeFailed:      http.StatusBadGateway,
	oauth.ErrIdentityFetchFailed:      http.StatusBadGateway,
	oauth.ErrMembershipCheckFailed:    http.StatusBadGateway,
	provision.ErrLoginFailed:          http.StatusBadGateway,
	provision.ErrMissingSessionCookie: http.StatusBadGateway,
	provision.ErrNotAnAdministrator:   http.StatusBadGateway,
	provision.ErrRemoteRequestFailed:  http.StatusBadGateway,
}

func statusFromError(err error) int {
	for target, status := range errorStatusMap {
		if errors.Is(err, target) {
			return status
		}
	}
	return http.StatusInternalServerError
}
