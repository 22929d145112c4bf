package privacy

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/catalyst/moodle-availability-paypal/api/responses"
	"github.com/catalyst/moodle-availability-paypal/api/validators"
	internalprivacy "github.com/catalyst/moodle-availability-paypal/internal/privacy"
	pkgerrors "github.com/catalyst/moodle-availability-paypal/pkg/errors"
	"github.com/catalyst/moodle-availability-paypal/pkg/logger"
)

type Service interface {
	ContextsForUser(ctx context.Context, userID int64) ([]int64, error)
	UsersInContext(ctx context.Context, contextID int64) ([]int64, error)
	ExportUserData(ctx context.Context, userID int64, contextIDs []int64) ([]internalprivacy.ContextExport, error)
	DeleteForContext(ctx context.Context, contextID int64) (int64, error)
	DeleteForUser(ctx context.Context, userID int64, contextIDs []int64) (int64, error)
	DeleteForUsers(ctx context.Context, contextID int64, userIDs []int64) (int64, error)
}

type exportRequest struct {
	ContextIDs []int64 `json:"contextids" validate:"required,min=1"`
}

type deleteUserRequest struct {
	ContextIDs []int64 `json:"contextids" validate:"required,min=1"`
}

type deleteUsersRequest struct {
	UserIDs []int64 `json:"userids" validate:"required,min=1"`
}

// ContextsForUser lists the contexts holding payment data for one user.
func ContextsForUser(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		userID, err := pathID(r, "userid")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		ids, err := svc.ContextsForUser(ctx, userID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"contextids": ids})
	}
}

// UsersInContext lists the users with payment data in one context.
func UsersInContext(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		contextID, err := pathID(r, "contextid")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		ids, err := svc.UsersInContext(ctx, contextID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"userids": ids})
	}
}

// ExportUserData returns the user's payment rows grouped per context.
func ExportUserData(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		userID, err := pathID(r, "userid")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var req exportRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		exports, err := svc.ExportUserData(ctx, userID, req.ContextIDs)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"contexts": exports})
	}
}

// DeleteForContext erases every payment row in a user-scoped context.
func DeleteForContext(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		contextID, err := pathID(r, "contextid")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		deleted, err := svc.DeleteForContext(ctx, contextID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"deleted": deleted})
	}
}

// DeleteForUser erases the user's payment rows in the listed contexts.
func DeleteForUser(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		userID, err := pathID(r, "userid")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var req deleteUserRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		deleted, err := svc.DeleteForUser(ctx, userID, req.ContextIDs)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"deleted": deleted})
	}
}

// DeleteForUsers erases the listed users' payment rows in one context.
func DeleteForUsers(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		contextID, err := pathID(r, "contextid")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var req deleteUsersRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		deleted, err := svc.DeleteForUsers(ctx, contextID, req.UserIDs)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"deleted": deleted})
	}
}

func pathID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "invalid "+name)
	}
	return id, nil
}
