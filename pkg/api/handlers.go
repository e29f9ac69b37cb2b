package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/youssef3092004/Spacefy/pkg/httputil"
	"github.com/youssef3092004/Spacefy/pkg/permissions"
	"github.com/youssef3092004/Spacefy/pkg/storage"
)

// wrap chains middlewares around a handler. The first middleware listed
// runs outermost, so guards read left to right in registration order.
func wrap(h http.HandlerFunc, mws ...mux.MiddlewareFunc) http.Handler {
	var out http.Handler = h
	for i := len(mws) - 1; i >= 0; i-- {
		out = mws[i](out)
	}
	return out
}

// branchOwnership adapts a branch-id lookup into an ownership loader for
// branch-scoped resources.
func branchOwnership(get func(ctx context.Context, id string) (string, error)) permissions.ResourceOwnership {
	return func(r *http.Request, id string) (*permissions.Ownership, error) {
		branchID, err := get(r.Context(), id)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return nil, permissions.ErrResourceNotFound
			}
			return nil, err
		}
		return &permissions.Ownership{BranchID: branchID}, nil
	}
}

// ownerOwnership adapts an owner-id lookup into an ownership loader for
// user and business scoped resources.
func ownerOwnership(get func(ctx context.Context, id string) (string, error)) permissions.ResourceOwnership {
	return func(r *http.Request, id string) (*permissions.Ownership, error) {
		ownerID, err := get(r.Context(), id)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return nil, permissions.ErrResourceNotFound
			}
			return nil, err
		}
		return &permissions.Ownership{OwnerID: ownerID}, nil
	}
}

// writePermError maps permission store errors onto the response envelope
func writePermError(w http.ResponseWriter, err error) {
	if errors.Is(err, permissions.ErrResourceNotFound) {
		httputil.WriteNotFound(w, "Resource not found")
		return
	}
	httputil.WriteError(w, err)
}

// writeStoreError maps storage errors onto the response envelope
func writeStoreError(w http.ResponseWriter, err error, notFoundMsg, conflictMsg string) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		httputil.WriteNotFound(w, notFoundMsg)
	case errors.Is(err, storage.ErrConflict):
		httputil.WriteErrorStatus(w, http.StatusConflict, conflictMsg)
	default:
		httputil.WriteError(w, err)
	}
}
