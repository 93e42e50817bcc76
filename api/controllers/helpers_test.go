package controllers

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mercaline/marketplace-backend/api/middleware"
	"github.com/mercaline/marketplace-backend/pkg/enums"
	"github.com/mercaline/marketplace-backend/pkg/logger"
)

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func addRouteParam(r *http.Request, key, value string) *http.Request {
	routeCtx := chi.NewRouteContext()
	if existing := chi.RouteContext(r.Context()); existing != nil {
		routeCtx = existing
	}
	routeCtx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, routeCtx))
}

func asActor(r *http.Request, userID uuid.UUID, role enums.ActorRole, vendorID *uuid.UUID) *http.Request {
	return r.WithContext(middleware.WithActor(r.Context(), userID, role, vendorID))
}
