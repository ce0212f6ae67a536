package test

import (
	"context"
	"net/http"
	"testing"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/middleware"
	"github.com/MrEthical07/goSession/session"
	"github.com/MrEthical07/goSession/storage"
)

// This test intentionally guards public API compile-compat for consumers.
func TestPublicAPISurfaceCompile(t *testing.T) {
	_ = goSession.New
	_ = goSession.DefaultConfig
	_ = goSession.LoadConfig

	var _ *goSession.Manager
	var _ goSession.Config
	var _ goSession.MetricsSnapshot
	var _ goSession.AuditSink
	var _ storage.Storage = storage.NewMemory()
	var _ storage.Storage = (*storage.Directory)(nil)
	var _ storage.Storage = (*storage.Redis)(nil)
	var _ storage.Storage = (*storage.Sealed)(nil)

	var _ error = goSession.ErrRandomnessFailure
	var _ error = goSession.ErrInvalidIDFormat
	var _ error = goSession.ErrSessionNotFound
	var _ error = goSession.ErrDecodeFailure
	var _ error = goSession.ErrStorageFailure

	var _ func(middleware.Factory, middleware.CookieOptions) func(http.Handler) http.Handler = middleware.Sessions
	var _ func(middleware.Factory, middleware.CookieOptions) func(http.Handler) http.Handler = middleware.RequireSession
	var _ func(middleware.Factory) func(http.Handler) http.Handler = middleware.RequireHandle

	var _ func(*goSession.Manager) (*session.Session, error) = (*goSession.Manager).Start
	var _ func(*goSession.Manager, context.Context, string) (*session.Session, error) = (*goSession.Manager).Resume
	var _ func(*goSession.Manager, context.Context, string) error = (*goSession.Manager).Delete
	var _ func(*goSession.Manager, context.Context) error = (*goSession.Manager).Save
	var _ func(*goSession.Manager, context.Context, func(*goSession.Manager) error) error = (*goSession.Manager).Scope
}
