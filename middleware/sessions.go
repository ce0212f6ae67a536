package middleware

import (
	"context"
	"net/http"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/session"
)

// Factory returns a Manager for one request.
type Factory func() (*goSession.Manager, error)

// CookieOptions controls the session cookie.
type CookieOptions struct {
	Name     string
	Path     string
	Domain   string
	MaxAge   time.Duration
	Secure   bool
	SameSite http.SameSite
}

func (o CookieOptions) withDefaults() CookieOptions {
	if o.Name == "" {
		o.Name = "sid"
	}
	if o.Path == "" {
		o.Path = "/"
	}
	if o.SameSite == 0 {
		o.SameSite = http.SameSiteLaxMode
	}
	return o
}

type sessionContextKey struct{}
type managerContextKey struct{}

// SessionFromContext returns the session attached by one of the adapters.
func SessionFromContext(ctx context.Context) (*session.Session, bool) {
	s, ok := ctx.Value(sessionContextKey{}).(*session.Session)
	return s, ok
}

// ManagerFromContext returns the request's Manager, for Rotate and Delete.
func ManagerFromContext(ctx context.Context) (*goSession.Manager, bool) {
	m, ok := ctx.Value(managerContextKey{}).(*goSession.Manager)
	return m, ok
}

// Sessions resumes the session named by the cookie, or starts one when the
// cookie is missing, malformed or names an unknown session. A corrupt stored
// session is replaced by a new one. Storage failures answer 503.
func Sessions(factory Factory, opts CookieOptions) func(http.Handler) http.Handler {
	opts = opts.withDefaults()
	return scoped(factory, func(w http.ResponseWriter, r *http.Request, m *goSession.Manager) (*session.Session, int) {
		if c, err := r.Cookie(opts.Name); err == nil {
			s, err := m.Resume(r.Context(), c.Value)
			if err == nil {
				return s, 0
			}
			if goSession.IsStorageFailure(err) {
				return nil, http.StatusServiceUnavailable
			}
		}

		s, err := m.Start()
		if err != nil {
			return nil, http.StatusInternalServerError
		}
		setCookie(w, opts, s.ID())
		return s, 0
	})
}

// RequireSession resumes the session named by the cookie and answers 401 when
// there is none.
func RequireSession(factory Factory, opts CookieOptions) func(http.Handler) http.Handler {
	opts = opts.withDefaults()
	return scoped(factory, func(w http.ResponseWriter, r *http.Request, m *goSession.Manager) (*session.Session, int) {
		c, err := r.Cookie(opts.Name)
		if err != nil || c.Value == "" {
			return nil, http.StatusUnauthorized
		}
		s, err := m.Resume(r.Context(), c.Value)
		if err != nil {
			if goSession.IsStorageFailure(err) {
				return nil, http.StatusServiceUnavailable
			}
			return nil, http.StatusUnauthorized
		}
		return s, 0
	})
}

// SetCookie writes the cookie naming s. Call it after Manager.Rotate.
func SetCookie(w http.ResponseWriter, opts CookieOptions, s *session.Session) {
	setCookie(w, opts.withDefaults(), s.ID())
}

// ClearCookie expires the session cookie.
func ClearCookie(w http.ResponseWriter, opts CookieOptions) {
	opts = opts.withDefaults()
	http.SetCookie(w, &http.Cookie{
		Name:     opts.Name,
		Value:    "",
		Path:     opts.Path,
		Domain:   opts.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: opts.SameSite,
	})
}

func setCookie(w http.ResponseWriter, opts CookieOptions, id string) {
	c := &http.Cookie{
		Name:     opts.Name,
		Value:    id,
		Path:     opts.Path,
		Domain:   opts.Domain,
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: opts.SameSite,
	}
	if opts.MaxAge > 0 {
		c.MaxAge = int(opts.MaxAge.Seconds())
	}
	http.SetCookie(w, c)
}

type acquireFunc func(w http.ResponseWriter, r *http.Request, m *goSession.Manager) (*session.Session, int)

// scoped builds a Manager, acquires the request session and saves it once
// next returns.
func scoped(factory Factory, acquire acquireFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if factory == nil {
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			m, err := factory()
			if err != nil {
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			// Save failures are logged and audited by the manager.
			defer func() { _ = m.Close(context.WithoutCancel(r.Context())) }()

			s, status := acquire(w, r, m)
			if status != 0 {
				http.Error(w, http.StatusText(status), status)
				return
			}

			ctx := context.WithValue(r.Context(), sessionContextKey{}, s)
			ctx = context.WithValue(ctx, managerContextKey{}, m)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
