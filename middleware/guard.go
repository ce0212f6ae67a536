package middleware

import (
	"errors"
	"net"
	"net/http"
	"strings"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/session"
)

// RequireHandle resumes the session named by a signed bearer handle in the
// Authorization header. Missing or invalid handles answer 401; a client
// throttled for repeated rejections answers 429.
func RequireHandle(factory Factory) func(http.Handler) http.Handler {
	return scoped(factory, func(w http.ResponseWriter, r *http.Request, m *goSession.Manager) (*session.Session, int) {
		token, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok {
			return nil, http.StatusUnauthorized
		}

		s, err := m.ResumeHandleFrom(r.Context(), token, clientAddr(r))
		if err != nil {
			if errors.Is(err, goSession.ErrHandleThrottled) {
				return nil, http.StatusTooManyRequests
			}
			if goSession.IsStorageFailure(err) {
				return nil, http.StatusServiceUnavailable
			}
			return nil, http.StatusUnauthorized
		}
		return s, 0
	})
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}

func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
