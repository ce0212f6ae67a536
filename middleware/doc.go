// Package middleware exposes HTTP adapters that bind a goSession.Manager to
// the lifetime of one request.
//
// # Adapters
//
//   - [Sessions]: resumes the session named by the cookie or starts a new
//     one, and saves it when the handler returns.
//   - [RequireSession]: like Sessions but rejects requests without a stored
//     session.
//   - [RequireHandle]: resumes the session named by a signed bearer handle.
//
// Each adapter builds a fresh Manager per request through a [Factory], injects
// the session into the request context, and closes the Manager afterwards.
//
// # What this package must NOT do
//
//   - Share a Manager between concurrent requests.
//   - Read or write storage except through the Manager.
//   - Put anything other than the session id in the cookie.
package middleware
