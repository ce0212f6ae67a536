// Package goSession provides a server-side session store: nested case-insensitive
// property bags, one-generation flash values, and a [Manager] that resumes,
// saves and deletes sessions through a pluggable byte-blob storage backend.
//
// A Manager is built with [Builder.Build] and is used from a single goroutine
// per request lifecycle. [Manager.Scope] guarantees that loaded sessions are
// saved when the unit of work ends, so callers need not persist explicitly.
//
// # Architecture boundaries
//
// goSession is the public surface. It exposes [Manager], [Builder], [Config],
// error sentinels, metrics and audit types. The data model and its encoding
// live in package session, backends in package storage, and signed session
// handles in package handle.
//
// # What this package must NOT do
//
//   - Hold two in-memory copies of one session id.
//   - Touch storage for an id that fails format validation.
//   - Swallow a save failure without logging and auditing it.
//
// # Cross-process consistency
//
// Two processes that resume the same id hold independent copies. The last
// Save wins; there is no merge and no optimistic locking.
package goSession
