package goSession

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/MrEthical07/goSession/handle"
	"github.com/MrEthical07/goSession/internal/audit"
	"github.com/MrEthical07/goSession/internal/rate"
	"github.com/MrEthical07/goSession/session"
	"github.com/MrEthical07/goSession/storage"
	"github.com/rs/zerolog"
)

// Manager is the registry of sessions loaded in this process and the only
// path between them and storage. A Manager is not safe for concurrent use;
// callers serialize access.
type Manager struct {
	config   Config
	storage  storage.Storage
	sessions map[string]*session.Session
	signer   *handle.Signer
	throttle *rate.Limiter
	logger   zerolog.Logger
	metrics  *Metrics
	audit    *audit.Dispatcher
	closed   bool
}

// Start creates a session with a fresh id and registers it.
func (m *Manager) Start() (*session.Session, error) {
	if m.closed {
		return nil, ErrManagerClosed
	}

	s, err := session.New()
	if err != nil {
		m.logger.Error().Err(err).Msg("session id generation failed")
		return nil, err
	}

	m.sessions[s.ID()] = s
	m.metrics.Inc(MetricSessionStarted)
	m.trackLoaded()
	m.emitAudit(context.Background(), audit.EventSessionStarted, s.ID(), nil)

	return s, nil
}

// Resume describes the resume operation and its observable behavior.
//
// Resume returns the cached instance when id is already loaded, so every
// caller in this process shares one mutable session. Otherwise the blob is
// read from storage and decoded. Malformed ids fail with ErrInvalidIDFormat
// before storage is touched; absent ids fail with ErrSessionNotFound; corrupt
// blobs fail with ErrDecodeFailure.
func (m *Manager) Resume(ctx context.Context, id string) (*session.Session, error) {
	if m.closed {
		return nil, ErrManagerClosed
	}

	id, err := session.NormalizeID(id)
	if err != nil {
		m.metrics.Inc(MetricResumeInvalidID)
		return nil, err
	}

	if s, ok := m.sessions[id]; ok {
		m.metrics.Inc(MetricResumeCacheHit)
		m.metrics.Inc(MetricSessionResumed)
		return s, nil
	}

	start := time.Now()
	s, err := m.load(ctx, id)
	m.metrics.Observe(MetricResumeLatency, time.Since(start))
	if err != nil {
		m.emitAudit(ctx, audit.EventResumeFailed, id, err)
		return nil, err
	}

	m.sessions[id] = s
	m.trackLoaded()
	m.metrics.Inc(MetricSessionResumed)
	m.emitAudit(ctx, audit.EventSessionResumed, id, nil)

	return s, nil
}

func (m *Manager) load(ctx context.Context, id string) (*session.Session, error) {
	exists, err := m.storage.Has(ctx, id)
	if err != nil {
		return nil, m.storageError(id, err)
	}
	if !exists {
		m.metrics.Inc(MetricResumeNotFound)
		return nil, ErrSessionNotFound
	}

	blob, err := m.storage.Read(ctx, id)
	if err != nil {
		return nil, m.storageError(id, err)
	}

	raw, err := base64.StdEncoding.DecodeString(string(blob))
	if err != nil {
		return nil, m.decodeError(id, err)
	}

	s, err := session.Decode(raw)
	if err != nil {
		return nil, m.decodeError(id, err)
	}
	if s.ID() != id {
		return nil, m.decodeError(id, fmt.Errorf("blob holds session %s", s.ID()))
	}

	return s, nil
}

// Delete removes the stored session and, once the backend confirms, also
// evicts the cached copy so a later Save or Close does not write it back.
// This goes further than a plain storage removal, which would leave a loaded
// session to be resurrected on the next save. When the backend fails the
// cached copy stays registered.
func (m *Manager) Delete(ctx context.Context, id string) error {
	if m.closed {
		return ErrManagerClosed
	}

	id, err := session.NormalizeID(id)
	if err != nil {
		return err
	}

	exists, err := m.storage.Has(ctx, id)
	if err != nil {
		return m.storageError(id, err)
	}
	if !exists {
		return ErrSessionNotFound
	}

	if err := m.storage.Delete(ctx, id); err != nil {
		err = m.storageError(id, err)
		m.emitAudit(ctx, audit.EventSessionDeleted, id, err)
		return err
	}

	delete(m.sessions, id)
	m.trackLoaded()
	m.metrics.Inc(MetricSessionDeleted)
	m.emitAudit(ctx, audit.EventSessionDeleted, id, nil)

	return nil
}

// Save describes the save operation and its observable behavior.
//
// Save writes every loaded session in ascending id order. By default it stops
// at the first failure and returns it; sessions after the failing one are not
// written. With Config.Save.ContinueOnError every session is attempted and the
// failures are returned joined. Each failure is logged and audited.
func (m *Manager) Save(ctx context.Context) error {
	if m.closed {
		return ErrManagerClosed
	}
	return m.save(ctx)
}

func (m *Manager) save(ctx context.Context) error {
	start := time.Now()
	defer func() {
		m.metrics.Observe(MetricSaveLatency, time.Since(start))
	}()

	var errs []error
	defer func() {
		m.metrics.Set(MetricLastSaveFailures, int64(len(errs)))
	}()

	for _, id := range m.Loaded() {
		if err := m.saveOne(ctx, m.sessions[id]); err != nil {
			m.metrics.Inc(MetricSaveFailure)
			m.logger.Warn().Err(err).Str("session_id", id).Msg("session save failed")
			m.emitAudit(ctx, audit.EventSaveFailed, id, err)
			errs = append(errs, err)
			if !m.config.Save.ContinueOnError {
				m.metrics.Inc(MetricSaveAborted)
				return err
			}
			continue
		}
		m.metrics.Inc(MetricSessionSaved)
	}

	return errors.Join(errs...)
}

func (m *Manager) saveOne(ctx context.Context, s *session.Session) error {
	raw, err := s.Serialize()
	if err != nil {
		return err
	}

	blob := make([]byte, base64.StdEncoding.EncodedLen(len(raw)))
	base64.StdEncoding.Encode(blob, raw)

	if err := m.storage.Write(ctx, s.ID(), blob); err != nil {
		return m.storageError(s.ID(), err)
	}
	return nil
}

// Scope runs fn and then saves, even when fn fails or panics. The returned
// error joins fn's error with the save error.
func (m *Manager) Scope(ctx context.Context, fn func(*Manager) error) (err error) {
	if m.closed {
		return ErrManagerClosed
	}

	defer func() {
		if saveErr := m.save(ctx); saveErr != nil {
			err = errors.Join(err, saveErr)
		}
	}()

	return fn(m)
}

// Rotate gives a loaded session a new id, rekeys the registry and removes the
// blob stored under the old id. The old blob is removed first: when that
// fails the session, its id and the registry are left untouched. When id
// generation fails afterwards the session keeps its old id and the next Save
// writes it back under that id.
func (m *Manager) Rotate(ctx context.Context, s *session.Session, nonce string) error {
	if m.closed {
		return ErrManagerClosed
	}
	if s == nil {
		return ErrSessionNotLoaded
	}

	oldID := s.ID()
	if cached, ok := m.sessions[oldID]; !ok || cached != s {
		return ErrSessionNotLoaded
	}

	if err := m.storage.Delete(ctx, oldID); err != nil {
		err = m.storageError(oldID, err)
		m.logger.Warn().Err(err).Str("session_id", oldID).Msg("session rotation aborted")
		m.emitAudit(ctx, audit.EventSessionRotated, oldID, err)
		return err
	}

	if err := s.GenerateID(nonce); err != nil {
		m.logger.Error().Err(err).Str("session_id", oldID).Msg("session id rotation failed")
		return err
	}

	delete(m.sessions, oldID)
	m.sessions[s.ID()] = s

	m.metrics.Inc(MetricSessionRotated)
	evt := audit.NewEvent(audit.EventSessionRotated, s.ID(), nil)
	evt.Metadata = map[string]string{"previous_id": oldID}
	m.audit.Emit(ctx, evt)

	return nil
}

// Loaded returns the ids of all sessions held by the manager, sorted.
func (m *Manager) Loaded() []string {
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// LastModified returns the unix time of the last write of session id.
func (m *Manager) LastModified(ctx context.Context, id string) (time.Time, error) {
	if m.closed {
		return time.Time{}, ErrManagerClosed
	}

	id, err := session.NormalizeID(id)
	if err != nil {
		return time.Time{}, err
	}

	ts, err := m.storage.LastModified(ctx, id)
	if err != nil {
		return time.Time{}, m.storageError(id, err)
	}
	return time.Unix(ts, 0), nil
}

// IssueHandle returns a signed token naming a loaded session.
func (m *Manager) IssueHandle(s *session.Session) (string, error) {
	if m.closed {
		return "", ErrManagerClosed
	}
	if m.signer == nil {
		return "", ErrHandlesDisabled
	}
	if s == nil || m.sessions[s.ID()] != s {
		return "", ErrSessionNotLoaded
	}

	token, err := m.signer.Issue(s.ID())
	if err != nil {
		return "", err
	}
	m.metrics.Inc(MetricHandleIssued)
	return token, nil
}

// ResumeHandle verifies token and resumes the session it names.
func (m *Manager) ResumeHandle(ctx context.Context, token string) (*session.Session, error) {
	return m.ResumeHandleFrom(ctx, token, "")
}

// ResumeHandleFrom is ResumeHandle with rejections counted against client,
// typically the remote address. With Config.Handle.MaxRejections set, a
// client that reached the limit fails with ErrHandleThrottled until its
// window ends. An empty client is never throttled.
func (m *Manager) ResumeHandleFrom(ctx context.Context, token, client string) (*session.Session, error) {
	if m.closed {
		return nil, ErrManagerClosed
	}
	if m.signer == nil {
		return nil, ErrHandlesDisabled
	}

	throttled := m.throttle != nil && client != ""
	if throttled {
		if err := m.throttle.Check(ctx, client); err != nil {
			if errors.Is(err, rate.ErrRateLimited) {
				m.metrics.Inc(MetricHandleThrottled)
				return nil, ErrHandleThrottled
			}
			return nil, m.storageError("", err)
		}
	}

	id, err := m.signer.Parse(token)
	if err != nil {
		m.metrics.Inc(MetricHandleRejected)
		m.emitAudit(ctx, audit.EventHandleRejected, "", err)
		if throttled {
			if hitErr := m.throttle.Hit(ctx, client); hitErr != nil && !errors.Is(hitErr, rate.ErrRateLimited) {
				m.logger.Warn().Err(hitErr).Str("client", client).Msg("handle rejection not counted")
			}
		}
		return nil, err
	}

	return m.Resume(ctx, id)
}

// Close saves every loaded session and stops the audit dispatcher. Later
// calls return nil; every other operation returns ErrManagerClosed.
func (m *Manager) Close(ctx context.Context) error {
	if m.closed {
		return nil
	}

	err := m.save(ctx)
	m.closed = true
	if auditErr := m.audit.Close(ctx); auditErr != nil {
		m.logger.Warn().Err(auditErr).Uint64("dropped", m.audit.Dropped()).Msg("audit events not flushed")
		err = errors.Join(err, auditErr)
	}

	return err
}

// Storage returns the backend the manager reads and writes through.
func (m *Manager) Storage() storage.Storage {
	return m.storage
}

// MetricsSnapshot returns a copy of the manager's counters and histograms.
func (m *Manager) MetricsSnapshot() MetricsSnapshot {
	return m.metrics.Snapshot()
}

// AuditDropped returns the number of audit events dropped under backpressure.
func (m *Manager) AuditDropped() uint64 {
	return m.audit.Dropped()
}

func (m *Manager) trackLoaded() {
	m.metrics.Set(MetricLoadedSessions, int64(len(m.sessions)))
}

func (m *Manager) storageError(id string, err error) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return ErrSessionNotFound
	case errors.Is(err, storage.ErrCorrupt):
		return m.decodeError(id, err)
	}
	m.metrics.Inc(MetricStorageFailure)
	if !errors.Is(err, ErrStorageFailure) {
		err = fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	return err
}

func (m *Manager) decodeError(id string, err error) error {
	m.metrics.Inc(MetricDecodeFailure)
	if !errors.Is(err, ErrDecodeFailure) {
		err = fmt.Errorf("%w: %v", ErrDecodeFailure, err)
	}
	m.logger.Warn().Err(err).Str("session_id", id).Msg("session blob rejected")
	return err
}

func (m *Manager) emitAudit(ctx context.Context, eventType, sessionID string, err error) {
	if m.audit == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	m.audit.Emit(ctx, audit.NewEvent(eventType, sessionID, err))
}
