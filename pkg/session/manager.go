package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/dahlia/pkg/canvas"
	appctx "github.com/Ramsey-B/dahlia/pkg/context"
	"github.com/Ramsey-B/dahlia/pkg/errors"
	"github.com/Ramsey-B/dahlia/pkg/events"
	"github.com/Ramsey-B/dahlia/pkg/geometry"
	"github.com/Ramsey-B/dahlia/pkg/models"
	"github.com/Ramsey-B/dahlia/pkg/partners"
	"github.com/Ramsey-B/dahlia/pkg/pdfinfo"
	"github.com/Ramsey-B/dahlia/pkg/reconcile"
	"github.com/Ramsey-B/dahlia/pkg/redis"
	"github.com/Ramsey-B/dahlia/pkg/repositories"
	"github.com/Ramsey-B/dahlia/pkg/store"
	"github.com/Ramsey-B/dahlia/pkg/templateapi"
	"github.com/Ramsey-B/dahlia/pkg/tracing"
)

// ManagerConfig holds session lifecycle configuration
type ManagerConfig struct {
	IdleTTL       time.Duration
	SweepEvery    time.Duration
	AutosaveEvery time.Duration
	EditLockTTL   time.Duration
	DefaultPage   geometry.PageSize
}

// EditLock is a held template edit lock.
type EditLock interface {
	Release(ctx context.Context) error
	Extend(ctx context.Context, ttl time.Duration) error
}

// Locker hands out template edit locks.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (EditLock, error)
}

type redisLocker struct {
	locker *redis.Locker
}

func (r redisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (EditLock, error) {
	lock, err := r.locker.Acquire(ctx, key, ttl)
	if err != nil {
		return nil, err
	}
	return lock, nil
}

// EventPublisher is the slice of the kafka producer the manager uses.
type EventPublisher interface {
	Publish(ctx context.Context, event *events.TemplateEvent) error
	PublishSaved(ctx context.Context, templateID int64, sessionID string, saved events.SavedData) error
}

// Manager owns the live sessions: opening them against the template
// service, handing them to route handlers, autosaving drafts and sweeping
// idle ones.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	templates *templateapi.Client
	locker    Locker
	saver     *reconcile.Saver
	drafts    *repositories.DraftRepository
	producer  EventPublisher
	logger    ectologger.Logger
	cfg       ManagerConfig
}

// NewManager creates a session manager. producer may be nil when event
// emission is disabled.
func NewManager(
	templates *templateapi.Client,
	locker *redis.Locker,
	saver *reconcile.Saver,
	drafts *repositories.DraftRepository,
	producer *events.Producer,
	logger ectologger.Logger,
	cfg ManagerConfig,
) *Manager {
	m := &Manager{
		sessions:  make(map[string]*Session),
		templates: templates,
		locker:    redisLocker{locker: locker},
		saver:     saver,
		drafts:    drafts,
		logger:    logger,
		cfg:       cfg,
	}
	if producer != nil {
		m.producer = producer
	}
	return m
}

// Open starts an editing session on a template. Edit mode requires the
// template's distributed edit lock; a held lock means someone else is
// editing and the open fails with a conflict. Read-only opens skip the
// lock entirely.
func (m *Manager) Open(ctx context.Context, req models.OpenSessionRequest) (*Session, error) {
	ctx, span := tracing.StartSpan(ctx, "session.Manager.Open")
	defer span.End()

	canEdit := appctx.CanEdit(ctx)

	tmpl, err := m.templates.GetTemplateFullInfo(ctx, req.TemplateID)
	if err != nil {
		m.logger.WithContext(ctx).WithError(err).Errorf("Failed to load template %d", req.TemplateID)
		return nil, httperror.NewHTTPErrorf(http.StatusBadGateway, "failed to load template %d", req.TemplateID)
	}

	var doc *pdfinfo.DocumentInfo
	page := m.cfg.DefaultPage.OrDefault()
	if req.PDFPath != "" {
		doc, err = pdfinfo.ReadFile(req.PDFPath)
		if err != nil {
			// Geometry falls back to defaults; the editor still works.
			m.logger.WithContext(ctx).WithError(err).Warnf("Failed to read PDF geometry for template %d", req.TemplateID)
		} else {
			page = doc.PageSize(1)
		}
	} else if tmpl.PageWidth > 0 && tmpl.PageHeight > 0 {
		page = geometry.PageSize{Width: tmpl.PageWidth, Height: tmpl.PageHeight}
	}

	initKey := fmt.Sprintf("%d:%.2fx%.2f", tmpl.ID, page.Width, page.Height)

	// A session already editing this template with the same geometry is
	// reused rather than re-seeded, so a redundant open never discards
	// in-progress edits. Only the same user gets the reuse; anyone else
	// must go through the edit lock below.
	if existing := m.findByTemplate(req.TemplateID); existing != nil &&
		existing.initKey == initKey && existing.ReadOnly == !canEdit &&
		existing.UserID == appctx.GetUserID(ctx) {
		return existing, nil
	}

	var lock EditLock
	if canEdit {
		lock, err = m.locker.Acquire(ctx, fmt.Sprintf("template:%d", req.TemplateID), m.cfg.EditLockTTL)
		if err == redis.ErrLockNotAcquired {
			return nil, httperror.NewHTTPErrorf(http.StatusConflict, "template %d is being edited by someone else", req.TemplateID)
		}
		if err != nil {
			return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to acquire edit lock")
		}
	}

	init := reconcile.Initialize(*tmpl, page)
	if init.Duplicates > 0 {
		m.logger.WithContext(ctx).Warnf("Template %d carried %d duplicate field records", tmpl.ID, init.Duplicates)
	}
	for _, correction := range init.Corrections {
		m.logger.WithContext(ctx).Warnf("Template %d: %s", tmpl.ID, correction)
	}

	st := store.New()
	st.Seed(init.Fields, init.Snapshot)

	sess := &Session{
		ID:         uuid.New().String(),
		TemplateID: tmpl.ID,
		UserID:     appctx.GetUserID(ctx),
		ReadOnly:   !canEdit,
		store:      st,
		registry:   partners.NewRegistry(init.Partners),
		canvas:     newCanvasState(req),
		doc:        doc,
		page:       page,
		initKey:    initKey,
		lock:       lock,
		lastActive: time.Now(),
	}

	m.mu.Lock()
	m.sessions[sess.ID] = sess
	m.mu.Unlock()

	m.logger.WithContext(ctx).WithFields(map[string]any{
		"session_id":  sess.ID,
		"template_id": tmpl.ID,
		"read_only":   sess.ReadOnly,
		"fields":      len(init.Fields),
	}).Info("Opened editor session")

	if m.producer != nil {
		if err := m.producer.Publish(ctx, &events.TemplateEvent{
			EventType:  events.EventSessionOpened,
			TemplateID: tmpl.ID,
			SessionID:  sess.ID,
		}); err != nil {
			m.logger.WithContext(ctx).WithError(err).Warn("Failed to publish session opened event")
		}
	}

	return sess, nil
}

// Get returns a live session by id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sess, ok := m.sessions[id]
	if !ok {
		return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "session %s does not exist", id)
	}
	return sess, nil
}

// Close ends a session, releasing its edit lock.
func (m *Manager) Close(ctx context.Context, id string) error {
	ctx, span := tracing.StartSpan(ctx, "session.Manager.Close")
	defer span.End()

	m.mu.Lock()
	sess, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if !ok {
		return httperror.NewHTTPErrorf(http.StatusNotFound, "session %s does not exist", id)
	}

	m.release(ctx, sess)

	if m.producer != nil {
		if err := m.producer.Publish(ctx, &events.TemplateEvent{
			EventType:  events.EventSessionClosed,
			TemplateID: sess.TemplateID,
			SessionID:  sess.ID,
		}); err != nil {
			m.logger.WithContext(ctx).WithError(err).Warn("Failed to publish session closed event")
		}
	}

	return nil
}

// Save flushes a session to the template service, extends its edit lock,
// clears its draft and publishes the save event.
func (m *Manager) Save(ctx context.Context, id string) (models.SaveResponse, error) {
	ctx, span := tracing.StartSpan(ctx, "session.Manager.Save")
	defer span.End()

	sess, err := m.Get(id)
	if err != nil {
		return models.SaveResponse{}, err
	}

	resp, err := sess.Save(ctx, m.saver)
	if err != nil {
		if errors.IsEditorError(err) {
			return resp, err.(*errors.EditorError).ToHTTPError()
		}
		return resp, err
	}

	if sess.lock != nil {
		if err := sess.lock.Extend(ctx, m.cfg.EditLockTTL); err != nil {
			m.logger.WithContext(ctx).WithError(err).Warnf("Failed to extend edit lock for template %d", sess.TemplateID)
		}
	}

	if m.drafts != nil {
		if err := m.drafts.Delete(ctx, sess.TemplateID); err != nil {
			m.logger.WithContext(ctx).WithError(err).Warnf("Failed to clear draft for template %d", sess.TemplateID)
		}
	}

	if m.producer != nil {
		saved := events.SavedData{Created: resp.Created, Updated: resp.Updated, Deleted: resp.Deleted}
		if err := m.producer.PublishSaved(ctx, sess.TemplateID, sess.ID, saved); err != nil {
			m.logger.WithContext(ctx).WithError(err).Warn("Failed to publish save event")
		}
	}

	return resp, nil
}

// RemovePartner cascades a partner removal through the session and
// publishes the lifecycle event for downstream consumers.
func (m *Manager) RemovePartner(ctx context.Context, id string, name string) (models.PartnerChangeResponse, error) {
	ctx, span := tracing.StartSpan(ctx, "session.Manager.RemovePartner")
	defer span.End()

	sess, err := m.Get(id)
	if err != nil {
		return models.PartnerChangeResponse{}, err
	}

	resp, err := sess.RemovePartnerCascading(name)
	if err != nil {
		return resp, err
	}

	if m.producer != nil {
		data, err := json.Marshal(resp)
		if err == nil {
			err = m.producer.Publish(ctx, &events.TemplateEvent{
				EventType:  events.EventPartnerRemoved,
				TemplateID: sess.TemplateID,
				SessionID:  sess.ID,
				Data:       data,
			})
		}
		if err != nil {
			m.logger.WithContext(ctx).WithError(err).Warn("Failed to publish partner removed event")
		}
	}

	return resp, nil
}

// Run drives the background loops: draft autosave and idle sweeping.
// Blocks until ctx is canceled.
func (m *Manager) Run(ctx context.Context) {
	sweep := time.NewTicker(m.cfg.SweepEvery)
	defer sweep.Stop()
	autosave := time.NewTicker(m.cfg.AutosaveEvery)
	defer autosave.Stop()

	for {
		select {
		case <-ctx.Done():
			m.shutdown()
			return
		case <-sweep.C:
			m.sweepIdle(ctx)
		case <-autosave.C:
			m.autosaveDrafts(ctx)
		}
	}
}

func (m *Manager) findByTemplate(templateID int64) *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, sess := range m.sessions {
		if sess.TemplateID == templateID {
			return sess
		}
	}
	return nil
}

// sweepIdle drops sessions idle past the TTL and prunes stale drafts.
func (m *Manager) sweepIdle(ctx context.Context) {
	m.mu.Lock()
	var expired []*Session
	for id, sess := range m.sessions {
		if sess.IdleSince() > m.cfg.IdleTTL {
			expired = append(expired, sess)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, sess := range expired {
		m.logger.WithContext(ctx).WithFields(map[string]any{
			"session_id":  sess.ID,
			"template_id": sess.TemplateID,
		}).Info("Expired idle session")
		m.release(ctx, sess)
	}

	if m.drafts != nil {
		if _, err := m.drafts.DeleteStale(ctx, 2*m.cfg.IdleTTL); err != nil {
			m.logger.WithContext(ctx).WithError(err).Warn("Failed to prune stale drafts")
		}
	}
}

// autosaveDrafts writes the working state of every dirty session. A dirty
// session also has its edit lock extended here, so an editor who keeps
// working without saving does not lose exclusivity when the lock TTL
// outlives the last save.
func (m *Manager) autosaveDrafts(ctx context.Context) {
	m.mu.RLock()
	live := make([]*Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		live = append(live, sess)
	}
	m.mu.RUnlock()

	for _, sess := range live {
		fields, names, dirty := sess.DraftState()
		if !dirty {
			continue
		}

		if sess.lock != nil {
			if err := sess.lock.Extend(ctx, m.cfg.EditLockTTL); err != nil {
				m.logger.WithContext(ctx).WithError(err).Warnf("Failed to extend edit lock for template %d", sess.TemplateID)
			}
		}

		if m.drafts == nil {
			continue
		}

		draft := &repositories.Draft{
			TemplateID: sess.TemplateID,
			SessionID:  sess.ID,
			UserID:     sess.UserID,
		}
		draft.Fields.Data = fields
		draft.Partners.Data = names

		if err := m.drafts.Upsert(ctx, draft); err != nil {
			m.logger.WithContext(ctx).WithError(err).Warnf("Failed to autosave draft for template %d", sess.TemplateID)
			continue
		}
		sess.DraftSaved()
	}
}

func (m *Manager) release(ctx context.Context, sess *Session) {
	if sess.lock == nil {
		return
	}
	if err := sess.lock.Release(ctx); err != nil && err != redis.ErrLockNotHeld {
		m.logger.WithContext(ctx).WithError(err).Warnf("Failed to release edit lock for template %d", sess.TemplateID)
	}
}

func (m *Manager) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, sess := range m.sessions {
		m.release(ctx, sess)
	}
	m.sessions = make(map[string]*Session)
}

func newCanvasState(req models.OpenSessionRequest) canvas.State {
	st := canvas.NewState()
	if req.CanvasWidth > 0 && req.CanvasHeight > 0 {
		st.Canvas = geometry.PageSize{Width: req.CanvasWidth, Height: req.CanvasHeight}
	}
	return st
}
