// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/jeranaias/rolechat/internal/api"
	"github.com/jeranaias/rolechat/internal/archive"
	"github.com/jeranaias/rolechat/internal/export"
	"github.com/jeranaias/rolechat/internal/model"
	"github.com/jeranaias/rolechat/internal/persona"
)

// Relay is the slice of the backend the controller talks to.
// *client.Client implements it.
type Relay interface {
	Personas(ctx context.Context) ([]persona.Listing, error)
	Chat(ctx context.Context, personaID string, history []model.Message) (string, error)
	Reset(ctx context.Context) error
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller owns the live State. All methods are safe for concurrent use.
type Controller struct {
	mu    sync.Mutex
	state State
	gen   uint64 // bumped by Reset and Resume

	relay     Relay
	store     archive.Store
	clock     func() time.Time
	exportDir string
	logger    *slog.Logger
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock sets the time source used for archive ids and export stamps.
func WithClock(fn func() time.Time) Option {
	return func(c *Controller) { c.clock = fn }
}

// WithExportDir sets where exports are written.
func WithExportDir(dir string) Option {
	return func(c *Controller) { c.exportDir = dir }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// New creates a controller with a fresh conversation on the default persona
// and the built-in persona listing until LoadPersonas succeeds.
func New(relay Relay, store archive.Store, opts ...Option) *Controller {
	c := &Controller{
		relay:     relay,
		store:     store,
		clock:     time.Now,
		exportDir: ".",
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.state = State{
		Session:  *model.NewConversation(persona.DefaultID),
		Phase:    PhaseIdle,
		Personas: persona.Fallback(),
	}
	return c
}

// Snapshot returns a deep copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// AwaitingReply reports whether a send is outstanding.
func (c *Controller) AwaitingReply() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Phase == PhaseAwaitingReply
}

// update runs fn with the lock held.
func (c *Controller) update(fn func(s *State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(&c.state)
}

// =============================================================================
// PERSONAS AND INPUT
// =============================================================================

// LoadPersonas fetches the catalog listing. On failure the built-in listing
// is used and a warning is set; the returned error is informational.
func (c *Controller) LoadPersonas(ctx context.Context) error {
	listings, err := c.relay.Personas(ctx)
	if err == nil && len(listings) == 0 {
		err = errors.New("server returned no personas")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.logger.Warn("PERSONAS_FALLBACK", "error", err)
		c.state.Personas = persona.Fallback()
		c.state.Warning = WarningFallbackPersonas
		return fmt.Errorf("load personas: %w", err)
	}
	c.state.Personas = cloneListings(listings)
	c.state.Warning = ""
	return nil
}

// SetInput stores the pending input text.
func (c *Controller) SetInput(text string) {
	c.update(func(s *State) { s.Input = text })
}

// SetPersona switches the live persona. The id must be in the listing.
func (c *Controller) SetPersona(id string) error {
	id = persona.Normalize(id)
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.state.HasPersona(id) {
		return fmt.Errorf("%w: %q", ErrUnknownPersona, id)
	}
	c.state.Session.PersonaID = id
	return nil
}

// =============================================================================
// SEND
// =============================================================================

// Submit sends the pending input.
func (c *Controller) Submit(ctx context.Context) error {
	c.mu.Lock()
	text := c.state.Input
	c.mu.Unlock()
	return c.Send(ctx, text)
}

// Send appends text as a user message and waits for the partner's reply.
// Blank or over-long text and sends during an outstanding reply are
// rejected without touching state. Relay failures are recorded in the log
// and banner, not returned. The relay sees at most the last
// api.MaxHistoryTurns dialogue entries.
func (c *Controller) Send(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyMessage
	}
	if utf8.RuneCountInString(text) > api.MaxTurnLength {
		return ErrMessageTooLong
	}

	c.mu.Lock()
	if c.state.Phase == PhaseAwaitingReply {
		c.mu.Unlock()
		return ErrSendInFlight
	}
	phase, err := c.state.Phase.next(PhaseAwaitingReply)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.state.Phase = phase
	c.state.Session.Append(model.NewUserMessage(text))
	c.state.Input = ""
	gen := c.gen
	personaID := c.state.Session.PersonaID
	history := c.state.Session.Window(api.MaxHistoryTurns, api.MaxTurnLength)
	c.mu.Unlock()

	// Runs last, after the result is recorded, and also on panic.
	defer c.finishSend(gen)

	reply, err := c.relay.Chat(ctx, personaID, history)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		c.logger.Debug("SESSION_STALE_REPLY", "persona", personaID)
		return nil
	}
	if err != nil {
		desc := Describe(err)
		c.logger.Warn("SESSION_SEND_FAILED", "persona", personaID, "error", err)
		c.state.Session.Append(model.NewErrorMessage(desc))
		c.state.Banner = desc
		return nil
	}
	c.state.Session.Append(model.NewModelMessage(reply))
	c.state.Banner = ""
	return nil
}

func (c *Controller) finishSend(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen || c.state.Phase != PhaseAwaitingReply {
		return
	}
	c.state.Phase, _ = c.state.Phase.next(PhaseIdle)
}

// DismissBanner clears the transient failure banner.
func (c *Controller) DismissBanner() {
	c.update(func(s *State) { s.Banner = "" })
}

// =============================================================================
// RESET AND RESUME
// =============================================================================

// Reset starts a fresh conversation on the current persona, then tells the
// backend best-effort. Archive entries are untouched.
func (c *Controller) Reset(ctx context.Context) {
	c.Clear()
	c.NotifyReset(ctx)
}

// Clear is the local half of Reset. An outstanding send is dropped, so a
// new one is accepted right away.
func (c *Controller) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.state.Session = *model.NewConversation(c.state.Session.PersonaID)
	c.state.Input = ""
	c.state.Banner = ""
	c.leaveAwaiting()
}

// NotifyReset tells the backend about a reset. Failures are only logged.
func (c *Controller) NotifyReset(ctx context.Context) {
	if err := c.relay.Reset(ctx); err != nil {
		c.logger.Debug("SESSION_RESET_NOTIFY_FAILED", "error", err)
	}
}

// Resume replaces the live conversation with the viewed one and closes the
// view. The archive entry it came from is kept.
func (c *Controller) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := c.state.Viewing
	if v == nil {
		return ErrNoViewedSession
	}
	personaID := v.PersonaID
	if personaID == "" {
		personaID = persona.DefaultID
	}
	c.gen++
	c.state.Session.Replace(personaID, v.Messages)
	c.state.Viewing = nil
	c.state.Banner = ""
	c.leaveAwaiting()
	return nil
}

// leaveAwaiting drops an outstanding send. Caller holds mu.
func (c *Controller) leaveAwaiting() {
	if c.state.Phase == PhaseAwaitingReply {
		c.state.Phase, _ = c.state.Phase.next(PhaseIdle)
	}
}

// =============================================================================
// VIEWING
// =============================================================================

// View opens an archive entry read-only.
func (c *Controller) View(ctx context.Context, id string) error {
	entries, err := c.store.GetAll(ctx)
	if err != nil {
		c.setStatus("Could not load archive: " + err.Error())
		return err
	}
	for _, e := range entries {
		if e.ID != id {
			continue
		}
		c.update(func(s *State) {
			s.Viewing = &View{
				Source:    SourceArchive,
				EntryID:   e.ID,
				PersonaID: e.PersonaID,
				Messages:  model.CloneMessages(e.Messages),
			}
			s.Status = ""
		})
		return nil
	}
	c.setStatus(StatusNotFound)
	return fmt.Errorf("%w: %s", ErrNoSuchEntry, id)
}

// CloseView leaves viewing mode.
func (c *Controller) CloseView() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Viewing == nil {
		return ErrNoViewedSession
	}
	c.state.Viewing = nil
	return nil
}

// =============================================================================
// ARCHIVE
// =============================================================================

// Save snapshots the live conversation into a new archive entry.
func (c *Controller) Save(ctx context.Context) (archive.Entry, error) {
	c.mu.Lock()
	entry := archive.NewEntry(&c.state.Session, c.clock())
	c.mu.Unlock()

	if err := c.store.Put(ctx, entry); err != nil {
		c.logger.Warn("ARCHIVE_PUT_FAILED", "id", entry.ID, "error", err)
		c.setStatus("Save failed: " + err.Error())
		return archive.Entry{}, err
	}
	c.setStatus(StatusSaved)
	return entry, nil
}

// Archive returns every saved entry, newest first.
func (c *Controller) Archive(ctx context.Context) ([]archive.Entry, error) {
	entries, err := c.store.GetAll(ctx)
	if err != nil {
		c.logger.Warn("ARCHIVE_READ_FAILED", "error", err)
		c.setStatus("Could not load archive: " + err.Error())
		return nil, err
	}
	archive.SortNewestFirst(entries)
	return entries, nil
}

// Delete removes an archive entry. A view of that entry is closed.
func (c *Controller) Delete(ctx context.Context, id string) error {
	if err := c.store.Delete(ctx, id); err != nil {
		c.logger.Warn("ARCHIVE_DELETE_FAILED", "id", id, "error", err)
		c.setStatus("Delete failed: " + err.Error())
		return err
	}
	c.update(func(s *State) {
		if s.Viewing != nil && s.Viewing.Source == SourceArchive && s.Viewing.EntryID == id {
			s.Viewing = nil
		}
		s.Status = StatusDeleted
	})
	return nil
}

func (c *Controller) setStatus(msg string) {
	c.update(func(s *State) { s.Status = msg })
}

// =============================================================================
// EXPORT AND IMPORT
// =============================================================================

// Export writes the live conversation with exporter and returns the path.
// Only the status line changes.
func (c *Controller) Export(exporter export.Exporter) (string, error) {
	c.mu.Lock()
	s := export.NewSession(&c.state.Session, c.clock())
	c.mu.Unlock()
	path, err := export.ExportToFile(s, exporter, c.exportDir)
	if err != nil {
		c.setStatus("Export failed: " + err.Error())
		return "", err
	}
	c.setStatus(StatusExported)
	return path, nil
}

// ExportAll writes every archive entry to one file and returns the path.
func (c *Controller) ExportAll(ctx context.Context) (string, error) {
	entries, err := c.store.GetAll(ctx)
	if err != nil {
		c.setStatus("Export failed: " + err.Error())
		return "", err
	}
	at := c.clock()
	data, err := export.EncodeArchive(export.NewArchive(entries, at))
	if err != nil {
		c.setStatus("Export failed: " + err.Error())
		return "", err
	}
	path, err := export.WriteFile(c.exportDir, export.ArchiveFileName(at), data)
	if err != nil {
		c.setStatus("Export failed: " + err.Error())
		return "", err
	}
	c.setStatus(StatusExported)
	return path, nil
}

// Import parses a single-session file and opens it read-only. On a format
// error only the status line changes.
func (c *Controller) Import(data []byte) error {
	s, err := export.DecodeSession(data)
	if err != nil {
		if errors.Is(err, export.ErrNoChatHistory) {
			c.setStatus(StatusNoChatHistory)
		} else {
			c.setStatus(StatusNotJSON)
		}
		return err
	}
	c.update(func(st *State) {
		st.Viewing = &View{
			Source:    SourceImport,
			PersonaID: s.PersonaID,
			Messages:  s.Messages,
		}
		st.Status = ""
	})
	return nil
}

// ImportFile reads path and imports it.
func (c *Controller) ImportFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		c.setStatus("Error: could not read file.")
		return fmt.Errorf("import %s: %w", path, err)
	}
	return c.Import(data)
}
