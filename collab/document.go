package collab

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/golang/glog"
)

// Holds the single currently-open file of a session and coordinates the two
// save tiers: the debounced draft autosave (non-authoritative scratch state)
// and the explicit commit (the only operation that moves the authoritative
// revision marker). At most one document is live per controller; opening a
// different file abandons the previous document's pending autosave.

type DocumentControllerSettings struct {
	// debounce window after the last edit before a draft autosave fires
	AutosaveTimeout time.Duration
}

func DefaultDocumentControllerSettings() *DocumentControllerSettings {
	return &DocumentControllerSettings{
		AutosaveTimeout: 2 * time.Second,
	}
}

type OpenDocument struct {
	Path            string
	Content         string
	Etag            string
	Size            int64
	Dirty           bool
	LastAutosavedAt time.Time
	LastCommittedAt time.Time
}

// at most one pending autosave exists per document. a new edit replaces the
// handle rather than queuing a second one.
type pendingAutosave struct {
	path    string
	content string
	timer   *time.Timer
}

type DocumentController struct {
	ctx    context.Context
	cancel context.CancelFunc

	api     *EditHubApi
	session *Session

	projectId Id

	settings *DocumentControllerSettings

	stateLock sync.Mutex
	document  *OpenDocument
	pending   *pendingAutosave
}

func NewDocumentControllerWithDefaults(
	ctx context.Context,
	api *EditHubApi,
	session *Session,
) *DocumentController {
	return NewDocumentController(ctx, api, session, DefaultDocumentControllerSettings())
}

func NewDocumentController(
	ctx context.Context,
	api *EditHubApi,
	session *Session,
	settings *DocumentControllerSettings,
) *DocumentController {
	cancelCtx, cancel := context.WithCancel(ctx)

	return &DocumentController{
		ctx:       cancelCtx,
		cancel:    cancel,
		api:       api,
		session:   session,
		projectId: session.ProjectId(),
		settings:  settings,
	}
}

// fetches `path` and makes it the live document, replacing any previous one.
// the previous document's pending autosave is abandoned, not flushed.
func (self *DocumentController) Open(path string) (*OpenDocument, error) {
	result, err := self.api.GetFileContentSync(&GetFileContentArgs{
		ProjectId: self.projectId,
		FilePath:  path,
	})
	if err != nil {
		return nil, err
	}

	self.stateLock.Lock()
	previousPath := ""
	if self.document != nil {
		previousPath = self.document.Path
	}
	self.cancelPendingAutosave()
	document := &OpenDocument{
		Path:    path,
		Content: result.Content,
		Etag:    result.Etag,
		Size:    result.Size,
	}
	self.document = document
	out := *document
	self.stateLock.Unlock()

	if previousPath != "" && previousPath != path {
		self.session.Send(&OutgoingMessage{
			Type:     MessageTypeFileClosed,
			FilePath: previousPath,
		})
	}
	self.session.Send(&OutgoingMessage{
		Type:     MessageTypeFileOpened,
		FilePath: path,
	})

	return &out, nil
}

// replaces the buffer content, marks it dirty, and reschedules the draft
// autosave. only the most recent edit within the debounce window is ever
// persisted as a draft.
func (self *DocumentController) Edit(content string) {
	self.stateLock.Lock()
	if self.document == nil {
		self.stateLock.Unlock()
		return
	}
	self.document.Content = content
	self.document.Dirty = true
	path := self.document.Path

	self.cancelPendingAutosave()
	pending := &pendingAutosave{
		path:    path,
		content: content,
	}
	pending.timer = time.AfterFunc(self.settings.AutosaveTimeout, func() {
		self.fireAutosave(pending)
	})
	self.pending = pending
	self.stateLock.Unlock()

	self.session.Send(&OutgoingMessage{
		Type:     MessageTypeContentChanged,
		FilePath: path,
		Content:  content,
	})
}

// advisory only. the cursor position is broadcast to other participants.
func (self *DocumentController) MoveCursor(cursor *Cursor) {
	self.stateLock.Lock()
	if self.document == nil {
		self.stateLock.Unlock()
		return
	}
	path := self.document.Path
	self.stateLock.Unlock()

	self.session.Send(&OutgoingMessage{
		Type:     MessageTypeCursorMoved,
		FilePath: path,
		Cursor:   cursor,
	})
}

// the explicit, authoritative save. on failure the dirty flag is preserved
// and nothing is retried; the caller retries explicitly.
func (self *DocumentController) Commit(message string) (*FileContentResult, error) {
	self.stateLock.Lock()
	if self.document == nil {
		self.stateLock.Unlock()
		return nil, errors.New("no open document")
	}
	path := self.document.Path
	content := self.document.Content
	self.stateLock.Unlock()

	result, err := self.api.SaveFileSync(&SaveFileArgs{
		ProjectId: self.projectId,
		FilePath:  path,
		Content:   content,
		Message:   message,
	})
	if err != nil {
		return nil, err
	}

	self.stateLock.Lock()
	if self.document != nil && self.document.Path == path {
		// a successful explicit save supersedes any queued draft
		self.cancelPendingAutosave()
		self.document.Dirty = false
		self.document.Etag = result.Etag
		self.document.LastCommittedAt = time.Now()
	}
	self.stateLock.Unlock()

	return result, nil
}

// fires a pending autosave immediately. best-effort on the way out of an
// editing view; the save is not awaited to completion.
func (self *DocumentController) FlushAutosave() {
	self.stateLock.Lock()
	pending := self.pending
	self.stateLock.Unlock()

	if pending == nil {
		return
	}
	if pending.timer.Stop() {
		go self.fireAutosave(pending)
	}
}

// re-fetches the document from the authoritative store and replaces the
// buffer. the server wins: uncommitted local edits are discarded. this
// matches upstream behavior; no merge is attempted.
func (self *DocumentController) Refresh(path string) error {
	result, err := self.api.GetFileContentSync(&GetFileContentArgs{
		ProjectId: self.projectId,
		FilePath:  path,
	})
	if err != nil {
		return err
	}

	self.stateLock.Lock()
	defer self.stateLock.Unlock()
	if self.document == nil || self.document.Path != path {
		// the open document changed while the refetch was in flight
		return nil
	}
	self.cancelPendingAutosave()
	self.document.Content = result.Content
	self.document.Etag = result.Etag
	self.document.Size = result.Size
	self.document.Dirty = false
	return nil
}

func (self *DocumentController) CurrentPath() string {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()
	if self.document == nil {
		return ""
	}
	return self.document.Path
}

// snapshot of the live document, or nil when none is open
func (self *DocumentController) Document() *OpenDocument {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()
	if self.document == nil {
		return nil
	}
	out := *self.document
	return &out
}

// abandons any pending autosave and closes the live document
func (self *DocumentController) Close() {
	self.stateLock.Lock()
	previousPath := ""
	if self.document != nil {
		previousPath = self.document.Path
	}
	self.cancelPendingAutosave()
	self.document = nil
	self.stateLock.Unlock()

	if previousPath != "" {
		self.session.Send(&OutgoingMessage{
			Type:     MessageTypeFileClosed,
			FilePath: previousPath,
		})
	}

	self.cancel()
}

// must be called with `stateLock`
func (self *DocumentController) cancelPendingAutosave() {
	if self.pending != nil {
		self.pending.timer.Stop()
		self.pending = nil
	}
}

func (self *DocumentController) fireAutosave(pending *pendingAutosave) {
	self.stateLock.Lock()
	if self.pending != pending {
		// rescheduled or cancelled while the timer was firing
		self.stateLock.Unlock()
		return
	}
	self.pending = nil
	if self.document == nil || self.document.Path != pending.path {
		// the document was switched out from under the timer
		self.stateLock.Unlock()
		return
	}
	self.stateLock.Unlock()

	if self.ctx.Err() != nil {
		return
	}

	// autosave errors are logged and swallowed. drafts are best-effort
	// scratch persistence, never a user-facing failure.
	_, err := self.api.SaveDraftSync(&SaveDraftArgs{
		ProjectId: self.projectId,
		FilePath:  pending.path,
		Content:   pending.content,
	})
	if err != nil {
		glog.Infof("[doc]autosave %s error = %s\n", pending.path, err)
		return
	}

	self.stateLock.Lock()
	// a late response only applies if the same document is still open
	if self.document != nil && self.document.Path == pending.path {
		self.document.LastAutosavedAt = time.Now()
	}
	self.stateLock.Unlock()
}
