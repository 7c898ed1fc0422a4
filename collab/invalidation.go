package collab

import (
	"github.com/golang/glog"
)

// Reacts to `file_modified` events from other participants. When the
// modified path is the currently open one, the buffer is refetched
// unconditionally and replaced (last-writer-wins from the server's
// perspective; uncommitted local edits are silently discarded — inherited
// behavior, see `DocumentController.Refresh`). The file tree listing is
// refreshed on every `file_modified` regardless of path, since size and
// metadata may have changed.
//
// Refreshes never block local editing; both are fire-and-forget.

type TreeRefreshFunction func(projectId Id)

type InvalidationHandler struct {
	session    *Session
	controller *DocumentController

	treeRefreshCallbacks *CallbackList[TreeRefreshFunction]

	removeMessageCallback func()
}

func NewInvalidationHandler(session *Session, controller *DocumentController) *InvalidationHandler {
	handler := &InvalidationHandler{
		session:              session,
		controller:           controller,
		treeRefreshCallbacks: NewCallbackList[TreeRefreshFunction](),
	}
	handler.removeMessageCallback = session.AddMessageCallback(handler.handleMessage)
	return handler
}

// MessageFunction
func (self *InvalidationHandler) handleMessage(message IncomingMessage) {
	switch v := message.(type) {
	case *FileModifiedMessage:
		go self.invalidate(v)
	}
}

func (self *InvalidationHandler) invalidate(message *FileModifiedMessage) {
	if message.FilePath != "" && message.FilePath == self.controller.CurrentPath() {
		if err := self.controller.Refresh(message.FilePath); err != nil {
			glog.Infof("[inv]refetch %s error = %s\n", message.FilePath, err)
		}
	}

	for _, treeRefreshCallback := range self.treeRefreshCallbacks.Get() {
		treeRefreshCallback(self.session.ProjectId())
	}
}

func (self *InvalidationHandler) AddTreeRefreshCallback(treeRefreshCallback TreeRefreshFunction) func() {
	callbackId := self.treeRefreshCallbacks.Add(treeRefreshCallback)
	return func() {
		self.treeRefreshCallbacks.Remove(callbackId)
	}
}

func (self *InvalidationHandler) Close() {
	self.removeMessageCallback()
}
