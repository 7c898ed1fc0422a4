package collab

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"
)

type docTestEnv struct {
	wsServer   *testWsServer
	fileServer *testFileServer
	session    *Session
	controller *DocumentController
}

func newDocTestEnv(t *testing.T, autosaveTimeout time.Duration) (*docTestEnv, func()) {
	t.Helper()

	wsServer := newTestWsServer()
	fileServer := newTestFileServer()

	session := newTestSession(t, wsServer, "local")
	api := NewEditHubApi(fileServer.server.URL)
	controller := NewDocumentController(
		context.Background(),
		api,
		session,
		&DocumentControllerSettings{
			AutosaveTimeout: autosaveTimeout,
		},
	)

	env := &docTestEnv{
		wsServer:   wsServer,
		fileServer: fileServer,
		session:    session,
		controller: controller,
	}
	cleanup := func() {
		controller.Close()
		session.Close()
		fileServer.close()
		wsServer.close()
	}
	return env, cleanup
}

func TestDocumentOpen(t *testing.T) {
	env, cleanup := newDocTestEnv(t, 100*time.Millisecond)
	defer cleanup()

	env.fileServer.setContent("/a.ts", "hello", "v1")

	document, err := env.controller.Open("/a.ts")
	assert.Equal(t, nil, err)
	assert.Equal(t, "/a.ts", document.Path)
	assert.Equal(t, "hello", document.Content)
	assert.Equal(t, "v1", document.Etag)
	assert.Equal(t, false, document.Dirty)
	assert.Equal(t, "/a.ts", env.controller.CurrentPath())
}

func TestDocumentAutosaveCoalesces(t *testing.T) {
	env, cleanup := newDocTestEnv(t, 100*time.Millisecond)
	defer cleanup()

	env.fileServer.setContent("/a.ts", "a", "v1")
	_, err := env.controller.Open("/a.ts")
	assert.Equal(t, nil, err)

	// edits within the debounce window coalesce into one draft
	env.controller.Edit("ab")
	env.controller.Edit("abc")

	waitFor(t, 2*time.Second, func() bool {
		_, draftPosts, _ := env.fileServer.counts()
		return draftPosts == 1
	})
	assert.Equal(t, "abc", env.fileServer.lastDraftContent())

	// an autosaved draft does not clear the dirty flag
	waitFor(t, 2*time.Second, func() bool {
		return !env.controller.Document().LastAutosavedAt.IsZero()
	})
	assert.Equal(t, true, env.controller.Document().Dirty)

	// no second draft fires
	time.Sleep(300 * time.Millisecond)
	_, draftPosts, _ := env.fileServer.counts()
	assert.Equal(t, 1, draftPosts)
}

func TestDocumentCommitCancelsAutosave(t *testing.T) {
	env, cleanup := newDocTestEnv(t, 500*time.Millisecond)
	defer cleanup()

	env.fileServer.setContent("/a.ts", "a", "v1")
	_, err := env.controller.Open("/a.ts")
	assert.Equal(t, nil, err)

	env.controller.Edit("ab")
	result, err := env.controller.Commit("save ab")
	assert.Equal(t, nil, err)
	assert.Equal(t, "v1+", result.Etag)
	assert.Equal(t, "ab", env.fileServer.lastCommitContent())

	document := env.controller.Document()
	assert.Equal(t, false, document.Dirty)
	assert.Equal(t, "v1+", document.Etag)
	assert.Equal(t, false, document.LastCommittedAt.IsZero())

	// the queued draft was superseded by the commit
	time.Sleep(800 * time.Millisecond)
	_, draftPosts, commitPuts := env.fileServer.counts()
	assert.Equal(t, 0, draftPosts)
	assert.Equal(t, 1, commitPuts)
}

func TestDocumentCommitFailure(t *testing.T) {
	env, cleanup := newDocTestEnv(t, 5*time.Second)
	defer cleanup()

	env.fileServer.setContent("/a.ts", "a", "v1")
	_, err := env.controller.Open("/a.ts")
	assert.Equal(t, nil, err)

	env.controller.Edit("ab")
	env.fileServer.setFailCommit(true)

	_, err = env.controller.Commit("save ab")
	assert.NotEqual(t, nil, err)

	// failure preserves the dirty flag and the revision marker
	document := env.controller.Document()
	assert.Equal(t, true, document.Dirty)
	assert.Equal(t, "v1", document.Etag)
}

func TestDocumentCommitWithoutOpen(t *testing.T) {
	env, cleanup := newDocTestEnv(t, 100*time.Millisecond)
	defer cleanup()

	_, err := env.controller.Commit("nothing open")
	assert.NotEqual(t, nil, err)
}

func TestDocumentOpenSwitchAbandonsAutosave(t *testing.T) {
	env, cleanup := newDocTestEnv(t, 200*time.Millisecond)
	defer cleanup()

	env.fileServer.setContent("/a.ts", "a", "v1")
	env.fileServer.setContent("/b.ts", "b", "v1")

	_, err := env.controller.Open("/a.ts")
	assert.Equal(t, nil, err)
	env.controller.Edit("a2")

	// switching documents abandons the pending draft, no flush
	_, err = env.controller.Open("/b.ts")
	assert.Equal(t, nil, err)
	assert.Equal(t, "/b.ts", env.controller.CurrentPath())

	time.Sleep(500 * time.Millisecond)
	_, draftPosts, _ := env.fileServer.counts()
	assert.Equal(t, 0, draftPosts)
}

func TestDocumentFlushAutosave(t *testing.T) {
	env, cleanup := newDocTestEnv(t, 5*time.Second)
	defer cleanup()

	env.fileServer.setContent("/a.ts", "a", "v1")
	_, err := env.controller.Open("/a.ts")
	assert.Equal(t, nil, err)

	env.controller.Edit("ab")
	env.controller.FlushAutosave()

	// fires well before the debounce window would elapse
	waitFor(t, 2*time.Second, func() bool {
		_, draftPosts, _ := env.fileServer.counts()
		return draftPosts == 1
	})
	assert.Equal(t, "ab", env.fileServer.lastDraftContent())

	// a second flush with nothing pending is a no-op
	env.controller.FlushAutosave()
	time.Sleep(200 * time.Millisecond)
	_, draftPosts, _ := env.fileServer.counts()
	assert.Equal(t, 1, draftPosts)
}

func TestDocumentRefresh(t *testing.T) {
	env, cleanup := newDocTestEnv(t, 5*time.Second)
	defer cleanup()

	env.fileServer.setContent("/a.ts", "a", "v1")
	_, err := env.controller.Open("/a.ts")
	assert.Equal(t, nil, err)

	env.controller.Edit("local edit")
	env.fileServer.setContent("/a.ts", "remote edit", "v2")

	// the server wins: uncommitted local edits are discarded
	err = env.controller.Refresh("/a.ts")
	assert.Equal(t, nil, err)
	document := env.controller.Document()
	assert.Equal(t, "remote edit", document.Content)
	assert.Equal(t, "v2", document.Etag)
	assert.Equal(t, false, document.Dirty)

	// the abandoned draft never fires
	time.Sleep(200 * time.Millisecond)
	_, draftPosts, _ := env.fileServer.counts()
	assert.Equal(t, 0, draftPosts)

	// a refresh for a path that is no longer open is a no-op
	getsBefore, _, _ := env.fileServer.counts()
	err = env.controller.Refresh("/other.ts")
	assert.Equal(t, nil, err)
	getsAfter, _, _ := env.fileServer.counts()
	assert.Equal(t, getsBefore+1, getsAfter)
	assert.Equal(t, "/a.ts", env.controller.CurrentPath())
}
