package collab

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
)

func waitFor(t *testing.T, timeout time.Duration, condition func() bool) {
	t.Helper()
	end := time.Now().Add(timeout)
	for time.Now().Before(end) {
		if condition() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met after %s", timeout)
}

func makeTestJwt(t *testing.T, userId string, name string, email string) string {
	t.Helper()
	token := gojwt.NewWithClaims(gojwt.SigningMethodHS256, gojwt.MapClaims{
		"userId": userId,
		"name":   name,
		"email":  email,
	})
	jwt, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatal(err)
	}
	return jwt
}

// in-process stand-in for the platform's event stream
type testWsServer struct {
	server *httptest.Server

	mutex sync.Mutex
	conns []*websocket.Conn

	received chan []byte
}

func newTestWsServer() *testWsServer {
	s := &testWsServer{
		received: make(chan []byte, 1024),
	}
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		s.mutex.Lock()
		s.conns = append(s.conns, ws)
		s.mutex.Unlock()

		for {
			_, messageBytes, err := ws.ReadMessage()
			if err != nil {
				return
			}
			select {
			case s.received <- messageBytes:
			default:
			}
		}
	}))
	return s
}

func (self *testWsServer) wsUrl() string {
	return "ws" + strings.TrimPrefix(self.server.URL, "http")
}

func (self *testWsServer) send(t *testing.T, message any) {
	t.Helper()
	messageBytes, err := json.Marshal(message)
	if err != nil {
		t.Fatal(err)
	}
	self.mutex.Lock()
	defer self.mutex.Unlock()
	if len(self.conns) == 0 {
		t.Fatal("no connected client")
	}
	ws := self.conns[len(self.conns)-1]
	if err := ws.WriteMessage(websocket.TextMessage, messageBytes); err != nil {
		t.Fatal(err)
	}
}

func (self *testWsServer) connCount() int {
	self.mutex.Lock()
	defer self.mutex.Unlock()
	return len(self.conns)
}

// simulates an unexpected drop of every live connection
func (self *testWsServer) dropAll() {
	self.mutex.Lock()
	defer self.mutex.Unlock()
	for _, ws := range self.conns {
		ws.Close()
	}
	self.conns = []*websocket.Conn{}
}

func (self *testWsServer) close() {
	self.dropAll()
	self.server.Close()
}

// in-process stand-in for the file content service
type testFileServer struct {
	server *httptest.Server

	mutex          sync.Mutex
	contents       map[string]string
	etags          map[string]string
	contentGets    int
	draftPosts     int
	draftContents  []string
	commitPuts     int
	commitContents []string
	failCommit     bool
}

func newTestFileServer() *testFileServer {
	s := &testFileServer{
		contents: map[string]string{},
		etags:    map[string]string{},
	}
	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == "GET" && strings.Contains(r.URL.Path, "/files/content"):
			filePath := r.URL.Query().Get("filePath")
			s.mutex.Lock()
			s.contentGets += 1
			content := s.contents[filePath]
			etag := s.etags[filePath]
			s.mutex.Unlock()
			json.NewEncoder(w).Encode(&FileContentResult{
				Path:    filePath,
				Content: content,
				Size:    int64(len(content)),
				Etag:    etag,
			})
		case r.Method == "PUT" && strings.Contains(r.URL.Path, "/files/content"):
			var args SaveFileArgs
			json.NewDecoder(r.Body).Decode(&args)
			s.mutex.Lock()
			s.commitPuts += 1
			s.commitContents = append(s.commitContents, args.Content)
			if s.failCommit {
				s.mutex.Unlock()
				http.Error(w, "commit rejected", http.StatusInternalServerError)
				return
			}
			s.contents[args.FilePath] = args.Content
			s.etags[args.FilePath] = s.etags[args.FilePath] + "+"
			etag := s.etags[args.FilePath]
			s.mutex.Unlock()
			json.NewEncoder(w).Encode(&FileContentResult{
				Path:    args.FilePath,
				Content: args.Content,
				Size:    int64(len(args.Content)),
				Etag:    etag,
			})
		case r.Method == "POST" && strings.Contains(r.URL.Path, "/files/draft"):
			var args SaveDraftArgs
			json.NewDecoder(r.Body).Decode(&args)
			s.mutex.Lock()
			s.draftPosts += 1
			s.draftContents = append(s.draftContents, args.Content)
			s.mutex.Unlock()
			// the draft endpoint returns no meaningful body
			w.WriteHeader(http.StatusOK)
		default:
			http.Error(w, "not found", http.StatusNotFound)
		}
	}))
	return s
}

func (self *testFileServer) setContent(filePath string, content string, etag string) {
	self.mutex.Lock()
	defer self.mutex.Unlock()
	self.contents[filePath] = content
	self.etags[filePath] = etag
}

func (self *testFileServer) counts() (contentGets int, draftPosts int, commitPuts int) {
	self.mutex.Lock()
	defer self.mutex.Unlock()
	return self.contentGets, self.draftPosts, self.commitPuts
}

func (self *testFileServer) lastDraftContent() string {
	self.mutex.Lock()
	defer self.mutex.Unlock()
	if len(self.draftContents) == 0 {
		return ""
	}
	return self.draftContents[len(self.draftContents)-1]
}

func (self *testFileServer) lastCommitContent() string {
	self.mutex.Lock()
	defer self.mutex.Unlock()
	if len(self.commitContents) == 0 {
		return ""
	}
	return self.commitContents[len(self.commitContents)-1]
}

func (self *testFileServer) setFailCommit(failCommit bool) {
	self.mutex.Lock()
	defer self.mutex.Unlock()
	self.failCommit = failCommit
}

func (self *testFileServer) close() {
	self.server.Close()
}
