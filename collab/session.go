package collab

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/gorilla/websocket"
)

// A `Session` owns one live connection per open project. It is created by the
// view that opens the project editor and disposed when that view goes away;
// it is never shared across tabs or components. `Close` is terminal for the
// instance; open a new `Session` to resume.

type ConnectionState string

const (
	ConnectionStateDisconnected ConnectionState = "disconnected"
	ConnectionStateConnecting   ConnectionState = "connecting"
	ConnectionStateConnected    ConnectionState = "connected"
)

const SessionSendBufferSize = 32

type MessageFunction func(message IncomingMessage)
type StateFunction func(state ConnectionState)
type ErrorFunction func(err error)

type SessionSettings struct {
	WsHandshakeTimeout time.Duration
	ReconnectTimeout   time.Duration
	PingTimeout        time.Duration
	WriteTimeout       time.Duration
	// zero disables the read deadline. the platform is not required to emit
	// traffic on a quiet project.
	ReadTimeout      time.Duration
	PresenceSettings *PresenceSettings
}

func DefaultSessionSettings() *SessionSettings {
	return &SessionSettings{
		WsHandshakeTimeout: 2 * time.Second,
		ReconnectTimeout:   5 * time.Second,
		PingTimeout:        15 * time.Second,
		WriteTimeout:       5 * time.Second,
		ReadTimeout:        0,
		PresenceSettings:   DefaultPresenceSettings(),
	}
}

type Session struct {
	ctx    context.Context
	cancel context.CancelFunc

	wsUrl     string
	projectId Id
	auth      *ClientAuth

	settings *SessionSettings

	presence *PresenceRegistry

	stateLock    sync.Mutex
	state        ConnectionState
	send         chan *OutgoingMessage
	connectCount int

	messageCallbacks *CallbackList[MessageFunction]
	stateCallbacks   *CallbackList[StateFunction]
	errorCallbacks   *CallbackList[ErrorFunction]
}

func NewSessionWithDefaults(
	ctx context.Context,
	wsUrl string,
	projectId Id,
	auth *ClientAuth,
) *Session {
	return NewSession(ctx, wsUrl, projectId, auth, DefaultSessionSettings())
}

func NewSession(
	ctx context.Context,
	wsUrl string,
	projectId Id,
	auth *ClientAuth,
	settings *SessionSettings,
) *Session {
	cancelCtx, cancel := context.WithCancel(ctx)

	localUserId := ""
	if byJwt, err := ParseByJwtUnverified(auth.ByJwt); err == nil {
		localUserId = byJwt.UserId
	}

	session := &Session{
		ctx:              cancelCtx,
		cancel:           cancel,
		wsUrl:            wsUrl,
		projectId:        projectId,
		auth:             auth,
		settings:         settings,
		presence:         NewPresenceRegistry(localUserId, settings.PresenceSettings),
		state:            ConnectionStateDisconnected,
		messageCallbacks: NewCallbackList[MessageFunction](),
		stateCallbacks:   NewCallbackList[StateFunction](),
		errorCallbacks:   NewCallbackList[ErrorFunction](),
	}
	go session.run()
	return session
}

func (self *Session) run() {
	defer func() {
		self.cancel()
		self.setState(ConnectionStateDisconnected)
	}()

	for {
		select {
		case <-self.ctx.Done():
			return
		default:
		}

		self.stateLock.Lock()
		self.connectCount += 1
		self.stateLock.Unlock()

		self.setState(ConnectionStateConnecting)

		ws, err := self.connect()
		if err != nil {
			// connection errors are not fatal to the surrounding application.
			// the caller keeps editing in a degraded, no-collaboration mode.
			glog.Infof("[s]connect %s error = %s\n", self.projectId, err)
			self.setState(ConnectionStateDisconnected)
			self.errorEvent(err)
			select {
			case <-self.ctx.Done():
				return
			case <-time.After(self.settings.ReconnectTimeout):
				continue
			}
		}

		self.setState(ConnectionStateConnected)
		self.pump(ws)

		// presence from before the gap is not reconciled. the registry stays
		// empty until the next active_users snapshot arrives.
		self.presence.Reset()
		self.setState(ConnectionStateDisconnected)

		// exactly one reconnect is scheduled per unexpected drop
		select {
		case <-self.ctx.Done():
			return
		case <-time.After(self.settings.ReconnectTimeout):
		}
	}
}

func (self *Session) connect() (*websocket.Conn, error) {
	endpoint := fmt.Sprintf(
		"%s/projects?projectId=%s",
		self.wsUrl,
		url.QueryEscape(self.projectId.String()),
	)

	dialer := &websocket.Dialer{
		HandshakeTimeout: self.settings.WsHandshakeTimeout,
	}
	header := http.Header{}
	if self.auth.ByJwt != "" {
		header.Add("Authorization", fmt.Sprintf("Bearer %s", self.auth.ByJwt))
	}

	ws, _, err := dialer.DialContext(self.ctx, endpoint, header)
	if err != nil {
		return nil, err
	}
	return ws, nil
}

// runs the write and read pumps for one live connection. returns when the
// connection drops or the session is closed.
func (self *Session) pump(ws *websocket.Conn) {
	defer ws.Close()

	handleCtx, handleCancel := context.WithCancel(self.ctx)
	defer handleCancel()

	send := make(chan *OutgoingMessage, SessionSendBufferSize)

	self.stateLock.Lock()
	self.send = send
	self.stateLock.Unlock()
	defer func() {
		self.stateLock.Lock()
		self.send = nil
		self.stateLock.Unlock()
	}()

	// unblock the read pump when the session is closed
	go func() {
		<-handleCtx.Done()
		ws.Close()
	}()

	go func() {
		defer handleCancel()

		for {
			select {
			case <-handleCtx.Done():
				return
			case message, ok := <-send:
				if !ok {
					return
				}

				messageBytes, err := EncodeMessage(message)
				if err != nil {
					glog.Infof("[ss]%s encode error = %s\n", self.projectId, err)
					continue
				}
				ws.SetWriteDeadline(time.Now().Add(self.settings.WriteTimeout))
				if err := ws.WriteMessage(websocket.TextMessage, messageBytes); err != nil {
					// note that for websocket a deadline timeout cannot be recovered
					glog.Infof("[ss]%s-> error = %s\n", self.projectId, err)
					return
				}
				glog.V(LogLevelTrace).Infof("[ss]%s->%s\n", self.projectId, message.Type)
			case <-time.After(self.settings.PingTimeout):
				ws.SetWriteDeadline(time.Now().Add(self.settings.WriteTimeout))
				if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	func() {
		defer handleCancel()

		for {
			select {
			case <-handleCtx.Done():
				return
			default:
			}

			if 0 < self.settings.ReadTimeout {
				ws.SetReadDeadline(time.Now().Add(self.settings.ReadTimeout))
			}
			messageType, messageBytes, err := ws.ReadMessage()
			if err != nil {
				glog.Infof("[sr]%s<- error = %s\n", self.projectId, err)
				return
			}

			switch messageType {
			case websocket.TextMessage, websocket.BinaryMessage:
				message, err := DecodeMessage(messageBytes)
				if err != nil {
					// unknown or malformed events are skipped, never fatal
					glog.Infof("[sr]%s<- decode error = %s\n", self.projectId, err)
					continue
				}
				glog.V(LogLevelTrace).Infof("[sr]%s<-%s\n", self.projectId, message.MessageType())

				self.presence.Update(message)
				for _, messageCallback := range self.messageCallbacks.Get() {
					messageCallback(message)
				}
			}
		}
	}()
}

// enqueues an advisory event. at-most-once, best-effort: when not connected
// the event is dropped, not queued, and the drop is surfaced here and in the
// log.
func (self *Session) Send(message *OutgoingMessage) bool {
	message.InstanceId = self.auth.InstanceId

	self.stateLock.Lock()
	state := self.state
	send := self.send
	self.stateLock.Unlock()

	if state != ConnectionStateConnected || send == nil {
		glog.Infof("[s]%s drop %s (not connected)\n", self.projectId, message.Type)
		return false
	}

	select {
	case send <- message:
		return true
	default:
		glog.Infof("[s]%s drop %s (backpressure)\n", self.projectId, message.Type)
		return false
	}
}

func (self *Session) setState(state ConnectionState) {
	self.stateLock.Lock()
	if self.state == state {
		self.stateLock.Unlock()
		return
	}
	self.state = state
	self.stateLock.Unlock()

	for _, stateCallback := range self.stateCallbacks.Get() {
		stateCallback(state)
	}
}

func (self *Session) errorEvent(err error) {
	for _, errorCallback := range self.errorCallbacks.Get() {
		errorCallback(err)
	}
}

func (self *Session) State() ConnectionState {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()
	return self.state
}

func (self *Session) ProjectId() Id {
	return self.projectId
}

// connect attempts so far. `n-1` of these were scheduled reconnects.
func (self *Session) ConnectCount() int {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()
	return self.connectCount
}

func (self *Session) Presence() *PresenceRegistry {
	return self.presence
}

func (self *Session) ActiveUsers() []*PresenceEntry {
	return self.presence.Users()
}

func (self *Session) AddMessageCallback(messageCallback MessageFunction) func() {
	callbackId := self.messageCallbacks.Add(messageCallback)
	return func() {
		self.messageCallbacks.Remove(callbackId)
	}
}

func (self *Session) AddStateCallback(stateCallback StateFunction) func() {
	callbackId := self.stateCallbacks.Add(stateCallback)
	return func() {
		self.stateCallbacks.Remove(callbackId)
	}
}

func (self *Session) AddErrorCallback(errorCallback ErrorFunction) func() {
	callbackId := self.errorCallbacks.Add(errorCallback)
	return func() {
		self.errorCallbacks.Remove(callbackId)
	}
}

// idempotent. cancels any pending reconnect and releases the connection.
func (self *Session) Close() {
	self.cancel()
}
