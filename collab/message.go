package collab

import (
	"encoding/json"
	"fmt"
	"time"
)

// The transport carries named events as JSON text messages, one event per
// websocket message, tagged by `type`. Timestamps are RFC 3339 strings.

type MessageType string

const (
	// outgoing advisory kinds. the platform echoes these to other
	// participants in the same project
	MessageTypeFileOpened     MessageType = "file_opened"
	MessageTypeFileClosed     MessageType = "file_closed"
	MessageTypeContentChanged MessageType = "content_changed"
	MessageTypeCursorMoved    MessageType = "cursor_moved"

	// inbound-only kinds
	MessageTypeFileModified MessageType = "file_modified"
	MessageTypeUserJoined   MessageType = "user_joined"
	MessageTypeUserLeft     MessageType = "user_left"
	MessageTypeActiveUsers  MessageType = "active_users"
)

type Cursor struct {
	Line           int  `json:"line"`
	Column         int  `json:"column"`
	SelectionStart *int `json:"selectionStart,omitempty"`
	SelectionEnd   *int `json:"selectionEnd,omitempty"`
}

// advisory event from the local participant. at-most-once, best-effort:
// see `Session.Send`
type OutgoingMessage struct {
	Type       MessageType `json:"type"`
	InstanceId Id          `json:"instanceId"`
	FilePath   string      `json:"filePath"`
	Content    string      `json:"content,omitempty"`
	Cursor     *Cursor     `json:"cursor,omitempty"`
}

func EncodeMessage(message *OutgoingMessage) ([]byte, error) {
	return json.Marshal(message)
}

// tagged variant of the inbound message kinds. consumers dispatch with a
// type switch on the concrete message types below.
type IncomingMessage interface {
	MessageType() MessageType
}

// one other collaborator, as tracked by the presence registry and as carried
// in `active_users` snapshots
type PresenceEntry struct {
	UserId    string    `json:"userId"`
	UserName  string    `json:"userName"`
	UserEmail string    `json:"userEmail"`
	FilePath  string    `json:"filePath"`
	Cursor    *Cursor   `json:"cursor,omitempty"`
	LastSeen  time.Time `json:"lastSeen"`
}

type FileOpenedMessage struct {
	Type      MessageType `json:"type"`
	UserId    string      `json:"userId"`
	UserName  string      `json:"userName,omitempty"`
	UserEmail string      `json:"userEmail,omitempty"`
	FilePath  string      `json:"filePath"`
	Timestamp time.Time   `json:"timestamp"`
}

func (self *FileOpenedMessage) MessageType() MessageType {
	return MessageTypeFileOpened
}

type FileClosedMessage struct {
	Type      MessageType `json:"type"`
	UserId    string      `json:"userId"`
	FilePath  string      `json:"filePath"`
	Timestamp time.Time   `json:"timestamp"`
}

func (self *FileClosedMessage) MessageType() MessageType {
	return MessageTypeFileClosed
}

type ContentChangedMessage struct {
	Type      MessageType `json:"type"`
	UserId    string      `json:"userId"`
	FilePath  string      `json:"filePath"`
	Content   string      `json:"content,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

func (self *ContentChangedMessage) MessageType() MessageType {
	return MessageTypeContentChanged
}

type CursorMovedMessage struct {
	Type      MessageType `json:"type"`
	UserId    string      `json:"userId"`
	UserName  string      `json:"userName,omitempty"`
	UserEmail string      `json:"userEmail,omitempty"`
	FilePath  string      `json:"filePath"`
	Cursor    *Cursor     `json:"cursor,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

func (self *CursorMovedMessage) MessageType() MessageType {
	return MessageTypeCursorMoved
}

type FileModifiedMessage struct {
	Type      MessageType `json:"type"`
	FilePath  string      `json:"filePath"`
	UserId    string      `json:"userId"`
	Timestamp time.Time   `json:"timestamp"`
}

func (self *FileModifiedMessage) MessageType() MessageType {
	return MessageTypeFileModified
}

type UserJoinedMessage struct {
	Type      MessageType `json:"type"`
	UserId    string      `json:"userId"`
	UserName  string      `json:"userName"`
	UserEmail string      `json:"userEmail"`
	Timestamp time.Time   `json:"timestamp"`
}

func (self *UserJoinedMessage) MessageType() MessageType {
	return MessageTypeUserJoined
}

type UserLeftMessage struct {
	Type      MessageType `json:"type"`
	UserId    string      `json:"userId"`
	Timestamp time.Time   `json:"timestamp"`
}

func (self *UserLeftMessage) MessageType() MessageType {
	return MessageTypeUserLeft
}

type ActiveUsersMessage struct {
	Type  MessageType      `json:"type"`
	Users []*PresenceEntry `json:"users"`
}

func (self *ActiveUsersMessage) MessageType() MessageType {
	return MessageTypeActiveUsers
}

func DecodeMessage(messageBytes []byte) (IncomingMessage, error) {
	var envelope struct {
		Type MessageType `json:"type"`
	}
	if err := json.Unmarshal(messageBytes, &envelope); err != nil {
		return nil, err
	}

	var message IncomingMessage
	switch envelope.Type {
	case MessageTypeFileOpened:
		message = &FileOpenedMessage{}
	case MessageTypeFileClosed:
		message = &FileClosedMessage{}
	case MessageTypeContentChanged:
		message = &ContentChangedMessage{}
	case MessageTypeCursorMoved:
		message = &CursorMovedMessage{}
	case MessageTypeFileModified:
		message = &FileModifiedMessage{}
	case MessageTypeUserJoined:
		message = &UserJoinedMessage{}
	case MessageTypeUserLeft:
		message = &UserLeftMessage{}
	case MessageTypeActiveUsers:
		message = &ActiveUsersMessage{}
	default:
		return nil, fmt.Errorf("unknown message type: %s", envelope.Type)
	}

	if err := json.Unmarshal(messageBytes, message); err != nil {
		return nil, err
	}
	return message, nil
}
