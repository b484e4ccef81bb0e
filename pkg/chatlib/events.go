package chatlib

import (
	"context"
	"encoding/json"
)

// EventKind names a chat event type. The set is closed; wire codes
// outside the table below are dropped before dispatch, so listeners
// never see an unknown kind.
type EventKind string

const (
	EventMessage             EventKind = "message"
	EventMessageEdited       EventKind = "messageEdited"
	EventUserEntered         EventKind = "userEntered"
	EventUserLeft            EventKind = "userLeft"
	EventRoomNameChanged     EventKind = "roomNameChanged"
	EventMessageStarred      EventKind = "messageStarred"
	EventUserMentioned       EventKind = "userMentioned"
	EventMessageFlagged      EventKind = "messageFlagged"
	EventMessageDeleted      EventKind = "messageDeleted"
	EventFileAdded           EventKind = "fileAdded"
	EventModeratorFlag       EventKind = "moderatorFlag"
	EventUserSettingsChanged EventKind = "userSettingsChanged"
	EventGlobalNotification  EventKind = "globalNotification"
	EventAccountLevelChanged EventKind = "accountLevelChanged"
	EventUserNotification    EventKind = "userNotification"
	EventInvitation          EventKind = "invitation"
	EventMessageReply        EventKind = "messageReply"
	EventMessageMovedOut     EventKind = "messageMovedOut"
	EventMessageMovedIn      EventKind = "messagedMovedIn"
	EventTimeBreak           EventKind = "timeBreak"
	EventFeedTicker          EventKind = "feedTicker"
	EventUserSuspended       EventKind = "userSuspended"
	EventUserMerged          EventKind = "userMerged"
)

// eventKinds maps the wire's numeric event_type codes to kinds. Codes
// absent from the table (7, 23..28, anything new upstream) are dropped
// silently.
var eventKinds = map[int]EventKind{
	1:  EventMessage,
	2:  EventMessageEdited,
	3:  EventUserEntered,
	4:  EventUserLeft,
	5:  EventRoomNameChanged,
	6:  EventMessageStarred,
	8:  EventUserMentioned,
	9:  EventMessageFlagged,
	10: EventMessageDeleted,
	11: EventFileAdded,
	12: EventModeratorFlag,
	13: EventUserSettingsChanged,
	14: EventGlobalNotification,
	15: EventAccountLevelChanged,
	16: EventUserNotification,
	17: EventInvitation,
	18: EventMessageReply,
	19: EventMessageMovedOut,
	20: EventMessageMovedIn,
	21: EventTimeBreak,
	22: EventFeedTicker,
	29: EventUserSuspended,
	30: EventUserMerged,
}

// Callback receives events for one registration on one room. Callbacks
// run synchronously in registration order; a slow callback delays
// further delivery for its room.
type Callback func(*ChatEvent)

// ChatEvent is one decoded event record. The known fields are typed;
// Raw carries every wire field verbatim for forward compatibility with
// records whose shape the table doesn't cover.
type ChatEvent struct {
	Kind      EventKind
	RoomID    int64
	EventType int

	// MessageID is the message this event concerns, 0 when absent.
	MessageID int64
	// ParentID is the message being replied to, 0 when absent.
	ParentID int64
	UserID   int64
	UserName string
	Content  string
	// TimeStamp is the server's event time marker.
	TimeStamp int64

	// Raw is the full set of wire fields, untyped.
	Raw map[string]any

	room *Room
}

// eventRecord is the typed view of an inbound event used for decoding.
type eventRecord struct {
	EventType int    `json:"event_type"`
	TimeStamp int64  `json:"time_stamp"`
	RoomID    int64  `json:"room_id"`
	MessageID int64  `json:"message_id"`
	ParentID  int64  `json:"parent_id"`
	UserID    int64  `json:"user_id"`
	UserName  string `json:"user_name"`
	Content   string `json:"content"`
}

// decodeEvent builds a ChatEvent from one wire record. The second
// return is false when the record's event_type has no table entry.
func decodeEvent(raw json.RawMessage, roomID int64) (*ChatEvent, bool) {
	var rec eventRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, false
	}
	kind, ok := eventKinds[rec.EventType]
	if !ok {
		return nil, false
	}
	ev := &ChatEvent{
		Kind:      kind,
		RoomID:    roomID,
		EventType: rec.EventType,
		MessageID: rec.MessageID,
		ParentID:  rec.ParentID,
		UserID:    rec.UserID,
		UserName:  rec.UserName,
		Content:   rec.Content,
		TimeStamp: rec.TimeStamp,
	}
	if rec.RoomID != 0 {
		ev.RoomID = rec.RoomID
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err == nil {
		ev.Raw = fields
	}
	return ev, true
}

// Reply sends a message to the event's room prefixed with the
// ":<messageId> " reply marker the chat service understands.
func (e *ChatEvent) Reply(ctx context.Context, text string) error {
	if e.MessageID == 0 {
		return ErrNoMessageID
	}
	if e.room == nil {
		return ErrRoomClosed
	}
	return e.room.Send(ctx, replyPrefix(e.MessageID)+text)
}
