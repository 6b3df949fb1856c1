package repositories

import (
	"strings"
	"time"
)

const (
	KindMessage      = "MESSAGE"
	KindUnread       = "UNREAD"
	KindNotification = "NOTIFICATION"
	KindOther        = "OTHER"
)

// Entry is a readable view of one stored key, used by the inspectors.
type Entry struct {
	Key       string
	Kind      string
	Timestamp time.Time
	EntityID  string
	Namespace string
	Detail    string
}

// DescribeEntry decodes a raw key/value pair of the store.
// Values that fail to decode are reported in Detail rather than returned as errors.
func DescribeEntry(key string, val []byte) Entry {
	entry := Entry{Key: key, Kind: KindOther}
	switch {
	case strings.HasPrefix(key, "msg:"):
		entry.Kind = KindMessage
		m, err := unmarshalMessage(val)
		if err != nil {
			entry.Detail = "undecodable: " + err.Error()
			return entry
		}
		entry.Timestamp = m.CreatedAt
		entry.EntityID = m.ID.String()
		entry.Namespace = string(m.ConversationID)
		entry.Detail = m.SenderID.String() + " -> " + m.RecipientID.String() + ": " + m.Body
		if m.Read {
			entry.Detail += " (read)"
		}
	case strings.HasPrefix(key, "unread:"):
		entry.Kind = KindUnread
		entry.Detail = string(val)
	case strings.HasPrefix(key, "notif:"):
		entry.Kind = KindNotification
		r, err := unmarshalNotification(val)
		if err != nil {
			entry.Detail = "undecodable: " + err.Error()
			return entry
		}
		entry.Timestamp = r.CreatedAt
		entry.EntityID = r.ID.String()
		entry.Namespace = r.OwnerID.String()
		entry.Detail = string(r.Type) + " by " + r.ActorID.String() + " on " + r.TargetID
	}
	return entry
}
