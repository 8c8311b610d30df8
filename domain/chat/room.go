package chat

type RoomID string

// Room metadata is created server-side and received once in the join
// snapshot. The client treats it as read-only.
type Room struct {
	ID           RoomID
	Name         string
	IsHot        bool
	LanguageHint string
}
