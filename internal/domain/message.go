package domain

import "time"

// ChatMessage is the in-flight value handed from the event router to the
// persistence sink. The gateway holds no durable copy itself.
type ChatMessage struct {
	Room        RoomKey
	Sender      Identity
	DisplayName string
	Text        string
	SentAt      time.Time
}
