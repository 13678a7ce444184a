package domain

// RoomKey names a set of connections eligible to receive each other's
// events. A room exists implicitly while its member set is non-empty.
// Chat and voice rooms are distinguished only by caller convention.
type RoomKey string

const MaxRoomKeyLen = 128
