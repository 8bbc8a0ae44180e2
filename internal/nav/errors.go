package nav

import "errors"

// ErrRoomNotFound indicates a navigation target that does not exist in
// the room catalog. Session state is left untouched when it is returned.
var ErrRoomNotFound = errors.New("room not found")
