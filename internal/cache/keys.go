package cache

import (
	"fmt"
	"time"
)

const (
	UserKeyPrefix    = "user:%s"
	PostKeyPrefix    = "post:%s"
	RevokedKeyPrefix = "revoked_session:%s"
)

const (
	UserTTL = 5 * time.Minute
	PostTTL = 30 * time.Minute
)

func UserKey(userID string) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

func PostKey(postID string) string {
	return fmt.Sprintf(PostKeyPrefix, postID)
}

// RevokedSessionKey marks a session ID whose token must no longer be accepted.
func RevokedSessionKey(sessionID string) string {
	return fmt.Sprintf(RevokedKeyPrefix, sessionID)
}
