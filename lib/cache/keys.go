package cache

// Key layout shared with every other client of the cache. Do not change these formats,
// existing cached data depends on them.
const (
	documentPrefix = "cache:"
	sessionsPrefix = "sessions:"

	// HelpdeskQueueKey is the ordered set holding pending help requests.
	HelpdeskQueueKey = sessionsPrefix + "helpdesk_queue"
)

// DocumentKey returns the key of a cached document snapshot.
func DocumentKey(kind, id string) string { return documentPrefix + kind + ":" + id }

// UserKey returns the key of a session directory user record.
func UserKey(username string) string { return sessionsPrefix + "user:" + username }

// SessionKey returns the key of a session token record.
func SessionKey(token string) string { return sessionsPrefix + "session:" + token }
