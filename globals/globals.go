package globals

// Context keys
type ContextKey string

const UserIDKey ContextKey = "userId"

// PostsChannel is the notification channel post mutations are emitted on.
const PostsChannel = "posts"
