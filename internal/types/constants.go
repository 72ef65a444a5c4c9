package types

// ContextUserKey is where the auth middleware stores the caller identity
// on the gin context.
const ContextUserKey = "user"
