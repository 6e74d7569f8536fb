package common

// SessionCookieName is the cookie that carries the signed session token.
const SessionCookieName = "session"

// SnapshotFileName is the attachment name used for exported containers.
const SnapshotFileName = "stocks.db"
