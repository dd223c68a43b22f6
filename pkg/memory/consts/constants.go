package consts

const (
	// DefaultDBName is the default database name.
	DefaultDBName = "folio"

	// TableNameMessages is the table/collection holding conversation turns.
	TableNameMessages = "messages"
	// TableNameSessions is the table/collection holding per-session counters.
	TableNameSessions = "sessions"

	// Column names
	ColID           = "id"
	ColSessionID    = "session_id"
	ColRole         = "role"
	ColContent      = "content"
	ColSeq          = "seq"
	ColMessages     = "messages"
	ColMessageCount = "message_count"
	ColCreatedAt    = "created_at"
	ColUpdatedAt    = "updated_at"

	// Neo4j specific
	LabelSession  = "Session"
	LabelMessage  = "Message"
	RelHasMessage = "HAS_MESSAGE"
)
