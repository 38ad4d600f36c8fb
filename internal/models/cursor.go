package models

// SyncCursor marks the last fully processed block of a named log stream so
// a restarted indexer resumes instead of rescanning
type SyncCursor struct {
	Name  string `json:"name"`
	Block uint64 `json:"block"`
}

func (c *SyncCursor) EntityKind() string { return KindSyncCursor }
func (c *SyncCursor) EntityID() string   { return c.Name }
