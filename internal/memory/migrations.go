package memory

// migrations is the ordered list of SQL migration statements.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS conversations (
		id TEXT PRIMARY KEY,
		summary TEXT NOT NULL DEFAULT '',
		personality TEXT NOT NULL DEFAULT '',
		model TEXT NOT NULL DEFAULT '',
		custom_prompt TEXT NOT NULL DEFAULT '',
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
}
