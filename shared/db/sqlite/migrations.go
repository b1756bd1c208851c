package sqlite

import "github.com/dfryer1193/blogapi/shared/db"

// migrations is the ordered list of all SQLite schema changes.
var migrations = []db.Migration{
	{
		Version: 1,
		Name:    "create_blogs_table",
		Up: `
			CREATE TABLE IF NOT EXISTS blogs (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				title VARCHAR(255) NOT NULL,
				author VARCHAR(100) NOT NULL,
				cover_image VARCHAR(255),
				content TEXT NOT NULL,
				created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
			)
		`,
	},
	{
		Version: 2,
		Name:    "index_blogs_created_at",
		Up: `
			CREATE INDEX IF NOT EXISTS idx_blogs_created_at
			ON blogs(created_at DESC, id DESC)
		`,
	},
}
