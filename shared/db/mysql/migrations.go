package mysql

import "github.com/dfryer1193/blogapi/shared/db"

// migrations is the ordered list of all MySQL schema changes.
// Timestamps keep microseconds so consecutive updates stay ordered.
var migrations = []db.Migration{
	{
		Version: 1,
		Name:    "create_blogs_table",
		Up: `
			CREATE TABLE IF NOT EXISTS blogs (
				id INT AUTO_INCREMENT PRIMARY KEY,
				title VARCHAR(255) NOT NULL,
				author VARCHAR(100) NOT NULL,
				cover_image VARCHAR(255),
				content LONGTEXT NOT NULL,
				created_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
				updated_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6) ON UPDATE CURRENT_TIMESTAMP(6)
			) CHARACTER SET utf8mb4 COLLATE utf8mb4_unicode_ci
		`,
	},
	{
		Version: 2,
		Name:    "index_blogs_created_at",
		Up:      `CREATE INDEX idx_blogs_created_at ON blogs(created_at, id)`,
	},
}
