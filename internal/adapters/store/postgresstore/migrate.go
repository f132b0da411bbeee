package postgresstore

import (
	"fmt"

	"gorm.io/gorm"
)

// Migrate creates the quotes table and its indexes if they are missing.
func Migrate(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(&quoteRow{}); err != nil {
		return err
	}

	stmts := []string{
		`create index if not exists idx_quotes_created on quotes(created_at desc, id desc);`,
		`create index if not exists idx_quotes_favorite on quotes(created_at desc, id desc) where favorite;`,
		`create index if not exists idx_quotes_tags on quotes using gin (tags);`,
	}

	for _, s := range stmts {
		if err := gdb.Exec(s).Error; err != nil {
			return fmt.Errorf("index exec failed: %w (sql=%s)", err, s)
		}
	}

	return nil
}
