package db

import (
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	embeddedmigrations "github.com/terraincognita07/paindiary/migrations"
	"gorm.io/gorm"
)

// Host migrations evolve the kv_entries table itself. They are unrelated to
// the schema version of the diary document stored inside it.

var (
	hostMigrationName = regexp.MustCompile(`^(\d+)_[A-Za-z0-9_]+\.sql$`)
	addColumnClause   = regexp.MustCompile(`(?i)^ALTER\s+TABLE\s+(\S+)\s+ADD\s+COLUMN\s+(\S+)`)
)

type hostMigration struct {
	Version string
	Order   int
	Name    string
	SQL     string
}

// appliedHostMigration is one row of the schema_migrations bookkeeping table.
type appliedHostMigration struct {
	Version   string    `gorm:"column:version;primaryKey"`
	Name      string    `gorm:"column:name;not null"`
	AppliedAt time.Time `gorm:"column:applied_at;not null"`
}

func (appliedHostMigration) TableName() string {
	return "schema_migrations"
}

func applyEmbeddedMigrations(database *gorm.DB) error {
	const bookkeepingDDL = `CREATE TABLE IF NOT EXISTS schema_migrations (
  version TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
)`
	if err := database.Exec(bookkeepingDDL).Error; err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}

	available, err := loadEmbeddedMigrations()
	if err != nil {
		return err
	}

	var applied []appliedHostMigration
	if err := database.Select("version").Find(&applied).Error; err != nil {
		return fmt.Errorf("load applied migration versions: %w", err)
	}
	done := make(map[string]bool, len(applied))
	for _, row := range applied {
		done[row.Version] = true
	}

	for _, migration := range available {
		if done[migration.Version] {
			continue
		}
		if err := runHostMigration(database, migration); err != nil {
			return err
		}
	}
	return nil
}

// loadEmbeddedMigrations returns the embedded SQL files ordered by their
// numeric prefix. Files not matching NNN_name.sql are ignored.
func loadEmbeddedMigrations() ([]hostMigration, error) {
	entries, err := fs.ReadDir(embeddedmigrations.Files, ".")
	if err != nil {
		return nil, fmt.Errorf("read embedded migrations: %w", err)
	}

	migrations := make([]hostMigration, 0, len(entries))
	owners := make(map[string]string, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		match := hostMigrationName.FindStringSubmatch(entry.Name())
		if match == nil {
			continue
		}
		version := match[1]
		if owner, taken := owners[version]; taken {
			return nil, fmt.Errorf("duplicate migration version %s in %s and %s", version, owner, entry.Name())
		}
		owners[version] = entry.Name()

		order, err := strconv.Atoi(version)
		if err != nil {
			return nil, fmt.Errorf("parse migration version from %s: %w", entry.Name(), err)
		}
		body, err := fs.ReadFile(embeddedmigrations.Files, entry.Name())
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}
		migrations = append(migrations, hostMigration{Version: version, Order: order, Name: entry.Name(), SQL: string(body)})
	}

	sort.SliceStable(migrations, func(i, j int) bool {
		return migrations[i].Order < migrations[j].Order
	})
	return migrations, nil
}

// runHostMigration applies every statement of migration and records it in
// one transaction. ADD COLUMN statements for columns that already exist are
// skipped so databases patched by hand still converge.
func runHostMigration(database *gorm.DB, migration hostMigration) error {
	statements := splitSQLStatements(migration.SQL)
	if len(statements) == 0 {
		return fmt.Errorf("migration %s: %w", migration.Name, errors.New("no SQL statements"))
	}

	return database.Transaction(func(tx *gorm.DB) error {
		for _, statement := range statements {
			if addsExistingColumn(tx, statement) {
				continue
			}
			if err := tx.Exec(statement).Error; err != nil {
				return fmt.Errorf("execute migration %s statement %q: %w", migration.Name, statement, err)
			}
		}
		row := appliedHostMigration{Version: migration.Version, Name: migration.Name, AppliedAt: time.Now().UTC()}
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("record migration %s: %w", migration.Name, err)
		}
		return nil
	})
}

func addsExistingColumn(tx *gorm.DB, statement string) bool {
	match := addColumnClause.FindStringSubmatch(statement)
	if match == nil {
		return false
	}
	table := unquoteIdentifier(match[1])
	column := unquoteIdentifier(match[2])
	return tx.Migrator().HasColumn(table, column)
}

func splitSQLStatements(sqlText string) []string {
	var statements []string
	for _, part := range strings.Split(sqlText, ";") {
		if statement := strings.TrimSpace(part); statement != "" {
			statements = append(statements, statement)
		}
	}
	return statements
}

func unquoteIdentifier(identifier string) string {
	return strings.Trim(strings.TrimSpace(identifier), "\"`[]")
}
