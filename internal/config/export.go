package config

import (
	"context"
	"database/sql"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/norpie/dynamics-cli-sub003/internal/types"
)

// ExportDocument is the full serialized contents of a Store, used for
// operator-initiated backup/restore. Credential secrets (passwords, client
// secrets) are included verbatim — the export file itself is the operator's
// responsibility to protect, same as the store file.
type ExportDocument struct {
	Version        int                    `yaml:"version"`
	Environments   []types.Environment    `yaml:"environments"`
	CredentialSets []types.CredentialSet  `yaml:"credential_sets"`
	EntityMappings []types.EntityMapping  `yaml:"entity_mappings"`
	Migrations     []types.SavedMigration `yaml:"migrations"`
	QueueItems     []types.QueueItem      `yaml:"queue_items"`
	QueueSettings  types.QueueSettings    `yaml:"queue_settings"`
	Options        map[string]string      `yaml:"options"`
}

const exportVersion = 1

// Export serializes the entire store to an ExportDocument.
func (s *Store) Export(ctx context.Context) (*ExportDocument, error) {
	envs, err := s.ListEnvironments(ctx)
	if err != nil {
		return nil, fmt.Errorf("export environments: %w", err)
	}
	creds, err := s.ListCredentialSets(ctx)
	if err != nil {
		return nil, fmt.Errorf("export credential sets: %w", err)
	}
	mappings, err := s.ListEntityMappings(ctx)
	if err != nil {
		return nil, fmt.Errorf("export entity mappings: %w", err)
	}
	migs, err := s.ListMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("export migrations: %w", err)
	}
	items, err := s.ListQueueItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("export queue items: %w", err)
	}
	settings, err := s.GetQueueSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("export queue settings: %w", err)
	}
	options, err := s.exportOptions(ctx)
	if err != nil {
		return nil, fmt.Errorf("export options: %w", err)
	}

	return &ExportDocument{
		Version:        exportVersion,
		Environments:   envs,
		CredentialSets: creds,
		EntityMappings: mappings,
		Migrations:     migs,
		QueueItems:     items,
		QueueSettings:  settings,
		Options:        options,
	}, nil
}

func (s *Store) exportOptions(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM options`)
	if err != nil {
		return nil, wrapDBError("list options", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, wrapDBError("scan option", err)
		}
		out[k] = v
	}
	return out, wrapDBError("iterate options", rows.Err())
}

// MarshalExport serializes an ExportDocument to YAML, the on-disk format
// written by the export CLI command.
func MarshalExport(doc *ExportDocument) ([]byte, error) {
	return yaml.Marshal(doc)
}

// UnmarshalExport parses a previously exported document.
func UnmarshalExport(data []byte) (*ExportDocument, error) {
	var doc ExportDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse export document: %w", err)
	}
	return &doc, nil
}

// Import replaces the store's contents with doc (deadline records, which an
// ExportDocument does not carry, are kept as they are). The store is
// cleared first, in dependency order (deepest-referencing tables first, then
// the tables they reference), then every section is reinserted. The whole
// operation is not itself one transaction — each section call already wraps
// its own transaction via withTx/SaveMigration/etc. — so a mid-import failure
// can leave a partially-imported store; callers doing this against a live
// store should back it up first.
func (s *Store) Import(ctx context.Context, doc *ExportDocument) error {
	if err := s.clearAll(ctx); err != nil {
		return fmt.Errorf("clear store before import: %w", err)
	}

	for _, cs := range doc.CredentialSets {
		if err := s.AddCredentialSet(ctx, cs); err != nil {
			return fmt.Errorf("import credential set %q: %w", cs.Name, err)
		}
	}
	for _, env := range doc.Environments {
		if err := s.AddEnvironment(ctx, env); err != nil {
			return fmt.Errorf("import environment %q: %w", env.Name, err)
		}
	}
	for _, m := range doc.EntityMappings {
		if err := s.AddEntityMapping(ctx, m); err != nil {
			return fmt.Errorf("import entity mapping %q: %w", m.Singular, err)
		}
	}
	for _, mig := range doc.Migrations {
		if err := s.SaveMigration(ctx, mig); err != nil {
			return fmt.Errorf("import migration %q: %w", mig.Name, err)
		}
	}
	for _, item := range doc.QueueItems {
		if err := s.SaveQueueItem(ctx, item); err != nil {
			return fmt.Errorf("import queue item %q: %w", item.ID, err)
		}
	}
	if err := s.SetQueueSettings(ctx, doc.QueueSettings); err != nil {
		return fmt.Errorf("import queue settings: %w", err)
	}
	for k, v := range doc.Options {
		if err := s.SetOption(ctx, k, v); err != nil {
			return fmt.Errorf("import option %q: %w", k, err)
		}
	}
	return nil
}

// clearAll deletes every row from every table listed below, in dependency
// order: child tables (tokens, the nested comparison tables, queue items,
// options) before the parent tables they reference (environments,
// migrations, credentials). deadline_records is not in the list and is left
// untouched, as it is not part of an ExportDocument either.
func (s *Store) clearAll(ctx context.Context) error {
	tables := []string{
		"tokens",
		"view_mappings", "examples", "prefix_mappings", "field_mappings", "comparisons",
		"queue_items", "queue_settings",
		"options",
		"entity_mappings",
		"migrations",
		"environments",
		"credentials",
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, table := range tables {
			if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
				return wrapDBError("clear "+table, err)
			}
		}
		return nil
	})
}
