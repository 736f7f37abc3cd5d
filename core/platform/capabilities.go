package platform

// Referential actions as they appear in foreign key definitions. The values
// match the spelling used by the dbschema snapshot model.
const (
	ActionNoAction   = "NO ACTION"
	ActionRestrict   = "RESTRICT"
	ActionCascade    = "CASCADE"
	ActionSetNull    = "SET NULL"
	ActionSetDefault = "SET DEFAULT"
)

// Capabilities answers what a target database product supports. A connector
// resolves its Capabilities once and consults it when planning and rendering
// migration steps.
type Capabilities struct {
	dialect string
}

// CapabilitiesFor returns the capability profile for the given dialect.
// The dialect string is normalized first, so driver aliases like "pgx" work.
func CapabilitiesFor(dialect string) Capabilities {
	return Capabilities{dialect: NormalizeDialect(dialect)}
}

// Dialect returns the normalized dialect name this profile describes.
func (c Capabilities) Dialect() string {
	return c.dialect
}

// SupportsReferentialAction reports whether the dialect honors the given
// ON DELETE / ON UPDATE action. MySQL and MariaDB parse SET DEFAULT but
// InnoDB rejects tables using it, so it is reported as unsupported there.
func (c Capabilities) SupportsReferentialAction(action string) bool {
	switch c.dialect {
	case MySQL, MariaDB:
		return action != ActionSetDefault
	default:
		return true
	}
}

// SupportsTransactionalDDL reports whether DDL statements can run inside an
// explicit transaction. MySQL and MariaDB issue an implicit commit on most
// DDL statements, so callers must not wrap migrations in a transaction there.
func (c Capabilities) SupportsTransactionalDDL() bool {
	switch c.dialect {
	case MySQL, MariaDB:
		return false
	default:
		return true
	}
}

// SupportsInPlaceColumnAlteration reports whether a column's type can be
// changed with ALTER TABLE. SQLite has no such statement; changes there are
// expressed by redefining the whole table.
func (c Capabilities) SupportsInPlaceColumnAlteration() bool {
	return c.dialect != SQLite
}

// SupportsInPlaceIndexRename reports whether an index can be renamed without
// dropping and recreating it.
func (c Capabilities) SupportsInPlaceIndexRename() bool {
	switch c.dialect {
	case Postgres, MySQL, MariaDB:
		return true
	default:
		return false
	}
}
