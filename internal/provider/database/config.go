package database

import (
	"fmt"
	"strings"

	"github.com/groundworkd/groundwork/internal/domain/manifest"
	"github.com/groundworkd/groundwork/internal/validation"
)

// DefaultDatabase is the database objects land in unless the resource says
// otherwise.
const DefaultDatabase = "postgres"

// Object describes one desired schema object in a PostgreSQL database.
type Object struct {
	// Name is the relation name, probed via to_regclass.
	Name string
	// Database is the database to connect to.
	Database string
	// DDL is the idempotent create statement for the object. Convergence
	// relies on the statement being a CREATE ... IF NOT EXISTS form.
	DDL string
	// Absent drops the object instead of creating it.
	Absent bool
}

// ParseObject extracts an Object from a database resource.
func ParseObject(res manifest.Resource) (Object, error) {
	obj := Object{
		Name:     res.Name,
		Database: DefaultDatabase,
		Absent:   res.Absent,
	}

	if err := validation.ValidateSQLIdentifier(obj.Name); err != nil {
		return Object{}, err
	}

	if db := res.Attr("database"); db != "" {
		if err := validation.ValidateSQLIdentifier(db); err != nil {
			return Object{}, fmt.Errorf("database: %w", err)
		}
		obj.Database = db
	}

	obj.DDL = strings.TrimSpace(res.Attr("ddl"))
	if !obj.Absent && obj.DDL == "" {
		return Object{}, fmt.Errorf("database object %q requires a ddl attribute", obj.Name)
	}

	return obj, nil
}

// QualifiedName returns the schema-qualified relation name used for probes.
func (o Object) QualifiedName() string {
	return "public." + o.Name
}
