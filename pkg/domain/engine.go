package domain

import "context"

// Driver identifies a concrete storage engine implementation.
type Driver string

const (
	DriverMemory   Driver = "memory"   // in-memory only (tests / ephemeral)
	DriverSQLite   Driver = "sqlite"   // embedded sqlite file
	DriverPostgres Driver = "postgres" // PostgreSQL server
	DriverObject   Driver = "object"   // one blob per record (fs / s3 / memory)
)

// Field names a queryable simulation attribute.
type Field string

// Queryable fields.
const (
	FieldID        Field = "id"
	FieldOwnerID   Field = "owner_id"
	FieldWorldName Field = "world_name"
	FieldStatus    Field = "status"
)

// Query constrains a lookup to simulations. A zero Field selects every record;
// otherwise only records whose Field equals Value match.
type Query struct {
	Field Field
	Value string
}

// AllSimulations returns the unfiltered full-scan query.
func AllSimulations() Query { return Query{} }

// FieldEquals returns an exact-match query over field.
func FieldEquals(field Field, value string) Query {
	return Query{Field: field, Value: value}
}

// IsScan reports whether the query is unfiltered.
func (q Query) IsScan() bool { return q.Field == "" }

// Matches evaluates the query against a record. Unknown fields never match.
func (q Query) Matches(s Simulation) bool {
	if q.IsScan() {
		return true
	}
	v, ok := s.Field(q.Field)
	return ok && v == q.Value
}

// Engine is the minimal abstraction over durable backends used by the
// repository. Store upserts by ID; Remove reports whether a record existed.
type Engine interface {
	Store(ctx context.Context, sim Simulation) error
	Query(ctx context.Context, q Query) ([]Simulation, error)
	Remove(ctx context.Context, id string) (bool, error)
	Driver() Driver
	Close() error
}
