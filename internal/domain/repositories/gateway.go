package repositories

import (
	"context"
)

// Row is a record exchanged with the gateway: column name to value
type Row map[string]interface{}

// Operator is a filter comparison
type Operator string

const (
	OpEq     Operator = "eq"
	OpIn     Operator = "in"
	OpIsNull Operator = "is_null"
)

// Predicate is a single column condition
type Predicate struct {
	Column string
	Op     Operator
	Value  interface{} // []interface{} for OpIn, unused for OpIsNull
}

// Filter is a conjunction of predicates (empty matches every row)
type Filter []Predicate

// Eq matches rows whose column equals value
func Eq(column string, value interface{}) Predicate {
	return Predicate{Column: column, Op: OpEq, Value: value}
}

// In matches rows whose column is one of values
func In(column string, values ...interface{}) Predicate {
	return Predicate{Column: column, Op: OpIn, Value: values}
}

// IsNull matches rows whose column is NULL
func IsNull(column string) Predicate {
	return Predicate{Column: column, Op: OpIsNull}
}

// Where builds a Filter from predicates
func Where(preds ...Predicate) Filter {
	return Filter(preds)
}

// Order sorts select results
type Order struct {
	Column     string
	Descending bool
}

// Asc orders by column ascending
func Asc(column string) Order { return Order{Column: column} }

// Desc orders by column descending
func Desc(column string) Order { return Order{Column: column, Descending: true} }

// Gateway is the generic table-oriented store behind the content engine.
// Each single-row write is atomic; there are no multi-row or cross-table
// transactions, so callers order their writes to tolerate partial application.
// Every call is independently fallible.
type Gateway interface {
	// InsertMany inserts rows into table. Rows carry their own "id".
	InsertMany(ctx context.Context, table string, rows []Row) error

	// UpdateByID sets only the given fields on the row with this id.
	// Returns domain.ErrNotFound if no row matched.
	UpdateByID(ctx context.Context, table, id string, fields Row) error

	// DeleteByIDs deletes every listed row. Missing ids are not an error.
	DeleteByIDs(ctx context.Context, table string, ids []string) error

	// SelectWhere returns all rows matching filter, sorted by order.
	SelectWhere(ctx context.Context, table string, filter Filter, order ...Order) ([]Row, error)

	// SelectOne returns the first row matching filter or domain.ErrNotFound.
	SelectOne(ctx context.Context, table string, filter Filter) (Row, error)
}
