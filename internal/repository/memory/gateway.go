// Package memory holds in-process implementations of the persistence
// interfaces, used by tests and by the server's "memory" backend.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"gavelogy/internal/domain"
	"gavelogy/internal/domain/repositories"
)

// Op names a gateway method in the call log
type Op string

const (
	OpInsertMany  Op = "insert_many"
	OpUpdateByID  Op = "update_by_id"
	OpDeleteByIDs Op = "delete_by_ids"
	OpSelectWhere Op = "select_where"
	OpSelectOne   Op = "select_one"
)

// Call records one gateway invocation
type Call struct {
	Op     Op
	Table  string
	IDs    []string
	Fields repositories.Row // update fields, nil otherwise
}

type table struct {
	rows  map[string]repositories.Row
	order []string
}

type faultKey struct {
	op    Op
	table string
}

// Gateway is a map-backed repositories.Gateway with a call log and fault injection
type Gateway struct {
	mu     sync.Mutex
	tables map[string]*table
	calls  []Call
	faults map[faultKey]error
}

// NewGateway creates an empty gateway
func NewGateway() *Gateway {
	return &Gateway{
		tables: make(map[string]*table),
		faults: make(map[faultKey]error),
	}
}

// Seed inserts rows without recording calls
func (g *Gateway) Seed(tableName string, rows ...repositories.Row) {
	g.mu.Lock()
	defer g.mu.Unlock()

	t := g.table(tableName)
	for _, row := range rows {
		id := rowID(row)
		if _, exists := t.rows[id]; !exists {
			t.order = append(t.order, id)
		}
		t.rows[id] = copyRow(row)
	}
}

// InjectFault makes every call of op on tableName fail with err until cleared
func (g *Gateway) InjectFault(op Op, tableName string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.faults[faultKey{op, tableName}] = err
}

// ClearFaults removes all injected faults
func (g *Gateway) ClearFaults() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.faults = make(map[faultKey]error)
}

// Calls returns the call log
func (g *Gateway) Calls() []Call {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]Call, len(g.calls))
	copy(out, g.calls)
	return out
}

// WriteCalls returns the logged inserts, updates and deletes
func (g *Gateway) WriteCalls() []Call {
	var out []Call
	for _, c := range g.Calls() {
		if c.Op == OpInsertMany || c.Op == OpUpdateByID || c.Op == OpDeleteByIDs {
			out = append(out, c)
		}
	}
	return out
}

// ResetCalls clears the call log
func (g *Gateway) ResetCalls() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = nil
}

// Row returns a copy of one stored row
func (g *Gateway) Row(tableName, id string) (repositories.Row, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	t, ok := g.tables[tableName]
	if !ok {
		return nil, false
	}
	row, ok := t.rows[id]
	if !ok {
		return nil, false
	}
	return copyRow(row), true
}

// Count returns the number of rows in a table
func (g *Gateway) Count(tableName string) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	if t, ok := g.tables[tableName]; ok {
		return len(t.rows)
	}
	return 0
}

func (g *Gateway) InsertMany(ctx context.Context, tableName string, rows []repositories.Row) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, rowID(row))
	}
	g.calls = append(g.calls, Call{Op: OpInsertMany, Table: tableName, IDs: ids})
	if err := g.faults[faultKey{OpInsertMany, tableName}]; err != nil {
		return err
	}

	t := g.table(tableName)
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == "" {
			return &domain.ValidationError{Message: fmt.Sprintf("insert into %s: row without id", tableName)}
		}
		if _, exists := t.rows[id]; exists || seen[id] {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("%s row %s already exists", tableName, id),
				ResourceType: tableName,
				ResourceID:   id,
			}
		}
		seen[id] = true
	}

	for i, row := range rows {
		t.rows[ids[i]] = copyRow(row)
		t.order = append(t.order, ids[i])
	}
	return nil
}

func (g *Gateway) UpdateByID(ctx context.Context, tableName, id string, fields repositories.Row) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.calls = append(g.calls, Call{Op: OpUpdateByID, Table: tableName, IDs: []string{id}, Fields: copyRow(fields)})
	if err := g.faults[faultKey{OpUpdateByID, tableName}]; err != nil {
		return err
	}

	t := g.table(tableName)
	row, ok := t.rows[id]
	if !ok {
		return fmt.Errorf("%s row %s: %w", tableName, id, domain.ErrNotFound)
	}
	for k, v := range fields {
		if k == "id" {
			continue
		}
		row[k] = v
	}
	return nil
}

func (g *Gateway) DeleteByIDs(ctx context.Context, tableName string, ids []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.calls = append(g.calls, Call{Op: OpDeleteByIDs, Table: tableName, IDs: append([]string(nil), ids...)})
	if err := g.faults[faultKey{OpDeleteByIDs, tableName}]; err != nil {
		return err
	}

	t := g.table(tableName)
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, ok := t.rows[id]; ok {
			delete(t.rows, id)
			drop[id] = true
		}
	}
	if len(drop) > 0 {
		kept := t.order[:0]
		for _, id := range t.order {
			if !drop[id] {
				kept = append(kept, id)
			}
		}
		t.order = kept
	}
	return nil
}

func (g *Gateway) SelectWhere(ctx context.Context, tableName string, filter repositories.Filter, order ...repositories.Order) ([]repositories.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.calls = append(g.calls, Call{Op: OpSelectWhere, Table: tableName})
	if err := g.faults[faultKey{OpSelectWhere, tableName}]; err != nil {
		return nil, err
	}
	return g.selectLocked(tableName, filter, order), nil
}

func (g *Gateway) SelectOne(ctx context.Context, tableName string, filter repositories.Filter) (repositories.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.calls = append(g.calls, Call{Op: OpSelectOne, Table: tableName})
	if err := g.faults[faultKey{OpSelectOne, tableName}]; err != nil {
		return nil, err
	}

	rows := g.selectLocked(tableName, filter, nil)
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: %w", tableName, domain.ErrNotFound)
	}
	return rows[0], nil
}

func (g *Gateway) selectLocked(tableName string, filter repositories.Filter, order []repositories.Order) []repositories.Row {
	t, ok := g.tables[tableName]
	if !ok {
		return []repositories.Row{}
	}

	out := make([]repositories.Row, 0, len(t.rows))
	for _, id := range t.order {
		row := t.rows[id]
		if matches(row, filter) {
			out = append(out, copyRow(row))
		}
	}

	if len(order) > 0 {
		sort.SliceStable(out, func(i, j int) bool {
			for _, o := range order {
				c := compareValues(out[i][o.Column], out[j][o.Column])
				if c == 0 {
					continue
				}
				if o.Descending {
					return c > 0
				}
				return c < 0
			}
			return false
		})
	}
	return out
}

func (g *Gateway) table(name string) *table {
	t, ok := g.tables[name]
	if !ok {
		t = &table{rows: make(map[string]repositories.Row)}
		g.tables[name] = t
	}
	return t
}

func matches(row repositories.Row, filter repositories.Filter) bool {
	for _, p := range filter {
		value, present := row[p.Column]
		switch p.Op {
		case repositories.OpIsNull:
			if present && value != nil {
				return false
			}
		case repositories.OpEq:
			if !present || compareValues(value, p.Value) != 0 || (value == nil) != (p.Value == nil) {
				return false
			}
		case repositories.OpIn:
			values, _ := p.Value.([]interface{})
			found := false
			for _, v := range values {
				if present && value != nil && compareValues(value, v) == 0 {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// compareValues orders numbers numerically, times chronologically and
// everything else by its string form. nil sorts first.
func compareValues(a, b interface{}) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		default:
			return 1
		}
	}

	if af, ok := toFloat(a); ok {
		if bf, ok := toFloat(b); ok {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			}
			return 0
		}
	}

	if at, ok := a.(time.Time); ok {
		if bt, ok := b.(time.Time); ok {
			return at.Compare(bt)
		}
	}

	as, bs := fmt.Sprint(a), fmt.Sprint(b)
	switch {
	case as < bs:
		return -1
	case as > bs:
		return 1
	}
	return 0
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case string:
		return 0, false
	default:
		if f, err := strconv.ParseFloat(fmt.Sprint(n), 64); err == nil {
			return f, true
		}
		return 0, false
	}
}

func rowID(row repositories.Row) string {
	switch id := row["id"].(type) {
	case nil:
		return ""
	case string:
		return id
	default:
		return fmt.Sprint(id)
	}
}

func copyRow(row repositories.Row) repositories.Row {
	if row == nil {
		return nil
	}
	out := make(repositories.Row, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out
}
