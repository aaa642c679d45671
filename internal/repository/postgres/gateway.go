package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"gavelogy/internal/domain"
	"gavelogy/internal/domain/repositories"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Gateway implements repositories.Gateway over Postgres with dynamic SQL.
// Identifiers are sanitized with pgx.Identifier; values are always bound.
type Gateway struct {
	db     repositories.DBTX
	tables *TableNames
	logger *slog.Logger
}

// NewGateway creates a gateway on the configured pool
func NewGateway(config *RepositoryConfig) *Gateway {
	return NewGatewayWithExecutor(config.Pool, config.Tables, config.Logger)
}

// NewGatewayWithExecutor creates a gateway on any pgx executor (pool, conn or tx)
func NewGatewayWithExecutor(db repositories.DBTX, tables *TableNames, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{db: db, tables: tables, logger: logger}
}

// InsertMany inserts all rows with one multi-row INSERT statement
func (g *Gateway) InsertMany(ctx context.Context, table string, rows []repositories.Row) error {
	if len(rows) == 0 {
		return nil
	}

	query, args := buildInsert(g.tables.Name(table), rows)
	g.logger.Debug("gateway insert", "table", table, "rows", len(rows))

	if _, err := g.db.Exec(ctx, query, args...); err != nil {
		return translateError(err, "insert", table, rowIDs(rows))
	}
	return nil
}

// UpdateByID sets the given columns on one row
func (g *Gateway) UpdateByID(ctx context.Context, table, id string, fields repositories.Row) error {
	query, args, ok := buildUpdate(g.tables.Name(table), id, fields)
	if !ok {
		return nil
	}
	g.logger.Debug("gateway update", "table", table, "id", id, "columns", len(args)-1)

	tag, err := g.db.Exec(ctx, query, args...)
	if err != nil {
		return translateError(err, "update", table, []string{id})
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s %s: %w", table, id, domain.ErrNotFound)
	}
	return nil
}

// DeleteByIDs deletes rows by primary key
func (g *Gateway) DeleteByIDs(ctx context.Context, table string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	query, args := buildDelete(g.tables.Name(table), ids)
	g.logger.Debug("gateway delete", "table", table, "ids", len(ids))

	if _, err := g.db.Exec(ctx, query, args...); err != nil {
		return translateError(err, "delete", table, ids)
	}
	return nil
}

// SelectWhere returns matching rows as column maps
func (g *Gateway) SelectWhere(ctx context.Context, table string, filter repositories.Filter, order ...repositories.Order) ([]repositories.Row, error) {
	query, args := buildSelect(g.tables.Name(table), filter, order, 0)
	return g.query(ctx, table, query, args)
}

// SelectOne returns the first matching row or domain.ErrNotFound
func (g *Gateway) SelectOne(ctx context.Context, table string, filter repositories.Filter) (repositories.Row, error) {
	query, args := buildSelect(g.tables.Name(table), filter, nil, 1)
	rows, err := g.query(ctx, table, query, args)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: %w", table, domain.ErrNotFound)
	}
	return rows[0], nil
}

func (g *Gateway) query(ctx context.Context, table, query string, args []interface{}) ([]repositories.Row, error) {
	rows, err := g.db.Query(ctx, query, args...)
	if err != nil {
		return nil, translateError(err, "select", table, nil)
	}

	maps, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, translateError(err, "select", table, nil)
	}

	out := make([]repositories.Row, 0, len(maps))
	for _, m := range maps {
		out = append(out, normalizeRow(m))
	}
	return out, nil
}

// normalizeRow turns driver-specific values into the shapes the domain expects
func normalizeRow(m map[string]interface{}) repositories.Row {
	row := make(repositories.Row, len(m))
	for k, v := range m {
		switch val := v.(type) {
		case [16]byte:
			row[k] = uuid.UUID(val).String()
		default:
			row[k] = val
		}
	}
	return row
}

func quoteIdent(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

// buildInsert uses the union of row columns; a row missing a column gets DEFAULT
func buildInsert(table string, rows []repositories.Row) (string, []interface{}) {
	colSet := make(map[string]bool)
	for _, row := range rows {
		for col := range row {
			colSet[col] = true
		}
	}
	columns := make([]string, 0, len(colSet))
	for col := range colSet {
		columns = append(columns, col)
	}
	sort.Strings(columns)

	quoted := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = quoteIdent(col)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "INSERT INTO %s (%s) VALUES ", quoteIdent(table), strings.Join(quoted, ", "))

	args := make([]interface{}, 0, len(rows)*len(columns))
	for i, row := range rows {
		if i > 0 {
			sb.WriteString(", ")
		}
		values := make([]string, len(columns))
		for j, col := range columns {
			v, ok := row[col]
			if !ok {
				values[j] = "DEFAULT"
				continue
			}
			args = append(args, v)
			values[j] = fmt.Sprintf("$%d", len(args))
		}
		fmt.Fprintf(&sb, "(%s)", strings.Join(values, ", "))
	}
	return sb.String(), args
}

func buildUpdate(table, id string, fields repositories.Row) (string, []interface{}, bool) {
	columns := make([]string, 0, len(fields))
	for col := range fields {
		if col == "id" {
			continue
		}
		columns = append(columns, col)
	}
	if len(columns) == 0 {
		return "", nil, false
	}
	sort.Strings(columns)

	sets := make([]string, len(columns))
	args := make([]interface{}, 0, len(columns)+1)
	for i, col := range columns {
		args = append(args, fields[col])
		sets[i] = fmt.Sprintf("%s = $%d", quoteIdent(col), len(args))
	}
	args = append(args, id)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = $%d",
		quoteIdent(table), strings.Join(sets, ", "), quoteIdent("id"), len(args))
	return query, args, true
}

func buildDelete(table string, ids []string) (string, []interface{}) {
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = ANY($1)", quoteIdent(table), quoteIdent("id"))
	return query, []interface{}{ids}
}

func buildSelect(table string, filter repositories.Filter, order []repositories.Order, limit int) (string, []interface{}) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT * FROM %s", quoteIdent(table))

	var args []interface{}
	if len(filter) > 0 {
		conds := make([]string, 0, len(filter))
		for _, p := range filter {
			col := quoteIdent(p.Column)
			switch p.Op {
			case repositories.OpIsNull:
				conds = append(conds, col+" IS NULL")
			case repositories.OpEq:
				if p.Value == nil {
					conds = append(conds, col+" IS NULL")
					continue
				}
				args = append(args, p.Value)
				conds = append(conds, fmt.Sprintf("%s = $%d", col, len(args)))
			case repositories.OpIn:
				values, _ := p.Value.([]interface{})
				if len(values) == 0 {
					conds = append(conds, "FALSE")
					continue
				}
				placeholders := make([]string, len(values))
				for i, v := range values {
					args = append(args, v)
					placeholders[i] = fmt.Sprintf("$%d", len(args))
				}
				conds = append(conds, fmt.Sprintf("%s IN (%s)", col, strings.Join(placeholders, ", ")))
			default:
				conds = append(conds, "FALSE")
			}
		}
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(conds, " AND "))
	}

	if len(order) > 0 {
		parts := make([]string, len(order))
		for i, o := range order {
			dir := "ASC"
			if o.Descending {
				dir = "DESC"
			}
			parts[i] = quoteIdent(o.Column) + " " + dir
		}
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(parts, ", "))
	}

	if limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d", limit)
	}
	return sb.String(), args
}

func rowIDs(rows []repositories.Row) []string {
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		if id, ok := row["id"]; ok && id != nil {
			ids = append(ids, fmt.Sprint(id))
		}
	}
	return ids
}
