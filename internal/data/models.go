// internal/data/models.go
package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // Register the postgres SQL dialect with goqu.
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jmoiron/sqlx"
	"github.com/sony/gobreaker"

	"github.com/fabio-stoppa/sistema-biblioteca/internal/validator"
)

// ErrRecordNotFound is returned when a query finds no matching row.
var ErrRecordNotFound = errors.New("record not found")

// Logger is the logging surface the models need. *slog.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Option configures the shared query runner behind Models.
type Option func(*querier)

// WithLogger makes the models log every statement at Debug and every
// unexpected failure at Error.
func WithLogger(logger Logger) Option {
	return func(q *querier) { q.logger = logger }
}

// WithBreaker replaces the default circuit breaker guarding database calls.
func WithBreaker(cb *gobreaker.CircuitBreaker) Option {
	return func(q *querier) { q.breaker = cb }
}

// Models groups the three record models. It is built once during start-up
// and handed to the services layer, which talks to it through interfaces.
type Models struct {
	Librarians LibrarianModel
	Readers    ReaderModel
	Loans      LoanModel

	q *querier
}

// NewModels wires the models to the given connection pool.
func NewModels(db *sqlx.DB, opts ...Option) Models {
	q := &querier{
		db:      db,
		dialect: goqu.Dialect("postgres"),
	}
	for _, opt := range opts {
		opt(q)
	}
	if q.breaker == nil {
		q.breaker = NewBreaker("postgres", q.logger)
	}

	return Models{
		Librarians: LibrarianModel{q: q},
		Readers:    ReaderModel{q: q},
		Loans:      LoanModel{q: q},
		q:          q,
	}
}

// Ping checks the database is reachable, bypassing the breaker.
func (m Models) Ping(ctx context.Context) error {
	if m.q == nil || m.q.db == nil {
		return errors.New("database not configured")
	}
	return m.q.db.PingContext(ctx)
}

// BreakerState reports the state of the breaker guarding database calls.
func (m Models) BreakerState() gobreaker.State {
	if m.q == nil || m.q.breaker == nil {
		return gobreaker.StateClosed
	}
	return m.q.breaker.State()
}

// sqlBuilder is satisfied by every goqu dataset.
type sqlBuilder interface {
	ToSQL() (string, []any, error)
}

// querier runs goqu-built statements through sqlx, behind a circuit breaker,
// and turns driver errors into the package's error values.
type querier struct {
	db      *sqlx.DB
	dialect goqu.DialectWrapper
	breaker *gobreaker.CircuitBreaker
	logger  Logger
}

func (q *querier) run(ctx context.Context, action string, b sqlBuilder, fn func(query string, args []any) error) error {
	query, args, err := b.ToSQL()
	if err != nil {
		return fmt.Errorf("%s: build query: %w", action, err)
	}

	start := time.Now()
	_, err = q.breaker.Execute(func() (any, error) {
		return nil, fn(query, args)
	})
	if q.logger != nil {
		q.logger.Debug("sql executed", "action", action, "query", query, "duration", time.Since(start))
	}

	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return ErrRecordNotFound
	}

	if cerr := classifyConstraint(err); cerr != nil {
		return cerr
	}
	if q.logger != nil {
		q.logger.Error("database operation failed", "action", action, "error", err)
	}
	return fmt.Errorf("%s: %w", action, err)
}

// get scans a single row into dest.
func (q *querier) get(ctx context.Context, action string, dest any, ds *goqu.SelectDataset) error {
	return q.run(ctx, action, ds.Prepared(true), func(query string, args []any) error {
		return q.db.GetContext(ctx, dest, query, args...)
	})
}

// selectAll scans every row into the slice pointed to by dest.
func (q *querier) selectAll(ctx context.Context, action string, dest any, ds *goqu.SelectDataset) error {
	return q.run(ctx, action, ds.Prepared(true), func(query string, args []any) error {
		return q.db.SelectContext(ctx, dest, query, args...)
	})
}

// insert runs ds, which must return the new row's id.
func (q *querier) insert(ctx context.Context, action string, ds *goqu.InsertDataset) (int64, error) {
	var id int64
	err := q.run(ctx, action, ds.Returning("id").Prepared(true), func(query string, args []any) error {
		return q.db.QueryRowxContext(ctx, query, args...).Scan(&id)
	})
	return id, err
}

// exec runs an UPDATE or DELETE and reports ErrRecordNotFound when it
// touched no row.
func (q *querier) exec(ctx context.Context, action string, b sqlBuilder) error {
	return q.run(ctx, action, b, func(query string, args []any) error {
		result, err := q.db.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		n, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return sql.ErrNoRows
		}
		return nil
	})
}

// nullable stores empty optional strings as NULL so unique indexes ignore them.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// dateValue renders a date column value, NULL when absent.
func dateValue(d *Date) any {
	if d == nil || d.IsZero() {
		return nil
	}
	return d.Format(DateLayout)
}

// Filters holds pagination and sorting parameters extracted from URL query
// strings. A zero PageSize means "no paging": every match is returned.
type Filters struct {
	Page         int      // Current page number (1-indexed)
	PageSize     int      // Number of records per page, 0 for all
	Sort         string   // Column name to sort by (prefix with "-" for DESC)
	SortSafeList []string // Allowed sort values
}

// ValidateFilters checks paging bounds and that Sort is safelisted.
func ValidateFilters(v *validator.Validator, f Filters) {
	v.Check(f.Page > 0, "page", "must be greater than zero")
	v.Check(f.Page <= 10_000_000, "page", "must be a maximum of 10 million")
	v.Check(f.PageSize >= 0, "page_size", "must not be negative")
	v.Check(f.PageSize <= 100, "page_size", "must be a maximum of 100")
	v.Check(validator.In(f.Sort, f.SortSafeList...), "sort", "invalid sort value")
}

// sortColumn returns the validated column name for ORDER BY, defaulting to id.
func (f Filters) sortColumn() string {
	for _, safe := range f.SortSafeList {
		if f.Sort == safe {
			return strings.TrimPrefix(f.Sort, "-")
		}
	}
	return "id"
}

// sortDirection returns "ASC" or "DESC" based on the Sort prefix.
func (f Filters) sortDirection() string {
	if strings.HasPrefix(f.Sort, "-") {
		return "DESC"
	}
	return "ASC"
}

func (f Filters) limit() int { return f.PageSize }

func (f Filters) offset() int {
	if f.Page < 1 {
		return 0
	}
	return (f.Page - 1) * f.PageSize
}

// apply adds ORDER BY, and LIMIT/OFFSET when paging, to ds. id breaks ties
// so pages are stable.
func (f Filters) apply(ds *goqu.SelectDataset) *goqu.SelectDataset {
	col := goqu.I(f.sortColumn())
	order := []exp.OrderedExpression{col.Asc()}
	if f.sortDirection() == "DESC" {
		order[0] = col.Desc()
	}
	if f.sortColumn() != "id" {
		order = append(order, goqu.I("id").Asc())
	}
	ds = ds.Order(order...)

	if f.PageSize > 0 {
		ds = ds.Limit(uint(f.limit())).Offset(uint(f.offset()))
	}
	return ds
}

// Metadata contains pagination information returned alongside list responses.
type Metadata struct {
	CurrentPage  int `json:"current_page,omitempty"`
	PageSize     int `json:"page_size,omitempty"`
	FirstPage    int `json:"first_page,omitempty"`
	LastPage     int `json:"last_page,omitempty"`
	TotalRecords int `json:"total_records,omitempty"`
}

// CalculateMetadata computes page metadata from the total record count and
// the requested page. An unpaged request is reported as one page.
func CalculateMetadata(totalRecords, page, pageSize int) Metadata {
	if totalRecords == 0 {
		return Metadata{}
	}
	if pageSize <= 0 {
		return Metadata{
			CurrentPage:  1,
			PageSize:     totalRecords,
			FirstPage:    1,
			LastPage:     1,
			TotalRecords: totalRecords,
		}
	}
	if page < 1 {
		page = 1
	}
	return Metadata{
		CurrentPage:  page,
		PageSize:     pageSize,
		FirstPage:    1,
		LastPage:     int(math.Ceil(float64(totalRecords) / float64(pageSize))),
		TotalRecords: totalRecords,
	}
}

// totalRecordsColumn adds count(*) OVER() so one round-trip yields both the
// page and the total.
func totalRecordsColumn() exp.AliasedExpression {
	return goqu.L("count(*) OVER()").As("total_records")
}

// where applies conds, leaving ds untouched when there are none.
func where(ds *goqu.SelectDataset, conds []exp.Expression) *goqu.SelectDataset {
	if len(conds) == 0 {
		return ds
	}
	return ds.Where(conds...)
}
