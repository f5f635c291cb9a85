package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"saasreports/internal/core"
	"saasreports/internal/log"
	"saasreports/internal/tenant"

	_ "modernc.org/sqlite"
)

// maxInParams bounds the id list of a single IN (...) clause.
const maxInParams = 500

type SQLiteRepository struct {
	db     *sql.DB
	logger *log.Logger
}

var _ Repository = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, logger: log.Discard().WithComponent(log.ComponentStorage)}, nil
}

// WithLogger routes query logging through logger under the storage component.
func (r *SQLiteRepository) WithLogger(logger *log.Logger) *SQLiteRepository {
	if logger != nil {
		r.logger = logger.WithComponent(log.ComponentStorage)
	}
	return r
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) CountCustomers(ctx context.Context, scope tenant.Scope) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM customers WHERE tenant_id = ?`, scope.ID.String()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count customers: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) CountProjectsByStatus(ctx context.Context, scope tenant.Scope, status core.ProjectStatus) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM projects WHERE tenant_id = ? AND status = ?`, scope.ID.String(), int(status)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count projects with status %s: %w", status, err)
	}
	return n, nil
}

func (r *SQLiteRepository) CountOpenTasks(ctx context.Context, scope tenant.Scope) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM work_tasks WHERE tenant_id = ? AND status <> ?`, scope.ID.String(), int(core.TaskDone)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count open tasks: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) SumOutstandingInvoices(ctx context.Context, scope tenant.Scope) (decimal.Decimal, error) {
	var cents int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(total_amount_cents), 0) FROM invoices WHERE tenant_id = ? AND status <> ?`,
		scope.ID.String(), int(core.InvoicePaid)).Scan(&cents)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum outstanding invoices: %w", err)
	}
	return fromCents(cents), nil
}

func (r *SQLiteRepository) SumPaymentsSince(ctx context.Context, scope tenant.Scope, since time.Time) (decimal.Decimal, error) {
	var cents int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0) FROM payments WHERE tenant_id = ? AND paid_at >= ?`,
		scope.ID.String(), toMillis(since)).Scan(&cents)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum payments since %s: %w", since.Format(time.RFC3339), err)
	}
	return fromCents(cents), nil
}

func (r *SQLiteRepository) ListPayments(ctx context.Context, scope tenant.Scope, from, to *time.Time) ([]core.Payment, error) {
	where := []string{"tenant_id = ?"}
	args := []any{scope.ID.String()}
	if from != nil {
		where = append(where, "paid_at >= ?")
		args = append(args, toMillis(*from))
	}
	if to != nil {
		where = append(where, "paid_at <= ?")
		args = append(args, toMillis(*to))
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, tenant_id, invoice_id, amount_cents, paid_at, method, reference_number
		 FROM payments WHERE `+strings.Join(where, " AND ")+` ORDER BY paid_at, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var payments []core.Payment
	for rows.Next() {
		var (
			p                       core.Payment
			id, tenantID, invoiceID string
			cents, paidAt           int64
			method                  int
		)
		if err := rows.Scan(&id, &tenantID, &invoiceID, &cents, &paidAt, &method, &p.ReferenceNumber); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		if p.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parse payment id %q: %w", id, err)
		}
		if p.TenantID, err = uuid.Parse(tenantID); err != nil {
			return nil, fmt.Errorf("parse payment tenant %q: %w", tenantID, err)
		}
		if p.InvoiceID, err = uuid.Parse(invoiceID); err != nil {
			return nil, fmt.Errorf("parse payment invoice %q: %w", invoiceID, err)
		}
		p.Amount = fromCents(cents)
		p.PaidAt = fromMillis(paidAt)
		p.Method = core.PaymentMethod(method)
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payments: %w", err)
	}
	return payments, nil
}

func (r *SQLiteRepository) QueryInvoices(ctx context.Context, scope tenant.Scope, q core.InvoiceQuery) ([]core.InvoiceRecord, error) {
	where := []string{"tenant_id = ?"}
	args := []any{scope.ID.String()}
	if q.IssuedFrom != nil {
		where = append(where, "issue_date >= ?")
		args = append(args, toMillis(*q.IssuedFrom))
	}
	if q.IssuedTo != nil {
		where = append(where, "issue_date <= ?")
		args = append(args, toMillis(*q.IssuedTo))
	}
	if q.CustomerID != nil {
		where = append(where, "customer_id = ?")
		args = append(args, q.CustomerID.String())
	}
	if q.Status != nil {
		where = append(where, "status = ?")
		args = append(args, int(*q.Status))
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, invoice_number, customer_id, project_id, total_amount_cents, status, issue_date
		 FROM invoices WHERE `+strings.Join(where, " AND ")+` ORDER BY issue_date DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("query invoices: %w", err)
	}
	defer rows.Close()

	var records []core.InvoiceRecord
	for rows.Next() {
		var (
			rec              core.InvoiceRecord
			id, customerID   string
			projectID        sql.NullString
			cents, issueDate int64
			status           int
		)
		if err := rows.Scan(&id, &rec.InvoiceNo, &customerID, &projectID, &cents, &status, &issueDate); err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		if rec.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parse invoice id %q: %w", id, err)
		}
		if rec.CustomerID, err = uuid.Parse(customerID); err != nil {
			return nil, fmt.Errorf("parse invoice customer %q: %w", customerID, err)
		}
		if projectID.Valid && projectID.String != "" {
			pid, err := uuid.Parse(projectID.String)
			if err != nil {
				return nil, fmt.Errorf("parse invoice project %q: %w", projectID.String, err)
			}
			rec.ProjectID = &pid
		}
		rec.Amount = fromCents(cents)
		rec.Status = core.InvoiceStatus(status)
		rec.IssueDate = fromMillis(issueDate)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate invoices: %w", err)
	}

	r.logger.DebugContext(ctx, "Invoice query executed", log.FieldTenant, scope.Key(), log.FieldRows, len(records))
	return records, nil
}

func (r *SQLiteRepository) SumPaymentsForInvoices(ctx context.Context, scope tenant.Scope, invoiceIDs []uuid.UUID) (decimal.Decimal, error) {
	var total int64
	for _, chunk := range chunkIDs(invoiceIDs, maxInParams) {
		args := append([]any{scope.ID.String()}, idArgs(chunk)...)
		var cents int64
		err := r.db.QueryRowContext(ctx,
			`SELECT COALESCE(SUM(amount_cents), 0) FROM payments
			 WHERE tenant_id = ? AND invoice_id IN (`+placeholders(len(chunk))+`)`, args...).Scan(&cents)
		if err != nil {
			return decimal.Zero, fmt.Errorf("sum payments for invoices: %w", err)
		}
		total += cents
	}
	return fromCents(total), nil
}

func (r *SQLiteRepository) CustomerNames(ctx context.Context, scope tenant.Scope, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	names, err := r.namesByID(ctx, "customers", scope, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve customer names: %w", err)
	}
	return names, nil
}

func (r *SQLiteRepository) ProjectNames(ctx context.Context, scope tenant.Scope, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	names, err := r.namesByID(ctx, "projects", scope, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve project names: %w", err)
	}
	return names, nil
}

// namesByID reads (id, name) pairs from table. table is always a constant from this file.
func (r *SQLiteRepository) namesByID(ctx context.Context, table string, scope tenant.Scope, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	names := make(map[uuid.UUID]string, len(ids))
	for _, chunk := range chunkIDs(ids, maxInParams) {
		args := append([]any{scope.ID.String()}, idArgs(chunk)...)
		rows, err := r.db.QueryContext(ctx,
			`SELECT id, name FROM `+table+` WHERE tenant_id = ? AND id IN (`+placeholders(len(chunk))+`)`, args...)
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			var id, name string
			if err := rows.Scan(&id, &name); err != nil {
				rows.Close()
				return nil, err
			}
			parsed, err := uuid.Parse(id)
			if err != nil {
				rows.Close()
				return nil, fmt.Errorf("parse id %q: %w", id, err)
			}
			names[parsed] = name
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()
	}
	return names, nil
}

func (r *SQLiteRepository) PutCustomer(ctx context.Context, c core.Customer) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO customers (id, tenant_id, name, email, phone, address, is_active)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID.String(), c.TenantID.String(), c.Name, c.Email, c.Phone, c.Address, c.IsActive)
	if err != nil {
		return fmt.Errorf("put customer %s: %w", c.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) PutProject(ctx context.Context, p core.Project) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO projects (id, tenant_id, customer_id, name, status, budget_cents, start_date, end_date)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID.String(), p.TenantID.String(), p.CustomerID.String(), p.Name, int(p.Status),
		toCents(p.Budget), toMillis(p.StartDate), nullMillis(p.EndDate))
	if err != nil {
		return fmt.Errorf("put project %s: %w", p.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) PutTask(ctx context.Context, t core.WorkTask) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO work_tasks (id, tenant_id, project_id, title, status, due_date)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID.String(), t.TenantID.String(), t.ProjectID.String(), t.Title, int(t.Status), nullMillis(t.DueDate))
	if err != nil {
		return fmt.Errorf("put task %s: %w", t.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) PutInvoice(ctx context.Context, inv core.Invoice) error {
	var projectID any
	if inv.ProjectID != nil {
		projectID = inv.ProjectID.String()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO invoices (id, tenant_id, customer_id, project_id, invoice_number, issue_date, due_date,
		     sub_total_cents, tax_amount_cents, total_amount_cents, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID.String(), inv.TenantID.String(), inv.CustomerID.String(), projectID, inv.InvoiceNumber,
		toMillis(inv.IssueDate), toMillis(inv.DueDate),
		toCents(inv.SubTotal), toCents(inv.TaxAmount), toCents(inv.TotalAmount), int(inv.Status))
	if err != nil {
		return fmt.Errorf("put invoice %s: %w", inv.InvoiceNumber, err)
	}
	return nil
}

func (r *SQLiteRepository) PutPayment(ctx context.Context, p core.Payment) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO payments (id, tenant_id, invoice_id, amount_cents, paid_at, method, reference_number)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID.String(), p.TenantID.String(), p.InvoiceID.String(), toCents(p.Amount), toMillis(p.PaidAt),
		int(p.Method), p.ReferenceNumber)
	if err != nil {
		return fmt.Errorf("put payment %s: %w", p.ID, err)
	}
	return nil
}

func toCents(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}

func fromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func nullMillis(t *time.Time) any {
	if t == nil {
		return nil
	}
	return toMillis(*t)
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func idArgs(ids []uuid.UUID) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id.String()
	}
	return args
}

func chunkIDs(ids []uuid.UUID, size int) [][]uuid.UUID {
	var chunks [][]uuid.UUID
	for len(ids) > 0 {
		n := min(size, len(ids))
		chunks = append(chunks, ids[:n])
		ids = ids[n:]
	}
	return chunks
}
