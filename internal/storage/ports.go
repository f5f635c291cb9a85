package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"saasreports/internal/core"
	"saasreports/internal/tenant"
)

// Read-side ports consumed by the reporting services. Every call is scoped
// to a single tenant; rows of other tenants are never visible.
type (
	// StatsReader backs the dashboard snapshot.
	StatsReader interface {
		CountCustomers(ctx context.Context, scope tenant.Scope) (int, error)
		CountProjectsByStatus(ctx context.Context, scope tenant.Scope, status core.ProjectStatus) (int, error)
		// CountOpenTasks counts tasks whose status is not Done.
		CountOpenTasks(ctx context.Context, scope tenant.Scope) (int, error)
		// SumOutstandingInvoices sums totalAmount of invoices not in Paid status.
		SumOutstandingInvoices(ctx context.Context, scope tenant.Scope) (decimal.Decimal, error)
		SumPaymentsSince(ctx context.Context, scope tenant.Scope, since time.Time) (decimal.Decimal, error)
	}

	// PaymentLister returns payments with from <= paidAt <= to, ordered by paidAt.
	// Nil bounds are open.
	PaymentLister interface {
		ListPayments(ctx context.Context, scope tenant.Scope, from, to *time.Time) ([]core.Payment, error)
	}

	// InvoiceReader backs the invoice report.
	InvoiceReader interface {
		// QueryInvoices returns matching invoices ordered by issue date, newest first.
		QueryInvoices(ctx context.Context, scope tenant.Scope, q core.InvoiceQuery) ([]core.InvoiceRecord, error)
		SumPaymentsForInvoices(ctx context.Context, scope tenant.Scope, invoiceIDs []uuid.UUID) (decimal.Decimal, error)
	}

	// NameResolver maps ids to display names. Unknown ids are absent from the result.
	NameResolver interface {
		CustomerNames(ctx context.Context, scope tenant.Scope, ids []uuid.UUID) (map[uuid.UUID]string, error)
		ProjectNames(ctx context.Context, scope tenant.Scope, ids []uuid.UUID) (map[uuid.UUID]string, error)
	}

	// EntityWriter loads business entities. Only seeding and tests use it.
	EntityWriter interface {
		PutCustomer(ctx context.Context, c core.Customer) error
		PutProject(ctx context.Context, p core.Project) error
		PutTask(ctx context.Context, t core.WorkTask) error
		PutInvoice(ctx context.Context, inv core.Invoice) error
		PutPayment(ctx context.Context, p core.Payment) error
	}

	// Repository is everything a backend provides.
	Repository interface {
		StatsReader
		PaymentLister
		InvoiceReader
		NameResolver
		EntityWriter
		Close() error
	}
)
