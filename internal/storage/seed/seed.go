// Package seed loads a deterministic demo dataset through storage.EntityWriter.
package seed

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"saasreports/internal/core"
	"saasreports/internal/storage"
	"saasreports/internal/tenant"
)

// namespace derives stable ids so repeated seeding upserts instead of duplicating.
var namespace = uuid.MustParse("6f1c2a4e-3b8d-4d7a-9e51-0c2f8a7b9d10")

// Options controls the dataset size.
type Options struct {
	Customers int
	Projects  int
	Tasks     int
	Invoices  int
	// Months spreads invoice issue dates over this many trailing months.
	Months int
}

func DefaultOptions() Options {
	return Options{Customers: 6, Projects: 8, Tasks: 24, Invoices: 60, Months: 14}
}

// Result reports what was written.
type Result struct {
	Customers int
	Projects  int
	Tasks     int
	Invoices  int
	Payments  int
}

var customerNames = []string{
	"Al Noor Trading", "Riyadh Logistics", "Desert Bloom Studio", "Gulf Analytics",
	"Red Sea Ventures", "Najd Builders", "Oasis Retail", "Horizon Clinics",
}

var projectNames = []string{
	"Website Redesign", "ERP Rollout", "Mobile App", "Data Warehouse",
	"Brand Refresh", "Cloud Migration", "Support Retainer", "Security Audit",
}

// Demo writes the dataset for scope. Ids and amounts depend only on scope, opts and now.
func Demo(ctx context.Context, w storage.EntityWriter, scope tenant.Scope, now time.Time, opts Options) (Result, error) {
	var res Result
	rng := rand.New(rand.NewPCG(42, uint64(len(scope.Key()))))
	id := func(kind string, i int) uuid.UUID {
		return uuid.NewSHA1(namespace, []byte(fmt.Sprintf("%s/%s/%d", scope.Key(), kind, i)))
	}

	customers := make([]uuid.UUID, 0, opts.Customers)
	for i := 0; i < opts.Customers; i++ {
		c := core.Customer{
			ID:       id("customer", i),
			TenantID: scope.ID,
			Name:     customerNames[i%len(customerNames)],
			Email:    fmt.Sprintf("billing%d@example.com", i+1),
			IsActive: i%5 != 4,
		}
		if err := w.PutCustomer(ctx, c); err != nil {
			return res, fmt.Errorf("seed customer: %w", err)
		}
		customers = append(customers, c.ID)
		res.Customers++
	}
	if len(customers) == 0 {
		return res, nil
	}

	type projectRef struct {
		id       uuid.UUID
		customer uuid.UUID
	}
	projects := make([]projectRef, 0, opts.Projects)
	for i := 0; i < opts.Projects; i++ {
		p := core.Project{
			ID:         id("project", i),
			TenantID:   scope.ID,
			CustomerID: customers[i%len(customers)],
			Name:       projectNames[i%len(projectNames)],
			Status:     core.ProjectStatus(i%5 + 1),
			Budget:     decimal.NewFromInt(int64(10000 + rng.IntN(90000))),
			StartDate:  core.StartOfMonth(now).AddDate(0, -rng.IntN(opts.Months+1), 0),
		}
		if err := w.PutProject(ctx, p); err != nil {
			return res, fmt.Errorf("seed project: %w", err)
		}
		projects = append(projects, projectRef{id: p.ID, customer: p.CustomerID})
		res.Projects++
	}

	for i := 0; i < opts.Tasks && len(projects) > 0; i++ {
		t := core.WorkTask{
			ID:        id("task", i),
			TenantID:  scope.ID,
			ProjectID: projects[i%len(projects)].id,
			Title:     fmt.Sprintf("Task %03d", i+1),
			Status:    core.WorkTaskStatus(i%5 + 1),
		}
		if err := w.PutTask(ctx, t); err != nil {
			return res, fmt.Errorf("seed task: %w", err)
		}
		res.Tasks++
	}

	months := max(opts.Months, 1)
	for i := 0; i < opts.Invoices; i++ {
		issue := core.StartOfMonth(now).AddDate(0, -rng.IntN(months), rng.IntN(27)).Add(time.Duration(rng.IntN(10)) * time.Hour)
		if issue.After(now) {
			issue = core.StartOfDay(now)
		}
		subTotal := decimal.NewFromInt(int64(500 + rng.IntN(20000))).Add(decimal.New(int64(rng.IntN(100)), -2))
		tax := core.RoundMoney(subTotal.Mul(decimal.RequireFromString("0.15")))
		inv := core.Invoice{
			ID:            id("invoice", i),
			TenantID:      scope.ID,
			CustomerID:    customers[i%len(customers)],
			InvoiceNumber: fmt.Sprintf("INV-%s-%04d", issue.Format("200601"), i+1),
			IssueDate:     issue,
			DueDate:       issue.AddDate(0, 0, 30),
			SubTotal:      subTotal,
			TaxAmount:     tax,
			TotalAmount:   subTotal.Add(tax),
			Status:        core.InvoiceStatus(rng.IntN(6) + 1),
		}
		if len(projects) > 0 && i%4 != 3 {
			p := projects[i%len(projects)]
			inv.ProjectID = &p.id
			inv.CustomerID = p.customer
		}
		if err := w.PutInvoice(ctx, inv); err != nil {
			return res, fmt.Errorf("seed invoice: %w", err)
		}
		res.Invoices++

		var paid decimal.Decimal
		switch inv.Status {
		case core.InvoicePaid:
			paid = inv.TotalAmount
		case core.InvoicePartiallyPaid:
			paid = core.RoundMoney(inv.TotalAmount.Div(decimal.NewFromInt(2)))
		default:
			continue
		}
		paidAt := issue.AddDate(0, 0, 1+rng.IntN(20))
		if paidAt.After(now) {
			paidAt = now
		}
		pay := core.Payment{
			ID:              id("payment", i),
			TenantID:        scope.ID,
			InvoiceID:       inv.ID,
			Amount:          paid,
			PaidAt:          paidAt,
			Method:          core.PaymentMethod(rng.IntN(4) + 1),
			ReferenceNumber: fmt.Sprintf("PAY-%05d", i+1),
		}
		if err := w.PutPayment(ctx, pay); err != nil {
			return res, fmt.Errorf("seed payment: %w", err)
		}
		res.Payments++
	}

	return res, nil
}
