package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	InvoiceDraft InvoiceStatus = iota + 1
	InvoiceSent
	InvoicePartiallyPaid
	InvoicePaid
	InvoiceOverdue
	InvoiceCancelled
)

const (
	ProjectPlanned ProjectStatus = iota + 1
	ProjectActive
	ProjectOnHold
	ProjectCompleted
	ProjectCancelled
)

const (
	TaskBacklog WorkTaskStatus = iota + 1
	TaskTodo
	TaskInProgress
	TaskReview
	TaskDone
)

const (
	PaymentBankTransfer PaymentMethod = iota + 1
	PaymentCreditCard
	PaymentCash
	PaymentOnlineGateway
)

type (
	InvoiceStatus  int
	ProjectStatus  int
	WorkTaskStatus int
	PaymentMethod  int

	// Customer is a billable party. TenantID is uuid.Nil for host-owned data.
	Customer struct {
		ID       uuid.UUID
		TenantID uuid.UUID
		Name     string
		Email    string
		Phone    string
		Address  string
		IsActive bool
	}

	Project struct {
		ID         uuid.UUID
		TenantID   uuid.UUID
		CustomerID uuid.UUID
		Name       string
		Status     ProjectStatus
		Budget     decimal.Decimal
		StartDate  time.Time
		EndDate    *time.Time
	}

	WorkTask struct {
		ID        uuid.UUID
		TenantID  uuid.UUID
		ProjectID uuid.UUID
		Title     string
		Status    WorkTaskStatus
		DueDate   *time.Time
	}

	Invoice struct {
		ID            uuid.UUID
		TenantID      uuid.UUID
		CustomerID    uuid.UUID
		ProjectID     *uuid.UUID
		InvoiceNumber string
		IssueDate     time.Time
		DueDate       time.Time
		SubTotal      decimal.Decimal
		TaxAmount     decimal.Decimal
		TotalAmount   decimal.Decimal
		Status        InvoiceStatus
	}

	Payment struct {
		ID              uuid.UUID
		TenantID        uuid.UUID
		InvoiceID       uuid.UUID
		Amount          decimal.Decimal
		PaidAt          time.Time
		Method          PaymentMethod
		ReferenceNumber string
	}
)

var invoiceStatusNames = map[InvoiceStatus]string{
	InvoiceDraft:         "Draft",
	InvoiceSent:          "Sent",
	InvoicePartiallyPaid: "PartiallyPaid",
	InvoicePaid:          "Paid",
	InvoiceOverdue:       "Overdue",
	InvoiceCancelled:     "Cancelled",
}

// String returns the display name used in exports.
func (s InvoiceStatus) String() string {
	if name, ok := invoiceStatusNames[s]; ok {
		return name
	}
	return strconv.Itoa(int(s))
}

func (s InvoiceStatus) IsValid() bool {
	_, ok := invoiceStatusNames[s]
	return ok
}

// IsPending reports whether the invoice still awaits settlement and is not yet overdue.
func (s InvoiceStatus) IsPending() bool {
	return s == InvoiceDraft || s == InvoiceSent || s == InvoicePartiallyPaid
}

// ParseInvoiceStatus accepts either the numeric value or the name (case-insensitive).
func ParseInvoiceStatus(s string) (InvoiceStatus, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		st := InvoiceStatus(n)
		if !st.IsValid() {
			return 0, fmt.Errorf("%w: %d", ErrInvalidStatus, n)
		}
		return st, nil
	}
	for st, name := range invoiceStatusNames {
		if strings.EqualFold(name, s) {
			return st, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

func (s ProjectStatus) String() string {
	switch s {
	case ProjectPlanned:
		return "Planned"
	case ProjectActive:
		return "Active"
	case ProjectOnHold:
		return "OnHold"
	case ProjectCompleted:
		return "Completed"
	case ProjectCancelled:
		return "Cancelled"
	}
	return strconv.Itoa(int(s))
}

func (s WorkTaskStatus) String() string {
	switch s {
	case TaskBacklog:
		return "Backlog"
	case TaskTodo:
		return "Todo"
	case TaskInProgress:
		return "InProgress"
	case TaskReview:
		return "Review"
	case TaskDone:
		return "Done"
	}
	return strconv.Itoa(int(s))
}

func (m PaymentMethod) String() string {
	switch m {
	case PaymentBankTransfer:
		return "BankTransfer"
	case PaymentCreditCard:
		return "CreditCard"
	case PaymentCash:
		return "Cash"
	case PaymentOnlineGateway:
		return "OnlineGateway"
	}
	return strconv.Itoa(int(m))
}

// StartOfMonth returns midnight of the first day of t's month, in t's location.
func StartOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// EndOfDay returns the last representable instant of t's calendar day.
func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}
