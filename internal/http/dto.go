package http

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"saasreports/internal/core"
)

type revenuePointDTO struct {
	Month  string      `json:"month"`
	Amount json.Number `json:"amount"`
}

type dashboardDTO struct {
	TotalCustomers      int               `json:"totalCustomers"`
	ActiveProjects      int               `json:"activeProjects"`
	PendingTasks        int               `json:"pendingTasks"`
	OutstandingInvoices json.Number       `json:"outstandingInvoices"`
	MonthRevenue        json.Number       `json:"monthRevenue"`
	RevenueByMonth      []revenuePointDTO `json:"revenueByMonth"`
}

type revenueBucketDTO struct {
	Period string      `json:"period"`
	Amount json.Number `json:"amount"`
}

type revenueReportDTO struct {
	From         time.Time          `json:"from"`
	To           time.Time          `json:"to"`
	TotalRevenue json.Number        `json:"totalRevenue"`
	Buckets      []revenueBucketDTO `json:"buckets"`
}

type invoiceSummaryDTO struct {
	TotalRevenue    json.Number `json:"totalRevenue"`
	TotalInvoices   int         `json:"totalInvoices"`
	PaidInvoices    int         `json:"paidInvoices"`
	PendingInvoices int         `json:"pendingInvoices"`
	OverdueInvoices int         `json:"overdueInvoices"`
}

type invoiceRowDTO struct {
	InvoiceNo    string      `json:"invoiceNo"`
	CustomerName string      `json:"customerName"`
	ProjectName  string      `json:"projectName"`
	Amount       json.Number `json:"amount"`
	Status       int         `json:"status"`
	StatusName   string      `json:"statusName"`
	Date         string      `json:"date"`
}

type invoiceReportDTO struct {
	Summary invoiceSummaryDTO `json:"summary"`
	Items   []invoiceRowDTO   `json:"items"`
}

// money renders an amount as a JSON number with two decimals.
func money(d decimal.Decimal) json.Number {
	return json.Number(d.StringFixed(2))
}

func toDashboardDTO(s core.DashboardSnapshot) dashboardDTO {
	points := make([]revenuePointDTO, 0, len(s.RevenueByMonth))
	for _, b := range s.RevenueByMonth {
		points = append(points, revenuePointDTO{Month: b.Period, Amount: money(b.Amount)})
	}
	return dashboardDTO{
		TotalCustomers:      s.TotalCustomers,
		ActiveProjects:      s.ActiveProjects,
		PendingTasks:        s.PendingTasks,
		OutstandingInvoices: money(s.OutstandingInvoices),
		MonthRevenue:        money(s.MonthRevenue),
		RevenueByMonth:      points,
	}
}

func toRevenueReportDTO(r core.RevenueReport) revenueReportDTO {
	buckets := make([]revenueBucketDTO, 0, len(r.Buckets))
	for _, b := range r.Buckets {
		buckets = append(buckets, revenueBucketDTO{Period: b.Period, Amount: money(b.Amount)})
	}
	return revenueReportDTO{
		From:         r.From,
		To:           r.To,
		TotalRevenue: money(r.TotalRevenue),
		Buckets:      buckets,
	}
}

func toInvoiceReportDTO(r core.InvoiceReport) invoiceReportDTO {
	items := make([]invoiceRowDTO, 0, len(r.Items))
	for _, it := range r.Items {
		items = append(items, invoiceRowDTO{
			InvoiceNo:    it.InvoiceNo,
			CustomerName: it.CustomerName,
			ProjectName:  it.ProjectName,
			Amount:       money(it.Amount),
			Status:       int(it.Status),
			StatusName:   it.Status.String(),
			Date:         it.Date.Format(core.DateLayout),
		})
	}
	return invoiceReportDTO{
		Summary: invoiceSummaryDTO{
			TotalRevenue:    money(r.Summary.TotalRevenue),
			TotalInvoices:   r.Summary.TotalInvoices,
			PaidInvoices:    r.Summary.PaidInvoices,
			PendingInvoices: r.Summary.PendingInvoices,
			OverdueInvoices: r.Summary.OverdueInvoices,
		},
		Items: items,
	}
}
