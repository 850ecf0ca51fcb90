package receipt

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/phpdave11/gofpdf"

	"luntera-pos-services/internal/cart"
	"luntera-pos-services/internal/money"
	"luntera-pos-services/internal/payment"
)

// Data carries everything a printed receipt needs. Item lines show the
// product id; the cart does not carry display names.
type Data struct {
	VenueName  string
	TerminalID string
	Session    payment.Session
	Cart       *cart.Cart
}

func Filename(data Data) string {
	return fmt.Sprintf("receipt_%s_%s.pdf", sanitizeFilename(data.TerminalID), sanitizeFilename(data.Session.SessionID))
}

// Render produces the PDF for a settled session. Works for cancelled
// sessions too, which print a voided receipt for the paper trail.
func Render(data Data) (*bytes.Buffer, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(12, 12, 12)
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 8, data.VenueName, "", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 5, fmt.Sprintf("Terminal %s", data.TerminalID), "", 1, "C", false, 0, "")

	pdf.Ln(2)
	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(0, 6, fmt.Sprintf("Session %s", data.Session.SessionID), "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	if data.Cart != nil {
		pdf.CellFormat(0, 5, fmt.Sprintf("Table %d", data.Cart.TableNumber), "", 1, "C", false, 0, "")
		if data.Cart.WaiterName != "" {
			pdf.CellFormat(0, 5, fmt.Sprintf("Served by %s", data.Cart.WaiterName), "", 1, "C", false, 0, "")
		}
	}
	pdf.CellFormat(0, 5, data.Session.UpdatedAt.Format("2006-01-02 15:04"), "", 1, "C", false, 0, "")

	if data.Cart != nil {
		pdf.Ln(3)
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(0, 6, "Items", "B", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 9)
		for _, item := range data.Cart.Items {
			pdf.CellFormat(0, 5, fmt.Sprintf("%dx %s", item.Quantity, item.ProductID), "", 1, "L", false, 0, "")
			pdf.CellFormat(0, 5, fmt.Sprintf("Subtotal: %s", formatAmount(item.TotalAmount)), "", 1, "L", false, 0, "")
			if item.Notes != "" {
				pdf.MultiCell(0, 4, fmt.Sprintf("Notes: %s", item.Notes), "", "L", false)
			}
			pdf.Ln(1)
		}

		pdf.Ln(2)
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(0, 6, "Totals", "B", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 9)
		pdf.CellFormat(0, 5, fmt.Sprintf("Subtotal: %s", formatAmount(data.Cart.Subtotal)), "", 1, "L", false, 0, "")
		if data.Cart.TaxAmount > 0 {
			pdf.CellFormat(0, 5, fmt.Sprintf("Tax: %s", formatAmount(data.Cart.TaxAmount)), "", 1, "L", false, 0, "")
		}
		if data.Cart.DiscountAmount > 0 {
			label := "Discount"
			if data.Cart.AppliedCoupon != "" {
				label = fmt.Sprintf("Discount (%s)", data.Cart.AppliedCoupon)
			}
			pdf.CellFormat(0, 5, fmt.Sprintf("%s: -%s", label, formatAmount(data.Cart.DiscountAmount)), "", 1, "L", false, 0, "")
		}
	}

	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(0, 6, fmt.Sprintf("Total: %s", formatCents(data.Session.TotalAmount)), "", 1, "L", false, 0, "")

	pdf.Ln(2)
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(0, 6, "Payment", "B", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	for _, alloc := range data.Session.Allocations {
		pdf.CellFormat(0, 5, fmt.Sprintf("%s: %s", alloc.Method, formatCents(alloc.Amount)), "", 1, "L", false, 0, "")
		if alloc.Method == payment.MethodCash && alloc.TenderedAmount > 0 {
			pdf.CellFormat(0, 5, fmt.Sprintf("  Tendered: %s", formatCents(alloc.TenderedAmount)), "", 1, "L", false, 0, "")
			pdf.CellFormat(0, 5, fmt.Sprintf("  Change: %s", formatCents(alloc.ChangeAmount)), "", 1, "L", false, 0, "")
		}
	}

	if data.Session.State == payment.StateCancelled {
		pdf.Ln(2)
		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(0, 6, "*** VOIDED ***", "", 1, "C", false, 0, "")
		if data.Session.Cancellation != nil && data.Session.Cancellation.CancellationReason != "" {
			pdf.SetFont("Arial", "", 9)
			pdf.CellFormat(0, 5, data.Session.Cancellation.CancellationReason, "", 1, "C", false, 0, "")
		}
	}

	if data.Session.FiscalSignature != "" {
		pdf.Ln(2)
		pdf.SetFont("Arial", "", 8)
		pdf.MultiCell(0, 4, fmt.Sprintf("Fiscal signature: %s", data.Session.FiscalSignature), "", "C", false)
	}
	if data.Session.InvoiceID != "" {
		pdf.SetFont("Arial", "", 8)
		pdf.CellFormat(0, 4, fmt.Sprintf("Invoice %s", data.Session.InvoiceID), "", 1, "C", false, 0, "")
	}

	pdf.Ln(2)
	pdf.SetFont("Arial", "", 8)
	pdf.CellFormat(0, 4, fmt.Sprintf("Printed %s", time.Now().Format("2006-01-02 15:04")), "", 1, "C", false, 0, "")

	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

func formatCents(amount money.Cents) string {
	return fmt.Sprintf("%.2f", amount.Decimal())
}

func formatAmount(amount float64) string {
	return fmt.Sprintf("%.2f", amount)
}

func sanitizeFilename(value string) string {
	re := regexp.MustCompile(`[^a-zA-Z0-9_-]+`)
	clean := re.ReplaceAllString(value, "_")
	return strings.Trim(clean, "_")
}
