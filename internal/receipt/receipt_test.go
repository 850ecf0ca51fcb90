package receipt

import (
	"bytes"
	"testing"
	"time"

	"luntera-pos-services/internal/cart"
	"luntera-pos-services/internal/payment"
)

func TestRenderProducesPDF(t *testing.T) {
	data := Data{
		VenueName:  "Luntera Bistro",
		TerminalID: "till-1",
		Session: payment.Session{
			SessionID:   "sess-1",
			TotalAmount: 4730,
			State:       payment.StateConfirmed,
			Allocations: []payment.Allocation{
				{Method: payment.MethodCash, Amount: 4730, TenderedAmount: 5000, ChangeAmount: 270},
			},
			InvoiceID:       "inv-1",
			FiscalSignature: "sig-1",
			UpdatedAt:       time.Now(),
		},
		Cart: &cart.Cart{
			CartID:      "cart-1",
			TableNumber: 4,
			Items: []cart.Item{
				{ID: "line-1", ProductID: "espresso-doppio", Quantity: 2, TotalAmount: 47.30},
			},
			Subtotal: 47.30,
		},
	}

	out, err := Render(data)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !bytes.HasPrefix(out.Bytes(), []byte("%PDF")) {
		t.Fatalf("output is not a PDF document")
	}
}

func TestFilenameSanitizesIdentifiers(t *testing.T) {
	data := Data{
		TerminalID: "till/1",
		Session:    payment.Session{SessionID: "sess 1"},
	}
	if got := Filename(data); got != "receipt_till_1_sess_1.pdf" {
		t.Fatalf("filename = %q", got)
	}
}
