package cart

// CartStatus values mirror the cart service's lifecycle field.
type CartStatus string

const (
	StatusActive    CartStatus = "ACTIVE"
	StatusCompleted CartStatus = "COMPLETED"
	StatusCancelled CartStatus = "CANCELLED"
	StatusExpired   CartStatus = "EXPIRED"
)

type Item struct {
	ID             string  `json:"id"`
	ProductID      string  `json:"productId"`
	Quantity       int64   `json:"quantity"`
	UnitPrice      float64 `json:"unitPrice"`
	TaxRate        float64 `json:"taxRate"`
	DiscountAmount float64 `json:"discountAmount"`
	TaxAmount      float64 `json:"taxAmount"`
	TotalAmount    float64 `json:"totalAmount"`
	Notes          string  `json:"notes,omitempty"`
}

type Cart struct {
	CartID         string     `json:"cartId"`
	TableNumber    int64      `json:"tableNumber"`
	WaiterName     string     `json:"waiterName,omitempty"`
	Items          []Item     `json:"items"`
	Subtotal       float64    `json:"subtotal"`
	TaxAmount      float64    `json:"taxAmount"`
	DiscountAmount float64    `json:"discountAmount"`
	TotalAmount    float64    `json:"totalAmount"`
	AppliedCoupon  string     `json:"appliedCoupon,omitempty"`
	Status         CartStatus `json:"status"`
}

// Clone returns a deep copy so callers can hold a snapshot without racing
// later cache replacements.
func (c *Cart) Clone() *Cart {
	if c == nil {
		return nil
	}
	out := *c
	out.Items = make([]Item, len(c.Items))
	copy(out.Items, c.Items)
	return &out
}

// Slot is the externally visible view of one table slot.
type Slot struct {
	SlotID int64  `json:"slotId"`
	IsOpen bool   `json:"isOpen"`
	CartID string `json:"cartRef,omitempty"`
}
