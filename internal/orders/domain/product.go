package domain

import "github.com/shopspring/decimal"

// Product is the catalog view the order workflow needs: identity, stock and
// unit price.
type Product struct {
	ID       string          `json:"product_id"`
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// CanReserve reports whether amount units are available.
func (p Product) CanReserve(amount int) bool {
	return amount > 0 && p.Quantity >= amount
}

// Customer is the identity record used to address notifications.
type Customer struct {
	ID    string `json:"customer_id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}
