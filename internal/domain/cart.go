package domain

import "time"

// CartItem is one line of a shopping cart, backed by a stock hold.
type CartItem struct {
	ProductID        int       `json:"productId"`
	Quantity         int       `json:"quantity"`
	ReservationToken string    `json:"reservationToken"`
	HeldAt           time.Time `json:"heldAt"`
}

type Cart struct {
	UserID string
	Items  []CartItem
}
