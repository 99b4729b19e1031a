package dto

import "time"

type SetCartItemRequest struct {
	Quantity int `json:"quantity"`
}

type CheckoutRequest struct {
	ShippingAddress ShippingAddressDTO `json:"shippingAddress"`
	PaymentMethod   string             `json:"paymentMethod" validate:"required,max=50"`
}

type CartLineResponse struct {
	ProductID        int       `json:"productId"`
	Name             string    `json:"name,omitempty"`
	Quantity         int       `json:"quantity"`
	UnitPrice        string    `json:"unitPrice,omitempty"`
	Available        bool      `json:"available"`
	ReservationToken string    `json:"reservationToken"`
	HeldAt           time.Time `json:"heldAt"`
}

type CartResponse struct {
	UserID     string             `json:"userId"`
	Items      []CartLineResponse `json:"items"`
	ItemsPrice string             `json:"itemsPrice"`
	ExpiresAt  *time.Time         `json:"expiresAt,omitempty"`
}
