package auth

import "context"

type Role string

const (
	RoleAdmin       Role = "admin"
	RoleDistributor Role = "distributor"
	RoleRetailer    Role = "retailer"

	// RoleGateway is the payment provider's callback account.
	RoleGateway Role = "payment-gateway"
)

// Capability names a single permission checked at the HTTP boundary.
type Capability string

const (
	CapCatalogRead  Capability = "catalog:read"
	CapCatalogWrite Capability = "catalog:write"
	CapStockWrite   Capability = "stock:write"
	CapOrderCreate  Capability = "order:create"
	CapOrderRead    Capability = "order:read"
	CapOrderManage  Capability = "order:manage"
	CapCartWrite    Capability = "cart:write"
	CapPaymentWrite Capability = "payment:write"
	CapPaymentRead  Capability = "payment:read"

	// CapPaymentSettle records a provider outcome on a payment.
	CapPaymentSettle Capability = "payment:settle"
)

var roleCapabilities = map[Role][]Capability{
	RoleAdmin: {
		CapCatalogRead, CapCatalogWrite, CapStockWrite,
		CapOrderRead, CapOrderManage, CapPaymentRead, CapPaymentWrite, CapPaymentSettle,
	},
	RoleDistributor: {
		CapCatalogRead, CapCatalogWrite, CapStockWrite,
		CapOrderRead, CapOrderManage, CapPaymentRead,
	},
	RoleRetailer: {
		CapCatalogRead, CapOrderCreate, CapOrderRead, CapCartWrite, CapPaymentWrite,
	},
	RoleGateway: {
		CapPaymentSettle,
	},
}

// Principal is the authenticated caller. DistributorID is set for
// distributor accounts and identifies the products they own.
type Principal struct {
	UserID        string
	Role          Role
	DistributorID int
}

func (p Principal) Can(c Capability) bool {
	for _, granted := range roleCapabilities[p.Role] {
		if granted == c {
			return true
		}
	}
	return false
}

// Owns reports whether the caller may manage a resource owned by ownerID.
// Admins own everything.
func (p Principal) Owns(ownerID int) bool {
	if p.Role == RoleAdmin {
		return true
	}
	return p.Role == RoleDistributor && p.DistributorID != 0 && p.DistributorID == ownerID
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
