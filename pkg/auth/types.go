package auth

import "time"

// Role is the closed set of principal roles. Authorization decisions switch
// exhaustively over this type so adding a role is a compile-visible change.
type Role string

const (
	RoleAdmin       Role = "admin"       // full visibility, cannot author certificates
	RoleDistributor Role = "distributor" // sees its linked retailers and their certificates
	RoleRetailer    Role = "retailer"    // owns and authors certificates
)

// Valid reports whether r is one of the defined roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleDistributor, RoleRetailer:
		return true
	}
	return false
}

// ParseRole converts a wire string into a Role.
func ParseRole(s string) (Role, bool) {
	r := Role(s)
	return r, r.Valid()
}

// Identity represents a registered principal.
type Identity struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	Role          Role      `json:"role"`
	CompanyName   *string   `json:"company_name,omitempty"`
	ContactNumber *string   `json:"contact_number,omitempty"`
	CreatedBy     *string   `json:"created_by,omitempty"` // nil for the bootstrap admin
	CreatedAt     time.Time `json:"created_at"`
}

// Credential is an Identity together with its stored password material.
// The hash and salt never leave the credential store.
type Credential struct {
	Identity
	PasswordSalt []byte `json:"-"`
	PasswordHash []byte `json:"-"`
}

// RelationshipEdge links a distributor to a retailer it manages. At most one
// edge exists per (distributor, retailer) pair; edges are never removed.
type RelationshipEdge struct {
	DistributorID string    `json:"distributor_id"`
	RetailerID    string    `json:"retailer_id"`
	CreatedAt     time.Time `json:"created_at"`
}
