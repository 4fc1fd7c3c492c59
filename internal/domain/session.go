package domain

// Role is the resolved authorization role of a logged-in customer.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// RoleFromCode maps the directory's numeric role code to a Role.
// Code 1 is the administrator role; everything else is a regular user.
func RoleFromCode(code int) Role {
	if code == 1 {
		return RoleAdmin
	}
	return RoleUser
}

// Session is the authenticated identity attached to a request. It is
// established at login and only read afterwards.
type Session struct {
	Customer     string `json:"customer"`
	CustomerName string `json:"customer_name"`
	Role         Role   `json:"role"`
}

// CanMutateCart reports whether this session may add to, remove from, or
// check out a cart. Administrators manage the catalog, they do not shop.
func (s Session) CanMutateCart() bool {
	return s.Role == RoleUser
}

// CanManageCatalog reports whether this session may delete products.
func (s Session) CanManageCatalog() bool {
	return s.Role == RoleAdmin
}
