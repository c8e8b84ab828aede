package model

// Policy kinds
const (
	PolicyKindPasswordExpiry = "password_expiry"
)

// PasswordExpiryPolicy is the administrator-managed configuration of one
// password expiry rule.
type PasswordExpiryPolicy struct {
	Base
	Name     string  `json:"name" db:"name" validate:"required,max=255"`
	Days     int     `json:"days" db:"days" validate:"required,gt=0"`
	DenyOnly bool    `json:"deny_only" db:"deny_only"`
	Negate   bool    `json:"negate" db:"negate"`
	Order    int     `json:"order" db:"eval_order"`
	Weight   float64 `json:"weight" db:"weight" validate:"gte=0"`
	Enabled  bool    `json:"enabled" db:"enabled"`
}

// CreatePasswordExpiryPolicyRequest represents policy creation parameters
type CreatePasswordExpiryPolicyRequest struct {
	Name     string   `json:"name"`
	Days     int      `json:"days"`
	DenyOnly bool     `json:"deny_only"`
	Negate   bool     `json:"negate"`
	Order    int      `json:"order"`
	Weight   *float64 `json:"weight"`
	Enabled  *bool    `json:"enabled"`
}

// UpdatePasswordExpiryPolicyRequest represents policy update parameters
type UpdatePasswordExpiryPolicyRequest struct {
	Name     *string  `json:"name"`
	Days     *int     `json:"days"`
	DenyOnly *bool    `json:"deny_only"`
	Negate   *bool    `json:"negate"`
	Order    *int     `json:"order"`
	Weight   *float64 `json:"weight"`
	Enabled  *bool    `json:"enabled"`
}

// Apply copies the set fields of the request onto p.
func (r *UpdatePasswordExpiryPolicyRequest) Apply(p *PasswordExpiryPolicy) {
	if r.Name != nil {
		p.Name = *r.Name
	}
	if r.Days != nil {
		p.Days = *r.Days
	}
	if r.DenyOnly != nil {
		p.DenyOnly = *r.DenyOnly
	}
	if r.Negate != nil {
		p.Negate = *r.Negate
	}
	if r.Order != nil {
		p.Order = *r.Order
	}
	if r.Weight != nil {
		p.Weight = *r.Weight
	}
	if r.Enabled != nil {
		p.Enabled = *r.Enabled
	}
}
