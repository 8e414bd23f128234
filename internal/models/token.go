package models

import "time"

// Token status values. Lifecycle is owned by the administrative surface;
// the gateway only reads them.
const (
	TokenStatusActive  = "Active"
	TokenStatusBlocked = "Blocked"
	TokenStatusExpired = "Expired"
	TokenStatusRevoked = "Revoked"
)

// Token is an identification tag (RFID or app token) presented by a driver.
type Token struct {
	IDTag     string     `db:"id_tag" json:"idTag"`
	Status    string     `db:"status" json:"status"`
	ValidFrom *time.Time `db:"valid_from" json:"validFrom,omitempty"`
	ValidTo   *time.Time `db:"valid_to" json:"validTo,omitempty"`
	Issuer    string     `db:"issuer" json:"issuer,omitempty"`
	Owner     string     `db:"owner" json:"owner,omitempty"`
	Notes     string     `db:"notes" json:"notes,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time  `db:"updated_at" json:"updatedAt"`
}

// AuthorizationSettings is the singleton authorization-mode record. It is
// writable only through the administrative surface and read on every
// Authorize/StartTransaction.
type AuthorizationSettings struct {
	AcceptAnyTag     bool `json:"acceptAnyTag"`
	StrictValidation bool `json:"strictValidation"`
}

// DefaultAuthorizationSettings applies when no settings row exists yet.
func DefaultAuthorizationSettings() AuthorizationSettings {
	return AuthorizationSettings{AcceptAnyTag: false, StrictValidation: true}
}
