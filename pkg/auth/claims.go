package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/zaymart/zaymart-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID        uuid.UUID
	VendorStoreID *uuid.UUID
	Role          enums.MemberRole
	JTI           string
}

// AccessTokenClaims represents the typed JWT issued to clients. Vendor
// users carry the store they act for; admins and customers do not.
type AccessTokenClaims struct {
	UserID        uuid.UUID        `json:"user_id"`
	VendorStoreID *uuid.UUID       `json:"vendor_store_id,omitempty"`
	Role          enums.MemberRole `json:"role"`
	jwt.RegisteredClaims
}
