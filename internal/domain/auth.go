package domain

// GatewayClaims are the claims carried by a gateway service token. The
// subject names the calling surface, e.g. "telegram-gateway".
type GatewayClaims struct {
	Subject   string `json:"sub"`
	Issuer    string `json:"iss"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}
