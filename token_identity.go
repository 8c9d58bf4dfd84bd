package authsync

import "github.com/mfackner/authsync/token"

// ClaimsIdentityParser returns an IdentityParser that derives the user from
// the access token's claims without verifying the signature. This is the right
// default when the identity provider signs tokens with keys this subsystem
// does not hold: the token was just received from the provider over an
// authenticated channel, and the derived identity is display state, not an
// authorization decision.
func ClaimsIdentityParser() IdentityParser {
	return func(accessToken string) (*UserIdentity, error) {
		claims, err := token.Decode(accessToken)
		if err != nil {
			return nil, err
		}
		return &UserIdentity{
			ID:      claims.Subject,
			Email:   claims.Email,
			Name:    claims.Name,
			Company: claims.Company,
		}, nil
	}
}
