// Package jwt signs and validates the identity tokens of the Tours API.
//
// Tokens are HS256 JWTs carrying the user id in the "id" claim plus the
// standard iat, exp and iss claims.
//
//	service := jwt.NewService(jwt.Config{
//	    Secret:     os.Getenv("JWT_SECRET"),
//	    Issuer:     "tours-api",
//	    Expiration: 90 * 24 * time.Hour,
//	})
//
//	token, err := service.Sign(userID)
//	claims, err := service.Validate(token)
//
// Validate returns ErrTokenExpired for expired tokens and ErrInvalidToken
// for everything else (bad signature, wrong algorithm, malformed input).
// Both Sign and Validate fail with ErrMissingSecret when no secret is set.
package jwt
