package common

// RefreshTokenCookieName is the HTTP-only cookie carrying the opaque
// refresh token.
const RefreshTokenCookieName = "refreshToken"

// AuthorizationHeaderName carries "Bearer <access token>".
const AuthorizationHeaderName = "Authorization"
