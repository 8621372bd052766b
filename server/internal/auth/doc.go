// Package auth enforces the optional API key of maintrack-server.
//
// A Guard is built from config.AuthConfig and can be re-applied on config
// reload. APIKeyInterceptor and APIKeyStreamInterceptor guard the gRPC
// listener; APIKeyMiddleware guards the /api/ HTTP routes.
//
// When the mode is not "apikey" or the key resolves to "", everything passes
// through (useful for local development with auth disabled). Otherwise a
// missing or incorrect key is rejected immediately: codes.Unauthenticated
// over gRPC, 401 over HTTP.
package auth
