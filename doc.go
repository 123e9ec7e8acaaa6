// Package auth provides stateless bearer token authentication: password
// hashing, JWT issuance and validation, principal resolution, and fiber
// HTTP helpers.
//
// Registration and login:
//   - Auther.Register persists an identity record with the baseline role
//     (CLIENT) and returns a token. A taken email is reported as
//     ErrIdentityConflict, both by the up-front lookup and by the unique
//     constraints on the users table.
//   - Auther.Login reports ErrInvalidCredentials for an unknown email and for
//     a wrong password alike, and pays the same bcrypt cost in both cases.
//
// Request authentication:
//   - NewAuthenticationMiddleware never rejects a request. It walks the
//     jwtware state machine and attaches a Principal to the request context
//     only when the token verifies and its subject resolves to a record.
//     Protected routes mount RequirePrincipal or RequireRole.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter used by Auther to describe
//     register and login events. Sinks run best-effort (errors are logged).
//     Metrics implements it and also counts middleware outcomes.
package auth
