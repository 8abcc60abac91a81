// Package auth provides stateless JWT authentication for fiber services:
// password hashing, token issuance and verification, account registration
// with emailed verification codes, and a security chain that authenticates
// every request and enforces an ordered access table.
//
// Request pipeline:
//   - SecurityChain installs CORS, then jwtware (which only populates the
//     principal and never rejects), then the access policy. The first policy
//     rule whose pattern matches the path decides whether the request is
//     public or needs an authenticated principal.
//   - A token is valid until its exp claim; nothing is stored server side and
//     a single request never sees a principal from another request.
//
// Accounts:
//   - RegisterUserHandler stores an unverified user and mails a six digit
//     code. VerifyAccountHandler marks the account verified; login fails with
//     ErrUnverified until then.
//
// Activity sinks:
//   - ActivitySink receives login, registration and verification events.
//     Sinks run best-effort (errors are logged) so they can forward to a
//     database or queue without blocking authentication.
//
// Claims decoration:
//   - ClaimsDecorator is invoked before tokens are signed. Decorators may fill
//     JWTClaims.Extra while protected claims (sub, iss, aud, exp, etc.) stay
//     immutable.
package auth
