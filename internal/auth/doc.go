// Package auth bootstraps the authenticated portal session that every
// fetch in a harvest rides on.
//
// The portal gates its report pages behind a single-use visual
// challenge: the entry page sets a session cookie and embeds a
// CSRF-Magic token, a securimage endpoint serves the challenge image,
// and posting the token plus the solved answer upgrades the session.
// The solved session is then valid for the lifetime of the process.
//
// The external solver is only about 90% accurate, so the Authenticator
// retries the whole sequence (fresh token, fresh image) up to a bounded
// attempt ceiling with a short delay between attempts. Exhausting the
// ceiling surfaces ErrAuthentication to the operator.
package auth
