// Package authcore manages credentials and sessions for a multi-tenant
// service: registration with argon2id hashing, password login, signed
// access tokens, refresh-token rotation with reuse detection, one-time
// codes for email verification, password reset, and email change, and
// multi-session revocation with cascading invalidation on
// security-sensitive events.
//
// The Engine is assembled from collaborators via the Builder:
//
//	eng, err := authcore.New().
//		WithConfig(authcore.DefaultConfig()).
//		WithStore(redisstore.New(client, "")).
//		WithNotifier(mailer).
//		Build()
//
// Raw secrets (refresh tokens, codes) exist only in flight; stores hold
// sha256 digests. Every multi-step store mutation is an atomic unit, so
// concurrent rotations, issuances, and cascades observe each other
// consistently.
package authcore
