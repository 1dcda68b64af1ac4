// Package auth implements the access gate guarding every query endpoint.
//
// DESIGN:
// The gate is split in two: a Verifier decides whether a credential pair is
// valid, and the middleware (middleware.go) enforces that decision before
// any request reaches a handler. Handlers never see credentials and the
// middleware never sees how verification works, so swapping the single
// static pair for hashed credentials — or several principals — touches
// nothing but the Verifier wired in at startup.
package auth

import (
	"crypto/sha256"
	"crypto/subtle"

	"golang.org/x/crypto/bcrypt"
)

// Verifier reports whether a candidate username/password pair is valid.
//
// Implementations must not leak which of the two parts was wrong — the gate
// answers yes or no, nothing more.
type Verifier interface {
	Verify(username, password string) bool
}

// StaticVerifier checks credentials against a single configured pair.
// This is the degenerate single-tenant scheme the service ships with.
type StaticVerifier struct {
	username string
	password string
}

// NewStaticVerifier creates a StaticVerifier for the given pair.
func NewStaticVerifier(username, password string) *StaticVerifier {
	return &StaticVerifier{username: username, password: password}
}

// Verify compares both parts in constant time.
//
// WHY HASH BEFORE COMPARING?
// subtle.ConstantTimeCompare is only constant-time for equal-length inputs —
// a length mismatch returns immediately, which leaks the credential length.
// Comparing SHA-256 digests makes both inputs a fixed 32 bytes first.
//
// WHY &, NOT &&?
// A && comparison short-circuits: if the username is wrong the password
// comparison never runs, and the timing difference tells an attacker they
// guessed a valid username. Bitwise & evaluates both sides always.
func (v *StaticVerifier) Verify(username, password string) bool {
	userHash := sha256.Sum256([]byte(username))
	passHash := sha256.Sum256([]byte(password))
	wantUser := sha256.Sum256([]byte(v.username))
	wantPass := sha256.Sum256([]byte(v.password))

	userOK := subtle.ConstantTimeCompare(userHash[:], wantUser[:])
	passOK := subtle.ConstantTimeCompare(passHash[:], wantPass[:])
	return userOK&passOK == 1
}

// BcryptVerifier checks the password against a stored bcrypt hash, so the
// plaintext never has to live in configuration. Generate the hash with:
//
//	htpasswd -nbB user password
//
// (or any bcrypt tool — the $2a$... string is self-contained).
type BcryptVerifier struct {
	username     string
	passwordHash string
}

// NewBcryptVerifier creates a BcryptVerifier for the given username and
// bcrypt password hash.
func NewBcryptVerifier(username, passwordHash string) *BcryptVerifier {
	return &BcryptVerifier{username: username, passwordHash: passwordHash}
}

// Verify checks the username in constant time and the password against the
// bcrypt hash. bcrypt.CompareHashAndPassword is constant-time internally.
func (v *BcryptVerifier) Verify(username, password string) bool {
	userHash := sha256.Sum256([]byte(username))
	wantUser := sha256.Sum256([]byte(v.username))
	userOK := subtle.ConstantTimeCompare(userHash[:], wantUser[:]) == 1

	passOK := bcrypt.CompareHashAndPassword([]byte(v.passwordHash), []byte(password)) == nil
	return userOK && passOK
}
