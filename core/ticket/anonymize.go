package ticket

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/emisoft/buzon/core"
)

// AnonymousIdentifier stands in for a submitter when no verified email is
// available in session state.
const AnonymousIdentifier = "usuario_anonimo"

// AnonymousHash derives the stable pseudonymous token stored with a Ticket:
// a sha256 hex digest of identifier+secret. Deterministic for a fixed
// (identifier, secret) pair and never reversible to the identity.
func AnonymousHash(identifier string) string {
	sum := sha256.Sum256([]byte(identifier + core.Conf.SecretKey))
	return hex.EncodeToString(sum[:])
}
