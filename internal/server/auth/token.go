package auth

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/dmitrijs2005/medibook/internal/common"
)

// opaqueTokenBytes gives 256 bits of entropy.
const opaqueTokenBytes = 32

// GenerateOpaqueToken returns a random hex token used for refresh sessions,
// e-mail verification and password reset.
func GenerateOpaqueToken() (string, error) {
	return common.MakeRandHexString(opaqueTokenBytes)
}

// HashToken is the value persisted in place of an opaque token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
