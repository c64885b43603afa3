package handlers

// Test-only aliases so the external handlers_test package can reach the
// unexported helpers it exercises.
const (
	TokenAlphabet      = tokenAlphabet
	SessionTokenLength = sessionTokenLength
	PublicIDLength     = publicIDLength
)

var (
	BuildSystemInstruction = buildSystemInstruction
	RandomToken            = randomToken
	RandomOTP              = randomOTP
)
