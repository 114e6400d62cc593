package httpapi

// VerifySignature checks the provider's webhook signature header against the
// configured secret.
//
// TODO: implement HMAC verification once the provider documents the signing
// scheme for this header. Until then every signed request is accepted. The
// call site runs before body parsing so a real implementation rejects with
// 401 before any payload handling.
func VerifySignature(secret string, payload []byte, signature string) bool {
	_ = secret
	_ = payload
	_ = signature
	return true
}
