// Package vnpay implements the VNPay request signing scheme. The gateway
// requires byte-exact reproduction of its canonical form: signature fields
// stripped, keys sorted, values encoded with encodeURIComponent semantics
// where a space becomes '+', pairs joined with '&', then HMAC-SHA512 over
// the result rendered as lowercase hex.
//
// Everything here is pure; no state, no logging.
package vnpay

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"sort"
	"strings"
)

// Signature fields are never part of the signed byte string.
const (
	FieldSecureHash     = "vnp_SecureHash"
	FieldSecureHashType = "vnp_SecureHashType"
)

// Well-known parameter names.
const (
	FieldVersion      = "vnp_Version"
	FieldCommand      = "vnp_Command"
	FieldTmnCode      = "vnp_TmnCode"
	FieldAmount       = "vnp_Amount"
	FieldCurrCode     = "vnp_CurrCode"
	FieldTxnRef       = "vnp_TxnRef"
	FieldOrderInfo    = "vnp_OrderInfo"
	FieldOrderType    = "vnp_OrderType"
	FieldLocale       = "vnp_Locale"
	FieldReturnURL    = "vnp_ReturnUrl"
	FieldIPAddr       = "vnp_IpAddr"
	FieldCreateDate   = "vnp_CreateDate"
	FieldBankCode     = "vnp_BankCode"
	FieldResponseCode = "vnp_ResponseCode"
	FieldPayDate      = "vnp_PayDate"
)

// Sign computes the keyed hash over the canonical form of params. Signature
// fields present in params are ignored.
func Sign(params map[string]string, secret string) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write([]byte(canonical(params)))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify recomputes the signature over params (signature fields stripped)
// and compares it to providedHash in constant time. An empty providedHash
// never verifies.
func Verify(params map[string]string, providedHash, secret string) bool {
	if providedHash == "" {
		return false
	}
	expected := Sign(params, secret)
	return hmac.Equal([]byte(expected), []byte(providedHash))
}

// BuildPaymentURL renders the signed redirect URL: the sorted, encoded
// parameter set plus the computed vnp_SecureHash.
func BuildPaymentURL(baseURL string, params map[string]string, secret string) string {
	var b strings.Builder
	b.WriteString(baseURL)
	b.WriteByte('?')
	b.WriteString(canonical(params))
	b.WriteByte('&')
	b.WriteString(FieldSecureHash)
	b.WriteByte('=')
	b.WriteString(Sign(params, secret))
	return b.String()
}

// canonical builds the exact byte string the gateway signs: drop signature
// fields, sort keys by their encoded form, join key=encodedValue with '&'.
// No second encoding pass is applied.
func canonical(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k == FieldSecureHash || k == FieldSecureHashType {
			continue
		}
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return encode(keys[i]) < encode(keys[j])
	})

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(encode(params[k]))
	}
	return b.String()
}

const upperhex = "0123456789ABCDEF"

// encode mirrors JavaScript's encodeURIComponent with the gateway's space
// convention: unreserved bytes pass through, space becomes '+', everything
// else is percent-encoded per UTF-8 byte.
func encode(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == ' ':
			b.WriteByte('+')
		case isUnreserved(c):
			b.WriteByte(c)
		default:
			b.WriteByte('%')
			b.WriteByte(upperhex[c>>4])
			b.WriteByte(upperhex[c&0xf])
		}
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	if 'A' <= c && c <= 'Z' || 'a' <= c && c <= 'z' || '0' <= c && c <= '9' {
		return true
	}
	switch c {
	case '-', '_', '.', '!', '~', '*', '\'', '(', ')':
		return true
	}
	return false
}
