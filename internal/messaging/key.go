package messaging

import (
	"crypto/md5"
	"encoding/hex"
)

// DeriveConversationKey maps an unordered participant pair to the stable key
// used as the conversation's document ID. The pair is sorted before hashing so
// key(a,b) == key(b,a); the 32-char hex digest stays under the backend's
// 36-char document-ID limit.
func DeriveConversationKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	sum := md5.Sum([]byte(a + "_" + b))
	return hex.EncodeToString(sum[:])
}
