package ratelimit

import (
	"fmt"
	"strings"
)

// Key namespace shared by every limiter backend: ratelimit:<scope>:<identity>.
// One key per (scope, identity) pair is the sole serialization point for
// admission decisions on that pair.
const keyNamespace = "ratelimit"

func bucketKey(scope, identity string) string {
	return fmt.Sprintf("%s:%s:%s", keyNamespace, scope, identity)
}

func identityPattern(identity string) string {
	return fmt.Sprintf("%s:*:%s", keyNamespace, identity)
}

// keyIdentity splits a bucket key from the left. Scopes never contain a
// colon, so everything after the second separator is the identity, colons
// included (IPv6 client addresses).
func keyIdentity(key string) (string, bool) {
	parts := strings.SplitN(key, ":", 3)
	if len(parts) != 3 || parts[0] != keyNamespace {
		return "", false
	}
	return parts[2], true
}
