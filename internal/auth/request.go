package auth

import (
	"net/http"
	"strings"
)

// ProtocolPrefix marks a bearer token carried in Sec-WebSocket-Protocol,
// e.g. "access_token, <jwt>", for browsers that cannot set headers.
const ProtocolPrefix = "access_token"

// TokenFromRequest finds the bearer credential on an HTTP or handshake
// request: Authorization header, then Sec-WebSocket-Protocol, then the
// token query parameter.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}

	protocols := websocketProtocols(r)
	for i, p := range protocols {
		if p == ProtocolPrefix && i+1 < len(protocols) {
			return protocols[i+1]
		}
	}

	return r.URL.Query().Get("token")
}

func websocketProtocols(r *http.Request) []string {
	var out []string
	for _, h := range r.Header.Values("Sec-WebSocket-Protocol") {
		for _, p := range strings.Split(h, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
