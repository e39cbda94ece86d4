package middleware

import (
	"net"
	"strings"

	"github.com/valyala/fasthttp"

	httpctx "siteinsight/internal/http/ctx"
)

// ClientIP resolves the visitor address once per request and stores it in
// the request context.
func ClientIP(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		httpctx.SetClientIP(ctx, ResolveClientIP(ctx))
		next(ctx)
	}
}

// ResolveClientIP returns the first public address in X-Forwarded-For,
// then X-Real-IP, then the connection's remote address.
func ResolveClientIP(ctx *fasthttp.RequestCtx) string {
	if xff := string(ctx.Request.Header.Peek("X-Forwarded-For")); xff != "" {
		var first string
		for _, part := range strings.Split(xff, ",") {
			ip := net.ParseIP(strings.TrimSpace(part))
			if ip == nil {
				continue
			}
			if first == "" {
				first = ip.String()
			}
			if isPublic(ip) {
				return ip.String()
			}
		}
		if first != "" {
			return first
		}
	}
	if ip := net.ParseIP(strings.TrimSpace(string(ctx.Request.Header.Peek("X-Real-IP")))); ip != nil {
		return ip.String()
	}
	return ctx.RemoteIP().String()
}

func isPublic(ip net.IP) bool {
	return !ip.IsPrivate() && !ip.IsLoopback() && !ip.IsLinkLocalUnicast() && !ip.IsUnspecified()
}
