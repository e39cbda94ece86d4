package ctx

import (
	"github.com/valyala/fasthttp"
)

const (
	ClientIPKey = "clientIP"
)

func SetClientIP(ctx *fasthttp.RequestCtx, ip string) {
	ctx.SetUserValue(ClientIPKey, ip)
}

// ClientIPFromCtx returns the address resolved by the ClientIP middleware.
func ClientIPFromCtx(ctx *fasthttp.RequestCtx) (string, bool) {
	v := ctx.UserValue(ClientIPKey)
	if v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok && s != ""
}
