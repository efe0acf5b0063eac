package middleware

import (
	"net"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/dreamrealm/game/errs"
)

// IPWhitelist returns a middleware that only allows requests from the given
// addresses or CIDR ranges. If the whitelist is empty, all IPs are allowed.
// Unparseable entries are ignored.
func IPWhitelist(ips []string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(ips))
	var nets []*net.IPNet
	for _, ip := range ips {
		if _, n, err := net.ParseCIDR(ip); err == nil {
			nets = append(nets, n)
			continue
		}
		if parsed := net.ParseIP(ip); parsed != nil {
			allowed[parsed.String()] = true
		}
	}
	open := len(ips) == 0
	return func(c *gin.Context) {
		if open || permitted(c.ClientIP(), allowed, nets) {
			c.Next()
			return
		}
		AbortError(c, errs.Forbidden("access denied"))
	}
}

func permitted(addr string, allowed map[string]bool, nets []*net.IPNet) bool {
	ip := net.ParseIP(addr)
	if ip == nil {
		return false
	}
	if allowed[ip.String()] {
		return true
	}
	for _, n := range nets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}
