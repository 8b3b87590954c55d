package rbac

import (
	"context"
	"strings"
)

// Checker answers permission questions for a fixed policy. Patterns are
// either exact ("quiz:view"), a prefix ("session:*") or "*" for everything.
type Checker struct {
	exact    map[string]map[string]struct{}
	prefixes map[string][]string
}

func NewChecker(rp map[string][]string) *Checker {
	if rp == nil {
		rp = RolePermissions
	}
	c := &Checker{
		exact:    make(map[string]map[string]struct{}, len(rp)),
		prefixes: make(map[string][]string, len(rp)),
	}
	for role, perms := range rp {
		set := map[string]struct{}{}
		for _, p := range perms {
			if strings.HasSuffix(p, "*") {
				c.prefixes[role] = append(c.prefixes[role], strings.TrimSuffix(p, "*"))
				continue
			}
			set[p] = struct{}{}
		}
		c.exact[role] = set
	}
	return c
}

func (c *Checker) Has(role, perm string) bool {
	if _, ok := c.exact[role][perm]; ok {
		return true
	}
	for _, prefix := range c.prefixes[role] {
		if strings.HasPrefix(perm, prefix) {
			return true
		}
	}
	return false
}

type ctxKey struct{}

func WithRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, ctxKey{}, role)
}

func RoleFromContext(ctx context.Context) string {
	role, _ := ctx.Value(ctxKey{}).(string)
	return role
}

// Can reports whether the role in ctx holds perm under the default policy.
func Can(ctx context.Context, perm string) bool {
	role := RoleFromContext(ctx)
	return role != "" && defaultChecker.Has(role, perm)
}
