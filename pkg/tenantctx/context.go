package tenantctx

import "context"

type keyType string

const (
	TenantKey keyType = "tenant"
)

// WithTenant stores the tenant name on the context for logging and lock keys.
func WithTenant(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, TenantKey, name)
}

func Tenant(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(TenantKey).(string)
	return name, ok
}
