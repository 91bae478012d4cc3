package requestdata

import (
	"context"

	"github.com/google/uuid"
)

type contextKey struct{}

var requestDataKey = contextKey{}

// NetworkContext carries request attribution for audit events and token
// issuance.
type NetworkContext struct {
	IPAddress string
	UserAgent string
	Country   string
}

type RequestData struct {
	TokenString string
	UserID      uuid.UUID
	TenantID    string
	Network     NetworkContext
}

func WithRequestData(ctx context.Context, rd *RequestData) context.Context {
	return context.WithValue(ctx, requestDataKey, rd)
}

func GetRequestData(ctx context.Context) *RequestData {
	if rd, ok := ctx.Value(requestDataKey).(*RequestData); ok {
		return rd
	}
	return nil
}
