package common

import (
	"context"
)

// Context keys for storing values in context
type contextKey string

const (
	ContextKeyRequestID      contextKey = "request_id"
	ContextKeyOrganizationID contextKey = "organization_id"
)

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// RequestIDFromContext extracts the request ID from context
func RequestIDFromContext(ctx context.Context) string {
	if requestID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return requestID
	}
	return ""
}

// WithOrganizationID records the tenant a request writes business records for.
func WithOrganizationID(ctx context.Context, organizationID string) context.Context {
	return context.WithValue(ctx, ContextKeyOrganizationID, organizationID)
}

func OrganizationIDFromContext(ctx context.Context) string {
	if orgID, ok := ctx.Value(ContextKeyOrganizationID).(string); ok {
		return orgID
	}
	return ""
}
