// Package auditcontext carries request metadata from the transport layer to
// the audit log without threading it through every call signature.
package auditcontext

import "context"

type contextKey string

const (
	requestIDKey contextKey = "audit_request_id"
	actorTypeKey contextKey = "audit_actor_type"
	actorIDKey   contextKey = "audit_actor_id"
	ipAddressKey contextKey = "audit_ip_address"
	userAgentKey contextKey = "audit_user_agent"
	sessionIDKey contextKey = "audit_session_id"
	endpointKey  contextKey = "audit_endpoint"
)

// RequestContext is the optional network/session information attached to an
// audit entry.
type RequestContext struct {
	RequestID string
	ActorType string
	ActorID   string
	IPAddress string
	UserAgent string
	SessionID string
	Endpoint  string
}

// FromContext collects every audit value present on ctx.
func FromContext(ctx context.Context) RequestContext {
	if ctx == nil {
		return RequestContext{}
	}
	actorType, actorID := ActorFromContext(ctx)
	return RequestContext{
		RequestID: RequestIDFromContext(ctx),
		ActorType: actorType,
		ActorID:   actorID,
		IPAddress: IPAddressFromContext(ctx),
		UserAgent: UserAgentFromContext(ctx),
		SessionID: SessionIDFromContext(ctx),
		Endpoint:  EndpointFromContext(ctx),
	}
}

func withString(ctx context.Context, key contextKey, value string) context.Context {
	if value == "" {
		return ctx
	}
	return context.WithValue(ctx, key, value)
}

func stringValue(ctx context.Context, key contextKey) string {
	value, _ := ctx.Value(key).(string)
	return value
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return withString(ctx, requestIDKey, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	return stringValue(ctx, requestIDKey)
}

func WithActor(ctx context.Context, actorType, actorID string) context.Context {
	ctx = withString(ctx, actorTypeKey, actorType)
	return withString(ctx, actorIDKey, actorID)
}

func ActorFromContext(ctx context.Context) (string, string) {
	return stringValue(ctx, actorTypeKey), stringValue(ctx, actorIDKey)
}

func WithIPAddress(ctx context.Context, ipAddress string) context.Context {
	return withString(ctx, ipAddressKey, ipAddress)
}

func IPAddressFromContext(ctx context.Context) string {
	return stringValue(ctx, ipAddressKey)
}

func WithUserAgent(ctx context.Context, userAgent string) context.Context {
	return withString(ctx, userAgentKey, userAgent)
}

func UserAgentFromContext(ctx context.Context) string {
	return stringValue(ctx, userAgentKey)
}

func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return withString(ctx, sessionIDKey, sessionID)
}

func SessionIDFromContext(ctx context.Context) string {
	return stringValue(ctx, sessionIDKey)
}

func WithEndpoint(ctx context.Context, endpoint string) context.Context {
	return withString(ctx, endpointKey, endpoint)
}

func EndpointFromContext(ctx context.Context) string {
	return stringValue(ctx, endpointKey)
}
