package middleware

import "context"

type contextKey string

const (
	ctxUserID contextKey = "auth.user_id"
	ctxEmail  contextKey = "auth.email"
	ctxRole   contextKey = "auth.role"
	ctxCartID contextKey = "cart.id"
)

func UserIDFrom(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxUserID).(string)
	return id, ok && id != ""
}

func EmailFrom(ctx context.Context) (string, bool) {
	email, ok := ctx.Value(ctxEmail).(string)
	return email, ok && email != ""
}

func RoleFrom(ctx context.Context) (string, bool) {
	role, ok := ctx.Value(ctxRole).(string)
	return role, ok && role != ""
}

func CartIDFrom(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxCartID).(string)
	return id, ok && id != ""
}

func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxUserID, id)
}

func WithEmail(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, ctxEmail, email)
}

func WithRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, ctxRole, role)
}

func WithCartID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxCartID, id)
}
