package auth

import "context"

// subjectKey 是请求上下文中主体信息的私有键。
type subjectKey struct{}

// WithSubject 把鉴权通过的主体挂到请求上下文, 供处理器和审计日志读取。
func WithSubject(ctx context.Context, subject *Subject) context.Context {
	if subject == nil {
		return ctx
	}
	subject.normalise()
	return context.WithValue(ctx, subjectKey{}, subject)
}

// SubjectFromContext 取出上下文中的主体, 未经过鉴权时返回 nil。
func SubjectFromContext(ctx context.Context) *Subject {
	if ctx == nil {
		return nil
	}
	subject, _ := ctx.Value(subjectKey{}).(*Subject)
	if subject != nil {
		subject.normalise()
	}
	return subject
}

// SubjectName 返回上下文主体的名字, 匿名访问时返回空串。
func SubjectName(ctx context.Context) string {
	if subject := SubjectFromContext(ctx); subject != nil {
		return subject.Name
	}
	return ""
}
