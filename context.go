package goGuard

import "context"

type clientIPContextKey struct{}
type deviceFingerprintContextKey struct{}

// WithClientIP attaches the caller's IP address to ctx. The Engine uses it
// for the login-purpose IP guard and for audit events.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

// WithDeviceFingerprint attaches an opaque, caller-generated device
// fingerprint to ctx. It is used when Login is called with an empty deviceID
// argument; goGuard never derives fingerprints itself.
func WithDeviceFingerprint(ctx context.Context, fingerprint string) context.Context {
	return context.WithValue(ctx, deviceFingerprintContextKey{}, fingerprint)
}

func clientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}

func deviceFingerprintFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	fingerprint, _ := ctx.Value(deviceFingerprintContextKey{}).(string)
	return fingerprint
}
