package grpc

import (
	"context"
	"errors"

	"google.golang.org/grpc/metadata"
)

// CredentialsExtractor returns the credentials of a call in Authorization
// header form, "Bearer <token>". An empty string means the call carries no
// credentials.
type CredentialsExtractor func(ctx context.Context) (string, error)

// ErrMultipleAuthHeaders indicates multiple authorization metadata entries were provided.
var ErrMultipleAuthHeaders = errors.New("multiple authorization metadata entries are not allowed")

// MetadataExtractor reads the "authorization" metadata key. Schemes other
// than Bearer are rejected later, by the verifier.
//
// gRPC normalizes incoming metadata keys to lowercase, so this extractor only
// checks the lowercase "authorization" key.
func MetadataExtractor(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", nil // No metadata, no credentials (not an error)
	}

	authHeaders := md.Get("authorization")
	switch len(authHeaders) {
	case 0:
		return "", nil
	case 1:
		return authHeaders[0], nil
	default:
		return "", ErrMultipleAuthHeaders
	}
}
