package domain

import (
	"context"
	"errors"
	"fmt"
)

// Error taxonomy. Wrap with fmt.Errorf("%w: ...") to add detail.
var (
	ErrInvalidConfig    = errors.New("invalid config")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrEmbeddingFailed  = errors.New("embedding failed")
	ErrGenerationFailed = errors.New("generation failed")
	ErrGatewayTimeout   = errors.New("gateway timeout")
	ErrNotFound         = errors.New("not found")
)

// ErrorKind is the wire name of an error class.
type ErrorKind string

const (
	KindInvalidConfig    ErrorKind = "InvalidConfig"
	KindInvalidArgument  ErrorKind = "InvalidArgument"
	KindEmbeddingFailed  ErrorKind = "EmbeddingFailed"
	KindGenerationFailed ErrorKind = "GenerationFailed"
	KindGatewayTimeout   ErrorKind = "GatewayTimeout"
	KindNotFound         ErrorKind = "NotFound"
	KindInternal         ErrorKind = "Internal"
)

var kinds = []struct {
	err  error
	kind ErrorKind
}{
	{ErrGatewayTimeout, KindGatewayTimeout},
	{ErrInvalidConfig, KindInvalidConfig},
	{ErrInvalidArgument, KindInvalidArgument},
	{ErrEmbeddingFailed, KindEmbeddingFailed},
	{ErrGenerationFailed, KindGenerationFailed},
	{ErrNotFound, KindNotFound},
}

// KindOf classifies err. Unknown errors are reported as Internal.
func KindOf(err error) ErrorKind {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}

// GatewayError wraps a failed external call made under ctx. Deadline
// overruns become ErrGatewayTimeout so callers can tell slowness apart from
// hard failure.
func GatewayError(ctx context.Context, kind error, op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s: %v", ErrGatewayTimeout, op, err)
	}
	return fmt.Errorf("%w: %s: %v", kind, op, err)
}
