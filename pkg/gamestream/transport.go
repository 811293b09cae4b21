package gamestream

import (
	"context"
	"net/http"
)

// Transport opens server-to-client event streams.
//
// Open must not block until the stream is established: it starts the
// connection and reports progress through h. An error from Open means the
// stream could not even be started.
type Transport interface {
	Open(ctx context.Context, path string, header http.Header, h StreamHandler) (Stream, error)
}

// Stream is an open stream handle.
type Stream interface {
	// Close stops the stream. It must not wait on the goroutine delivering
	// events, since that goroutine may be inside a handler call; the Manager
	// ignores notifications that arrive after it closed a stream.
	Close() error
}

// StreamHandler receives notifications from a Stream. Calls for one stream
// are made sequentially from a single goroutine.
type StreamHandler interface {
	OnOpen()
	OnEvent(name string, data []byte)
	OnError(err error)
}

// CredentialSource reads a stored credential by key. A missing key is
// reported as an empty string or an error; both mean "no credential".
type CredentialSource interface {
	Get(key string) (string, error)
}
