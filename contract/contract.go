//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"net/http"
	"reflect"

	"polyglot-chat/domain/chat"
	"polyglot-chat/domain/event"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker
// lifecycle events, avoiding the need for manual naming in the Worker
// interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// Sender puts one outbound command on the channel. Implementations must
// never block the caller and must return errors.ErrNotConnected instead of
// queueing while the channel is down.
type Sender interface {
	Send(cmd chat.Command) error
}

// EventSink consumes inbound events observed by the room loop, for side
// concerns such as local history and search indexing.
type EventSink interface {
	Consume(ctx context.Context, e event.Inbound) error
}

// Transport dials the underlying bidirectional connection. It exists so the
// session state machine can be exercised without a network.
type Transport interface {
	Dial(ctx context.Context, url string, header http.Header) (Conn, error)
}

// Conn is one established connection. ReadMessage blocks until a frame or a
// transport error; after an error the connection is dead and must be closed.
type Conn interface {
	ReadMessage() ([]byte, error)
	WriteMessage(data []byte) error
	Ping() error
	Close() error
}
