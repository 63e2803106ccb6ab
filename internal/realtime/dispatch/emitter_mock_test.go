package dispatch

import (
	"context"
	"sync"
)

var _ Emitter = &emitterMock{}

type emitterMock struct {
	EmitFunc func(ctx context.Context, namespace string, payload any, connectionID string) error

	calls struct {
		Emit []struct {
			Ctx          context.Context
			Namespace    string
			Payload      any
			ConnectionID string
		}
	}
	lockEmit sync.RWMutex
}

func (mock *emitterMock) Emit(ctx context.Context, namespace string, payload any, connectionID string) error {
	if mock.EmitFunc == nil {
		panic("emitterMock.EmitFunc: method is nil but Emitter.Emit was just called")
	}
	callInfo := struct {
		Ctx          context.Context
		Namespace    string
		Payload      any
		ConnectionID string
	}{Ctx: ctx, Namespace: namespace, Payload: payload, ConnectionID: connectionID}
	mock.lockEmit.Lock()
	mock.calls.Emit = append(mock.calls.Emit, callInfo)
	mock.lockEmit.Unlock()
	return mock.EmitFunc(ctx, namespace, payload, connectionID)
}

func (mock *emitterMock) EmitCalls() []struct {
	Ctx          context.Context
	Namespace    string
	Payload      any
	ConnectionID string
} {
	mock.lockEmit.RLock()
	calls := mock.calls.Emit
	mock.lockEmit.RUnlock()
	return calls
}
