package crud

import "github.com/zoobzio/capitan"

// Operation lifecycle signals.
var (
	// OperationDispatched is emitted when a call starts its request.
	OperationDispatched = capitan.NewSignal(
		"crud.operation.dispatched",
		"Operation request dispatched",
	)

	// OperationSucceeded is emitted when a call result was reconciled into the state.
	OperationSucceeded = capitan.NewSignal(
		"crud.operation.succeeded",
		"Operation result applied",
	)

	// OperationFailed is emitted when the backing request or reconciliation failed.
	OperationFailed = capitan.NewSignal(
		"crud.operation.failed",
		"Operation failed",
	)

	// OperationSuperseded is emitted when a newer call replaced a pending one.
	OperationSuperseded = capitan.NewSignal(
		"crud.operation.superseded",
		"Operation superseded by a newer call",
	)

	// OperationRejected is emitted when a disabled operation is invoked.
	OperationRejected = capitan.NewSignal(
		"crud.operation.rejected",
		"Operation not enabled on this store",
	)
)

// Field keys for operation events.
var (
	// KeyStore is the name of the emitting store.
	KeyStore = capitan.NewStringKey("store")

	// KeyOp is the operation name.
	KeyOp = capitan.NewStringKey("op")

	// KeyError is the error message of a failed call.
	KeyError = capitan.NewStringKey("error")

	// KeyDuration is the time between dispatch and completion.
	KeyDuration = capitan.NewDurationKey("duration")
)
