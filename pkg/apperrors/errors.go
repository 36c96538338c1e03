// Package apperrors defines the closed set of transport-level error kinds as
// a stable code plus human-readable message, turning an internal failure
// into a client-facing error. It reuses google.golang.org/grpc/codes and
// google.golang.org/grpc/status directly rather than inventing a parallel
// leveled-error hierarchy — no gRPC service is ever started, the
// codes/status types are simply a ready-made stable-code-plus-message error
// value.
package apperrors

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Kind is one of the closed set of error kinds a client can observe on the wire.
type Kind string

const (
	AuthRequired          Kind = "AuthRequired"
	InvalidToken          Kind = "InvalidToken"
	UnknownRoom           Kind = "UnknownRoom"
	RoomFull              Kind = "RoomFull"
	RoomCodeCollision     Kind = "RoomCodeCollision"
	AlreadyJoined         Kind = "AlreadyJoined"
	Kicked                Kind = "Kicked"
	NotLeader             Kind = "NotLeader"
	InvalidState          Kind = "InvalidState"
	NotYourTurn           Kind = "NotYourTurn"
	IllegalCard           Kind = "IllegalCard"
	IllegalDeclaredColor  Kind = "IllegalDeclaredColor"
	CannotCallOne         Kind = "CannotCallOne"
	CannotCatchOne        Kind = "CannotCatchOne"
	PendingDrawUnresolved Kind = "PendingDrawUnresolved"
	InternalError         Kind = "InternalError"
)

// grpcCode maps each kind to the nearest-meaning gRPC status code, used only
// to get a well-known numeric code alongside the kind's own string — the
// wire-level Error event carries the Kind string, not this number.
var grpcCode = map[Kind]codes.Code{
	AuthRequired:          codes.Unauthenticated,
	InvalidToken:          codes.Unauthenticated,
	UnknownRoom:           codes.NotFound,
	RoomFull:              codes.FailedPrecondition,
	RoomCodeCollision:     codes.Aborted,
	AlreadyJoined:         codes.FailedPrecondition,
	Kicked:                codes.PermissionDenied,
	NotLeader:             codes.PermissionDenied,
	InvalidState:          codes.FailedPrecondition,
	NotYourTurn:           codes.FailedPrecondition,
	IllegalCard:           codes.InvalidArgument,
	IllegalDeclaredColor:  codes.InvalidArgument,
	CannotCallOne:         codes.FailedPrecondition,
	CannotCatchOne:        codes.FailedPrecondition,
	PendingDrawUnresolved: codes.FailedPrecondition,
	InternalError:         codes.Internal,
}

// New builds a *status.Status-backed error carrying kind as its message
// prefix and the given detail, retrievable with KindOf(err).
func New(kind Kind, detail string) error {
	code, ok := grpcCode[kind]
	if !ok {
		code = codes.Unknown
	}
	return status.Errorf(code, "%s: %s", kind, detail)
}

// KindOf recovers the Kind embedded in an error built by New, or
// InternalError if err wasn't one of ours (e.g. an unexpected invariant
// violation reaching the transport).
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	st, ok := status.FromError(err)
	if !ok {
		return InternalError
	}
	msg := st.Message()
	for k := range grpcCode {
		prefix := string(k) + ": "
		if len(msg) >= len(prefix) && msg[:len(prefix)] == prefix {
			return k
		}
	}
	return InternalError
}

// Message strips the "Kind: " prefix New adds, returning the human-readable
// detail alone.
func Message(err error) string {
	st, ok := status.FromError(err)
	if !ok {
		return err.Error()
	}
	msg := st.Message()
	k := KindOf(err)
	prefix := string(k) + ": "
	if len(msg) >= len(prefix) && msg[:len(prefix)] == prefix {
		return msg[len(prefix):]
	}
	return msg
}
