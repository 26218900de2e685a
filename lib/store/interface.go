package store

import (
	"fmt"
	"time"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// IStore gives access to named maps. Maps are created on first use and
// GetMap always returns a map for the name (an empty one if nothing was stored yet).
type IStore interface {
	GetMap(name string) IMap
}

// IMap is the interface of a distributed map.
// A ttl of 0 means the entry never expires. Expired entries behave exactly
// like removed ones for all operations.
type IMap interface {
	// Put inserts or updates a key–value pair. A previous ttl of the key is dropped.
	Put(key string, value []byte) (err error)
	// PutTTL inserts or updates a key–value pair that is removed once ttl has passed.
	PutTTL(key string, value []byte, ttl time.Duration) (err error)
	// PutIfAbsent inserts a key–value pair only if the key does not exist.
	// stored reports whether the value was inserted.
	PutIfAbsent(key string, value []byte, ttl time.Duration) (stored bool, err error)
	// Get returns the value for a key. The boolean return value indicates whether a value for the key was found.
	Get(key string) (value []byte, loaded bool, err error)
	// ContainsKey returns whether a key exists in the map.
	ContainsKey(key string) (loaded bool, err error)
	// Remove deletes a key–value pair and reports whether the key existed.
	Remove(key string) (removed bool, err error)
	// Size returns the number of entries in the map.
	Size() (count int, err error)
	// Clear removes all entries of the map.
	Clear() (err error)
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is a custom error type that wraps a return code (of type RetCode)
// and an error message.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message.
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("MapError (code %s): %s", e.Code, e.Msg)
}

// NewError creates a new Error with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess          RetCode = iota // 0: Command executed successfully.
	RetCInternalError                   // 1: Command failed due to an internal error.
	RetCInvalidOperation                // 2: Invalid operation (e.g. an empty key).
)

func (c RetCode) String() string {
	switch c {
	case RetCSuccess:
		return "Success"
	case RetCInternalError:
		return "InternalError"
	case RetCInvalidOperation:
		return "InvalidOperation"
	default:
		return "Unknown"
	}
}
