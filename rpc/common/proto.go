package common

import (
	"encoding/json"
	"fmt"
)

// --------------------------------------------------------------------------
// Message Structure
// --------------------------------------------------------------------------

// Message represents a single message used for both requests and responses.
// Which fields are used depends on the type of message.
type Message struct {
	// Type of message
	MsgType MessageType `json:"msg_type"`

	// General fields
	Name  string `json:"name,omitempty"`  // Name of the map or lock the operation targets
	Key   string `json:"key,omitempty"`   // Used for: all map operations except Size and Clear, Acquire, Release
	Value []byte `json:"value,omitempty"` // Used for: Put (request), Get (response), Remove (response)
	TTL   uint64 `json:"ttl,omitempty"`   // Time to live in milliseconds. Used for: PutTTL, PutIfAbsent, Acquire
	Owner string `json:"owner,omitempty"` // Used for: Acquire (response), Release (request)

	// Response only fields
	Ok    bool   `json:"ok,omitempty"`    // Used for: Get, ContainsKey, PutIfAbsent, Remove, Acquire, Release responses
	Count uint64 `json:"count,omitempty"` // Used for: Size responses
	Err   string `json:"err,omitempty"`   // Empty if no error, otherwise contains the error message
}

// setErr stores the message of err in the response (if any)
func (m *Message) setErr(err error) *Message {
	if err != nil {
		m.Err = err.Error()
	}
	return m
}

// --------------------------------------------------------------------------
// Message Factory Functions (map)
// --------------------------------------------------------------------------

// NewPutRequest creates a new Put request
func NewPutRequest(name, key string, value []byte) *Message {
	return &Message{
		MsgType: MsgTMapPut,
		Name:    name,
		Key:     key,
		Value:   value,
	}
}

// NewPutResponse creates a new Put response
func NewPutResponse(err error) *Message {
	return (&Message{MsgType: MsgTMapPut}).setErr(err)
}

// NewPutTTLRequest creates a new PutTTL request, ttl is in milliseconds
func NewPutTTLRequest(name, key string, value []byte, ttl uint64) *Message {
	return &Message{
		MsgType: MsgTMapPutTTL,
		Name:    name,
		Key:     key,
		Value:   value,
		TTL:     ttl,
	}
}

// NewPutTTLResponse creates a new PutTTL response
func NewPutTTLResponse(err error) *Message {
	return (&Message{MsgType: MsgTMapPutTTL}).setErr(err)
}

// NewPutIfAbsentRequest creates a new PutIfAbsent request, ttl is in milliseconds (0 = no ttl)
func NewPutIfAbsentRequest(name, key string, value []byte, ttl uint64) *Message {
	return &Message{
		MsgType: MsgTMapPutIfAbsent,
		Name:    name,
		Key:     key,
		Value:   value,
		TTL:     ttl,
	}
}

// NewPutIfAbsentResponse creates a new PutIfAbsent response
func NewPutIfAbsentResponse(stored bool, err error) *Message {
	return (&Message{MsgType: MsgTMapPutIfAbsent, Ok: stored}).setErr(err)
}

// NewGetRequest creates a new Get request
func NewGetRequest(name, key string) *Message {
	return &Message{
		MsgType: MsgTMapGet,
		Name:    name,
		Key:     key,
	}
}

// NewGetResponse creates a new Get response
func NewGetResponse(value []byte, ok bool, err error) *Message {
	return (&Message{MsgType: MsgTMapGet, Value: value, Ok: ok}).setErr(err)
}

// NewContainsKeyRequest creates a new ContainsKey request
func NewContainsKeyRequest(name, key string) *Message {
	return &Message{
		MsgType: MsgTMapContainsKey,
		Name:    name,
		Key:     key,
	}
}

// NewContainsKeyResponse creates a new ContainsKey response
func NewContainsKeyResponse(ok bool, err error) *Message {
	return (&Message{MsgType: MsgTMapContainsKey, Ok: ok}).setErr(err)
}

// NewRemoveRequest creates a new Remove request
func NewRemoveRequest(name, key string) *Message {
	return &Message{
		MsgType: MsgTMapRemove,
		Name:    name,
		Key:     key,
	}
}

// NewRemoveResponse creates a new Remove response
func NewRemoveResponse(removed bool, err error) *Message {
	return (&Message{MsgType: MsgTMapRemove, Ok: removed}).setErr(err)
}

// NewSizeRequest creates a new Size request
func NewSizeRequest(name string) *Message {
	return &Message{
		MsgType: MsgTMapSize,
		Name:    name,
	}
}

// NewSizeResponse creates a new Size response
func NewSizeResponse(count uint64, err error) *Message {
	return (&Message{MsgType: MsgTMapSize, Count: count}).setErr(err)
}

// NewClearRequest creates a new Clear request
func NewClearRequest(name string) *Message {
	return &Message{
		MsgType: MsgTMapClear,
		Name:    name,
	}
}

// NewClearResponse creates a new Clear response
func NewClearResponse(err error) *Message {
	return (&Message{MsgType: MsgTMapClear}).setErr(err)
}

// --------------------------------------------------------------------------
// Message Factory Functions (lock)
// --------------------------------------------------------------------------

// NewAcquireRequest creates a new Acquire request, ttl is in milliseconds (0 = held until released)
func NewAcquireRequest(name, key string, ttl uint64) *Message {
	return &Message{
		MsgType: MsgTLockAcquire,
		Name:    name,
		Key:     key,
		TTL:     ttl,
	}
}

// NewAcquireResponse creates a new Acquire response
func NewAcquireResponse(ok bool, owner string, err error) *Message {
	return (&Message{MsgType: MsgTLockAcquire, Ok: ok, Owner: owner}).setErr(err)
}

// NewReleaseRequest creates a new Release request
func NewReleaseRequest(name, key, owner string) *Message {
	return &Message{
		MsgType: MsgTLockRelease,
		Name:    name,
		Key:     key,
		Owner:   owner,
	}
}

// NewReleaseResponse creates a new Release response
func NewReleaseResponse(ok bool, err error) *Message {
	return (&Message{MsgType: MsgTLockRelease, Ok: ok}).setErr(err)
}

// NewErrorResponse creates a new Error response
func NewErrorResponse(err string) *Message {
	return &Message{
		MsgType: MsgTError,
		Err:     err,
	}
}

// --------------------------------------------------------------------------
// Message Type Definition
// --------------------------------------------------------------------------

// MessageType defines the type of message used in RPC communication.
type MessageType uint8

var messageTypeNames = map[MessageType]string{
	MsgTSuccess:        "success",
	MsgTError:          "error",
	MsgTMapPut:         "put",
	MsgTMapPutTTL:      "putTTL",
	MsgTMapPutIfAbsent: "putIfAbsent",
	MsgTMapGet:         "get",
	MsgTMapContainsKey: "containsKey",
	MsgTMapRemove:      "remove",
	MsgTMapSize:        "size",
	MsgTMapClear:       "clear",
	MsgTLockAcquire:    "acquire",
	MsgTLockRelease:    "release",
}

// String returns the string representation of a MessageType.
func (t MessageType) String() string {
	if name, ok := messageTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// MarshalJSON implements the json.Marshaller interface for MessageType.
// This allows MessageType to be serialized as a string in JSON.
func (t MessageType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for MessageType.
// This allows MessageType to be deserialized from a string in JSON.
func (t *MessageType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	for msgType, name := range messageTypeNames {
		if name == s {
			*t = msgType
			return nil
		}
	}
	return fmt.Errorf("unknown message type: %s", s)
}

// --------------------------------------------------------------------------
// Message Type Constants
// --------------------------------------------------------------------------

const (
	// General message types

	MsgTUnknown MessageType = iota
	MsgTSuccess             // Indicates a successful operation
	MsgTError               // Indicates an error occurred

	// IMap operations

	MsgTMapPut         // Put a key-value pair
	MsgTMapPutTTL      // Put a key-value pair with a time to live
	MsgTMapPutIfAbsent // Put a key-value pair if the key is not present
	MsgTMapGet         // Get a value by key
	MsgTMapContainsKey // Check if a key exists
	MsgTMapRemove      // Remove a key-value pair
	MsgTMapSize        // Number of entries in a map
	MsgTMapClear       // Remove all entries of a map

	// ILock operations

	MsgTLockAcquire // Acquire a lock
	MsgTLockRelease // Release a lock
)
