package common

import (
	"encoding/json"
	"fmt"

	"github.com/ValentinKolb/eeKV/lib/db"
	"github.com/ValentinKolb/eeKV/lib/store"
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
	Key   uint8  `json:"key,omitempty"`   // Used for: Store, Get, Find, Delete
	Addr  uint32 `json:"addr,omitempty"`  // Used for: EEPROM Read and Write (request), Find (response offset)
	Size  uint32 `json:"size,omitempty"`  // Used for: EEPROM Read (request length), Find (response size), NumWrites (response)
	Value []byte `json:"value,omitempty"` // Used for: Store and EEPROM Write (request), Get and EEPROM Read (response)

	// Response only fields
	Ok   bool   `json:"ok,omitempty"`   // Used for: Get and Find responses
	Code uint64 `json:"code,omitempty"` // store.RetCode of the failure, 0 on success
	Err  string `json:"err,omitempty"`  // Empty if no error, otherwise contains the error message

	// Meta information
	Meta []byte `json:"meta,omitempty"` // JSON payload of List, Info and Rows responses
}

// SetError stores err in the response fields. A nil err clears them.
func (m *Message) SetError(err error) {
	se := store.FromError(err)
	if se == nil {
		m.Code, m.Err = 0, ""
		return
	}
	m.Code, m.Err = uint64(se.Code), se.Msg
}

// Error rebuilds the error carried by a response. It returns nil for a successful response.
func (m *Message) Error() error {
	if m.Code == 0 && m.Err == "" && m.MsgType != MsgTError {
		return nil
	}
	code := store.RetCode(m.Code)
	if code == store.RetCSuccess {
		code = store.RetCInternalError
	}
	return store.NewError(code, m.Err)
}

// DecodeMeta unmarshals the JSON meta payload of a response into v.
func (m *Message) DecodeMeta(v interface{}) error {
	if len(m.Meta) == 0 {
		return fmt.Errorf("response of type %s carries no meta data", m.MsgType)
	}
	return json.Unmarshal(m.Meta, v)
}

// --------------------------------------------------------------------------
// Message Factory Functions
// --------------------------------------------------------------------------

// NewRequest creates a request without parameters (List, Format, Erase, Info and their EEPROM counterparts)
func NewRequest(t MessageType) *Message {
	return &Message{MsgType: t}
}

// NewResponse creates a response carrying only the outcome of an operation
func NewResponse(t MessageType, err error) *Message {
	msg := &Message{MsgType: t}
	msg.SetError(err)
	return msg
}

// NewMetaResponse creates a response carrying v as JSON meta payload
func NewMetaResponse(t MessageType, v interface{}, err error) *Message {
	msg := NewResponse(t, err)
	if err != nil {
		return msg
	}
	meta, mErr := json.Marshal(v)
	if mErr != nil {
		msg.SetError(fmt.Errorf("encode %s response: %w", t, mErr))
		return msg
	}
	msg.Meta = meta
	return msg
}

// NewErrorResponse creates a new Error response
func NewErrorResponse(err string) *Message {
	return &Message{
		MsgType: MsgTError,
		Code:    uint64(store.RetCInternalError),
		Err:     err,
	}
}

// NewStoreRequest creates a new Store request
func NewStoreRequest(key db.Key, value []byte) *Message {
	return &Message{
		MsgType: MsgTObjStore,
		Key:     uint8(key),
		Value:   value,
	}
}

// NewGetRequest creates a new Get request
func NewGetRequest(key db.Key) *Message {
	return &Message{
		MsgType: MsgTObjGet,
		Key:     uint8(key),
	}
}

// NewGetResponse creates a new Get response
func NewGetResponse(value []byte, ok bool, err error) *Message {
	msg := NewResponse(MsgTObjGet, err)
	msg.Ok = ok
	msg.Value = value
	return msg
}

// NewFindRequest creates a new Find request
func NewFindRequest(key db.Key) *Message {
	return &Message{
		MsgType: MsgTObjFind,
		Key:     uint8(key),
	}
}

// NewFindResponse creates a new Find response
func NewFindResponse(info db.ObjectInfo, ok bool, err error) *Message {
	msg := NewResponse(MsgTObjFind, err)
	msg.Ok = ok
	msg.Key = uint8(info.Key)
	msg.Addr = info.Offset
	msg.Size = info.Size
	return msg
}

// NewDeleteRequest creates a new Delete request
func NewDeleteRequest(key db.Key) *Message {
	return &Message{
		MsgType: MsgTObjDelete,
		Key:     uint8(key),
	}
}

// NewEEPROMReadRequest creates a request reading n bytes at addr
func NewEEPROMReadRequest(addr, n uint32) *Message {
	return &Message{
		MsgType: MsgTEEPRead,
		Addr:    addr,
		Size:    n,
	}
}

// NewEEPROMReadResponse creates a read response. The data is returned even if err is set,
// since the engine fills the buffer for checksum failures and redundant copy reads.
func NewEEPROMReadResponse(data []byte, err error) *Message {
	msg := NewResponse(MsgTEEPRead, err)
	msg.Value = data
	return msg
}

// NewEEPROMWriteRequest creates a request writing data at addr
func NewEEPROMWriteRequest(addr uint32, data []byte) *Message {
	return &Message{
		MsgType: MsgTEEPWrite,
		Addr:    addr,
		Value:   data,
	}
}

// NewEEPROMNumWritesResponse creates a NumWrites response
func NewEEPROMNumWritesResponse(n uint32, err error) *Message {
	msg := NewResponse(MsgTEEPNumWrites, err)
	msg.Size = n
	return msg
}

// --------------------------------------------------------------------------
// Message Type Definition
// --------------------------------------------------------------------------

// MessageType defines the type of message used in RPC communication.
type MessageType uint8

const (
	// General message types

	MsgTUnknown MessageType = iota
	MsgTSuccess             // Indicates a successful operation
	MsgTError               // Indicates an error occurred

	// IStore operations

	MsgTObjStore  // Create or replace an object
	MsgTObjGet    // Read an object
	MsgTObjFind   // Locate an object
	MsgTObjDelete // Delete an object
	MsgTObjList   // List all objects
	MsgTObjFormat // Remove all objects
	MsgTObjErase  // Erase the device
	MsgTObjInfo   // Database info

	// Raw emulated EEPROM operations

	MsgTEEPRead      // Read bytes
	MsgTEEPWrite     // Write bytes
	MsgTEEPErase     // Erase the emulated EEPROM
	MsgTEEPNumWrites // Number of writes since the last erase
	MsgTEEPRows      // Diagnostic dump of all rows
	MsgTEEPInfo      // Derived geometry

	// Custom operations

	MsgTCustom // Custom operation type
)

var messageTypeNames = map[MessageType]string{
	MsgTUnknown:      "unknown",
	MsgTSuccess:      "success",
	MsgTError:        "error",
	MsgTObjStore:     "store",
	MsgTObjGet:       "get",
	MsgTObjFind:      "find",
	MsgTObjDelete:    "delete",
	MsgTObjList:      "list",
	MsgTObjFormat:    "format",
	MsgTObjErase:     "erase",
	MsgTObjInfo:      "info",
	MsgTEEPRead:      "eeprom-read",
	MsgTEEPWrite:     "eeprom-write",
	MsgTEEPErase:     "eeprom-erase",
	MsgTEEPNumWrites: "eeprom-num-writes",
	MsgTEEPRows:      "eeprom-rows",
	MsgTEEPInfo:      "eeprom-info",
	MsgTCustom:       "custom",
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
	for mt, name := range messageTypeNames {
		if name == s {
			*t = mt
			return nil
		}
	}
	return fmt.Errorf("unknown message type: %s", s)
}
