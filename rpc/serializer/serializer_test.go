package serializer

import (
	"reflect"
	"testing"

	"github.com/ValentinKolb/eeKV/lib/store"
	"github.com/ValentinKolb/eeKV/rpc/common"
)

// testSerializers is a map of serializer name to factory function
var testSerializers = map[string]func() IRPCSerializer{
	"JSON":   NewJSONSerializer,
	"GOB":    NewGOBSerializer,
	"Binary": NewBinarySerializer,
}

// testMessages returns one message per field combination used by the protocol.
// Byte fields are either nil or non-empty since JSON and GOB drop empty slices.
func testMessages() []common.Message {
	return []common.Message{
		{MsgType: common.MsgTSuccess},
		{MsgType: common.MsgTObjStore, Key: 7, Value: []byte("object payload")},
		{MsgType: common.MsgTObjGet, Value: []byte{0, 1, 2, 0xff}, Ok: true},
		{MsgType: common.MsgTObjFind, Key: 3, Addr: 12, Size: 40, Ok: true},
		{MsgType: common.MsgTObjDelete, Code: uint64(store.RetCNoSuchObject), Err: "no such object"},
		{MsgType: common.MsgTObjList, Meta: []byte(`[{"key":1,"offset":4,"size":3}]`)},
		{MsgType: common.MsgTEEPRead, Addr: 0x100, Size: 64},
		{MsgType: common.MsgTEEPRead, Value: []byte("data"), Code: uint64(store.RetCRedundantCopyUsed), Err: "redundant copy used"},
		{MsgType: common.MsgTEEPNumWrites, Size: 1 << 20},
		{
			MsgType: common.MsgTCustom,
			Key:     0xfe,
			Addr:    0xffffffff,
			Size:    1,
			Value:   []byte("v"),
			Ok:      true,
			Code:    1 << 40,
			Err:     "all fields",
			Meta:    []byte("m"),
		},
	}
}

// TestSerializerRoundTrip tests that messages can be serialized and deserialized correctly
func TestSerializerRoundTrip(t *testing.T) {
	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			for i, msg := range testMessages() {
				data, err := serializer.Serialize(msg)
				if err != nil {
					t.Errorf("Failed to serialize message %d: %v", i, err)
					continue
				}

				var result common.Message
				if err := serializer.Deserialize(data, &result); err != nil {
					t.Errorf("Failed to deserialize message %d: %v", i, err)
					continue
				}

				if !reflect.DeepEqual(msg, result) {
					t.Errorf("Message %d doesn't match after round trip:\nOriginal: %+v\nResult: %+v", i, msg, result)
				}
			}
		})
	}
}

// TestBinaryKeepsEmptyValue checks that an empty object survives the binary format as empty, not absent
func TestBinaryKeepsEmptyValue(t *testing.T) {
	serializer := NewBinarySerializer()

	data, err := serializer.Serialize(common.Message{MsgType: common.MsgTObjGet, Value: []byte{}, Ok: true})
	if err != nil {
		t.Fatalf("Failed to serialize: %v", err)
	}

	var result common.Message
	if err := serializer.Deserialize(data, &result); err != nil {
		t.Fatalf("Failed to deserialize: %v", err)
	}
	if result.Value == nil || len(result.Value) != 0 {
		t.Errorf("expected empty non nil value, got %#v", result.Value)
	}
	if !result.Ok {
		t.Error("Ok lost")
	}
}

// TestBinaryResetsReusedMessage checks that fields of a reused message do not leak into the next one
func TestBinaryResetsReusedMessage(t *testing.T) {
	serializer := NewBinarySerializer()

	full, _ := serializer.Serialize(testMessages()[len(testMessages())-1])
	empty, _ := serializer.Serialize(common.Message{MsgType: common.MsgTSuccess})

	var msg common.Message
	if err := serializer.Deserialize(full, &msg); err != nil {
		t.Fatalf("Failed to deserialize: %v", err)
	}
	if err := serializer.Deserialize(empty, &msg); err != nil {
		t.Fatalf("Failed to deserialize: %v", err)
	}
	if !reflect.DeepEqual(msg, common.Message{MsgType: common.MsgTSuccess}) {
		t.Errorf("stale fields after reuse: %+v", msg)
	}
}

// TestInvalidBinaryData tests how the binary serializer handles corrupt or invalid data
func TestInvalidBinaryData(t *testing.T) {
	serializer := NewBinarySerializer()

	testCases := []struct {
		name        string
		data        []byte
		expectError bool
	}{
		{"Empty data", []byte{}, true},
		{"Too short header", []byte{1}, true},
		{"Valid header only", []byte{1, 0}, false},
		{"Missing key", []byte{1, hasKey}, true},
		{"Short addr", []byte{1, hasAddr, 0, 0, 1}, true},
		{"Invalid length for value", []byte{1, hasValue, 0, 0, 0, 10}, true},
		{"Invalid length for meta", []byte{1, hasMeta, 0xff, 0xff, 0xff, 0xff, 'x'}, true},
		{"Trailing bytes", []byte{1, hasKey, 5, 6}, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var msg common.Message
			err := serializer.Deserialize(tc.data, &msg)

			if tc.expectError && err == nil {
				t.Errorf("Expected error but got none")
			} else if !tc.expectError && err != nil {
				t.Errorf("Did not expect error but got: %v", err)
			}
		})
	}
}
