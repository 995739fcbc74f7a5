package serializer

import (
	"testing"

	"github.com/ValentinKolb/eeKV/lib/store"
	"github.com/ValentinKolb/eeKV/rpc/common"
)

// benchmarkMessages returns a set of messages for targeted benchmarking
func benchmarkMessages() map[string]common.Message {
	return map[string]common.Message{
		"Empty": {
			MsgType: common.MsgTSuccess,
		},
		"GetRequest": {
			MsgType: common.MsgTObjGet,
			Key:     1,
		},
		"SmallObject": {
			MsgType: common.MsgTObjStore,
			Key:     1,
			Value:   []byte("v"),
		},
		"RowSizedObject": {
			MsgType: common.MsgTObjStore,
			Key:     1,
			Value:   make([]byte, 128),
		},
		"LargeEEPROMWrite": {
			MsgType: common.MsgTEEPWrite,
			Addr:    0x40,
			Value:   make([]byte, 4096),
		},
		"FindResponse": {
			MsgType: common.MsgTObjFind,
			Key:     9,
			Addr:    1024,
			Size:    512,
			Ok:      true,
		},
		"ErrorMessage": {
			MsgType: common.MsgTObjStore,
			Code:    uint64(store.RetCNoSpace),
			Err:     "eekv: object 9 needs 517 bytes, 311 free: no space left in store",
		},
		"ListResponse": {
			MsgType: common.MsgTObjList,
			Meta:    []byte(`[{"key":1,"offset":4,"size":3},{"key":2,"offset":12,"size":100},{"key":3,"offset":117,"size":40}]`),
		},
	}
}

// BenchmarkSerialize benchmarks serialization for all implementations with various message types
func BenchmarkSerialize(b *testing.B) {
	messages := benchmarkMessages()

	for name, factory := range testSerializers {
		for msgName, msg := range messages {
			b.Run(name+"_"+msgName, func(b *testing.B) {
				serializer := factory()
				b.ResetTimer()

				for i := 0; i < b.N; i++ {
					if _, err := serializer.Serialize(msg); err != nil {
						b.Fatalf("Failed to serialize: %v", err)
					}
				}
			})
		}
	}
}

// BenchmarkDeserialize benchmarks deserialization for all implementations with various message types
func BenchmarkDeserialize(b *testing.B) {
	messages := benchmarkMessages()

	for name, factory := range testSerializers {
		for msgName, msg := range messages {
			b.Run(name+"_"+msgName, func(b *testing.B) {
				serializer := factory()
				data, err := serializer.Serialize(msg)
				if err != nil {
					b.Fatalf("Failed to serialize %s: %v", msgName, err)
				}
				b.ReportMetric(float64(len(data)), "bytes")
				b.ResetTimer()

				for i := 0; i < b.N; i++ {
					var out common.Message
					if err := serializer.Deserialize(data, &out); err != nil {
						b.Fatalf("Failed to deserialize: %v", err)
					}
				}
			})
		}
	}
}
