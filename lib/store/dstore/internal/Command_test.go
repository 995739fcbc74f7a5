package internal

import (
	"bytes"
	"testing"

	"github.com/ValentinKolb/eeKV/lib/db"
)

// TestSerializeLayout checks the byte layout of serialized commands
func TestSerializeLayout(t *testing.T) {
	tests := []struct {
		name     string
		command  Command
		expected []byte
	}{
		{
			name:     "Store with value",
			command:  Command{Type: CommandTStore, Key: 0x10, Value: []byte("abc")},
			expected: []byte{byte(CommandTStore), 0x10, 'a', 'b', 'c'},
		},
		{
			name:     "Delete without value",
			command:  Command{Type: CommandTDelete, Key: 0x22},
			expected: []byte{byte(CommandTDelete), 0x22},
		},
		{
			name:     "Erase",
			command:  Command{Type: CommandTErase},
			expected: []byte{byte(CommandTErase), 0x00},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if size := tt.command.SizeBytes(); size != len(tt.expected) {
				t.Errorf("SizeBytes() = %v, want %v", size, len(tt.expected))
			}
			if got := tt.command.Serialize(); !bytes.Equal(got, tt.expected) {
				t.Errorf("Serialize() = %v, want %v", got, tt.expected)
			}
		})
	}
}

// TestDeserialize tests decoding and buffer reuse
func TestDeserialize(t *testing.T) {
	var cmd Command
	if err := cmd.Deserialize([]byte{byte(CommandTStore)}); err == nil {
		t.Fatal("Expected error for truncated command")
	}

	if err := cmd.Deserialize([]byte{byte(CommandTStore), 7, 1, 2, 3, 4}); err != nil {
		t.Fatalf("Deserialize failed: %v", err)
	}
	if cmd.Type != CommandTStore || cmd.Key != 7 || !bytes.Equal(cmd.Value, []byte{1, 2, 3, 4}) {
		t.Fatalf("unexpected command %+v", cmd)
	}
	buf := cmd.Value

	// a shorter value reuses the buffer
	if err := cmd.Deserialize([]byte{byte(CommandTStore), 8, 9}); err != nil {
		t.Fatalf("Deserialize failed: %v", err)
	}
	if &cmd.Value[0] != &buf[0] {
		t.Error("Expected the value buffer to be reused")
	}

	if err := cmd.Deserialize([]byte{byte(CommandTFormat), 0}); err != nil {
		t.Fatalf("Deserialize failed: %v", err)
	}
	if cmd.Value != nil {
		t.Errorf("Expected nil value, got %v", cmd.Value)
	}
}

// TestToDBFeature tests the mapping of command types to database features
func TestToDBFeature(t *testing.T) {
	tests := []struct {
		commandType CommandType
		feature     db.Feature
	}{
		{CommandTStore, db.FeatureStore},
		{CommandTDelete, db.FeatureDelete},
		{CommandTFormat, db.FeatureFormat},
		{CommandTErase, db.FeatureErase},
	}
	for _, tt := range tests {
		t.Run(tt.commandType.String(), func(t *testing.T) {
			feat, err := tt.commandType.ToDBFeature()
			if err != nil || feat != tt.feature {
				t.Errorf("ToDBFeature() = %v, %v, want %v", feat, err, tt.feature)
			}
		})
	}

	if _, err := CommandType(200).ToDBFeature(); err == nil {
		t.Error("Expected error for unknown command type")
	}
}
