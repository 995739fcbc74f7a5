package internal

import (
	"fmt"

	"github.com/ValentinKolb/eeKV/lib/db"
)

// CommandType defines the possible operations for the state machine.
type CommandType uint8

const (
	CommandTStore  CommandType = iota // Create or replace an object.
	CommandTDelete                    // Delete an object.
	CommandTFormat                    // Write an empty log.
	CommandTErase                     // Erase the device.
)

func (ct CommandType) String() string {
	switch ct {
	case CommandTStore:
		return "Store"
	case CommandTDelete:
		return "Delete"
	case CommandTFormat:
		return "Format"
	case CommandTErase:
		return "Erase"
	default:
		return fmt.Sprintf("Unknown(%d)", ct)
	}
}

// ToDBFeature converts a CommandType to the corresponding db.Feature.
// This can be used for checking if the database supports a certain operation.
func (ct CommandType) ToDBFeature() (db.Feature, error) {
	switch ct {
	case CommandTStore:
		return db.FeatureStore, nil
	case CommandTDelete:
		return db.FeatureDelete, nil
	case CommandTFormat:
		return db.FeatureFormat, nil
	case CommandTErase:
		return db.FeatureErase, nil
	default:
		return 0, fmt.Errorf("unknown command type %d", ct)
	}
}

// Command represents a command to be executed by the state machine (a single entry in the raft log)
type Command struct {
	Type  CommandType
	Key   db.Key
	Value []byte
}

// commandHeaderSize is the size of type and key
const commandHeaderSize = 2

// SizeBytes returns the exact number of bytes needed to serialize this command
func (command *Command) SizeBytes() int {
	return commandHeaderSize + len(command.Value)
}

// Serialize serializes a command into a byte array with the format:
// 1 byte for operation type,
// 1 byte for the key,
// N bytes for value data (optional)
func (command *Command) Serialize() []byte {
	result := make([]byte, command.SizeBytes())
	result[0] = byte(command.Type)
	result[1] = byte(command.Key)
	copy(result[commandHeaderSize:], command.Value)
	return result
}

// Deserialize extracts all Command fields from a byte array.
// A command without value bytes yields a nil Value.
func (command *Command) Deserialize(data []byte) error {
	if len(data) < commandHeaderSize {
		return fmt.Errorf("data too short for command")
	}

	command.Type = CommandType(data[0])
	command.Key = db.Key(data[1])

	if valueLen := len(data) - commandHeaderSize; valueLen > 0 {
		// Reuse existing buffer if possible to reduce allocations
		if cap(command.Value) < valueLen {
			command.Value = make([]byte, valueLen)
		} else {
			command.Value = command.Value[:valueLen]
		}
		copy(command.Value, data[commandHeaderSize:])
	} else {
		command.Value = nil
	}
	return nil
}
