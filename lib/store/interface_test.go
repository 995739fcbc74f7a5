package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/ValentinKolb/eeKV/lib/db"
	"github.com/ValentinKolb/eeKV/lib/emeeprom"
)

func TestFromError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code RetCode
	}{
		{"wrapped no such object", fmt.Errorf("eekv: %w", db.ErrNoSuchObject), RetCNoSuchObject},
		{"no space", db.ErrNoSpace, RetCNoSpace},
		{"engine checksum", fmt.Errorf("read: %w", emeeprom.ErrBadChecksum), RetCBadChecksum},
		{"engine write fail", emeeprom.ErrWriteFail, RetCWriteFail},
		{"unknown", errors.New("boom"), RetCInternalError},
		{"store error", NewError(RetCUnsupportedOperation, "nope"), RetCUnsupportedOperation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromError(tt.err)
			if got == nil || got.Code != tt.code {
				t.Fatalf("FromError(%v) = %v, want code %s", tt.err, got, tt.code)
			}
		})
	}

	if FromError(nil) != nil {
		t.Fatal("FromError(nil) must be nil")
	}
}

func TestErrorUnwrap(t *testing.T) {
	// a bare code, as rebuilt by a client, still matches the db sentinel
	var err error = NewError(RetCNoSpace, "remote")
	if !errors.Is(err, db.ErrNoSpace) {
		t.Fatalf("expected %v to match db.ErrNoSpace", err)
	}
	if errors.Is(err, db.ErrNoSuchObject) {
		t.Fatalf("%v must not match db.ErrNoSuchObject", err)
	}
	if errors.Unwrap(NewError(RetCInternalError, "x")) != nil {
		t.Fatal("internal errors have no db counterpart")
	}
}
