package validators

import (
	"errors"
	"testing"

	"go.mongodb.org/mongo-driver/mongo"
)

func TestUnsupported(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"command not found", mongo.CommandError{Code: 59, Message: "no such cmd: collMod"}, true},
		{"not implemented", mongo.CommandError{Code: 115}, true},
		{"message only", errors.New("Feature not supported: validator"), true},
		{"namespace exists", mongo.CommandError{Code: 48, Message: "collection already exists"}, false},
		{"auth failure", mongo.CommandError{Code: 13, Message: "not authorized"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := unsupported(tt.err); got != tt.want {
				t.Errorf("unsupported(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestSchemasCoverEveryCollection(t *testing.T) {
	seen := map[string]bool{}
	for _, cs := range schemas() {
		if seen[cs.name] {
			t.Errorf("collection %q listed twice", cs.name)
		}
		seen[cs.name] = true
	}
	for _, want := range []string{"users", "pending_applicants", "applicants", "audit_events"} {
		if !seen[want] {
			t.Errorf("collection %q has no entry", want)
		}
	}
}
