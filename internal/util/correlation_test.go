package util_test

import (
	"errors"
	"testing"

	"github.com/example/order-pipeline/internal/util"
)

func TestNewCorrelationIDIsValid(t *testing.T) {
	id := util.NewCorrelationID()
	canonical, err := util.ParseCorrelationID(id)
	if err != nil {
		t.Fatalf("expected generated id to parse: %v", err)
	}
	if canonical != id {
		t.Fatalf("got %q, want canonical form %q", canonical, id)
	}
}

func TestParseCorrelationID(t *testing.T) {
	got, err := util.ParseCorrelationID(" 0f8fad5b-d9cb-469f-a165-70867728950e ")
	if err != nil {
		t.Fatalf("expected success parsing valid id: %v", err)
	}
	if got != "0f8fad5b-d9cb-469f-a165-70867728950e" {
		t.Fatalf("got %q", got)
	}

	// v1 UUID.
	if _, err := util.ParseCorrelationID("2c1f50a2-46f3-11ef-9454-0242ac120002"); !errors.Is(err, util.ErrInvalidCorrelationID) {
		t.Fatalf("expected ErrInvalidCorrelationID for non v4 id, got %v", err)
	}
	if _, err := util.ParseCorrelationID(""); !errors.Is(err, util.ErrInvalidCorrelationID) {
		t.Fatalf("expected ErrInvalidCorrelationID for empty value, got %v", err)
	}
	if _, err := util.ParseCorrelationID("not-a-uuid"); !errors.Is(err, util.ErrInvalidCorrelationID) {
		t.Fatalf("expected ErrInvalidCorrelationID, got %v", err)
	}
}
