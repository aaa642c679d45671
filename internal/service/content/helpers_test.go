package content

import (
	"io"
	"log/slog"
	"testing"

	"gavelogy/internal/entities"
	"gavelogy/internal/repository/memory"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestLedger(t *testing.T) (*Ledger, *memory.Gateway, *entities.Registry) {
	t.Helper()
	registry, err := entities.NewRegistry()
	if err != nil {
		t.Fatal(err)
	}
	gw := memory.NewGateway()
	return NewLedger(gw, registry, testLogger()), gw, registry
}

func strPtr(s string) *string { return &s }
