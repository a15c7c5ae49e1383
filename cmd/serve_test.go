package cmd

import (
	"context"
	"testing"
	"time"
)

func TestHealthService(t *testing.T) {
	h := &healthService{}
	if err := h.Check(context.Background()); err != nil {
		t.Fatalf("expected healthy, got %v", err)
	}
	if err := h.Ready(context.Background()); err != nil {
		t.Fatalf("expected ready, got %v", err)
	}

	h.draining.Store(true)
	if err := h.Check(context.Background()); err != nil {
		t.Fatalf("draining server is still healthy, got %v", err)
	}
	if err := h.Ready(context.Background()); err == nil {
		t.Fatal("expected draining server not to be ready")
	}
}

func TestServeCommand_Flags(t *testing.T) {
	resetCLIState(t)

	flags := serveCmd.Flags()
	for _, name := range []string{"addr", "auth-token", "shutdown-timeout", "cors-origins", "rate-limit", "rate-burst", "max-jobs"} {
		if flags.Lookup(name) == nil {
			t.Errorf("expected serve flag --%s", name)
		}
	}
	if got, _ := flags.GetDuration("shutdown-timeout"); got != 30*time.Second {
		t.Errorf("unexpected shutdown timeout default %v", got)
	}
	if cliConfig.Serve.Addr != defaultServeAddr {
		t.Errorf("unexpected default addr %s", cliConfig.Serve.Addr)
	}
}
