package extract

import (
	"strings"
	"testing"

	"github.com/chartmap/chartmap/internal/model"
)

func TestInvokeSingleNamed(t *testing.T) {
	t.Parallel()
	res := extractOne(t, `
createMachine({
  invoke: {
    id: "loader",
    src: "loadThings",
    onDone: "ready",
    onError: { target: "failed" },
  },
  states: { ready: {}, failed: {} },
});
`)
	invokes := res.Config.Invoke
	if len(invokes) != 1 {
		t.Fatalf("invokes = %d, want 1", len(invokes))
	}
	inv := invokes[0]
	if inv.ID != "loader" {
		t.Errorf("id = %q, want loader", inv.ID)
	}
	if inv.Src.Kind != model.SrcNamed || inv.Src.Name != "loadThings" {
		t.Errorf("src = %+v, want named loadThings", inv.Src)
	}
	if len(inv.OnDone) != 1 || inv.OnDone[0].Target != "ready" {
		t.Errorf("onDone = %+v, want transition to ready", inv.OnDone)
	}
	if len(inv.OnError) != 1 || inv.OnError[0].Target != "failed" {
		t.Errorf("onError = %+v, want transition to failed", inv.OnError)
	}

	// Invoke transitions surface on the owning state's targets.
	targets := res.StatesMeta[0].Targets
	if len(targets) != 2 || targets[0].Target != "ready" || targets[1].Target != "failed" {
		t.Errorf("meta targets = %+v, want [ready failed]", targets)
	}
}

func TestInvokeArrayOrderPreserved(t *testing.T) {
	t.Parallel()
	res := extractOne(t, `
createMachine({
  invoke: [
    { src: "first" },
    { src: "second" },
  ],
});
`)
	invokes := res.Config.Invoke
	if len(invokes) != 2 {
		t.Fatalf("invokes = %d, want 2", len(invokes))
	}
	if invokes[0].Src.Name != "first" || invokes[1].Src.Name != "second" {
		t.Errorf("invoke order = %q, %q", invokes[0].Src.Name, invokes[1].Src.Name)
	}
}

func TestInvokeAnonymousSources(t *testing.T) {
	t.Parallel()
	res := extractOne(t, `
createMachine({
  invoke: [
    { src: (ctx) => fetch(ctx.url) },
    { src: someService },
    { src: services.fetcher },
    { id: "bare" },
  ],
});
`)
	for i, inv := range res.Config.Invoke {
		if inv.Src.Kind != model.SrcAnonymous {
			t.Errorf("invoke[%d].Src = %+v, want anonymous placeholder", i, inv.Src)
		}
	}
}

func TestInvokeIgnoredKeys(t *testing.T) {
	t.Parallel()
	res := extractOne(t, `
createMachine({
  invoke: { src: "svc", autoForward: true, data: { a: 1 }, forward: false },
});
`)
	if len(res.Config.Invoke) != 1 {
		t.Fatalf("invokes = %d, want 1", len(res.Config.Invoke))
	}
	if res.Config.Invoke[0].Src.Name != "svc" {
		t.Errorf("src = %+v, want named svc", res.Config.Invoke[0].Src)
	}
}

func TestInvokeNonObjectFails(t *testing.T) {
	t.Parallel()
	_, _, err := parseSource(t, `createMachine({ invoke: "svc" });`, Options{})
	if err == nil {
		t.Fatal("expected shape error")
	}
	if !strings.Contains(err.Error(), "invoke") {
		t.Errorf("error %q does not name the offending key", err)
	}
}

func TestInvokeBadSrcFails(t *testing.T) {
	t.Parallel()
	_, _, err := parseSource(t, `createMachine({ invoke: { src: 42 } });`, Options{})
	if err == nil {
		t.Fatal("expected shape error")
	}
	if !strings.Contains(err.Error(), "src") {
		t.Errorf("error %q does not name the offending key", err)
	}
}

func TestInvokeNonStringIDFails(t *testing.T) {
	t.Parallel()
	_, _, err := parseSource(t, `createMachine({ invoke: { id: 7, src: "svc" } });`, Options{})
	if err == nil {
		t.Fatal("expected shape error")
	}
	if !strings.Contains(err.Error(), "id") {
		t.Errorf("error %q does not name the offending key", err)
	}
}
