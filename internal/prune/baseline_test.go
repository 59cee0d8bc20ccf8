package prune

import (
	"reflect"
	"testing"
)

func TestBaselineMemoizedPerTag(t *testing.T) {
	host := newFakeHost(map[string]StyleSnapshot{
		"div": style("display", "block", "color", "rgb(0, 0, 0)"),
	})
	p := NewBaselineProvider(host)

	first := p.Baseline("div")
	second := p.Baseline("div")

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("Baseline() not stable: %v vs %v", first, second)
	}
	if got := len(host.created); got != 1 {
		t.Fatalf("CreateElement calls = %d; want 1", got)
	}
	if got := p.Misses(); got != 1 {
		t.Fatalf("Misses() = %d; want 1", got)
	}
	if host.live() != 0 {
		t.Fatalf("measurement element left attached")
	}
}

func TestBaselineCustomElementUsesFallback(t *testing.T) {
	host := newFakeHost(map[string]StyleSnapshot{
		"div": style("display", "block"),
	})
	p := NewBaselineProvider(host)

	got := p.Baseline("my-widget")
	if got.Value("display") != "block" {
		t.Fatalf("Baseline(my-widget) display = %q; want block", got.Value("display"))
	}
	p.Baseline("div")
	p.Baseline("X-Other")
	if !reflect.DeepEqual(host.created, []string{"div"}) {
		t.Fatalf("created = %v; want [div]", host.created)
	}
	if !p.Cached("another-one") {
		t.Fatalf("Cached(another-one) = false; want true")
	}
}

func TestBaselineNormalizesCase(t *testing.T) {
	host := newFakeHost(map[string]StyleSnapshot{"span": style("display", "inline")})
	p := NewBaselineProvider(host)
	p.Baseline("SPAN")
	p.Baseline("span")
	if !reflect.DeepEqual(host.created, []string{"span"}) {
		t.Fatalf("created = %v; want [span]", host.created)
	}
}

func TestBaselineDetachesOnPanic(t *testing.T) {
	host := newFakeHost(nil)
	host.panicOn = "div"
	p := NewBaselineProvider(host)

	func() {
		defer func() {
			if recover() == nil {
				t.Fatalf("expected panic from host")
			}
		}()
		p.Baseline("div")
	}()

	if host.live() != 0 {
		t.Fatalf("live elements after panic = %d; want 0", host.live())
	}
	if p.Cached("div") {
		t.Fatalf("failed measurement must not be cached")
	}
}

func TestBaselineUnknownTagAccepted(t *testing.T) {
	host := newFakeHost(map[string]StyleSnapshot{})
	p := NewBaselineProvider(host)
	got := p.Baseline("blink")
	if got.Len() != 0 {
		t.Fatalf("Baseline(blink).Len() = %d; want 0", got.Len())
	}
	if !p.Cached("blink") {
		t.Fatalf("unknown tag baseline should still be cached")
	}
}
