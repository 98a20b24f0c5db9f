package providers

import (
	"errors"
	"fmt"
	"sync"
	"testing"
)

func TestRegistry_RegisterAndGet(t *testing.T) {
	registry := NewRegistry()
	provider := newFakeProvider("openai")

	if err := registry.Register(provider); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	got, err := registry.Get("openai")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != provider {
		t.Error("Get() returned a different provider")
	}
	if registry.Count() != 1 {
		t.Errorf("Count() = %d, want 1", registry.Count())
	}
}

func TestRegistry_GetUnknown(t *testing.T) {
	registry := NewRegistry()

	_, err := registry.Get("missing")
	if !errors.Is(err, ErrProviderNotFound) {
		t.Errorf("Get() error = %v, want ErrProviderNotFound", err)
	}
}

func TestRegistry_RegisterDuplicate(t *testing.T) {
	registry := NewRegistry()

	if err := registry.Register(newFakeProvider("openai")); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	err := registry.Register(newFakeProvider("openai"))
	if !errors.Is(err, ErrProviderAlreadyRegistered) {
		t.Errorf("Register() error = %v, want ErrProviderAlreadyRegistered", err)
	}
	if registry.Count() != 1 {
		t.Errorf("Count() = %d, want 1 after rejected duplicate", registry.Count())
	}
}

func TestRegistry_RegisterInvalid(t *testing.T) {
	registry := NewRegistry()

	if err := registry.Register(nil); err == nil {
		t.Error("Register(nil) should fail")
	}
	if err := registry.Register(newFakeProvider("")); err == nil {
		t.Error("Register() with empty name should fail")
	}
	if registry.Count() != 0 {
		t.Errorf("Count() = %d, want 0", registry.Count())
	}
}

func TestRegistry_NamesPreserveOrder(t *testing.T) {
	registry := NewRegistry()
	for _, name := range []string{"openai", "groq", "together"} {
		if err := registry.Register(newFakeProvider(name)); err != nil {
			t.Fatalf("Register(%s) error = %v", name, err)
		}
	}

	names := registry.Names()
	want := []string{"openai", "groq", "together"}
	if len(names) != len(want) {
		t.Fatalf("Names() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Names()[%d] = %s, want %s", i, names[i], want[i])
		}
	}

	// mutating the copy must not touch the registry
	names[0] = "mutated"
	if registry.Names()[0] != "openai" {
		t.Error("Names() must return a copy")
	}
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	registry := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			registry.Register(newFakeProvider(fmt.Sprintf("provider-%d", i)))
		}(i)
	}
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			registry.Names()
			registry.Count()
			registry.Get("provider-0")
		}()
	}
	wg.Wait()

	if registry.Count() != 10 {
		t.Errorf("Count() = %d, want 10", registry.Count())
	}
}
