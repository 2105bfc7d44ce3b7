package gdtf

import "testing"

func testProfile(name string, source Source) *Profile {
	return &Profile{
		Name:   name,
		Source: source,
		Modes: []Mode{
			{Name: "Default", Channels: []Channel{{Attribute: "Dimmer", Offset: 0, Resolution: Resolution8Bit}}},
		},
	}
}

func TestRegistryIterationOrder(t *testing.T) {
	r := NewRegistry()
	r.Add(testProfile("Zeta Spot", SourceExternal))
	r.Add(testProfile("Beam One", SourceEmbedded))
	r.Add(testProfile("Alpha Wash", SourceExternal))
	r.Add(testProfile("Wash Pro", SourceEmbedded))

	// Embedded before external, each partition alphabetical.
	want := []string{"Beam One", "Wash Pro", "Alpha Wash", "Zeta Spot"}
	got := r.Names()
	if len(got) != len(want) {
		t.Fatalf("Names() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Names() = %v, want %v", got, want)
		}
	}
}

func TestRegistryGetPrefersEmbedded(t *testing.T) {
	r := NewRegistry()
	external := testProfile("Same Name", SourceExternal)
	embedded := testProfile("Same Name", SourceEmbedded)
	r.Add(external)
	r.Add(embedded)

	got, ok := r.Get("Same Name")
	if !ok || got != embedded {
		t.Error("Get() should prefer the embedded partition")
	}
}

func TestRegistryGetMissing(t *testing.T) {
	r := NewRegistry()
	if _, ok := r.Get("nope"); ok {
		t.Error("Get() should report missing profiles")
	}
}

func TestRegistryMerge(t *testing.T) {
	a := NewRegistry()
	a.Add(testProfile("One", SourceEmbedded))

	b := NewRegistry()
	b.Add(testProfile("Two", SourceExternal))

	a.Merge(b)
	if a.Len() != 2 {
		t.Errorf("merged registry has %d profiles, want 2", a.Len())
	}
	a.Merge(nil) // no-op
	if a.Len() != 2 {
		t.Error("Merge(nil) should be a no-op")
	}
}
