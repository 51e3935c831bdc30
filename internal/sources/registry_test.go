package sources

import "testing"

const validYAML = `
sources:
  - domain: metrotix
    label: MetroTix
    priority: 1
  - domain: cityweekly
    label: City Weekly Calendar
    priority: 2
  - domain: eventhound
    priority: 3
`

func TestParse(t *testing.T) {
	t.Parallel()

	registry, err := Parse([]byte(validYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	all := registry.All()
	if len(all) != 3 {
		t.Fatalf("expected 3 sources, got %d", len(all))
	}
	if all[0].Domain != "metrotix" || all[2].Domain != "eventhound" {
		t.Fatalf("expected priority ordering, got %+v", all)
	}
	// A missing label falls back to the domain.
	if all[2].Label != "eventhound" {
		t.Fatalf("expected label fallback, got %q", all[2].Label)
	}
}

func TestLookupIsCaseInsensitive(t *testing.T) {
	t.Parallel()

	registry, err := Parse([]byte(validYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	src, ok := registry.Lookup(" MetroTix ")
	if !ok || src.Domain != "metrotix" {
		t.Fatalf("expected lookup to normalize the domain, got %+v ok=%t", src, ok)
	}
	if _, ok := registry.Lookup("unknown"); ok {
		t.Fatalf("expected unknown domain to miss")
	}
}

func TestPairsOrderSecondaryFirst(t *testing.T) {
	t.Parallel()

	registry, err := Parse([]byte(validYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pairs := registry.Pairs()
	if len(pairs) != 3 {
		t.Fatalf("expected 3 unordered pairs for 3 sources, got %d", len(pairs))
	}
	for _, pair := range pairs {
		secondary, primary := pair[0], pair[1]
		if secondary.Priority <= primary.Priority {
			t.Fatalf("expected the higher-priority source as primary, got %+v", pair)
		}
	}
}

func TestParseRejectsBadRegistries(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"one source": `
sources:
  - domain: metrotix
    priority: 1
`,
		"duplicate domain": `
sources:
  - domain: metrotix
    priority: 1
  - domain: MetroTix
    priority: 2
`,
		"missing domain": `
sources:
  - priority: 1
  - domain: cityweekly
    priority: 2
`,
		"non-positive priority": `
sources:
  - domain: metrotix
    priority: 0
  - domain: cityweekly
    priority: 2
`,
	}

	for name, raw := range cases {
		if _, err := Parse([]byte(raw)); err == nil {
			t.Fatalf("%s: expected parse error", name)
		}
	}
}
