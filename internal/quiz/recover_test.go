package quiz

import (
	"reflect"
	"testing"
)

func TestRecoverRoundTrip(t *testing.T) {
	response := `Here you go: {"pages":[{"elements":[{"type":"text","name":"q1","title":"What is the capital of France?","correctAnswer":"Paris"}]}]} Hope this helps!`

	doc := Recover(response)
	want := Document{Pages: []Page{{Elements: []Question{{
		Type:          KindFillBlank,
		Name:          "q1",
		Title:         "What is the capital of France?",
		CorrectAnswer: "Paris",
	}}}}}
	if !reflect.DeepEqual(doc, want) {
		t.Errorf("Recover() = %+v, want %+v", doc, want)
	}
	if doc.IsFallback() {
		t.Error("round-tripped document should not be the fallback")
	}
}

func TestRecoverPrettyPrinted(t *testing.T) {
	response := "```json\n{\n  \"pages\": [\n    {\n      \"elements\": [\n        {\n          \"type\": \"radiogroup\",\n          \"name\": \"q1\",\n          \"title\": \"Pick\",\n          \"choices\": [\"A\", \"B\", \"C\", \"D\"],\n          \"correctAnswer\": \"A\"\n        }\n      ]\n    }\n  ]\n}\n```"

	doc := Recover(response)
	if doc.IsFallback() {
		t.Fatal("pretty-printed response should recover, got fallback")
	}
	if got := doc.Pages[0].Elements[0].Name; got != "q1" {
		t.Errorf("expected question q1, got %q", got)
	}
}

func TestRecoverNestedBraces(t *testing.T) {
	// Braces inside string content must survive the outermost-span cut.
	response := `{"pages":[{"elements":[{"type":"text","name":"q1","title":"What does {} mean in Go?","correctAnswer":"empty block"}]}]}`

	doc := Recover(response)
	if doc.IsFallback() {
		t.Fatal("expected recovery, got fallback")
	}
	if got := doc.Pages[0].Elements[0].Title; got != "What does {} mean in Go?" {
		t.Errorf("nested braces mangled: %q", got)
	}
}

func TestRecoverRepairsBrokenEscapes(t *testing.T) {
	// Unescaped interior quote: strict parse fails, repair pass succeeds.
	response := `{"pages":[{"elements":[{"type":"text","name":"q1","title":"Define the word "idiom" briefly","correctAnswer":"a set phrase"}]}]}`

	doc := Recover(response)
	if doc.IsFallback() {
		t.Fatal("expected repaired recovery, got fallback")
	}
	if got := doc.Pages[0].Elements[0].Title; got != `Define the word "idiom" briefly` {
		t.Errorf("unexpected repaired title: %q", got)
	}
}

func TestRecoverFallsBack(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{"no braces", "Sorry, I cannot generate a quiz for this."},
		{"empty", ""},
		{"reversed braces", "} nothing here {"},
		{"unparseable", "{this is not json at all"},
		{"valid json wrong shape", `{"foo": "bar"}`},
		{"violates invariants", `{"pages":[{"elements":[{"type":"radiogroup","name":"q1","title":"t","choices":["A","B"],"correctAnswer":"Z"}]}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := Recover(tt.response)
			if !doc.IsFallback() {
				t.Errorf("Recover(%q) should return the fallback document", tt.response)
			}
			if err := doc.Validate(); err != nil {
				t.Errorf("fallback document invalid: %v", err)
			}
		})
	}
}

func TestNormalizeWhitespace(t *testing.T) {
	got := normalizeWhitespace("{\n  \"a\":\t\t1,\r\n  \"b\": 2 }")
	want := `{ "a": 1, "b": 2 }`
	if got != want {
		t.Errorf("normalizeWhitespace() = %q, want %q", got, want)
	}
}
