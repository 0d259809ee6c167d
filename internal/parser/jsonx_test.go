package parser

import (
	"encoding/json"
	"math/rand"
	"reflect"
	"strings"
	"testing"
)

func TestCleanJSONCommentTolerance(t *testing.T) {
	rng := rand.New(rand.NewSource(11))

	for round := 0; round < 100; round++ {
		doc := randomJSONValue(rng, 0)
		pretty, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			t.Fatal(err)
		}

		commented := injectComments(rng, string(pretty))

		var got, want any
		if err := json.Unmarshal([]byte(CleanJSON(commented)), &got); err != nil {
			t.Fatalf("round %d: cleaned document unparseable: %v\ninput:\n%s", round, err, commented)
		}
		if err := json.Unmarshal(pretty, &want); err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("round %d: value changed by comment stripping\nwant %#v\ngot  %#v", round, want, got)
		}
	}
}

// randomJSONValue builds nested objects whose string values may contain
// comment markers, which must survive stripping.
func randomJSONValue(rng *rand.Rand, depth int) any {
	if depth >= 2 {
		return leafValue(rng)
	}
	switch rng.Intn(4) {
	case 0:
		obj := map[string]any{}
		for i := 0; i < 1+rng.Intn(3); i++ {
			obj[key(rng, i)] = randomJSONValue(rng, depth+1)
		}
		return obj
	case 1:
		arr := make([]any, 1+rng.Intn(3))
		for i := range arr {
			arr[i] = randomJSONValue(rng, depth+1)
		}
		return arr
	default:
		return leafValue(rng)
	}
}

func leafValue(rng *rand.Rand) any {
	values := []any{
		"plain", "has # hash", "has // slashes", "ends with \\", float64(42),
		true, nil, "quote \" inside",
	}
	return values[rng.Intn(len(values))]
}

func key(rng *rand.Rand, i int) string {
	keys := []string{"id", "title", "domain", "nested", "extra"}
	return keys[(i+rng.Intn(len(keys)))%len(keys)]
}

// injectComments appends # and // line comments after random lines.
func injectComments(rng *rand.Rand, pretty string) string {
	lines := strings.Split(pretty, "\n")
	var out []string
	for _, line := range lines {
		switch rng.Intn(4) {
		case 0:
			out = append(out, line+" // trailing note")
		case 1:
			out = append(out, line+" # hash note")
		case 2:
			out = append(out, "# full-line comment", line)
		default:
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

func TestCleanJSONTrailingCommas(t *testing.T) {
	input := `{"tasks": [{"id": "t1",}, {"id": "t2"},],}`
	var got map[string]any
	if err := json.Unmarshal([]byte(CleanJSON(input)), &got); err != nil {
		t.Fatalf("trailing commas not stripped: %v", err)
	}
	tasks := got["tasks"].([]any)
	if len(tasks) != 2 {
		t.Fatalf("got %d tasks, want 2", len(tasks))
	}
}

func TestCleanJSONFences(t *testing.T) {
	input := "```json\n{\"ok\": true}\n```"
	var got map[string]any
	if err := json.Unmarshal([]byte(CleanJSON(input)), &got); err != nil {
		t.Fatalf("fences not stripped: %v", err)
	}
	if got["ok"] != true {
		t.Fatalf("value mangled: %#v", got)
	}
}

func TestDecodeObjectRecovery(t *testing.T) {
	type payload struct {
		Score  int    `json:"score"`
		Reason string `json:"reason"`
	}

	tests := []struct {
		name  string
		input string
		want  payload
	}{
		{"clean", `{"score": 80, "reason": "solid"}`, payload{80, "solid"}},
		{"fenced", "```json\n{\"score\": 70, \"reason\": \"ok\"}\n```", payload{70, "ok"}},
		{"prose wrapped", `Here is my verdict: {"score": 65, "reason": "meh"} — thanks!`, payload{65, "meh"}},
		{"trailing comma", `{"score": 90, "reason": "good",}`, payload{90, "good"}},
		{"commented", "{\n  \"score\": 55, // borderline\n  \"reason\": \"hmm\"\n}", payload{55, "hmm"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got payload
			if err := DecodeObject(tt.input, &got); err != nil {
				t.Fatalf("DecodeObject: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestDecodeObjectUnrecoverable(t *testing.T) {
	var out map[string]any
	if err := DecodeObject("no json here at all", &out); err == nil {
		t.Fatal("expected an error for non-JSON input")
	}
}
