package inference

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestExtractObjectDirectParse(t *testing.T) {
	raw := `  {"recommendation": "hold", "explanation": "steady"}  `

	got, err := ExtractObject(raw, "recommendation")
	if err != nil {
		t.Fatalf("ExtractObject returned error: %v", err)
	}

	var parsed map[string]string
	if err := json.Unmarshal(got, &parsed); err != nil {
		t.Fatalf("result is not valid JSON: %v", err)
	}
	if parsed["recommendation"] != "hold" {
		t.Errorf("unexpected recommendation: %q", parsed["recommendation"])
	}
}

func TestExtractObjectSurroundedByProse(t *testing.T) {
	raw := "Here is my analysis.\n\nBased on the data I recommend:\n" +
		`{"recommendation": "Swap USDC for ETH and hold for 6 months", "explanation": "momentum"}` +
		"\n\nLet me know if you need more detail."

	got, err := ExtractObject(raw, "recommendation")
	if err != nil {
		t.Fatalf("ExtractObject returned error: %v", err)
	}

	var parsed map[string]string
	if err := json.Unmarshal(got, &parsed); err != nil {
		t.Fatalf("result is not valid JSON: %v", err)
	}
	if !strings.HasPrefix(parsed["recommendation"], "Swap") {
		t.Errorf("unexpected recommendation: %q", parsed["recommendation"])
	}
}

func TestExtractObjectPicksBlockWithDiscriminator(t *testing.T) {
	raw := `{"other": 1} some text {"recommendation": "hold", "explanation": "x"}`

	got, err := ExtractObject(raw, "recommendation")
	if err != nil {
		t.Fatalf("ExtractObject returned error: %v", err)
	}

	var parsed map[string]any
	if err := json.Unmarshal(got, &parsed); err != nil {
		t.Fatalf("result is not valid JSON: %v", err)
	}
	if _, ok := parsed["recommendation"]; !ok {
		t.Errorf("extracted block missing discriminator key: %s", got)
	}
}

func TestExtractObjectNestedBraces(t *testing.T) {
	raw := `The result: {"recommendation": "hold", "detail": {"scores": {"BTC": 8.1}}} done`

	got, err := ExtractObject(raw, "recommendation")
	if err != nil {
		t.Fatalf("ExtractObject returned error: %v", err)
	}

	var parsed struct {
		Detail struct {
			Scores map[string]float64 `json:"scores"`
		} `json:"detail"`
	}
	if err := json.Unmarshal(got, &parsed); err != nil {
		t.Fatalf("result is not valid JSON: %v", err)
	}
	if parsed.Detail.Scores["BTC"] != 8.1 {
		t.Errorf("nested value lost: %v", parsed.Detail.Scores)
	}
}

func TestExtractObjectBracesInsideStrings(t *testing.T) {
	raw := `{"recommendation": "hold {tight}", "explanation": "a \" quote"}`

	got, err := ExtractObject("noise "+raw+" noise", "recommendation")
	if err != nil {
		t.Fatalf("ExtractObject returned error: %v", err)
	}

	var parsed map[string]string
	if err := json.Unmarshal(got, &parsed); err != nil {
		t.Fatalf("result is not valid JSON: %v", err)
	}
	if parsed["recommendation"] != "hold {tight}" {
		t.Errorf("unexpected recommendation: %q", parsed["recommendation"])
	}
}

func TestExtractObjectFailure(t *testing.T) {
	longText := strings.Repeat("no structured data here ", 20)

	_, err := ExtractObject(longText, "recommendation")
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	var extractErr *ExtractionError
	if !errors.As(err, &extractErr) {
		t.Fatalf("expected *ExtractionError, got %T", err)
	}
	if len(extractErr.Snippet) > 200 {
		t.Errorf("snippet too long: %d chars", len(extractErr.Snippet))
	}
}

func TestExtractArray(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{
			name: "direct",
			raw:  `["BTC", "ETH", "SOL"]`,
			want: []string{"BTC", "ETH", "SOL"},
		},
		{
			name: "surrounded by prose",
			raw:  "My final selection:\n[\"BTC\", \"ETH\"]\nThese offer the best balance.",
			want: []string{"BTC", "ETH"},
		},
		{
			name: "brackets inside strings",
			raw:  `Selected: ["A[1]", "B"] end`,
			want: []string{"A[1]", "B"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractArray(tt.raw)
			if err != nil {
				t.Fatalf("ExtractArray returned error: %v", err)
			}

			var parsed []string
			if err := json.Unmarshal(got, &parsed); err != nil {
				t.Fatalf("result is not valid JSON: %v", err)
			}
			if len(parsed) != len(tt.want) {
				t.Fatalf("got %d elements, want %d", len(parsed), len(tt.want))
			}
			for i := range parsed {
				if parsed[i] != tt.want[i] {
					t.Errorf("element %d: got %q, want %q", i, parsed[i], tt.want[i])
				}
			}
		})
	}
}

func TestExtractArrayFailure(t *testing.T) {
	_, err := ExtractArray("no list here at all")
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	var extractErr *ExtractionError
	if !errors.As(err, &extractErr) {
		t.Fatalf("expected *ExtractionError, got %T", err)
	}
}

func TestExtractionIsIdempotent(t *testing.T) {
	raw := "prefix {\"recommendation\": \"hold\", \"n\": 1.5} suffix"

	first, err := ExtractObject(raw, "recommendation")
	if err != nil {
		t.Fatalf("first extraction failed: %v", err)
	}
	second, err := ExtractObject(raw, "recommendation")
	if err != nil {
		t.Fatalf("second extraction failed: %v", err)
	}

	if !bytes.Equal(first, second) {
		t.Errorf("extraction not idempotent: %s vs %s", first, second)
	}
}
