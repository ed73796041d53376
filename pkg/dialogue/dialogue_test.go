package dialogue

import (
	"strings"
	"testing"
	"time"

	"github.com/teslashibe/go-hexapod/pkg/scene"
)

func TestParseResponse_PlainJSON(t *testing.T) {
	r := ParseResponse(`{"text": "Hello there!", "emotion": "happy", "action_suggested": "none"}`)

	if r.Text != "Hello there!" {
		t.Errorf("text: got %q", r.Text)
	}
	if r.Emotion != "happy" {
		t.Errorf("emotion: got %q, want happy", r.Emotion)
	}
}

func TestParseResponse_Fenced(t *testing.T) {
	r := ParseResponse("```json\n{\"text\": \"I see a cup.\", \"emotion\": \"excited\"}\n```")

	if r.Text != "I see a cup." {
		t.Errorf("text: got %q", r.Text)
	}
	if r.Emotion != "excited" {
		t.Errorf("emotion: got %q, want excited", r.Emotion)
	}
}

func TestParseResponse_NonJSONFallsBack(t *testing.T) {
	r := ParseResponse("Well hello! Nice to meet you.")

	if r.Text != "Well hello! Nice to meet you." {
		t.Errorf("raw text should become the response: got %q", r.Text)
	}
	if r.Emotion != "neutral" {
		t.Errorf("fallback emotion: got %q, want neutral", r.Emotion)
	}
}

func TestParseResponse_MissingEmotionDefaults(t *testing.T) {
	r := ParseResponse(`{"text": "Hmm."}`)
	if r.Emotion != "neutral" {
		t.Errorf("emotion: got %q, want neutral", r.Emotion)
	}
}

func TestSystemPrompt_IncludesSceneContext(t *testing.T) {
	sc := &scene.Result{
		Objects: []scene.Object{
			{Name: "cup", Position: scene.PositionLeft, Confidence: 0.8},
			{Name: "sofa", Position: scene.PositionRight, Confidence: 0.9},
		},
		Obstacles:   []string{"table leg"},
		PeopleCount: 2,
		Description: "A living room with a sofa",
		FetchedAt:   time.Now(),
	}

	prompt := SystemPrompt("curious", sc)

	for _, want := range []string{"curious", "cup", "sofa", "table leg", "People present: 2", "A living room"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestSystemPrompt_NoScene(t *testing.T) {
	prompt := SystemPrompt("cautious", nil)
	if !strings.Contains(prompt, "Unknown") {
		t.Errorf("promptless scene should read Unknown:\n%s", prompt)
	}
}
