// Package dialogue generates personality-driven speech for the robot via a
// remote chat model. Scene context is folded into the system prompt so the
// robot talks about what it can actually see.
//
// Dialogue is strictly off the safety path: a slow or failing model degrades
// to a canned reply, never to a stalled decision loop.
package dialogue

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/teslashibe/go-hexapod/pkg/scene"
)

// Response is the model's structured reply.
type Response struct {
	Text            string `json:"text"`
	Emotion         string `json:"emotion"` // happy, concerned, neutral, excited, confused
	ActionSuggested string `json:"action_suggested,omitempty"`
}

// SystemPrompt builds the system prompt for a personality and optional
// scene context.
func SystemPrompt(personality string, sc *scene.Result) string {
	parts := []string{
		fmt.Sprintf("You are a %s hexapod robot assistant.", personality),
	}
	if sc != nil {
		parts = append(parts, fmt.Sprintf("Current scene: %s", sc.Description))
		names := make([]string, 0, len(sc.Objects))
		for _, obj := range sc.Objects {
			names = append(names, obj.Name)
		}
		parts = append(parts, fmt.Sprintf("Objects visible: %s", strings.Join(names, ", ")))
		parts = append(parts, fmt.Sprintf("People present: %d", sc.PeopleCount))
		parts = append(parts, fmt.Sprintf("Obstacles: %s", strings.Join(sc.Obstacles, ", ")))
	} else {
		parts = append(parts, "Current scene: Unknown")
	}
	return strings.Join(parts, " ")
}

// UserPrompt wraps the user's text with the structured-response request.
func UserPrompt(userText string) string {
	return userText + `

Respond with JSON:
{
  "text": "Your natural language response",
  "emotion": "happy/concerned/neutral/excited/confused",
  "action_suggested": "move_forward/turn_left/stop/none"
}`
}

// ParseResponse decodes a model reply. Markdown fences are stripped; a
// non-JSON reply becomes the response text with neutral emotion.
func ParseResponse(content string) *Response {
	stripped := stripFences(content)

	var r Response
	if err := json.Unmarshal([]byte(stripped), &r); err != nil || r.Text == "" {
		return &Response{
			Text:    strings.TrimSpace(content),
			Emotion: "neutral",
		}
	}
	if r.Emotion == "" {
		r.Emotion = "neutral"
	}
	return &r
}

func stripFences(content string) string {
	if i := strings.Index(content, "```json"); i >= 0 {
		rest := content[i+len("```json"):]
		if j := strings.Index(rest, "```"); j >= 0 {
			return strings.TrimSpace(rest[:j])
		}
		return strings.TrimSpace(rest)
	}
	if i := strings.Index(content, "```"); i >= 0 {
		rest := content[i+3:]
		if j := strings.Index(rest, "```"); j >= 0 {
			return strings.TrimSpace(rest[:j])
		}
		return strings.TrimSpace(rest)
	}
	return strings.TrimSpace(content)
}
