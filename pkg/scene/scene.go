// Package scene provides the slow, remote half of the hybrid vision system:
// a vision-language model is queried periodically with a camera frame and the
// structured result is cached for the decision loop.
//
// The cache is stale-while-revalidate: readers always get the most recent
// completed result instantly, and an in-flight query never blocks them.
package scene

import (
	"encoding/json"
	"strings"
	"time"
)

// Position is the coarse horizontal placement the model reports.
type Position string

const (
	PositionLeft   Position = "left"
	PositionCenter Position = "center"
	PositionRight  Position = "right"
)

// Object is one item the model identified in the frame.
type Object struct {
	Name       string   `json:"name"`
	Position   Position `json:"position"`
	Distance   string   `json:"distance"` // qualifier: "near" / "far"
	Confidence float64  `json:"confidence"`
}

// Result is a structured scene understanding from one remote query.
// Results are immutable once fetched.
type Result struct {
	Objects        []Object `json:"objects"`
	SceneType      string   `json:"scene_type"`
	Obstacles      []string `json:"obstacles"`
	PeopleCount    int      `json:"people_count"`
	SafeDirections []string `json:"safe_directions"`
	Description    string   `json:"description"`
	Confidence     float64  `json:"confidence"`

	FetchedAt time.Time `json:"-"`
}

// Find returns the first object with the given name, or nil.
func (r *Result) Find(name string) *Object {
	for i := range r.Objects {
		if r.Objects[i].Name == name {
			return &r.Objects[i]
		}
	}
	return nil
}

// SafeDirection reports whether the model judged the direction safe.
// Directions are "left", "forward", "right".
func (r *Result) SafeDirection(dir string) bool {
	for _, d := range r.SafeDirections {
		if d == dir {
			return true
		}
	}
	return false
}

// Age returns how old the result is.
func (r *Result) Age() time.Duration {
	return time.Since(r.FetchedAt)
}

// Prompt is the structured prompt sent with every scene query. The model
// must answer with JSON matching Result.
const Prompt = `Analyze this image from a robot's perspective and respond with JSON:
{
  "objects": [{"name": "...", "position": "left/center/right", "distance": "near/far", "confidence": 0.0-1.0}],
  "scene_type": "indoor/outdoor/kitchen/living_room/...",
  "obstacles": ["obstacle1", "obstacle2"],
  "people_count": 0,
  "safe_directions": ["left", "forward", "right"],
  "description": "Brief description of scene",
  "confidence": 0.0-1.0
}

Be concise and focus on navigation-relevant information.`

// Parse decodes a model reply into a Result. Replies wrapped in markdown
// code fences are unwrapped first. A reply that is not valid JSON is not
// an error: the raw text becomes the description with low confidence, so
// a chatty model degrades the result instead of losing it.
func Parse(content string, fetchedAt time.Time) *Result {
	stripped := stripFences(content)

	var r Result
	if err := json.Unmarshal([]byte(stripped), &r); err != nil {
		return &Result{
			SceneType:   "unknown",
			Description: strings.TrimSpace(content),
			Confidence:  0.3,
			FetchedAt:   fetchedAt,
		}
	}
	if r.SceneType == "" {
		r.SceneType = "unknown"
	}
	r.FetchedAt = fetchedAt
	return &r
}

// stripFences removes a ```json ... ``` or ``` ... ``` wrapper.
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
