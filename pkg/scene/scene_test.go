package scene

import (
	"testing"
	"time"
)

func TestParse_PlainJSON(t *testing.T) {
	content := `{
		"objects": [{"name": "cup", "position": "left", "distance": "near", "confidence": 0.8}],
		"scene_type": "kitchen",
		"obstacles": ["table leg"],
		"people_count": 1,
		"safe_directions": ["forward"],
		"description": "A kitchen with a cup on the counter",
		"confidence": 0.85
	}`

	now := time.Now()
	r := Parse(content, now)

	if r.SceneType != "kitchen" {
		t.Errorf("scene_type: got %q, want %q", r.SceneType, "kitchen")
	}
	if r.Confidence != 0.85 {
		t.Errorf("confidence: got %v, want 0.85", r.Confidence)
	}
	if r.PeopleCount != 1 {
		t.Errorf("people_count: got %d, want 1", r.PeopleCount)
	}
	cup := r.Find("cup")
	if cup == nil {
		t.Fatal("cup not found")
	}
	if cup.Position != PositionLeft || cup.Distance != "near" {
		t.Errorf("cup: got %+v", cup)
	}
	if !r.SafeDirection("forward") || r.SafeDirection("left") {
		t.Error("safe_directions not parsed correctly")
	}
	if !r.FetchedAt.Equal(now) {
		t.Error("FetchedAt not set")
	}
}

func TestParse_MarkdownFenced(t *testing.T) {
	content := "Here is what I see:\n```json\n{\"scene_type\": \"living_room\", \"confidence\": 0.7}\n```\nHope that helps!"

	r := Parse(content, time.Now())
	if r.SceneType != "living_room" {
		t.Errorf("fenced JSON not unwrapped: got scene_type %q", r.SceneType)
	}
	if r.Confidence != 0.7 {
		t.Errorf("confidence: got %v, want 0.7", r.Confidence)
	}
}

func TestParse_BareFences(t *testing.T) {
	content := "```\n{\"scene_type\": \"hallway\"}\n```"

	r := Parse(content, time.Now())
	if r.SceneType != "hallway" {
		t.Errorf("got scene_type %q, want %q", r.SceneType, "hallway")
	}
}

func TestParse_NonJSONFallsBack(t *testing.T) {
	content := "I see a cozy room with a sofa and a window."

	r := Parse(content, time.Now())
	if r.Description != content {
		t.Errorf("raw text should become the description, got %q", r.Description)
	}
	if r.Confidence != 0.3 {
		t.Errorf("fallback confidence: got %v, want 0.3", r.Confidence)
	}
	if r.SceneType != "unknown" {
		t.Errorf("fallback scene_type: got %q, want %q", r.SceneType, "unknown")
	}
}

func TestCache_PutAndLatest(t *testing.T) {
	c := NewCache()

	if c.Latest() != nil {
		t.Fatal("empty cache should return nil")
	}

	first := &Result{SceneType: "kitchen", FetchedAt: time.Now()}
	c.Put(first)
	if got := c.Latest(); got != first {
		t.Error("cache should return the stored result")
	}
}

func TestCache_StaleResultDoesNotRollBack(t *testing.T) {
	c := NewCache()
	now := time.Now()

	newer := &Result{SceneType: "kitchen", FetchedAt: now}
	older := &Result{SceneType: "hallway", FetchedAt: now.Add(-10 * time.Second)}

	c.Put(newer)
	c.Put(older)

	if got := c.Latest(); got.SceneType != "kitchen" {
		t.Errorf("stale result replaced a newer one: got %q", got.SceneType)
	}
}
