package game

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmety/Werewolf-Kill/internal/service/narrator"
)

// failingNarrator 模拟外部叙事服务不可用
type failingNarrator struct{}

func (failingNarrator) NightStory(context.Context, int, []string, []string) (string, error) {
	return "", errors.New("上游服务不可用")
}

func (failingNarrator) DiscussionPrompt(context.Context, []string) (string, error) {
	return "", errors.New("上游服务不可用")
}

func awaitStoryReady(t *testing.T, ctx *GameContext) *StoryReadyRequest {
	t.Helper()

	select {
	case req := <-ctx.TmoCh:
		sreq := TryUnwrapStoryReadyRequest(req)
		if sreq == nil {
			t.Fatalf("expected a story event, got %q", req.ReqType)
		}
		return sreq

	case <-time.After(2 * time.Second):
		t.Fatalf("story event never arrived")
		return nil
	}
}

func TestFetchNightStory_FallsBackWhenNarratorFails(t *testing.T) {
	gs := newNightState()
	gs.LastNightDeadIDs = []int{2}

	ctx := &GameContext{
		RoomID:   "test-room",
		State:    gs,
		Narrator: failingNarrator{},
		TmoCh:    make(chan RequestWrapper, 8),
	}

	ctx.FetchNightStory()

	if !gs.StoryLoading {
		t.Fatalf("fetch should mark the story as loading")
	}

	sreq := awaitStoryReady(t, ctx)
	ctx.ApplyStoryReady(sreq)

	want := narrator.FallbackNightStory(1, []string{"小刚"})
	if gs.CurrentStory != want {
		t.Fatalf("want fallback story %q, got %q", want, gs.CurrentStory)
	}

	if gs.StoryLoading {
		t.Fatalf("loading flag should be cleared once the story lands")
	}

	if n := len(gs.StoryLog); n == 0 || gs.StoryLog[n-1] != want {
		t.Fatalf("fallback story should be appended to the log, got %v", gs.StoryLog)
	}
}

func TestFetchNightStory_FallsBackToPeacefulNight(t *testing.T) {
	gs := newNightState()

	ctx := &GameContext{
		RoomID:   "test-room",
		State:    gs,
		Narrator: failingNarrator{},
		TmoCh:    make(chan RequestWrapper, 8),
	}

	ctx.FetchNightStory()

	sreq := awaitStoryReady(t, ctx)
	ctx.ApplyStoryReady(sreq)

	if want := narrator.FallbackNightStory(1, nil); gs.CurrentStory != want {
		t.Fatalf("deathless night should fall back to %q, got %q", want, gs.CurrentStory)
	}
}

func TestFetchDiscussionPrompt_FallsBackWhenNarratorFails(t *testing.T) {
	gs := newNightState()

	ctx := &GameContext{
		RoomID:   "test-room",
		State:    gs,
		Narrator: failingNarrator{},
		TmoCh:    make(chan RequestWrapper, 8),
	}

	ctx.FetchDiscussionPrompt()

	sreq := awaitStoryReady(t, ctx)
	ctx.ApplyStoryReady(sreq)

	alive := []string{"小明", "小红", "小刚", "小丽", "小强", "小芳"}
	if want := narrator.FallbackDiscussionPrompt(alive); gs.CurrentStory != want {
		t.Fatalf("want fallback prompt %q, got %q", want, gs.CurrentStory)
	}

	if gs.StoryLoading {
		t.Fatalf("loading flag should be cleared once the prompt lands")
	}
}
