package behavior

import "github.com/SergeiGolos/wod-wiki-sub004/types"

// SoundCueTrigger is the closed set of moments a sound cue fires at.
type SoundCueTrigger string

// Sound cue trigger constants per §4.6 configuration table.
const (
	SoundTriggerMount     SoundCueTrigger = "mount"
	SoundTriggerUnmount   SoundCueTrigger = "unmount"
	SoundTriggerCountdown SoundCueTrigger = "countdown"
	SoundTriggerComplete  SoundCueTrigger = "complete"
)

// SoundCue describes one sound to play at a trigger, optionally at
// specific countdown thresholds (seconds remaining).
type SoundCue struct {
	Sound      string
	Trigger    SoundCueTrigger
	AtSeconds  []int64
}

// SoundBehavior reacts to timer:tick (and mount/unmount) and emits
// PlaySound actions when a cue's trigger condition is met, deduplicated
// per cue so a threshold fires at most once.
type SoundBehavior struct {
	NoopHooks

	Cues []SoundCue

	fired map[int]bool // cue index -> already fired (for mount/unmount/complete cues)
	firedAt map[int]map[int64]bool // cue index -> seconds -> already fired (for countdown cues)
}

// NewSoundBehavior constructs a SoundBehavior.
func NewSoundBehavior(cues []SoundCue) *SoundBehavior {
	return &SoundBehavior{
		Cues:    cues,
		fired:   make(map[int]bool),
		firedAt: make(map[int]map[int64]bool),
	}
}

func (s *SoundBehavior) play(ctx Context, block Block, sound string) types.Action {
	return types.Action{
		Kind: types.ActionPlaySound,
		Payload: types.PlaySoundPayload{Sound: sound, BlockKey: block.Key()},
	}
}

func (s *SoundBehavior) OnMount(ctx Context, block Block) []types.Action {
	return s.fireOnce(ctx, block, SoundTriggerMount)
}

func (s *SoundBehavior) OnUnmount(ctx Context, block Block) []types.Action {
	return s.fireOnce(ctx, block, SoundTriggerUnmount)
}

func (s *SoundBehavior) fireOnce(ctx Context, block Block, trigger SoundCueTrigger) []types.Action {
	var actions []types.Action
	for i, cue := range s.Cues {
		if cue.Trigger != trigger || s.fired[i] {
			continue
		}
		s.fired[i] = true
		actions = append(actions, s.play(ctx, block, cue.Sound))
	}
	return actions
}

func (s *SoundBehavior) OnEvent(ctx Context, block Block, event types.Event) []types.Action {
	var actions []types.Action

	if event.Name == types.EventTimerComplete {
		actions = append(actions, s.fireOnce(ctx, block, SoundTriggerComplete)...)
	}

	if event.Name != types.EventTimerTick {
		return actions
	}
	tick, ok := event.Data["tick"].(types.TimerTickData)
	if !ok || tick.RemainingMs == nil {
		return actions
	}
	remainingSec := *tick.RemainingMs / 1000

	for i, cue := range s.Cues {
		if cue.Trigger != SoundTriggerCountdown {
			continue
		}
		for _, at := range cue.AtSeconds {
			if remainingSec != at {
				continue
			}
			if s.firedAt[i] == nil {
				s.firedAt[i] = make(map[int64]bool)
			}
			if s.firedAt[i][at] {
				continue
			}
			s.firedAt[i][at] = true
			actions = append(actions, s.play(ctx, block, cue.Sound))
		}
	}
	return actions
}
