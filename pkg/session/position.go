package session

import (
	"github.com/arzzra/media_compat/pkg/media"
)

// PlaybackStateWithUpdatedPosition экстраполирует позицию воспроизведения на момент now.
//
// Позиция пересчитывается только в состояниях PLAYING, FAST_FORWARDING и REWINDING
// при известном времени обновления. Результат ограничен нулем и длительностью
// из metadata, если она задана. В остальных случаях state возвращается как есть.
func PlaybackStateWithUpdatedPosition(state *media.PlaybackState, metadata *media.Metadata, now int64) *media.PlaybackState {
	if state == nil || state.Position == media.PlaybackPositionUnknown {
		return state
	}
	switch state.State {
	case media.StatePlaying, media.StateFastForwarding, media.StateRewinding:
	default:
		return state
	}
	if state.UpdateTime <= 0 {
		return state
	}

	elapsed := now - state.UpdateTime
	position := int64(float64(state.Speed)*float64(elapsed)) + state.Position

	duration := int64(-1)
	if metadata != nil && metadata.ContainsKey(media.MetadataKeyDuration) {
		duration = metadata.GetLong(media.MetadataKeyDuration)
	}
	if duration >= 0 && position > duration {
		position = duration
	} else if position < 0 {
		position = 0
	}

	updated := state.Copy()
	updated.Position = position
	updated.UpdateTime = now
	return updated
}
