// Package sound names the audio cues the front end plays. The backend only
// ever emits these names; playback is the client's stateless collaborator.
package sound

const (
	Flip    = "flip"
	Shuffle = "shuffle"
	Correct = "correct"
	Wrong   = "wrong"
	Victory = "victory"
)
