// Package viz renders a running simulation in the terminal.
//
// [Model] is a Bubble Tea program that steps a simulation at the configured
// tick rate and draws it on a braille [Canvas]:
//
//	Space - Pause/Resume
//	S     - Single step while paused
//	R     - Reset
//	Click - Spawn a ball under the cursor
//	G     - Toggle GIF recording
//	?     - Show help overlay
//	Q     - Quit
package viz
