// Package viz renders the drop simulation in a terminal.
//
// [Terminal] implements scene.Renderer by projecting every mesh of the scene
// graph onto a Braille [Canvas]. [Model] wraps an engine and a Terminal in a
// Bubble Tea program that drives the frame loop at 60 Hz.
//
// # Key Bindings
//
//	S     - Drop a random sphere
//	B     - Drop a random box
//	R     - Remove every object
//	Space - Pause/Resume
//	+/-   - Zoom
//	T     - Cycle color themes
//	G     - Toggle GIF recording
//	?     - Show help overlay
//	Q     - Quit
package viz
