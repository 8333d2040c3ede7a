// Package frames selects the small set of video frames worth analyzing.
// Extraction yields one frame per configured interval; the selector keeps
// frames that carry signal (a pointing gesture, speech above the audio
// threshold, visible change against the previously kept frame, or proximity
// to a spoken trigger word) and thins the result to a hard per-screen cap.
package frames
