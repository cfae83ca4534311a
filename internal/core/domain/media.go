package domain

import "time"

// MediaKind distinguishes the ephemeral media streams a device produces.
type MediaKind string

const (
	MediaKindFrame    MediaKind = "frame"
	MediaKindAudio    MediaKind = "audio"
	MediaKindLocation MediaKind = "location"
)

// MediaFrame is an ephemeral unit of live media. It exists only for the
// duration of a fan-out and is never persisted; Seq is assigned per consumer
// session so gaps are observable on the receiving side.
type MediaFrame struct {
	Seq       uint64    `json:"seq"`
	Kind      MediaKind `json:"kind"`
	Payload   []byte    `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}
