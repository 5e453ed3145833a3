package worker

import "github.com/google/uuid"

// Job asks for the derivatives of one uploaded photo. TempPath is the
// uploaded source and is removed once the job finishes, whatever the outcome.
type Job struct {
	PhotoID   uuid.UUID `json:"photo_id"`
	GalleryID uuid.UUID `json:"gallery_id"`
	TempPath  string    `json:"temp_path"`
	Filename  string    `json:"filename"`

	ack func(handled bool)
}

// WithAck returns a copy of the job that reports back to the queue it came
// from. The pool calls fn exactly once: handled is true after the job ran and
// false when it was dropped without running.
func (j Job) WithAck(fn func(handled bool)) Job {
	j.ack = fn
	return j
}

func (j Job) finish(handled bool) {
	if j.ack != nil {
		j.ack(handled)
	}
}
