package models

// JobName identifies one of the post-upload pipeline jobs.
type JobName string

const (
	JobThumbnail JobName = "generate_thumbnail"
	JobExif      JobName = "extract_exif"
	JobLabels    JobName = "clip_vector_and_labels"
	JobFaces     JobName = "face_embeddings_and_group"
)

// PostUploadJobs lists the jobs dispatched for every newly created photo.
var PostUploadJobs = []JobName{JobThumbnail, JobExif, JobLabels, JobFaces}

// TaskMessage is the queue payload for a single job invocation. Optional
// fields override the worker's configured defaults.
type TaskMessage struct {
	Job       JobName  `json:"job"`
	PhotoID   int64    `json:"photo_id"`
	Language  string   `json:"language,omitempty"`
	TopK      int      `json:"top_k,omitempty"`
	Tolerance *float64 `json:"tolerance,omitempty"`
}
