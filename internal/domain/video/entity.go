package video

// Generation is the outcome of a render request or status poll.
// Error is set only when the enrichment failed and was absorbed.
type Generation struct {
	VideoURL string `json:"video_url,omitempty"`
	TaskID   string `json:"task_id,omitempty"`
	Status   string `json:"status,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Failed reports whether the generation carries an absorbed error.
func (g *Generation) Failed() bool { return g != nil && g.Error != "" }

// Beat is a single timeline moment used to open the video.
type Beat struct {
	Time  string
	Event string
}

// Request describes what to render.
type Request struct {
	Scenario string
	// Focus lists entity names in model order; only the first three are used.
	Focus []string
	// Opening is the first predicted timeline event, if any.
	Opening *Beat
}
