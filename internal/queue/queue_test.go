package queue

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
)

func TestDecodeJob(t *testing.T) {
	id := uuid.New()
	campaignID := uuid.New()
	data, _ := json.Marshal(&Job{ID: id, Type: TypePublishPost, CampaignID: campaignID, Data: map[string]interface{}{"media_type": "IMAGE"}})

	job, err := decodeJob([]string{QueuePublishPost, string(data)})
	if err != nil {
		t.Fatalf("decodeJob: %v", err)
	}
	if job.ID != id || job.CampaignID != campaignID {
		t.Errorf("ids not preserved: %+v", job)
	}
	if job.MediaType() != "IMAGE" {
		t.Errorf("MediaType = %q, want IMAGE", job.MediaType())
	}
}

func TestDecodeJobErrors(t *testing.T) {
	if _, err := decodeJob([]string{"only-key"}); err == nil {
		t.Error("expected error for short response")
	}
	if _, err := decodeJob([]string{QueueRenderVideo, "{not json"}); err == nil {
		t.Error("expected error for bad payload")
	}
}

func TestMediaTypeDefault(t *testing.T) {
	if got := (&Job{}).MediaType(); got != "REELS" {
		t.Errorf("MediaType = %q, want REELS", got)
	}
}
