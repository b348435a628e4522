package gallery

import (
	"context"
	"encoding/base64"
	"fmt"
	"testing"

	"github.com/lumacrm/lead-image-service/internal/counts"
	"github.com/lumacrm/lead-image-service/internal/imaging"
	"github.com/lumacrm/lead-image-service/internal/leads"
	"github.com/lumacrm/lead-image-service/pkg/logging"
)

var pngBytes = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0x01, 0x02, 0x03}

func pngPayload() string {
	return base64.StdEncoding.EncodeToString(pngBytes)
}

type harness struct {
	store   *leads.MemoryStore
	service *Service
	lead    *leads.Lead
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store := leads.NewMemoryStore()
	logger := logging.New("error")
	countSvc := counts.NewService(store, nil, logger)
	svc := NewService(store, imaging.NewBase64Codec(), countSvc, logger)

	lead, err := leads.NewLead("Jordan Smith", "jordan@example.com", "+15551234567")
	if err != nil {
		t.Fatalf("new lead: %v", err)
	}
	if err := store.InsertLead(context.Background(), lead); err != nil {
		t.Fatalf("insert lead: %v", err)
	}
	return &harness{store: store, service: svc, lead: lead}
}

func (h *harness) upload(t *testing.T, name string) *UploadResponse {
	t.Helper()
	resp, err := h.service.Upload(context.Background(), UploadRequest{
		LeadID:   h.lead.ID(),
		Payload:  pngPayload(),
		FileName: name,
	})
	if err != nil {
		t.Fatalf("upload %s: %v", name, err)
	}
	return resp
}

func (h *harness) fill(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		h.upload(t, fmt.Sprintf("photo-%d.png", i))
	}
}

func TestUploadSingleImage(t *testing.T) {
	h := newHarness(t)

	resp := h.upload(t, "first.png")

	if resp.CurrentImageCount != 1 {
		t.Fatalf("expected count 1, got %d", resp.CurrentImageCount)
	}
	if resp.RemainingSlots != 9 {
		t.Fatalf("expected 9 slots, got %d", resp.RemainingSlots)
	}
	if resp.IsAtLimit {
		t.Fatalf("one image is not at the limit")
	}
	if resp.ContentType != "image/png" {
		t.Fatalf("expected image/png, got %q", resp.ContentType)
	}
	if resp.SuggestionMessage != "You can add 9 more images." {
		t.Fatalf("unexpected suggestion %q", resp.SuggestionMessage)
	}

	count, err := h.store.CountImagesByLead(context.Background(), h.lead.ID())
	if err != nil || count != 1 {
		t.Fatalf("expected persisted count 1, got %d (%v)", count, err)
	}
}

func TestUploadSuggestionTiers(t *testing.T) {
	h := newHarness(t)
	h.fill(t, 7)

	resp := h.upload(t, "eighth.png")
	if resp.SuggestionMessage != "You have room for 2 more images." {
		t.Fatalf("unexpected two-slot suggestion %q", resp.SuggestionMessage)
	}

	resp = h.upload(t, "ninth.png")
	if resp.SuggestionMessage != "You can add 1 more image before reaching the limit." {
		t.Fatalf("unexpected one-slot suggestion %q", resp.SuggestionMessage)
	}

	resp = h.upload(t, "tenth.png")
	if !resp.IsAtLimit {
		t.Fatalf("tenth image should reach the limit")
	}
	if resp.SuggestionMessage != "You've reached the maximum of 10 images. To add more, you'll need to delete or replace existing images." {
		t.Fatalf("unexpected at-limit suggestion %q", resp.SuggestionMessage)
	}
}

func TestUploadRejectsAtCapacity(t *testing.T) {
	h := newHarness(t)
	h.fill(t, leads.MaxImagesPerLead)

	_, err := h.service.Upload(context.Background(), UploadRequest{
		LeadID:   h.lead.ID(),
		Payload:  pngPayload(),
		FileName: "overflow.png",
	})
	capErr, ok := leads.IsCapacityError(err)
	if !ok {
		t.Fatalf("expected CapacityError, got %v", err)
	}
	if capErr.Current != leads.MaxImagesPerLead {
		t.Fatalf("unexpected capacity detail: %+v", capErr)
	}

	count, _ := h.store.CountImagesByLead(context.Background(), h.lead.ID())
	if count != leads.MaxImagesPerLead {
		t.Fatalf("rejected upload must not persist anything, got %d", count)
	}
}

func TestUploadUnknownLead(t *testing.T) {
	h := newHarness(t)

	_, err := h.service.Upload(context.Background(), UploadRequest{
		LeadID:   leads.NewLeadID(),
		Payload:  pngPayload(),
		FileName: "photo.png",
	})
	if err != leads.ErrLeadNotFound {
		t.Fatalf("expected ErrLeadNotFound, got %v", err)
	}
}

func TestUploadInvalidPayload(t *testing.T) {
	h := newHarness(t)

	_, err := h.service.Upload(context.Background(), UploadRequest{
		LeadID:   h.lead.ID(),
		Payload:  "!!!",
		FileName: "photo.png",
	})
	if !leads.IsInvalidImage(err) {
		t.Fatalf("expected invalid image error, got %v", err)
	}
}

func TestBatchUploadAllFit(t *testing.T) {
	h := newHarness(t)

	items := make([]BatchItem, 3)
	for i := range items {
		items[i] = BatchItem{Payload: pngPayload(), FileName: fmt.Sprintf("batch-%d.png", i)}
	}

	resp, err := h.service.BatchUpload(context.Background(), h.lead.ID(), items)
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if resp.UploadedCount != 3 || resp.FailedCount != 0 {
		t.Fatalf("expected 3/0, got %d/%d", resp.UploadedCount, resp.FailedCount)
	}
	if resp.CurrentImageCount != 3 || resp.RemainingSlots != 7 {
		t.Fatalf("unexpected counts: %d/%d", resp.CurrentImageCount, resp.RemainingSlots)
	}
	for _, result := range resp.Results {
		if !result.Success || result.ImageID == "" {
			t.Fatalf("expected every item to succeed: %+v", result)
		}
	}
}

func TestBatchUploadClipsToAvailableSlots(t *testing.T) {
	h := newHarness(t)
	h.fill(t, 5)

	items := make([]BatchItem, 7)
	for i := range items {
		items[i] = BatchItem{Payload: pngPayload(), FileName: fmt.Sprintf("batch-%d.png", i)}
	}

	resp, err := h.service.BatchUpload(context.Background(), h.lead.ID(), items)
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	// Seven submitted into five slots: the first five are accepted, the two
	// beyond the cutoff are dropped without a result entry.
	if resp.UploadedCount != 5 {
		t.Fatalf("expected 5 uploaded, got %d", resp.UploadedCount)
	}
	if len(resp.Results) != 5 {
		t.Fatalf("clipped items must not appear in results, got %d entries", len(resp.Results))
	}
	if resp.CurrentImageCount != 10 || resp.RemainingSlots != 0 {
		t.Fatalf("unexpected counts: %d/%d", resp.CurrentImageCount, resp.RemainingSlots)
	}
	if resp.Results[0].FileName != "batch-0.png" || resp.Results[4].FileName != "batch-4.png" {
		t.Fatalf("clip must preserve input order")
	}
}

func TestBatchUploadAtCapacity(t *testing.T) {
	h := newHarness(t)
	h.fill(t, leads.MaxImagesPerLead)

	_, err := h.service.BatchUpload(context.Background(), h.lead.ID(), []BatchItem{
		{Payload: pngPayload(), FileName: "photo.png"},
	})
	if _, ok := leads.IsCapacityError(err); !ok {
		t.Fatalf("expected CapacityError, got %v", err)
	}
}

func TestBatchUploadPartialFailures(t *testing.T) {
	h := newHarness(t)

	resp, err := h.service.BatchUpload(context.Background(), h.lead.ID(), []BatchItem{
		{Payload: pngPayload(), FileName: "good.png"},
		{Payload: "not-base64!!!", FileName: "bad.png"},
		{Payload: pngPayload(), FileName: "also-good.png"},
	})
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if resp.UploadedCount != 2 || resp.FailedCount != 1 {
		t.Fatalf("expected 2/1, got %d/%d", resp.UploadedCount, resp.FailedCount)
	}

	var failed *BatchItemResult
	for i := range resp.Results {
		if !resp.Results[i].Success {
			failed = &resp.Results[i]
		}
	}
	if failed == nil || failed.FileName != "bad.png" {
		t.Fatalf("expected bad.png to fail, got %+v", resp.Results)
	}
	if failed.ErrorCode != "INVALID_IMAGE" {
		t.Fatalf("expected INVALID_IMAGE code, got %q", failed.ErrorCode)
	}

	// Only the good items were persisted.
	count, _ := h.store.CountImagesByLead(context.Background(), h.lead.ID())
	if count != 2 {
		t.Fatalf("expected 2 persisted, got %d", count)
	}
}

func TestReplaceAtCapacity(t *testing.T) {
	h := newHarness(t)
	first := h.upload(t, "first.png")
	h.fill(t, leads.MaxImagesPerLead-1)

	oldID, err := leads.ParseImageID(first.ImageID)
	if err != nil {
		t.Fatalf("parse image id: %v", err)
	}

	resp, err := h.service.Replace(context.Background(), ReplaceRequest{
		LeadID:     h.lead.ID(),
		OldImageID: oldID,
		Payload:    pngPayload(),
		FileName:   "replacement.png",
	})
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if resp.OldImageID != first.ImageID {
		t.Fatalf("unexpected old id %q", resp.OldImageID)
	}
	if resp.Message != "Image replaced successfully. Image count remains at 10." {
		t.Fatalf("unexpected message %q", resp.Message)
	}

	count, _ := h.store.CountImagesByLead(context.Background(), h.lead.ID())
	if count != leads.MaxImagesPerLead {
		t.Fatalf("replace must keep the count at %d, got %d", leads.MaxImagesPerLead, count)
	}
	if exists, _ := h.store.ImageExists(context.Background(), oldID); exists {
		t.Fatalf("old image should be gone")
	}
}

func TestReplaceCrossLeadAnswersNotFound(t *testing.T) {
	h := newHarness(t)
	first := h.upload(t, "first.png")

	other, err := leads.NewLead("Other Person", "other@example.com", "+15559876543")
	if err != nil {
		t.Fatalf("new lead: %v", err)
	}
	if err := h.store.InsertLead(context.Background(), other); err != nil {
		t.Fatalf("insert: %v", err)
	}

	imgID, _ := leads.ParseImageID(first.ImageID)
	_, err = h.service.Replace(context.Background(), ReplaceRequest{
		LeadID:     other.ID(),
		OldImageID: imgID,
		Payload:    pngPayload(),
		FileName:   "steal.png",
	})
	if err != leads.ErrImageNotFound {
		t.Fatalf("cross-lead replace must answer not found, got %v", err)
	}
}

func TestDeleteImage(t *testing.T) {
	h := newHarness(t)
	first := h.upload(t, "first.png")
	h.upload(t, "second.png")

	imgID, _ := leads.ParseImageID(first.ImageID)
	resp, err := h.service.DeleteImage(context.Background(), h.lead.ID(), imgID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !resp.Success || resp.RemainingImageCount != 1 || resp.AvailableSlots != 9 {
		t.Fatalf("unexpected delete response: %+v", resp)
	}
	if resp.Message != "Image deleted successfully. You now have 1 image(s) and can add 9 more." {
		t.Fatalf("unexpected message %q", resp.Message)
	}

	// Deleting again is not idempotent: the caller learns the image is gone.
	if _, err := h.service.DeleteImage(context.Background(), h.lead.ID(), imgID); err != leads.ErrImageNotFound {
		t.Fatalf("expected ErrImageNotFound on repeat delete, got %v", err)
	}
}

func TestDeleteImageCrossLead(t *testing.T) {
	h := newHarness(t)
	first := h.upload(t, "first.png")

	other, err := leads.NewLead("Other Person", "other@example.com", "+15559876543")
	if err != nil {
		t.Fatalf("new lead: %v", err)
	}
	if err := h.store.InsertLead(context.Background(), other); err != nil {
		t.Fatalf("insert: %v", err)
	}

	imgID, _ := leads.ParseImageID(first.ImageID)
	if _, err := h.service.DeleteImage(context.Background(), other.ID(), imgID); err != leads.ErrImageNotFound {
		t.Fatalf("cross-lead delete must answer not found, got %v", err)
	}

	// The image is still there for its real owner.
	if exists, _ := h.store.ImageExists(context.Background(), imgID); !exists {
		t.Fatalf("image must survive a cross-lead delete attempt")
	}
}

func TestDeleteLeadCascade(t *testing.T) {
	h := newHarness(t)
	h.fill(t, 4)

	resp, err := h.service.DeleteLead(context.Background(), h.lead.ID())
	if err != nil {
		t.Fatalf("delete lead: %v", err)
	}
	if resp.ImagesDeleted != 4 {
		t.Fatalf("expected 4 images deleted, got %d", resp.ImagesDeleted)
	}

	if exists, _ := h.store.LeadExists(context.Background(), h.lead.ID()); exists {
		t.Fatalf("lead should be gone")
	}
	count, _ := h.store.CountImagesByLead(context.Background(), h.lead.ID())
	if count != 0 {
		t.Fatalf("cascade must leave no orphans, got %d", count)
	}

	if _, err := h.service.DeleteLead(context.Background(), h.lead.ID()); err != leads.ErrLeadNotFound {
		t.Fatalf("expected ErrLeadNotFound on repeat cascade, got %v", err)
	}
}

func TestImagesListing(t *testing.T) {
	h := newHarness(t)
	h.upload(t, "a.png")
	h.upload(t, "b.png")

	resp, err := h.service.Images(context.Background(), h.lead.ID())
	if err != nil {
		t.Fatalf("images: %v", err)
	}
	if resp.Count != 2 || resp.RemainingSlots != 8 {
		t.Fatalf("unexpected counts: %d/%d", resp.Count, resp.RemainingSlots)
	}
	if resp.Images[0].FileName != "a.png" || resp.Images[1].FileName != "b.png" {
		t.Fatalf("expected upload order, got %+v", resp.Images)
	}
	if resp.Images[0].Data == "" {
		t.Fatalf("listing should include payloads")
	}
}

func TestCountEndpointShape(t *testing.T) {
	h := newHarness(t)
	h.fill(t, leads.MaxImagesPerLead)

	resp, err := h.service.Count(context.Background(), h.lead.ID())
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if resp.Count != 10 || resp.RemainingSlots != 0 || !resp.IsAtLimit {
		t.Fatalf("unexpected count response: %+v", resp)
	}
}

func TestUpdateDescription(t *testing.T) {
	h := newHarness(t)
	first := h.upload(t, "first.png")
	imgID, _ := leads.ParseImageID(first.ImageID)

	summary, err := h.service.UpdateDescription(context.Background(), h.lead.ID(), imgID, "before shot")
	if err != nil {
		t.Fatalf("update description: %v", err)
	}
	if summary.Description != "before shot" {
		t.Fatalf("expected description set, got %q", summary.Description)
	}
	if summary.ModifiedAt == nil {
		t.Fatalf("expected modified timestamp")
	}
	if summary.Data != "" {
		t.Fatalf("description updates should not echo the payload")
	}
}

func TestValidateDryRun(t *testing.T) {
	h := newHarness(t)

	resp := h.service.Validate(context.Background(), pngPayload())
	if !resp.Valid {
		t.Fatalf("expected valid payload: %+v", resp)
	}
	if resp.DetectedContentType != "image/png" {
		t.Fatalf("expected sniffed png, got %q", resp.DetectedContentType)
	}
	if resp.SizeBytes != len(pngBytes) {
		t.Fatalf("expected size %d, got %d", len(pngBytes), resp.SizeBytes)
	}

	resp = h.service.Validate(context.Background(), "!!!")
	if resp.Valid || resp.Reason == "" {
		t.Fatalf("expected invalid payload with reason: %+v", resp)
	}
}

// Full lifecycle: fill to the cap, get rejected, replace in place, then free
// a slot by deleting.
func TestGalleryLifecycle(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	var firstID string
	for i := 0; i < leads.MaxImagesPerLead; i++ {
		resp := h.upload(t, fmt.Sprintf("photo-%d.png", i))
		if i == 0 {
			firstID = resp.ImageID
		}
		if resp.CurrentImageCount != i+1 {
			t.Fatalf("expected count %d, got %d", i+1, resp.CurrentImageCount)
		}
	}

	if _, err := h.service.Upload(ctx, UploadRequest{LeadID: h.lead.ID(), Payload: pngPayload(), FileName: "eleventh.png"}); err == nil {
		t.Fatalf("expected rejection of the eleventh image")
	}

	oldID, _ := leads.ParseImageID(firstID)
	if _, err := h.service.Replace(ctx, ReplaceRequest{LeadID: h.lead.ID(), OldImageID: oldID, Payload: pngPayload(), FileName: "fresh.png"}); err != nil {
		t.Fatalf("replace at cap: %v", err)
	}

	countResp, err := h.service.Count(ctx, h.lead.ID())
	if err != nil || countResp.Count != leads.MaxImagesPerLead {
		t.Fatalf("expected cap after replace, got %+v (%v)", countResp, err)
	}

	images, err := h.service.Images(ctx, h.lead.ID())
	if err != nil {
		t.Fatalf("images: %v", err)
	}
	lastID, _ := leads.ParseImageID(images.Images[len(images.Images)-1].ImageID)
	deleteResp, err := h.service.DeleteImage(ctx, h.lead.ID(), lastID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if deleteResp.RemainingImageCount != 9 || deleteResp.AvailableSlots != 1 {
		t.Fatalf("unexpected post-delete counts: %+v", deleteResp)
	}

	if _, err := h.service.Upload(ctx, UploadRequest{LeadID: h.lead.ID(), Payload: pngPayload(), FileName: "refill.png"}); err != nil {
		t.Fatalf("refill after delete: %v", err)
	}
}
