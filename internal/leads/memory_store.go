package leads

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryStore is an in-memory Store used by tests and local development.
// A single mutex serializes every write sequence, which gives the same
// atomicity guarantee the Postgres store gets from transactions.
type MemoryStore struct {
	mu     sync.RWMutex
	leads  map[LeadID]LeadRecord
	images map[ImageID]memImage
	seq    int64
}

type memImage struct {
	rec ImageRecord
	seq int64
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		leads:  make(map[LeadID]LeadRecord),
		images: make(map[ImageID]memImage),
	}
}

func (s *MemoryStore) InsertLead(ctx context.Context, lead *Lead) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := lead.Record()
	for _, existing := range s.leads {
		if existing.Email == rec.Email {
			return ErrEmailTaken
		}
	}
	s.leads[rec.ID] = rec
	return nil
}

func (s *MemoryStore) GetLead(ctx context.Context, id LeadID) (*Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.leads[id]
	if !ok {
		return nil, ErrLeadNotFound
	}
	return LeadFromRecord(rec, nil, false)
}

func (s *MemoryStore) GetLeadWithImages(ctx context.Context, id LeadID) (*Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.leads[id]
	if !ok {
		return nil, ErrLeadNotFound
	}
	images, err := s.imagesForLeadLocked(id)
	if err != nil {
		return nil, err
	}
	return LeadFromRecord(rec, images, true)
}

func (s *MemoryStore) LeadExists(ctx context.Context, id LeadID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.leads[id]
	return ok, nil
}

func (s *MemoryStore) UpdateLead(ctx context.Context, lead *Lead) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateLeadLocked(lead)
}

func (s *MemoryStore) updateLeadLocked(lead *Lead) error {
	rec := lead.Record()
	stored, ok := s.leads[rec.ID]
	if !ok {
		return ErrLeadNotFound
	}
	if stored.Version != rec.Version {
		return ErrConflict
	}
	for id, existing := range s.leads {
		if id != rec.ID && existing.Email == rec.Email {
			return ErrEmailTaken
		}
	}
	rec.Version++
	s.leads[rec.ID] = rec
	lead.bumpVersion()
	return nil
}

func (s *MemoryStore) ListLeads(ctx context.Context, filter ListFilter) ([]*Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recs := make([]LeadRecord, 0, len(s.leads))
	for _, rec := range s.leads {
		if filter.Status != "" && rec.Status != filter.Status {
			continue
		}
		if filter.Query != "" {
			q := strings.ToLower(filter.Query)
			if !strings.Contains(strings.ToLower(rec.Name), q) && !strings.Contains(rec.Email, q) {
				continue
			}
		}
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].CreatedAt.Before(recs[j].CreatedAt) })

	if filter.Offset > 0 {
		if filter.Offset >= len(recs) {
			recs = nil
		} else {
			recs = recs[filter.Offset:]
		}
	}
	if filter.Limit > 0 && filter.Limit < len(recs) {
		recs = recs[:filter.Limit]
	}

	out := make([]*Lead, 0, len(recs))
	for _, rec := range recs {
		lead, err := LeadFromRecord(rec, nil, false)
		if err != nil {
			return nil, err
		}
		out = append(out, lead)
	}
	return out, nil
}

func (s *MemoryStore) GetImage(ctx context.Context, id ImageID) (*Image, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.images[id]
	if !ok {
		return nil, ErrImageNotFound
	}
	return ImageFromRecord(entry.rec)
}

func (s *MemoryStore) ListImagesByLead(ctx context.Context, leadID LeadID) ([]*Image, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.imagesForLeadLocked(leadID)
}

func (s *MemoryStore) imagesForLeadLocked(leadID LeadID) ([]*Image, error) {
	entries := make([]memImage, 0)
	for _, entry := range s.images {
		if entry.rec.LeadID == leadID {
			entries = append(entries, entry)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })

	out := make([]*Image, 0, len(entries))
	for _, entry := range entries {
		img, err := ImageFromRecord(entry.rec)
		if err != nil {
			return nil, err
		}
		out = append(out, img)
	}
	return out, nil
}

func (s *MemoryStore) CountImagesByLead(ctx context.Context, leadID LeadID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, entry := range s.images {
		if entry.rec.LeadID == leadID {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) ImageExists(ctx context.Context, id ImageID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.images[id]
	return ok, nil
}

func (s *MemoryStore) ImageBelongsToLead(ctx context.Context, id ImageID, leadID LeadID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.images[id]
	return ok && entry.rec.LeadID == leadID, nil
}

func (s *MemoryStore) UpdateImageDescription(ctx context.Context, img *Image) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := img.Record()
	entry, ok := s.images[rec.ID]
	if !ok {
		return ErrImageNotFound
	}
	entry.rec.Description = rec.Description
	entry.rec.ModifiedAt = rec.ModifiedAt
	s.images[rec.ID] = entry
	return nil
}

func (s *MemoryStore) SetCachedImageCount(ctx context.Context, leadID LeadID, count int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.leads[leadID]
	if !ok {
		return ErrLeadNotFound
	}
	rec.CachedImageCount = count
	s.leads[leadID] = rec
	return nil
}

func (s *MemoryStore) SaveNewImage(ctx context.Context, img *Image, lead *Lead) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.updateLeadLocked(lead); err != nil {
		return err
	}
	s.seq++
	s.images[img.ID()] = memImage{rec: img.Record(), seq: s.seq}
	return nil
}

func (s *MemoryStore) SaveNewImages(ctx context.Context, imgs []*Image, lead *Lead) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.updateLeadLocked(lead); err != nil {
		return err
	}
	for _, img := range imgs {
		s.seq++
		s.images[img.ID()] = memImage{rec: img.Record(), seq: s.seq}
	}
	return nil
}

func (s *MemoryStore) SwapImage(ctx context.Context, oldID ImageID, img *Image, lead *Lead) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.images[oldID]; !ok {
		return ErrImageNotFound
	}
	if err := s.updateLeadLocked(lead); err != nil {
		return err
	}
	delete(s.images, oldID)
	s.seq++
	s.images[img.ID()] = memImage{rec: img.Record(), seq: s.seq}
	return nil
}

func (s *MemoryStore) DeleteImage(ctx context.Context, id ImageID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.images[id]; !ok {
		return ErrImageNotFound
	}
	delete(s.images, id)
	return nil
}

func (s *MemoryStore) DeleteLeadCascade(ctx context.Context, id LeadID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.leads[id]; !ok {
		return 0, ErrLeadNotFound
	}
	var removed int64
	for imgID, entry := range s.images {
		if entry.rec.LeadID == id {
			delete(s.images, imgID)
			removed++
		}
	}
	delete(s.leads, id)
	return removed, nil
}
