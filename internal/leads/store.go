package leads

import "context"

// ListFilter narrows lead listing.
type ListFilter struct {
	Limit  int
	Offset int
	Status Status // optional
	Query  string // optional name/email substring match
}

// Store is the durable persistence collaborator for leads and their images.
// Implementations must make the multi-write sequences atomic: either every
// write in a sequence becomes durable or none of them does.
type Store interface {
	// Lead documents.
	InsertLead(ctx context.Context, lead *Lead) error
	GetLead(ctx context.Context, id LeadID) (*Lead, error)
	GetLeadWithImages(ctx context.Context, id LeadID) (*Lead, error)
	LeadExists(ctx context.Context, id LeadID) (bool, error)
	UpdateLead(ctx context.Context, lead *Lead) error
	ListLeads(ctx context.Context, filter ListFilter) ([]*Lead, error)

	// Image documents.
	GetImage(ctx context.Context, id ImageID) (*Image, error)
	ListImagesByLead(ctx context.Context, leadID LeadID) ([]*Image, error)
	CountImagesByLead(ctx context.Context, leadID LeadID) (int, error)
	ImageExists(ctx context.Context, id ImageID) (bool, error)
	ImageBelongsToLead(ctx context.Context, id ImageID, leadID LeadID) (bool, error)
	UpdateImageDescription(ctx context.Context, img *Image) error
	SetCachedImageCount(ctx context.Context, leadID LeadID, count int) error

	// Capacity-coupled write sequences. The lead write is version-stamped;
	// a stale version surfaces ErrConflict and nothing is persisted.
	SaveNewImage(ctx context.Context, img *Image, lead *Lead) error
	SaveNewImages(ctx context.Context, imgs []*Image, lead *Lead) error
	SwapImage(ctx context.Context, oldID ImageID, img *Image, lead *Lead) error
	DeleteImage(ctx context.Context, id ImageID) error
	DeleteLeadCascade(ctx context.Context, id LeadID) (int64, error)
}

// bumpVersion advances the optimistic concurrency stamp after a successful
// conditional write. Store implementations live in this package so they can
// keep the in-memory aggregate in step with the row.
func (l *Lead) bumpVersion() { l.version++ }
