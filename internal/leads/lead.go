package leads

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

const (
	// MaxImagesPerLead caps the number of images a single lead may own.
	MaxImagesPerLead = 10

	minNameLength  = 2
	maxNameLength  = 100
	maxEmailLength = 255
	maxPhoneLength = 20
)

var phonePattern = regexp.MustCompile(`^\+?[1-9][0-9]{1,14}$`)

// Lead is the aggregate root for a customer record. It exclusively owns its
// image collection; the only way to mutate the collection is through the
// methods below, which enforce the capacity invariant.
type Lead struct {
	id        LeadID
	name      string
	email     string
	phone     string
	status    Status
	createdAt time.Time
	updatedAt time.Time

	// version stamps conditional writes for optimistic concurrency.
	version int64

	// cachedImageCount mirrors the denormalized counter column. It is a
	// display cache only; capacity decisions always use the live collection
	// or an authoritative store count.
	cachedImageCount int

	images       []*Image
	imagesLoaded bool
}

// NewLead validates contact fields and builds a fresh lead in StatusNew.
func NewLead(name, email, phone string) (*Lead, error) {
	name, err := validateName(name)
	if err != nil {
		return nil, err
	}
	email, err = validateEmail(email)
	if err != nil {
		return nil, err
	}
	phone, err = validatePhone(phone)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &Lead{
		id:           NewLeadID(),
		name:         name,
		email:        email,
		phone:        phone,
		status:       StatusNew,
		createdAt:    now,
		updatedAt:    now,
		imagesLoaded: true, // brand-new leads own no images yet
	}, nil
}

func (l *Lead) ID() LeadID           { return l.id }
func (l *Lead) Name() string         { return l.name }
func (l *Lead) Email() string        { return l.email }
func (l *Lead) Phone() string        { return l.phone }
func (l *Lead) Status() Status       { return l.status }
func (l *Lead) CreatedAt() time.Time { return l.createdAt }
func (l *Lead) UpdatedAt() time.Time { return l.updatedAt }
func (l *Lead) Version() int64       { return l.version }

// Images returns a read-only copy of the image collection in upload order.
func (l *Lead) Images() []*Image {
	out := make([]*Image, len(l.images))
	copy(out, l.images)
	return out
}

// ImageCount reports the in-memory collection size when images are loaded,
// falling back to the cached counter otherwise.
func (l *Lead) ImageCount() int {
	if l.imagesLoaded {
		return len(l.images)
	}
	return l.cachedImageCount
}

// CanAddImage reports whether the lead has a free slot.
func (l *Lead) CanAddImage() bool {
	return l.ImageCount() < MaxImagesPerLead
}

// AvailableSlots reports how many more images the lead may accept. Never
// negative.
func (l *Lead) AvailableSlots() int {
	slots := MaxImagesPerLead - l.ImageCount()
	if slots < 0 {
		return 0
	}
	return slots
}

// TryAddImage appends an image, enforcing the capacity invariant. Capacity is
// checked before duplicate identity since it is the common rejection; the
// duplicate check is defensive and should be unreachable with generated ids.
func (l *Lead) TryAddImage(img *Image) error {
	if img == nil {
		return invalidImage("image is nil")
	}
	if !l.CanAddImage() {
		return &CapacityError{Current: l.ImageCount(), Max: MaxImagesPerLead}
	}
	for _, existing := range l.images {
		if existing.id == img.id {
			return ErrDuplicateImage
		}
	}
	l.images = append(l.images, img)
	l.cachedImageCount = len(l.images)
	l.touch()
	return nil
}

// ReplaceImage retires oldID and appends newImg as one in-memory operation.
// The collection never observably holds both or neither, which makes this
// the only mutation allowed to keep a full lead at the cap.
func (l *Lead) ReplaceImage(oldID ImageID, newImg *Image) error {
	if newImg == nil {
		return invalidImage("replacement image is nil")
	}
	idx := -1
	for i, existing := range l.images {
		if existing.id == oldID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrImageNotFound
	}
	l.images = append(l.images[:idx], l.images[idx+1:]...)
	l.images = append(l.images, newImg)
	l.cachedImageCount = len(l.images)
	l.touch()
	return nil
}

// RemoveImage drops the image with the given id.
func (l *Lead) RemoveImage(id ImageID) error {
	for i, existing := range l.images {
		if existing.id == id {
			l.images = append(l.images[:i], l.images[i+1:]...)
			l.cachedImageCount = len(l.images)
			l.touch()
			return nil
		}
	}
	return ErrImageNotFound
}

// FindImage returns the owned image with the given id, if present.
func (l *Lead) FindImage(id ImageID) (*Image, bool) {
	for _, existing := range l.images {
		if existing.id == id {
			return existing, true
		}
	}
	return nil, false
}

// UpdateContactInfo applies a partial update; empty fields are left alone.
// UpdatedAt moves only when something actually changed.
func (l *Lead) UpdateContactInfo(name, email, phone string) error {
	changed := false

	if strings.TrimSpace(name) != "" {
		validated, err := validateName(name)
		if err != nil {
			return err
		}
		if validated != l.name {
			l.name = validated
			changed = true
		}
	}
	if strings.TrimSpace(email) != "" {
		validated, err := validateEmail(email)
		if err != nil {
			return err
		}
		if validated != l.email {
			l.email = validated
			changed = true
		}
	}
	if strings.TrimSpace(phone) != "" {
		validated, err := validatePhone(phone)
		if err != nil {
			return err
		}
		if validated != l.phone {
			l.phone = validated
			changed = true
		}
	}

	if changed {
		l.touch()
	}
	return nil
}

// UpdateStatus moves the lead to a new pipeline stage. A no-op when the
// status is unchanged so UpdatedAt does not churn.
func (l *Lead) UpdateStatus(status Status) error {
	if !status.Valid() {
		return &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", status)}
	}
	if l.status == status {
		return nil
	}
	l.status = status
	l.touch()
	return nil
}

// IsQualified reports whether the lead sits in an active qualified stage.
func (l *Lead) IsQualified() bool {
	return l.status == StatusQualified || l.status == StatusProposal || l.status == StatusNegotiation
}

// IsClosed reports whether the lead has left the pipeline.
func (l *Lead) IsClosed() bool {
	return l.status == StatusClosed || l.status == StatusLost
}

func (l *Lead) touch() {
	l.updatedAt = time.Now().UTC()
}

func validateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if len(name) < minNameLength {
		return "", &ValidationError{Field: "name", Reason: fmt.Sprintf("must be at least %d characters", minNameLength)}
	}
	if len(name) > maxNameLength {
		return "", &ValidationError{Field: "name", Reason: fmt.Sprintf("cannot exceed %d characters", maxNameLength)}
	}
	return name, nil
}

func validateEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", &ValidationError{Field: "email", Reason: "cannot be empty"}
	}
	if len(email) > maxEmailLength {
		return "", &ValidationError{Field: "email", Reason: fmt.Sprintf("cannot exceed %d characters", maxEmailLength)}
	}
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 {
		return "", &ValidationError{Field: "email", Reason: "invalid format"}
	}
	return email, nil
}

func validatePhone(phone string) (string, error) {
	replacer := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "")
	phone = replacer.Replace(strings.TrimSpace(phone))
	if phone == "" {
		return "", &ValidationError{Field: "phone", Reason: "cannot be empty"}
	}
	if len(phone) > maxPhoneLength {
		return "", &ValidationError{Field: "phone", Reason: fmt.Sprintf("cannot exceed %d characters", maxPhoneLength)}
	}
	if !phonePattern.MatchString(phone) {
		return "", &ValidationError{Field: "phone", Reason: "invalid format"}
	}
	return phone, nil
}

// LeadRecord is the persistence shape of a Lead, minus its images.
type LeadRecord struct {
	ID               LeadID
	Name             string
	Email            string
	Phone            string
	Status           Status
	Version          int64
	CachedImageCount int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Record snapshots the lead for persistence. When the image collection is
// loaded the cached counter is synced to it.
func (l *Lead) Record() LeadRecord {
	count := l.cachedImageCount
	if l.imagesLoaded {
		count = len(l.images)
	}
	return LeadRecord{
		ID:               l.id,
		Name:             l.name,
		Email:            l.email,
		Phone:            l.phone,
		Status:           l.status,
		Version:          l.version,
		CachedImageCount: count,
		CreatedAt:        l.createdAt,
		UpdatedAt:        l.updatedAt,
	}
}

// LeadFromRecord rebuilds a lead from its persisted form. Pass images only
// when the full collection was loaded; a nil slice with imagesLoaded false
// leaves capacity queries on the cached counter.
func LeadFromRecord(rec LeadRecord, images []*Image, imagesLoaded bool) (*Lead, error) {
	if rec.ID.IsZero() {
		return nil, &ValidationError{Field: "id", Reason: "persisted lead id is missing"}
	}
	l := &Lead{
		id:               rec.ID,
		name:             rec.Name,
		email:            rec.Email,
		phone:            rec.Phone,
		status:           rec.Status,
		version:          rec.Version,
		cachedImageCount: rec.CachedImageCount,
		createdAt:        rec.CreatedAt,
		updatedAt:        rec.UpdatedAt,
		imagesLoaded:     imagesLoaded,
	}
	if imagesLoaded {
		l.images = make([]*Image, len(images))
		copy(l.images, images)
		l.cachedImageCount = len(images)
	}
	return l, nil
}
