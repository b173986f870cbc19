// Package venues manages the venue catalog: listings owned by Owner
// profiles, their gallery images and the publication lifecycle.
package venues

import (
	"context"
	"fmt"
	"time"

	"ms-venues/internal/apperr"
	"ms-venues/internal/db"
	"ms-venues/internal/logger"
	"ms-venues/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Service struct {
	DB  *db.DB
	Log *logger.Logger
	Now func() time.Time
}

func NewService(store *db.DB, log *logger.Logger) *Service {
	return &Service{DB: store, Log: log, Now: time.Now}
}

// VenueInput carries writable venue fields. Nil pointers take defaults on
// create and keep the stored value on update.
type VenueInput struct {
	OwnerID            *string              `json:"owner_id"`
	Name               *string              `json:"name"`
	Slug               *string              `json:"slug"`
	Description        *string              `json:"description"`
	ShortDescription   *string              `json:"short_description"`
	Address            *string              `json:"address"`
	City               *string              `json:"city"`
	PostalCode         *string              `json:"postal_code"`
	Latitude           *float64             `json:"latitude"`
	Longitude          *float64             `json:"longitude"`
	CapacityMin        *int                 `json:"capacity_min"`
	CapacityMax        *int                 `json:"capacity_max"`
	AreaSqM            *int                 `json:"area_sq_m"`
	PricePerHour       *decimal.NullDecimal `json:"price_per_hour"`
	PricePerDay        *decimal.NullDecimal `json:"price_per_day"`
	MinBookingHours    *int                 `json:"min_booking_hours"`
	CancellationPolicy *string              `json:"cancellation_policy"`
	IsVerified         *bool                `json:"is_verified"`
}

func (in VenueInput) apply(v *models.Venue) {
	set(&v.OwnerID, in.OwnerID)
	set(&v.Name, in.Name)
	set(&v.Description, in.Description)
	set(&v.ShortDescription, in.ShortDescription)
	set(&v.Address, in.Address)
	set(&v.City, in.City)
	set(&v.PostalCode, in.PostalCode)
	set(&v.CapacityMin, in.CapacityMin)
	set(&v.CapacityMax, in.CapacityMax)
	set(&v.PricePerHour, in.PricePerHour)
	set(&v.PricePerDay, in.PricePerDay)
	set(&v.MinBookingHours, in.MinBookingHours)
	set(&v.CancellationPolicy, in.CancellationPolicy)
	set(&v.IsVerified, in.IsVerified)
	if in.Latitude != nil {
		v.Latitude = in.Latitude
	}
	if in.Longitude != nil {
		v.Longitude = in.Longitude
	}
	if in.AreaSqM != nil {
		v.AreaSqM = in.AreaSqM
	}
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func (s *Service) CreateVenue(ctx context.Context, in VenueInput) (*models.Venue, error) {
	now := s.Now().UTC()
	v := &models.Venue{
		ID:              uuid.NewString(),
		CapacityMin:     models.DefaultCapacityMin,
		MinBookingHours: models.DefaultMinBookingHours,
		Status:          models.VenueDraft,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	in.apply(v)
	if in.Slug != nil {
		v.Slug = *in.Slug
	}

	err := s.DB.RunInTx(ctx, func(ctx context.Context, tx *db.DB) error {
		if v.OwnerID == "" {
			return apperr.Validation("owner_id", "is required")
		}
		if _, err := tx.GetOwner(ctx, v.OwnerID); err != nil {
			return err
		}
		if err := s.assignSlug(ctx, tx, v, in.Slug != nil && *in.Slug != ""); err != nil {
			return err
		}
		if err := v.Check(); err != nil {
			return err
		}
		return tx.CreateVenue(ctx, v)
	})
	if err != nil {
		return nil, err
	}

	s.Log.Info("VENUES", fmt.Sprintf("Created venue %s (%s) for owner %s", v.ID, v.Slug, v.OwnerID))
	return v, nil
}

// assignSlug derives the slug from the name when none was given and
// suffixes it until unique. An explicit slug that is taken is rejected.
func (s *Service) assignSlug(ctx context.Context, tx *db.DB, v *models.Venue, explicit bool) error {
	if explicit {
		taken, err := tx.SlugTaken(ctx, v.Slug, v.ID)
		if err != nil {
			return err
		}
		if taken {
			return apperr.Validation("slug", "slug %q is already taken", v.Slug)
		}
		return nil
	}

	base := Slugify(v.Name)
	if base == "" {
		base = "venue"
	}
	candidate := base
	for {
		taken, err := tx.SlugTaken(ctx, candidate, v.ID)
		if err != nil {
			return err
		}
		if !taken {
			v.Slug = candidate
			return nil
		}
		suffix := "-" + uuid.NewString()[:8]
		if len(base)+len(suffix) > maxSlugLen {
			base = base[:maxSlugLen-len(suffix)]
		}
		candidate = base + suffix
	}
}

// UpdateVenue patches a venue. Status moves only through ChangeVenueStatus.
func (s *Service) UpdateVenue(ctx context.Context, id string, in VenueInput) (*models.Venue, error) {
	var out *models.Venue
	err := s.DB.RunInTx(ctx, func(ctx context.Context, tx *db.DB) error {
		v, err := tx.GetVenue(ctx, id)
		if err != nil {
			return err
		}
		prevOwner := v.OwnerID
		in.apply(v)
		if v.OwnerID != prevOwner {
			if _, err := tx.GetOwner(ctx, v.OwnerID); err != nil {
				return err
			}
		}
		if in.Slug != nil {
			v.Slug = *in.Slug
			if err := s.assignSlug(ctx, tx, v, v.Slug != ""); err != nil {
				return err
			}
		}
		if err := v.Check(); err != nil {
			return err
		}
		v.UpdatedAt = s.Now().UTC()
		out = v
		return tx.UpdateVenue(ctx, v)
	})
	return out, err
}

func (s *Service) ChangeVenueStatus(ctx context.Context, id string, to models.VenueStatus) (*models.Venue, error) {
	var out *models.Venue
	var from models.VenueStatus
	err := s.DB.RunInTx(ctx, func(ctx context.Context, tx *db.DB) error {
		v, err := tx.GetVenue(ctx, id)
		if err != nil {
			return err
		}
		from = v.Status
		if err := models.VenueLifecycle.Check(from, to); err != nil {
			return err
		}
		v.Status = to
		v.UpdatedAt = s.Now().UTC()
		out = v
		return tx.UpdateVenue(ctx, v)
	})
	if err != nil {
		return nil, err
	}
	s.Log.Info("VENUES", fmt.Sprintf("Venue %s moved %s -> %s", id, from, to))
	return out, nil
}

func (s *Service) AllowedVenueStatuses(ctx context.Context, id string) ([]models.VenueStatus, error) {
	v, err := s.DB.GetVenue(ctx, id)
	if err != nil {
		return nil, err
	}
	return models.VenueLifecycle.AllowedNext(v.Status), nil
}

func (s *Service) GetVenue(ctx context.Context, id string) (*models.Venue, error) {
	return s.DB.GetVenue(ctx, id)
}

func (s *Service) GetVenueBySlug(ctx context.Context, slug string) (*models.Venue, error) {
	return s.DB.GetVenueBySlug(ctx, slug)
}

// VenueDetail is the venue with its gallery.
type VenueDetail struct {
	*models.Venue
	StatusLabel string              `json:"status_label"`
	Images      []models.VenueImage `json:"images"`
	MainPhoto   *models.VenueImage  `json:"main_photo"`
}

func (s *Service) GetVenueDetail(ctx context.Context, id string) (*VenueDetail, error) {
	v, err := s.DB.GetVenue(ctx, id)
	if err != nil {
		return nil, err
	}
	images, err := s.DB.ListVenueImages(ctx, id)
	if err != nil {
		return nil, err
	}
	return &VenueDetail{
		Venue:       v,
		StatusLabel: v.Status.Label(),
		Images:      images,
		MainPhoto:   models.MainPhoto(images),
	}, nil
}

func (s *Service) ListVenues(ctx context.Context, f db.VenueFilter) ([]models.Venue, int, error) {
	if f.Status != "" && !models.VenueLifecycle.Known(models.VenueStatus(f.Status)) {
		return nil, 0, apperr.Validation("status", "unknown venue status %q", f.Status)
	}
	return s.DB.ListVenues(ctx, f)
}

type ImageInput struct {
	Path    string `json:"path"`
	Order   int    `json:"order"`
	Caption string `json:"caption"`
}

func (s *Service) AddImage(ctx context.Context, venueID string, in ImageInput) (*models.VenueImage, error) {
	img := &models.VenueImage{
		ID:        uuid.NewString(),
		VenueID:   venueID,
		Path:      in.Path,
		Order:     in.Order,
		Caption:   in.Caption,
		CreatedAt: s.Now().UTC(),
	}
	if err := models.Validate(img); err != nil {
		return nil, err
	}
	err := s.DB.RunInTx(ctx, func(ctx context.Context, tx *db.DB) error {
		if _, err := tx.GetVenue(ctx, venueID); err != nil {
			return err
		}
		return tx.CreateVenueImage(ctx, img)
	})
	if err != nil {
		return nil, err
	}
	return img, nil
}

func (s *Service) ListImages(ctx context.Context, venueID string) ([]models.VenueImage, error) {
	if _, err := s.DB.GetVenue(ctx, venueID); err != nil {
		return nil, err
	}
	return s.DB.ListVenueImages(ctx, venueID)
}

// MainPhoto returns the venue's cover image, nil when it has none.
func (s *Service) MainPhoto(ctx context.Context, venueID string) (*models.VenueImage, error) {
	images, err := s.ListImages(ctx, venueID)
	if err != nil {
		return nil, err
	}
	return models.MainPhoto(images), nil
}

// DeleteVenue removes the venue with its bookings and images. Bookings that
// carry payments block the delete.
func (s *Service) DeleteVenue(ctx context.Context, id string) error {
	err := s.DB.RunInTx(ctx, func(ctx context.Context, tx *db.DB) error {
		if _, err := tx.GetVenue(ctx, id); err != nil {
			return err
		}
		return tx.DeleteVenues(ctx, id)
	})
	if err != nil {
		return err
	}
	s.Log.Info("VENUES", fmt.Sprintf("Deleted venue %s", id))
	return nil
}
