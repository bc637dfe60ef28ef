package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"guesthouse/internal/domain"
	"guesthouse/internal/events"
	"guesthouse/internal/mail"
	"guesthouse/internal/models"
	"guesthouse/internal/storage"

	"github.com/rs/zerolog"
)

type ContactRequest struct {
	Name    string `json:"name" validate:"required,min=2,max=50"`
	Email   string `json:"email" validate:"required,email"`
	Subject string `json:"subject" validate:"required,max=150"`
	Message string `json:"message" validate:"required,min=10,max=1000"`
}

type ContactService struct {
	contacts   *storage.Repository[models.Contact]
	mailer     domain.Mailer
	eventBus   domain.EventPublisher
	adminEmail string
	now        func() time.Time
	logger     *zerolog.Logger
}

func NewContactService(store storage.Store, mailer domain.Mailer, eventBus domain.EventPublisher, adminEmail string, logger *zerolog.Logger) *ContactService {
	log := logger.With().Str("component", "contacts").Logger()
	return &ContactService{
		contacts:   storage.NewRepository[models.Contact](store.Collection(models.CollectionContacts), "id"),
		mailer:     mailer,
		eventBus:   eventBus,
		adminEmail: adminEmail,
		now:        time.Now,
		logger:     &log,
	}
}

// Submit stores a contact message and queues the acknowledgement and admin copy.
func (s *ContactService) Submit(ctx context.Context, req ContactRequest) (*models.Contact, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Subject = strings.TrimSpace(req.Subject)
	req.Message = strings.TrimSpace(req.Message)
	if err := validateStruct(&req); err != nil {
		return nil, err
	}

	contact := &models.Contact{
		ID:        newShortID(),
		Name:      req.Name,
		Email:     req.Email,
		Subject:   req.Subject,
		Message:   req.Message,
		Timestamp: s.now().Format(models.TimestampLayout),
	}
	if err := s.contacts.Insert(ctx, contact); err != nil {
		return nil, fmt.Errorf("save contact: %w", err)
	}

	data := models.Payload{
		"id":        contact.ID,
		"name":      contact.Name,
		"email":     contact.Email,
		"subject":   contact.Subject,
		"message":   contact.Message,
		"timestamp": contact.Timestamp,
	}
	s.mailer.Enqueue(ctx, mail.KindContactConfirmation, contact.Email, data)
	s.mailer.Enqueue(ctx, mail.KindContactAdmin, s.adminEmail, data)

	if s.eventBus != nil {
		payload := events.ContactEventPayload{Name: contact.Name, Email: contact.Email, Subject: contact.Subject}
		if err := s.eventBus.PublishJSON(events.EventContactReceived, payload); err != nil {
			s.logger.Warn().Err(err).Msg("failed to publish contact event")
		}
	}

	s.logger.Info().Str("contact_id", contact.ID).Msg("contact message received")
	return contact, nil
}

func (s *ContactService) List(ctx context.Context) ([]models.Contact, error) {
	contacts, err := s.contacts.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	return contacts, nil
}

type TestimonialRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=50"`
	Location string `json:"location" validate:"max=100"`
	Comment  string `json:"comment" validate:"required,min=10,max=1000"`
	Rating   int    `json:"rating" validate:"gte=1,lte=5"`
}

type TestimonialService struct {
	testimonials *storage.Repository[models.Testimonial]
	now          func() time.Time
	logger       *zerolog.Logger
}

func NewTestimonialService(store storage.Store, logger *zerolog.Logger) *TestimonialService {
	log := logger.With().Str("component", "testimonials").Logger()
	return &TestimonialService{
		testimonials: storage.NewRepository[models.Testimonial](store.Collection(models.CollectionTestimonials), "id"),
		now:          time.Now,
		logger:       &log,
	}
}

func (s *TestimonialService) Add(ctx context.Context, req TestimonialRequest) (*models.Testimonial, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Location = strings.TrimSpace(req.Location)
	req.Comment = strings.TrimSpace(req.Comment)
	if err := validateStruct(&req); err != nil {
		return nil, err
	}

	t := &models.Testimonial{
		ID:        newShortID(),
		Name:      req.Name,
		Location:  req.Location,
		Comment:   req.Comment,
		Rating:    req.Rating,
		Timestamp: s.now().Format(models.TimestampLayout),
	}
	if err := s.testimonials.Insert(ctx, t); err != nil {
		return nil, fmt.Errorf("save testimonial: %w", err)
	}
	s.logger.Info().Str("testimonial_id", t.ID).Int("rating", t.Rating).Msg("testimonial added")
	return t, nil
}

// List returns testimonials newest first.
func (s *TestimonialService) List(ctx context.Context) ([]models.Testimonial, error) {
	list, err := s.testimonials.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("list testimonials: %w", err)
	}
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Timestamp > list[j].Timestamp
	})
	return list, nil
}

func (s *TestimonialService) Delete(ctx context.Context, id string) error {
	n, err := s.testimonials.Remove(ctx, strings.TrimSpace(id))
	if err != nil {
		return fmt.Errorf("delete testimonial %s: %w", id, err)
	}
	if n == 0 {
		return ErrTestimonialNotFound
	}
	s.logger.Info().Str("testimonial_id", id).Msg("testimonial deleted")
	return nil
}
