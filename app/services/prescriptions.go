package services

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/pharmacare/pharmacare-api/app/models"
	"github.com/pharmacare/pharmacare-api/app/repositories"
	"github.com/pharmacare/pharmacare-api/pkg/logger"
	"github.com/pharmacare/pharmacare-api/pkg/storage"
)

type PrescriptionInput struct {
	DoctorName  string `json:"doctorName"  validate:"required,max=120"`
	PatientName string `json:"patientName" validate:"required,max=120"`
	Notes       string `json:"notes"       validate:"max=2000"`
}

type ReviewInput struct {
	Status string `json:"status" validate:"required,oneof=approved rejected"`
	Note   string `json:"note"   validate:"max=2000"`
}

type PrescriptionService struct {
	store  *repositories.Store
	disk   storage.Disk
	outbox *OutboxService
	now    func() time.Time
}

func (s *PrescriptionService) withURL(p *models.Prescription) *models.Prescription {
	if s.disk != nil && p.FilePath != "" {
		p.FileURL = s.disk.URL(p.FilePath)
	}
	return p
}

// Upload stores the file and records a pending prescription. The file is
// removed again when the record cannot be saved.
func (s *PrescriptionService) Upload(ctx context.Context, userID primitive.ObjectID, in PrescriptionInput, up Upload) (*models.Prescription, error) {
	path, cleanup, err := store(ctx, s.disk, "prescriptions", up, documentExts)
	if err != nil {
		return nil, err
	}
	saved := false
	defer func() {
		if !saved {
			cleanup()
		}
	}()

	p := &models.Prescription{
		UserID:      userID,
		FilePath:    path,
		DoctorName:  in.DoctorName,
		PatientName: in.PatientName,
		Notes:       in.Notes,
		Status:      models.StatusPending,
	}
	if err := s.store.Prescriptions.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("prescriptions: save: %w", err)
	}
	saved = true
	return s.withURL(p), nil
}

func (s *PrescriptionService) Mine(ctx context.Context, userID primitive.ObjectID, p Page) ([]models.Prescription, int64, error) {
	list, total, err := s.store.Prescriptions.List(ctx, repositories.ModerationFilter{UserID: &userID, Page: p})
	for i := range list {
		s.withURL(&list[i])
	}
	return list, total, err
}

// Get returns a prescription to its owner or to staff.
func (s *PrescriptionService) Get(ctx context.Context, id string, caller Caller) (*models.Prescription, error) {
	oid, err := ParseID(id, "prescription")
	if err != nil {
		return nil, err
	}
	p, err := s.store.Prescriptions.FindByID(ctx, oid)
	if err != nil {
		return nil, found(err, "prescription")
	}
	if !caller.IsStaff() && p.UserID != caller.UserID {
		return nil, ErrForbidden
	}
	return s.withURL(p), nil
}

func (s *PrescriptionService) List(ctx context.Context, status string, p Page) ([]models.Prescription, int64, error) {
	list, total, err := s.store.Prescriptions.List(ctx, repositories.ModerationFilter{Status: status, Page: p})
	for i := range list {
		s.withURL(&list[i])
	}
	return list, total, err
}

// Review approves or rejects a pending prescription and emails the owner.
func (s *PrescriptionService) Review(ctx context.Context, id string, caller Caller, in ReviewInput) (*models.Prescription, error) {
	oid, err := ParseID(id, "prescription")
	if err != nil {
		return nil, err
	}
	p, err := s.store.Prescriptions.FindByID(ctx, oid)
	if err != nil {
		return nil, found(err, "prescription")
	}
	if p.Status != models.StatusPending {
		return nil, fmt.Errorf("%w: prescription is already %s", ErrInvalidTransition, p.Status)
	}

	at := s.now()
	reviewer := caller.UserID
	p.Status, p.ReviewNote, p.ReviewedBy, p.ReviewedAt = in.Status, in.Note, &reviewer, &at
	if err := s.store.Prescriptions.Update(ctx, p); err != nil {
		return nil, err
	}
	s.notify(ctx, p)
	return s.withURL(p), nil
}

func (s *PrescriptionService) notify(ctx context.Context, p *models.Prescription) {
	u, err := s.store.Users.FindByID(ctx, p.UserID)
	if err != nil {
		logger.WithCtx(ctx).Warn("prescriptions: owner not found", "prescription_id", p.ID.Hex(), "error", err)
		return
	}
	body, err := render(tmplPrescriptionDecision, map[string]any{"Name": u.Name, "Prescription": p})
	if err != nil {
		logger.WithCtx(ctx).Error("prescriptions: render decision", "error", err)
		return
	}
	subject := fmt.Sprintf("Your prescription was %s", p.Status)
	if _, err := s.outbox.Enqueue(ctx, models.MailPrescriptionDecision, []string{u.Email}, subject, body); err != nil {
		logger.WithCtx(ctx).Error("prescriptions: enqueue decision", "error", err)
	}
}

// HasApproved reports whether the user holds an approved prescription.
func (s *PrescriptionService) HasApproved(ctx context.Context, userID primitive.ObjectID) (bool, error) {
	_, total, err := s.store.Prescriptions.List(ctx, repositories.ModerationFilter{
		UserID: &userID,
		Status: models.StatusApproved,
		Page:   Page{Page: 1, Limit: 1},
	})
	return total > 0, err
}
