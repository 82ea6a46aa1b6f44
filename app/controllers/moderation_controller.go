package controllers

import (
	"github.com/pharmacare/pharmacare-api/app/services"
	"github.com/pharmacare/pharmacare-api/pkg/ctx"
)

type FeedbackController struct {
	feedback *services.FeedbackService
}

func (fc *FeedbackController) Store(c *ctx.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	var in services.FeedbackInput
	if !c.BindJSON(&in) {
		return
	}
	f, err := fc.feedback.Create(c.Context(), who.UserID, in)
	if err != nil {
		fail(c, err)
		return
	}
	c.Created(f)
}

func (fc *FeedbackController) Mine(c *ctx.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	p := page(c)
	list, total, err := fc.feedback.Mine(c.Context(), who.UserID, p)
	if err != nil {
		fail(c, err)
		return
	}
	paginated(c, list, total, p)
}

func (fc *FeedbackController) Index(c *ctx.Context) {
	p := page(c)
	list, total, err := fc.feedback.List(c.Context(), c.Query("status"), p)
	if err != nil {
		fail(c, err)
		return
	}
	paginated(c, list, total, p)
}

func (fc *FeedbackController) Moderate(c *ctx.Context) {
	var in services.ModerateInput
	if !c.BindJSON(&in) {
		return
	}
	f, err := fc.feedback.Moderate(c.Context(), c.Param("id"), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(f)
}

func (fc *FeedbackController) Destroy(c *ctx.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	if err := fc.feedback.Delete(c.Context(), c.Param("id"), who); err != nil {
		fail(c, err)
		return
	}
	c.Message("Feedback deleted")
}

type SupportController struct {
	support *services.SupportService
}

func (sc *SupportController) Store(c *ctx.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	var in services.SupportInput
	if !c.BindJSON(&in) {
		return
	}
	t, err := sc.support.Create(c.Context(), who.UserID, in)
	if err != nil {
		fail(c, err)
		return
	}
	c.Created(t)
}

func (sc *SupportController) Mine(c *ctx.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	p := page(c)
	list, total, err := sc.support.Mine(c.Context(), who.UserID, p)
	if err != nil {
		fail(c, err)
		return
	}
	paginated(c, list, total, p)
}

func (sc *SupportController) Show(c *ctx.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	t, err := sc.support.Get(c.Context(), c.Param("id"), who)
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(t)
}

func (sc *SupportController) Index(c *ctx.Context) {
	p := page(c)
	list, total, err := sc.support.List(c.Context(), c.Query("status"), p)
	if err != nil {
		fail(c, err)
		return
	}
	paginated(c, list, total, p)
}

func (sc *SupportController) Respond(c *ctx.Context) {
	var in services.RespondInput
	if !c.BindJSON(&in) {
		return
	}
	t, err := sc.support.Respond(c.Context(), c.Param("id"), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(t)
}

func (sc *SupportController) Destroy(c *ctx.Context) {
	if err := sc.support.Delete(c.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.Message("Ticket deleted")
}

type PrescriptionController struct {
	prescriptions *services.PrescriptionService
}

// Store POST /api/v1/prescriptions (multipart: file, doctorName,
// patientName, notes)
func (pc *PrescriptionController) Store(c *ctx.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	up, done, ok := upload(c, "file")
	if !ok {
		return
	}
	defer done()

	in := services.PrescriptionInput{
		DoctorName:  c.PostForm("doctorName"),
		PatientName: c.PostForm("patientName"),
		Notes:       c.PostForm("notes"),
	}
	if errs := c.Validate(&in); len(errs) > 0 {
		c.ValidationError(errs)
		return
	}
	p, err := pc.prescriptions.Upload(c.Context(), who.UserID, in, up)
	if err != nil {
		fail(c, err)
		return
	}
	c.Created(p)
}

func (pc *PrescriptionController) Mine(c *ctx.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	p := page(c)
	list, total, err := pc.prescriptions.Mine(c.Context(), who.UserID, p)
	if err != nil {
		fail(c, err)
		return
	}
	paginated(c, list, total, p)
}

func (pc *PrescriptionController) Show(c *ctx.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	p, err := pc.prescriptions.Get(c.Context(), c.Param("id"), who)
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(p)
}

func (pc *PrescriptionController) Index(c *ctx.Context) {
	p := page(c)
	list, total, err := pc.prescriptions.List(c.Context(), c.Query("status"), p)
	if err != nil {
		fail(c, err)
		return
	}
	paginated(c, list, total, p)
}

func (pc *PrescriptionController) Review(c *ctx.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	var in services.ReviewInput
	if !c.BindJSON(&in) {
		return
	}
	p, err := pc.prescriptions.Review(c.Context(), c.Param("id"), who, in)
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(p)
}
