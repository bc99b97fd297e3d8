package services

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"ethics-review-api/models"

	"gorm.io/gorm"
)

// fakeStore is an in-memory Store for service tests. It serializes
// WithSubmissionLock with a plain mutex, which is enough to exercise
// the lock-then-re-read discipline of the services.
type fakeStore struct {
	mu sync.Mutex

	submissions map[uint]*models.Submission
	history     []models.SubmissionStatusHistory
	documents   []models.UploadedDocument
	verifs      []models.DocumentVerification
	assignments map[uint]*models.ReviewerAssignment
	reviews     map[uint]*models.Review
	replies     []models.ReviewReply
	forms       []models.ConflictOfInterestForm
	users       map[int]*models.User
	config      map[string]string
	notified    []models.Notification

	nextID uint
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		submissions: make(map[uint]*models.Submission),
		assignments: make(map[uint]*models.ReviewerAssignment),
		reviews:     make(map[uint]*models.Review),
		users:       make(map[int]*models.User),
		config:      make(map[string]string),
	}
}

func (f *fakeStore) id() uint {
	f.nextID++
	return f.nextID
}

func (f *fakeStore) WithSubmissionLock(ctx context.Context, submissionID uint, fn func(tx Store) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return fn(f)
}

func (f *fakeStore) GetSubmission(ctx context.Context, id uint) (*models.Submission, error) {
	sub, ok := f.submissions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *sub
	return &cp, nil
}

func (f *fakeStore) CreateSubmission(ctx context.Context, s *models.Submission) error {
	if s.SubmissionID == 0 {
		s.SubmissionID = f.id()
	}
	cp := *s
	f.submissions[s.SubmissionID] = &cp
	return nil
}

func (f *fakeStore) UpdateSubmissionStatus(ctx context.Context, id uint, from, to models.SubmissionStatus) (bool, error) {
	sub, ok := f.submissions[id]
	if !ok || sub.Status != from {
		return false, nil
	}
	sub.Status = to
	sub.UpdatedAt = time.Now()
	return true, nil
}

func (f *fakeStore) SetClassification(ctx context.Context, id uint, c models.Classification) error {
	sub, ok := f.submissions[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	sub.Classification = &c
	return nil
}

func (f *fakeStore) MarkSubmitted(ctx context.Context, id uint, at time.Time) error {
	sub, ok := f.submissions[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	sub.SubmittedAt = &at
	return nil
}

func (f *fakeStore) CreateStatusHistory(ctx context.Context, h *models.SubmissionStatusHistory) error {
	h.HistoryID = f.id()
	f.history = append(f.history, *h)
	return nil
}

func (f *fakeStore) LatestTransitionInto(ctx context.Context, submissionID uint, status models.SubmissionStatus) (*models.SubmissionStatusHistory, error) {
	for i := len(f.history) - 1; i >= 0; i-- {
		h := f.history[i]
		if h.SubmissionID == submissionID && h.NewStatus == status {
			return &h, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) ListDocuments(ctx context.Context, submissionID uint) ([]models.UploadedDocument, error) {
	var out []models.UploadedDocument
	for _, d := range f.documents {
		if d.SubmissionID == submissionID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeStore) CreateDocument(ctx context.Context, d *models.UploadedDocument) error {
	if d.DocumentID == 0 {
		d.DocumentID = f.id()
	}
	f.documents = append(f.documents, *d)
	return nil
}

func (f *fakeStore) CreateVerification(ctx context.Context, v *models.DocumentVerification) error {
	v.VerificationID = f.id()
	f.verifs = append(f.verifs, *v)
	return nil
}

func (f *fakeStore) LatestVerification(ctx context.Context, documentID uint) (*models.DocumentVerification, error) {
	var latest *models.DocumentVerification
	for i := range f.verifs {
		if f.verifs[i].DocumentID == documentID {
			v := f.verifs[i]
			if latest == nil || !v.VerifiedAt.Before(latest.VerifiedAt) {
				latest = &v
			}
		}
	}
	return latest, nil
}

func (f *fakeStore) ListAssignments(ctx context.Context, submissionID uint) ([]models.ReviewerAssignment, error) {
	var out []models.ReviewerAssignment
	for _, a := range f.assignments {
		if a.SubmissionID == submissionID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeStore) GetAssignment(ctx context.Context, submissionID uint, reviewerID int) (*models.ReviewerAssignment, error) {
	for _, a := range f.assignments {
		if a.SubmissionID == submissionID && a.ReviewerID == reviewerID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) CreateAssignments(ctx context.Context, batch []*models.ReviewerAssignment) error {
	for _, a := range batch {
		a.AssignmentID = f.id()
		cp := *a
		f.assignments[a.AssignmentID] = &cp
	}
	return nil
}

func (f *fakeStore) CompleteAssignment(ctx context.Context, assignmentID uint, at time.Time) error {
	a, ok := f.assignments[assignmentID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	a.Status = models.AssignmentReviewComplete
	a.CompletedAt = &at
	return nil
}

func (f *fakeStore) ReopenAssignment(ctx context.Context, assignmentID uint, due time.Time) error {
	a, ok := f.assignments[assignmentID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	a.Status = models.AssignmentPending
	a.DueDate = due
	a.CompletedAt = nil
	return nil
}

func (f *fakeStore) DeleteAssignment(ctx context.Context, assignmentID uint) error {
	delete(f.assignments, assignmentID)
	return nil
}

func (f *fakeStore) CreateReview(ctx context.Context, r *models.Review) error {
	r.ReviewID = f.id()
	cp := *r
	f.reviews[r.ReviewID] = &cp
	return nil
}

func (f *fakeStore) ListSubmittedReviews(ctx context.Context, submissionID uint) ([]models.Review, error) {
	var out []models.Review
	for _, r := range f.reviews {
		if r.SubmissionID != submissionID || r.Status != models.ReviewSubmitted {
			continue
		}
		// Reviews whose assignment was removed are orphans and never count.
		if _, ok := f.assignments[r.AssignmentID]; !ok {
			continue
		}
		out = append(out, *r)
	}
	return out, nil
}

func (f *fakeStore) DeleteReviewsByAssignment(ctx context.Context, assignmentID uint) error {
	for id, r := range f.reviews {
		if r.AssignmentID == assignmentID {
			delete(f.reviews, id)
		}
	}
	return nil
}

func (f *fakeStore) GetReview(ctx context.Context, reviewID uint) (*models.Review, error) {
	r, ok := f.reviews[reviewID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeStore) CreateReviewReply(ctx context.Context, reply *models.ReviewReply) error {
	reply.ReplyID = f.id()
	f.replies = append(f.replies, *reply)
	return nil
}

func (f *fakeStore) CreateConflictForm(ctx context.Context, form *models.ConflictOfInterestForm) error {
	form.FormID = f.id()
	f.forms = append(f.forms, *form)
	return nil
}

func (f *fakeStore) ListConflictForms(ctx context.Context, submissionID uint) ([]models.ConflictOfInterestForm, error) {
	var out []models.ConflictOfInterestForm
	for _, form := range f.forms {
		if form.SubmissionID == submissionID {
			out = append(out, form)
		}
	}
	return out, nil
}

func (f *fakeStore) ListReviewers(ctx context.Context) ([]models.User, error) {
	var out []models.User
	for _, u := range f.users {
		if u.RoleID == models.RoleReviewer {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (f *fakeStore) GetUser(ctx context.Context, id int) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeStore) ConfigInt(ctx context.Context, key string) (int, error) {
	if raw, ok := f.config[key]; ok {
		if n, err := strconv.Atoi(raw); err == nil {
			return n, nil
		}
	}
	if v, ok := models.ConfigDefault(key); ok {
		return v, nil
	}
	return 0, gorm.ErrRecordNotFound
}

func (f *fakeStore) SetConfig(ctx context.Context, key, value string) error {
	f.config[key] = value
	return nil
}

func (f *fakeStore) CreateNotification(ctx context.Context, n *models.Notification) error {
	n.NotificationID = f.id()
	f.notified = append(f.notified, *n)
	return nil
}

// seedSubmission inserts a submission in the given status and returns it.
func (f *fakeStore) seedSubmission(status models.SubmissionStatus, classification *models.Classification, ownerID int) *models.Submission {
	sub := &models.Submission{
		SubmissionID:   f.id(),
		TrackingCode:   "REC-2026-TEST" + strconv.Itoa(int(f.nextID)),
		UserID:         ownerID,
		Title:          "Sample protocol",
		Status:         status,
		Classification: classification,
		CreatedAt:      time.Now(),
	}
	f.submissions[sub.SubmissionID] = sub
	return sub
}

func (f *fakeStore) seedReviewer(id int) {
	f.users[id] = &models.User{UserID: id, RoleID: models.RoleReviewer, Email: "reviewer" + strconv.Itoa(id) + "@example.org"}
}

func (f *fakeStore) seedAssignment(submissionID uint, reviewerID int, status models.AssignmentStatus) *models.ReviewerAssignment {
	a := &models.ReviewerAssignment{
		AssignmentID: f.id(),
		SubmissionID: submissionID,
		ReviewerID:   reviewerID,
		Status:       status,
		AssignedAt:   time.Now(),
		DueDate:      time.Now().AddDate(0, 0, 14),
	}
	f.assignments[a.AssignmentID] = a
	return a
}

func classificationPtr(c models.Classification) *models.Classification {
	return &c
}

// fakeGenerator returns a constant PDF payload, optionally failing for
// selected kinds.
type fakeGenerator struct {
	failKinds map[models.DocumentType]bool
	calls     []models.DocumentType
}

func (g *fakeGenerator) Generate(ctx context.Context, kind models.DocumentType, snapshot ArtifactSnapshot) ([]byte, error) {
	g.calls = append(g.calls, kind)
	if g.failKinds[kind] {
		return nil, errGeneratorDown
	}
	return []byte("%PDF-1.7 test"), nil
}

var errGeneratorDown = errors.New("render service unavailable")

// fakeBucket records uploads in memory.
type fakeBucket struct {
	objects map[string][]byte
}

func newFakeBucket() *fakeBucket {
	return &fakeBucket{objects: make(map[string][]byte)}
}

func (b *fakeBucket) Upload(ctx context.Context, objectName, contentType string, data []byte) error {
	b.objects[objectName] = data
	return nil
}

func (b *fakeBucket) PresignedURL(ctx context.Context, objectName string, expiry time.Duration) (string, error) {
	return "https://storage.test/" + objectName + "?signed=1", nil
}

// newTestServices wires the full service graph over a fake store.
func newTestServices(store *fakeStore) (*StateMachine, *AssignmentService, *ConsensusService, *ConflictService, *ArtifactService, *fakeGenerator, *fakeBucket) {
	gen := &fakeGenerator{}
	bucket := newFakeBucket()
	artifacts := NewArtifactService(store, gen, bucket)
	sm := NewStateMachine(store, artifacts, NopSink{})
	return sm,
		NewAssignmentService(store, sm, NopSink{}),
		NewConsensusService(store, sm, NopSink{}),
		NewConflictService(store, sm, NopSink{}),
		artifacts,
		gen,
		bucket
}
