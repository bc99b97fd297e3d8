package services

import (
	"context"
	"testing"

	"ethics-review-api/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeclareNoConflictKeepsAssignment(t *testing.T) {
	store := newFakeStore()
	_, _, _, conflicts, _, _, _ := newTestServices(store)
	sub := seedUnderReview(store, 3)

	form, err := conflicts.Declare(context.Background(), reviewerN(0), sub.SubmissionID, DeclareConflictInput{})
	require.NoError(t, err)
	assert.False(t, form.HasConflict())

	got, _ := store.GetSubmission(context.Background(), sub.SubmissionID)
	assert.Equal(t, models.StatusUnderReview, got.Status)
	rows, _ := store.ListAssignments(context.Background(), sub.SubmissionID)
	assert.Len(t, rows, 3)
}

func TestDeclareRequiresAssignment(t *testing.T) {
	store := newFakeStore()
	_, _, _, conflicts, _, _, _ := newTestServices(store)
	sub := seedUnderReview(store, 2)

	_, err := conflicts.Declare(context.Background(), Principal{UserID: 999, RoleID: models.RoleReviewer}, sub.SubmissionID, DeclareConflictInput{HasPriorWork: true})
	assert.ErrorIs(t, err, ErrNoActiveAssignment)
}

// A flagged declaration removes the reviewer's assignment together with
// any partial verdict, and pauses the submission.
func TestDeclareConflictRemovesAssignmentAndPauses(t *testing.T) {
	store := newFakeStore()
	_, _, consensus, conflicts, _, _, _ := newTestServices(store)
	sub := seedUnderReview(store, 3)
	ctx := context.Background()

	// The conflicted reviewer already submitted a blocking verdict.
	_, err := consensus.SubmitReview(ctx, reviewerN(0), sub.SubmissionID, vetoInput())
	require.NoError(t, err)

	form, err := conflicts.Declare(ctx, reviewerN(0), sub.SubmissionID, DeclareConflictInput{
		HasSocialRelationship: true,
		Remarks:               "PI is a former graduate advisee",
	})
	require.NoError(t, err)
	assert.True(t, form.HasConflict())

	got, _ := store.GetSubmission(ctx, sub.SubmissionID)
	assert.Equal(t, models.StatusConflictOfInterest, got.Status)

	rows, _ := store.ListAssignments(ctx, sub.SubmissionID)
	assert.Len(t, rows, 2)
	for _, a := range rows {
		assert.NotEqual(t, reviewerN(0).UserID, a.ReviewerID)
	}

	// The removed reviewer's verdict no longer counts anywhere.
	reviews, _ := store.ListSubmittedReviews(ctx, sub.SubmissionID)
	assert.Empty(t, reviews)
}

// Scenario: two of three verdicts are in when the third reviewer
// declares a conflict. The replacement's verdict completes the set and
// the outcome counts the replacement, not the removed reviewer.
func TestConflictMidCycleReplacementCompletesReview(t *testing.T) {
	store := newFakeStore()
	_, _, consensus, conflicts, _, _, _ := newTestServices(store)
	sub := seedUnderReview(store, 3)
	store.seedReviewer(200)
	ctx := context.Background()

	_, err := consensus.SubmitReview(ctx, reviewerN(0), sub.SubmissionID, approvedInput())
	require.NoError(t, err)
	_, err = consensus.SubmitReview(ctx, reviewerN(1), sub.SubmissionID, approvedInput())
	require.NoError(t, err)

	_, err = conflicts.Declare(ctx, reviewerN(2), sub.SubmissionID, DeclareConflictInput{HasCompensation: true})
	require.NoError(t, err)

	got, _ := store.GetSubmission(ctx, sub.SubmissionID)
	assert.Equal(t, models.StatusConflictOfInterest, got.Status)

	// Refilling the slot restores the quota and resumes the review.
	_, err = conflicts.Reassign(ctx, staff, sub.SubmissionID, 200)
	require.NoError(t, err)
	got, _ = store.GetSubmission(ctx, sub.SubmissionID)
	assert.Equal(t, models.StatusUnderReview, got.Status)

	_, err = consensus.SubmitReview(ctx, Principal{UserID: 200, RoleID: models.RoleReviewer}, sub.SubmissionID, approvedInput())
	require.NoError(t, err)

	got, _ = store.GetSubmission(ctx, sub.SubmissionID)
	assert.Equal(t, models.StatusReviewComplete, got.Status)

	reviews, _ := store.ListSubmittedReviews(ctx, sub.SubmissionID)
	assert.Len(t, reviews, 3)
}

// A reviewer completing their verdict while the submission is paused in
// conflict_of_interest must not advance it.
func TestConflictPauseBlocksConsensusAdvance(t *testing.T) {
	store := newFakeStore()
	_, _, consensus, conflicts, _, _, _ := newTestServices(store)
	sub := seedUnderReview(store, 2)
	store.seedReviewer(200)
	ctx := context.Background()

	_, err := conflicts.Declare(ctx, reviewerN(0), sub.SubmissionID, DeclareConflictInput{HasOfficialRole: true})
	require.NoError(t, err)

	// The remaining reviewer submits while the submission is paused;
	// every slot is filled-and-complete yet the quota is not.
	_, err = consensus.SubmitReview(ctx, reviewerN(1), sub.SubmissionID, approvedInput())
	require.NoError(t, err)

	got, _ := store.GetSubmission(ctx, sub.SubmissionID)
	assert.Equal(t, models.StatusConflictOfInterest, got.Status)
}

func TestReassignRejectsConflictedReplacement(t *testing.T) {
	store := newFakeStore()
	_, _, _, conflicts, _, _, _ := newTestServices(store)
	sub := seedUnderReview(store, 2)
	store.seedReviewer(200)
	ctx := context.Background()

	_, err := conflicts.Declare(ctx, reviewerN(0), sub.SubmissionID, DeclareConflictInput{HasStandingIssue: true})
	require.NoError(t, err)

	// The candidate has their own true-flagged declaration.
	store.forms = append(store.forms, models.ConflictOfInterestForm{
		SubmissionID:         sub.SubmissionID,
		ReviewerID:           200,
		HasOwnershipInterest: true,
	})

	_, err = conflicts.Reassign(ctx, staff, sub.SubmissionID, 200)
	assert.ErrorIs(t, err, ErrConflicted)
}

func TestReassignRejectsWhenQuotaAlreadyMet(t *testing.T) {
	store := newFakeStore()
	_, _, _, conflicts, _, _, _ := newTestServices(store)
	// Paused with all three expedited slots already active.
	sub := store.seedSubmission(models.StatusConflictOfInterest, classificationPtr(models.ClassificationExpedited), researcher.UserID)
	for i := 0; i < 3; i++ {
		store.seedReviewer(101 + i)
		store.seedAssignment(sub.SubmissionID, 101+i, models.AssignmentPending)
	}
	store.seedReviewer(200)

	_, err := conflicts.Reassign(context.Background(), staff, sub.SubmissionID, 200)
	assert.ErrorIs(t, err, ErrQuotaExceeded)
}

func TestReassignRequiresConflictStatus(t *testing.T) {
	store := newFakeStore()
	_, _, _, conflicts, _, _, _ := newTestServices(store)
	sub := seedUnderReview(store, 3)
	store.seedReviewer(200)

	_, err := conflicts.Reassign(context.Background(), staff, sub.SubmissionID, 200)
	var invalid *InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
}

func TestReassignGrantsFreshReviewWindow(t *testing.T) {
	store := newFakeStore()
	_, _, _, conflicts, _, _, _ := newTestServices(store)
	sub := seedUnderReview(store, 3)
	store.seedReviewer(200)
	ctx := context.Background()

	_, err := conflicts.Declare(ctx, reviewerN(0), sub.SubmissionID, DeclareConflictInput{HasStockOwnership: true})
	require.NoError(t, err)

	created, err := conflicts.Reassign(ctx, staff, sub.SubmissionID, 200)
	require.NoError(t, err)
	assert.Equal(t, models.AssignmentPending, created.Status)

	// Full window from now, not the vacating reviewer's deadline.
	days := int(created.DueDate.Sub(created.AssignedAt).Hours() / 24)
	assert.Equal(t, 14, days)
}

func TestAvailableReplacementsExcludesConflictedAndAssigned(t *testing.T) {
	store := newFakeStore()
	_, _, _, conflicts, _, _, _ := newTestServices(store)
	sub := seedUnderReview(store, 2)
	store.seedReviewer(200)
	ctx := context.Background()

	_, err := conflicts.Declare(ctx, reviewerN(0), sub.SubmissionID, DeclareConflictInput{HasPriorWork: true})
	require.NoError(t, err)

	available, err := conflicts.AvailableReplacements(ctx, sub.SubmissionID)
	require.NoError(t, err)

	ids := make(map[int]bool, len(available))
	for _, u := range available {
		ids[u.UserID] = true
	}
	assert.False(t, ids[reviewerN(0).UserID], "conflicted reviewer can never return")
	assert.False(t, ids[reviewerN(1).UserID], "still-assigned reviewer is not a candidate")
	assert.True(t, ids[200])
}
