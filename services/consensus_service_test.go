package services

import (
	"context"
	"sync"
	"testing"

	"ethics-review-api/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func approvedInput() ReviewInput {
	return ReviewInput{
		ProtocolRecommendation: models.RecommendationApproved,
		ICFRecommendation:      models.RecommendationApproved,
	}
}

func minorInput() ReviewInput {
	return ReviewInput{
		ProtocolRecommendation: models.RecommendationMinorRevision,
		ICFRecommendation:      models.RecommendationApproved,
	}
}

func vetoInput() ReviewInput {
	return ReviewInput{
		ProtocolRecommendation: models.RecommendationApproved,
		ICFRecommendation:      models.RecommendationMajorRevision,
	}
}

// seedUnderReview creates an under_review submission with n pending
// reviewer assignments for reviewers 101..100+n.
func seedUnderReview(store *fakeStore, n int) *models.Submission {
	sub := store.seedSubmission(models.StatusUnderReview, classificationPtr(models.ClassificationExpedited), researcher.UserID)
	store.users[sub.UserID] = &models.User{UserID: sub.UserID, RoleID: models.RoleResearcher}
	for i := 0; i < n; i++ {
		id := 101 + i
		store.seedReviewer(id)
		store.seedAssignment(sub.SubmissionID, id, models.AssignmentPending)
	}
	return sub
}

func reviewerN(i int) Principal {
	return Principal{UserID: 101 + i, RoleID: models.RoleReviewer}
}

func TestSubmitReviewRequiresAssignment(t *testing.T) {
	store := newFakeStore()
	_, _, consensus, _, _, _, _ := newTestServices(store)
	sub := seedUnderReview(store, 2)

	_, err := consensus.SubmitReview(context.Background(), Principal{UserID: 999, RoleID: models.RoleReviewer}, sub.SubmissionID, approvedInput())
	assert.ErrorIs(t, err, ErrNoActiveAssignment)
}

func TestSubmitReviewRejectsDuplicate(t *testing.T) {
	store := newFakeStore()
	_, _, consensus, _, _, _, _ := newTestServices(store)
	sub := seedUnderReview(store, 2)

	_, err := consensus.SubmitReview(context.Background(), reviewerN(0), sub.SubmissionID, approvedInput())
	require.NoError(t, err)

	_, err = consensus.SubmitReview(context.Background(), reviewerN(0), sub.SubmissionID, vetoInput())
	assert.ErrorIs(t, err, ErrDuplicateSubmission)
}

func TestSubmitReviewRejectsUnknownRecommendation(t *testing.T) {
	store := newFakeStore()
	_, _, consensus, _, _, _, _ := newTestServices(store)
	sub := seedUnderReview(store, 1)

	_, err := consensus.SubmitReview(context.Background(), reviewerN(0), sub.SubmissionID, ReviewInput{
		ProtocolRecommendation: "Looks fine",
		ICFRecommendation:      models.RecommendationApproved,
	})
	assert.ErrorIs(t, err, ErrInvalidRecommendation)
}

// The submission lock serializes concurrent final verdicts: whichever
// caller runs last observes the other's committed assignment and
// performs the advance.
func TestConcurrentFinalVerdictsAdvance(t *testing.T) {
	store := newFakeStore()
	_, _, consensus, _, _, _, _ := newTestServices(store)
	sub := seedUnderReview(store, 3)

	ctx := context.Background()
	_, err := consensus.SubmitReview(ctx, reviewerN(0), sub.SubmissionID, approvedInput())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 1; i <= 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := consensus.SubmitReview(ctx, reviewerN(i), sub.SubmissionID, approvedInput())
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	got, _ := store.GetSubmission(ctx, sub.SubmissionID)
	assert.Equal(t, models.StatusReviewComplete, got.Status)
}

// All reviewers approve (no-revision or minor): the submission runs the
// approved terminal path and ends review_complete with artifacts.
func TestConsensusAllApproveCompletes(t *testing.T) {
	store := newFakeStore()
	_, _, consensus, _, _, _, bucket := newTestServices(store)
	sub := seedUnderReview(store, 3)

	ctx := context.Background()
	_, err := consensus.SubmitReview(ctx, reviewerN(0), sub.SubmissionID, approvedInput())
	require.NoError(t, err)
	_, err = consensus.SubmitReview(ctx, reviewerN(1), sub.SubmissionID, minorInput())
	require.NoError(t, err)

	// Not complete until the last verdict.
	got, _ := store.GetSubmission(ctx, sub.SubmissionID)
	assert.Equal(t, models.StatusUnderReview, got.Status)

	_, err = consensus.SubmitReview(ctx, reviewerN(2), sub.SubmissionID, approvedInput())
	require.NoError(t, err)

	got, _ = store.GetSubmission(ctx, sub.SubmissionID)
	assert.Equal(t, models.StatusReviewComplete, got.Status)
	assert.Len(t, bucket.objects, 3)
}

// One Major Revision/s on either section vetoes approval regardless of
// the other verdicts.
func TestConsensusSingleVetoForcesRevision(t *testing.T) {
	store := newFakeStore()
	_, _, consensus, _, _, _, bucket := newTestServices(store)
	sub := seedUnderReview(store, 3)

	ctx := context.Background()
	for i, input := range []ReviewInput{approvedInput(), vetoInput(), approvedInput()} {
		_, err := consensus.SubmitReview(ctx, reviewerN(i), sub.SubmissionID, input)
		require.NoError(t, err)
	}

	got, _ := store.GetSubmission(ctx, sub.SubmissionID)
	assert.Equal(t, models.StatusNeedsRevision, got.Status)
	assert.Empty(t, bucket.objects, "no artifacts on a needs-revision outcome")
}

func TestComputeOutcomeOrderIndependent(t *testing.T) {
	blocking := models.Review{
		ProtocolRecommendation: models.RecommendationDisapproved,
		ICFRecommendation:      models.RecommendationApproved,
	}
	clean := models.Review{
		ProtocolRecommendation: models.RecommendationApproved,
		ICFRecommendation:      models.RecommendationMinorRevision,
	}

	assert.Equal(t, OutcomeNeedsRevision, ComputeOutcome([]models.Review{blocking, clean}))
	assert.Equal(t, OutcomeNeedsRevision, ComputeOutcome([]models.Review{clean, blocking}))
	assert.Equal(t, OutcomeApproved, ComputeOutcome([]models.Review{clean, clean}))
	assert.Equal(t, OutcomeApproved, ComputeOutcome(nil))
}

func TestComputeOutcomeCheckedRefusesPartialSet(t *testing.T) {
	store := newFakeStore()
	_, _, consensus, _, _, _, _ := newTestServices(store)
	sub := seedUnderReview(store, 2)

	ctx := context.Background()
	_, err := consensus.SubmitReview(ctx, reviewerN(0), sub.SubmissionID, approvedInput())
	require.NoError(t, err)

	_, err = consensus.ComputeOutcomeChecked(ctx, sub.SubmissionID)
	assert.ErrorIs(t, err, ErrNotComplete)
}

// Completeness is a fresh read over current assignment rows; adding a
// slot mid-cycle immediately makes the submission incomplete again.
func TestIsCompleteTracksCurrentAssignments(t *testing.T) {
	store := newFakeStore()
	_, _, consensus, _, _, _, _ := newTestServices(store)
	sub := store.seedSubmission(models.StatusUnderReview, classificationPtr(models.ClassificationExpedited), researcher.UserID)
	store.seedAssignment(sub.SubmissionID, 101, models.AssignmentReviewComplete)

	ctx := context.Background()
	complete, err := consensus.IsComplete(ctx, sub.SubmissionID)
	require.NoError(t, err)
	assert.True(t, complete)

	store.seedAssignment(sub.SubmissionID, 102, models.AssignmentPending)
	complete, err = consensus.IsComplete(ctx, sub.SubmissionID)
	require.NoError(t, err)
	assert.False(t, complete)
}

// A vacated conflict slot keeps the submission incomplete even when
// every surviving assignment row is done.
func TestIsCompleteFalseWhilePausedInConflict(t *testing.T) {
	store := newFakeStore()
	_, _, consensus, _, _, _, _ := newTestServices(store)
	sub := store.seedSubmission(models.StatusConflictOfInterest, classificationPtr(models.ClassificationFullReview), researcher.UserID)
	for i := 0; i < 4; i++ {
		store.seedAssignment(sub.SubmissionID, 101+i, models.AssignmentReviewComplete)
	}

	complete, err := consensus.IsComplete(context.Background(), sub.SubmissionID)
	require.NoError(t, err)
	assert.False(t, complete)

	_, err = consensus.ComputeOutcomeChecked(context.Background(), sub.SubmissionID)
	assert.ErrorIs(t, err, ErrNotComplete)
}

func TestIsCompleteFalseWithNoAssignments(t *testing.T) {
	store := newFakeStore()
	_, _, consensus, _, _, _, _ := newTestServices(store)
	sub := store.seedSubmission(models.StatusUnderReview, classificationPtr(models.ClassificationExpedited), researcher.UserID)

	complete, err := consensus.IsComplete(context.Background(), sub.SubmissionID)
	require.NoError(t, err)
	assert.False(t, complete)
}

func TestReplyAppendsToSubmittedReview(t *testing.T) {
	store := newFakeStore()
	_, _, consensus, _, _, _, _ := newTestServices(store)
	sub := seedUnderReview(store, 2)

	ctx := context.Background()
	review, err := consensus.SubmitReview(ctx, reviewerN(0), sub.SubmissionID, approvedInput())
	require.NoError(t, err)

	reply, err := consensus.Reply(ctx, reviewerN(0), review.ReviewID, "see updated consent wording")
	require.NoError(t, err)
	assert.Equal(t, review.ReviewID, reply.ReviewID)
	require.Len(t, store.replies, 1)
}
