package processor_test

import (
	"context"
	"errors"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/topcoder-platform/topcoder-x-processor-sub000/core/config"
	"github.com/topcoder-platform/topcoder-x-processor-sub000/internal/githost"
	"github.com/topcoder-platform/topcoder-x-processor-sub000/internal/model"
	"github.com/topcoder-platform/topcoder-x-processor-sub000/internal/processor"
	"github.com/topcoder-platform/topcoder-x-processor-sub000/internal/store"
	"github.com/topcoder-platform/topcoder-x-processor-sub000/internal/topcoder"
)

var testLabels = config.LabelsConfig{
	OpenForPickup:  "tcx_OpenForPickup",
	Assigned:       "tcx_Assigned",
	ReadyForReview: "tcx_ReadyForReview",
	FixAccepted:    "tcx_FixAccepted",
	Paid:           "tcx_Paid",
	Canceled:       "tcx_Canceled",
}

var testTopcoderCfg = config.TopcoderConfig{
	BaseURL:           "https://api.example.com/v5",
	Token:             "token",
	CopilotPayment:    40,
	ChallengeLinkBase: "https://example.com/challenges",
}

var _ = Describe("StateMachine", func() {
	var (
		issues   *mockIssueStore
		projects *mockProjectStore
		users    *mockUserMappingStore
		host     *mockHostClient
		platform *mockPlatform
		locks    *mockLockManager
		machine  *processor.StateMachine
		ctx      context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		issues = &mockIssueStore{}
		projects = &mockProjectStore{}
		users = &mockUserMappingStore{
			getByGitIDFn: func(_ context.Context, provider model.Provider, gitUserID int64) (*model.UserMapping, error) {
				return &model.UserMapping{Provider: provider, GitUserID: gitUserID, GitUsername: "gituser", TopcoderHandle: "tchandle"}, nil
			},
			getByGitUsernameFn: func(_ context.Context, provider model.Provider, gitUsername string) (*model.UserMapping, error) {
				return &model.UserMapping{Provider: provider, GitUsername: gitUsername, TopcoderHandle: "tchandle"}, nil
			},
		}
		host = &mockHostClient{}
		platform = newMockPlatform()
		locks = &mockLockManager{}

		machine = processor.NewStateMachine(
			issues,
			githost.NewResolver(users, projects),
			&mockHostFactory{client: host},
			platform,
			locks,
			testLabels,
			testTopcoderCfg,
		)
	})

	event := func(eventType model.EventType) model.Event {
		return model.Event{
			Type:         eventType,
			Provider:     model.ProviderGitHub,
			RepositoryID: "acme/widgets",
			IssueNumber:  42,
			Title:        "[$100] Sample",
		}
	}

	trackedIssue := func(status model.IssueStatus) *model.Issue {
		challengeID := int64(30001)
		return &model.Issue{
			ID:           1,
			Provider:     model.ProviderGitHub,
			RepositoryID: "acme/widgets",
			Number:       42,
			Title:        "Sample",
			Prizes:       []int{100},
			ChallengeID:  &challengeID,
			Status:       status,
		}
	}

	Describe("issue.created", func() {
		It("creates the record, the challenge and posts the link", func() {
			err := machine.Process(ctx, event(model.EventIssueCreated))
			Expect(err).NotTo(HaveOccurred())

			Expect(issues.created).To(HaveLen(1))
			Expect(issues.created[0].Status).To(Equal(model.StatusChallengeCreationPending))
			Expect(issues.created[0].Prizes).To(Equal([]int{100}))
			Expect(issues.created[0].Title).To(Equal("Sample"))

			Expect(platform.created).To(HaveLen(1))
			Expect(platform.created[0].Name).To(Equal("[$100] Sample"))
			Expect(platform.created[0].Prizes).To(Equal([]int{100}))

			Expect(issues.challengeSets).To(Equal([]int64{30001}))
			Expect(issues.statusChanges).To(ContainElement(statusChange{ID: issues.created[0].ID, Status: model.StatusChallengeCreationSuccessful}))

			Expect(host.comments).To(HaveLen(1))
			Expect(host.comments[0]).To(ContainSubstring("https://example.com/challenges/30001"))

			Expect(locks.acquired).To(Equal(1))
			Expect(locks.released).To(Equal(1))
		})

		It("rejects a replay for an already created issue", func() {
			issues.findOneFn = func(context.Context, model.Provider, string, int) (*model.Issue, error) {
				return trackedIssue(model.StatusChallengeCreationSuccessful), nil
			}

			err := machine.Process(ctx, event(model.EventIssueCreated))

			Expect(err).To(MatchError(processor.ErrIssueAlreadyExists))
			Expect(platform.created).To(BeEmpty())
			Expect(processor.Retryable(err)).To(BeFalse())
		})

		It("rolls the record back when challenge creation fails", func() {
			platform.createFn = func(context.Context, topcoder.ChallengeSpec) (*topcoder.Challenge, error) {
				return nil, &topcoder.APIError{Op: "POST /challenges", StatusCode: http.StatusBadGateway}
			}

			err := machine.Process(ctx, event(model.EventIssueCreated))

			Expect(err).To(HaveOccurred())
			Expect(issues.deleted).To(Equal(1))
			Expect(locks.released).To(Equal(1))
			Expect(processor.Retryable(err)).To(BeTrue())
		})

		It("abandons the attempt when the lock is held", func() {
			locks.acquireFn = func(context.Context, model.Provider, string, int) (processor.Lease, error) {
				return nil, processor.ErrChallengeCreating
			}

			err := machine.Process(ctx, event(model.EventIssueCreated))

			Expect(err).To(MatchError(processor.ErrChallengeCreating))
			Expect(platform.created).To(BeEmpty())
			Expect(processor.Retryable(err)).To(BeTrue())
		})

		It("re-enters assignment for a pre-assigned issue", func() {
			evt := event(model.EventIssueCreated)
			evt.Assignees = []model.EventUser{{ID: 777}}

			// The record reloads after creation.
			var created *model.Issue
			issues.createFn = func(_ context.Context, issue *model.Issue) (*model.Issue, error) {
				challengeID := int64(30001)
				created = issue
				created.ChallengeID = &challengeID
				return created, nil
			}
			issues.findOneFn = func(context.Context, model.Provider, string, int) (*model.Issue, error) {
				if created == nil {
					return nil, store.ErrNotFound
				}
				return created, nil
			}

			err := machine.Process(ctx, evt)
			Expect(err).NotTo(HaveOccurred())

			// Assigned despite the missing open-for-pickup label.
			Expect(platform.participants[topcoder.RoleSubmitter]).To(Equal([]string{"tchandle"}))
			Expect(issues.assigneeSets).To(HaveLen(1))
			Expect(*issues.assigneeSets[0]).To(Equal("gituser"))
		})
	})

	Describe("issue.assigned", func() {
		BeforeEach(func() {
			issues.findOneFn = func(context.Context, model.Provider, string, int) (*model.Issue, error) {
				return trackedIssue(model.StatusChallengeCreationSuccessful), nil
			}
		})

		It("registers the participant and flips labels", func() {
			evt := event(model.EventIssueAssigned)
			evt.Labels = []string{"bug", testLabels.OpenForPickup}
			evt.Assignees = []model.EventUser{{ID: 777}}

			err := machine.Process(ctx, evt)
			Expect(err).NotTo(HaveOccurred())

			Expect(platform.participants[topcoder.RoleSubmitter]).To(Equal([]string{"tchandle"}))
			Expect(host.labelSets).To(HaveLen(1))
			Expect(host.labelSets[0]).To(ConsistOf("bug", testLabels.Assigned))
			Expect(*issues.assigneeSets[0]).To(Equal("gituser"))
			Expect(host.comments[0]).To(ContainSubstring("tchandle"))
		})

		It("only comments when more than one assignee is present", func() {
			evt := event(model.EventIssueAssigned)
			evt.Labels = []string{testLabels.OpenForPickup}
			evt.Assignees = []model.EventUser{{ID: 777}, {ID: 888}}

			err := machine.Process(ctx, evt)
			Expect(err).NotTo(HaveOccurred())

			Expect(platform.mutated()).To(BeFalse())
			Expect(host.comments).To(HaveLen(1))
			Expect(host.comments[0]).To(ContainSubstring("single user"))
		})

		It("rolls back an unmapped assignee", func() {
			users.getByGitIDFn = nil // fall through to ErrNotFound

			evt := event(model.EventIssueAssigned)
			evt.Labels = []string{testLabels.OpenForPickup}
			evt.Assignees = []model.EventUser{{ID: 777}}

			err := machine.Process(ctx, evt)
			Expect(err).NotTo(HaveOccurred())

			Expect(host.unassigns).To(Equal([]int64{777}))
			Expect(host.comments[0]).To(ContainSubstring("sign up"))
			Expect(issues.assigneeSets).To(BeEmpty())
			Expect(platform.mutated()).To(BeFalse())
		})

		It("rolls back when the issue is not open for pickup", func() {
			evt := event(model.EventIssueAssigned)
			evt.Labels = []string{"bug"}
			evt.Assignees = []model.EventUser{{ID: 777}}

			err := machine.Process(ctx, evt)
			Expect(err).NotTo(HaveOccurred())

			Expect(host.unassigns).To(Equal([]int64{777}))
			Expect(host.comments[0]).To(ContainSubstring(testLabels.OpenForPickup))
			Expect(platform.mutated()).To(BeFalse())
		})

		It("ignores re-assignment to the current assignee", func() {
			issues.findOneFn = func(context.Context, model.Provider, string, int) (*model.Issue, error) {
				issue := trackedIssue(model.StatusChallengeCreationSuccessful)
				assignee := "gituser"
				issue.Assignee = &assignee
				return issue, nil
			}

			evt := event(model.EventIssueAssigned)
			evt.Labels = []string{testLabels.OpenForPickup}
			evt.Assignees = []model.EventUser{{ID: 777}}

			err := machine.Process(ctx, evt)
			Expect(err).NotTo(HaveOccurred())
			Expect(platform.mutated()).To(BeFalse())
			Expect(issues.assigneeSets).To(BeEmpty())
		})
	})

	Describe("issue.unassigned", func() {
		BeforeEach(func() {
			issues.findOneFn = func(context.Context, model.Provider, string, int) (*model.Issue, error) {
				issue := trackedIssue(model.StatusChallengeCreationSuccessful)
				assignee := "gituser"
				issue.Assignee = &assignee
				return issue, nil
			}
		})

		It("removes the registration and reopens for pickup", func() {
			evt := event(model.EventIssueUnassigned)
			evt.Labels = []string{"bug", testLabels.Assigned}

			err := machine.Process(ctx, evt)
			Expect(err).NotTo(HaveOccurred())

			Expect(platform.removed).To(Equal([]string{"tchandle"}))
			Expect(host.labelSets[0]).To(ConsistOf("bug", testLabels.OpenForPickup))
			Expect(issues.assigneeSets).To(Equal([]*string{nil}))
		})

		It("ignores a spurious unassign during a reassignment swap", func() {
			evt := event(model.EventIssueUnassigned)
			// The stored assignee resolves to ID 777 and is still listed.
			evt.Assignees = []model.EventUser{{ID: 777}}

			err := machine.Process(ctx, evt)
			Expect(err).NotTo(HaveOccurred())
			Expect(platform.mutated()).To(BeFalse())
			Expect(issues.assigneeSets).To(BeEmpty())
		})
	})

	Describe("issue.labelUpdated", func() {
		It("ignores label updates racing ahead of creation", func() {
			err := machine.Process(ctx, event(model.EventIssueLabelUpdated))
			Expect(err).NotTo(HaveOccurred())
			Expect(issues.labelUpdates).To(BeEmpty())
		})

		It("persists the new label set", func() {
			issues.findOneFn = func(context.Context, model.Provider, string, int) (*model.Issue, error) {
				return trackedIssue(model.StatusChallengeCreationSuccessful), nil
			}
			evt := event(model.EventIssueLabelUpdated)
			evt.Labels = []string{"bug", testLabels.OpenForPickup}

			err := machine.Process(ctx, evt)
			Expect(err).NotTo(HaveOccurred())
			Expect(issues.labelUpdates).To(HaveLen(1))
		})

		It("ignores label updates after payment", func() {
			issues.findOneFn = func(context.Context, model.Provider, string, int) (*model.Issue, error) {
				return trackedIssue(model.StatusChallengePaymentSuccessful), nil
			}

			err := machine.Process(ctx, event(model.EventIssueLabelUpdated))
			Expect(err).NotTo(HaveOccurred())
			Expect(issues.labelUpdates).To(BeEmpty())
		})
	})

	Describe("issue.closed", func() {
		assignedIssue := func(status model.IssueStatus) *model.Issue {
			issue := trackedIssue(status)
			assignee := "gituser"
			issue.Assignee = &assignee
			return issue
		}

		It("ignores a close after successful payment", func() {
			issues.findOneFn = func(context.Context, model.Provider, string, int) (*model.Issue, error) {
				return assignedIssue(model.StatusChallengePaymentSuccessful), nil
			}
			evt := event(model.EventIssueClosed)
			evt.Labels = []string{testLabels.FixAccepted}

			err := machine.Process(ctx, evt)
			Expect(err).NotTo(HaveOccurred())
			Expect(platform.mutated()).To(BeFalse())
			Expect(issues.statusChanges).To(BeEmpty())
		})

		It("asks for the fix-accepted label when missing", func() {
			issues.findOneFn = func(context.Context, model.Provider, string, int) (*model.Issue, error) {
				return assignedIssue(model.StatusChallengeCreationSuccessful), nil
			}
			evt := event(model.EventIssueClosed)
			evt.Labels = []string{"bug"}

			err := machine.Process(ctx, evt)
			Expect(err).NotTo(HaveOccurred())

			Expect(platform.mutated()).To(BeFalse())
			Expect(issues.statusChanges).To(BeEmpty())
			Expect(host.comments).To(HaveLen(1))
			Expect(host.comments[0]).To(ContainSubstring(testLabels.FixAccepted))
		})

		It("cancels the challenge when closed with the cancelled label", func() {
			issues.findOneFn = func(context.Context, model.Provider, string, int) (*model.Issue, error) {
				return assignedIssue(model.StatusChallengeCreationSuccessful), nil
			}
			evt := event(model.EventIssueClosed)
			evt.Labels = []string{testLabels.Canceled}

			err := machine.Process(ctx, evt)
			Expect(err).NotTo(HaveOccurred())

			Expect(platform.cancelled).To(Equal([]int64{30001}))
			Expect(issues.statusChanges).To(ContainElement(statusChange{ID: 1, Status: model.StatusChallengeCancelled}))
		})

		It("pays the winner on the happy path", func() {
			issues.findOneFn = func(context.Context, model.Provider, string, int) (*model.Issue, error) {
				return assignedIssue(model.StatusChallengeCreationSuccessful), nil
			}
			evt := event(model.EventIssueClosed)
			evt.Labels = []string{testLabels.FixAccepted}

			err := machine.Process(ctx, evt)
			Expect(err).NotTo(HaveOccurred())

			Expect(issues.statusChanges).To(Equal([]statusChange{
				{ID: 1, Status: model.StatusChallengePaymentPending},
				{ID: 1, Status: model.StatusChallengePaymentSuccessful},
			}))

			// Copilot payment included: prize pool gains the copilot amount.
			Expect(platform.updated).To(HaveLen(1))
			Expect(platform.updated[0].Prizes).To(Equal([]int{100, 40}))

			Expect(platform.participants[topcoder.RoleSubmitter]).To(Equal([]string{"tchandle"}))
			Expect(platform.participants[topcoder.RoleCopilot]).To(Equal([]string{"copilot1"}))
			Expect(platform.activated).To(Equal([]int64{30001}))
			Expect(platform.closed).To(Equal([]string{"tchandle"}))

			Expect(host.labelSets).To(HaveLen(1))
			Expect(host.labelSets[0]).To(ConsistOf(testLabels.FixAccepted, testLabels.Paid))
			Expect(host.comments[0]).To(ContainSubstring("tchandle"))
			Expect(host.comments[0]).To(ContainSubstring("copilot1"))
		})

		It("skips copilot payment when the copilot is the winner", func() {
			users.getByGitUsernameFn = func(_ context.Context, provider model.Provider, gitUsername string) (*model.UserMapping, error) {
				return &model.UserMapping{TopcoderHandle: "copilot1"}, nil
			}
			issues.findOneFn = func(context.Context, model.Provider, string, int) (*model.Issue, error) {
				return assignedIssue(model.StatusChallengeCreationSuccessful), nil
			}
			evt := event(model.EventIssueClosed)
			evt.Labels = []string{testLabels.FixAccepted}

			err := machine.Process(ctx, evt)
			Expect(err).NotTo(HaveOccurred())

			Expect(platform.updated[0].Prizes).To(Equal([]int{100}))
			Expect(platform.participants[topcoder.RoleCopilot]).To(BeEmpty())
		})

		It("yields when another worker claims the payment first", func() {
			issues.findOneFn = func(context.Context, model.Provider, string, int) (*model.Issue, error) {
				return assignedIssue(model.StatusChallengeCreationSuccessful), nil
			}
			issues.updateStatusIfFn = func(_ context.Context, _ int64, from, to model.IssueStatus) error {
				Expect(from).To(Equal(model.StatusChallengeCreationSuccessful))
				Expect(to).To(Equal(model.StatusChallengePaymentPending))
				return store.ErrConflict
			}
			evt := event(model.EventIssueClosed)
			evt.Labels = []string{testLabels.FixAccepted}

			err := machine.Process(ctx, evt)
			Expect(err).NotTo(HaveOccurred())

			Expect(platform.mutated()).To(BeFalse())
			Expect(host.comments).To(BeEmpty())
		})

		It("persists payment_failed when the platform fails mid-sequence", func() {
			issues.findOneFn = func(context.Context, model.Provider, string, int) (*model.Issue, error) {
				return assignedIssue(model.StatusChallengeCreationSuccessful), nil
			}
			platform.closeFn = func(context.Context, int64, string) error {
				return &topcoder.APIError{Op: "close", StatusCode: http.StatusInternalServerError}
			}
			evt := event(model.EventIssueClosed)
			evt.Labels = []string{testLabels.FixAccepted}

			err := machine.Process(ctx, evt)
			Expect(err).To(HaveOccurred())
			Expect(processor.Retryable(err)).To(BeTrue())

			Expect(issues.statusChanges).To(Equal([]statusChange{
				{ID: 1, Status: model.StatusChallengePaymentPending},
				{ID: 1, Status: model.StatusChallengePaymentFailed},
			}))
		})

		It("does nothing for a close without assignee", func() {
			issues.findOneFn = func(context.Context, model.Provider, string, int) (*model.Issue, error) {
				return trackedIssue(model.StatusChallengeCreationSuccessful), nil
			}
			evt := event(model.EventIssueClosed)
			evt.Labels = []string{testLabels.FixAccepted}

			err := machine.Process(ctx, evt)
			Expect(err).NotTo(HaveOccurred())
			Expect(platform.mutated()).To(BeFalse())
		})

		It("cancels a zero-prize issue", func() {
			issues.findOneFn = func(context.Context, model.Provider, string, int) (*model.Issue, error) {
				issue := assignedIssue(model.StatusChallengeCreationSuccessful)
				issue.Prizes = []int{}
				return issue, nil
			}
			evt := event(model.EventIssueClosed)
			evt.Labels = []string{testLabels.FixAccepted}

			err := machine.Process(ctx, evt)
			Expect(err).NotTo(HaveOccurred())
			Expect(issues.statusChanges).To(ContainElement(statusChange{ID: 1, Status: model.StatusChallengeCancelled}))
			Expect(platform.mutated()).To(BeFalse())
		})
	})

	Describe("issue.recreated", func() {
		It("deletes the record, clears the lock, recreates and restores the assignment", func() {
			var created *model.Issue
			first := true
			issues.findOneFn = func(context.Context, model.Provider, string, int) (*model.Issue, error) {
				if first {
					first = false
					issue := trackedIssue(model.StatusChallengeCreationFailed)
					assignee := "gituser"
					issue.Assignee = &assignee
					return issue, nil
				}
				if created == nil {
					return nil, store.ErrNotFound
				}
				return created, nil
			}
			issues.createFn = func(_ context.Context, issue *model.Issue) (*model.Issue, error) {
				challengeID := int64(30001)
				issue.ChallengeID = &challengeID
				created = issue
				return issue, nil
			}

			evt := event(model.EventIssueRecreated)
			evt.Labels = []string{"bug", testLabels.Assigned}
			evt.Assignees = []model.EventUser{{ID: 777}}

			err := machine.Process(ctx, evt)
			Expect(err).NotTo(HaveOccurred())

			Expect(host.labelSets[0]).To(ConsistOf("bug"))
			Expect(host.unassigns).To(Equal([]int64{777}))
			Expect(issues.deleted).To(Equal(1))
			Expect(locks.forceReleased).To(Equal(1))
			Expect(platform.created).To(HaveLen(1))
			Expect(issues.created).To(HaveLen(1))

			// The assignment stripped before recreation comes back on the
			// tracker, the record and the challenge.
			Expect(host.assigns).To(Equal([]int64{777}))
			Expect(platform.participants[topcoder.RoleSubmitter]).To(Equal([]string{"tchandle"}))
			Expect(*issues.assigneeSets[0]).To(Equal("gituser"))
		})
	})

	Describe("comment events", func() {
		It("validates and ignores comment.created", func() {
			evt := event(model.EventCommentCreated)
			evt.Comment = &model.EventComment{ID: 1, Body: "hi", User: model.EventUser{ID: 777}}

			err := machine.Process(ctx, evt)
			Expect(err).NotTo(HaveOccurred())
			Expect(platform.mutated()).To(BeFalse())
		})

		It("rejects a comment event without a comment body", func() {
			err := machine.Process(ctx, event(model.EventCommentCreated))

			var validationErr *model.ValidationError
			Expect(errors.As(err, &validationErr)).To(BeTrue())
			Expect(processor.Retryable(err)).To(BeFalse())
		})
	})
})
