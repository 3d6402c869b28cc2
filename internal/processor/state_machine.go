package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/topcoder-platform/topcoder-x-processor-sub000/common/id"
	"github.com/topcoder-platform/topcoder-x-processor-sub000/common/logger"
	"github.com/topcoder-platform/topcoder-x-processor-sub000/core/config"
	"github.com/topcoder-platform/topcoder-x-processor-sub000/internal/githost"
	"github.com/topcoder-platform/topcoder-x-processor-sub000/internal/model"
	"github.com/topcoder-platform/topcoder-x-processor-sub000/internal/parser"
	"github.com/topcoder-platform/topcoder-x-processor-sub000/internal/store"
	"github.com/topcoder-platform/topcoder-x-processor-sub000/internal/topcoder"
)

// StateMachine drives one issue through its lifecycle per incoming event.
// The persisted issue record is the single shared mutable resource; its
// status column discriminates concurrent writers, so every transition that
// finds the record already in-flight or terminal for its path degrades to a
// no-op or a rejection instead of re-executing side effects.
type StateMachine struct {
	issues   store.IssueStore
	resolver *githost.Resolver
	hosts    githost.Factory
	platform topcoder.Client
	locks    LockManager
	labels   config.LabelsConfig
	topcoder config.TopcoderConfig
}

func NewStateMachine(
	issues store.IssueStore,
	resolver *githost.Resolver,
	hosts githost.Factory,
	platform topcoder.Client,
	locks LockManager,
	labels config.LabelsConfig,
	topcoderCfg config.TopcoderConfig,
) *StateMachine {
	return &StateMachine{
		issues:   issues,
		resolver: resolver,
		hosts:    hosts,
		platform: platform,
		locks:    locks,
		labels:   labels,
		topcoder: topcoderCfg,
	}
}

// Process executes the transition for one event. Events for the same issue
// arrive in webhook order under at-least-once delivery, so every branch must
// tolerate duplication and reordering.
func (s *StateMachine) Process(ctx context.Context, event model.Event) error {
	if err := event.Validate(); err != nil {
		return err
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Provider:     logger.Ptr(string(event.Provider)),
		RepositoryID: logger.Ptr(event.RepositoryID),
		IssueNumber:  logger.Ptr(event.IssueNumber),
		EventType:    logger.Ptr(string(event.Type)),
		RetryCount:   logger.Ptr(event.RetryCount),
		Component:    "tcx.processor.statemachine",
	})

	switch event.Type {
	case model.EventIssueCreated:
		return s.handleCreated(ctx, event)
	case model.EventIssueUpdated:
		return s.handleUpdated(ctx, event)
	case model.EventIssueAssigned:
		return s.handleAssigned(ctx, event, false)
	case model.EventIssueUnassigned:
		return s.handleUnassigned(ctx, event)
	case model.EventIssueLabelUpdated:
		return s.handleLabelUpdated(ctx, event)
	case model.EventIssueClosed:
		return s.handleClosed(ctx, event)
	case model.EventIssueRecreated:
		return s.handleRecreated(ctx, event)
	case model.EventCommentCreated, model.EventCommentUpdated:
		slog.DebugContext(ctx, "comment event ignored")
		return nil
	default:
		return &model.ValidationError{Field: "eventType", Reason: fmt.Sprintf("unknown value %q", event.Type)}
	}
}

func (s *StateMachine) ref(event model.Event) githost.IssueRef {
	return githost.IssueRef{
		Provider:     event.Provider,
		RepositoryID: event.RepositoryID,
		Number:       event.IssueNumber,
	}
}

func (s *StateMachine) handleCreated(ctx context.Context, event model.Event) error {
	existing, err := s.issues.FindOne(ctx, event.Provider, event.RepositoryID, event.IssueNumber)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("loading issue record: %w", err)
	}
	if existing != nil {
		if existing.Status != model.StatusChallengeCancelled {
			return fmt.Errorf("%w: status %s", ErrIssueAlreadyExists, existing.Status)
		}
		// A cancelled issue may be recreated. Drop the old record so the
		// unique constraint does not reject the fresh one.
		if err := s.issues.Delete(ctx, event.Provider, event.RepositoryID, event.IssueNumber); err != nil {
			return fmt.Errorf("replacing cancelled record: %w", err)
		}
	}

	prizes, cleanTitle := parser.Parse(event.Title)
	if len(prizes) == 0 {
		slog.InfoContext(ctx, "issue has no prize tag, not tracked")
		return nil
	}

	project, err := s.resolver.ResolveProject(ctx, event.Provider, event.RepositoryID)
	if err != nil {
		return err
	}

	lease, err := s.locks.Acquire(ctx, event.Provider, event.RepositoryID, event.IssueNumber)
	if err != nil {
		return err
	}
	defer lease.Release(ctx)

	record := &model.Issue{
		ID:           id.New(),
		Provider:     event.Provider,
		RepositoryID: event.RepositoryID,
		Number:       event.IssueNumber,
		Title:        cleanTitle,
		Body:         event.Body,
		Prizes:       prizes,
		Labels:       event.Labels,
		ProjectID:    &project.TopcoderProjectID,
		Status:       model.StatusChallengeCreationPending,
	}
	record, err = s.issues.Create(ctx, record)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			// Another replica won the race between FindOne and Create.
			return fmt.Errorf("%w: concurrent create", ErrChallengeCreating)
		}
		return fmt.Errorf("persisting issue record: %w", err)
	}

	challenge, err := s.platform.CreateChallenge(ctx, topcoder.ChallengeSpec{
		Name:      parser.Serialize(prizes, cleanTitle),
		Detail:    event.Body,
		Prizes:    prizes,
		ProjectID: project.TopcoderProjectID,
		Tags:      project.Tags,
	})
	if err != nil {
		// Roll the record back so a later replay can start clean.
		if delErr := s.issues.Delete(ctx, event.Provider, event.RepositoryID, event.IssueNumber); delErr != nil {
			slog.ErrorContext(ctx, "rolling back issue record after failed creation", "error", delErr)
		}
		return fmt.Errorf("creating challenge: %w", err)
	}

	if err := s.issues.SetChallenge(ctx, record.ID, challenge.ID, challenge.UUID, model.StatusChallengeCreationSuccessful); err != nil {
		return fmt.Errorf("persisting challenge association: %w", err)
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{ChallengeID: logger.Ptr(challenge.ID)})
	slog.InfoContext(ctx, "challenge created for issue")

	host, err := s.hosts.ClientFor(ctx, event.Provider, event.RepositoryID)
	if err != nil {
		return err
	}
	link := challengeLink(s.topcoder.ChallengeLinkBase, challenge.ID)
	if err := host.CreateComment(ctx, s.ref(event), challengeCreatedComment(link)); err != nil {
		return err
	}

	if len(event.Assignees) > 0 {
		// The issue arrived pre-assigned; assignment skips the
		// open-for-pickup precondition in that case.
		return s.handleAssigned(ctx, event, true)
	}
	return nil
}

func (s *StateMachine) handleUpdated(ctx context.Context, event model.Event) error {
	record, err := s.issues.FindOne(ctx, event.Provider, event.RepositoryID, event.IssueNumber)
	if errors.Is(err, store.ErrNotFound) {
		// First contact with this issue; treat it as a creation.
		return s.handleCreated(ctx, event)
	}
	if err != nil {
		return fmt.Errorf("loading issue record: %w", err)
	}
	if record.Status.Terminal() {
		slog.InfoContext(ctx, "issue in terminal state, update ignored", "status", record.Status)
		return nil
	}

	prizes, cleanTitle := parser.Parse(event.Title)
	if cleanTitle == record.Title && event.Body == record.Body && slices.Equal(prizes, record.Prizes) {
		slog.DebugContext(ctx, "no tracked fields changed, update ignored")
		return nil
	}

	if record.ChallengeID != nil {
		patch := topcoder.ChallengePatch{
			Name:   topcoder.Ptr(parser.Serialize(prizes, cleanTitle)),
			Detail: topcoder.Ptr(event.Body),
			Prizes: prizes,
		}
		if err := s.platform.UpdateChallenge(ctx, *record.ChallengeID, patch); err != nil {
			return fmt.Errorf("updating challenge: %w", err)
		}
	}

	if err := s.issues.UpdateContent(ctx, record.ID, cleanTitle, event.Body, prizes); err != nil {
		return fmt.Errorf("persisting issue update: %w", err)
	}

	slog.InfoContext(ctx, "issue update synced")
	return nil
}

func (s *StateMachine) handleAssigned(ctx context.Context, event model.Event, force bool) error {
	record, err := s.issues.FindOne(ctx, event.Provider, event.RepositoryID, event.IssueNumber)
	if err != nil {
		// Assignment can race ahead of creation; not-found is retryable.
		return fmt.Errorf("loading issue record: %w", err)
	}
	if record.Status.Terminal() {
		slog.InfoContext(ctx, "issue in terminal state, assignment ignored", "status", record.Status)
		return nil
	}

	host, err := s.hosts.ClientFor(ctx, event.Provider, event.RepositoryID)
	if err != nil {
		return err
	}
	ref := s.ref(event)

	if len(event.Assignees) > 1 {
		return host.CreateComment(ctx, ref, multipleAssigneesComment())
	}
	if len(event.Assignees) == 0 {
		slog.DebugContext(ctx, "assignment event without assignees ignored")
		return nil
	}

	assigneeID := event.Assignees[0].ID
	username, err := host.ResolveUsernameByID(ctx, assigneeID)
	if err != nil {
		return err
	}

	if record.Assignee != nil && *record.Assignee == username {
		slog.DebugContext(ctx, "issue already assigned to this user", "assignee", username)
		return nil
	}

	handle, err := s.resolver.ResolveUser(ctx, event.Provider, assigneeID)
	if err != nil {
		if errors.Is(err, githost.ErrUserNotMapped) {
			// Roll the assignment back on the tracker and ask the user to
			// register. The record stays untouched.
			if unErr := host.Unassign(ctx, ref, assigneeID); unErr != nil {
				return unErr
			}
			return host.CreateComment(ctx, ref, signupComment(username))
		}
		return err
	}

	if !force && !slices.Contains(event.Labels, s.labels.OpenForPickup) {
		if unErr := host.Unassign(ctx, ref, assigneeID); unErr != nil {
			return unErr
		}
		return host.CreateComment(ctx, ref, notOpenForPickupComment(s.labels.OpenForPickup))
	}

	if record.ChallengeID == nil {
		return fmt.Errorf("issue %d has no challenge yet, cannot register participant", event.IssueNumber)
	}

	if force {
		// Recreation strips the tracker-side assignment before re-entering
		// here; restore it. Adding an existing assignee is a host no-op.
		if err := host.Assign(ctx, ref, assigneeID); err != nil {
			return err
		}
	}

	if err := s.platform.AddParticipant(ctx, *record.ChallengeID, handle, topcoder.RoleSubmitter); err != nil {
		return fmt.Errorf("registering participant: %w", err)
	}

	newLabels := replaceLabel(event.Labels, s.labels.OpenForPickup, s.labels.Assigned)
	if err := host.SetLabels(ctx, ref, newLabels); err != nil {
		return err
	}
	if err := s.issues.UpdateLabels(ctx, record.ID, newLabels); err != nil {
		return fmt.Errorf("persisting labels: %w", err)
	}

	now := time.Now()
	if err := s.issues.SetAssignee(ctx, record.ID, &username, &now); err != nil {
		return fmt.Errorf("persisting assignee: %w", err)
	}

	slog.InfoContext(ctx, "issue assigned", "assignee", username, "handle", handle)
	link := challengeLink(s.topcoder.ChallengeLinkBase, *record.ChallengeID)
	return host.CreateComment(ctx, ref, assignedComment(link, handle))
}

func (s *StateMachine) handleUnassigned(ctx context.Context, event model.Event) error {
	record, err := s.issues.FindOne(ctx, event.Provider, event.RepositoryID, event.IssueNumber)
	if errors.Is(err, store.ErrNotFound) {
		slog.DebugContext(ctx, "unassignment for untracked issue ignored")
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading issue record: %w", err)
	}
	if record.Assignee == nil {
		slog.DebugContext(ctx, "issue has no stored assignee, unassignment ignored")
		return nil
	}
	if record.Status.Terminal() {
		slog.InfoContext(ctx, "issue in terminal state, unassignment ignored", "status", record.Status)
		return nil
	}

	host, err := s.hosts.ClientFor(ctx, event.Provider, event.RepositoryID)
	if err != nil {
		return err
	}
	ref := s.ref(event)

	// During a reassignment swap the tracker emits an unassign that still
	// lists the stored assignee among the remaining assignees. That one is
	// spurious.
	if len(event.Assignees) > 0 {
		storedID, err := host.ResolveIDByUsername(ctx, *record.Assignee)
		if err != nil {
			return err
		}
		for _, assignee := range event.Assignees {
			if assignee.ID == storedID {
				slog.DebugContext(ctx, "spurious unassign during reassignment ignored")
				return nil
			}
		}
	}

	if record.ChallengeID != nil {
		handle, err := s.resolver.ResolveUserByUsername(ctx, event.Provider, *record.Assignee)
		if err == nil {
			if err := s.platform.RemoveParticipant(ctx, *record.ChallengeID, handle, topcoder.RoleSubmitter); err != nil {
				return fmt.Errorf("removing participant: %w", err)
			}
		} else if !errors.Is(err, githost.ErrUserNotMapped) {
			return err
		}
	}

	newLabels := replaceLabel(event.Labels, s.labels.Assigned, s.labels.OpenForPickup)
	if err := host.SetLabels(ctx, ref, newLabels); err != nil {
		return err
	}
	if err := s.issues.UpdateLabels(ctx, record.ID, newLabels); err != nil {
		return fmt.Errorf("persisting labels: %w", err)
	}
	if err := s.issues.SetAssignee(ctx, record.ID, nil, nil); err != nil {
		return fmt.Errorf("clearing assignee: %w", err)
	}

	slog.InfoContext(ctx, "issue unassigned", "previous_assignee", *record.Assignee)

	if len(event.Assignees) == 1 {
		// One assignee remains on the tracker side; hand the issue to them.
		next := event
		next.Labels = newLabels
		return s.handleAssigned(ctx, next, false)
	}
	return nil
}

func (s *StateMachine) handleLabelUpdated(ctx context.Context, event model.Event) error {
	record, err := s.issues.FindOne(ctx, event.Provider, event.RepositoryID, event.IssueNumber)
	if errors.Is(err, store.ErrNotFound) {
		// Label events may race ahead of creation.
		slog.DebugContext(ctx, "label update for untracked issue ignored")
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading issue record: %w", err)
	}
	if record.Status == model.StatusChallengePaymentSuccessful {
		slog.DebugContext(ctx, "label update after payment ignored")
		return nil
	}

	if err := s.issues.UpdateLabels(ctx, record.ID, event.Labels); err != nil {
		return fmt.Errorf("persisting labels: %w", err)
	}
	return nil
}

func (s *StateMachine) handleClosed(ctx context.Context, event model.Event) error {
	record, err := s.issues.FindOne(ctx, event.Provider, event.RepositoryID, event.IssueNumber)
	if errors.Is(err, store.ErrNotFound) {
		slog.DebugContext(ctx, "close for untracked issue ignored")
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading issue record: %w", err)
	}

	if record.Status == model.StatusChallengePaymentSuccessful || record.Status == model.StatusChallengePaymentPending {
		slog.InfoContext(ctx, "payment already done or in flight, close ignored", "status", record.Status)
		return nil
	}

	host, err := s.hosts.ClientFor(ctx, event.Provider, event.RepositoryID)
	if err != nil {
		return err
	}
	ref := s.ref(event)

	if slices.Contains(event.Labels, s.labels.Canceled) {
		if record.ChallengeID != nil {
			if err := s.platform.CancelChallenge(ctx, *record.ChallengeID); err != nil {
				return fmt.Errorf("cancelling challenge: %w", err)
			}
		}
		if err := s.issues.UpdateStatus(ctx, record.ID, model.StatusChallengeCancelled); err != nil {
			return fmt.Errorf("persisting cancellation: %w", err)
		}
		slog.InfoContext(ctx, "issue cancelled")
		return nil
	}

	if !slices.Contains(event.Labels, s.labels.FixAccepted) {
		slog.InfoContext(ctx, "issue closed without fix-accepted label")
		return host.CreateComment(ctx, ref, reopenForPaymentComment(s.labels.FixAccepted))
	}

	if record.PrimaryPrize() == 0 {
		if err := s.issues.UpdateStatus(ctx, record.ID, model.StatusChallengeCancelled); err != nil {
			return fmt.Errorf("persisting cancellation: %w", err)
		}
		slog.InfoContext(ctx, "issue has zero prize, cancelled")
		return nil
	}

	if record.Assignee == nil {
		slog.InfoContext(ctx, "issue closed without assignee, no payment")
		return nil
	}

	if slices.Contains(event.Labels, s.labels.Paid) {
		slog.InfoContext(ctx, "issue already labeled paid, close ignored")
		return nil
	}

	if record.ChallengeID == nil {
		return fmt.Errorf("issue %d has no challenge, cannot pay", event.IssueNumber)
	}

	// Durability barrier: a crash between here and payment_successful leaves
	// the record in payment_pending, which blocks duplicate payment on
	// redelivery until an operator intervenes via recreation. The
	// compare-and-set keeps two replicas racing on the same close from both
	// entering the payment sequence.
	if err := s.issues.UpdateStatusIf(ctx, record.ID, record.Status, model.StatusChallengePaymentPending); err != nil {
		if errors.Is(err, store.ErrConflict) {
			slog.InfoContext(ctx, "another worker claimed the payment, close ignored")
			return nil
		}
		return fmt.Errorf("persisting payment barrier: %w", err)
	}

	handle, err := s.resolver.ResolveUserByUsername(ctx, event.Provider, *record.Assignee)
	if err != nil {
		if errors.Is(err, githost.ErrUserNotMapped) {
			if stErr := s.issues.UpdateStatus(ctx, record.ID, model.StatusChallengeCreationSuccessful); stErr != nil {
				slog.ErrorContext(ctx, "rolling back payment barrier", "error", stErr)
			}
			if reErr := host.SetState(ctx, ref, githost.IssueStateOpen); reErr != nil {
				return reErr
			}
			return host.CreateComment(ctx, ref, signupComment(*record.Assignee))
		}
		return err
	}

	copilot := s.eligibleCopilot(ctx, record, handle)

	if err := s.paymentSequence(ctx, record, handle, copilot); err != nil {
		if stErr := s.issues.UpdateStatus(ctx, record.ID, model.StatusChallengePaymentFailed); stErr != nil {
			slog.ErrorContext(ctx, "persisting payment failure", "error", stErr)
		}
		return err
	}

	if err := s.issues.UpdateStatusIf(ctx, record.ID, model.StatusChallengePaymentPending, model.StatusChallengePaymentSuccessful); err != nil {
		if errors.Is(err, store.ErrConflict) {
			slog.WarnContext(ctx, "record left payment_pending during the payment sequence, labels and comment skipped")
			return nil
		}
		return fmt.Errorf("persisting payment success: %w", err)
	}

	finalLabels := []string{s.labels.FixAccepted, s.labels.Paid}
	if err := host.SetLabels(ctx, ref, finalLabels); err != nil {
		return err
	}
	if err := s.issues.UpdateLabels(ctx, record.ID, finalLabels); err != nil {
		return fmt.Errorf("persisting labels: %w", err)
	}

	slog.InfoContext(ctx, "payment complete", "winner", handle, "copilot", copilot)
	link := challengeLink(s.topcoder.ChallengeLinkBase, *record.ChallengeID)
	return host.CreateComment(ctx, ref, paidComment(link, handle, copilot))
}

// eligibleCopilot returns the copilot handle to pay alongside the winner, or
// empty when the project has no copilot, the copilot is the winner, or
// copilot payments are disabled.
func (s *StateMachine) eligibleCopilot(ctx context.Context, record *model.Issue, winner string) string {
	if s.topcoder.CopilotPayment <= 0 {
		return ""
	}
	project, err := s.resolver.ResolveProject(ctx, record.Provider, record.RepositoryID)
	if err != nil {
		slog.WarnContext(ctx, "resolving project for copilot payment", "error", err)
		return ""
	}
	if project.CopilotHandle == "" || project.CopilotHandle == winner {
		return ""
	}
	return project.CopilotHandle
}

// paymentSequence performs the platform-side close. The caller owns the
// payment_pending / payment_failed bookkeeping around it.
func (s *StateMachine) paymentSequence(ctx context.Context, record *model.Issue, winner, copilot string) error {
	challengeID := *record.ChallengeID
	ctx = logger.WithLogFields(ctx, logger.LogFields{ChallengeID: logger.Ptr(challengeID)})

	challenge, err := s.platform.GetChallenge(ctx, challengeID)
	if err != nil {
		return fmt.Errorf("fetching challenge: %w", err)
	}
	if challenge.Status == topcoder.StatusCompleted {
		slog.InfoContext(ctx, "challenge already completed, nothing to pay")
		return nil
	}

	prizes := record.Prizes
	if copilot != "" {
		prizes = append(slices.Clone(record.Prizes), s.topcoder.CopilotPayment)
	}
	patch := topcoder.ChallengePatch{
		Name:   topcoder.Ptr(parser.Serialize(record.Prizes, record.Title)),
		Prizes: prizes,
	}
	if err := s.platform.UpdateChallenge(ctx, challengeID, patch); err != nil {
		return fmt.Errorf("updating challenge prizes: %w", err)
	}

	// Registration must be idempotent across redeliveries: check before add.
	winnerSet, err := s.platform.IsRoleAlreadySet(ctx, challengeID, topcoder.RoleSubmitter)
	if err != nil {
		return fmt.Errorf("checking winner registration: %w", err)
	}
	if !winnerSet {
		if err := s.platform.AddParticipant(ctx, challengeID, winner, topcoder.RoleSubmitter); err != nil {
			return fmt.Errorf("registering winner: %w", err)
		}
	}

	if copilot != "" {
		copilotSet, err := s.platform.IsRoleAlreadySet(ctx, challengeID, topcoder.RoleCopilot)
		if err != nil {
			return fmt.Errorf("checking copilot registration: %w", err)
		}
		if !copilotSet {
			if err := s.platform.AddParticipant(ctx, challengeID, copilot, topcoder.RoleCopilot); err != nil {
				return fmt.Errorf("registering copilot: %w", err)
			}
		}
	}

	if challenge.Status == topcoder.StatusDraft {
		if err := s.platform.ActivateChallenge(ctx, challengeID); err != nil {
			return fmt.Errorf("activating challenge: %w", err)
		}
	}

	if err := s.platform.CloseChallenge(ctx, challengeID, winner); err != nil {
		return fmt.Errorf("closing challenge: %w", err)
	}
	return nil
}

func (s *StateMachine) handleRecreated(ctx context.Context, event model.Event) error {
	record, err := s.issues.FindOne(ctx, event.Provider, event.RepositoryID, event.IssueNumber)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("loading issue record: %w", err)
	}

	host, err := s.hosts.ClientFor(ctx, event.Provider, event.RepositoryID)
	if err != nil {
		return err
	}
	ref := s.ref(event)

	stripped := stripDomainLabels(event.Labels, s.labels)
	if err := host.SetLabels(ctx, ref, stripped); err != nil {
		return err
	}

	if record != nil {
		if record.Assignee != nil {
			assigneeID, err := host.ResolveIDByUsername(ctx, *record.Assignee)
			if err != nil {
				return err
			}
			if err := host.Unassign(ctx, ref, assigneeID); err != nil {
				return err
			}
		}
		if err := s.issues.Delete(ctx, event.Provider, event.RepositoryID, event.IssueNumber); err != nil {
			return fmt.Errorf("deleting issue record: %w", err)
		}
	}

	// A stuck lock from a crashed creation is exactly what recreation is
	// meant to recover from.
	if err := s.locks.ForceRelease(ctx, event.Provider, event.RepositoryID, event.IssueNumber); err != nil {
		return err
	}

	recreate := event
	recreate.Labels = stripped
	slog.InfoContext(ctx, "issue recreated")
	return s.handleCreated(ctx, recreate)
}

func replaceLabel(labels []string, old, replacement string) []string {
	result := make([]string, 0, len(labels)+1)
	for _, label := range labels {
		if label == old || label == replacement {
			continue
		}
		result = append(result, label)
	}
	return append(result, replacement)
}

func stripDomainLabels(labels []string, cfg config.LabelsConfig) []string {
	domain := map[string]struct{}{
		cfg.OpenForPickup:  {},
		cfg.Assigned:       {},
		cfg.ReadyForReview: {},
		cfg.FixAccepted:    {},
		cfg.Paid:           {},
		cfg.Canceled:       {},
	}
	result := make([]string, 0, len(labels))
	for _, label := range labels {
		if _, ok := domain[label]; ok {
			continue
		}
		result = append(result, label)
	}
	return result
}
