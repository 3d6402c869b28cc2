package processor_test

import (
	"context"
	"time"

	"github.com/topcoder-platform/topcoder-x-processor-sub000/internal/githost"
	"github.com/topcoder-platform/topcoder-x-processor-sub000/internal/model"
	"github.com/topcoder-platform/topcoder-x-processor-sub000/internal/processor"
	"github.com/topcoder-platform/topcoder-x-processor-sub000/internal/store"
	"github.com/topcoder-platform/topcoder-x-processor-sub000/internal/topcoder"
)

// Mock IssueStore

type statusChange struct {
	ID     int64
	Status model.IssueStatus
}

type mockIssueStore struct {
	findOneFn        func(ctx context.Context, provider model.Provider, repositoryID string, number int) (*model.Issue, error)
	createFn         func(ctx context.Context, issue *model.Issue) (*model.Issue, error)
	updateStatusIfFn func(ctx context.Context, id int64, from, to model.IssueStatus) error

	created        []*model.Issue
	deleted        int
	statusChanges  []statusChange
	labelUpdates   [][]string
	assigneeSets   []*string
	challengeSets  []int64
	contentUpdates int
}

func (m *mockIssueStore) FindOne(ctx context.Context, provider model.Provider, repositoryID string, number int) (*model.Issue, error) {
	if m.findOneFn != nil {
		return m.findOneFn(ctx, provider, repositoryID, number)
	}
	return nil, store.ErrNotFound
}

func (m *mockIssueStore) Create(ctx context.Context, issue *model.Issue) (*model.Issue, error) {
	m.created = append(m.created, issue)
	if m.createFn != nil {
		return m.createFn(ctx, issue)
	}
	return issue, nil
}

func (m *mockIssueStore) Delete(ctx context.Context, provider model.Provider, repositoryID string, number int) error {
	m.deleted++
	return nil
}

func (m *mockIssueStore) ListByProject(ctx context.Context, projectID int64) ([]model.Issue, error) {
	return nil, nil
}

func (m *mockIssueStore) UpdateStatus(ctx context.Context, id int64, status model.IssueStatus) error {
	m.statusChanges = append(m.statusChanges, statusChange{ID: id, Status: status})
	return nil
}

func (m *mockIssueStore) UpdateStatusIf(ctx context.Context, id int64, from, to model.IssueStatus) error {
	if m.updateStatusIfFn != nil {
		return m.updateStatusIfFn(ctx, id, from, to)
	}
	m.statusChanges = append(m.statusChanges, statusChange{ID: id, Status: to})
	return nil
}

func (m *mockIssueStore) UpdateContent(ctx context.Context, id int64, title, body string, prizes []int) error {
	m.contentUpdates++
	return nil
}

func (m *mockIssueStore) UpdateLabels(ctx context.Context, id int64, labels []string) error {
	m.labelUpdates = append(m.labelUpdates, labels)
	return nil
}

func (m *mockIssueStore) SetAssignee(ctx context.Context, id int64, assignee *string, assignedAt *time.Time) error {
	m.assigneeSets = append(m.assigneeSets, assignee)
	return nil
}

func (m *mockIssueStore) SetChallenge(ctx context.Context, id int64, challengeID int64, challengeUUID string, status model.IssueStatus) error {
	m.challengeSets = append(m.challengeSets, challengeID)
	m.statusChanges = append(m.statusChanges, statusChange{ID: id, Status: status})
	return nil
}

// Mock ProjectStore

type mockProjectStore struct {
	getByRepositoryFn func(ctx context.Context, provider model.Provider, repositoryID string) (*model.Project, error)
}

func (m *mockProjectStore) GetByRepository(ctx context.Context, provider model.Provider, repositoryID string) (*model.Project, error) {
	if m.getByRepositoryFn != nil {
		return m.getByRepositoryFn(ctx, provider, repositoryID)
	}
	return &model.Project{
		ID:                1,
		Provider:          provider,
		RepositoryID:      repositoryID,
		TopcoderProjectID: 7,
		CopilotHandle:     "copilot1",
	}, nil
}

func (m *mockProjectStore) GetByID(ctx context.Context, id int64) (*model.Project, error) {
	return nil, store.ErrNotFound
}

// Mock UserMappingStore

type mockUserMappingStore struct {
	getByGitIDFn       func(ctx context.Context, provider model.Provider, gitUserID int64) (*model.UserMapping, error)
	getByGitUsernameFn func(ctx context.Context, provider model.Provider, gitUsername string) (*model.UserMapping, error)
}

func (m *mockUserMappingStore) GetByGitID(ctx context.Context, provider model.Provider, gitUserID int64) (*model.UserMapping, error) {
	if m.getByGitIDFn != nil {
		return m.getByGitIDFn(ctx, provider, gitUserID)
	}
	return nil, store.ErrNotFound
}

func (m *mockUserMappingStore) GetByGitUsername(ctx context.Context, provider model.Provider, gitUsername string) (*model.UserMapping, error) {
	if m.getByGitUsernameFn != nil {
		return m.getByGitUsernameFn(ctx, provider, gitUsername)
	}
	return nil, store.ErrNotFound
}

// Mock git host client and factory

type mockHostClient struct {
	resolveUsernameFn func(ctx context.Context, userID int64) (string, error)
	resolveIDFn       func(ctx context.Context, username string) (int64, error)

	comments   []string
	titles     []string
	assigns    []int64
	unassigns  []int64
	labelSets  [][]string
	stateSets  []githost.IssueState
	failOn     string
	failActual error
}

func (m *mockHostClient) fail(op string) error {
	if m.failOn == op {
		return m.failActual
	}
	return nil
}

func (m *mockHostClient) CreateComment(ctx context.Context, ref githost.IssueRef, text string) error {
	if err := m.fail("comment"); err != nil {
		return err
	}
	m.comments = append(m.comments, text)
	return nil
}

func (m *mockHostClient) UpdateTitle(ctx context.Context, ref githost.IssueRef, title string) error {
	m.titles = append(m.titles, title)
	return nil
}

func (m *mockHostClient) Assign(ctx context.Context, ref githost.IssueRef, userID int64) error {
	m.assigns = append(m.assigns, userID)
	return nil
}

func (m *mockHostClient) Unassign(ctx context.Context, ref githost.IssueRef, userID int64) error {
	m.unassigns = append(m.unassigns, userID)
	return nil
}

func (m *mockHostClient) SetLabels(ctx context.Context, ref githost.IssueRef, labels []string) error {
	m.labelSets = append(m.labelSets, labels)
	return nil
}

func (m *mockHostClient) SetState(ctx context.Context, ref githost.IssueRef, state githost.IssueState) error {
	m.stateSets = append(m.stateSets, state)
	return nil
}

func (m *mockHostClient) ResolveUsernameByID(ctx context.Context, userID int64) (string, error) {
	if m.resolveUsernameFn != nil {
		return m.resolveUsernameFn(ctx, userID)
	}
	return "gituser", nil
}

func (m *mockHostClient) ResolveIDByUsername(ctx context.Context, username string) (int64, error) {
	if m.resolveIDFn != nil {
		return m.resolveIDFn(ctx, username)
	}
	return 777, nil
}

type mockHostFactory struct {
	client *mockHostClient
}

func (m *mockHostFactory) ClientFor(ctx context.Context, provider model.Provider, repositoryID string) (githost.Client, error) {
	return m.client, nil
}

// Mock challenge platform client

type mockPlatform struct {
	createFn           func(ctx context.Context, spec topcoder.ChallengeSpec) (*topcoder.Challenge, error)
	getFn              func(ctx context.Context, challengeID int64) (*topcoder.Challenge, error)
	updateFn           func(ctx context.Context, challengeID int64, patch topcoder.ChallengePatch) error
	closeFn            func(ctx context.Context, challengeID int64, winnerHandle string) error
	isRoleAlreadySetFn func(ctx context.Context, challengeID int64, roleID int) (bool, error)

	created      []topcoder.ChallengeSpec
	updated      []topcoder.ChallengePatch
	activated    []int64
	closed       []string
	cancelled    []int64
	participants map[int][]string
	removed      []string
}

func newMockPlatform() *mockPlatform {
	return &mockPlatform{participants: map[int][]string{}}
}

func (m *mockPlatform) CreateChallenge(ctx context.Context, spec topcoder.ChallengeSpec) (*topcoder.Challenge, error) {
	m.created = append(m.created, spec)
	if m.createFn != nil {
		return m.createFn(ctx, spec)
	}
	return &topcoder.Challenge{ID: 30001, UUID: "uuid-30001", Status: topcoder.StatusDraft}, nil
}

func (m *mockPlatform) UpdateChallenge(ctx context.Context, challengeID int64, patch topcoder.ChallengePatch) error {
	m.updated = append(m.updated, patch)
	if m.updateFn != nil {
		return m.updateFn(ctx, challengeID, patch)
	}
	return nil
}

func (m *mockPlatform) GetChallenge(ctx context.Context, challengeID int64) (*topcoder.Challenge, error) {
	if m.getFn != nil {
		return m.getFn(ctx, challengeID)
	}
	return &topcoder.Challenge{ID: challengeID, Status: topcoder.StatusDraft}, nil
}

func (m *mockPlatform) ActivateChallenge(ctx context.Context, challengeID int64) error {
	m.activated = append(m.activated, challengeID)
	return nil
}

func (m *mockPlatform) CloseChallenge(ctx context.Context, challengeID int64, winnerHandle string) error {
	if m.closeFn != nil {
		return m.closeFn(ctx, challengeID, winnerHandle)
	}
	m.closed = append(m.closed, winnerHandle)
	return nil
}

func (m *mockPlatform) CancelChallenge(ctx context.Context, challengeID int64) error {
	m.cancelled = append(m.cancelled, challengeID)
	return nil
}

func (m *mockPlatform) AddParticipant(ctx context.Context, challengeID int64, handle string, roleID int) error {
	m.participants[roleID] = append(m.participants[roleID], handle)
	return nil
}

func (m *mockPlatform) RemoveParticipant(ctx context.Context, challengeID int64, handle string, roleID int) error {
	m.removed = append(m.removed, handle)
	return nil
}

func (m *mockPlatform) IsRoleAlreadySet(ctx context.Context, challengeID int64, roleID int) (bool, error) {
	if m.isRoleAlreadySetFn != nil {
		return m.isRoleAlreadySetFn(ctx, challengeID, roleID)
	}
	return false, nil
}

func (m *mockPlatform) ResolveUserID(ctx context.Context, handle string) (int64, error) {
	return 12345, nil
}

func (m *mockPlatform) mutated() bool {
	return len(m.created)+len(m.updated)+len(m.activated)+len(m.closed)+len(m.cancelled)+len(m.removed) > 0 ||
		len(m.participants) > 0
}

// Mock lock manager

type mockLease struct {
	released *int
}

func (l *mockLease) Release(ctx context.Context) {
	*l.released++
}

type mockLockManager struct {
	acquireFn func(ctx context.Context, provider model.Provider, repositoryID string, number int) (processor.Lease, error)

	acquired      int
	released      int
	forceReleased int
}

func (m *mockLockManager) Acquire(ctx context.Context, provider model.Provider, repositoryID string, number int) (processor.Lease, error) {
	if m.acquireFn != nil {
		return m.acquireFn(ctx, provider, repositoryID, number)
	}
	m.acquired++
	return &mockLease{released: &m.released}, nil
}

func (m *mockLockManager) ForceRelease(ctx context.Context, provider model.Provider, repositoryID string, number int) error {
	m.forceReleased++
	return nil
}

// Mock delay scheduler

type mockScheduler struct {
	scheduleFn func(ctx context.Context, event model.Event, delay time.Duration) error

	scheduled []model.Event
	delays    []time.Duration
}

func (m *mockScheduler) Schedule(ctx context.Context, event model.Event, delay time.Duration) error {
	m.scheduled = append(m.scheduled, event)
	m.delays = append(m.delays, delay)
	if m.scheduleFn != nil {
		return m.scheduleFn(ctx, event, delay)
	}
	return nil
}
