// Package repotest provides an in-memory repository.Store for tests.
//
// MemStore mirrors the observable behavior of the SQL queries: orderings,
// the no-op semantics of counter updates, and the silent skip of
// notifications for unknown recipients. ExecTx serializes transactions and
// restores a snapshot when the callback fails, so rollback is observable.
package repotest

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/civicpulse/civicpulse/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// MemStore is an in-memory repository.Store.
type MemStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	users         map[uuid.UUID]repository.User
	categories    map[int32]repository.ComplaintCategory
	complaints    map[uuid.UUID]repository.Complaint
	history       []repository.ComplaintHistory
	notifications []repository.Notification
	jobs          []repository.Job

	nextHistoryID int64
	failures      map[string]error

	// Now returns the current time; tests may replace it.
	Now func() time.Time
}

// NewMemStore creates an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{
		users:      make(map[uuid.UUID]repository.User),
		categories: make(map[int32]repository.ComplaintCategory),
		complaints: make(map[uuid.UUID]repository.Complaint),
		failures:   make(map[string]error),
		Now:        time.Now,
	}
}

var _ repository.Store = (*MemStore)(nil)

// FailOn makes every later call to method return err. A nil err clears it.
func (s *MemStore) FailOn(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, method)
		return
	}
	s.failures[method] = err
}

func (s *MemStore) fail(method string) error {
	return s.failures[method]
}

// =============================================================================
// Seeding and inspection
// =============================================================================

// AddUser stores u, filling in an id and timestamps when missing.
func (s *MemStore) AddUser(u repository.User) repository.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.Now()
		u.UpdatedAt = u.CreatedAt
	}
	s.users[u.ID] = u
	return u
}

// AddCategory stores a category.
func (s *MemStore) AddCategory(id int32, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories[id] = repository.ComplaintCategory{ID: id, Name: name, CreatedAt: s.Now()}
}

// AddComplaint stores c as is.
func (s *MemStore) AddComplaint(c repository.Complaint) repository.Complaint {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.Now()
		c.UpdatedAt = c.CreatedAt
	}
	s.complaints[c.ID] = c
	return c
}

// User returns the stored user.
func (s *MemStore) User(id uuid.UUID) repository.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[id]
}

// Complaint returns the stored complaint.
func (s *MemStore) Complaint(id uuid.UUID) (repository.Complaint, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.complaints[id]
	return c, ok
}

// ComplaintCount returns the number of stored complaints.
func (s *MemStore) ComplaintCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.complaints)
}

// History returns every audit entry in insertion order.
func (s *MemStore) History() []repository.ComplaintHistory {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]repository.ComplaintHistory(nil), s.history...)
}

// Notifications returns every notification in insertion order.
func (s *MemStore) Notifications() []repository.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]repository.Notification(nil), s.notifications...)
}

// Jobs returns every job in insertion order.
func (s *MemStore) Jobs() []repository.Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]repository.Job(nil), s.jobs...)
}

// =============================================================================
// Transactions
// =============================================================================

type snapshot struct {
	users         map[uuid.UUID]repository.User
	complaints    map[uuid.UUID]repository.Complaint
	history       []repository.ComplaintHistory
	notifications []repository.Notification
	jobs          []repository.Job
	nextHistoryID int64
}

func (s *MemStore) snapshot() snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := snapshot{
		users:         make(map[uuid.UUID]repository.User, len(s.users)),
		complaints:    make(map[uuid.UUID]repository.Complaint, len(s.complaints)),
		history:       append([]repository.ComplaintHistory(nil), s.history...),
		notifications: append([]repository.Notification(nil), s.notifications...),
		jobs:          append([]repository.Job(nil), s.jobs...),
		nextHistoryID: s.nextHistoryID,
	}
	for k, v := range s.users {
		snap.users[k] = v
	}
	for k, v := range s.complaints {
		snap.complaints[k] = v
	}
	return snap
}

func (s *MemStore) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = snap.users
	s.complaints = snap.complaints
	s.history = snap.history
	s.notifications = snap.notifications
	s.jobs = snap.jobs
	s.nextHistoryID = snap.nextHistoryID
}

// ExecTx runs fn with the store as its querier. Transactions are serialized;
// a failing fn or an injected "Commit" failure restores the prior state.
func (s *MemStore) ExecTx(ctx context.Context, fn func(repository.Querier) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	snap := s.snapshot()
	if err := fn(s); err != nil {
		s.restore(snap)
		return err
	}

	s.mu.Lock()
	commitErr := s.fail("Commit")
	s.mu.Unlock()
	if commitErr != nil {
		s.restore(snap)
		return commitErr
	}
	return nil
}

// =============================================================================
// Users
// =============================================================================

func (s *MemStore) CreateUser(ctx context.Context, arg repository.CreateUserParams) (repository.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("CreateUser"); err != nil {
		return repository.User{}, err
	}
	for _, u := range s.users {
		if strings.EqualFold(u.Email, arg.Email) {
			return repository.User{}, &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}
		}
	}
	now := s.Now()
	u := repository.User{
		ID:           uuid.New(),
		Name:         arg.Name,
		Email:        strings.ToLower(arg.Email),
		PasswordHash: arg.PasswordHash,
		PhoneNumber:  arg.PhoneNumber,
		Role:         arg.Role,
		Department:   arg.Department,
		WardNumber:   arg.WardNumber,
		Enabled:      arg.Enabled,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.users[u.ID] = u
	return u, nil
}

func (s *MemStore) GetUserByID(ctx context.Context, id uuid.UUID) (repository.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("GetUserByID"); err != nil {
		return repository.User{}, err
	}
	u, ok := s.users[id]
	if !ok {
		return repository.User{}, sql.ErrNoRows
	}
	return u, nil
}

func (s *MemStore) GetUserByIDForUpdate(ctx context.Context, id uuid.UUID) (repository.User, error) {
	return s.GetUserByID(ctx, id)
}

func (s *MemStore) GetUserByEmail(ctx context.Context, email string) (repository.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == strings.ToLower(email) {
			return u, nil
		}
	}
	return repository.User{}, sql.ErrNoRows
}

func (s *MemStore) listUsers(match func(repository.User) bool, byCreated bool) []repository.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []repository.User
	for _, u := range s.users {
		if match(u) {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if byCreated {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func (s *MemStore) ListUsersByRole(ctx context.Context, role string) ([]repository.User, error) {
	return s.listUsers(func(u repository.User) bool { return u.Role == role }, false), nil
}

func (s *MemStore) ListEnabledUsersByRole(ctx context.Context, role string) ([]repository.User, error) {
	s.mu.Lock()
	err := s.fail("ListEnabledUsersByRole")
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s.listUsers(func(u repository.User) bool { return u.Role == role && u.Enabled }, false), nil
}

func (s *MemStore) ListPendingOfficers(ctx context.Context) ([]repository.User, error) {
	return s.listUsers(func(u repository.User) bool { return u.Role == "OFFICER" && !u.Enabled }, true), nil
}

func (s *MemStore) EnableUser(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		u.Enabled = true
		u.UpdatedAt = s.Now()
		s.users[id] = u
	}
	return nil
}

func (s *MemStore) UpdateUserPassword(ctx context.Context, arg repository.UpdateUserPasswordParams) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("UpdateUserPassword"); err != nil {
		return 0, err
	}
	for id, u := range s.users {
		if strings.EqualFold(u.Email, arg.Email) {
			u.PasswordHash = arg.PasswordHash
			u.UpdatedAt = s.Now()
			s.users[id] = u
			return 1, nil
		}
	}
	return 0, nil
}

func (s *MemStore) IncrementTicketsResolved(ctx context.Context, id uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("IncrementTicketsResolved"); err != nil {
		return 0, err
	}
	u, ok := s.users[id]
	if !ok {
		return 0, nil
	}
	u.TicketsResolved++
	s.users[id] = u
	return 1, nil
}

func (s *MemStore) IncrementTicketsReopened(ctx context.Context, id uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("IncrementTicketsReopened"); err != nil {
		return 0, err
	}
	u, ok := s.users[id]
	if !ok {
		return 0, nil
	}
	u.TicketsReopened++
	s.users[id] = u
	return 1, nil
}

// =============================================================================
// Categories
// =============================================================================

func (s *MemStore) GetCategoryByID(ctx context.Context, id int32) (repository.ComplaintCategory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.categories[id]
	if !ok {
		return repository.ComplaintCategory{}, sql.ErrNoRows
	}
	return c, nil
}

func (s *MemStore) ListCategories(ctx context.Context) ([]repository.ComplaintCategory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]repository.ComplaintCategory, 0, len(s.categories))
	for _, c := range s.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// =============================================================================
// Complaints
// =============================================================================

func (s *MemStore) CreateComplaint(ctx context.Context, arg repository.CreateComplaintParams) (repository.Complaint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("CreateComplaint"); err != nil {
		return repository.Complaint{}, err
	}
	c := repository.Complaint{
		ID:          arg.ID,
		UserID:      arg.UserID,
		CategoryID:  arg.CategoryID,
		Title:       arg.Title,
		Description: arg.Description,
		ImageUrl:    arg.ImageUrl,
		Location:    arg.Location,
		Latitude:    arg.Latitude,
		Longitude:   arg.Longitude,
		Status:      arg.Status,
		Priority:    arg.Priority,
		CreatedAt:   arg.CreatedAt,
		UpdatedAt:   arg.CreatedAt,
	}
	s.complaints[c.ID] = c
	return c, nil
}

func (s *MemStore) GetComplaintByID(ctx context.Context, id uuid.UUID) (repository.Complaint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.complaints[id]
	if !ok {
		return repository.Complaint{}, sql.ErrNoRows
	}
	return c, nil
}

func (s *MemStore) GetComplaintByIDForUpdate(ctx context.Context, id uuid.UUID) (repository.Complaint, error) {
	return s.GetComplaintByID(ctx, id)
}

func (s *MemStore) UpdateComplaintState(ctx context.Context, arg repository.UpdateComplaintStateParams) (repository.Complaint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("UpdateComplaintState"); err != nil {
		return repository.Complaint{}, err
	}
	c, ok := s.complaints[arg.ID]
	if !ok {
		return repository.Complaint{}, sql.ErrNoRows
	}
	c.AssignedTo = arg.AssignedTo
	c.Status = arg.Status
	c.Priority = arg.Priority
	c.AdminComment = arg.AdminComment
	c.MaterialsUsed = arg.MaterialsUsed
	c.ResolutionProofUrl = arg.ResolutionProofUrl
	c.ResolvedLatitude = arg.ResolvedLatitude
	c.ResolvedLongitude = arg.ResolvedLongitude
	c.CitizenRating = arg.CitizenRating
	c.CitizenFeedback = arg.CitizenFeedback
	c.AssignedAt = arg.AssignedAt
	c.UpdatedAt = arg.UpdatedAt
	s.complaints[c.ID] = c
	return c, nil
}

func (s *MemStore) ListComplaints(ctx context.Context, arg repository.ListComplaintsParams) ([]repository.ListComplaintsRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	statuses := make(map[string]bool, len(arg.Statuses))
	for _, st := range arg.Statuses {
		statuses[st] = true
	}

	var out []repository.ListComplaintsRow
	for _, c := range s.complaints {
		if arg.ReporterID.Valid && c.UserID != arg.ReporterID.UUID {
			continue
		}
		if arg.AssigneeID.Valid && (!c.AssignedTo.Valid || c.AssignedTo.UUID != arg.AssigneeID.UUID) {
			continue
		}
		if len(statuses) > 0 && !statuses[c.Status] {
			continue
		}
		row := repository.ListComplaintsRow{
			Complaint:    c,
			CategoryName: s.categories[c.CategoryID].Name,
			ReporterName: s.users[c.UserID].Name,
		}
		if c.AssignedTo.Valid {
			if u, ok := s.users[c.AssignedTo.UUID]; ok {
				row.AssigneeName = sql.NullString{String: u.Name, Valid: true}
			}
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemStore) CountComplaintsByStatus(ctx context.Context) ([]repository.CountComplaintsByStatusRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(map[string]int64)
	for _, c := range s.complaints {
		counts[c.Status]++
	}
	out := make([]repository.CountComplaintsByStatusRow, 0, len(counts))
	for st, n := range counts {
		out = append(out, repository.CountComplaintsByStatusRow{Status: st, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Status < out[j].Status })
	return out, nil
}

// =============================================================================
// History
// =============================================================================

func (s *MemStore) CreateComplaintHistory(ctx context.Context, arg repository.CreateComplaintHistoryParams) (repository.ComplaintHistory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("CreateComplaintHistory"); err != nil {
		return repository.ComplaintHistory{}, err
	}
	createdAt := s.Now()
	for _, h := range s.history {
		if h.ComplaintID == arg.ComplaintID && h.CreatedAt.After(createdAt) {
			createdAt = h.CreatedAt
		}
	}
	s.nextHistoryID++
	h := repository.ComplaintHistory{
		ID:             s.nextHistoryID,
		ComplaintID:    arg.ComplaintID,
		ActionByUserID: arg.ActionByUserID,
		ActionType:     arg.ActionType,
		Details:        arg.Details,
		CreatedAt:      createdAt,
	}
	s.history = append(s.history, h)
	return h, nil
}

func (s *MemStore) ListComplaintHistory(ctx context.Context, complaintID uuid.UUID) ([]repository.ListComplaintHistoryRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []repository.ListComplaintHistoryRow
	for _, h := range s.history {
		if h.ComplaintID != complaintID {
			continue
		}
		row := repository.ListComplaintHistoryRow{ComplaintHistory: h}
		if h.ActionByUserID.Valid {
			if u, ok := s.users[h.ActionByUserID.UUID]; ok {
				row.ActorName = sql.NullString{String: u.Name, Valid: true}
			}
		}
		out = append(out, row)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

// =============================================================================
// Notifications
// =============================================================================

func (s *MemStore) CreateNotification(ctx context.Context, arg repository.CreateNotificationParams) (repository.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("CreateNotification"); err != nil {
		return repository.Notification{}, err
	}
	if _, ok := s.users[arg.UserID]; !ok {
		return repository.Notification{}, sql.ErrNoRows
	}
	n := repository.Notification{
		ID:                 uuid.New(),
		UserID:             arg.UserID,
		Message:            arg.Message,
		Type:               arg.Type,
		RelatedComplaintID: arg.RelatedComplaintID,
		CreatedAt:          s.Now(),
	}
	s.notifications = append(s.notifications, n)
	return n, nil
}

func (s *MemStore) ListNotificationsByUser(ctx context.Context, userID uuid.UUID) ([]repository.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []repository.Notification
	for i := len(s.notifications) - 1; i >= 0; i-- {
		if s.notifications[i].UserID == userID {
			out = append(out, s.notifications[i])
		}
	}
	return out, nil
}

func (s *MemStore) CountUnreadNotifications(ctx context.Context, userID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, note := range s.notifications {
		if note.UserID == userID && !note.IsRead {
			n++
		}
	}
	return n, nil
}

func (s *MemStore) MarkNotificationRead(ctx context.Context, arg repository.MarkNotificationReadParams) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, note := range s.notifications {
		if note.ID == arg.ID && note.UserID == arg.UserID {
			s.notifications[i].IsRead = true
			return 1, nil
		}
	}
	return 0, nil
}

func (s *MemStore) MarkAllNotificationsRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for i, note := range s.notifications {
		if note.UserID == userID && !note.IsRead {
			s.notifications[i].IsRead = true
			n++
		}
	}
	return n, nil
}

// =============================================================================
// Jobs
// =============================================================================

func (s *MemStore) EnqueueJob(ctx context.Context, arg repository.EnqueueJobParams) (repository.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("EnqueueJob"); err != nil {
		return repository.Job{}, err
	}
	j := repository.Job{
		ID:          uuid.New(),
		JobType:     arg.JobType,
		Payload:     arg.Payload,
		Status:      "pending",
		Priority:    arg.Priority,
		MaxAttempts: arg.MaxAttempts,
		ScheduledAt: arg.ScheduledAt,
		CreatedAt:   s.Now(),
	}
	s.jobs = append(s.jobs, j)
	return j, nil
}

func (s *MemStore) DequeueJob(ctx context.Context) (repository.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.Now()
	best := -1
	for i, j := range s.jobs {
		if j.Status != "pending" || j.ScheduledAt.After(now) {
			continue
		}
		if best < 0 || j.Priority > s.jobs[best].Priority ||
			(j.Priority == s.jobs[best].Priority && j.ScheduledAt.Before(s.jobs[best].ScheduledAt)) {
			best = i
		}
	}
	if best < 0 {
		return repository.Job{}, sql.ErrNoRows
	}
	return s.jobs[best], nil
}

func (s *MemStore) updateJob(id uuid.UUID, fn func(*repository.Job)) {
	for i := range s.jobs {
		if s.jobs[i].ID == id {
			fn(&s.jobs[i])
			return
		}
	}
}

func (s *MemStore) UpdateJobStarted(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.Now()
	s.updateJob(id, func(j *repository.Job) {
		j.Status = "running"
		j.StartedAt = sql.NullTime{Time: now, Valid: true}
		j.Attempts++
	})
	return nil
}

func (s *MemStore) UpdateJobCompleted(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.Now()
	s.updateJob(id, func(j *repository.Job) {
		j.Status = "completed"
		j.CompletedAt = sql.NullTime{Time: now, Valid: true}
		j.ErrorMessage = sql.NullString{}
	})
	return nil
}

func (s *MemStore) UpdateJobFailed(ctx context.Context, arg repository.UpdateJobFailedParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.Now()
	s.updateJob(arg.ID, func(j *repository.Job) {
		j.ErrorMessage = arg.ErrorMessage
		if arg.Permanent || j.Attempts >= j.MaxAttempts {
			j.Status = "failed"
			j.CompletedAt = sql.NullTime{Time: now, Valid: true}
			return
		}
		j.Status = "pending"
		backoff := 30 * time.Second
		for k := int32(1); k < j.Attempts; k++ {
			backoff *= 2
		}
		j.ScheduledAt = now.Add(backoff)
	})
	return nil
}

func (s *MemStore) RecoverStaleJobs(ctx context.Context, thresholdSeconds float64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.Now().Add(-time.Duration(thresholdSeconds * float64(time.Second)))
	var n int64
	for i, j := range s.jobs {
		if j.Status == "running" && j.StartedAt.Valid && j.StartedAt.Time.Before(cutoff) {
			s.jobs[i].Status = "pending"
			s.jobs[i].StartedAt = sql.NullTime{}
			n++
		}
	}
	return n, nil
}

func (s *MemStore) DeleteFinishedJobsBefore(ctx context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.jobs[:0]
	var n int64
	for _, j := range s.jobs {
		if (j.Status == "completed" || j.Status == "failed") && j.CompletedAt.Valid && j.CompletedAt.Time.Before(before) {
			n++
			continue
		}
		kept = append(kept, j)
	}
	s.jobs = kept
	return n, nil
}

func (s *MemStore) CountJobsByStatus(ctx context.Context) ([]repository.CountJobsByStatusRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(map[string]int64)
	for _, j := range s.jobs {
		counts[j.Status]++
	}
	out := make([]repository.CountJobsByStatusRow, 0, len(counts))
	for st, n := range counts {
		out = append(out, repository.CountJobsByStatusRow{Status: st, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Status < out[j].Status })
	return out, nil
}
