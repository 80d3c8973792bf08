/*
lifecycle.go - Request lifecycle manager

PURPOSE:
  Owns the create / edit / approve / deny / delete operations on leave
  requests and the balance debit that approval carries.

STATE MACHINE:
  pending  -> approved   approve (debits balance)
  pending  -> denied     deny
  approved -> denied     deny (debit is NOT restored)
  any      -> pending    edit
  any      -> (gone)     delete

  Approve and deny do not look at the prior status. Approving an already
  approved request debits again.

ATOMIC APPROVE:
  The status write and the balance write happen inside one Store.WithTx.
  If either fails, neither is persisted. Contention (ErrConflict) is
  retried up to maxAttempts times and then surfaced as *ConflictError.
  Deny reads and writes the request in its own transaction the same way.

VALIDATION AND WRITES:
  By default create/edit validate against the live store and then write,
  so two concurrent submissions can both pass validation. With
  WithTransactionalValidation(true) the check and the write share one
  transaction.

CHANGE FEED:
  Every successful mutation is handed to the ChangeSink after it is
  persisted. Publish failures are logged and never fail the mutation.

SEE ALSO:
  - validator.go: Overlap rules
  - request.go: Debit and draft normalization
  - events/: Kafka-backed ChangeSink
*/
package leave

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// CHANGE FEED & OBSERVATION HOOKS
// =============================================================================

// ChangeType names a lifecycle mutation.
type ChangeType string

const (
	ChangeCreated  ChangeType = "request.created"
	ChangeEdited   ChangeType = "request.edited"
	ChangeApproved ChangeType = "request.approved"
	ChangeDenied   ChangeType = "request.denied"
	ChangeDeleted  ChangeType = "request.deleted"
)

// Change describes a persisted mutation of a request.
type Change struct {
	Type       ChangeType
	Request    LeaveRequest
	ActorID    string
	OccurredAt time.Time
}

// ChangeSink receives committed changes.
type ChangeSink interface {
	Publish(ctx context.Context, c Change) error
}

// Observer receives operational signals from the manager.
type Observer interface {
	OperationDone(op string, err error, elapsed time.Duration)
	BalanceDebited(t RequestType, amount decimal.Decimal)
}

type nopObserver struct{}

func (nopObserver) OperationDone(string, error, time.Duration)  {}
func (nopObserver) BalanceDebited(RequestType, decimal.Decimal) {}

// =============================================================================
// MANAGER
// =============================================================================

// DefaultMaxAttempts bounds retries of a contended approve or deny.
const DefaultMaxAttempts = 3

// Manager runs the request state machine against a TxStore.
type Manager struct {
	store     TxStore
	validator *Validator
	sink      ChangeSink
	observer  Observer
	logger    *slog.Logger

	now          func() time.Time
	newID        func() string
	txValidation bool
	maxAttempts  int
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithIDGenerator overrides the request id generator.
func WithIDGenerator(fn func() string) Option {
	return func(m *Manager) { m.newID = fn }
}

// WithChangeSink publishes committed changes to sink.
func WithChangeSink(sink ChangeSink) Option {
	return func(m *Manager) { m.sink = sink }
}

// WithObserver reports operation outcomes to o.
func WithObserver(o Observer) Option {
	return func(m *Manager) {
		if o != nil {
			m.observer = o
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithTransactionalValidation runs create/edit validation and the write in
// one transaction.
func WithTransactionalValidation(on bool) Option {
	return func(m *Manager) { m.txValidation = on }
}

// WithMaxAttempts sets how often a contended approve is attempted.
func WithMaxAttempts(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.maxAttempts = n
		}
	}
}

// NewManager creates a Manager over store.
func NewManager(store TxStore, opts ...Option) *Manager {
	m := &Manager{
		store:       store,
		validator:   NewValidator(store),
		observer:    nopObserver{},
		logger:      slog.Default(),
		now:         time.Now,
		newID:       uuid.NewString,
		maxAttempts: DefaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Validator returns the manager's validator.
func (m *Manager) Validator() *Validator { return m.validator }

// =============================================================================
// READS
// =============================================================================

// Get returns the request with the given id.
func (m *Manager) Get(ctx context.Context, id string) (*LeaveRequest, error) {
	r, err := m.store.GetRequest(ctx, id)
	if err != nil {
		return nil, storeErr("get request", err)
	}
	if r == nil {
		return nil, &NotFoundError{Kind: "request", ID: id}
	}
	return r, nil
}

// List returns the requests matching q.
func (m *Manager) List(ctx context.Context, q RequestQuery) ([]LeaveRequest, error) {
	rs, err := m.store.QueryRequests(ctx, q)
	if err != nil {
		return nil, storeErr("query requests", err)
	}
	return rs, nil
}

// Validate checks a draft for employeeID without writing anything.
func (m *Manager) Validate(ctx context.Context, employeeID string, draft RequestDraft, excludeID string) Verdict {
	if err := draft.Check(); err != nil {
		return verdictOf(err)
	}
	return m.validator.Validate(ctx, employeeID, draft.Range(), excludeID)
}

// =============================================================================
// MUTATIONS
// =============================================================================

// Create validates draft and stores it as a new pending request.
func (m *Manager) Create(ctx context.Context, employeeID string, draft RequestDraft) (_ *LeaveRequest, err error) {
	defer m.track("create", time.Now(), &err)

	if err := draft.Check(); err != nil {
		return nil, err
	}
	created := draft.normalized().apply(LeaveRequest{
		ID:         m.newID(),
		EmployeeID: employeeID,
		Status:     StatusPending,
		CreatedAt:  m.now().UTC(),
	})

	err = m.write(ctx, func(s Store) error {
		emp, err := s.GetEmployee(ctx, employeeID)
		if err != nil {
			return storeErr("get employee", err)
		}
		if emp == nil {
			return &NotFoundError{Kind: "employee", ID: employeeID}
		}
		if err := checkOverlap(ctx, s, employeeID, created.Range(), ""); err != nil {
			return err
		}
		return storeErr("save request", s.SaveRequest(ctx, created))
	})
	if err != nil {
		return nil, err
	}

	m.publish(ctx, ChangeCreated, created, employeeID)
	return &created, nil
}

// Edit replaces the editable fields of a request and resets it to pending.
// Balances are left alone, even when the request had been approved.
func (m *Manager) Edit(ctx context.Context, requestID string, draft RequestDraft) (_ *LeaveRequest, err error) {
	defer m.track("edit", time.Now(), &err)

	var updated LeaveRequest
	err = m.write(ctx, func(s Store) error {
		cur, err := s.GetRequest(ctx, requestID)
		if err != nil {
			return storeErr("get request", err)
		}
		if cur == nil {
			return &NotFoundError{Kind: "request", ID: requestID}
		}
		if err := draft.Check(); err != nil {
			return err
		}
		next := draft.normalized()
		if err := checkOverlap(ctx, s, cur.EmployeeID, next.Range(), cur.ID); err != nil {
			return err
		}
		updated = next.apply(*cur)
		updated.Status = StatusPending
		return storeErr("save request", s.SaveRequest(ctx, updated))
	})
	if err != nil {
		return nil, err
	}

	m.publish(ctx, ChangeEdited, updated, updated.EmployeeID)
	return &updated, nil
}

// Approve marks the request approved and debits the matching balance of
// its employee, flooring at zero. Both writes commit together.
func (m *Manager) Approve(ctx context.Context, requestID, approverID string) (_ *LeaveRequest, err error) {
	defer m.track("approve", time.Now(), &err)

	var (
		approved LeaveRequest
		debit    decimal.Decimal
	)
	err = m.retry(ctx, "approve", func() error {
		return m.store.WithTx(ctx, func(s Store) error {
			req, err := s.GetRequest(ctx, requestID)
			if err != nil {
				return storeErr("get request", err)
			}
			if req == nil {
				return &NotFoundError{Kind: "request", ID: requestID}
			}
			emp, err := s.GetEmployee(ctx, req.EmployeeID)
			if err != nil {
				return storeErr("get employee", err)
			}
			if emp == nil {
				return &NotFoundError{Kind: "employee", ID: req.EmployeeID}
			}

			now := m.now().UTC()
			req.Status = StatusApproved
			req.ProcessedBy = approverID
			req.ProcessedAt = &now
			if err := s.SaveRequest(ctx, *req); err != nil {
				return storeErr("save request", err)
			}

			debit = req.Debit()
			balance := ApplyDebit(emp.Balance(req.Type), debit)
			if err := s.SaveEmployee(ctx, emp.WithBalance(req.Type, balance)); err != nil {
				return storeErr("save employee", err)
			}

			approved = *req
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	m.observer.BalanceDebited(approved.Type, debit)
	m.publish(ctx, ChangeApproved, approved, approverID)
	return &approved, nil
}

// Deny marks the request denied. Balances are never touched. The read and
// the status write share one transaction so a concurrent delete or edit is
// not overwritten with a stale row.
func (m *Manager) Deny(ctx context.Context, requestID, approverID string) (_ *LeaveRequest, err error) {
	defer m.track("deny", time.Now(), &err)

	var denied LeaveRequest
	err = m.retry(ctx, "deny", func() error {
		return m.store.WithTx(ctx, func(s Store) error {
			req, err := s.GetRequest(ctx, requestID)
			if err != nil {
				return storeErr("get request", err)
			}
			if req == nil {
				return &NotFoundError{Kind: "request", ID: requestID}
			}
			now := m.now().UTC()
			req.Status = StatusDenied
			req.ProcessedBy = approverID
			req.ProcessedAt = &now
			if err := s.SaveRequest(ctx, *req); err != nil {
				return storeErr("save request", err)
			}
			denied = *req
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	m.publish(ctx, ChangeDenied, denied, approverID)
	return &denied, nil
}

// Delete removes a request in any state.
func (m *Manager) Delete(ctx context.Context, requestID, actorID string) (err error) {
	defer m.track("delete", time.Now(), &err)

	req, err := m.Get(ctx, requestID)
	if err != nil {
		return err
	}
	if err := m.store.DeleteRequest(ctx, requestID); err != nil {
		return storeErr("delete request", err)
	}

	m.publish(ctx, ChangeDeleted, *req, actorID)
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

// write runs fn inside a transaction when transactional validation is on,
// and directly against the store otherwise.
func (m *Manager) write(ctx context.Context, fn func(Store) error) error {
	if m.txValidation {
		return m.store.WithTx(ctx, fn)
	}
	return fn(m.store)
}

func (m *Manager) retry(ctx context.Context, op string, fn func() error) error {
	var (
		err      error
		attempts int
	)
	for attempts < m.maxAttempts {
		attempts++
		err = fn()
		if !IsRetryable(err) {
			return err
		}
		m.logger.Debug("retrying contended write", "op", op, "attempt", attempts, "error", err)
		if ctx.Err() != nil {
			break
		}
	}
	return &ConflictError{Op: op, Attempts: attempts, Err: err}
}

func (m *Manager) publish(ctx context.Context, t ChangeType, r LeaveRequest, actorID string) {
	if m.sink == nil {
		return
	}
	c := Change{Type: t, Request: r, ActorID: actorID, OccurredAt: m.now().UTC()}
	if err := m.sink.Publish(ctx, c); err != nil {
		m.logger.Warn("publish change failed",
			"change", string(t), "request_id", r.ID, "error", err)
	}
}

func (m *Manager) track(op string, start time.Time, err *error) {
	m.observer.OperationDone(op, *err, time.Since(start))
}
