package remote

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/roach88/signflow/internal/identity"
	"github.com/roach88/signflow/internal/model"
)

// Memory is an in-process Service. It assigns server ids from a single
// counter in payload order, which keeps scenario output deterministic.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type Memory struct {
	mu         sync.Mutex
	agreements map[string]*memAgreement
	nextID     model.ServerID
	calls      map[string]int
	failNext   map[string]error
}

type memAgreement struct {
	agreement Agreement
	signerIDs map[model.UID]model.ServerID
	fieldIDs  map[model.UID]model.ServerID
}

// NewMemory creates an empty service.
func NewMemory() *Memory {
	return &Memory{
		agreements: make(map[string]*memAgreement),
		calls:      make(map[string]int),
		failNext:   make(map[string]error),
	}
}

var _ Service = (*Memory)(nil)

// Seed stores an agreement as if it had been persisted earlier. Rows without
// a server id receive one; rows keep whatever uid they carry, including none.
func (m *Memory) Seed(a Agreement) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ma := &memAgreement{
		agreement: Agreement{Metadata: a.Metadata, PageCount: max(1, a.PageCount)},
		signerIDs: make(map[model.UID]model.ServerID),
		fieldIDs:  make(map[model.UID]model.ServerID),
	}
	for _, s := range a.Signers {
		if !s.ServerID.Acknowledged() {
			s.ServerID = m.assign()
		}
		if s.UID != "" {
			ma.signerIDs[s.UID] = s.ServerID
		}
		ma.agreement.Signers = append(ma.agreement.Signers, s)
	}
	for _, f := range a.InputFields {
		if !f.ServerID.Acknowledged() {
			f.ServerID = m.assign()
		}
		if f.UID != "" {
			ma.fieldIDs[f.UID] = f.ServerID
		}
		ma.agreement.InputFields = append(ma.agreement.InputFields, f)
	}
	m.agreements[a.Metadata.ID] = ma
}

// Agreement returns a copy of the stored agreement.
func (m *Memory) Agreement(id string) (Agreement, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ma, ok := m.agreements[id]
	if !ok {
		return Agreement{}, false
	}
	return ma.copy(), true
}

// Calls returns how many times method was invoked, including failed calls.
func (m *Memory) Calls(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

// TotalCalls returns the number of calls across all methods.
func (m *Memory) TotalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		n += c
	}
	return n
}

// FailNext makes the next call to method fail with err.
func (m *Memory) FailNext(method string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext[method] = err
}

// GetAgreement implements Service.
func (m *Memory) GetAgreement(ctx context.Context, id string) (*Agreement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ma, err := m.enter(ctx, MethodGetAgreement, id)
	if err != nil {
		return nil, err
	}
	a := ma.copy()
	return &a, nil
}

// SyncSigners implements Service.
func (m *Memory) SyncSigners(ctx context.Context, id string, signers []model.Signer) (identity.IDMap, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ma, err := m.enter(ctx, MethodSyncSigners, id)
	if err != nil {
		return nil, err
	}

	ids := make(identity.IDMap, len(signers))
	kept := make(map[model.UID]model.ServerID, len(signers))
	stored := make([]model.Signer, 0, len(signers))
	for _, s := range signers {
		sid := m.idFor(ma.signerIDs, s.UID)
		kept[s.UID] = sid
		ids[s.UID] = sid
		s.ServerID = sid
		stored = append(stored, s)
	}
	ma.signerIDs = kept
	ma.agreement.Signers = stored
	return ids, nil
}

// SyncInputFields implements Service.
func (m *Memory) SyncInputFields(ctx context.Context, id string, fields []model.FieldPlacement) (identity.IDMap, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ma, err := m.enter(ctx, MethodSyncInputFields, id)
	if err != nil {
		return nil, err
	}

	ids := make(identity.IDMap, len(fields))
	kept := make(map[model.UID]model.ServerID, len(fields))
	stored := make([]model.FieldPlacement, 0, len(fields))
	for _, f := range fields {
		if f.Page < 1 || f.Page > ma.agreement.PageCount {
			return nil, fmt.Errorf("field %s: page %d out of range", f.UID, f.Page)
		}
		fid := m.idFor(ma.fieldIDs, f.UID)
		kept[f.UID] = fid
		ids[f.UID] = fid
		f.ServerID = fid
		stored = append(stored, f)
	}
	ma.fieldIDs = kept
	ma.agreement.InputFields = stored
	return ids, nil
}

// UpdateAgreementTitle implements Service.
func (m *Memory) UpdateAgreementTitle(ctx context.Context, id string, title string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ma, err := m.enter(ctx, MethodUpdateTitle, id)
	if err != nil {
		return err
	}
	ma.agreement.Metadata.Title = title
	return nil
}

// UpdateAgreementDateSequence implements Service.
func (m *Memory) UpdateAgreementDateSequence(ctx context.Context, id string, dates model.DateSequence) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ma, err := m.enter(ctx, MethodUpdateDates, id)
	if err != nil {
		return err
	}
	ma.agreement.Metadata.Dates = dates
	return nil
}

// enter counts the call, applies injected failures and looks up the
// agreement. Callers hold m.mu.
func (m *Memory) enter(ctx context.Context, method, id string) (*memAgreement, error) {
	m.calls[method]++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := m.failNext[method]; ok {
		delete(m.failNext, method)
		return nil, err
	}
	ma, ok := m.agreements[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return ma, nil
}

func (m *Memory) idFor(known map[model.UID]model.ServerID, uid model.UID) model.ServerID {
	if id, ok := known[uid]; ok {
		return id
	}
	return m.assign()
}

func (m *Memory) assign() model.ServerID {
	m.nextID++
	return m.nextID
}

func (ma *memAgreement) copy() Agreement {
	a := ma.agreement
	a.Signers = slices.Clone(a.Signers)
	a.InputFields = slices.Clone(a.InputFields)
	return a
}
