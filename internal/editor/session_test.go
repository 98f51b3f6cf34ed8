package editor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/signflow/internal/model"
	"github.com/roach88/signflow/internal/placement"
	"github.com/roach88/signflow/internal/remote"
	"github.com/roach88/signflow/internal/reorder"
	"github.com/roach88/signflow/internal/syncer"
	"github.com/roach88/signflow/internal/testutil"
)

const agreementID = "agr-1"

type fixture struct {
	t       *testing.T
	ctx     context.Context
	svc     *remote.Memory
	clock   *testutil.ManualClock
	s       *Session
	notices []Notice
}

func seedABC(pages int) *remote.Memory {
	m := remote.NewMemory()
	m.Seed(remote.Agreement{
		Metadata:  model.Metadata{ID: agreementID, Title: "Lease"},
		PageCount: pages,
		Signers: []model.Signer{
			{UID: "s-a", Step: 1, Role: model.RoleSigner, Name: "A", Email: "a@example.com"},
			{UID: "s-b", Step: 2, Role: model.RoleSigner, Name: "B", Email: "b@example.com"},
			{UID: "s-c", Step: 3, Role: model.RoleSigner, Name: "C", Email: "c@example.com"},
		},
	})
	return m
}

func newFixture(t *testing.T, svc *remote.Memory, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{t: t, ctx: context.Background(), svc: svc, clock: testutil.NewManualClock(time.Time{})}
	base := []Option{
		WithClock(f.clock),
		WithDebounce(time.Second),
		WithUIDGenerator(testutil.NewSequentialUIDs("u")),
		WithLauncher(testutil.Inline),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithNotifier(func(n Notice) { f.notices = append(f.notices, n) }),
	}
	s, err := Open(f.ctx, svc, agreementID, nil, append(base, opts...)...)
	require.NoError(t, err)
	f.s = s
	return f
}

func (f *fixture) apply(a Action) Outcome {
	f.t.Helper()
	out, err := f.s.Apply(f.ctx, a)
	require.NoError(f.t, err)
	return out
}

func (f *fixture) advance(d time.Duration) {
	f.clock.Advance(d)
	f.s.Drain(f.ctx)
}

func names(signers []model.Signer) []string {
	out := make([]string, len(signers))
	for i, s := range signers {
		out[i] = s.Name
	}
	return out
}

func steps(signers []model.Signer) []int {
	out := make([]int, len(signers))
	for i, s := range signers {
		out[i] = s.Step
	}
	return out
}

func TestOpen_LoadDoesNotSync(t *testing.T) {
	f := newFixture(t, seedABC(1))

	f.advance(time.Minute)

	assert.Equal(t, 1, f.svc.TotalCalls(), "only the initial load")
	assert.Equal(t, 1, f.svc.Calls(remote.MethodGetAgreement))
	for _, name := range syncer.Streams {
		assert.Equal(t, syncer.StateArmed, f.s.StreamState(name), name)
	}
	assert.Equal(t, []string{"A", "B", "C"}, names(f.s.Signers()))
	assert.Equal(t, []int{1, 2, 3}, steps(f.s.Signers()))
	assert.Equal(t, int64(0), f.s.Revision())
}

func TestOpen_NotFound(t *testing.T) {
	var notices []Notice
	_, err := Open(context.Background(), remote.NewMemory(), "missing", nil,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithNotifier(func(n Notice) { notices = append(notices, n) }),
	)

	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.ErrorIs(t, err, remote.ErrNotFound)
	require.Len(t, notices, 1)
	assert.Equal(t, NoticeNotFound, notices[0].Kind)
	assert.Equal(t, 3*time.Second, notices[0].RedirectAfter)
}

func TestOpen_NetworkError(t *testing.T) {
	m := seedABC(1)
	m.FailNext(remote.MethodGetAgreement, errors.New("offline"))
	_, err := Open(context.Background(), m, agreementID, nil, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	assert.True(t, IsNetwork(err))
}

func TestOpen_RestoresRowsWithoutUIDs(t *testing.T) {
	m := remote.NewMemory()
	m.Seed(remote.Agreement{
		Metadata:  model.Metadata{ID: agreementID},
		PageCount: 2,
		Signers: []model.Signer{
			{Step: 2, Name: "Second", Email: "2@example.com"},
			{Step: 1, Name: "First", Email: "1@example.com"},
		},
		InputFields: []model.FieldPlacement{
			{Type: model.FieldDate, Page: 2, X: 5, Y: 5},
			{UID: "bad", Type: model.FieldDate, Page: 9},
		},
	})
	f := newFixture(t, m, WithUIDGenerator(NewFixedGenerator("g-1", "g-2", "g-3")))

	signers := f.s.Signers()
	assert.Equal(t, []string{"First", "Second"}, names(signers))
	assert.Equal(t, model.UID("g-1"), signers[0].UID, "uids follow load order")
	assert.Equal(t, model.Palette[0], signers[0].ColorTag)
	assert.True(t, signers[0].ServerID.Acknowledged())

	fields := f.s.Fields()
	require.Len(t, fields, 1, "field on a missing page is dropped")
	assert.Equal(t, model.UID("g-3"), fields[0].UID)
}

func TestOpen_DocumentPageCount(t *testing.T) {
	f := newFixture(t, seedABC(1))
	assert.Equal(t, 1, f.s.Snapshot().PageCount)

	s, err := Open(context.Background(), seedABC(1), agreementID, Pages(4),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)
	assert.Equal(t, 4, s.Snapshot().PageCount)
}

func TestSession_DragFirstToLastThenConfirm(t *testing.T) {
	f := newFixture(t, seedABC(1))

	f.apply(BeginReorder{UID: "s-a"})
	out := f.apply(DragReorder{DeltaY: 2 * reorder.DefaultRowHeight})
	require.Len(t, out.Transforms, 3)
	assert.True(t, out.Transforms[0].Active)

	// The live order reflows but the committed order is untouched.
	assert.Equal(t, []string{"A", "B", "C"}, names(f.s.Signers()))

	out = f.apply(EndReorder{})
	assert.True(t, out.Changed)
	assert.Equal(t, []string{"B", "C", "A"}, names(f.s.Signers()))
	assert.Equal(t, []int{1, 2, 3}, steps(f.s.Signers()))
	assert.Equal(t, syncer.StatePending, f.s.StreamState(syncer.StreamSigners))

	out = f.apply(Confirm{})
	assert.Equal(t, []string{"B", "C", "A"}, names(out.Confirmed))
	assert.Equal(t, []int{1, 2, 3}, steps(out.Confirmed))

	f.advance(time.Minute)
	assert.Equal(t, 1, f.svc.Calls(remote.MethodSyncSigners), "confirm flushes once, the debounce timer is cancelled")

	stored, _ := f.svc.Agreement(agreementID)
	assert.Equal(t, []string{"B", "C", "A"}, names(stored.Signers))
	assert.Equal(t, []int{1, 2, 3}, steps(stored.Signers))
	assert.Equal(t, syncer.StateArmed, f.s.StreamState(syncer.StreamSigners))
}

func TestSession_CancelReorderKeepsOrder(t *testing.T) {
	f := newFixture(t, seedABC(1))

	f.apply(BeginReorder{UID: "s-c"})
	f.apply(DragReorder{DeltaY: -200})
	f.apply(CancelReorder{})

	assert.Equal(t, []string{"A", "B", "C"}, names(f.s.Signers()))
	assert.Equal(t, syncer.StateArmed, f.s.StreamState(syncer.StreamSigners))
	assert.Equal(t, int64(0), f.s.Revision())
}

func TestSession_MoveSigner(t *testing.T) {
	f := newFixture(t, seedABC(1))

	out := f.apply(MoveSigner{UID: "s-c", Position: 1})
	assert.True(t, out.Changed)
	assert.Equal(t, 1, out.Signer.Step)
	assert.Equal(t, []string{"C", "A", "B"}, names(f.s.Signers()))

	out = f.apply(MoveSigner{UID: "s-c", Position: 1})
	assert.False(t, out.Changed, "moving to the current position is a no-op")

	_, err := f.s.Apply(f.ctx, MoveSigner{UID: "s-c", Position: 4})
	assert.True(t, IsInvalidAction(err))
	assert.ErrorIs(t, err, reorder.ErrOutOfRange)
}

func TestSession_EditsAreDebounced(t *testing.T) {
	f := newFixture(t, seedABC(1))

	out := f.apply(AddSigner{Name: "Dee", Email: "dee@example.com"})
	require.NotNil(t, out.Signer)
	assert.Equal(t, model.UID("u-1"), out.Signer.UID)
	assert.Equal(t, 4, out.Signer.Step)
	assert.False(t, out.Signer.ServerID.Acknowledged())

	f.advance(500 * time.Millisecond)
	f.apply(AddSigner{Name: "Eve", Email: "eve@example.com"})
	f.advance(999 * time.Millisecond)
	assert.Equal(t, 0, f.svc.Calls(remote.MethodSyncSigners))

	f.advance(time.Millisecond)
	assert.Equal(t, 1, f.svc.Calls(remote.MethodSyncSigners))

	snap := f.s.Snapshot()
	assert.Empty(t, snap.Pending)
	assert.Equal(t, model.ServerID(4), snap.Signers[3].ServerID)
	assert.Equal(t, model.ServerID(5), snap.Signers[4].ServerID)
	assert.Equal(t, "ARMED", snap.Streams[syncer.StreamSigners].State)
	assert.Equal(t, 1, snap.Streams[syncer.StreamSigners].Saved)
	assert.Equal(t, NoticeSaved, f.notices[len(f.notices)-1].Kind)
}

func TestSession_ReconciliationIsNotAnEdit(t *testing.T) {
	f := newFixture(t, seedABC(1))
	f.apply(AddSigner{Name: "Dee", Email: "dee@example.com"})
	rev := f.s.Revision()

	f.advance(time.Second)
	f.advance(time.Minute)

	assert.Equal(t, 1, f.svc.Calls(remote.MethodSyncSigners))
	assert.Equal(t, rev, f.s.Revision())
	assert.Equal(t, syncer.StateArmed, f.s.StreamState(syncer.StreamSigners))
}

func TestSession_EditsDuringSyncAreCaptured(t *testing.T) {
	var launcher testutil.HeldLauncher
	f := newFixture(t, seedABC(1), WithLauncher(launcher.Launch))

	out := f.apply(AddSigner{Name: "Dee", Email: "dee@example.com"})
	uid := out.Signer.UID
	f.advance(time.Second)
	require.Equal(t, 1, launcher.Held())
	assert.Equal(t, syncer.StateSyncing, f.s.StreamState(syncer.StreamSigners))

	name := "Deirdre"
	f.apply(UpdateSigner{UID: uid, Name: &name})
	assert.True(t, f.s.Snapshot().Streams[syncer.StreamSigners].Dirty)

	launcher.Release()
	f.s.Drain(f.ctx)
	assert.Equal(t, syncer.StatePending, f.s.StreamState(syncer.StreamSigners), "dirty stream re-arms after reconcile")

	sg := f.s.Signers()[3]
	assert.Equal(t, "Deirdre", sg.Name, "reconciliation only touches the server id")
	assert.True(t, sg.ServerID.Acknowledged())

	f.advance(time.Second)
	require.Equal(t, 1, launcher.Held())
	launcher.Release()
	f.s.Drain(f.ctx)

	assert.Equal(t, 2, f.svc.Calls(remote.MethodSyncSigners))
	stored, _ := f.svc.Agreement(agreementID)
	assert.Equal(t, "Deirdre", stored.Signers[3].Name)
	assert.Equal(t, syncer.StateArmed, f.s.StreamState(syncer.StreamSigners))
}

func TestSession_ConfirmDuringSyncKeepsOneRequestInFlight(t *testing.T) {
	var launcher testutil.HeldLauncher
	f := newFixture(t, seedABC(1), WithLauncher(launcher.Launch))

	f.apply(MoveSigner{UID: "s-c", Position: 1})
	f.apply(Confirm{})
	require.Equal(t, 1, launcher.Held())

	f.apply(MoveSigner{UID: "s-a", Position: 1})
	f.apply(Confirm{})
	assert.Equal(t, 1, launcher.Held(), "second confirm only marks the stream dirty")
	assert.True(t, f.s.Snapshot().Streams[syncer.StreamSigners].Dirty)

	launcher.Release()
	f.s.Drain(f.ctx)
	assert.Equal(t, syncer.StatePending, f.s.StreamState(syncer.StreamSigners))

	f.advance(time.Second)
	require.Equal(t, 1, launcher.Held())
	launcher.Release()
	f.s.Drain(f.ctx)

	assert.Equal(t, 2, f.svc.Calls(remote.MethodSyncSigners))
	assert.Equal(t, []string{"A", "C", "B"}, names(f.s.Signers()))
	stored, _ := f.svc.Agreement(agreementID)
	assert.Equal(t, model.UID("s-a"), stored.Signers[0].UID)
	assert.Equal(t, syncer.StateArmed, f.s.StreamState(syncer.StreamSigners))
}

func TestSession_NetworkFailureReturnsToArmed(t *testing.T) {
	f := newFixture(t, seedABC(1))
	f.svc.FailNext(remote.MethodSyncSigners, errors.New("offline"))

	out := f.apply(AddSigner{Name: "Dee", Email: "dee@example.com"})
	f.advance(time.Second)

	assert.Equal(t, syncer.StateArmed, f.s.StreamState(syncer.StreamSigners))
	snap := f.s.Snapshot()
	assert.True(t, snap.Streams[syncer.StreamSigners].Failed)
	assert.Equal(t, []model.UID{out.Signer.UID}, snap.Pending, "nothing is marked saved")
	require.NotEmpty(t, f.notices)
	last := f.notices[len(f.notices)-1]
	assert.Equal(t, NoticeNetwork, last.Kind)
	assert.Equal(t, syncer.StreamSigners, last.Stream)
	assert.Contains(t, last.Message, "offline")

	retry := f.apply(Retry{})
	assert.True(t, retry.Changed)
	f.s.Drain(f.ctx)

	assert.Equal(t, 2, f.svc.Calls(remote.MethodSyncSigners))
	snap = f.s.Snapshot()
	assert.False(t, snap.Streams[syncer.StreamSigners].Failed)
	assert.Empty(t, snap.Pending)
}

func TestSession_FailureThenNextEditResends(t *testing.T) {
	f := newFixture(t, seedABC(1))
	f.svc.FailNext(remote.MethodUpdateTitle, errors.New("offline"))

	f.apply(SetTitle{Title: "Sublease"})
	f.advance(time.Second)
	assert.Equal(t, syncer.StateArmed, f.s.StreamState(syncer.StreamTitle))

	f.apply(SetTitle{Title: "Sublease v2"})
	f.advance(time.Second)

	assert.Equal(t, 2, f.svc.Calls(remote.MethodUpdateTitle))
	stored, _ := f.svc.Agreement(agreementID)
	assert.Equal(t, "Sublease v2", stored.Metadata.Title)
}

func TestSession_ServerIDForDeletedSignerIsMismatch(t *testing.T) {
	var launcher testutil.HeldLauncher
	f := newFixture(t, seedABC(1), WithLauncher(launcher.Launch))

	out := f.apply(AddSigner{Name: "Dee", Email: "dee@example.com"})
	f.advance(time.Second)
	require.Equal(t, 1, launcher.Held())

	f.apply(RemoveSigner{UID: out.Signer.UID})
	launcher.Release()
	f.s.Drain(f.ctx)

	var kinds []NoticeKind
	for _, n := range f.notices {
		kinds = append(kinds, n.Kind)
	}
	assert.Contains(t, kinds, NoticeMismatch)
	assert.Len(t, f.s.Signers(), 3)
	assert.Equal(t, syncer.StatePending, f.s.StreamState(syncer.StreamSigners), "the removal is synced next")
}

func TestSession_ConfirmValidation(t *testing.T) {
	f := newFixture(t, seedABC(1))
	f.apply(AddSigner{Email: "not-an-address"})

	_, err := f.s.Apply(f.ctx, Confirm{})
	require.Error(t, err)
	assert.True(t, IsValidation(err))

	var e *Error
	require.ErrorAs(t, err, &e)
	require.Len(t, e.Issues, 2)
	assert.Equal(t, 4, e.Issues[0].Row)
	assert.Equal(t, "name", e.Issues[0].Field)
	assert.Equal(t, "email", e.Issues[1].Field)
	assert.Equal(t, 0, f.svc.Calls(remote.MethodSyncSigners), "a blocked confirm sends nothing")
}

func TestSession_SignatureFieldSurvivesPageSwitch(t *testing.T) {
	f := newFixture(t, seedABC(3))

	out := f.apply(PlaceField{Signer: "s-a", Type: model.FieldSignature, Page: 2, X: 120, Y: 300})
	require.NotNil(t, out.Field)
	uid := out.Field.UID

	assert.Equal(t, 1, f.s.ActivePage())
	assert.Empty(t, f.s.Visible())
	require.Len(t, f.s.Fields(), 1)

	f.apply(SetActivePage{Page: 2})
	visible := f.s.Visible()
	require.Len(t, visible, 1)
	assert.Equal(t, uid, visible[0].Field.UID)
	assert.Equal(t, placement.Rect{Left: 120, Top: 300, Width: 200, Height: 64}, visible[0].Box)

	f.apply(SetActivePage{Page: 1})
	f.apply(SetActivePage{Page: 2})
	got, ok := f.s.Field(uid)
	require.True(t, ok)
	assert.Equal(t, 120, got.X)
	assert.Equal(t, 300, got.Y)
	assert.Equal(t, model.Palette[0], got.ColorTag)

	_, err := f.s.Apply(f.ctx, SetActivePage{Page: 4})
	assert.True(t, IsInvalidAction(err))
}

func TestSession_DropOutsideCreatesNothing(t *testing.T) {
	f := newFixture(t, seedABC(1))

	f.apply(BeginDrop{Signer: "s-b", Type: model.FieldName})
	out := f.apply(TrackDrop{X: -300, Y: 40})
	require.NotNil(t, out.Preview)
	assert.False(t, out.Preview.Inside)

	out = f.apply(ReleaseDrop{X: -300, Y: 40})
	assert.False(t, out.Changed)
	assert.Nil(t, out.Field)
	assert.Empty(t, f.s.Fields())
	assert.Equal(t, syncer.StateArmed, f.s.StreamState(syncer.StreamFields))
}

func TestSession_DropInsideCreatesField(t *testing.T) {
	f := newFixture(t, seedABC(1))

	f.apply(BeginDrop{Signer: "s-b", Type: model.FieldName})
	out := f.apply(ReleaseDrop{X: 100, Y: 100})
	require.True(t, out.Changed)
	assert.Equal(t, 20, out.Field.X)
	assert.Equal(t, 84, out.Field.Y)
	assert.Equal(t, model.UID("s-b"), out.Field.SignerRef)

	f.advance(time.Second)
	assert.Equal(t, 1, f.svc.Calls(remote.MethodSyncInputFields))
	assert.True(t, f.s.Fields()[0].ServerID.Acknowledged())
}

func TestSession_FieldMoveSyncsFinalPosition(t *testing.T) {
	f := newFixture(t, seedABC(1))
	placed := f.apply(PlaceField{Signer: "s-a", Type: model.FieldText, X: 10, Y: 10})
	f.advance(time.Second)
	require.Equal(t, 1, f.svc.Calls(remote.MethodSyncInputFields))

	f.apply(BeginFieldMove{UID: placed.Field.UID})
	f.apply(DragField{DX: 5000, DY: 40})
	out := f.apply(EndFieldMove{})
	assert.True(t, out.Changed)
	assert.Equal(t, 612-160, out.Field.X, "clamped to the right edge")
	assert.Equal(t, 50, out.Field.Y)

	f.advance(time.Second)
	stored, _ := f.svc.Agreement(agreementID)
	require.Len(t, stored.InputFields, 1)
	assert.Equal(t, 452, stored.InputFields[0].X)
	assert.Equal(t, 50, stored.InputFields[0].Y)
}

func TestSession_RepositionUnchangedIsNoEdit(t *testing.T) {
	f := newFixture(t, seedABC(1))
	placed := f.apply(PlaceField{Signer: "s-a", Type: model.FieldText, X: 0, Y: 0})
	f.advance(time.Second)

	out := f.apply(RepositionField{UID: placed.Field.UID, DX: -10, DY: -10})
	assert.False(t, out.Changed)
	assert.Equal(t, syncer.StateArmed, f.s.StreamState(syncer.StreamFields))
}

func TestSession_RemoveSignerCascadesToFields(t *testing.T) {
	f := newFixture(t, seedABC(2))
	f.apply(PlaceField{Signer: "s-b", Type: model.FieldName, X: 10, Y: 10})
	kept := f.apply(PlaceField{Signer: "s-a", Type: model.FieldName, X: 10, Y: 60})
	f.advance(time.Second)

	out := f.apply(RemoveSigner{UID: "s-b"})
	assert.Len(t, out.Removed, 1)
	require.Len(t, f.s.Fields(), 1)
	assert.Equal(t, kept.Field.UID, f.s.Fields()[0].UID)
	assert.Equal(t, []string{"A", "C"}, names(f.s.Signers()))
	assert.Equal(t, []int{1, 2}, steps(f.s.Signers()))
	assert.Equal(t, syncer.StatePending, f.s.StreamState(syncer.StreamFields))
	assert.Equal(t, syncer.StatePending, f.s.StreamState(syncer.StreamSigners))
}

func TestSession_GesturesAreExclusive(t *testing.T) {
	f := newFixture(t, seedABC(1))
	placed := f.apply(PlaceField{Signer: "s-a", Type: model.FieldName, X: 10, Y: 10})

	f.apply(BeginReorder{UID: "s-a"})
	for _, a := range []Action{
		BeginDrop{Signer: "s-a", Type: model.FieldDate},
		BeginFieldMove{UID: placed.Field.UID},
		AddSigner{Name: "X", Email: "x@example.com"},
		RemoveSigner{UID: "s-b"},
		BeginReorder{UID: "s-b"},
	} {
		_, err := f.s.Apply(f.ctx, a)
		assert.True(t, IsInvalidAction(err), "%s during reorder", a.ActionName())
	}
	f.apply(CancelReorder{})

	f.apply(BeginFieldMove{UID: placed.Field.UID})
	_, err := f.s.Apply(f.ctx, BeginReorder{UID: "s-a"})
	assert.True(t, IsInvalidAction(err))
	f.apply(CancelFieldMove{})

	_, err = f.s.Apply(f.ctx, EndReorder{})
	assert.ErrorIs(t, err, reorder.ErrNoGesture)
}

func TestSession_RemoveSignerDuringDropIsRejected(t *testing.T) {
	f := newFixture(t, seedABC(1))

	f.apply(BeginDrop{Signer: "s-b", Type: model.FieldName})
	_, err := f.s.Apply(f.ctx, RemoveSigner{UID: "s-b"})
	require.Error(t, err)
	assert.True(t, IsInvalidAction(err))
	assert.ErrorIs(t, err, reorder.ErrGestureActive)
	_, err = f.s.Apply(f.ctx, AddSigner{Name: "X", Email: "x@example.com"})
	assert.True(t, IsInvalidAction(err))

	out := f.apply(ReleaseDrop{X: 100, Y: 100})
	require.True(t, out.Changed)

	known := map[model.UID]bool{}
	for _, sg := range f.s.Signers() {
		known[sg.UID] = true
	}
	require.Len(t, f.s.Fields(), 1)
	for _, fp := range f.s.Fields() {
		assert.True(t, known[fp.SignerRef], "field %s owned by unknown signer %s", fp.UID, fp.SignerRef)
	}

	// Once the drop is released the removal goes through and cascades.
	removed := f.apply(RemoveSigner{UID: "s-b"})
	assert.Equal(t, []model.UID{out.Field.UID}, removed.Removed)
	assert.Empty(t, f.s.Fields())
}

func TestSession_RemoveSignerDuringFieldMoveIsRejected(t *testing.T) {
	f := newFixture(t, seedABC(1))
	placed := f.apply(PlaceField{Signer: "s-a", Type: model.FieldName, X: 10, Y: 10})

	f.apply(BeginFieldMove{UID: placed.Field.UID})
	_, err := f.s.Apply(f.ctx, RemoveSigner{UID: "s-a"})
	assert.True(t, IsInvalidAction(err))
	f.apply(EndFieldMove{})

	_, ok := f.s.Field(placed.Field.UID)
	assert.True(t, ok)
	assert.Len(t, f.s.Signers(), 3)
}

func TestSession_UnknownTargets(t *testing.T) {
	f := newFixture(t, seedABC(1))

	for _, a := range []Action{
		RemoveSigner{UID: "nope"},
		UpdateSigner{UID: "nope"},
		PlaceField{Signer: "nope", Type: model.FieldName},
		DeleteField{UID: "nope"},
		RepositionField{UID: "nope"},
		Retry{Stream: "nope"},
		nil,
	} {
		_, err := f.s.Apply(f.ctx, a)
		assert.True(t, IsInvalidAction(err), "%T", a)
	}
}

func TestSession_TitleAndDates(t *testing.T) {
	f := newFixture(t, seedABC(1))

	out := f.apply(SetTitle{Title: "Lease"})
	assert.False(t, out.Changed, "same title is not an edit")

	end := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	f.apply(SetTitle{Title: "Sublease"})
	f.apply(SetDates{Dates: model.DateSequence{EndDate: &end, Sequence: true}})
	f.advance(time.Second)

	assert.Equal(t, 1, f.svc.Calls(remote.MethodUpdateTitle))
	assert.Equal(t, 1, f.svc.Calls(remote.MethodUpdateDates))
	stored, _ := f.svc.Agreement(agreementID)
	assert.Equal(t, "Sublease", stored.Metadata.Title)
	require.NotNil(t, stored.Metadata.Dates.EndDate)
	assert.True(t, stored.Metadata.Dates.EndDate.Equal(end))

	same := end
	out = f.apply(SetDates{Dates: model.DateSequence{EndDate: &same, Sequence: true}})
	assert.False(t, out.Changed)
}

func TestSession_SnapshotIsACopy(t *testing.T) {
	f := newFixture(t, seedABC(1))
	snap := f.apply(TakeSnapshot{}).Snapshot
	require.NotNil(t, snap)

	snap.Signers[0].Name = "mutated"
	snap.Order[0] = 2
	assert.Equal(t, "A", f.s.Signers()[0].Name)
	assert.Equal(t, []int{0, 1, 2}, f.s.Snapshot().Order)
}

func TestSession_RunAndDo(t *testing.T) {
	m := seedABC(1)
	s, err := Open(context.Background(), m, agreementID, nil,
		WithDebounce(5*time.Millisecond),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	out, err := s.Do(ctx, AddSigner{Name: "Dee", Email: "dee@example.com"})
	require.NoError(t, err)
	require.NotNil(t, out.Signer)

	require.Eventually(t, func() bool {
		out, err := s.Do(ctx, TakeSnapshot{})
		return err == nil && len(out.Snapshot.Pending) == 0
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, m.Calls(remote.MethodSyncSigners))

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}

	_, err = s.Do(context.Background(), TakeSnapshot{})
	assert.True(t, IsInvalidAction(err), "queue is closed after Run returns")
}

func TestSession_StopEndsRun(t *testing.T) {
	s, err := Open(context.Background(), seedABC(1), agreementID, nil,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- s.Run(context.Background()) }()
	s.Stop()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
}
