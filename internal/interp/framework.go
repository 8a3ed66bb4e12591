package interp

import (
	"sync"

	"chir/internal/chir"
)

// ObjectID names one abstract heap allocation within a single function's
// analysis run.
type ObjectID int

// AllocatedObject is the abstract object an ALLOCATE/RAW_ARRAY_ALLOCATE
// expression creates: an identity plus whatever child abstract values
// field writes have recorded so far, keyed by field index. Option's
// boxed payload is stored at index 0, matching a regular single-field
// object — no separate representation is needed for it.
type AllocatedObject struct {
	ID     ObjectID
	Ty     chir.Type
	Fields map[int]any
}

// RefTracker binds SSA ref-names to AllocatedObjects for one function's
// analysis. Copying a ref (a plain TypeCast or a value pass-
// through) shares the same identity rather than cloning the object;
// AliasTo is how a transfer function records that sharing.
type RefTracker struct {
	objects map[ObjectID]*AllocatedObject
	refs    map[chir.Value]ObjectID
	next    ObjectID
}

func NewRefTracker() *RefTracker {
	return &RefTracker{
		objects: map[ObjectID]*AllocatedObject{},
		refs:    map[chir.Value]ObjectID{},
	}
}

// Allocate records a fresh abstract object for result and returns it.
func (t *RefTracker) Allocate(result chir.Value, ty chir.Type) *AllocatedObject {
	t.next++
	obj := &AllocatedObject{ID: t.next, Ty: ty, Fields: map[int]any{}}
	t.objects[t.next] = obj
	t.refs[result] = t.next
	return obj
}

// AliasTo makes to refer to the same abstract object as from, modeling
// reference copies and ref-to-ref TypeCasts.
func (t *RefTracker) AliasTo(from, to chir.Value) {
	if id, ok := t.refs[from]; ok {
		t.refs[to] = id
	}
}

// Lookup returns the abstract object v currently refers to, if any.
func (t *RefTracker) Lookup(v chir.Value) (*AllocatedObject, bool) {
	id, ok := t.refs[v]
	if !ok {
		return nil, false
	}
	obj, ok := t.objects[id]
	return obj, ok
}

// FieldStore updates field idx of the object v refers to. A store
// through a ref with no tracked object is a no-op: the caller's
// transfer function should treat the field as unknown (⊤) in that case.
func (t *RefTracker) FieldStore(v chir.Value, idx int, val any) {
	if obj, ok := t.Lookup(v); ok {
		obj.Fields[idx] = val
	}
}

// FieldLoad reads field idx of the object v refers to.
func (t *RefTracker) FieldLoad(v chir.Value, idx int) (any, bool) {
	obj, ok := t.Lookup(v)
	if !ok {
		return nil, false
	}
	val, ok := obj.Fields[idx]
	return val, ok
}

// Copy returns an independent snapshot, needed wherever a transfer
// function forks state across a branch and must not let one arm's
// field writes leak into the other.
func (t *RefTracker) Copy() *RefTracker {
	out := &RefTracker{
		objects: make(map[ObjectID]*AllocatedObject, len(t.objects)),
		refs:    make(map[chir.Value]ObjectID, len(t.refs)),
		next:    t.next,
	}
	for id, obj := range t.objects {
		fields := make(map[int]any, len(obj.Fields))
		for k, v := range obj.Fields {
			fields[k] = v
		}
		out.objects[id] = &AllocatedObject{ID: obj.ID, Ty: obj.Ty, Fields: fields}
	}
	for v, id := range t.refs {
		out.refs[v] = id
	}
	return out
}

// GlobalStore is the process-wide store for READONLY globals described
// per the global-mutable-state design note: initialized under a
// serial phase, read-only during parallel analysis, cleared between
// packages. It is not a Domain — every function's analysis shares one
// instance, while Domain values are per-function.
type GlobalStore struct {
	mu          sync.RWMutex
	values      map[*chir.GlobalVar]any
	initialized map[*chir.GlobalVar]bool
}

func NewGlobalStore() *GlobalStore {
	return &GlobalStore{
		values:      map[*chir.GlobalVar]any{},
		initialized: map[*chir.GlobalVar]bool{},
	}
}

// Init records g's analyzed abstract value. Callers must only call this
// during the serial init phase, before any concurrent reader calls Get.
func (s *GlobalStore) Init(g *chir.GlobalVar, v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[g] = v
	s.initialized[g] = true
}

// Get returns g's recorded abstract value, if its init function has
// already been analyzed.
func (s *GlobalStore) Get(g *chir.GlobalVar) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.initialized[g] {
		return nil, false
	}
	return s.values[g], true
}

// Clear resets the store between packages.
func (s *GlobalStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = map[*chir.GlobalVar]any{}
	s.initialized = map[*chir.GlobalVar]bool{}
}

// Tracked reports whether g's base type qualifies for global tracking:
// primitive, tuple, struct, or enum.
func Tracked(g *chir.GlobalVar) bool {
	switch g.Ty.(type) {
	case chir.BoolType, chir.IntType, chir.UIntType, chir.FloatType, chir.RuneType,
		chir.StringType, chir.TupleType:
		return true
	case chir.NominalType:
		t := g.Ty.(chir.NominalType)
		return t.Kind == chir.KindStruct || t.Kind == chir.KindEnum
	default:
		return false
	}
}
