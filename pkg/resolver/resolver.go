// Package resolver links the type references of documented entities.
//
// Resolution happens in two phases. During collection every record is
// [Resolver.Register]ed as the walker produces it; graph records also
// register the class they generate, so "class:BP_Door" resolves to the
// graph documenting BP_Door. [Resolver.FinalizeAll] then resolves every
// reference of every record at once.
//
// The result is a pure function of what was registered: records are visited
// in ID order, each set is sorted, and alias collisions pick the smallest
// graph ID, so registration order never changes the output.
package resolver

import (
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/bpdoc/pkg/entity"
	"github.com/matzehuels/bpdoc/pkg/errors"
)

// DefaultExternalClasses are engine types that blueprints reference but that
// are never part of a documented corpus. References to them resolve as
// out-of-corpus instead of not-found.
var DefaultExternalClasses = []string{
	"Object", "Actor", "Pawn", "Character", "Controller", "PlayerController",
	"AIController", "GameModeBase", "GameStateBase", "PlayerState", "HUD",
	"GameInstance", "ActorComponent", "SceneComponent", "PrimitiveComponent",
	"StaticMeshComponent", "SkeletalMeshComponent", "CharacterMovementComponent",
	"UserWidget", "AnimInstance", "DataTable", "DataAsset", "StaticMesh",
	"SkeletalMesh", "Texture2D", "Material", "MaterialInstance", "SoundBase",
	"KismetSystemLibrary", "KismetMathLibrary", "KismetStringLibrary",
	"KismetArrayLibrary", "KismetTextLibrary", "GameplayStatics",
	"Vector", "Vector2D", "Rotator", "Transform", "LinearColor", "Color",
	"HitResult", "Timespan", "DateTime",
}

// ResolvedSet is the resolved references of one record, sorted by field
// path and then target.
type ResolvedSet []entity.FieldRef

// Options configures a Resolver.
type Options struct {
	// ExternalClasses replaces DefaultExternalClasses when non-nil.
	ExternalClasses []string

	// ExcludedClasses are project classes kept out of the documentation.
	// They count as out-of-corpus unless a registered graph defines them.
	ExcludedClasses []string

	Logger *log.Logger
}

// Resolver is the global entity index. It is safe for concurrent use.
type Resolver struct {
	mu       sync.Mutex
	records  map[entity.ID]entity.Record
	aliases  map[entity.ID][]entity.ID
	external map[entity.ID]bool

	final      map[entity.ID]ResolvedSet
	unresolved []entity.CrossReference

	logger *log.Logger
}

// New creates an empty Resolver.
func New(opts Options) *Resolver {
	if opts.Logger == nil {
		opts.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	classes := opts.ExternalClasses
	if classes == nil {
		classes = DefaultExternalClasses
	}
	external := make(map[entity.ID]bool, len(classes)+len(opts.ExcludedClasses))
	for _, c := range classes {
		external[entity.ClassID(c)] = true
	}
	for _, c := range opts.ExcludedClasses {
		external[entity.ClassID(c)] = true
	}
	return &Resolver{
		records:  make(map[entity.ID]entity.Record),
		aliases:  make(map[entity.ID][]entity.ID),
		external: external,
		logger:   opts.Logger,
	}
}

type classDefiner interface {
	ClassAlias() (entity.ID, bool)
}

// Register adds rec to the index under id. Registering an ID twice fails
// with DUPLICATE_ENTITY; the first registration is kept.
func (r *Resolver) Register(id entity.ID, rec entity.Record) error {
	if rec == nil || id == "" {
		return errors.New(errors.ErrCodeInvalidInput, "register: empty id or nil record")
	}
	if rec.EntityID() != id {
		return errors.New(errors.ErrCodeInvalidInput, "register: id %s does not match record %s", id, rec.EntityID())
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.records[id]; dup {
		return errors.New(errors.ErrCodeDuplicateEntity, "entity %s already registered", id)
	}
	r.records[id] = rec
	if d, ok := rec.(classDefiner); ok {
		if alias, ok := d.ClassAlias(); ok {
			r.aliases[alias] = append(r.aliases[alias], id)
		}
	}
	r.final = nil
	r.unresolved = nil
	return nil
}

// Registered reports whether id has been registered.
func (r *Resolver) Registered(id entity.ID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.records[id]
	return ok
}

// Len returns the number of registered records.
func (r *Resolver) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

// RequestResolve resolves ref against the current registry. References that
// are no longer pending are returned unchanged, so calling it repeatedly is
// harmless.
func (r *Resolver) RequestResolve(ref entity.TypeReference) entity.TypeReference {
	if !ref.IsPending() {
		return ref
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resolve(ref)
}

// resolve must be called with r.mu held.
func (r *Resolver) resolve(ref entity.TypeReference) entity.TypeReference {
	if _, ok := r.records[ref.Target]; ok {
		return ref.Resolved(ref.Target)
	}
	if graphs := r.aliases[ref.Target]; len(graphs) > 0 {
		return ref.Resolved(minID(graphs))
	}
	if r.external[ref.Target] {
		return ref.External(entity.ReasonOutOfCorpus)
	}
	return ref.External(entity.ReasonNotFound)
}

// FinalizeAll resolves every reference of every registered record. The
// result is cached until the next Register, so repeated calls return the
// same mapping. Callers must not modify it.
func (r *Resolver) FinalizeAll() map[entity.ID]ResolvedSet {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.final != nil {
		return r.final
	}

	ids := make([]entity.ID, 0, len(r.records))
	for id := range r.records {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	final := make(map[entity.ID]ResolvedSet, len(ids))
	var unresolved []entity.CrossReference
	for _, id := range ids {
		refs := r.records[id].References()
		set := make(ResolvedSet, 0, len(refs))
		for _, fr := range refs {
			fr.Ref = r.resolve(fr.Ref)
			set = append(set, fr)
		}
		sort.SliceStable(set, func(i, j int) bool {
			if set[i].Field != set[j].Field {
				return set[i].Field < set[j].Field
			}
			return set[i].Ref.Target < set[j].Ref.Target
		})
		final[id] = set

		for _, fr := range set {
			if fr.Ref.Reason == entity.ReasonNotFound && OwnField(id, fr.Field) {
				unresolved = append(unresolved, entity.CrossReference{
					From: id, Field: fr.Field, Target: fr.Ref.Target,
					State: fr.Ref.State, Reason: fr.Ref.Reason,
				})
			}
		}
	}

	for _, u := range unresolved {
		r.logger.Warn("unresolved reference", "from", u.From, "field", u.Field, "target", u.Target)
	}

	r.final = final
	r.unresolved = unresolved
	return final
}

// Unresolved returns every not-found reference of the last FinalizeAll,
// ordered by source ID and field.
func (r *Resolver) Unresolved() []entity.CrossReference {
	r.FinalizeAll()
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entity.CrossReference, len(r.unresolved))
	copy(out, r.unresolved)
	return out
}

// OwnField reports whether field belongs to the record itself rather than
// repeating a reference of one of its nodes.
func OwnField(id entity.ID, field string) bool {
	return id.Kind() != entity.KindGraph || !strings.HasPrefix(field, "nodes.")
}

func minID(ids []entity.ID) entity.ID {
	m := ids[0]
	for _, id := range ids[1:] {
		if id < m {
			m = id
		}
	}
	return m
}
