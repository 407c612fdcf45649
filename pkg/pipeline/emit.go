package pipeline

import (
	"context"
	"encoding/json"
	"time"

	"github.com/matzehuels/bpdoc/pkg/cache"
	"github.com/matzehuels/bpdoc/pkg/entity"
	"github.com/matzehuels/bpdoc/pkg/errors"
	"github.com/matzehuels/bpdoc/pkg/observability"
	"github.com/matzehuels/bpdoc/pkg/resolver"
)

// emitAll writes entity documents in record order, first those whose
// thumbnails are already terminal, then the rest once rendering settles, and
// finally the index.
func (g *run) emitAll(ctx context.Context) error {
	g.setState(StateRendering)
	start := time.Now()

	if g.thumbs != nil {
		g.thumbs.PollReady()
	}
	for _, rec := range g.records {
		if !g.thumbnailSettled(rec.EntityID()) {
			continue
		}
		if err := g.emitRecord(ctx, rec); err != nil {
			return err
		}
	}

	if g.thumbs != nil && g.thumbs.Outstanding() > 0 {
		g.logger.Debug("waiting for thumbnails", "outstanding", g.thumbs.Outstanding(), "timeout", g.opts.RenderTimeout)
		g.thumbs.AwaitAllOrTimeout(ctx, g.opts.RenderTimeout)
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	g.report.Timings.Render = time.Since(start)

	g.setState(StateEmitting)
	start = time.Now()
	defer func() { g.report.Timings.Emit = time.Since(start) }()

	for _, rec := range g.records {
		if g.emitted[rec.EntityID()] {
			continue
		}
		if err := g.emitRecord(ctx, rec); err != nil {
			return err
		}
	}
	return g.emitDocument(ctx, g.index())
}

func (g *run) thumbnailSettled(id entity.ID) bool {
	if g.thumbs == nil {
		return true
	}
	ref, ok := g.thumbs.Ref(id)
	return !ok || ref.Terminal()
}

func (g *run) emitRecord(ctx context.Context, rec entity.Record) error {
	return g.emitDocument(ctx, g.document(rec))
}

// document builds the document of one record. The thumbnail must be
// terminal by now. Embedded references are replaced by their final form so
// that the record agrees with the reference table.
func (g *run) document(rec entity.Record) *entity.Document {
	id := rec.EntityID()
	doc := &entity.Document{
		ID:         id,
		Title:      g.opts.Title,
		RunID:      g.report.RunID,
		References: g.references(id),
	}
	lookup := g.lookup(id)
	switch v := rec.(type) {
	case entity.GraphRecord:
		gr := v.WithReferences(lookup)
		gr.Ancestors = g.visibleAncestors(id)
		for i := range gr.Nodes {
			g.markInherited(&gr.Nodes[i])
		}
		doc.Kind = entity.KindGraph
		doc.Graph = &gr
	case entity.NodeRecord:
		n := v.WithReferences(lookup)
		g.markInherited(&n)
		doc.Kind = entity.KindNode
		doc.Node = &n
	}

	if g.thumbs != nil {
		if ref, ok := g.thumbs.Ref(id); ok {
			doc.Thumbnail = &ref
			doc.MissingThumbnail = !ref.Ready()
		}
	}
	return doc
}

func (g *run) markInherited(n *entity.NodeRecord) {
	if n.Function != nil && g.inherited(*n) {
		n.Function.Inherited = true
	}
}

// lookup returns the final form of the references recorded for id. A
// reference missing from the final set is left pending.
func (g *run) lookup(id entity.ID) entity.RefLookup {
	set := g.final[id]
	return func(field string, ref entity.TypeReference) (entity.TypeReference, bool) {
		for _, fr := range set {
			if fr.Field == field && fr.Ref.Target == ref.Target {
				return fr.Ref, !g.hidden(fr.Ref)
			}
		}
		return ref, true
	}
}

// hidden reports whether ref is left out of documents.
func (g *run) hidden(ref entity.TypeReference) bool {
	return !g.opts.IncludeExternalTypes && ref.Reason == entity.ReasonOutOfCorpus
}

// references returns the resolved references of id as shown in documents.
func (g *run) references(id entity.ID) []entity.FieldRef {
	set := g.final[id]
	out := make([]entity.FieldRef, 0, len(set))
	for _, fr := range set {
		if g.hidden(fr.Ref) {
			continue
		}
		out = append(out, fr)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// emitDocument writes doc and its thumbnail. Sink and manifest errors are
// fatal for the run.
func (g *run) emitDocument(ctx context.Context, doc *entity.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	id := doc.ID
	hash, err := documentHash(doc)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "hash %s", id)
	}

	g.emitted[id] = true
	g.countThumbnail(doc)

	store := g.runner.Manifest
	if g.opts.Resume && store != nil {
		unchanged, err := g.unchanged(ctx, id, hash)
		if err != nil {
			return err
		}
		if unchanged {
			g.report.Unchanged++
			g.logger.Debug("document unchanged", "id", id)
			return store.RecordDocument(ctx, g.report.RunID, g.dest, id, hash)
		}
	}

	if doc.Thumbnail != nil && doc.Thumbnail.Ready() && g.images != nil {
		p, err := g.images.WriteImage(ctx, id, doc.Thumbnail.Image)
		if err != nil {
			observability.Pipeline().OnEmit(ctx, string(id), "image", err)
			return errors.Wrap(errors.ErrCodeSinkUnavailable, err, "write thumbnail of %s", id)
		}
		img := *doc.Thumbnail.Image
		img.Path = p
		doc.Thumbnail.Image = &img
	}

	err = g.out.WriteDocument(ctx, id, doc)
	observability.Pipeline().OnEmit(ctx, string(id), string(doc.Kind), err)
	if err != nil {
		return errors.Wrap(errors.ErrCodeSinkUnavailable, err, "write %s", id)
	}
	g.report.Documents++

	if store != nil {
		return store.RecordDocument(ctx, g.report.RunID, g.dest, id, hash)
	}
	return nil
}

// unchanged reports whether this destination already holds doc as hashed.
// A matching hash is not enough when the sink can tell the document is gone.
func (g *run) unchanged(ctx context.Context, id entity.ID, hash string) (bool, error) {
	prev, ok, err := g.runner.Manifest.DocumentHash(ctx, g.dest, id)
	if err != nil || !ok || prev != hash {
		return false, err
	}
	if g.present == nil {
		return true, nil
	}
	has, err := g.present.HasDocument(ctx, id)
	if err != nil {
		return false, err
	}
	if !has {
		g.logger.Debug("document missing from output", "id", id)
	}
	return has, nil
}

func (g *run) countThumbnail(doc *entity.Document) {
	switch {
	case doc.Thumbnail == nil:
	case doc.Thumbnail.Ready():
		g.report.Counts.Rendered++
	case doc.MissingThumbnail:
		g.report.Counts.MissingThumbnails++
	}
}

// documentHash hashes the content of doc, leaving out per-run metadata so
// that unchanged assets hash the same across runs.
func documentHash(doc *entity.Document) (string, error) {
	c := *doc
	c.RunID = ""
	data, err := json.Marshal(&c)
	if err != nil {
		return "", err
	}
	return cache.Hash(data), nil
}

// =============================================================================
// Index
// =============================================================================

func (g *run) index() *entity.Document {
	idx := &entity.Index{
		Entities:        make([]entity.IndexEntry, 0, len(g.records)),
		CrossReferences: []entity.CrossReference{},
		Assets:          make([]entity.AssetSummary, 0, len(g.report.Assets)),
	}

	for _, rec := range g.records {
		e := entity.IndexEntry{ID: rec.EntityID()}
		switch v := rec.(type) {
		case entity.GraphRecord:
			e.Kind = entity.KindGraph
			e.Name = v.Name
			e.Graph = v.Owner
		case entity.NodeRecord:
			e.Kind = entity.KindNode
			e.Name = v.Title
			e.Graph = v.Graph
		}
		idx.Entities = append(idx.Entities, e)

		for _, fr := range g.references(e.ID) {
			if !resolver.OwnField(e.ID, fr.Field) {
				continue
			}
			idx.CrossReferences = append(idx.CrossReferences, entity.CrossReference{
				From:   e.ID,
				Field:  fr.Field,
				Target: fr.Ref.Target,
				State:  fr.Ref.State,
				Entity: fr.Ref.Entity,
				Reason: fr.Ref.Reason,
			})
		}
	}

	for _, a := range g.report.Assets {
		idx.Assets = append(idx.Assets, entity.AssetSummary{Path: a.Path, Status: a.Status, Error: a.Error})
	}
	idx.Counts = g.report.Counts

	return &entity.Document{
		ID:    entity.IndexID,
		Kind:  entity.KindIndex,
		Title: g.opts.Title,
		RunID: g.report.RunID,
		Index: idx,
	}
}
