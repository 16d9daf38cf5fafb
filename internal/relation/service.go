package relation

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"recipe-vault/internal/apperr"
	"recipe-vault/internal/logger"
	"recipe-vault/internal/recipe"
)

// Service maintains the derivation graph between a user's recipes. It
// owns the two structural invariants: every edge connects recipes of one
// owner, and the graph stays acyclic across every mutation. Edges have no
// internal state, so callers only ever observe a valid graph.
type Service struct {
	db        *sql.DB
	recipes   *recipe.Repository
	relations *Repository
	log       *logger.Logger
}

// NewService creates a new Service.
func NewService(db *sql.DB, recipes *recipe.Repository, relations *Repository, log *logger.Logger) *Service {
	return &Service{
		db:        db,
		recipes:   recipes,
		relations: relations,
		log:       log,
	}
}

// ProposeEdges validates and commits a batch of derivation edges from
// parentRecipeID to each listed child, all-or-nothing. Checks run in
// order and short-circuit: self-reference, ownership, duplicate
// suppression (an existing (parent, child) pair is a no-op, not an
// error), then acyclicity. Validation and insert share one transaction
// that takes the database write lock up front, so two concurrent
// proposals that are individually acyclic but jointly cyclic cannot both
// pass the check.
func (s *Service) ProposeEdges(ctx context.Context, userID, parentRecipeID string, children []ChildSpec) ([]Relation, error) {
	if len(children) == 0 {
		return nil, nil
	}
	for _, c := range children {
		if c.RecipeID == parentRecipeID {
			return nil, apperr.New(apperr.CodeInvalidRelation, "a recipe cannot be its own sub-recipe")
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, apperr.Infra(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	recipes := s.recipes.WithTx(tx)
	relations := s.relations.WithTx(tx)

	ids := []string{parentRecipeID}
	for _, c := range children {
		ids = append(ids, c.RecipeID)
	}
	if err := checkOwnership(ctx, recipes, userID, ids); err != nil {
		return nil, err
	}

	existing, err := relations.ListByParent(ctx, parentRecipeID)
	if err != nil {
		return nil, apperr.Infra(err, "failed to load existing relations")
	}
	present := make(map[string]bool, len(existing))
	for _, e := range existing {
		present[e.ChildRecipeID] = true
	}

	var toCreate []ChildSpec
	for _, c := range children {
		if present[c.RecipeID] {
			continue // already attached, no-op
		}
		present[c.RecipeID] = true
		toCreate = append(toCreate, c)
	}
	if len(toCreate) == 0 {
		if err := tx.Commit(); err != nil {
			return nil, apperr.Infra(err, "failed to commit relations")
		}
		return nil, nil
	}

	childIDs := make([]string, len(toCreate))
	for i, c := range toCreate {
		childIDs[i] = c.RecipeID
	}
	if err := s.checkAcyclic(ctx, relations, parentRecipeID, childIDs); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	edges := make([]Relation, len(toCreate))
	for i, c := range toCreate {
		edges[i] = Relation{
			ID:             uuid.NewString(),
			ParentRecipeID: parentRecipeID,
			ChildRecipeID:  c.RecipeID,
			Quantity:       c.Quantity,
			Notes:          c.Notes,
			CreatedAt:      now,
		}
	}
	if err := relations.InsertBatch(ctx, edges); err != nil {
		return nil, apperr.Infra(err, "failed to insert relations")
	}
	if err := tx.Commit(); err != nil {
		return nil, apperr.Infra(err, "failed to commit relations")
	}

	s.log.Info("attached sub-recipes", "user_id", userID, "parent_recipe_id", parentRecipeID, "count", len(edges))
	return edges, nil
}

// ReplaceEdge is the metadata-update entry point. The spec for edges is
// replace-not-merge: the old row is deleted and a fresh one inserted for
// the same (parent, child) pair with the new quantity/notes.
func (s *Service) ReplaceEdge(ctx context.Context, userID, edgeID string, quantity, notes *string) (*Relation, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, apperr.Infra(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	relations := s.relations.WithTx(tx)
	old, err := s.authorizeEdge(ctx, s.recipes.WithTx(tx), relations, userID, edgeID)
	if err != nil {
		return nil, err
	}

	if err := relations.Delete(ctx, old.ID); err != nil {
		return nil, apperr.Infra(err, "failed to delete replaced relation")
	}
	fresh := Relation{
		ID:             uuid.NewString(),
		ParentRecipeID: old.ParentRecipeID,
		ChildRecipeID:  old.ChildRecipeID,
		Quantity:       quantity,
		Notes:          notes,
		CreatedAt:      time.Now().UTC(),
	}
	if err := relations.InsertBatch(ctx, []Relation{fresh}); err != nil {
		return nil, apperr.Infra(err, "failed to insert replacement relation")
	}
	if err := tx.Commit(); err != nil {
		return nil, apperr.Infra(err, "failed to commit relation replacement")
	}
	return &fresh, nil
}

// DetachEdge deletes a single edge after confirming the caller owns its
// parent or child recipe. No cascading effects beyond the edge row.
func (s *Service) DetachEdge(ctx context.Context, userID, edgeID string) error {
	edge, err := s.authorizeEdge(ctx, s.recipes, s.relations, userID, edgeID)
	if err != nil {
		return err
	}
	if err := s.relations.Delete(ctx, edge.ID); err != nil {
		if err == sql.ErrNoRows {
			return apperr.New(apperr.CodeNotFound, "relation not found")
		}
		return apperr.Infra(err, "failed to delete relation")
	}
	s.log.Info("detached sub-recipe", "user_id", userID, "relation_id", edgeID)
	return nil
}

// ListAvailableChildren returns the user's recipes that may still be
// attached under parentRecipeID: never the parent itself, never anything
// in excludeIDs, optionally filtered by a case-insensitive title
// substring, most recently updated first.
func (s *Service) ListAvailableChildren(ctx context.Context, userID, parentRecipeID string, excludeIDs []string, searchText string) ([]recipe.Recipe, error) {
	exclude := excludeIDs
	if parentRecipeID != "" {
		exclude = append(append([]string{}, excludeIDs...), parentRecipeID)
	}
	recipes, err := s.recipes.ListByUser(ctx, userID, exclude, searchText)
	if err != nil {
		return nil, apperr.Infra(err, "failed to list recipes")
	}
	return recipes, nil
}

// Descendants returns every recipe id reachable from recipeID along
// parent -> child edges, in breadth-first order.
func (s *Service) Descendants(ctx context.Context, userID, recipeID string) ([]string, error) {
	if err := checkOwnership(ctx, s.recipes, userID, []string{recipeID}); err != nil {
		return nil, err
	}
	return s.walk(ctx, recipeID, s.relations.ChildrenOf, func(r Relation) string { return r.ChildRecipeID })
}

// Ancestors returns every recipe id that recipeID transitively derives
// from, in breadth-first order.
func (s *Service) Ancestors(ctx context.Context, userID, recipeID string) ([]string, error) {
	if err := checkOwnership(ctx, s.recipes, userID, []string{recipeID}); err != nil {
		return nil, err
	}
	return s.walk(ctx, recipeID, s.relations.ParentsOf, func(r Relation) string { return r.ParentRecipeID })
}

// checkAcyclic walks the descendants of each proposed child over the
// existing edge set. Reaching parentRecipeID means the proposed edge
// would close a cycle. The visited set guarantees termination on graphs
// with shared descendants and bounds the walk at O(V+E).
func (s *Service) checkAcyclic(ctx context.Context, relations *Repository, parentRecipeID string, childIDs []string) error {
	visited := make(map[string]bool, len(childIDs))
	var frontier []string
	for _, id := range childIDs {
		if !visited[id] {
			visited[id] = true
			frontier = append(frontier, id)
		}
	}

	for len(frontier) > 0 {
		edges, err := relations.ChildrenOf(ctx, frontier)
		if err != nil {
			return apperr.Infra(err, "failed to walk relation graph")
		}
		frontier = frontier[:0]
		for _, e := range edges {
			if e.ChildRecipeID == parentRecipeID {
				return apperr.New(apperr.CodeCycleDetected, "attaching this sub-recipe would create a cycle")
			}
			if !visited[e.ChildRecipeID] {
				visited[e.ChildRecipeID] = true
				frontier = append(frontier, e.ChildRecipeID)
			}
		}
	}
	return nil
}

func (s *Service) walk(ctx context.Context, start string, expand func(context.Context, []string) ([]Relation, error), next func(Relation) string) ([]string, error) {
	visited := map[string]bool{start: true}
	frontier := []string{start}
	var out []string

	for len(frontier) > 0 {
		edges, err := expand(ctx, frontier)
		if err != nil {
			return nil, apperr.Infra(err, "failed to walk relation graph")
		}
		frontier = frontier[:0]
		for _, e := range edges {
			id := next(e)
			if !visited[id] {
				visited[id] = true
				frontier = append(frontier, id)
				out = append(out, id)
			}
		}
	}
	return out, nil
}

// authorizeEdge resolves an edge and confirms the caller owns at least
// one of its endpoints.
func (s *Service) authorizeEdge(ctx context.Context, recipes *recipe.Repository, relations *Repository, userID, edgeID string) (*Relation, error) {
	edge, err := relations.GetByID(ctx, edgeID)
	if err != nil {
		return nil, apperr.Infra(err, "failed to load relation")
	}
	if edge == nil {
		return nil, apperr.New(apperr.CodeNotFound, "relation not found")
	}

	endpoints, err := recipes.GetByIDs(ctx, []string{edge.ParentRecipeID, edge.ChildRecipeID})
	if err != nil {
		return nil, apperr.Infra(err, "failed to load relation endpoints")
	}
	for _, rec := range endpoints {
		if rec.UserID == userID {
			return edge, nil
		}
	}
	return nil, apperr.New(apperr.CodeForbidden, "relation belongs to another user")
}

// checkOwnership bulk-loads the given recipe ids and classifies failures:
// an absent id is not_found, an id owned by someone else is forbidden.
// Any failure rejects the whole batch.
func checkOwnership(ctx context.Context, recipes *recipe.Repository, userID string, ids []string) error {
	unique := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}

	found, err := recipes.GetByIDs(ctx, unique)
	if err != nil {
		return apperr.Infra(err, "failed to load recipes for ownership check")
	}
	owners := make(map[string]string, len(found))
	for _, rec := range found {
		owners[rec.ID] = rec.UserID
	}
	for _, id := range unique {
		owner, ok := owners[id]
		if !ok {
			return apperr.New(apperr.CodeNotFound, "recipe "+id+" not found")
		}
		if owner != userID {
			return apperr.New(apperr.CodeForbidden, "recipe "+id+" belongs to another user")
		}
	}
	return nil
}
