package mongo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/erp-ledger-engine/internal/domain/proposal"
)

const (
	// ProposalCollectionName is the name of the proposal inbox collection in MongoDB
	ProposalCollectionName = "proposals"
)

// ProposalRepository implements the proposal.Repository interface for MongoDB
type ProposalRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewProposalRepository creates a new MongoDB proposal repository
func NewProposalRepository(logger *slog.Logger, db *mongo.Database) proposal.Repository {
	return &ProposalRepository{
		db:     db,
		logger: logger,
	}
}

// Upsert stores a proposal keyed by (org_id, id). Rule ids are
// deterministic, so re-evaluation refreshes proposals in place instead
// of duplicating them. A dismissed proposal stays dismissed.
func (r *ProposalRepository) Upsert(ctx context.Context, p *proposal.Proposal) error {
	collection := r.db.Collection(ProposalCollectionName)

	filter := bson.M{"org_id": p.OrgID, "id": p.ID}
	update := bson.M{
		"$set": bson.M{
			"kind":            p.Kind,
			"title":           p.Title,
			"rationale":       p.Rationale,
			"source_tx_id":    p.SourceTxID,
			"payload_kind":    p.PayloadKind,
			"create_tx":       p.CreateTx,
			"evaluated_at_ms": p.EvaluatedAtMs,
			"last_refreshed":  p.LastRefreshed,
		},
		"$setOnInsert": bson.M{
			"org_id":    p.OrgID,
			"id":        p.ID,
			"dismissed": false,
		},
	}

	_, err := collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		r.logger.Error("Failed to upsert proposal",
			"org_id", p.OrgID,
			"proposal_id", p.ID,
			"error", err)
		return fmt.Errorf("failed to upsert proposal: %w", err)
	}

	return nil
}

// ListByOrg retrieves the org's proposals, newest evaluation first.
// Dismissed proposals are filtered out unless includeDismissed is set.
func (r *ProposalRepository) ListByOrg(ctx context.Context, orgID string, includeDismissed bool) ([]proposal.Proposal, error) {
	collection := r.db.Collection(ProposalCollectionName)

	filter := bson.M{"org_id": orgID}
	if !includeDismissed {
		filter["dismissed"] = false
	}
	opts := options.Find().SetSort(bson.M{"evaluated_at_ms": -1})

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to list proposals",
			"org_id", orgID,
			"error", err)
		return nil, fmt.Errorf("failed to list proposals: %w", err)
	}
	defer cursor.Close(ctx)

	var proposals []proposal.Proposal
	if err := cursor.All(ctx, &proposals); err != nil {
		r.logger.Error("Failed to decode proposals",
			"org_id", orgID,
			"error", err)
		return nil, fmt.Errorf("failed to decode proposals: %w", err)
	}

	return proposals, nil
}

// Dismiss marks a proposal as acted on or ignored.
// Returns ErrNotFound if the proposal doesn't exist.
func (r *ProposalRepository) Dismiss(ctx context.Context, orgID, id string) error {
	collection := r.db.Collection(ProposalCollectionName)

	filter := bson.M{"org_id": orgID, "id": id}
	update := bson.M{"$set": bson.M{"dismissed": true}}

	result, err := collection.UpdateOne(ctx, filter, update)
	if err != nil {
		r.logger.Error("Failed to dismiss proposal",
			"org_id", orgID,
			"proposal_id", id,
			"error", err)
		return fmt.Errorf("failed to dismiss proposal: %w", err)
	}

	if result.MatchedCount == 0 {
		return proposal.ErrNotFound{ID: id}
	}

	return nil
}

// DeleteStale removes proposals whose last refresh predates the cutoff.
// Rules that stop firing leave proposals behind; this is the cleanup.
func (r *ProposalRepository) DeleteStale(ctx context.Context, orgID string, before time.Time) (int64, error) {
	collection := r.db.Collection(ProposalCollectionName)

	filter := bson.M{
		"org_id":         orgID,
		"last_refreshed": bson.M{"$lt": before},
	}

	result, err := collection.DeleteMany(ctx, filter)
	if err != nil {
		r.logger.Error("Failed to delete stale proposals",
			"org_id", orgID,
			"error", err)
		return 0, fmt.Errorf("failed to delete stale proposals: %w", err)
	}

	return result.DeletedCount, nil
}
