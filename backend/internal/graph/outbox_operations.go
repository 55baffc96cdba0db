package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"studyhub/backend/internal/outbox"
)

// ============================================================================
// Outbox Operations
// ============================================================================

// AppendEvent writes an undispatched outbox event, inside tx when given
func (r *Repository) AppendEvent(ctx context.Context, tx neo4j.ManagedTransaction, event outbox.Event) error {
	_, err := r.write(ctx, tx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := `
			CREATE (e:OutboxEvent {
				id: $id,
				type: $type,
				payload: $payload,
				created_at: $createdAt
			})
		`
		res, err := tx.Run(ctx, query, map[string]any{
			"id":        event.ID,
			"type":      string(event.Type),
			"payload":   string(event.Payload),
			"createdAt": event.CreatedAt.UTC(),
		})
		if err != nil {
			return nil, err
		}
		_, err = res.Consume(ctx)
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("failed to append outbox event: %w", err)
	}
	return nil
}

// PendingEvents returns up to limit undispatched events, oldest first
func (r *Repository) PendingEvents(ctx context.Context, limit int) ([]outbox.Event, error) {
	result, err := r.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := `
			MATCH (e:OutboxEvent)
			WHERE e.dispatched_at IS NULL
			RETURN e.id AS id, e.type AS type, e.payload AS payload, e.created_at AS created_at
			ORDER BY created_at, id
			LIMIT $limit
		`
		res, err := tx.Run(ctx, query, map[string]any{"limit": limit})
		if err != nil {
			return nil, err
		}
		var events []outbox.Event
		for res.Next(ctx) {
			record := res.Record()
			events = append(events, outbox.Event{
				ID:        getStringFromRecord(record, "id"),
				Type:      outbox.EventType(getStringFromRecord(record, "type")),
				Payload:   []byte(getStringFromRecord(record, "payload")),
				CreatedAt: getTimeFromRecord(record, "created_at"),
			})
		}
		return events, res.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load pending outbox events: %w", err)
	}
	return result.([]outbox.Event), nil
}

// MarkDispatched stamps the given events as delivered
func (r *Repository) MarkDispatched(ctx context.Context, ids []string, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.write(ctx, nil, func(tx neo4j.ManagedTransaction) (any, error) {
		query := `
			MATCH (e:OutboxEvent)
			WHERE e.id IN $ids AND e.dispatched_at IS NULL
			SET e.dispatched_at = $at
		`
		res, err := tx.Run(ctx, query, map[string]any{"ids": ids, "at": at.UTC()})
		if err != nil {
			return nil, err
		}
		_, err = res.Consume(ctx)
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("failed to mark outbox events dispatched: %w", err)
	}
	return nil
}
