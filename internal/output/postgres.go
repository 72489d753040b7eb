// Package output persists completed runs to relational storage for
// downstream analysis.
package output

import (
	"context"
	"fmt"

	"github.com/dinersim/dinersim/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresSink writes the final state of a run into Postgres. The run
// is inserted in one transaction so a partially written run never
// becomes visible.
type PostgresSink struct {
	pool *pgxpool.Pool
}

func NewPostgresSink(ctx context.Context, databaseURL string) (*PostgresSink, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("error pinging database: %w", err)
	}
	return &PostgresSink{pool: pool}, nil
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS customers (
        id TEXT PRIMARY KEY,
        day INT NOT NULL,
        name TEXT NOT NULL,
        income TEXT,
        taste TEXT,
        health TEXT,
        dietary_restriction TEXT,
        personality TEXT,
        profile TEXT,
        fallback BOOLEAN NOT NULL DEFAULT FALSE
    )`,
	`CREATE TABLE IF NOT EXISTS restaurants (
        id TEXT PRIMARY KEY,
        name TEXT NOT NULL,
        quality_rating DOUBLE PRECISION,
        review_policy TEXT NOT NULL,
        rating DOUBLE PRECISION NOT NULL,
        review_count INT NOT NULL,
        visits INT NOT NULL,
        revenue DOUBLE PRECISION NOT NULL
    )`,
	`CREATE TABLE IF NOT EXISTS reviews (
        id TEXT PRIMARY KEY,
        customer_id TEXT,
        restaurant_id TEXT NOT NULL REFERENCES restaurants(id),
        stars DOUBLE PRECISION NOT NULL,
        text TEXT,
        date TIMESTAMPTZ NOT NULL,
        ordered_item TEXT,
        label TEXT,
        seed BOOLEAN NOT NULL DEFAULT FALSE
    )`,
	`CREATE TABLE IF NOT EXISTS decision_events (
        id BIGSERIAL PRIMARY KEY,
        event_time TIMESTAMPTZ NOT NULL,
        day INT NOT NULL,
        customer_id TEXT NOT NULL,
        outcome TEXT NOT NULL,
        restaurant_id TEXT,
        item TEXT,
        price DOUBLE PRECISION,
        reason TEXT,
        failure_cause TEXT
    )`,
}

// EnsureSchema creates the run tables when they do not exist.
func (s *PostgresSink) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("error creating schema: %w", err)
		}
	}
	return nil
}

// SaveRun inserts the run's customers, restaurants, reviews and
// decision events in one transaction.
func (s *PostgresSink) SaveRun(ctx context.Context, customers []*models.Customer, restaurants []*models.Restaurant, events []models.DecisionEvent) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	customerStmt := `
        INSERT INTO customers (
            id, day, name, income, taste, health,
            dietary_restriction, personality, profile, fallback
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	for _, c := range customers {
		_, err = tx.Exec(ctx, customerStmt,
			c.ID,
			c.Day,
			c.Name,
			c.Income,
			c.Taste,
			c.Health,
			c.DietaryRestriction,
			c.Personality,
			c.Profile,
			c.Fallback,
		)
		if err != nil {
			return fmt.Errorf("error inserting customer %s: %w", c.ID, err)
		}
	}

	restaurantStmt := `
        INSERT INTO restaurants (
            id, name, quality_rating, review_policy,
            rating, review_count, visits, revenue
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	reviewStmt := `
        INSERT INTO reviews (
            id, customer_id, restaurant_id, stars, text,
            date, ordered_item, label, seed
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	for _, r := range restaurants {
		_, err = tx.Exec(ctx, restaurantStmt,
			r.ID,
			r.Name,
			r.QualityRating,
			r.ReviewPolicy,
			r.Rating,
			r.ReviewCount(),
			r.Visits,
			r.Revenue,
		)
		if err != nil {
			return fmt.Errorf("error inserting restaurant %s: %w", r.ID, err)
		}
		for _, rv := range r.AllReviews() {
			_, err = tx.Exec(ctx, reviewStmt,
				rv.ID,
				rv.CustomerID,
				rv.RestaurantID,
				rv.Stars,
				rv.Text,
				rv.Date,
				rv.OrderedItem,
				rv.Label,
				rv.Seed,
			)
			if err != nil {
				return fmt.Errorf("error inserting review %s: %w", rv.ID, err)
			}
		}
	}

	eventStmt := `
        INSERT INTO decision_events (
            event_time, day, customer_id, outcome,
            restaurant_id, item, price, reason, failure_cause
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	for _, e := range events {
		_, err = tx.Exec(ctx, eventStmt,
			e.Timestamp,
			e.Day,
			e.CustomerID,
			e.Outcome,
			e.RestaurantID,
			e.Item,
			e.Price,
			e.Reason,
			e.FailureCause,
		)
		if err != nil {
			return fmt.Errorf("error inserting decision event: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func (s *PostgresSink) Close() {
	s.pool.Close()
}
