package sqlstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/platinummonkey/agora/pkg/models"
)

// CreateRegion inserts a region and its postcodes
func (s *Store) CreateRegion(ctx context.Context, r *models.Region) error {
	if r.ID == "" {
		r.ID = s.newID()
	}
	suburbs, err := json.Marshal(r.Suburbs)
	if err != nil {
		return fmt.Errorf("failed to marshal suburbs: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable("create region", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO regions (id, name, type, suburbs) VALUES ($1, $2, $3, $4)`,
		r.ID, r.Name, r.Type, string(suburbs)); err != nil {
		return unavailable("create region", err)
	}
	r.Postcodes = uniqueStrings(r.Postcodes)
	for _, pc := range r.Postcodes {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO region_postcodes (region_id, postcode) VALUES ($1, $2)`, r.ID, pc); err != nil {
			return unavailable("add postcode", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return unavailable("create region", err)
	}
	return nil
}

// GetRegions fetches the named regions with their postcodes. Missing ids are
// simply absent from the result.
func (s *Store) GetRegions(ctx context.Context, ids []string) ([]*models.Region, error) {
	ids = uniqueStrings(ids)
	if len(ids) == 0 {
		return []*models.Region{}, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, type, suburbs FROM regions
		WHERE id IN (`+placeholders(1, len(ids))+`)`, stringArgs(ids)...)
	if err != nil {
		return nil, unavailable("get regions", err)
	}
	defer rows.Close()

	byID := make(map[string]*models.Region, len(ids))
	for rows.Next() {
		var (
			r           models.Region
			suburbsJSON string
		)
		if err := rows.Scan(&r.ID, &r.Name, &r.Type, &suburbsJSON); err != nil {
			return nil, unavailable("scan region", err)
		}
		if err := json.Unmarshal([]byte(suburbsJSON), &r.Suburbs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal suburbs: %w", err)
		}
		r.Postcodes = []string{}
		byID[r.ID] = &r
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("get regions", err)
	}
	if len(byID) == 0 {
		return []*models.Region{}, nil
	}

	found := make([]string, 0, len(byID))
	for id := range byID {
		found = append(found, id)
	}
	sort.Strings(found)

	pcRows, err := s.db.QueryContext(ctx, `
		SELECT region_id, postcode FROM region_postcodes
		WHERE region_id IN (`+placeholders(1, len(found))+`)
		ORDER BY postcode`, stringArgs(found)...)
	if err != nil {
		return nil, unavailable("get postcodes", err)
	}
	defer pcRows.Close()
	for pcRows.Next() {
		var regionID, postcode string
		if err := pcRows.Scan(&regionID, &postcode); err != nil {
			return nil, unavailable("scan postcode", err)
		}
		byID[regionID].Postcodes = append(byID[regionID].Postcodes, postcode)
	}
	if err := pcRows.Err(); err != nil {
		return nil, unavailable("get postcodes", err)
	}

	regions := make([]*models.Region, 0, len(byID))
	for _, id := range ids {
		if r, ok := byID[id]; ok {
			regions = append(regions, r)
		}
	}
	return regions, nil
}

// ReplacePostcodes swaps a region's postcode set
func (s *Store) ReplacePostcodes(ctx context.Context, regionID string, postcodes []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable("replace postcodes", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM regions WHERE id = $1`, regionID).Scan(&exists); err != nil {
		return unavailable("replace postcodes", err)
	}
	if exists == 0 {
		return notFound("region", regionID)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM region_postcodes WHERE region_id = $1`, regionID); err != nil {
		return unavailable("replace postcodes", err)
	}
	for _, pc := range uniqueStrings(postcodes) {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO region_postcodes (region_id, postcode) VALUES ($1, $2)`, regionID, pc); err != nil {
			return unavailable("replace postcodes", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return unavailable("replace postcodes", err)
	}
	return nil
}
