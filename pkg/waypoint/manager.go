// Package waypoint manages the waypoint database: validation against the operating region,
// code lookups and nearest-waypoint queries.
package waypoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"sort"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/uber/h3-go/v4"

	"fmsgo/pkg/config"
	"fmsgo/pkg/geo"
	"fmsgo/pkg/model"
	"fmsgo/pkg/store"
)

var (
	// ErrOutsideRegion is returned when a waypoint lies outside the operating region.
	ErrOutsideRegion = errors.New("waypoint outside operating region")
	// ErrInvalidWaypoint is returned for a waypoint without a code.
	ErrInvalidWaypoint = errors.New("invalid waypoint: code is required")
)

// Neighbor is a waypoint with its distance from a query point.
type Neighbor struct {
	Waypoint   model.Waypoint `json:"waypoint"`
	DistanceKm float64        `json:"distance_km"`
}

// Manager is safe for concurrent use.
type Manager struct {
	store      store.WaypointStore
	region     geo.Region
	resolution int
	maxRings   int
	inradiusKm float64
	cache      *lru.Cache[string, model.Waypoint]
	logger     *slog.Logger
}

// NewManager creates a manager over st that only accepts waypoints inside region.
func NewManager(st store.WaypointStore, region geo.Region, cfg config.WaypointsConfig, logger *slog.Logger) (*Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}
	size := cfg.CacheSize
	if size <= 0 {
		size = 256
	}
	cache, err := lru.New[string, model.Waypoint](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create waypoint cache: %w", err)
	}
	edgeKm, err := h3.HexagonEdgeLengthAvgKm(cfg.H3Resolution)
	if err != nil {
		return nil, fmt.Errorf("invalid h3 resolution %d: %w", cfg.H3Resolution, err)
	}
	return &Manager{
		store:      st,
		region:     region,
		resolution: cfg.H3Resolution,
		maxRings:   min(max(cfg.MaxRings, 0), config.MaxH3Rings),
		inradiusKm: edgeKm * math.Sqrt(3) / 2,
		cache:      cache,
		logger:     logger,
	}, nil
}

// Region returns the operating region.
func (m *Manager) Region() geo.Region {
	return m.region
}

// Add stores wp. It returns false without error when the code already exists.
func (m *Manager) Add(ctx context.Context, wp model.Waypoint) (bool, error) {
	if wp.Code == "" {
		return false, ErrInvalidWaypoint
	}
	if !m.region.Contains(wp.Position) {
		return false, fmt.Errorf("%w: %s at %.4f,%.4f is not in %s",
			ErrOutsideRegion, wp.Code, wp.Position.Lat, wp.Position.Lon, m.region.Name)
	}

	exists, err := m.store.HasWaypoint(ctx, wp.Code)
	if err != nil {
		return false, fmt.Errorf("failed to check waypoint %s: %w", wp.Code, err)
	}
	if exists {
		return false, nil
	}

	cell, err := m.cellOf(wp.Position)
	if err != nil {
		return false, err
	}
	if err := m.store.SaveWaypoint(ctx, &wp, cell); err != nil {
		return false, fmt.Errorf("failed to save waypoint %s: %w", wp.Code, err)
	}
	m.cache.Add(wp.Code, wp)

	m.logger.Debug("Waypoint added", "code", wp.Code, "name", wp.Name, "cell", cell)
	return true, nil
}

// GetByCode returns the waypoint with the code, or nil, nil if there is none.
func (m *Manager) GetByCode(ctx context.Context, code string) (*model.Waypoint, error) {
	if wp, ok := m.cache.Get(code); ok {
		return &wp, nil
	}

	wp, err := m.store.GetWaypoint(ctx, code)
	if err != nil {
		return nil, err
	}
	if wp == nil {
		return nil, nil
	}
	m.cache.Add(code, *wp)
	return wp, nil
}

// All returns every stored waypoint ordered by code.
func (m *Manager) All(ctx context.Context) ([]model.Waypoint, error) {
	wps, err := m.store.ListWaypoints(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.Waypoint, len(wps))
	for i, wp := range wps {
		out[i] = *wp
	}
	return out, nil
}

// Import adds each waypoint, skipping duplicates and waypoints outside the region.
func (m *Manager) Import(ctx context.Context, wps []model.Waypoint) (added, skipped int, err error) {
	for _, wp := range wps {
		ok, err := m.Add(ctx, wp)
		switch {
		case errors.Is(err, ErrOutsideRegion), errors.Is(err, ErrInvalidWaypoint):
			m.logger.Warn("Skipping waypoint", "code", wp.Code, "error", err)
			skipped++
		case err != nil:
			return added, skipped, err
		case !ok:
			skipped++
		default:
			added++
		}
	}
	return added, skipped, nil
}

// ReadJSON reads a waypoint file in the flat database layout.
func ReadJSON(path string) ([]model.Waypoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read waypoint file: %w", err)
	}
	var wps []model.Waypoint
	if err := json.Unmarshal(data, &wps); err != nil {
		return nil, fmt.Errorf("failed to parse waypoint file %s: %w", path, err)
	}
	return wps, nil
}

// ImportJSON reads a JSON waypoint file and imports it.
func (m *Manager) ImportJSON(ctx context.Context, path string) (added, skipped int, err error) {
	wps, err := ReadJSON(path)
	if err != nil {
		return 0, 0, err
	}

	added, skipped, err = m.Import(ctx, wps)
	if err != nil {
		return added, skipped, err
	}
	m.logger.Info("Imported waypoints", "path", path, "added", added, "skipped", skipped)
	return added, skipped, nil
}

// Seed inserts DefaultWaypoints when the database is empty and returns how many were added.
func (m *Manager) Seed(ctx context.Context) (int, error) {
	n, err := m.store.CountWaypoints(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count waypoints: %w", err)
	}
	if n > 0 {
		return 0, nil
	}

	added, _, err := m.Import(ctx, DefaultWaypoints())
	if err != nil {
		return added, err
	}
	m.logger.Info("Seeded waypoint database", "count", added)
	return added, nil
}

// Nearest returns up to limit waypoints closest to p by great-circle distance.
// H3 disks around p are widened until every waypoint outside the disk is provably farther
// than the limit-th candidate; when the rings cannot prove that, the whole database is ranked.
func (m *Manager) Nearest(ctx context.Context, p geo.Point, limit int) ([]Neighbor, error) {
	if limit <= 0 {
		return nil, nil
	}

	origin, err := h3.LatLngToCell(h3.NewLatLng(p.Lat, p.Lon), m.resolution)
	if err != nil {
		return nil, fmt.Errorf("failed to index point: %w", err)
	}

	for k := 0; k <= m.maxRings; k++ {
		candidates, err := m.inDisk(ctx, origin, k)
		if err != nil {
			return nil, err
		}
		if len(candidates) < limit {
			continue
		}
		ranked := rank(p, candidates)
		if ranked[limit-1].DistanceKm <= m.clearanceKm(k) {
			return ranked[:limit], nil
		}
	}

	all, err := m.store.ListWaypoints(ctx)
	if err != nil {
		return nil, err
	}
	ranked := rank(p, all)
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

// clearanceKm is a lower bound on the distance from a point in the origin cell to any
// waypoint outside its k-disk. Rings are about two inradii apart; one inradius per ring
// leaves room for H3 cells smaller than the resolution average.
func (m *Manager) clearanceKm(k int) float64 {
	return float64(k) * m.inradiusKm
}

func rank(p geo.Point, wps []*model.Waypoint) []Neighbor {
	out := make([]Neighbor, len(wps))
	for i, wp := range wps {
		out[i] = Neighbor{Waypoint: *wp, DistanceKm: geo.Distance(p, wp.Position)}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DistanceKm < out[j].DistanceKm })
	return out
}

func (m *Manager) inDisk(ctx context.Context, origin h3.Cell, k int) ([]*model.Waypoint, error) {
	disk, err := origin.GridDisk(k)
	if err != nil {
		return nil, fmt.Errorf("failed to expand grid disk: %w", err)
	}
	cells := make([]string, len(disk))
	for i, c := range disk {
		cells[i] = c.String()
	}
	return m.store.ListWaypointsInCells(ctx, cells)
}

func (m *Manager) cellOf(p geo.Point) (string, error) {
	cell, err := h3.LatLngToCell(h3.NewLatLng(p.Lat, p.Lon), m.resolution)
	if err != nil {
		return "", fmt.Errorf("failed to index waypoint: %w", err)
	}
	return cell.String(), nil
}
