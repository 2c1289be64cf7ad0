package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"ms-marketplace/internal/models"
	"sort"

	"github.com/uptrace/bun"
)

// Service derives festival statistics from tickets and the event outbox.
type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db: db}
}

// FestivalStats summarises one festival's ticket and money flow.
type FestivalStats struct {
	FestivalID     string              `json:"festival_id"`
	TotalMinted    int                 `json:"total_minted"`
	TotalVerified  int                 `json:"total_verified"`
	TotalListed    int                 `json:"total_listed"`
	TotalGifted    int                 `json:"total_gifted"`
	UniqueHolders  int                 `json:"unique_holders"`
	PrimarySales   int                 `json:"primary_sales"`
	PrimaryRevenue models.Amount       `json:"primary_revenue"`
	Resales        int                 `json:"resales"`
	ResaleVolume   models.Amount       `json:"resale_volume"`
	Commission     models.Amount       `json:"commission_total"`
	Royalties      models.Amount       `json:"royalty_total"`
	DailySales     []DailySalesMetrics `json:"daily_sales"`
}

// DailySalesMetrics contains settled sales for a single day.
type DailySalesMetrics struct {
	Date        string        `json:"date"`
	Primary     int           `json:"primary_sales"`
	Resales     int           `json:"resales"`
	Volume      models.Amount `json:"volume"`
	TicketsSold int           `json:"tickets_sold"`
}

// OrganiserStats aggregates every festival run by one organiser.
type OrganiserStats struct {
	Organiser      string          `json:"organiser"`
	Festivals      []FestivalStats `json:"festivals"`
	TotalMinted    int             `json:"total_minted"`
	PrimaryRevenue models.Amount   `json:"primary_revenue"`
	Royalties      models.Amount   `json:"royalty_total"`
}

func (s *Service) GetFestivalStats(ctx context.Context, festivalID string) (*FestivalStats, error) {
	exists, err := s.db.NewSelect().Model((*models.Festival)(nil)).Where("id = ?", festivalID).Exists(ctx)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("festival %s: %w", festivalID, models.ErrFestivalNotFound)
	}

	stats := &FestivalStats{FestivalID: festivalID, DailySales: []DailySalesMetrics{}}

	var counts struct {
		Minted   int `bun:"minted"`
		Verified int `bun:"verified"`
		Listed   int `bun:"listed"`
		Gifted   int `bun:"gifted"`
		Holders  int `bun:"holders"`
	}
	err = s.db.NewSelect().
		Model((*models.Ticket)(nil)).
		ColumnExpr("COUNT(*) AS minted").
		ColumnExpr("COALESCE(SUM(CASE WHEN is_verified THEN 1 ELSE 0 END), 0) AS verified").
		ColumnExpr("COALESCE(SUM(CASE WHEN is_for_sale THEN 1 ELSE 0 END), 0) AS listed").
		ColumnExpr("COALESCE(SUM(CASE WHEN is_gifted THEN 1 ELSE 0 END), 0) AS gifted").
		ColumnExpr("COUNT(DISTINCT owner) AS holders").
		Where("festival_id = ?", festivalID).
		Scan(ctx, &counts)
	if err != nil {
		return nil, fmt.Errorf("failed to count tickets: %w", err)
	}
	stats.TotalMinted = counts.Minted
	stats.TotalVerified = counts.Verified
	stats.TotalListed = counts.Listed
	stats.TotalGifted = counts.Gifted
	stats.UniqueHolders = counts.Holders

	// Amounts are decimal strings in the payloads, so sums are taken here
	// rather than in SQL.
	var sales []models.Event
	err = s.db.NewSelect().
		Model(&sales).
		Where("festival_id = ?", festivalID).
		Where("name IN (?)", bun.In([]string{models.EventTicketPurchasedFromOrganiser, models.EventTicketPurchasedFromCustomer})).
		Order("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load sales: %w", err)
	}

	daily := map[string]*DailySalesMetrics{}
	for _, ev := range sales {
		day := ev.CreatedAt.UTC().Format("2006-01-02")
		d, ok := daily[day]
		if !ok {
			d = &DailySalesMetrics{Date: day}
			daily[day] = d
		}

		switch ev.Name {
		case models.EventTicketPurchasedFromOrganiser:
			var p models.TicketPurchasedFromOrganiser
			if err := json.Unmarshal(ev.Payload, &p); err != nil {
				return nil, fmt.Errorf("event %d: %w", ev.ID, err)
			}
			stats.PrimarySales++
			stats.PrimaryRevenue += p.Price
			d.Primary++
			d.Volume += p.Price
		case models.EventTicketPurchasedFromCustomer:
			var p models.TicketPurchasedFromCustomer
			if err := json.Unmarshal(ev.Payload, &p); err != nil {
				return nil, fmt.Errorf("event %d: %w", ev.ID, err)
			}
			stats.Resales++
			stats.ResaleVolume += p.Price
			stats.Commission += p.Commission
			stats.Royalties += p.Royalty
			d.Resales++
			d.Volume += p.Price
		}
		d.TicketsSold++
	}

	for _, d := range daily {
		stats.DailySales = append(stats.DailySales, *d)
	}
	sort.Slice(stats.DailySales, func(i, j int) bool { return stats.DailySales[i].Date < stats.DailySales[j].Date })
	return stats, nil
}

func (s *Service) GetOrganiserStats(ctx context.Context, organiser string) (*OrganiserStats, error) {
	organiser = models.NormalizeAddress(organiser)
	var ids []string
	err := s.db.NewSelect().
		Model((*models.Festival)(nil)).
		Column("id").
		Where("organiser = ?", organiser).
		Order("created_at ASC").
		Scan(ctx, &ids)
	if err != nil {
		return nil, err
	}

	out := &OrganiserStats{Organiser: organiser, Festivals: []FestivalStats{}}
	for _, id := range ids {
		stats, err := s.GetFestivalStats(ctx, id)
		if err != nil {
			return nil, err
		}
		out.Festivals = append(out.Festivals, *stats)
		out.TotalMinted += stats.TotalMinted
		out.PrimaryRevenue += stats.PrimaryRevenue
		out.Royalties += stats.Royalties
	}
	return out, nil
}
