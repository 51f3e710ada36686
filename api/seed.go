/*
seed.go - Demo data loader

PURPOSE:
  Populates a fresh database with a small pricing catalog and staff
  directory so the API is usable out of the box. Dev/demo only; calling it
  twice is safe because rules and staff upsert on their logical keys.
*/
package api

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/warp/studio-ledger/pricing"
	"github.com/warp/studio-ledger/store/sqlite"
)

// SeedDemoData loads the demo catalog, staff directory and roster.
func (h *Handler) SeedDemoData(w http.ResponseWriter, r *http.Request) {
	if err := h.seed(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to seed demo data", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "seeded"})
}

func (h *Handler) seed(ctx context.Context) error {
	rules := []pricing.Rule{
		{Location: "Downtown", ServiceName: "Thai Massage", DurationMinutes: 60, Price: dec("250"), StaffFee: dec("100")},
		{Location: "Downtown", ServiceName: "Thai Massage", DurationMinutes: 90, Price: dec("375"), StaffFee: dec("150")},
		{Location: "Downtown", ServiceName: "Oil Massage", DurationMinutes: 60, Price: dec("280"), StaffFee: dec("110")},
		{Location: "Riverside", ServiceName: "Thai Massage", DurationMinutes: 60, Price: dec("220"), StaffFee: dec("90")},
		{Location: "Riverside", ServiceName: "Foot Massage", DurationMinutes: 30, Price: dec("120"), StaffFee: dec("50")},
	}
	for _, rule := range rules {
		if _, err := h.Catalog.Upsert(ctx, rule); err != nil {
			return err
		}
	}

	staff := []sqlite.Staff{
		{ID: newStaffID(), Name: "Anna", Phone: "555-0101", Active: true},
		{ID: newStaffID(), Name: "Mali", Phone: "555-0102", Active: true},
		{ID: newStaffID(), Name: "Som", Phone: "", Active: true},
	}
	for _, st := range staff {
		if err := h.Store.SaveStaff(ctx, st); err != nil {
			return err
		}
	}

	for _, name := range []string{"Anna", "Mali", "Som"} {
		if _, err := h.Roster.Add(name); err != nil {
			return err
		}
	}
	return nil
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }
