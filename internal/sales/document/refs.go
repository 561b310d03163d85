package document

import (
	"context"
	"fmt"

	"github.com/festa-erp/festa/internal/ledger"
	"github.com/festa-erp/festa/internal/shared"
)

// References answers whether the ids a document points at exist for the company.
type References interface {
	ClientExists(ctx context.Context, companyID, id int64) (bool, error)
	VenueExists(ctx context.Context, companyID, id int64) (bool, error)
	CategoryExists(ctx context.Context, companyID, id int64) (bool, error)
	MissingItems(ctx context.Context, companyID int64, ids []int64) ([]int64, error)
}

// CheckReferences reports unknown client, venue, category or catalog items as a
// validation error naming each offending field.
func CheckReferences(ctx context.Context, refs References, companyID int64, f Fields, items []ledger.LineItem) error {
	verr := &shared.ValidationError{}
	ok, err := refs.ClientExists(ctx, companyID, f.ClientID)
	if err != nil {
		return err
	}
	if !ok {
		verr.Add("client_id", "unknown client")
	}
	if f.VenueID != nil {
		if ok, err = refs.VenueExists(ctx, companyID, *f.VenueID); err != nil {
			return err
		} else if !ok {
			verr.Add("venue_id", "unknown venue")
		}
	}
	if f.CategoryID != nil {
		if ok, err = refs.CategoryExists(ctx, companyID, *f.CategoryID); err != nil {
			return err
		} else if !ok {
			verr.Add("category_id", "unknown category")
		}
	}
	if len(items) > 0 {
		ids := make([]int64, len(items))
		for i, it := range items {
			ids[i] = it.ItemID
		}
		missing, err := refs.MissingItems(ctx, companyID, ids)
		if err != nil {
			return err
		}
		for _, id := range missing {
			for i, it := range items {
				if it.ItemID == id {
					verr.Add(fmt.Sprintf("items[%d].item_id", i), "unknown catalog item")
				}
			}
		}
	}
	return verr.OrNil()
}
