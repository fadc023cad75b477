package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/noah-isme/pizzeria-api/internal/money"
	"github.com/noah-isme/pizzeria-api/internal/obs"
)

type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresStore loads catalog snapshots straight from Postgres.
type PostgresStore struct {
	db            queryer
	allowInactive bool
	now           func() time.Time
}

// StoreConfig groups PostgresStore dependencies.
type StoreConfig struct {
	DB            queryer
	AllowInactive bool
	Now           func() time.Time
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(cfg StoreConfig) (*PostgresStore, error) {
	if cfg.DB == nil {
		return nil, fmt.Errorf("catalog: database is required")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &PostgresStore{db: cfg.DB, allowInactive: cfg.AllowInactive, now: now}, nil
}

// Snapshot implements Lookup. Ids that are not UUIDs can never exist and are
// left out of the queries so they surface as unknown references.
func (s *PostgresStore) Snapshot(ctx context.Context, refs Refs) (*Snapshot, error) {
	start := s.now()
	defer func() { obs.ObserveCatalogSnapshot(time.Since(start)) }()

	refs = refs.Normalize()
	snap := NewSnapshot()
	snap.AllowInactive = s.allowInactive
	snap.TakenAt = start

	if ids := uuidsOnly(refs.SpecialtyIDs); len(ids) > 0 {
		if err := s.loadSpecialties(ctx, snap, ids); err != nil {
			return nil, err
		}
	}
	if ids := uuidsOnly(refs.MenuItemIDs); len(ids) > 0 {
		if err := s.loadMenuItems(ctx, snap, ids); err != nil {
			return nil, err
		}
	}
	groupIDs := make([]string, 0, len(snap.Groups))
	for id := range snap.Groups {
		groupIDs = append(groupIDs, id)
	}
	if optionIDs := uuidsOnly(refs.OptionIDs); len(optionIDs) > 0 || len(groupIDs) > 0 {
		if err := s.loadOptions(ctx, snap, groupIDs, optionIDs); err != nil {
			return nil, err
		}
	}
	if ids := uuidsOnly(refs.SizeIDs); len(ids) > 0 {
		err := s.each(ctx, `SELECT id::text, name, base_price, is_active FROM sizes WHERE id = ANY($1::uuid[])`, ids, func(rows pgx.Rows) error {
			var v Size
			var price int64
			if err := rows.Scan(&v.ID, &v.Name, &price, &v.IsActive); err != nil {
				return err
			}
			v.BasePrice = money.BasePrice(price)
			snap.Sizes[v.ID] = v
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("load sizes: %w", err)
		}
	}
	if ids := uuidsOnly(refs.CrustIDs); len(ids) > 0 {
		err := s.each(ctx, `SELECT id::text, name, modifier, is_active FROM crusts WHERE id = ANY($1::uuid[])`, ids, func(rows pgx.Rows) error {
			var v Crust
			var mod int64
			if err := rows.Scan(&v.ID, &v.Name, &mod, &v.IsActive); err != nil {
				return err
			}
			v.Modifier = money.Modifier(mod)
			snap.Crusts[v.ID] = v
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("load crusts: %w", err)
		}
	}
	if ids := uuidsOnly(refs.SauceIDs); len(ids) > 0 {
		err := s.each(ctx, `SELECT id::text, name, modifier, is_active FROM sauces WHERE id = ANY($1::uuid[])`, ids, func(rows pgx.Rows) error {
			var v Sauce
			var mod int64
			if err := rows.Scan(&v.ID, &v.Name, &mod, &v.IsActive); err != nil {
				return err
			}
			v.Modifier = money.Modifier(mod)
			snap.Sauces[v.ID] = v
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("load sauces: %w", err)
		}
	}
	if ids := uuidsOnly(refs.ToppingIDs); len(ids) > 0 {
		err := s.each(ctx, `SELECT id::text, name, price, is_active FROM toppings WHERE id = ANY($1::uuid[])`, ids, func(rows pgx.Rows) error {
			var v Topping
			var price int64
			if err := rows.Scan(&v.ID, &v.Name, &price, &v.IsActive); err != nil {
				return err
			}
			v.Price = money.Modifier(price)
			snap.Toppings[v.ID] = v
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("load toppings: %w", err)
		}
	}
	return snap, nil
}

func (s *PostgresStore) loadSpecialties(ctx context.Context, snap *Snapshot, ids []string) error {
	err := s.each(ctx, `
		SELECT id::text, name, base_price, default_size_id::text, default_crust_id::text, default_sauce_id::text, is_active
		FROM specialty_pizzas
		WHERE id = ANY($1::uuid[])`, ids, func(rows pgx.Rows) error {
		var v SpecialtyPizza
		var price int64
		if err := rows.Scan(&v.ID, &v.Name, &price, &v.DefaultSizeID, &v.DefaultCrustID, &v.DefaultSauceID, &v.IsActive); err != nil {
			return err
		}
		v.BasePrice = money.BasePrice(price)
		snap.Specialties[v.ID] = v
		return nil
	})
	if err != nil {
		return fmt.Errorf("load specialties: %w", err)
	}
	err = s.each(ctx, `
		SELECT specialty_id::text, topping_id::text, section, intensity
		FROM specialty_pizza_toppings
		WHERE specialty_id = ANY($1::uuid[])
		ORDER BY specialty_id, position`, ids, func(rows pgx.Rows) error {
		var specialtyID string
		var t DefaultTopping
		if err := rows.Scan(&specialtyID, &t.ToppingID, &t.Section, &t.Intensity); err != nil {
			return err
		}
		sp := snap.Specialties[specialtyID]
		sp.Toppings = append(sp.Toppings, t)
		snap.Specialties[specialtyID] = sp
		return nil
	})
	if err != nil {
		return fmt.Errorf("load specialty toppings: %w", err)
	}
	return nil
}

func (s *PostgresStore) loadMenuItems(ctx context.Context, snap *Snapshot, ids []string) error {
	err := s.each(ctx, `SELECT id::text, name, base_price, is_active FROM menu_items WHERE id = ANY($1::uuid[])`, ids, func(rows pgx.Rows) error {
		var v MenuItem
		var price int64
		if err := rows.Scan(&v.ID, &v.Name, &price, &v.IsActive); err != nil {
			return err
		}
		v.BasePrice = money.BasePrice(price)
		snap.MenuItems[v.ID] = v
		return nil
	})
	if err != nil {
		return fmt.Errorf("load menu items: %w", err)
	}
	err = s.each(ctx, `
		SELECT id::text, menu_item_id::text, name, type, is_required, min_selections, max_selections, sort_order
		FROM customization_groups
		WHERE menu_item_id = ANY($1::uuid[])
		ORDER BY menu_item_id, sort_order, name`, ids, func(rows pgx.Rows) error {
		var g CustomizationGroup
		var groupType string
		var maxSel *int32
		var minSel, sortOrder int32
		if err := rows.Scan(&g.ID, &g.MenuItemID, &g.Name, &groupType, &g.IsRequired, &minSel, &maxSel, &sortOrder); err != nil {
			return err
		}
		g.Type = GroupType(groupType)
		g.MinSelections = int(minSel)
		g.SortOrder = int(sortOrder)
		if maxSel != nil {
			v := int(*maxSel)
			g.MaxSelections = &v
		}
		snap.Groups[g.ID] = g
		item := snap.MenuItems[g.MenuItemID]
		item.GroupIDs = append(item.GroupIDs, g.ID)
		snap.MenuItems[g.MenuItemID] = item
		return nil
	})
	if err != nil {
		return fmt.Errorf("load customization groups: %w", err)
	}
	return nil
}

func (s *PostgresStore) loadOptions(ctx context.Context, snap *Snapshot, groupIDs, optionIDs []string) error {
	rows, err := s.db.Query(ctx, `
		SELECT id::text, group_id::text, name, price_modifier, is_active, allow_quantity, max_quantity
		FROM customization_options
		WHERE group_id = ANY($1::uuid[]) OR id = ANY($2::uuid[])
		ORDER BY group_id, sort_order, name`, groupIDs, optionIDs)
	if err != nil {
		return fmt.Errorf("load customization options: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var o CustomizationOption
		var mod int64
		var maxQty int32
		if err := rows.Scan(&o.ID, &o.GroupID, &o.Name, &mod, &o.IsActive, &o.AllowQuantity, &maxQty); err != nil {
			return fmt.Errorf("scan customization option: %w", err)
		}
		o.PriceModifier = money.Modifier(mod)
		o.MaxQuantity = int(maxQty)
		snap.Options[o.ID] = o
		if g, ok := snap.Groups[o.GroupID]; ok {
			g.OptionIDs = append(g.OptionIDs, o.ID)
			snap.Groups[o.GroupID] = g
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("load customization options: %w", err)
	}
	return nil
}

func (s *PostgresStore) each(ctx context.Context, sql string, ids []string, scan func(pgx.Rows) error) error {
	rows, err := s.db.Query(ctx, sql, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		if err := scan(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

func uuidsOnly(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, err := uuid.Parse(id); err == nil {
			out = append(out, id)
		}
	}
	return out
}
