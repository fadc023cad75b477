package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

// seedNamespace derives stable ids so the seeder can be re-run safely.
var seedNamespace = uuid.MustParse("6f1c5f0e-8d4a-4c55-9a3e-2b1f7f0f4a11")

func id(kind, name string) string {
	return uuid.NewSHA1(seedNamespace, []byte(kind+":"+name)).String()
}

type priced struct {
	Name  string
	Price int64
}

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping DB: %v", err)
	}

	tx, err := db.Begin()
	if err != nil {
		log.Fatalf("Failed to begin transaction: %v", err)
	}
	defer func() { _ = tx.Rollback() }()

	steps := []struct {
		name string
		fn   func(*sql.Tx) error
	}{
		{"Sizes", seedSizes},
		{"Crusts", seedModifiers("crusts", []priced{{"Thin", 0}, {"Hand Tossed", 0}, {"Stuffed", 250}})},
		{"Sauces", seedModifiers("sauces", []priced{{"Marinara", 0}, {"Alfredo", 100}, {"BBQ", 75}})},
		{"Toppings", seedToppings},
		{"Specialty pizzas", seedSpecialties},
		{"Menu items", seedMenuItems},
	}
	for _, s := range steps {
		fmt.Printf("Seeding %s...\n", s.name)
		if err := s.fn(tx); err != nil {
			log.Fatalf("Failed to seed %s: %v", s.name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		log.Fatalf("Failed to commit: %v", err)
	}
	log.Println("Seeding completed successfully!")
}

func seedSizes(tx *sql.Tx) error {
	sizes := []priced{{"Small", 1000}, {"Medium", 1200}, {"Large", 1500}, {"Extra Large", 1800}}
	for i, s := range sizes {
		_, err := tx.Exec(`
			INSERT INTO sizes (id, name, base_price, sort_order)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, base_price = EXCLUDED.base_price, sort_order = EXCLUDED.sort_order;
		`, id("size", s.Name), s.Name, s.Price, i)
		if err != nil {
			return fmt.Errorf("size %s: %w", s.Name, err)
		}
	}
	return nil
}

func seedModifiers(table string, rows []priced) func(*sql.Tx) error {
	return func(tx *sql.Tx) error {
		for _, r := range rows {
			_, err := tx.Exec(fmt.Sprintf(`
				INSERT INTO %s (id, name, modifier)
				VALUES ($1, $2, $3)
				ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, modifier = EXCLUDED.modifier;
			`, table), id(table, r.Name), r.Name, r.Price)
			if err != nil {
				return fmt.Errorf("%s %s: %w", table, r.Name, err)
			}
		}
		return nil
	}
}

func seedToppings(tx *sql.Tx) error {
	toppings := []priced{
		{"Pepperoni", 200}, {"Sausage", 200}, {"Bacon", 250}, {"Ham", 200},
		{"Mushroom", 150}, {"Onion", 100}, {"Green Pepper", 100}, {"Black Olive", 100},
		{"Pineapple", 125}, {"Extra Cheese", 175},
	}
	for _, t := range toppings {
		_, err := tx.Exec(`
			INSERT INTO toppings (id, name, price)
			VALUES ($1, $2, $3)
			ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, price = EXCLUDED.price;
		`, id("topping", t.Name), t.Name, t.Price)
		if err != nil {
			return fmt.Errorf("topping %s: %w", t.Name, err)
		}
	}
	return nil
}

func seedSpecialties(tx *sql.Tx) error {
	specialties := []struct {
		Name     string
		Price    int64
		Toppings []string
	}{
		{"Meat Lovers", 1800, []string{"Pepperoni", "Sausage", "Bacon", "Ham"}},
		{"Veggie Supreme", 1650, []string{"Mushroom", "Onion", "Green Pepper", "Black Olive"}},
		{"Hawaiian", 1600, []string{"Ham", "Pineapple"}},
	}
	for _, s := range specialties {
		spID := id("specialty", s.Name)
		_, err := tx.Exec(`
			INSERT INTO specialty_pizzas (id, name, base_price, default_size_id, default_crust_id, default_sauce_id)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, base_price = EXCLUDED.base_price;
		`, spID, s.Name, s.Price, id("size", "Medium"), id("crusts", "Hand Tossed"), id("sauces", "Marinara"))
		if err != nil {
			return fmt.Errorf("specialty %s: %w", s.Name, err)
		}
		for pos, topping := range s.Toppings {
			_, err := tx.Exec(`
				INSERT INTO specialty_pizza_toppings (specialty_id, topping_id, section, intensity, position)
				VALUES ($1, $2, 'WHOLE', 'REGULAR', $3)
				ON CONFLICT (specialty_id, topping_id) DO UPDATE SET position = EXCLUDED.position;
			`, spID, id("topping", topping), pos)
			if err != nil {
				return fmt.Errorf("specialty %s topping %s: %w", s.Name, topping, err)
			}
		}
	}
	return nil
}

type option struct {
	Name          string
	Price         int64
	AllowQuantity bool
	MaxQuantity   int
}

type group struct {
	Name     string
	Type     string
	Required bool
	Min      int
	Max      *int
	Options  []option
}

func seedMenuItems(tx *sql.Tx) error {
	two := 2
	items := []struct {
		Name   string
		Price  int64
		Groups []group
	}{
		{"Italian Sub", 900, []group{
			{Name: "Bread", Type: "SINGLE_SELECT", Required: true, Min: 1, Options: []option{{Name: "White"}, {Name: "Wheat"}, {Name: "Garlic", Price: 75}}},
			{Name: "Sides", Type: "SPECIAL_LOGIC", Required: true, Min: 2, Max: &two, Options: []option{{Name: "Chips"}, {Name: "Coleslaw"}, {Name: "Pickle", Price: 50}}},
			{Name: "Extras", Type: "MULTI_SELECT", Options: []option{{Name: "Extra Cheese", Price: 100, AllowQuantity: true, MaxQuantity: 3}, {Name: "Jalapenos", Price: 50}}},
		}},
		{"Garden Salad", 700, []group{
			{Name: "Dressing", Type: "SINGLE_SELECT", Required: true, Min: 1, Options: []option{{Name: "Ranch"}, {Name: "Italian"}, {Name: "Balsamic", Price: 25}}},
			{Name: "Add Protein", Type: "MULTI_SELECT", Options: []option{{Name: "Grilled Chicken", Price: 300}, {Name: "Shrimp", Price: 400}}},
		}},
	}
	for _, it := range items {
		itemID := id("menu_item", it.Name)
		_, err := tx.Exec(`
			INSERT INTO menu_items (id, name, base_price)
			VALUES ($1, $2, $3)
			ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, base_price = EXCLUDED.base_price;
		`, itemID, it.Name, it.Price)
		if err != nil {
			return fmt.Errorf("menu item %s: %w", it.Name, err)
		}
		for gi, g := range it.Groups {
			groupID := id("group", it.Name+"/"+g.Name)
			_, err := tx.Exec(`
				INSERT INTO customization_groups (id, menu_item_id, name, type, is_required, min_selections, max_selections, sort_order)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
				ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, type = EXCLUDED.type, is_required = EXCLUDED.is_required,
					min_selections = EXCLUDED.min_selections, max_selections = EXCLUDED.max_selections, sort_order = EXCLUDED.sort_order;
			`, groupID, itemID, g.Name, g.Type, g.Required, g.Min, g.Max, gi)
			if err != nil {
				return fmt.Errorf("group %s/%s: %w", it.Name, g.Name, err)
			}
			for oi, o := range g.Options {
				maxQty := o.MaxQuantity
				if maxQty < 1 {
					maxQty = 1
				}
				_, err := tx.Exec(`
					INSERT INTO customization_options (id, group_id, name, price_modifier, allow_quantity, max_quantity, sort_order)
					VALUES ($1, $2, $3, $4, $5, $6, $7)
					ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, price_modifier = EXCLUDED.price_modifier,
						allow_quantity = EXCLUDED.allow_quantity, max_quantity = EXCLUDED.max_quantity, sort_order = EXCLUDED.sort_order;
				`, id("option", it.Name+"/"+g.Name+"/"+o.Name), groupID, o.Name, o.Price, o.AllowQuantity, maxQty, oi)
				if err != nil {
					return fmt.Errorf("option %s: %w", o.Name, err)
				}
			}
		}
	}
	return nil
}
