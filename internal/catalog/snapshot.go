package catalog

import (
	"context"
	"sort"
	"strings"
	"time"
)

// Lookup returns a point-in-time catalog snapshot covering the requested ids.
type Lookup interface {
	Snapshot(ctx context.Context, refs Refs) (*Snapshot, error)
}

// Refs lists the catalog ids one computation needs.
type Refs struct {
	SizeIDs      []string `json:"sizeIds,omitempty"`
	CrustIDs     []string `json:"crustIds,omitempty"`
	SauceIDs     []string `json:"sauceIds,omitempty"`
	ToppingIDs   []string `json:"toppingIds,omitempty"`
	MenuItemIDs  []string `json:"menuItemIds,omitempty"`
	OptionIDs    []string `json:"optionIds,omitempty"`
	SpecialtyIDs []string `json:"specialtyIds,omitempty"`
}

// Merge appends the ids of other to r.
func (r Refs) Merge(other Refs) Refs {
	return Refs{
		SizeIDs:      append(append([]string{}, r.SizeIDs...), other.SizeIDs...),
		CrustIDs:     append(append([]string{}, r.CrustIDs...), other.CrustIDs...),
		SauceIDs:     append(append([]string{}, r.SauceIDs...), other.SauceIDs...),
		ToppingIDs:   append(append([]string{}, r.ToppingIDs...), other.ToppingIDs...),
		MenuItemIDs:  append(append([]string{}, r.MenuItemIDs...), other.MenuItemIDs...),
		OptionIDs:    append(append([]string{}, r.OptionIDs...), other.OptionIDs...),
		SpecialtyIDs: append(append([]string{}, r.SpecialtyIDs...), other.SpecialtyIDs...),
	}
}

// Normalize trims, de-duplicates and sorts every id list.
func (r Refs) Normalize() Refs {
	return Refs{
		SizeIDs:      normalizeIDs(r.SizeIDs),
		CrustIDs:     normalizeIDs(r.CrustIDs),
		SauceIDs:     normalizeIDs(r.SauceIDs),
		ToppingIDs:   normalizeIDs(r.ToppingIDs),
		MenuItemIDs:  normalizeIDs(r.MenuItemIDs),
		OptionIDs:    normalizeIDs(r.OptionIDs),
		SpecialtyIDs: normalizeIDs(r.SpecialtyIDs),
	}
}

// Empty reports whether no ids are referenced.
func (r Refs) Empty() bool {
	return len(r.SizeIDs)+len(r.CrustIDs)+len(r.SauceIDs)+len(r.ToppingIDs)+
		len(r.MenuItemIDs)+len(r.OptionIDs)+len(r.SpecialtyIDs) == 0
}

// Key returns a canonical representation suitable for cache keys.
func (r Refs) Key() string {
	n := r.Normalize()
	parts := []string{
		"s=" + strings.Join(n.SizeIDs, ","),
		"c=" + strings.Join(n.CrustIDs, ","),
		"u=" + strings.Join(n.SauceIDs, ","),
		"t=" + strings.Join(n.ToppingIDs, ","),
		"m=" + strings.Join(n.MenuItemIDs, ","),
		"o=" + strings.Join(n.OptionIDs, ","),
		"p=" + strings.Join(n.SpecialtyIDs, ","),
	}
	return strings.Join(parts, ";")
}

func normalizeIDs(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Snapshot is a read-only set of priced entities fetched for one computation.
type Snapshot struct {
	Sizes         map[string]Size                `json:"sizes"`
	Crusts        map[string]Crust               `json:"crusts"`
	Sauces        map[string]Sauce               `json:"sauces"`
	Toppings      map[string]Topping             `json:"toppings"`
	MenuItems     map[string]MenuItem            `json:"menuItems"`
	Groups        map[string]CustomizationGroup  `json:"groups"`
	Options       map[string]CustomizationOption `json:"options"`
	Specialties   map[string]SpecialtyPizza      `json:"specialties"`
	AllowInactive bool                           `json:"allowInactive"`
	TakenAt       time.Time                      `json:"takenAt"`
}

// NewSnapshot returns an empty snapshot with initialised maps.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Sizes:       map[string]Size{},
		Crusts:      map[string]Crust{},
		Sauces:      map[string]Sauce{},
		Toppings:    map[string]Topping{},
		MenuItems:   map[string]MenuItem{},
		Groups:      map[string]CustomizationGroup{},
		Options:     map[string]CustomizationOption{},
		Specialties: map[string]SpecialtyPizza{},
	}
}

type activeEntity interface {
	active() bool
}

func find[T activeEntity](entries map[string]T, kind Kind, id string, allowInactive bool) (T, error) {
	entry, ok := entries[id]
	if !ok {
		var zero T
		return zero, &UnknownReferenceError{Kind: kind, ID: id}
	}
	if !entry.active() && !allowInactive {
		var zero T
		return zero, &UnknownReferenceError{Kind: kind, ID: id, Inactive: true}
	}
	return entry, nil
}

// Size returns the size with the given id or an UnknownReferenceError.
func (s *Snapshot) Size(id string) (Size, error) {
	return find(s.Sizes, KindSize, id, s.AllowInactive)
}

// Crust returns the crust with the given id or an UnknownReferenceError.
func (s *Snapshot) Crust(id string) (Crust, error) {
	return find(s.Crusts, KindCrust, id, s.AllowInactive)
}

// Sauce returns the sauce with the given id or an UnknownReferenceError.
func (s *Snapshot) Sauce(id string) (Sauce, error) {
	return find(s.Sauces, KindSauce, id, s.AllowInactive)
}

// Topping returns the topping with the given id or an UnknownReferenceError.
func (s *Snapshot) Topping(id string) (Topping, error) {
	return find(s.Toppings, KindTopping, id, s.AllowInactive)
}

// MenuItem returns the menu item with the given id or an UnknownReferenceError.
func (s *Snapshot) MenuItem(id string) (MenuItem, error) {
	return find(s.MenuItems, KindMenuItem, id, s.AllowInactive)
}

// Group returns the customization group with the given id or an UnknownReferenceError.
func (s *Snapshot) Group(id string) (CustomizationGroup, error) {
	return find(s.Groups, KindGroup, id, s.AllowInactive)
}

// Option returns the customization option with the given id or an UnknownReferenceError.
func (s *Snapshot) Option(id string) (CustomizationOption, error) {
	return find(s.Options, KindOption, id, s.AllowInactive)
}

// Specialty returns the specialty pizza with the given id or an UnknownReferenceError.
func (s *Snapshot) Specialty(id string) (SpecialtyPizza, error) {
	return find(s.Specialties, KindSpecialty, id, s.AllowInactive)
}

// GroupsFor returns the groups attached to item in display order. Groups the
// snapshot does not hold are reported as unknown references.
func (s *Snapshot) GroupsFor(item MenuItem) ([]CustomizationGroup, error) {
	groups := make([]CustomizationGroup, 0, len(item.GroupIDs))
	for _, id := range item.GroupIDs {
		g, err := s.Group(id)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	sort.SliceStable(groups, func(i, j int) bool { return groups[i].SortOrder < groups[j].SortOrder })
	return groups, nil
}
