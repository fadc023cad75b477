package catalog

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestSnapshotRejectsMissingAndInactive(t *testing.T) {
	snap := NewSnapshot()
	snap.Sizes["m"] = Size{ID: "m", Name: "Medium", BasePrice: 1200, IsActive: true}
	snap.Toppings["old"] = Topping{ID: "old", Name: "Anchovy", Price: 150, IsActive: false}

	size, err := snap.Size("m")
	require.NoError(t, err)
	require.Equal(t, "Medium", size.Name)

	_, err = snap.Size("xl")
	require.ErrorIs(t, err, ErrUnknownReference)
	var unknown *UnknownReferenceError
	require.True(t, errors.As(err, &unknown))
	require.Equal(t, KindSize, unknown.Kind)
	require.False(t, unknown.Inactive)

	_, err = snap.Topping("old")
	require.ErrorIs(t, err, ErrUnknownReference)
	require.True(t, errors.As(err, &unknown))
	require.True(t, unknown.Inactive)

	snap.AllowInactive = true
	top, err := snap.Topping("old")
	require.NoError(t, err)
	require.Equal(t, "Anchovy", top.Name)
}

func TestGroupBounds(t *testing.T) {
	cases := []struct {
		name    string
		group   CustomizationGroup
		wantMin int
		wantMax int
	}{
		{"single optional", CustomizationGroup{Type: GroupSingleSelect}, 0, 1},
		{"single required", CustomizationGroup{Type: GroupSingleSelect, IsRequired: true}, 1, 1},
		{"single with wide max", CustomizationGroup{Type: GroupSingleSelect, MaxSelections: intPtr(4)}, 0, 1},
		{"multi unbounded", CustomizationGroup{Type: GroupMultiSelect}, 0, Unbounded},
		{"multi bounded required", CustomizationGroup{Type: GroupMultiSelect, IsRequired: true, MinSelections: 2, MaxSelections: intPtr(3)}, 2, 3},
		{"special exact", CustomizationGroup{Type: GroupSpecialLogic, MinSelections: 2, MaxSelections: intPtr(2)}, 2, 2},
		{"special max only", CustomizationGroup{Type: GroupSpecialLogic, MaxSelections: intPtr(3)}, 3, 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			min, max := tc.group.Bounds()
			require.Equal(t, tc.wantMin, min)
			require.Equal(t, tc.wantMax, max)
		})
	}
}

func TestRefsNormalizeAndKey(t *testing.T) {
	a := Refs{ToppingIDs: []string{"b", "a", " a ", ""}, SizeIDs: []string{"m"}}
	b := Refs{SizeIDs: []string{"m", "m"}, ToppingIDs: []string{"a", "b"}}
	require.Equal(t, []string{"a", "b"}, a.Normalize().ToppingIDs)
	require.Equal(t, a.Key(), b.Key())
	require.False(t, a.Empty())
	require.True(t, Refs{}.Empty())

	merged := a.Merge(Refs{OptionIDs: []string{"o1"}})
	require.Equal(t, []string{"o1"}, merged.OptionIDs)
	require.Len(t, a.OptionIDs, 0)
}

func TestGroupsForOrdersBySortOrder(t *testing.T) {
	snap := NewSnapshot()
	snap.Groups["g1"] = CustomizationGroup{ID: "g1", Name: "Sides", SortOrder: 2}
	snap.Groups["g2"] = CustomizationGroup{ID: "g2", Name: "Bread", SortOrder: 1}
	item := MenuItem{ID: "sub", GroupIDs: []string{"g1", "g2"}, IsActive: true}

	groups, err := snap.GroupsFor(item)
	require.NoError(t, err)
	require.Equal(t, "Bread", groups[0].Name)
	require.Equal(t, "Sides", groups[1].Name)

	item.GroupIDs = append(item.GroupIDs, "missing")
	_, err = snap.GroupsFor(item)
	require.ErrorIs(t, err, ErrUnknownReference)
}
