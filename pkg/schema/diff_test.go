package schema

import "testing"

func TestDiffOperation(t *testing.T) {
	tests := []struct {
		name string
		d    Diff
		want Operation
	}{
		{"both absent", Diff{}, OpNone},
		{"both empty", Diff{Before: Bag{}, After: Bag{}}, OpNone},
		{"create", Diff{After: Bag{"autoNegotiate": true}}, OpCreate},
		{"delete", Diff{Before: Bag{"autoNegotiate": true}, After: Bag{}}, OpDelete},
		{"update", Diff{Before: Bag{"mtu": 1500}, After: Bag{"mtu": 9000}}, OpUpdate},
		{"equal", Diff{Before: Bag{"autoNegotiate": true}, After: Bag{"autoNegotiate": true}}, OpNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.d.Operation(); got != tt.want {
				t.Errorf("Operation() = %s, want %s", got, tt.want)
			}
			if tt.d.IsNoop() != (tt.want == OpNone) {
				t.Errorf("IsNoop() = %v", tt.d.IsNoop())
			}
		})
	}
}

func TestFlatten(t *testing.T) {
	before := NewTree()
	before.Set(MustParsePath("/system/config"), Bag{"hostname": "r1"})
	before.Set(MustParsePath("/vlans/vlan[10]"), Bag{"vlanId": 10, "name": "users"})
	before.Set(MustParsePath("/vlans/vlan[20]"), Bag{"vlanId": 20})

	after := NewTree()
	after.Set(MustParsePath("/system/config"), Bag{"hostname": "r2"})
	after.Set(MustParsePath("/vlans/vlan[10]"), Bag{"vlanId": 10, "name": "users"})
	after.Set(MustParsePath("/vlans/vlan[30]"), Bag{"vlanId": 30})

	changes := Flatten(before, after)

	want := []struct {
		path string
		op   Operation
	}{
		{"/system/config", OpUpdate},
		{"/vlans/vlan[30]", OpCreate},
		{"/vlans/vlan[20]", OpDelete},
	}
	if len(changes) != len(want) {
		t.Fatalf("Flatten() returned %d changes, want %d: %+v", len(changes), len(want), changes)
	}
	for i, w := range want {
		if changes[i].Path.String() != w.path || changes[i].Diff.Operation() != w.op {
			t.Errorf("change %d = %s %s, want %s %s", i,
				changes[i].Diff.Operation(), changes[i].Path, w.op, w.path)
		}
	}
}

func TestFlattenIdentical(t *testing.T) {
	tree := NewTree()
	tree.Set(MustParsePath("/interfaces/interface[Ethernet0]/ethernet"), Bag{"autoNegotiate": true})

	if changes := Flatten(tree, tree.Clone()); len(changes) != 0 {
		t.Errorf("Flatten(X, X) = %+v, want none", changes)
	}
	if changes := Flatten(nil, nil); len(changes) != 0 {
		t.Errorf("Flatten(nil, nil) = %+v, want none", changes)
	}
}
