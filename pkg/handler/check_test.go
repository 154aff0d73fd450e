package handler

import (
	"testing"

	"github.com/newtron-network/newtcli/pkg/schema"
)

func TestFamilyAndVersionChecks(t *testing.T) {
	tests := []struct {
		name   string
		check  Check
		device Device
		want   bool
	}{
		{"nil check", nil, Device{}, true},
		{"family match", Family("ios", "ios-xe"), Device{Family: "ios-xe"}, true},
		{"family miss", Family("ios"), Device{Family: "vrp"}, false},
		{"version newer", MinVersion("15.2"), Device{Version: "15.2(4)M"}, true},
		{"version equal", MinVersion("15.2.4"), Device{Version: "15.2(4)M"}, true},
		{"version older", MinVersion("15.2"), Device{Version: "12.4(24)T"}, false},
		{"version unknown", MinVersion("15.2"), Device{}, true},
		{"all", All(Family("ios"), MinVersion("15")), Device{Family: "ios", Version: "12.4"}, false},
		{"any", Any(Family("vrp"), MinVersion("15")), Device{Family: "ios", Version: "16.9"}, true},
		{"not", Not(Family("vrp")), Device{Family: "ios"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.check.Allows(&CheckInput{Device: tt.device}); got != tt.want {
				t.Errorf("Allows() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSiblingPresent(t *testing.T) {
	observed := schema.NewTree()
	desired := schema.NewTree()
	desired.Set(schema.MustParsePath("/protocols/bgp/global"), schema.Bag{"as": 65000})

	check := SiblingPresent("../../global")
	neighbor := schema.MustParsePath("/protocols/bgp/neighbors/neighbor[10.0.0.1]")

	create := &CheckInput{Path: neighbor, Operation: schema.OpCreate, Observed: observed, Desired: desired}
	if !check(create) {
		t.Error("create should consult the desired tree")
	}

	del := &CheckInput{Path: neighbor, Operation: schema.OpDelete, Observed: observed, Desired: desired}
	if check(del) {
		t.Error("delete should consult the observed tree")
	}

	read := &CheckInput{Path: neighbor, Operation: schema.OpRead}
	if check(read) {
		t.Error("read with no observed state should reject")
	}
}

func TestOperations(t *testing.T) {
	c := Operations(schema.OpRead)
	if !c(&CheckInput{Operation: schema.OpRead}) || c(&CheckInput{Operation: schema.OpCreate}) {
		t.Error("Operations check mismatch")
	}
}
