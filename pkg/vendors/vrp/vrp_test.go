package vrp

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/newtron-network/newtcli/internal/testutil"
	"github.com/newtron-network/newtcli/pkg/engine"
	"github.com/newtron-network/newtcli/pkg/handler"
	"github.com/newtron-network/newtcli/pkg/schema"
	"github.com/newtron-network/newtcli/pkg/session"
)

var pe = handler.Device{Name: "PE1", Family: "vrp", Version: "V800R021C10"}

func read(t *testing.T, m *Module) *schema.Tree {
	t.Helper()
	plan, err := m.Plan()
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	ch := testutil.NewFakeChannel().On(showCurrent, testutil.ReadTestdata(t, "current-configuration.txt"))
	res, err := engine.New(plan, ch, pe, engine.WithErrorPatterns(m.ErrorPatterns())).Read(testutil.Context(t))
	if err != nil || !res.OK() {
		t.Fatalf("Read() = %v, %v", res, err)
	}
	return res.Tree
}

func TestRead(t *testing.T) {
	got := read(t, New())
	want := testutil.Tree(t, map[string]schema.Bag{
		"/system/config": {"hostname": "PE1"},

		"/interfaces/interface[GigabitEthernet0/0/0]":        {"name": "GigabitEthernet0/0/0"},
		"/interfaces/interface[GigabitEthernet0/0/0]/config": {"description": "to-core", "mtu": 9000, "enabled": true},
		"/interfaces/interface[GigabitEthernet0/0/1]":        {"name": "GigabitEthernet0/0/1"},
		"/interfaces/interface[GigabitEthernet0/0/1]/config": {"enabled": false},
		"/interfaces/interface[LoopBack0]":                   {"name": "LoopBack0"},
		"/interfaces/interface[LoopBack0]/config":            {"description": "router-id", "enabled": true},
	})
	if !got.Equal(want) {
		t.Errorf("Read() =\n%v\nwant\n%v", got.Flatten(), want.Flatten())
	}
}

func TestApply(t *testing.T) {
	m := New()
	observed := read(t, m)

	desired := observed.Clone()
	desired.Set(schema.MustParsePath("/system/config"), schema.Bag{"hostname": "PE2"})
	desired.Set(schema.MustParsePath("/interfaces/interface[GigabitEthernet0/0/0]/config"), schema.Bag{"enabled": true})
	desired.Set(schema.MustParsePath("/interfaces/interface[GigabitEthernet0/0/1]/config"), schema.Bag{"enabled": true})
	desired.Set(schema.MustParsePath("/interfaces/interface[LoopBack1]"), schema.Bag{"name": "LoopBack1"})
	desired.Set(schema.MustParsePath("/interfaces/interface[LoopBack1]/config"), schema.Bag{"description": "mgmt"})

	plan, _ := m.Plan()
	rec := session.NewRecorder()
	res, err := engine.New(plan, rec, pe, engine.WithErrorPatterns(m.ErrorPatterns())).Apply(testutil.Context(t), observed, desired)
	if err != nil || !res.OK() {
		t.Fatalf("Apply() = %+v, %v", res, err)
	}

	g := goldie.New(t, goldie.WithFixtureDir("testdata/golden"), goldie.WithNameSuffix(".golden"))
	g.Assert(t, "apply", []byte(rec.Script()))
}

func TestRejectedCommit(t *testing.T) {
	m := New()
	plan, _ := m.Plan()
	ch := testutil.NewFakeChannel().On("sysname bad name", "Error: Unrecognized command found at '^' position.\n")
	desired := testutil.Tree(t, map[string]schema.Bag{"/system/config": {"hostname": "bad name"}})

	res, err := engine.New(plan, ch, pe, engine.WithErrorPatterns(m.ErrorPatterns())).Apply(testutil.Context(t), nil, desired)
	if err == nil {
		t.Fatal("Apply() should report the rejected command")
	}
	if res.Status("/system/config") != engine.StatusFailed {
		t.Errorf("status = %q", res.Status("/system/config"))
	}
}

func TestSymmetry(t *testing.T) {
	m := New()
	plan, _ := m.Plan()
	if err := engine.CheckSymmetry(plan, read(t, m)); err != nil {
		t.Errorf("CheckSymmetry() = %v", err)
	}
}
