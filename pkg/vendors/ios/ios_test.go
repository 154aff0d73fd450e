package ios

import (
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/newtron-network/newtcli/internal/testutil"
	"github.com/newtron-network/newtcli/pkg/engine"
	"github.com/newtron-network/newtcli/pkg/handler"
	"github.com/newtron-network/newtcli/pkg/schema"
	"github.com/newtron-network/newtcli/pkg/session"
)

var (
	router = handler.Device{Name: "R1", Family: FamilyRouter, Version: "15.2(4)M"}
	sw     = handler.Device{Name: "SW1", Family: FamilySwitch, Version: "15.2(2)E"}
)

func newGoldie(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

// observe reads the device described by the fixture files.
func observe(t *testing.T, m *Module, dev handler.Device, runningFile, inventoryFile string) *schema.Tree {
	t.Helper()
	plan, err := m.Plan()
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	ch := testutil.NewFakeChannel().On(showRunning, testutil.ReadTestdata(t, runningFile))
	if inventoryFile != "" {
		ch.On(showInventory, testutil.ReadTestdata(t, inventoryFile))
	}
	res, err := engine.New(plan, ch, dev, engine.WithErrorPatterns(m.ErrorPatterns())).Read(testutil.Context(t))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if !res.OK() {
		t.Fatalf("Read() failures = %v", res.Failures)
	}
	for _, r := range ch.Rounds() {
		if !r.Cacheable {
			t.Errorf("read sent a non-cacheable round trip %v", r.Lines)
		}
	}
	return res.Tree
}

// preview applies desired against observed on a recorder and returns the
// command script.
func preview(t *testing.T, m *Module, dev handler.Device, observed, desired *schema.Tree) string {
	t.Helper()
	plan, err := m.Plan()
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	rec := session.NewRecorder()
	res, err := engine.New(plan, rec, dev, engine.WithErrorPatterns(m.ErrorPatterns())).Apply(testutil.Context(t), observed, desired)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if !res.OK() {
		t.Fatalf("Apply() nodes = %+v", res.Nodes)
	}
	return rec.Script()
}

func TestPlanBuilds(t *testing.T) {
	plan, err := New(Options{}).Plan()
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if !plan.Before("/vlans/vlan", "/interfaces/interface/switched-vlan") {
		t.Error("VLANs must be created before access ports reference them")
	}
	if !plan.Before("/protocols/bgp/global", "/protocols/bgp/neighbors/neighbor") {
		t.Error("BGP process must exist before its neighbors")
	}
	if !plan.Before("/interfaces/interface", "/interfaces/interface/config") {
		t.Error("interface must precede its configuration")
	}
	if e := plan.Lookup("/interfaces"); e == nil || !e.Noop {
		t.Error("/interfaces should be a no-op container")
	}
	if e := plan.Lookup("/platform/components/component"); e == nil || e.Writer != nil {
		t.Error("platform components should be read-only")
	}
}

func TestReadRouter(t *testing.T) {
	got := observe(t, New(Options{}), router, "router-running-config.txt", "router-inventory.txt")

	want := testutil.Tree(t, map[string]schema.Bag{
		"/system/config":                                     {"hostname": "R1", "domainName": "lab.example"},
		"/interfaces/interface[Loopback0]":                   {"name": "Loopback0"},
		"/interfaces/interface[Loopback0]/config":            {"description": "router-id", "enabled": true},
		"/interfaces/interface[GigabitEthernet0/0]":          {"name": "GigabitEthernet0/0"},
		"/interfaces/interface[GigabitEthernet0/0]/config":   {"description": "uplink", "mtu": 9000, "enabled": true},
		"/interfaces/interface[GigabitEthernet0/0]/ethernet": {"autoNegotiate": true},
		"/interfaces/interface[GigabitEthernet0/1]":          {"name": "GigabitEthernet0/1"},
		"/interfaces/interface[GigabitEthernet0/1]/config":   {"enabled": false},
		"/protocols/bgp/global":                              {"as": 65000, "routerId": "1.1.1.1"},
		"/protocols/bgp/neighbors/neighbor[10.0.0.2]": {
			"address": "10.0.0.2", "localAs": 65000, "peerAs": 65001, "description": "core", "enabled": true,
		},
		"/protocols/bgp/neighbors/neighbor[10.0.0.3]": {
			"address": "10.0.0.3", "localAs": 65000, "peerAs": 65002, "enabled": false,
		},
		"/platform/components/component[Chassis]": {
			"name": "Chassis", "description": "Cisco ISR4451 Chassis",
			"partNumber": "ISR4451-X/K9", "hardwareVersion": "V04", "serialNumber": "FGL2041912Z",
		},
		"/platform/components/component[Power Supply Module 0]": {
			"name": "Power Supply Module 0", "description": "450W AC Power Supply for Cisco ISR 4450",
			"partNumber": "PWR-4450-AC", "hardwareVersion": "V02", "serialNumber": "PST2045G1A1",
		},
	})
	if !got.Equal(want) {
		t.Errorf("Read() =\n%v\nwant\n%v", got.Flatten(), want.Flatten())
	}
}

func TestReadSwitch(t *testing.T) {
	got := observe(t, New(Options{}), sw, "switch-running-config.txt", "")

	want := testutil.Tree(t, map[string]schema.Bag{
		"/system/config":  {"hostname": "SW1"},
		"/vlans/vlan[10]": {"vlanId": 10, "name": "users"},
		"/vlans/vlan[20]": {"vlanId": 20, "name": "voice"},

		"/interfaces/interface[GigabitEthernet1/0/1]":               {"name": "GigabitEthernet1/0/1"},
		"/interfaces/interface[GigabitEthernet1/0/1]/config":        {"description": "desk-101", "enabled": true},
		"/interfaces/interface[GigabitEthernet1/0/1]/ethernet":      {"speed": "1000", "duplex": "full"},
		"/interfaces/interface[GigabitEthernet1/0/1]/switched-vlan": {"mode": "access", "accessVlan": 10},

		"/interfaces/interface[GigabitEthernet1/0/2]":               {"name": "GigabitEthernet1/0/2"},
		"/interfaces/interface[GigabitEthernet1/0/2]/config":        {"enabled": true},
		"/interfaces/interface[GigabitEthernet1/0/2]/ethernet":      {"autoNegotiate": true},
		"/interfaces/interface[GigabitEthernet1/0/2]/switched-vlan": {"mode": "access", "accessVlan": 20},

		"/interfaces/interface[Vlan10]":        {"name": "Vlan10"},
		"/interfaces/interface[Vlan10]/config": {"description": "users-svi", "enabled": true},
	})
	if !got.Equal(want) {
		t.Errorf("Read() =\n%v\nwant\n%v", got.Flatten(), want.Flatten())
	}
}

func TestApplyRouter(t *testing.T) {
	m := New(Options{})
	observed := observe(t, m, router, "router-running-config.txt", "router-inventory.txt")

	desired := observed.Clone()
	desired.Set(schema.MustParsePath("/system/config"), schema.Bag{"hostname": "R2", "domainName": "lab.example"})
	desired.Remove(schema.MustParsePath("/interfaces/interface[Loopback0]"))
	desired.Set(schema.MustParsePath("/interfaces/interface[Loopback1]"), schema.Bag{"name": "Loopback1"})
	desired.Set(schema.MustParsePath("/interfaces/interface[Loopback1]/config"), schema.Bag{"description": "mgmt"})
	desired.Set(schema.MustParsePath("/interfaces/interface[GigabitEthernet0/0]/config"), schema.Bag{"description": "uplink", "enabled": true})
	desired.Remove(schema.MustParsePath("/interfaces/interface[GigabitEthernet0/0]/ethernet"))
	desired.Set(schema.MustParsePath("/interfaces/interface[GigabitEthernet0/1]/config"), schema.Bag{"enabled": true})
	desired.Remove(schema.MustParsePath("/protocols/bgp/neighbors/neighbor[10.0.0.3]"))
	desired.Lookup(schema.MustParsePath("/protocols/bgp/neighbors/neighbor[10.0.0.2]")).Set("description", "core-1")
	desired.Set(schema.MustParsePath("/protocols/bgp/neighbors/neighbor[10.0.0.4]"),
		schema.Bag{"address": "10.0.0.4", "localAs": 65000, "peerAs": 65003})

	newGoldie(t).Assert(t, "router-apply", []byte(preview(t, m, router, observed, desired)))
}

func TestApplySwitch(t *testing.T) {
	m := New(Options{})
	observed := observe(t, m, sw, "switch-running-config.txt", "")

	desired := observed.Clone()
	desired.Remove(schema.MustParsePath("/vlans/vlan[20]"))
	desired.Set(schema.MustParsePath("/vlans/vlan[30]"), schema.Bag{"vlanId": 30, "name": "lab"})
	desired.Set(schema.MustParsePath("/interfaces/interface[GigabitEthernet1/0/1]/ethernet"), schema.Bag{"speed": "100", "duplex": "full"})
	desired.Set(schema.MustParsePath("/interfaces/interface[GigabitEthernet1/0/2]/switched-vlan"), schema.Bag{"mode": "access", "accessVlan": 30})

	newGoldie(t).Assert(t, "switch-apply", []byte(preview(t, m, sw, observed, desired)))
}

func TestAutoNegotiateRoundTrip(t *testing.T) {
	plan, err := New(Options{}).Plan()
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	w := plan.Lookup("/interfaces/interface/ethernet").Writer
	p := schema.MustParsePath("/interfaces/interface[GigabitEthernet0/0]/ethernet")
	on := schema.Bag{"autoNegotiate": true}

	tests := []struct {
		name          string
		before, after schema.Bag
		want          string
	}{
		{"enable", nil, on, "configure terminal|interface GigabitEthernet0/0|negotiation auto|end"},
		{"remove", on, nil, "configure terminal|interface GigabitEthernet0/0|no negotiation auto|end"},
		{"unchanged", on, on, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines, err := handler.Compile(w, p, schema.Diff{Before: tt.before, After: tt.after})
			if err != nil {
				t.Fatalf("Compile() error = %v", err)
			}
			if got := strings.Join(lines, "|"); got != tt.want {
				t.Errorf("Compile() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSaveAppendsWriteMemory(t *testing.T) {
	m := New(Options{Save: true})
	plan, err := m.Plan()
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if got := plan.Lookup("/system/config").Terminator; got != SaveCommand {
		t.Errorf("Terminator = %q, want %q", got, SaveCommand)
	}

	rec := session.NewRecorder()
	desired := testutil.Tree(t, map[string]schema.Bag{"/system/config": {"hostname": "R9"}})
	if _, err := engine.New(plan, rec, router).Apply(testutil.Context(t), schema.NewTree(), desired); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	want := "configure terminal\nhostname R9\nend\nwrite memory\n"
	if got := rec.Script(); got != want {
		t.Errorf("Script() = %q, want %q", got, want)
	}
}

func TestBGPGating(t *testing.T) {
	plan, err := New(Options{}).Plan()
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	global := plan.Lookup("/protocols/bgp/global")
	tests := []struct {
		name string
		dev  handler.Device
		want bool
	}{
		{"router", router, true},
		{"switch", sw, false},
		{"old firmware", handler.Device{Family: FamilyRouter, Version: "11.3(2)"}, false},
	}
	for _, tt := range tests {
		in := &handler.CheckInput{Path: schema.MustParsePath("/protocols/bgp/global"), Operation: schema.OpCreate, Device: tt.dev}
		if got := global.Check.Allows(in); got != tt.want {
			t.Errorf("%s: Allows() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestBGPGlobalWriter(t *testing.T) {
	plan, _ := New(Options{}).Plan()
	w := plan.Lookup("/protocols/bgp/global").Writer
	p := schema.MustParsePath("/protocols/bgp/global")

	tests := []struct {
		name    string
		diff    schema.Diff
		want    string
		wantErr bool
	}{
		{
			name: "create",
			diff: schema.Diff{After: schema.Bag{"as": 65000, "routerId": "1.1.1.1"}},
			want: "configure terminal|router bgp 65000|bgp router-id 1.1.1.1|end",
		},
		{
			name: "create from text",
			diff: schema.Diff{After: schema.Bag{"as": "65010"}},
			want: "configure terminal|router bgp 65010|end",
		},
		{
			name: "delete",
			diff: schema.Diff{Before: schema.Bag{"as": 65000, "routerId": "1.1.1.1"}},
			want: "configure terminal|no router bgp 65000|end",
		},
		{
			name: "change AS replaces the process",
			diff: schema.Diff{Before: schema.Bag{"as": 65000}, After: schema.Bag{"as": 65001}},
			want: "configure terminal|no router bgp 65000|end|configure terminal|router bgp 65001|end",
		},
		{
			name:    "missing AS",
			diff:    schema.Diff{After: schema.Bag{"routerId": "1.1.1.1"}},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines, err := handler.Compile(w, p, tt.diff)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Compile() = %q, want error", lines)
				}
				return
			}
			if err != nil {
				t.Fatalf("Compile() error = %v", err)
			}
			if got := strings.Join(lines, "|"); got != tt.want {
				t.Errorf("Compile() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestNeighborRequiresLocalAS(t *testing.T) {
	plan, _ := New(Options{}).Plan()
	w := plan.Lookup("/protocols/bgp/neighbors/neighbor").Writer
	_, err := w.Create(schema.MustParsePath("/protocols/bgp/neighbors/neighbor[10.0.0.9]"), schema.Bag{"address": "10.0.0.9", "peerAs": 1})
	if err == nil {
		t.Error("Create() without localAs should fail")
	}
}

func TestNeighborAddressFromKey(t *testing.T) {
	plan, _ := New(Options{}).Plan()
	w := plan.Lookup("/protocols/bgp/neighbors/neighbor").Writer
	p := schema.MustParsePath("/protocols/bgp/neighbors/neighbor[10.0.0.4]")

	tests := []struct {
		name string
		diff schema.Diff
		want string
	}{
		{
			name: "create without address",
			diff: schema.Diff{After: schema.Bag{"localAs": 65000, "peerAs": 65003}},
			want: "configure terminal|router bgp 65000|neighbor 10.0.0.4 remote-as 65003|end",
		},
		{
			name: "update without address",
			diff: schema.Diff{
				Before: schema.Bag{"localAs": 65000, "peerAs": 65003},
				After:  schema.Bag{"localAs": 65000, "peerAs": 65003, "description": "edge"},
			},
			want: "configure terminal|router bgp 65000|neighbor 10.0.0.4 description edge|end",
		},
		{
			name: "key wins over a stale address",
			diff: schema.Diff{After: schema.Bag{"address": "10.0.0.9", "localAs": 65000, "peerAs": 65003}},
			want: "configure terminal|router bgp 65000|neighbor 10.0.0.4 remote-as 65003|end",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines, err := handler.Compile(w, p, tt.diff)
			if err != nil {
				t.Fatalf("Compile() error = %v", err)
			}
			got := strings.Join(lines, "|")
			if strings.Contains(got, "<no value>") || got != tt.want {
				t.Errorf("Compile() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestSymmetry(t *testing.T) {
	m := New(Options{})
	plan, _ := m.Plan()
	for _, tc := range []struct {
		dev     handler.Device
		running string
	}{
		{router, "router-running-config.txt"},
		{sw, "switch-running-config.txt"},
	} {
		tree := observe(t, m, tc.dev, tc.running, "")
		if err := engine.CheckSymmetry(plan, tree); err != nil {
			t.Errorf("%s: CheckSymmetry() = %v", tc.dev.Name, err)
		}
	}
}

func TestErrorPatterns(t *testing.T) {
	tests := []struct {
		response string
		want     bool
	}{
		{"% Invalid input detected at '^' marker.", true},
		{"% Incomplete command.", true},
		{"% Ambiguous command:  \"sh\"", true},
		{"R1(config-if)#", false},
		{"description 100% uplink", false},
	}
	for _, tt := range tests {
		if _, got := ErrorPatterns().Match(tt.response); got != tt.want {
			t.Errorf("Match(%q) = %v, want %v", tt.response, got, tt.want)
		}
	}
}
