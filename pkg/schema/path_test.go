package schema

import "testing"

func TestParsePath(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		schema  string
		segs    int
		wantErr bool
	}{
		{in: "/", want: "/", schema: "/", segs: 0},
		{in: "", want: "/", schema: "/", segs: 0},
		{in: "/system/config", want: "/system/config", schema: "/system/config", segs: 2},
		{in: "/interfaces/interface[Ethernet1/1]/config", want: "/interfaces/interface[Ethernet1/1]/config", schema: "/interfaces/interface/config", segs: 3},
		{in: "/a/b[x,y]", want: "/a/b[x,y]", schema: "/a/b", segs: 2},
		{in: "/vlans/vlan[10]/", want: "/vlans/vlan[10]", schema: "/vlans/vlan", segs: 2},
		{in: "system", wantErr: true},
		{in: "/a//b", wantErr: true},
		{in: "/a/b[x", wantErr: true},
		{in: "/a/b[x]c", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			p, err := ParsePath(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParsePath(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got := p.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
			if got := p.Schema(); got != tt.schema {
				t.Errorf("Schema() = %q, want %q", got, tt.schema)
			}
			if len(p) != tt.segs {
				t.Errorf("len = %d, want %d", len(p), tt.segs)
			}
		})
	}
}

func TestPathNavigation(t *testing.T) {
	p := MustParsePath("/interfaces/interface[Ethernet0]/config")

	if got := p.Parent().String(); got != "/interfaces/interface[Ethernet0]" {
		t.Errorf("Parent() = %q", got)
	}
	if got := p.Last().Name; got != "config" {
		t.Errorf("Last().Name = %q", got)
	}
	if got := p.KeyOf("interface").String(); got != "Ethernet0" {
		t.Errorf("KeyOf(interface) = %q", got)
	}
	if p.KeyOf("vlan") != nil {
		t.Error("KeyOf(vlan) should be nil")
	}
	if !p.HasPrefix(MustParsePath("/interfaces/interface[Ethernet0]")) {
		t.Error("HasPrefix should match ancestor")
	}
	if p.HasPrefix(MustParsePath("/interfaces/interface[Ethernet4]")) {
		t.Error("HasPrefix should not match a sibling key")
	}

	child := p.Parent().Child("ethernet")
	if got := child.String(); got != "/interfaces/interface[Ethernet0]/ethernet" {
		t.Errorf("Child() = %q", got)
	}
	// Child must not alias the receiver's backing array.
	other := p.Parent().Child("state")
	if child.String() == other.String() {
		t.Error("Child() results share storage")
	}

	var root Path
	if !root.IsRoot() || root.Parent() != nil {
		t.Error("root navigation")
	}
}

func TestSchemaHelpers(t *testing.T) {
	if got := SchemaParent("/interfaces/interface/config"); got != "/interfaces/interface" {
		t.Errorf("SchemaParent = %q", got)
	}
	if got := SchemaParent("/system"); got != "/" {
		t.Errorf("SchemaParent(/system) = %q", got)
	}
	if got := SchemaName("/interfaces/interface"); got != "interface" {
		t.Errorf("SchemaName = %q", got)
	}
}

func TestResolve(t *testing.T) {
	base := MustParsePath("/protocols/bgp/neighbors/neighbor[10.0.0.1]")
	tests := []struct {
		rel     string
		want    string
		wantErr bool
	}{
		{rel: "../../global", want: "/protocols/bgp/global"},
		{rel: "config", want: "/protocols/bgp/neighbors/neighbor[10.0.0.1]/config"},
		{rel: "./config", want: "/protocols/bgp/neighbors/neighbor[10.0.0.1]/config"},
		{rel: "/system/config", want: "/system/config"},
		{rel: "../../../../../..", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.rel, func(t *testing.T) {
			got, err := base.Resolve(tt.rel)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Resolve(%q) error = %v", tt.rel, err)
			}
			if !tt.wantErr && got.String() != tt.want {
				t.Errorf("Resolve(%q) = %s, want %s", tt.rel, got, tt.want)
			}
		})
	}
}
