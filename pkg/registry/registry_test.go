package registry

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/newtron-network/newtcli/pkg/handler"
	"github.com/newtron-network/newtcli/pkg/schema"
	"github.com/newtron-network/newtcli/pkg/util"
)

var (
	nopReader = handler.ReaderFunc(func(context.Context, *handler.ReadContext, schema.Path, schema.Bag) error {
		return nil
	})
	nopLister = handler.ListerFunc(func(context.Context, *handler.ReadContext, schema.Path) ([]schema.Key, error) {
		return nil, nil
	})
	nopWriter = handler.Funcs{
		CreateFn: func(schema.Path, schema.Bag) ([]string, error) { return nil, nil },
		DeleteFn: func(schema.Path, schema.Bag) ([]string, error) { return nil, nil },
	}
)

func leaf() handler.Binding {
	return handler.Binding{Reader: nopReader, Writer: nopWriter}
}

func planPaths(p *Plan) []string {
	var out []string
	for _, e := range p.Entries() {
		out = append(out, e.Path)
	}
	return out
}

func TestBuildImplicitAncestors(t *testing.T) {
	r := New()
	r.Bind("/interfaces/interface", handler.Binding{Lister: nopLister, Writer: nopWriter})
	r.Bind("/interfaces/interface/config", leaf())

	plan, err := r.Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	got := strings.Join(planPaths(plan), " ")
	want := "/interfaces /interfaces/interface /interfaces/interface/config"
	if got != want {
		t.Errorf("plan = %q, want %q", got, want)
	}

	root := plan.Lookup("/interfaces")
	if root == nil || !root.Noop || root.Kind != schema.KindContainer {
		t.Errorf("/interfaces = %+v, want implicit no-op container", root)
	}
	list := plan.Lookup("/interfaces/interface")
	if list.Kind != schema.KindList {
		t.Errorf("/interfaces/interface kind = %v, want list", list.Kind)
	}
	if list.Noop {
		t.Error("/interfaces/interface should not be a no-op")
	}
	if n := len(plan.Children("/interfaces/interface")); n != 1 {
		t.Errorf("Children(/interfaces/interface) = %d entries, want 1", n)
	}
	if n := len(plan.Children("/")); n != 1 {
		t.Errorf("Children(/) = %d entries, want 1", n)
	}
}

func TestBuildOrdering(t *testing.T) {
	r := New()
	r.Bind("/interfaces/interface", handler.Binding{Lister: nopLister, Writer: nopWriter})
	r.Bind("/interfaces/interface/switched-vlan", leaf())
	r.Bind("/vlans/vlan", handler.Binding{Lister: nopLister, Writer: nopWriter})
	r.OrderAfter("/interfaces/interface/switched-vlan", "/vlans/vlan")

	plan, err := r.Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	tests := []struct {
		a, b string
	}{
		{"/vlans/vlan", "/interfaces/interface/switched-vlan"},
		{"/interfaces/interface", "/interfaces/interface/switched-vlan"},
		{"/interfaces", "/interfaces/interface"},
		{"/vlans", "/vlans/vlan"},
	}
	for _, tt := range tests {
		if !plan.Before(tt.a, tt.b) {
			t.Errorf("Before(%s, %s) = false; plan %v", tt.a, tt.b, planPaths(plan))
		}
	}
	if plan.Before("/interfaces/interface/switched-vlan", "/vlans/vlan") {
		t.Error("edge direction reversed")
	}
	if plan.Index("/nope") != -1 {
		t.Error("Index of unbound path should be -1")
	}
}

func TestBuildTieBreakIsRegistrationOrder(t *testing.T) {
	r := New()
	r.Bind("/b", leaf())
	r.Bind("/a", leaf())
	r.Bind("/c", leaf())

	plan, err := r.Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if got := strings.Join(planPaths(plan), " "); got != "/b /a /c" {
		t.Errorf("plan = %q, want registration order", got)
	}
}

func TestBuildDeterministic(t *testing.T) {
	register := func(r *Registry) {
		r.Bind("/system/config", leaf())
		r.Bind("/vlans/vlan", handler.Binding{Lister: nopLister, Writer: nopWriter})
		r.Bind("/interfaces/interface", handler.Binding{Lister: nopLister})
		r.Bind("/interfaces/interface/switched-vlan", leaf())
		r.OrderBefore("/vlans/vlan", "/interfaces/interface/switched-vlan")
	}

	var first string
	for i := 0; i < 20; i++ {
		r := New()
		register(r)
		plan, err := r.Build()
		if err != nil {
			t.Fatalf("Build() error = %v", err)
		}
		got := strings.Join(planPaths(plan), " ")
		if i == 0 {
			first = got
		} else if got != first {
			t.Fatalf("build %d = %q, first build = %q", i, got, first)
		}
	}
}

func TestBuildCycle(t *testing.T) {
	r := New()
	r.Bind("/a", leaf())
	r.Bind("/b", leaf())
	r.Bind("/c", leaf())
	r.Bind("/d", leaf())
	r.OrderBefore("/a", "/b")
	r.OrderBefore("/b", "/c")
	r.OrderBefore("/c", "/a")
	r.OrderBefore("/d", "/a")

	_, err := r.Build()
	if err == nil {
		t.Fatal("Build() succeeded with a cycle")
	}
	if !errors.Is(err, util.ErrOrderingCycle) || !errors.Is(err, util.ErrBuild) {
		t.Errorf("error %v should wrap ErrBuild and ErrOrderingCycle", err)
	}

	var be *util.BuildError
	if !errors.As(err, &be) {
		t.Fatalf("error type = %T, want *util.BuildError", err)
	}
	if len(be.Cycles) != 1 {
		t.Fatalf("cycles = %d, want 1", len(be.Cycles))
	}
	if got := strings.Join(be.Cycles[0].Paths, " "); got != "/a /b /c" {
		t.Errorf("cycle paths = %q, want /a /b /c", got)
	}
}

func TestBuildCycleThroughContainment(t *testing.T) {
	r := New()
	r.Bind("/interfaces/interface", handler.Binding{Lister: nopLister})
	r.Bind("/interfaces/interface/config", leaf())
	r.OrderBefore("/interfaces/interface/config", "/interfaces/interface")

	_, err := r.Build()
	if !errors.Is(err, util.ErrOrderingCycle) {
		t.Fatalf("Build() error = %v, want ordering cycle", err)
	}
}

func TestBuildSelfLoop(t *testing.T) {
	r := New()
	r.Bind("/a", leaf())
	r.OrderBefore("/a", "/a")

	_, err := r.Build()
	var be *util.BuildError
	if !errors.As(err, &be) || len(be.Cycles) != 1 {
		t.Fatalf("Build() error = %v, want one cycle", err)
	}
}

func TestBuildValidation(t *testing.T) {
	tests := []struct {
		name     string
		register func(r *Registry)
		wantMsg  string
	}{
		{
			name: "duplicate writer",
			register: func(r *Registry) {
				r.Bind("/system/config", leaf())
				r.Bind("/system/config", handler.Binding{Writer: nopWriter})
			},
			wantMsg: "duplicate writer binding for /system/config",
		},
		{
			name: "duplicate reader",
			register: func(r *Registry) {
				r.Bind("/system/config", leaf())
				r.Bind("/system/config", handler.Binding{Reader: nopReader})
			},
			wantMsg: "duplicate reader binding",
		},
		{
			name: "noop with handlers",
			register: func(r *Registry) {
				r.MarkNoop("/interfaces")
				r.Bind("/interfaces", leaf())
			},
			wantMsg: "no-op path /interfaces",
		},
		{
			name: "list without lister",
			register: func(r *Registry) {
				r.Bind("/vlans/vlan", handler.Binding{Kind: schema.KindList, Writer: nopWriter})
			},
			wantMsg: "list /vlans/vlan has no key lister",
		},
		{
			name: "edge to unbound path",
			register: func(r *Registry) {
				r.Bind("/a", leaf())
				r.OrderBefore("/a", "/missing")
			},
			wantMsg: "references unbound path /missing",
		},
		{
			name: "keyed path",
			register: func(r *Registry) {
				r.Bind("/interfaces/interface[Ethernet1]", leaf())
			},
			wantMsg: "must not contain keys",
		},
		{
			name: "malformed path",
			register: func(r *Registry) {
				r.Bind("system", leaf())
			},
			wantMsg: "invalid schema path",
		},
		{
			name: "empty composite",
			register: func(r *Registry) {
				r.BindComposite("/interfaces/interface/ethernet")
			},
			wantMsg: "has no members",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New()
			tt.register(r)
			_, err := r.Build()
			if err == nil {
				t.Fatal("Build() succeeded")
			}
			if !errors.Is(err, util.ErrBuild) {
				t.Errorf("error %v should wrap ErrBuild", err)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q should contain %q", err, tt.wantMsg)
			}
		})
	}
}

func TestBuildReportsAllProblems(t *testing.T) {
	r := New()
	r.Bind("/a", leaf())
	r.Bind("/a", leaf())
	r.Bind("/vlans/vlan", handler.Binding{Kind: schema.KindList})

	_, err := r.Build()
	var be *util.BuildError
	if !errors.As(err, &be) {
		t.Fatalf("Build() error = %v", err)
	}
	if len(be.Problems) != 3 {
		t.Errorf("problems = %v, want 3 (writer, reader, lister)", be.Problems)
	}
}

func TestBindAddsRoles(t *testing.T) {
	r := New()
	r.Bind("/vlans/vlan", handler.Binding{Lister: nopLister, KeyAttrs: []string{"vlanId"}})
	r.Bind("/vlans/vlan", handler.Binding{Reader: nopReader})
	r.Bind("/vlans/vlan", handler.Binding{Writer: nopWriter})

	plan, err := r.Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	e := plan.Lookup("/vlans/vlan")
	if e.Kind != schema.KindList || e.Reader == nil || e.Writer == nil || e.Lister == nil {
		t.Errorf("entry = %+v, want list with all roles", e)
	}
	if len(e.KeyAttrs) != 1 || e.KeyAttrs[0] != "vlanId" {
		t.Errorf("KeyAttrs = %v", e.KeyAttrs)
	}
}

func TestBindComposite(t *testing.T) {
	r := New()
	r.BindComposite("/interfaces/interface/ethernet",
		handler.Member{Name: "autoneg", Reader: nopReader, Writer: nopWriter},
		handler.Member{Name: "speed", Writer: nopWriter},
	)
	plan, err := r.Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	e := plan.Lookup("/interfaces/interface/ethernet")
	if e.Composite == nil || e.Composite.Len() != 2 {
		t.Fatalf("composite = %+v", e.Composite)
	}
	if e.Reader == nil || e.Writer == nil {
		t.Error("composite should supply reader and writer")
	}
}

func TestBindAfterBuildPanics(t *testing.T) {
	r := New()
	r.Bind("/a", leaf())
	if _, err := r.Build(); err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	defer func() {
		if recover() == nil {
			t.Error("Bind after Build did not panic")
		}
	}()
	r.Bind("/b", leaf())
}

func TestBuildCached(t *testing.T) {
	r := New()
	r.Bind("/a", leaf())
	p1, _ := r.Build()
	p2, _ := r.Build()
	if p1 != p2 {
		t.Error("second Build returned a different plan")
	}
}

func TestOnce(t *testing.T) {
	calls := 0
	get := Once(func(r *Registry) {
		calls++
		r.Bind("/a", leaf())
	})

	p1, err := get()
	if err != nil {
		t.Fatalf("first call error = %v", err)
	}
	p2, _ := get()
	if p1 != p2 {
		t.Error("Once returned different plans")
	}
	if calls != 1 {
		t.Errorf("register called %d times, want 1", calls)
	}
}
