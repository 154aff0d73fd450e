package handler

import (
	"regexp"
	"strconv"

	"github.com/newtron-network/newtcli/pkg/schema"
)

// CheckInput is what a capability check may look at.
type CheckInput struct {
	Path      schema.Path
	Operation schema.Operation
	Diff      schema.Diff
	Device    Device

	// Observed is the device state read before this run.
	Observed *schema.Tree
	// Desired is the target tree of a write run; nil during reads.
	Desired *schema.Tree
}

// State returns the tree sibling lookups should consult: the desired tree
// for creates and updates, the observed tree for reads and deletes.
func (in *CheckInput) State() *schema.Tree {
	switch in.Operation {
	case schema.OpCreate, schema.OpUpdate:
		if in.Desired != nil {
			return in.Desired
		}
	}
	if in.Observed != nil {
		return in.Observed
	}
	return schema.NewTree()
}

// Check decides whether a node's operation applies to this device. Checks
// are side-effect free and evaluated fresh for every dispatch.
type Check func(in *CheckInput) bool

// Allows reports whether c accepts in; a nil check accepts everything.
func (c Check) Allows(in *CheckInput) bool {
	return c == nil || c(in)
}

// All accepts when every check accepts.
func All(checks ...Check) Check {
	return func(in *CheckInput) bool {
		for _, c := range checks {
			if !c.Allows(in) {
				return false
			}
		}
		return true
	}
}

// Any accepts when at least one check accepts.
func Any(checks ...Check) Check {
	return func(in *CheckInput) bool {
		for _, c := range checks {
			if c.Allows(in) {
				return true
			}
		}
		return false
	}
}

// Not inverts c.
func Not(c Check) Check {
	return func(in *CheckInput) bool {
		return !c.Allows(in)
	}
}

// Family accepts devices of the listed families.
func Family(families ...string) Check {
	set := make(map[string]bool, len(families))
	for _, f := range families {
		set[f] = true
	}
	return func(in *CheckInput) bool {
		return set[in.Device.Family]
	}
}

// MinVersion accepts devices whose firmware version is at least min.
// Versions compare by their numeric components, so "15.2(4)M" is 15.2.4.
// Devices with no known version are accepted.
func MinVersion(min string) Check {
	want := versionParts(min)
	return func(in *CheckInput) bool {
		if in.Device.Version == "" {
			return true
		}
		return compareVersions(versionParts(in.Device.Version), want) >= 0
	}
}

// SiblingPresent accepts when the node at rel, resolved against the checked
// path, carries attributes in the relevant state tree.
func SiblingPresent(rel string) Check {
	return func(in *CheckInput) bool {
		p, err := in.Path.Resolve(rel)
		if err != nil {
			return false
		}
		return !in.State().Lookup(p).IsEmpty()
	}
}

// Operations accepts only the listed operations.
func Operations(ops ...schema.Operation) Check {
	return func(in *CheckInput) bool {
		for _, op := range ops {
			if in.Operation == op {
				return true
			}
		}
		return false
	}
}

var versionNumber = regexp.MustCompile(`\d+`)

func versionParts(v string) []int {
	var out []int
	for _, s := range versionNumber.FindAllString(v, -1) {
		n, _ := strconv.Atoi(s)
		out = append(out, n)
	}
	return out
}

func compareVersions(a, b []int) int {
	for i := 0; i < len(a) || i < len(b); i++ {
		var x, y int
		if i < len(a) {
			x = a[i]
		}
		if i < len(b) {
			y = b[i]
		}
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
	}
	return 0
}
