// Package inventory loads the devices newtcli manages and the families
// that tell it how to talk to them.
//
// An inventory directory holds two YAML files:
//
//	families.yaml  how to reach and drive each device family
//	devices.yaml   one entry per device, naming its family
package inventory

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/newtron-network/newtcli/pkg/handler"
	"github.com/newtron-network/newtcli/pkg/session"
	"github.com/newtron-network/newtcli/pkg/util"
	"github.com/newtron-network/newtcli/pkg/vendors"
)

// File names inside an inventory directory.
const (
	FamiliesFile = "families.yaml"
	DevicesFile  = "devices.yaml"
)

// Family is how newtcli drives one kind of device.
type Family struct {
	Name string `yaml:"-"`

	// Module names the vendor module that manages the family.
	Module string `yaml:"module"`
	// Save persists the running configuration after every write.
	Save bool `yaml:"save,omitempty"`

	// Prompt overrides the CLI prompt pattern. Empty keeps the default.
	Prompt string `yaml:"prompt,omitempty"`
	// Pager overrides the module's pager-off command.
	Pager string `yaml:"pager,omitempty"`
	// ErrorPatterns are appended to the module's own rejection patterns.
	ErrorPatterns []string `yaml:"errorPatterns,omitempty"`

	DialTimeout    time.Duration `yaml:"dialTimeout,omitempty"`
	CommandTimeout time.Duration `yaml:"commandTimeout,omitempty"`
}

// Device is one managed device.
type Device struct {
	Name string `yaml:"-"`

	Family     string            `yaml:"family"`
	Host       string            `yaml:"host"`
	Port       int               `yaml:"port,omitempty"`
	User       string            `yaml:"user"`
	Password   string            `yaml:"password,omitempty"`
	Version    string            `yaml:"version,omitempty"`
	Attributes map[string]string `yaml:"attributes,omitempty"`
}

// Handler returns the identity capability checks see.
func (d *Device) Handler() handler.Device {
	attrs := make(map[string]string, len(d.Attributes))
	for k, v := range d.Attributes {
		attrs[k] = v
	}
	return handler.Device{Name: d.Name, Family: d.Family, Version: d.Version, Attributes: attrs}
}

type familiesFile struct {
	Families map[string]*Family `yaml:"families"`
}

type devicesFile struct {
	Devices map[string]*Device `yaml:"devices"`
}

// Inventory is a loaded, validated inventory.
type Inventory struct {
	Dir      string
	Families map[string]*Family
	Devices  map[string]*Device
}

// Load reads and validates the inventory in dir.
func Load(dir string) (*Inventory, error) {
	families, err := os.ReadFile(filepath.Join(dir, FamiliesFile))
	if err != nil {
		return nil, fmt.Errorf("reading families: %w", err)
	}
	devices, err := os.ReadFile(filepath.Join(dir, DevicesFile))
	if err != nil {
		return nil, fmt.Errorf("reading devices: %w", err)
	}
	inv, err := Parse(families, devices)
	if err != nil {
		return nil, err
	}
	inv.Dir = dir
	util.WithField("dir", dir).Debugf("Loaded inventory: %d families, %d devices", len(inv.Families), len(inv.Devices))
	return inv, nil
}

// Parse decodes and validates the contents of the two inventory files.
func Parse(families, devices []byte) (*Inventory, error) {
	var ff familiesFile
	if err := yaml.Unmarshal(families, &ff); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", FamiliesFile, err)
	}
	var df devicesFile
	if err := yaml.Unmarshal(devices, &df); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", DevicesFile, err)
	}

	inv := &Inventory{
		Families: make(map[string]*Family),
		Devices:  make(map[string]*Device),
	}
	for name, f := range ff.Families {
		if f == nil {
			f = &Family{}
		}
		f.Name = name
		inv.Families[name] = f
	}
	for name, d := range df.Devices {
		if d == nil {
			d = &Device{}
		}
		d.Name = name
		inv.Devices[name] = d
	}
	if err := inv.validate(); err != nil {
		return nil, fmt.Errorf("inventory: %w", err)
	}
	return inv, nil
}

func (inv *Inventory) validate() error {
	v := &util.ValidationBuilder{}
	known := make(map[string]bool)
	for _, n := range vendor.Names() {
		known[n] = true
	}

	for _, name := range sortedKeys(inv.Families) {
		f := inv.Families[name]
		switch {
		case f.Module == "":
			v.AddErrorf("family '%s' has no module", name)
		case !known[f.Module]:
			v.AddErrorf("family '%s' references unknown module '%s'", name, f.Module)
		}
		if f.Prompt != "" {
			if _, err := regexp.Compile(f.Prompt); err != nil {
				v.AddErrorf("family '%s' prompt: %v", name, err)
			}
		}
		if _, err := session.NewErrorPatternSet(f.ErrorPatterns...); err != nil {
			v.AddErrorf("family '%s' error patterns: %v", name, err)
		}
		v.Add(f.DialTimeout >= 0, fmt.Sprintf("family '%s' has a negative dial timeout", name))
		v.Add(f.CommandTimeout >= 0, fmt.Sprintf("family '%s' has a negative command timeout", name))
	}

	for _, name := range sortedKeys(inv.Devices) {
		d := inv.Devices[name]
		if d.Family == "" {
			v.AddErrorf("device '%s' has no family", name)
		} else if _, ok := inv.Families[d.Family]; !ok {
			v.AddErrorf("device '%s' references unknown family '%s'", name, d.Family)
		}
		v.Add(d.Host != "", fmt.Sprintf("device '%s' has no host", name))
		v.Add(d.Port >= 0 && d.Port <= 65535, fmt.Sprintf("device '%s' port %d out of range", name, d.Port))
	}
	return v.Build()
}

// DeviceNames returns every device name, sorted.
func (inv *Inventory) DeviceNames() []string {
	return sortedKeys(inv.Devices)
}

// Device returns a device and its family.
func (inv *Inventory) Device(name string) (*Device, *Family, error) {
	d, ok := inv.Devices[name]
	if !ok {
		return nil, nil, fmt.Errorf("%w: device '%s'", util.ErrNotFound, name)
	}
	return d, inv.Families[d.Family], nil
}

// Vendor resolves the module that manages the family.
func (f *Family) Vendor() (vendor.Module, error) {
	return vendor.Lookup(f.Module, vendor.Options{Save: f.Save})
}

// Patterns returns the module's error patterns followed by the family's.
func (f *Family) Patterns(m vendor.Module) (*session.ErrorPatternSet, error) {
	return m.ErrorPatterns().With(f.ErrorPatterns...)
}

// SSHConfig returns the session settings for d, a device of family f
// managed by m.
func SSHConfig(d *Device, f *Family, m vendor.Module) session.SSHConfig {
	pager := m.PagerOff()
	if f.Pager != "" {
		pager = f.Pager
	}
	return session.SSHConfig{
		Device:         d.Name,
		Host:           d.Host,
		Port:           d.Port,
		User:           d.User,
		Password:       d.Password,
		Prompt:         f.Prompt,
		PagerOff:       pager,
		DialTimeout:    f.DialTimeout,
		CommandTimeout: f.CommandTimeout,
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
