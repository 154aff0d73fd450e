package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/term"

	"github.com/newtron-network/newtcli/pkg/engine"
	"github.com/newtron-network/newtcli/pkg/inventory"
	"github.com/newtron-network/newtcli/pkg/registry"
	"github.com/newtron-network/newtcli/pkg/session"
	"github.com/newtron-network/newtcli/pkg/util"
	"github.com/newtron-network/newtcli/pkg/vendors"
)

// target is one selected device with everything needed to drive it.
type target struct {
	device   *inventory.Device
	family   *inventory.Family
	module   vendor.Module
	plan     *registry.Plan
	patterns *session.ErrorPatternSet
}

// resolveTargets looks up every name in the inventory and builds its plan.
// Passwords missing from the inventory are prompted for here, before any
// device work starts.
func resolveTargets(names []string) ([]*target, error) {
	var targets []*target
	for _, name := range names {
		d, f, err := inv.Device(name)
		if err != nil {
			return nil, err
		}
		m, err := f.Vendor()
		if err != nil {
			return nil, fmt.Errorf("device '%s': %w", name, err)
		}
		plan, err := m.Plan()
		if err != nil {
			return nil, fmt.Errorf("device '%s': building plan: %w", name, err)
		}
		patterns, err := f.Patterns(m)
		if err != nil {
			return nil, fmt.Errorf("device '%s': %w", name, err)
		}
		targets = append(targets, &target{device: d, family: f, module: m, plan: plan, patterns: patterns})
	}
	return targets, nil
}

// promptPasswords asks for the password of every target that lacks one.
func promptPasswords(targets []*target) error {
	for _, t := range targets {
		if t.device.Password != "" {
			continue
		}
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			return fmt.Errorf("device '%s' has no password and stdin is not a terminal", t.device.Name)
		}
		fmt.Fprintf(os.Stderr, "Password for %s@%s: ", t.device.User, t.device.Name)
		pw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return fmt.Errorf("reading password: %w", err)
		}
		t.device.Password = string(pw)
	}
	return nil
}

// dial opens a session to a device. Tests replace it.
var dial = func(ctx context.Context, cfg session.SSHConfig) (session.Channel, io.Closer, error) {
	ch, err := session.DialSSH(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return ch, ch, nil
}

// connect opens an instrumented, cached channel to t's device.
func (t *target) connect(ctx context.Context) (session.Channel, func(), error) {
	raw, closer, err := dial(ctx, inventory.SSHConfig(t.device, t.family, t.module))
	if err != nil {
		return nil, nil, err
	}
	var ch session.Channel = raw
	if recorder != nil {
		ch = recorder.InstrumentChannel(t.device.Name, ch)
	}

	var cache session.Cache = session.NewMemoryCache()
	cleanup := func() { closer.Close() }
	if addr := cacheAddress(); addr != "" {
		rc := session.NewRedisCache(addr, t.device.Name, session.DefaultCacheTTL)
		if err := rc.Connect(ctx); err != nil {
			util.WithDevice(t.device.Name).Warnf("Response cache %s unavailable, using memory: %v", addr, err)
			rc.Close()
		} else {
			cache = rc
			cleanup = func() {
				rc.Close()
				closer.Close()
			}
		}
	}
	return session.NewCachedChannel(t.device.Name, ch, cache).WithErrorPatterns(t.patterns), cleanup, nil
}

func cacheAddress() string {
	if userSettings == nil {
		return ""
	}
	return userSettings.CacheAddress
}

// engineFor creates an engine for t on ch.
func (t *target) engineFor(ch session.Channel) *engine.Engine {
	opts := []engine.Option{engine.WithErrorPatterns(t.patterns)}
	if recorder != nil {
		opts = append(opts, engine.WithObserver(recorder))
	}
	return engine.New(t.plan, ch, t.device.Handler(), opts...)
}

// forEachTarget runs fn for every target concurrently. Each run writes to
// its own buffer; buffers are printed in target order once all runs end.
// The first error in target order is returned.
func forEachTarget(targets []*target, out io.Writer, fn func(t *target, w io.Writer) error) error {
	bufs := make([]bytes.Buffer, len(targets))
	errs := make([]error, len(targets))

	var wg sync.WaitGroup
	for i, t := range targets {
		wg.Add(1)
		go func(i int, t *target) {
			defer wg.Done()
			errs[i] = fn(t, &bufs[i])
		}(i, t)
	}
	wg.Wait()

	var first error
	for i, t := range targets {
		if len(targets) > 1 {
			fmt.Fprintf(out, "%s\n", bold(t.device.Name))
		}
		out.Write(bufs[i].Bytes())
		if errs[i] != nil {
			if len(targets) > 1 {
				fmt.Fprintf(out, "%s: %v\n", red("error"), errs[i])
			}
			if first == nil {
				first = fmt.Errorf("%s: %w", t.device.Name, errs[i])
			}
		}
	}
	return first
}
