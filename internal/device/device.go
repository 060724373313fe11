// Package device reads memory and battery state from procfs and sysfs.
package device

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/prometheus/procfs"
	"github.com/prometheus/procfs/sysfs"
)

const (
	DefaultProcRoot = procfs.DefaultMountPoint
	DefaultSysRoot  = sysfs.DefaultMountPoint
)

// ErrNoBattery is returned when no power supply of type Battery is present
var ErrNoBattery = errors.New("no battery found")

// Memory is a snapshot of system RAM in bytes
type Memory struct {
	Total       uint64  `json:"total" yaml:"total"`
	Available   uint64  `json:"available" yaml:"available"`
	Used        uint64  `json:"used" yaml:"used"`
	UsedPercent float64 `json:"used_percent" yaml:"used_percent"`
}

// AvailablePercent is the share of RAM still available
func (m Memory) AvailablePercent() float64 {
	if m.Total == 0 {
		return 0
	}
	return float64(m.Available) / float64(m.Total) * 100
}

// Battery is a snapshot of one battery power supply
type Battery struct {
	Name     string  `json:"name" yaml:"name"`
	Capacity int64   `json:"capacity" yaml:"capacity"`
	Status   string  `json:"status" yaml:"status"`
	Health   string  `json:"health,omitempty" yaml:"health,omitempty"`
	TempC    float64 `json:"temp_c" yaml:"temp_c"`
	VoltageV float64 `json:"voltage_v" yaml:"voltage_v"`
}

// Reader reads device state below configurable proc and sys roots
type Reader struct {
	ProcRoot string
	SysRoot  string
}

// NewReader returns a Reader; empty roots fall back to /proc and /sys
func NewReader(procRoot, sysRoot string) *Reader {
	if procRoot == "" {
		procRoot = DefaultProcRoot
	}
	if sysRoot == "" {
		sysRoot = DefaultSysRoot
	}
	return &Reader{ProcRoot: procRoot, SysRoot: sysRoot}
}

// ReadMemory parses meminfo. Kernels without MemAvailable fall back to
// MemFree + Buffers + Cached.
func (r *Reader) ReadMemory() (Memory, error) {
	fs, err := procfs.NewFS(r.ProcRoot)
	if err != nil {
		return Memory{}, fmt.Errorf("failed to open procfs: %w", err)
	}

	mi, err := fs.Meminfo()
	if err != nil {
		return Memory{}, fmt.Errorf("failed to read meminfo: %w", err)
	}
	if mi.MemTotal == nil {
		return Memory{}, fmt.Errorf("meminfo has no MemTotal")
	}

	var availKB uint64
	if mi.MemAvailable != nil {
		availKB = *mi.MemAvailable
	} else {
		availKB = value(mi.MemFree) + value(mi.Buffers) + value(mi.Cached)
	}

	m := Memory{
		Total:     *mi.MemTotal * 1024,
		Available: availKB * 1024,
	}
	if m.Available > m.Total {
		m.Available = m.Total
	}
	m.Used = m.Total - m.Available
	if m.Total > 0 {
		m.UsedPercent = float64(m.Used) / float64(m.Total) * 100
	}
	return m, nil
}

func value(v *uint64) uint64 {
	if v == nil {
		return 0
	}
	return *v
}

// ReadBattery returns the first battery by name
func (r *Reader) ReadBattery() (Battery, error) {
	batteries, err := r.ReadBatteries()
	if err != nil {
		return Battery{}, err
	}
	return batteries[0], nil
}

// ReadBatteries returns every power supply of type Battery, sorted by name
func (r *Reader) ReadBatteries() ([]Battery, error) {
	if _, err := os.Stat(filepath.Join(r.SysRoot, "class", "power_supply")); err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoBattery
		}
		return nil, fmt.Errorf("failed to stat power_supply: %w", err)
	}

	fs, err := sysfs.NewFS(r.SysRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to open sysfs: %w", err)
	}

	supplies, err := fs.PowerSupplyClass()
	if err != nil {
		return nil, fmt.Errorf("failed to read power supplies: %w", err)
	}

	var out []Battery
	for name, ps := range supplies {
		if ps.Type != "Battery" {
			continue
		}
		b := Battery{
			Name:   name,
			Status: ps.Status,
			Health: ps.Health,
		}
		if ps.Capacity != nil {
			b.Capacity = *ps.Capacity
		}
		// temp is in tenths of a degree, voltage_now in microvolts
		if ps.Temp != nil {
			b.TempC = float64(*ps.Temp) / 10
		}
		if ps.VoltageNow != nil {
			b.VoltageV = float64(*ps.VoltageNow) / 1e6
		}
		out = append(out, b)
	}

	if len(out) == 0 {
		return nil, ErrNoBattery
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
