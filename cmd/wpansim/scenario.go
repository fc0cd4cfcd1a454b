// SPDX-License-Identifier: GPL-3.0

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/csma-noba/wpancsma/csma"
	"github.com/csma-noba/wpancsma/slotclock"
	"gopkg.in/yaml.v3"
)

// DeviceSpec configures one contending device in a scenario file.
// ArrivalInterval, like Scenario.Duration, is written in YAML as a Go
// duration string such as "20ms"; yaml.v3 decodes time.Duration fields with
// time.ParseDuration.
type DeviceSpec struct {
	Priority        int           `yaml:"priority"`
	ArrivalInterval time.Duration `yaml:"arrival_interval"`
	CoordDest       bool          `yaml:"coord_dest"`
}

// Scenario is the example traffic-generator configuration an external
// driver loads to run the core against a synthetic channel (SPEC_FULL.md
// §10): variant selection, symbol rate, superframe shape, run duration,
// a synthetic per-transmission loss rate, and the contending devices.
// None of this is part of the core; it is cmd/wpansim's own adapter
// surface over macif.
type Scenario struct {
	Name               string        `yaml:"name"`
	Variant            string        `yaml:"variant"`
	SymbolRate         uint64        `yaml:"symbol_rate"`
	SuperframeDuration uint32        `yaml:"superframe_duration_symbols"`
	FinalCapSlot       uint8         `yaml:"final_cap_slot"`
	TxPacketSymbols    uint32        `yaml:"tx_packet_symbols"`
	AckWaitSymbols     uint32        `yaml:"ack_wait_symbols"`
	IfsSymbols         uint32        `yaml:"ifs_symbols"`
	AckRequired        bool          `yaml:"ack_required"`
	LossRate           float64       `yaml:"loss_rate"`
	Duration           time.Duration `yaml:"duration"`
	Devices            []DeviceSpec  `yaml:"devices"`
}

// LoadScenario reads and validates a Scenario from a YAML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario %s: %w", path, err)
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parsing scenario %s: %w", path, err)
	}
	if err := sc.validate(); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	return &sc, nil
}

func (sc *Scenario) validate() error {
	if _, err := ParseVariant(sc.Variant); err != nil {
		return err
	}
	if len(sc.Devices) == 0 {
		return fmt.Errorf("scenario has no devices")
	}
	for _, d := range sc.Devices {
		if d.Priority < 0 || d.Priority >= 8 {
			return fmt.Errorf("device priority %d out of range 0..7", d.Priority)
		}
	}
	return nil
}

// SymbolRateValue returns the scenario's symbol rate as a slotclock.SymbolRate.
func (sc *Scenario) SymbolRateValue() slotclock.SymbolRate {
	return slotclock.SymbolRate(sc.SymbolRate)
}

// ParseVariant maps a scenario's variant name to a csma.Variant.
func ParseVariant(name string) (csma.Variant, error) {
	switch name {
	case "beb":
		return csma.BEB, nil
	case "standard":
		return csma.Standard, nil
	case "noba":
		return csma.Noba, nil
	case "sw-noba":
		return csma.SwNoba, nil
	case "gnu-noba":
		return csma.GnuNoba, nil
	default:
		return 0, fmt.Errorf("unknown variant %q (want beb, standard, noba, sw-noba, gnu-noba)", name)
	}
}

// DefaultScenario returns a small, ready-to-run scenario: `run` uses it when
// no scenario file is given, and the `scenarios` subcommand prints it.
func DefaultScenario() *Scenario {
	return &Scenario{
		Name:               "default",
		Variant:            "gnu-noba",
		SymbolRate:         62500,
		SuperframeDuration: 960 * 16,
		FinalCapSlot:       15,
		TxPacketSymbols:    40,
		AckWaitSymbols:     20,
		IfsSymbols:         4,
		AckRequired:        true,
		LossRate:           0.1,
		Duration:           2 * time.Second,
		Devices: []DeviceSpec{
			{Priority: 7, ArrivalInterval: 20 * time.Millisecond},
			{Priority: 3, ArrivalInterval: 20 * time.Millisecond},
			{Priority: 0, ArrivalInterval: 20 * time.Millisecond},
		},
	}
}
