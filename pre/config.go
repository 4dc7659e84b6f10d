package pre

import (
	"fmt"
	"strings"

	"github.com/valentinpasche/transnetmap-impacts/errs"
)

// ExtensionType selects which baseline mode extends the new network to
// zones the network does not reach directly. ExtensionNTS means the new
// network stands alone, with zone-access connectors only.
type ExtensionType string

const (
	ExtensionIMT ExtensionType = "IMT"
	ExtensionPT  ExtensionType = "PT"
	ExtensionNTS ExtensionType = "NTS"
)

func (e ExtensionType) Valid() bool {
	return e == ExtensionIMT || e == ExtensionPT || e == ExtensionNTS
}

// Config is the explicit, validated run configuration. It replaces the
// loose parameter dictionaries of earlier tooling: every field is
// enumerated and checked once at construction.
type Config struct {
	// NetworkNumber identifies the new-network instance under study.
	NetworkNumber int
	// PVSNumber identifies the active physical value set ("pvs<N>").
	PVSNumber int
	// ExtensionType selects the baseline used to extend the network.
	ExtensionType ExtensionType
	// AccessRadius bounds which zones connect to which stations [km].
	AccessRadius float64
	// AccessSpeed is the fixed speed assumed on zone-access
	// connectors [km/h].
	AccessSpeed float64
}

// Validate checks the configuration once at construction time.
func (c Config) Validate() error {
	if c.NetworkNumber <= 0 {
		return errs.Configurationf("network number must be positive, got %d", c.NetworkNumber)
	}
	if c.PVSNumber <= 0 {
		return errs.Configurationf("physical values set number must be positive, got %d", c.PVSNumber)
	}
	if !c.ExtensionType.Valid() {
		return errs.Configurationf("invalid network extension type %q (expected IMT, PT or NTS)", c.ExtensionType)
	}
	if c.AccessRadius <= 0 {
		return errs.Configurationf("access radius must be positive, got %v", c.AccessRadius)
	}
	if c.AccessSpeed <= 0 {
		return errs.Configurationf("access speed must be positive, got %v", c.AccessSpeed)
	}
	return nil
}

// PVSName is the canonical name of the active physical value set.
func (c Config) PVSName() string {
	return fmt.Sprintf("pvs%d", c.PVSNumber)
}

// ResultsSchema is the database schema grouping every artifact of one
// optimisation run: edgelist, optimisation and the per-zone results
// tables.
func (c Config) ResultsSchema() string {
	return fmt.Sprintf("results_%d_%s_%s", c.NetworkNumber, c.PVSName(), strings.ToLower(string(c.ExtensionType)))
}
