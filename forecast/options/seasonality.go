package options

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/aouyang1/basinflag/forecast/util"
)

// YearDuration is the mean length of a calendar year
const YearDuration = time.Duration(365.25 * 24 * float64(time.Hour))

// Seasonality options configures the number of seasonality components to fit for.
type SeasonalityOptions struct {
	SeasonalityConfigs []SeasonalityConfig `json:"seasonality_configs"`
}

func (s SeasonalityOptions) TablePrint(w io.Writer, prefix, indent string, indentGrowth int) error {
	tbl := tabwriter.NewWriter(w, 0, 0, 1, ' ', tabwriter.AlignRight)
	noCfg := " None"
	if len(s.SeasonalityConfigs) > 0 {
		noCfg = ""
		fmt.Fprintf(tbl, "%s%sName\tPeriod\tOrders\t\n", prefix, util.IndentExpand(indent, indentGrowth+1))
	}
	if _, err := fmt.Fprintf(w, "%s%sSeasonality:%s\n", prefix, util.IndentExpand(indent, indentGrowth), noCfg); err != nil {
		return err
	}
	for _, seasCfg := range s.SeasonalityConfigs {
		fmt.Fprintf(tbl, "%s%s%s\t%s\t%d\t\n",
			prefix, util.IndentExpand(indent, indentGrowth+1),
			seasCfg.Name, seasCfg.Period, seasCfg.Orders)
	}
	return tbl.Flush()
}

// NewDefaultSeasonalityOptions generates a yearly seasonality config of order 10. Daily
// observations have no sub daily cycle and hydrology has no weekly one.
func NewDefaultSeasonalityOptions() SeasonalityOptions {
	return SeasonalityOptions{
		SeasonalityConfigs: []SeasonalityConfig{
			NewYearlySeasonalityConfig(10),
		},
	}
}

// removeDuplicates sorts configs by period and keeps the config with the most orders for each
// period, dropping any config without a name, period or orders
func (s *SeasonalityOptions) removeDuplicates() {
	cfgs := s.SeasonalityConfigs
	sort.Slice(cfgs, func(i, j int) bool {
		if cfgs[i].Period != cfgs[j].Period {
			return cfgs[i].Period < cfgs[j].Period
		}
		if cfgs[i].Orders != cfgs[j].Orders {
			return cfgs[i].Orders > cfgs[j].Orders
		}
		return cfgs[i].Name < cfgs[j].Name
	})

	valid := make([]SeasonalityConfig, 0, len(cfgs))
	var lastValidPeriod time.Duration
	for _, seasCfg := range cfgs {
		if seasCfg.Period > lastValidPeriod && seasCfg.Name != "" && seasCfg.Orders > 0 {
			valid = append(valid, seasCfg)
			lastValidPeriod = seasCfg.Period
		}
	}
	if len(valid) != len(cfgs) {
		cfgs = valid
	}
	s.SeasonalityConfigs = cfgs
}

// colinearPeriods maps each seasonality config name to the periods already covered by the
// orders of shorter period configs. Configs must already be sorted by period.
func (s SeasonalityOptions) colinearPeriods() map[string]map[time.Duration]struct{} {
	res := make(map[string]map[time.Duration]struct{}, len(s.SeasonalityConfigs))
	covered := make(map[time.Duration]struct{})
	for _, seasCfg := range s.SeasonalityConfigs {
		seen := make(map[time.Duration]struct{}, len(covered))
		for p := range covered {
			seen[p] = struct{}{}
		}
		res[seasCfg.Name] = seen
		for order := 1; order <= seasCfg.Orders; order++ {
			covered[seasCfg.Period/time.Duration(order)] = struct{}{}
		}
	}
	return res
}

// SeasonalityConfig represents a single seasonality configuration to model. This will generate
// Fourier series of the specified period and number of orders. E.g. a period of 24*time.Hour
// with 3 orders will create 6 Fourier series of order 1, 2, 3 and for the sine/cosine components
// where order 1 will have a period of 1 day and order 2 will have a period of 12 hours.
type SeasonalityConfig struct {
	Name   string        `json:"name"`
	Orders int           `json:"orders"`
	Period time.Duration `json:"period"`
}

func (s SeasonalityConfig) isColinear(order int, colinear map[string]map[time.Duration]struct{}) bool {
	if s.Period%time.Duration(order) != 0 {
		return false
	}
	_, exists := colinear[s.Name][s.Period/time.Duration(order)]
	return exists
}

// NewSeasonalityConfig creates a new seasonality config given a name, period and orders
func NewSeasonalityConfig(name string, period time.Duration, orders int) SeasonalityConfig {
	if orders < 0 {
		orders = 0
	}

	return SeasonalityConfig{
		Name:   name,
		Orders: orders,
		Period: period,
	}
}

// NewDailySeasonalityConfig creates a daily seasonality config given a specified number of orders
func NewDailySeasonalityConfig(orders int) SeasonalityConfig {
	return NewSeasonalityConfig(LabelSeasDaily, 24*time.Hour, orders)
}

// NewWeeklySeasonalityConfig creates a weekly seasonality config given a specified number of orders
func NewWeeklySeasonalityConfig(orders int) SeasonalityConfig {
	return NewSeasonalityConfig(LabelSeasWeekly, 7*24*time.Hour, orders)
}

// NewYearlySeasonalityConfig creates a yearly seasonality config given a specified number of orders
func NewYearlySeasonalityConfig(orders int) SeasonalityConfig {
	return NewSeasonalityConfig(LabelSeasYearly, YearDuration, orders)
}
